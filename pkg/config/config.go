// Copyright 2020-2021 Couchbase, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file  except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the  License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package config defines the test suite configuration.  Configuration is an
// explicit object that is loaded once and passed to fixtures, it is read-only
// after it has been validated.
package config

import (
	"encoding/json"
	"fmt"
	"io/ioutil"
	"os"

	"github.com/couchbase/service-broker-tests/pkg/api"
	"github.com/couchbase/service-broker-tests/pkg/errors"
	"github.com/couchbase/service-broker-tests/pkg/log"

	jsonpatch "github.com/evanphx/json-patch"
	"github.com/ghodss/yaml"
	"github.com/golang/glog"
)

const (
	// EnvironmentVariable names the file to load configuration from.
	EnvironmentVariable = "SERVICE_BROKER_TESTS_CONFIG"

	// AuthVersionV2 is the legacy identity API.
	AuthVersionV2 = "v2"

	// AuthVersionV3 is the current identity API.
	AuthVersionV3 = "v3"

	// DefaultAdminRole is the admin role name used when none is configured.
	DefaultAdminRole = "admin"
)

// ServiceBrokerConfig describes how to reach the service broker API.
type ServiceBrokerConfig struct {
	// RunServiceBrokerTests enables the service broker test suite.
	RunServiceBrokerTests bool `json:"run_service_broker_tests"`

	// Endpoint is the base URL of the service broker API.
	Endpoint string `json:"endpoint"`

	// APIVersion is sent in the X-Broker-API-Version header.
	APIVersion string `json:"api_version"`

	// Insecure disables TLS verification.
	Insecure bool `json:"insecure"`

	// CAFile is a PEM encoded CA bundle used to verify the broker.
	CAFile string `json:"ca_file"`
}

// ServiceAvailableConfig flags which services are deployed.
type ServiceAvailableConfig struct {
	// CatalogBrokerAPI is set when the service broker API is deployed.
	CatalogBrokerAPI bool `json:"catalog_broker_api"`

	// ApplicationCatalog is set when the application catalog is deployed.
	ApplicationCatalog bool `json:"application_catalog"`
}

// IdentityConfig describes the preprovisioned accounts.
type IdentityConfig struct {
	// URI is the identity service endpoint.
	URI string `json:"uri"`

	// AuthVersion is the identity API version, v2 or v3.
	AuthVersion string `json:"auth_version"`

	Username   string `json:"username"`
	Password   string `json:"password"`
	TenantName string `json:"tenant_name"`

	AltUsername   string `json:"alt_username"`
	AltPassword   string `json:"alt_password"`
	AltTenantName string `json:"alt_tenant_name"`

	// AdminRole is the name of the admin role for v3 identity.
	AdminRole string `json:"admin_role"`
}

// AuthConfig describes credential allocation.
type AuthConfig struct {
	// UseDynamicCredentials requests isolated, per-fixture credentials.
	UseDynamicCredentials bool `json:"use_dynamic_credentials"`

	AdminUsername   string `json:"admin_username"`
	AdminPassword   string `json:"admin_password"`
	AdminTenantName string `json:"admin_tenant_name"`
}

// ApplicationCatalogConfig describes how to reach the application catalog API.
type ApplicationCatalogConfig struct {
	// Endpoint is the base URL of the application catalog API.
	Endpoint string `json:"endpoint"`
}

// Config is the top level configuration.
type Config struct {
	ServiceBroker      ServiceBrokerConfig      `json:"service_broker"`
	ServiceAvailable   ServiceAvailableConfig   `json:"service_available"`
	Identity           IdentityConfig           `json:"identity"`
	Auth               AuthConfig               `json:"auth"`
	ApplicationCatalog ApplicationCatalogConfig `json:"application_catalog"`
}

// New returns a configuration with defaults applied.
func New() *Config {
	c := &Config{}
	c.SetDefaults()

	return c
}

// SetDefaults fills in any unset values that have defaults.
func (c *Config) SetDefaults() {
	if c.ServiceBroker.APIVersion == "" {
		c.ServiceBroker.APIVersion = api.DefaultAPIVersion
	}

	if c.Identity.AuthVersion == "" {
		c.Identity.AuthVersion = AuthVersionV3
	}

	if c.Identity.AdminRole == "" {
		c.Identity.AdminRole = DefaultAdminRole
	}
}

// Parse decodes YAML (or JSON) configuration.  The raw document is checked
// against the schema first so that misspelled attributes are reported rather
// than silently ignored.
func Parse(data []byte) (*Config, error) {
	object, err := yaml.YAMLToJSON(data)
	if err != nil {
		return nil, errors.NewConfigurationError("configuration is not valid YAML: %v", err)
	}

	if err := validateSchema(object); err != nil {
		return nil, err
	}

	c := &Config{}
	if err := json.Unmarshal(object, c); err != nil {
		return nil, errors.NewConfigurationError("configuration unmarshal failed: %v", err)
	}

	c.SetDefaults()

	return c, nil
}

// Load reads configuration from a file.
func Load(path string) (*Config, error) {
	data, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, err
	}

	c, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	glog.V(log.LevelDebug).Infof("loaded configuration from %s", path)

	return c, nil
}

// LoadFromEnv reads configuration from the file named by the environment.
func LoadFromEnv() (*Config, error) {
	path, ok := os.LookupEnv(EnvironmentVariable)
	if !ok {
		return nil, errors.NewConfigurationError("%s environment variable must be set", EnvironmentVariable)
	}

	return Load(path)
}

// Patch applies a JSON patch (RFC 6902) to a copy of the configuration.
// This allows tests to toggle individual settings without mutating shared
// configuration.
func (c *Config) Patch(patchJSON []byte) (*Config, error) {
	patch, err := jsonpatch.DecodePatch(patchJSON)
	if err != nil {
		return nil, errors.NewConfigurationError("configuration patch invalid: %v", err)
	}

	original, err := json.Marshal(c)
	if err != nil {
		return nil, err
	}

	modified, err := patch.Apply(original)
	if err != nil {
		return nil, errors.NewConfigurationError("configuration patch failed: %v", err)
	}

	patched := &Config{}
	if err := json.Unmarshal(modified, patched); err != nil {
		return nil, errors.NewConfigurationError("patched configuration unmarshal failed: %v", err)
	}

	return patched, nil
}

// MustPatch is a wrapper around Patch that panics on error, for use with
// known good patches.
func (c *Config) MustPatch(patchJSON string) *Config {
	patched, err := c.Patch([]byte(patchJSON))
	if err != nil {
		panic(err)
	}

	return patched
}

// DeepCopy returns a copy of the configuration.
func (c *Config) DeepCopy() *Config {
	out := *c

	return &out
}
