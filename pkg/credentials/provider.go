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

package credentials

import (
	"github.com/couchbase/service-broker-tests/pkg/config"
	"github.com/couchbase/service-broker-tests/pkg/errors"
	"github.com/couchbase/service-broker-tests/pkg/log"

	"github.com/golang/glog"
)

// Provider allocates credentials.
type Provider interface {
	// Name is the name the provider was created with, dynamic providers
	// use this to name any resources they create.
	Name() string

	// Primary returns the primary credentials.
	Primary() (*Credentials, error)

	// Admin returns the admin credentials.
	Admin() (*Credentials, error)

	// Alt returns the alternate credentials.
	Alt() (*Credentials, error)

	// ForRoles returns credentials granted the requested roles.
	ForRoles(roles ...string) (*Credentials, error)
}

// staticProvider hands out the preprovisioned accounts from configuration.
type staticProvider struct {
	name      string
	config    *config.Config
	adminRole string
}

// AdminRoleName returns the name of the admin role for the configured identity
// API version.  Only v3 identity allows the role to be renamed.
func AdminRoleName(c *config.Config) string {
	if c.Identity.AuthVersion == config.AuthVersionV3 && c.Identity.AdminRole != "" {
		return c.Identity.AdminRole
	}

	return config.DefaultAdminRole
}

// NewProvider returns a credentials provider.  Only statically configured accounts
// are supported, if isolation is forced then a skip error is returned as the
// test cannot be run safely.
func NewProvider(c *config.Config, name string, forceIsolation bool, identityVersion string) (Provider, error) {
	if forceIsolation {
		return nil, errors.NewSkipError("dynamic credential allocation is not available for %s", name)
	}

	if identityVersion != config.AuthVersionV2 && identityVersion != config.AuthVersionV3 {
		return nil, errors.NewConfigurationError("unsupported identity version %q", identityVersion)
	}

	adminRole := config.DefaultAdminRole
	if identityVersion == config.AuthVersionV3 && c.Identity.AdminRole != "" {
		adminRole = c.Identity.AdminRole
	}

	glog.V(log.LevelDebug).Infof("created static credentials provider %s (identity %s)", name, identityVersion)

	provider := &staticProvider{
		name:      name,
		config:    c,
		adminRole: adminRole,
	}

	return provider, nil
}

// Name returns the provider name.
func (p *staticProvider) Name() string {
	return p.name
}

// account returns credentials, raising a skip error if they are incomplete.
func (p *staticProvider) account(role Role, username, password, tenantName string, roles ...string) (*Credentials, error) {
	credentials := &Credentials{
		Username:   username,
		Password:   password,
		TenantName: tenantName,
		Roles:      roles,
	}

	if credentials.Empty() {
		return nil, errors.NewSkipError("no %s credentials configured", role)
	}

	return credentials, nil
}

// Primary returns the primary credentials.
func (p *staticProvider) Primary() (*Credentials, error) {
	return p.account(Primary, p.config.Identity.Username, p.config.Identity.Password, p.config.Identity.TenantName)
}

// Admin returns the admin credentials.
func (p *staticProvider) Admin() (*Credentials, error) {
	return p.account(Admin, p.config.Auth.AdminUsername, p.config.Auth.AdminPassword, p.config.Auth.AdminTenantName, p.adminRole)
}

// Alt returns the alternate credentials.
func (p *staticProvider) Alt() (*Credentials, error) {
	return p.account(Alt, p.config.Identity.AltUsername, p.config.Identity.AltPassword, p.config.Identity.AltTenantName)
}

// ForRoles returns the primary account tagged with the requested roles.  A
// static provider cannot grant roles, so this relies on the account being
// set up with them beforehand.
func (p *staticProvider) ForRoles(roles ...string) (*Credentials, error) {
	return p.account(Primary, p.config.Identity.Username, p.config.Identity.Password, p.config.Identity.TenantName, roles...)
}

// ForRole returns credentials for any role, predefined or custom.
func ForRole(p Provider, role Role) (*Credentials, error) {
	switch role {
	case Primary:
		return p.Primary()
	case Admin:
		return p.Admin()
	case Alt:
		return p.Alt()
	}

	return p.ForRoles(string(role))
}
