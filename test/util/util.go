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

package util

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/couchbase/service-broker-tests/pkg/api"
	"github.com/couchbase/service-broker-tests/pkg/broker"
	"github.com/couchbase/service-broker-tests/pkg/config"
	pkgutil "github.com/couchbase/service-broker-tests/pkg/util"
)

const (
	// Username is the primary account, the broker accepts this.
	Username = "demo"

	// Password is the primary account password.
	Password = "password"

	// TenantName is the primary account tenant.
	TenantName = "demo"

	// AdminRole is the v3 admin role name.
	AdminRole = "cloud_admin"

	// Token is accepted by the application catalog.
	Token = "3b2e4b8f6c1d"

	// PollInterval is used to speed up tests.
	PollInterval = 10 * time.Millisecond
)

// ServerRunning returns a wait function that checks the server is accepting TCP traffic.
func ServerRunning(address string) pkgutil.WaitFunc {
	return func() error {
		conn, err := net.Dial("tcp", address)
		if err != nil {
			return err
		}

		return conn.Close()
	}
}

// DefaultConfig returns a configuration with all tests enabled, using the
// provided endpoint and CA certificate file.
func DefaultConfig(endpoint, caFile string) (*config.Config, error) {
	c, err := config.Parse([]byte(fmt.Sprintf(`
service_broker:
  run_service_broker_tests: true
  endpoint: %[1]s
  ca_file: %[2]s
service_available:
  catalog_broker_api: true
  application_catalog: true
identity:
  auth_version: v3
  username: %[3]s
  password: %[4]s
  tenant_name: %[5]s
  alt_username: %[3]s
  alt_password: %[4]s
  alt_tenant_name: alt
  admin_role: %[6]s
auth:
  admin_username: %[3]s
  admin_password: %[4]s
  admin_tenant_name: admin
application_catalog:
  endpoint: %[1]s
`, endpoint, caFile, Username, Password, TenantName, AdminRole)))
	if err != nil {
		return nil, err
	}

	if err := c.Validate(); err != nil {
		return nil, err
	}

	return c, nil
}

// MustPatchConfig applies a patch to the configuration.
func MustPatchConfig(t *testing.T, c *config.Config, patch string) *config.Config {
	t.Helper()

	patched, err := c.Patch([]byte(patch))
	if err != nil {
		t.Fatal(err)
	}

	return patched
}

// DefaultProvisionRequest returns a valid provision request.
func DefaultProvisionRequest() *api.CreateServiceInstanceRequest {
	pkg := broker.DefaultPackages()[0]

	return &api.CreateServiceInstanceRequest{
		ServiceID: pkg.ID,
		PlanID:    broker.PlanID(pkg.ID),
	}
}

// MustDefaultClient returns a raw HTTP client trusting the CA.
func MustDefaultClient(t *testing.T, ca []byte) *http.Client {
	t.Helper()

	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(ca) {
		t.Fatal("failed to append CA certificate")
	}

	client := &http.Client{
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{
				RootCAs:    pool,
				MinVersion: tls.VersionTLS12,
			},
		},
		Timeout: 10 * time.Second,
	}

	return client
}

// MustDoRequest performs a raw request with default credentials.
func MustDoRequest(t *testing.T, client *http.Client, method, url string) *http.Response {
	t.Helper()

	request, err := http.NewRequest(method, url, nil)
	if err != nil {
		t.Fatal(err)
	}

	request.SetBasicAuth(Username, Password)
	request.Header.Set(api.HeaderAPIVersion, api.DefaultAPIVersion)

	response, err := client.Do(request)
	if err != nil {
		t.Fatal(err)
	}

	t.Cleanup(func() {
		_ = response.Body.Close()
	})

	return response
}

// MustVerifyStatusCode checks the response status code is as expected.
func MustVerifyStatusCode(t *testing.T, response *http.Response, statusCode int) {
	t.Helper()

	if response.StatusCode != statusCode {
		t.Fatalf("status code %d does not match expected %d", response.StatusCode, statusCode)
	}
}
