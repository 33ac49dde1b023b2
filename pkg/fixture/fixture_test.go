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

package fixture

import (
	"fmt"
	"net/http/httptest"
	"runtime"
	"testing"

	"github.com/couchbase/service-broker-tests/pkg/broker"
	"github.com/couchbase/service-broker-tests/pkg/config"
	"github.com/couchbase/service-broker-tests/pkg/credentials"
	"github.com/couchbase/service-broker-tests/pkg/errors"
)

func enabledConfig() *config.Config {
	c := config.New()
	c.ServiceBroker.RunServiceBrokerTests = true
	c.ServiceAvailable.CatalogBrokerAPI = true
	c.ServiceAvailable.ApplicationCatalog = true
	c.Identity.Username = "demo"
	c.Identity.Password = "secret"
	c.Identity.TenantName = "demo"
	c.Identity.AdminRole = "cloud_admin"
	c.Auth.AdminUsername = "admin"
	c.Auth.AdminPassword = "supersecret"
	c.Auth.AdminTenantName = "admin"

	return c
}

// TestCheckSkip tests each disabled feature is reported with the right message.
func TestCheckSkip(t *testing.T) {
	cases := []struct {
		name     string
		patch    string
		expected string
	}{
		{
			name:     "TestsDisabled",
			patch:    `[{"op":"replace","path":"/service_broker/run_service_broker_tests","value":false}]`,
			expected: ServiceBrokerTestsDisabled,
		},
		{
			name:     "ServiceBrokerDisabled",
			patch:    `[{"op":"replace","path":"/service_available/catalog_broker_api","value":false}]`,
			expected: ServiceBrokerDisabled,
		},
		{
			name:     "ApplicationCatalogDisabled",
			patch:    `[{"op":"replace","path":"/service_available/application_catalog","value":false}]`,
			expected: ApplicationCatalogDisabled,
		},
	}

	if err := CheckSkip(enabledConfig()); err != nil {
		t.Fatalf("unexpected skip: %v", err)
	}

	for _, c := range cases {
		c := c

		t.Run(c.name, func(t *testing.T) {
			err := CheckSkip(enabledConfig().MustPatch(c.patch))
			if !errors.IsSkipError(err) {
				t.Fatalf("expected skip error, got %v", err)
			}

			if err.Error() != c.expected {
				t.Fatalf("expected message %q, got %q", c.expected, err.Error())
			}
		})
	}
}

// TestSkipChecks tests tests are skipped when disabled.
func TestSkipChecks(t *testing.T) {
	reached := false

	t.Run("Disabled", func(t *testing.T) {
		SkipChecks(t, config.New())

		reached = true
	})

	if reached {
		t.Fatalf("test not skipped")
	}
}

// TestMissingCredentials tests fixtures skip when accounts are not configured.
func TestMissingCredentials(t *testing.T) {
	c := enabledConfig()
	c.Identity.Password = ""

	reached := false

	t.Run("Primary", func(t *testing.T) {
		NewPrimary(t, c)

		reached = true
	})

	if reached {
		t.Fatalf("test not skipped")
	}
}

// TestVerifyNonEmpty tests any empty value causes a skip.
func TestVerifyNonEmpty(t *testing.T) {
	reached := false

	t.Run("NonEmpty", func(t *testing.T) {
		VerifyNonEmpty(t, "a", "b")

		reached = true
	})

	if !reached {
		t.Fatalf("test skipped")
	}

	reached = false

	t.Run("Empty", func(t *testing.T) {
		VerifyNonEmpty(t, "a", "")

		reached = true
	})

	if reached {
		t.Fatalf("test not skipped")
	}
}

func newTestFixture(t *testing.T, c *config.Config, role credentials.Role) *Fixture {
	t.Helper()

	b := broker.New(broker.Options{
		Username: c.Identity.Username,
		Password: c.Identity.Password,
	})

	server := httptest.NewServer(b)
	t.Cleanup(server.Close)

	c.ServiceBroker.Endpoint = server.URL
	c.ApplicationCatalog.Endpoint = server.URL

	return New(t, c, role)
}

// TestFixtureRoles tests fixtures use the configured account for their role.
func TestFixtureRoles(t *testing.T) {
	primary := newTestFixture(t, enabledConfig(), credentials.Primary)
	if primary.Credentials().Username != "demo" {
		t.Fatalf("unexpected primary credentials %v", primary.Credentials())
	}

	if primary.Name() != t.Name() {
		t.Fatalf("expected name %s, got %s", t.Name(), primary.Name())
	}

	admin := newTestFixture(t, enabledConfig(), credentials.Admin)
	if admin.Credentials().Username != "admin" || !admin.Credentials().HasRole("cloud_admin") {
		t.Fatalf("unexpected admin credentials %v", admin.Credentials())
	}

	if admin.ServiceBroker() == nil || admin.ApplicationCatalog() == nil {
		t.Fatalf("clients not initialized")
	}
}

// TestConfiguredIsolatedCredentials tests role selection from the provider.
func TestConfiguredIsolatedCredentials(t *testing.T) {
	c := enabledConfig()
	c.Identity.AltUsername = "alt"
	c.Identity.AltPassword = "altsecret"
	c.Identity.AltTenantName = "alt"

	f := newTestFixture(t, c, credentials.Primary)

	expected := map[credentials.Role]string{
		credentials.Primary: "demo",
		credentials.Admin:   "admin",
		credentials.Alt:     "alt",
		"cloud_admin":       "admin",
		"owner":             "demo",
	}

	for role, username := range expected {
		creds, err := f.ConfiguredIsolatedCredentials(role)
		if err != nil {
			t.Fatal(err)
		}

		if creds.Username != username {
			t.Fatalf("role %s: expected %s, got %s", role, username, creds.Username)
		}
	}

	if _, err := f.ClientWithIsolatedCredentials(credentials.Alt); err != nil {
		t.Fatal(err)
	}
}

// TestConfiguredIsolatedCredentialsV2 tests v2 identity ignores the configured
// admin role name.
func TestConfiguredIsolatedCredentialsV2(t *testing.T) {
	c := enabledConfig()
	c.Identity.AuthVersion = config.AuthVersionV2

	f := newTestFixture(t, c, credentials.Primary)

	creds, err := f.ConfiguredIsolatedCredentials(credentials.Admin)
	if err != nil {
		t.Fatal(err)
	}

	if !creds.HasRole(config.DefaultAdminRole) {
		t.Fatalf("expected role %s, got %v", config.DefaultAdminRole, creds.Roles)
	}

	// The v3 role name is just a custom role with v2.
	creds, err = f.ConfiguredIsolatedCredentials("cloud_admin")
	if err != nil {
		t.Fatal(err)
	}

	if creds.Username != "demo" {
		t.Fatalf("expected primary account, got %v", creds)
	}
}

// TestDynamicCredentials tests forced isolation cannot be satisfied.
func TestDynamicCredentials(t *testing.T) {
	c := enabledConfig()
	c.Auth.UseDynamicCredentials = true

	f := newTestFixture(t, c, credentials.Primary)

	if _, err := f.ConfiguredIsolatedCredentials(credentials.Alt); !errors.IsSkipError(err) {
		t.Fatalf("expected skip error, got %v", err)
	}
}

// TestNewInstanceID tests instance IDs are unique.
func TestNewInstanceID(t *testing.T) {
	if NewInstanceID() == NewInstanceID() {
		t.Fatalf("instance IDs not unique")
	}
}

// recorder captures test failures and skips without affecting the running
// test.  Like the real thing, failing or skipping stops the calling goroutine.
type recorder struct {
	testing.TB

	failed  bool
	skipped bool
	message string
}

func (r *recorder) Helper() {}

func (r *recorder) Name() string {
	return "recorded"
}

func (r *recorder) Fatal(args ...interface{}) {
	r.failed = true
	r.message = fmt.Sprint(args...)

	runtime.Goexit()
}

func (r *recorder) Fatalf(format string, args ...interface{}) {
	r.Fatal(fmt.Sprintf(format, args...))
}

func (r *recorder) Skip(args ...interface{}) {
	r.skipped = true
	r.message = fmt.Sprint(args...)

	runtime.Goexit()
}

// record runs a function against a recorder and waits for it to finish.
func record(f func(t testing.TB)) *recorder {
	r := &recorder{}

	done := make(chan struct{})

	go func() {
		defer close(done)

		f(r)
	}()

	<-done

	return r
}

// TestMissingEndpoint tests fixtures fail, rather than return unusable
// clients, when the service broker endpoint is missing.
func TestMissingEndpoint(t *testing.T) {
	r := record(func(t testing.TB) {
		NewPrimary(t, enabledConfig())
	})

	if !r.failed {
		t.Fatalf("fixture creation did not fail (skipped %v: %s)", r.skipped, r.message)
	}
}

// TestMissingEndpointValidated tests a missing service broker endpoint is
// reported when only the application catalog endpoint is configured.
func TestMissingEndpointValidated(t *testing.T) {
	c := enabledConfig()
	c.ApplicationCatalog.Endpoint = "https://localhost:8082"

	r := record(func(t testing.TB) {
		NewAdmin(t, c)
	})

	if !r.failed {
		t.Fatalf("fixture creation did not fail (skipped %v: %s)", r.skipped, r.message)
	}
}
