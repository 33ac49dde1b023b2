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

// Package fixture provides the common setup for service broker tests.  A
// fixture checks the test can run in the configured environment, acquires
// credentials and wires up API clients, and wraps the poller so that tests
// fail cleanly when an operation does not complete as expected.
package fixture

import (
	"context"
	"testing"
	"time"

	"github.com/couchbase/service-broker-tests/pkg/api"
	"github.com/couchbase/service-broker-tests/pkg/client"
	"github.com/couchbase/service-broker-tests/pkg/config"
	"github.com/couchbase/service-broker-tests/pkg/credentials"
	"github.com/couchbase/service-broker-tests/pkg/errors"
	"github.com/couchbase/service-broker-tests/pkg/log"
	"github.com/couchbase/service-broker-tests/pkg/poller"

	petname "github.com/dustinkirkland/golang-petname"
	"github.com/golang/glog"
	"github.com/google/uuid"
)

const (
	// MissingCredentials is the skip message when accounts are not configured.
	MissingCredentials = "Missing API credentials in configuration."

	// ServiceBrokerTestsDisabled is the skip message when the suite is disabled.
	ServiceBrokerTestsDisabled = "Service Broker API tests are disabled"

	// ServiceBrokerDisabled is the skip message when the service broker is not deployed.
	ServiceBrokerDisabled = "Service Broker API is disabled"

	// ApplicationCatalogDisabled is the skip message when the application catalog
	// is not deployed.
	ApplicationCatalogDisabled = "Application catalog is disabled"
)

// CheckSkip returns a skip error if the configuration does not allow service
// broker tests to run.
func CheckSkip(c *config.Config) error {
	if !c.ServiceBroker.RunServiceBrokerTests {
		return errors.NewSkipError(ServiceBrokerTestsDisabled)
	}

	if !c.ServiceAvailable.CatalogBrokerAPI {
		return errors.NewSkipError(ServiceBrokerDisabled)
	}

	if !c.ServiceAvailable.ApplicationCatalog {
		return errors.NewSkipError(ApplicationCatalogDisabled)
	}

	return nil
}

// SkipChecks skips the test if the configuration does not allow service broker
// tests to run.
func SkipChecks(t testing.TB, c *config.Config) {
	t.Helper()

	if err := CheckSkip(c); err != nil {
		t.Skip(err.Error())
	}
}

// VerifyNonEmpty skips the test if any of the values are empty.
func VerifyNonEmpty(t testing.TB, values ...string) {
	t.Helper()

	for _, value := range values {
		if value == "" {
			t.Skip(MissingCredentials)
		}
	}
}

// NewInstanceID returns a unique service instance ID.
func NewInstanceID() string {
	return uuid.New().String()
}

// Fixture is the per-test state.
type Fixture struct {
	t testing.TB

	// name identifies the fixture, and anything created by it.
	name string

	config  *config.Config
	role    credentials.Role
	manager client.Manager
	poller  *poller.Poller
}

// New runs the skip checks, then creates a fixture with clients for the
// configured account of the requested role.
func New(t testing.TB, c *config.Config, role credentials.Role) *Fixture {
	t.Helper()

	SkipChecks(t, c)

	name := t.Name()
	if name == "" {
		name = petname.Generate(2, "-")
	}

	f := &Fixture{
		t:      t,
		name:   name,
		config: c,
		role:   role,
		poller: &poller.Poller{},
	}

	var creds *credentials.Credentials

	switch role {
	case credentials.Primary:
		creds = &credentials.Credentials{
			Username:   c.Identity.Username,
			Password:   c.Identity.Password,
			TenantName: c.Identity.TenantName,
		}
	case credentials.Admin:
		creds = &credentials.Credentials{
			Username:   c.Auth.AdminUsername,
			Password:   c.Auth.AdminPassword,
			TenantName: c.Auth.AdminTenantName,
			Roles:      []string{credentials.AdminRoleName(c)},
		}
	default:
		var err error

		if creds, err = f.ConfiguredIsolatedCredentials(role); err != nil {
			f.fail(err)
		}
	}

	VerifyNonEmpty(t, creds.Username, creds.Password, creds.TenantName)

	if err := c.Validate(); err != nil {
		t.Fatal(err)
	}

	manager, err := client.NewManager(c, creds)
	if err != nil {
		t.Fatal(err)
	}

	if manager.ServiceBroker() == nil {
		t.Fatal(errors.NewConfigurationError("service broker endpoint not configured"))
	}

	f.manager = manager

	glog.V(log.LevelDebug).Infof("fixture %s using %s credentials %v", name, role, creds)

	return f
}

// NewPrimary creates a fixture with the primary account.
func NewPrimary(t testing.TB, c *config.Config) *Fixture {
	t.Helper()

	return New(t, c, credentials.Primary)
}

// NewAdmin creates a fixture with the admin account.
func NewAdmin(t testing.TB, c *config.Config) *Fixture {
	t.Helper()

	return New(t, c, credentials.Admin)
}

// fail skips on skip errors and fails on everything else.
func (f *Fixture) fail(err error) {
	f.t.Helper()

	if errors.IsSkipError(err) {
		f.t.Skip(err.Error())
	}

	f.t.Fatal(err)
}

// Name returns the fixture name.
func (f *Fixture) Name() string {
	return f.name
}

// Role returns the role the fixture's clients authenticate as.
func (f *Fixture) Role() credentials.Role {
	return f.role
}

// ServiceBroker returns the service broker client.
func (f *Fixture) ServiceBroker() client.ServiceBrokerInterface {
	return f.manager.ServiceBroker()
}

// ApplicationCatalog returns the application catalog client.
func (f *Fixture) ApplicationCatalog() client.ApplicationCatalogInterface {
	return f.manager.ApplicationCatalog()
}

// Credentials returns the credentials the fixture's clients use.
func (f *Fixture) Credentials() *credentials.Credentials {
	return f.manager.Credentials()
}

// SetPollInterval overrides the poll interval, this is only useful to speed up
// tests of the fixture itself.
func (f *Fixture) SetPollInterval(interval time.Duration) {
	f.poller.Interval = interval
}

// ConfiguredIsolatedCredentials returns credentials for a role from a provider
// named after the fixture.  Any role other than primary, admin or alt is
// treated as a custom role.
func (f *Fixture) ConfiguredIsolatedCredentials(role credentials.Role) (*credentials.Credentials, error) {
	provider, err := credentials.NewProvider(f.config, f.name, f.config.Auth.UseDynamicCredentials, f.config.Identity.AuthVersion)
	if err != nil {
		return nil, err
	}

	if string(role) == credentials.AdminRoleName(f.config) {
		role = credentials.Admin
	}

	return credentials.ForRole(provider, role)
}

// ClientWithIsolatedCredentials returns an application catalog client for a role.
func (f *Fixture) ClientWithIsolatedCredentials(role credentials.Role) (client.ApplicationCatalogInterface, error) {
	creds, err := f.ConfiguredIsolatedCredentials(role)
	if err != nil {
		return nil, err
	}

	return client.NewApplicationCatalog(f.config, creds)
}

// WaitForResult waits for the status of an instance to change to a terminal
// state or an encoded object.
func (f *Fixture) WaitForResult(ctx context.Context, instanceID string, timeout time.Duration) (*poller.Result, error) {
	return f.poller.WaitForResult(ctx, f.ServiceBroker(), instanceID, timeout)
}

// PerformDeprovision deprovisions an instance and waits for it to succeed.
func (f *Fixture) PerformDeprovision(ctx context.Context, instanceID string) error {
	return f.poller.PerformDeprovision(ctx, f.ServiceBroker(), instanceID)
}

// MustWaitForResult waits for a result and fails the test on error.
func (f *Fixture) MustWaitForResult(instanceID string, timeout time.Duration) *poller.Result {
	f.t.Helper()

	result, err := f.WaitForResult(context.Background(), instanceID, timeout)
	if err != nil {
		f.t.Fatal(err)
	}

	return result
}

// MustPerformDeprovision deprovisions an instance and fails the test unless
// the deprovision succeeded.
func (f *Fixture) MustPerformDeprovision(instanceID string) {
	f.t.Helper()

	if err := f.PerformDeprovision(context.Background(), instanceID); err != nil {
		f.t.Fatal(err)
	}
}

// MustProvision provisions an instance and fails the test on error.
func (f *Fixture) MustProvision(instanceID string, request *api.CreateServiceInstanceRequest) *api.CreateServiceInstanceResponse {
	f.t.Helper()

	response, err := f.ServiceBroker().Provision(context.Background(), instanceID, request)
	if err != nil {
		f.t.Fatal(err)
	}

	return response
}
