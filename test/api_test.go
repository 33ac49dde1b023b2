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

package test

import (
	"context"
	"net/http"
	"strings"
	"testing"

	"github.com/couchbase/service-broker-tests/pkg/client"
	"github.com/couchbase/service-broker-tests/pkg/fixture"
	"github.com/couchbase/service-broker-tests/test/util"
)

// TestReadiness tests a TLS readiness check succeeds with no other headers.
func TestReadiness(t *testing.T) {
	c := util.MustDefaultClient(t, caCertificate)

	response, err := c.Get(endpoint + "/readyz")
	if err != nil {
		t.Fatal(err)
	}

	defer response.Body.Close()

	util.MustVerifyStatusCode(t, response, http.StatusOK)
}

// TestConnectNoTLS tests that the client fails when connecting without using
// TLS transport.
func TestConnectNoTLS(t *testing.T) {
	c := util.MustDefaultClient(t, caCertificate)

	response, err := c.Get(strings.Replace(endpoint, "https://", "http://", 1) + "/readyz")
	if err == nil {
		defer response.Body.Close()

		if response.StatusCode == http.StatusOK {
			t.Fatal("plain text request unexpectedly succeeded")
		}
	}
}

// TestConnectUntrusted tests fixtures fail to connect without the CA.
func TestConnectUntrusted(t *testing.T) {
	mustResetBroker(t)

	c := util.MustPatchConfig(t, defaultConfig, `[{"op":"replace","path":"/service_broker/ca_file","value":""}]`)

	f := fixture.NewPrimary(t, c)

	if _, err := f.ServiceBroker().Catalog(context.Background()); err == nil {
		t.Fatal("untrusted connection unexpectedly succeeded")
	}
}

// TestConnectInsecure tests fixtures can skip verification.
func TestConnectInsecure(t *testing.T) {
	mustResetBroker(t)

	c := util.MustPatchConfig(t, defaultConfig, `[{"op":"replace","path":"/service_broker/ca_file","value":""},{"op":"replace","path":"/service_broker/insecure","value":true}]`)

	f := fixture.NewPrimary(t, c)

	if _, err := f.ServiceBroker().Catalog(context.Background()); err != nil {
		t.Fatal(err)
	}
}

// TestConnectPathNotFound tests that illegal paths return a 404.
func TestConnectPathNotFound(t *testing.T) {
	response := util.MustDoRequest(t, util.MustDefaultClient(t, caCertificate), http.MethodGet, endpoint+"/v2/batman")
	util.MustVerifyStatusCode(t, response, http.StatusNotFound)
}

// TestConnectMethodNotFound tests that illegal methods return a 405.
func TestConnectMethodNotFound(t *testing.T) {
	response := util.MustDoRequest(t, util.MustDefaultClient(t, caCertificate), http.MethodPost, endpoint+"/v2/catalog")
	util.MustVerifyStatusCode(t, response, http.StatusMethodNotAllowed)
}

// TestConnectWrongCredentials tests the fixture's clients report authorization
// failures.
func TestConnectWrongCredentials(t *testing.T) {
	mustResetBroker(t)

	c := util.MustPatchConfig(t, defaultConfig, `[{"op":"replace","path":"/identity/password","value":"wrong"}]`)

	f := fixture.NewPrimary(t, c)

	if _, err := f.ServiceBroker().Catalog(context.Background()); !client.IsHTTPStatus(err, http.StatusUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
}

// TestCatalog tests the catalog lists every package.
func TestCatalog(t *testing.T) {
	mustResetBroker(t)

	f := fixture.NewPrimary(t, defaultConfig)

	catalog, err := f.ServiceBroker().Catalog(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	packages, err := f.ApplicationCatalog().ListPackages(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	for _, pkg := range packages {
		if _, ok := catalog.Offering(pkg.ID); !ok {
			t.Fatalf("package %s not offered by the service broker", pkg.ID)
		}
	}
}
