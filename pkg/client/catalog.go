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

package client

import (
	"context"
	"net/http"

	"github.com/couchbase/service-broker-tests/pkg/api"
	"github.com/couchbase/service-broker-tests/pkg/config"
	"github.com/couchbase/service-broker-tests/pkg/credentials"
	"github.com/couchbase/service-broker-tests/pkg/errors"

	"github.com/go-resty/resty/v2"
)

const (
	pathPackages     = "/v1/catalog/packages"
	pathPackage      = "/v1/catalog/packages/{package_id}"
	pathEnvironments = "/v1/environments"
	pathEnvironment  = "/v1/environments/{environment_id}"
)

// ApplicationCatalogInterface is a client for the application catalog API.
type ApplicationCatalogInterface interface {
	// ListPackages returns all visible packages.
	ListPackages(ctx context.Context) ([]api.Package, error)

	// GetPackage returns a single package.
	GetPackage(ctx context.Context, packageID string) (*api.Package, error)

	// ListEnvironments returns all visible environments.
	ListEnvironments(ctx context.Context) ([]api.Environment, error)

	// DeleteEnvironment deletes an environment.
	DeleteEnvironment(ctx context.Context, environmentID string) error
}

// applicationCatalog implements the application catalog client.
type applicationCatalog struct {
	client *resty.Client
}

// newApplicationCatalog returns a client authenticated with a token if one
// is present, falling back to basic authentication.
func newApplicationCatalog(client *resty.Client, creds *credentials.Credentials) ApplicationCatalogInterface {
	if creds != nil {
		if creds.Token != "" {
			client.SetHeader(api.HeaderAuthToken, creds.Token)
		} else {
			client.SetBasicAuth(creds.Username, creds.Password)
		}
	}

	return &applicationCatalog{
		client: client,
	}
}

// NewApplicationCatalog returns a standalone application catalog client.
func NewApplicationCatalog(c *config.Config, creds *credentials.Credentials) (ApplicationCatalogInterface, error) {
	if c.ApplicationCatalog.Endpoint == "" {
		return nil, errors.NewConfigurationError("application catalog endpoint not configured")
	}

	tlsConfig, err := newTLSConfig(c)
	if err != nil {
		return nil, err
	}

	return newApplicationCatalog(newRESTClient(c.ApplicationCatalog.Endpoint, tlsConfig), creds), nil
}

// ListPackages returns all visible packages.
func (a *applicationCatalog) ListPackages(ctx context.Context) ([]api.Package, error) {
	list := &api.PackageList{}

	response, err := a.client.R().SetContext(ctx).SetResult(list).Get(pathPackages)
	if err != nil {
		return nil, err
	}

	if err := expect(response, http.StatusOK); err != nil {
		return nil, err
	}

	return list.Packages, nil
}

// GetPackage returns a single package.
func (a *applicationCatalog) GetPackage(ctx context.Context, packageID string) (*api.Package, error) {
	pkg := &api.Package{}

	response, err := a.client.R().SetContext(ctx).SetPathParam("package_id", packageID).SetResult(pkg).Get(pathPackage)
	if err != nil {
		return nil, err
	}

	if err := expect(response, http.StatusOK); err != nil {
		return nil, err
	}

	return pkg, nil
}

// ListEnvironments returns all visible environments.
func (a *applicationCatalog) ListEnvironments(ctx context.Context) ([]api.Environment, error) {
	list := &api.EnvironmentList{}

	response, err := a.client.R().SetContext(ctx).SetResult(list).Get(pathEnvironments)
	if err != nil {
		return nil, err
	}

	if err := expect(response, http.StatusOK); err != nil {
		return nil, err
	}

	return list.Environments, nil
}

// DeleteEnvironment deletes an environment.
func (a *applicationCatalog) DeleteEnvironment(ctx context.Context, environmentID string) error {
	response, err := a.client.R().SetContext(ctx).SetPathParam("environment_id", environmentID).Delete(pathEnvironment)
	if err != nil {
		return err
	}

	return expect(response, http.StatusOK, http.StatusAccepted, http.StatusNoContent)
}
