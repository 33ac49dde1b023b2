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

// Package client provides clients for the service broker and application
// catalog APIs.
package client

import (
	"crypto/tls"
	"crypto/x509"
	"io/ioutil"
	"net/http"
	"time"

	"github.com/couchbase/service-broker-tests/pkg/config"
	"github.com/couchbase/service-broker-tests/pkg/credentials"
	"github.com/couchbase/service-broker-tests/pkg/errors"
	"github.com/couchbase/service-broker-tests/pkg/log"

	"github.com/go-resty/resty/v2"
	"github.com/golang/glog"
)

const (
	// requestTimeout bounds any single API call.
	requestTimeout = 30 * time.Second
)

// Manager provides an abstraction layer for the API clients available to a
// set of credentials.
type Manager interface {
	// ServiceBroker returns a client for the Open Service Broker API.
	ServiceBroker() ServiceBrokerInterface

	// ApplicationCatalog returns a client for the application catalog API, or
	// nil if no endpoint is configured.
	ApplicationCatalog() ApplicationCatalogInterface

	// Credentials returns the credentials the clients authenticate with.
	Credentials() *credentials.Credentials
}

// managerImpl implements the default client manager.
type managerImpl struct {
	credentials        *credentials.Credentials
	serviceBroker      ServiceBrokerInterface
	applicationCatalog ApplicationCatalogInterface
}

// NewManager returns a new set of clients for the configured endpoints.
func NewManager(c *config.Config, creds *credentials.Credentials) (Manager, error) {
	tlsConfig, err := newTLSConfig(c)
	if err != nil {
		return nil, err
	}

	manager := &managerImpl{
		credentials: creds,
	}

	if c.ServiceBroker.Endpoint != "" {
		manager.serviceBroker = newServiceBroker(newRESTClient(c.ServiceBroker.Endpoint, tlsConfig), c.ServiceBroker.APIVersion, creds)
	}

	if c.ApplicationCatalog.Endpoint != "" {
		manager.applicationCatalog = newApplicationCatalog(newRESTClient(c.ApplicationCatalog.Endpoint, tlsConfig), creds)
	}

	return manager, nil
}

// ServiceBroker returns a client for the Open Service Broker API.
func (m *managerImpl) ServiceBroker() ServiceBrokerInterface {
	return m.serviceBroker
}

// ApplicationCatalog returns a client for the application catalog API.
func (m *managerImpl) ApplicationCatalog() ApplicationCatalogInterface {
	return m.applicationCatalog
}

// Credentials returns the credentials the clients authenticate with.
func (m *managerImpl) Credentials() *credentials.Credentials {
	return m.credentials
}

// newTLSConfig returns TLS configuration for the service broker.  If a CA
// bundle is configured it is used to verify the server, otherwise the system
// certificates are.
func newTLSConfig(c *config.Config) (*tls.Config, error) {
	tlsConfig := &tls.Config{
		InsecureSkipVerify: c.ServiceBroker.Insecure, //nolint:gosec
	}

	if c.ServiceBroker.CAFile == "" {
		return tlsConfig, nil
	}

	ca, err := ioutil.ReadFile(c.ServiceBroker.CAFile)
	if err != nil {
		return nil, errors.NewConfigurationError("failed to read CA file: %v", err)
	}

	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(ca) {
		return nil, errors.NewConfigurationError("CA file %s contains no PEM certificates", c.ServiceBroker.CAFile)
	}

	tlsConfig.RootCAs = pool

	return tlsConfig, nil
}

// newRESTClient creates a HTTP client for an endpoint with common logging.
func newRESTClient(endpoint string, tlsConfig *tls.Config) *resty.Client {
	return resty.New().
		SetBaseURL(endpoint).
		SetTLSClientConfig(tlsConfig).
		SetTimeout(requestTimeout).
		SetLogger(&logger{}).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json").
		OnAfterResponse(logResponse)
}

// logResponse logs every request and the response status at info level.  Bodies
// may contain secrets so are only logged at trace level.
func logResponse(_ *resty.Client, response *resty.Response) error {
	glog.Infof("%s %s %d %v", response.Request.Method, response.Request.URL, response.StatusCode(), response.Time())

	if glog.V(log.LevelTrace) {
		glog.Infof("%s %s response body: %s", response.Request.Method, response.Request.URL, string(response.Body()))
	}

	return nil
}

// logger adapts resty's logging to glog.
type logger struct{}

func (l *logger) Errorf(format string, v ...interface{}) {
	glog.Errorf(format, v...)
}

func (l *logger) Warnf(format string, v ...interface{}) {
	glog.Warningf(format, v...)
}

func (l *logger) Debugf(format string, v ...interface{}) {
	glog.V(log.LevelTrace).Infof(format, v...)
}

// expect checks a response has one of the expected status codes, returning a
// HTTPStatusError if not.
func expect(response *resty.Response, codes ...int) error {
	for _, code := range codes {
		if response.StatusCode() == code {
			return nil
		}
	}

	return newHTTPStatusError(response)
}

// success is the set of status codes that a mutating call may return.
var success = []int{http.StatusOK, http.StatusCreated, http.StatusAccepted}
