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

// Package broker implements an in-process Open Service Broker.  It performs the
// same request checks as a real broker, and replays scripted last operation
// responses so clients can be tested against any broker behaviour.  It also
// serves a minimal application catalog API.
package broker

import (
	"crypto/subtle"
	"crypto/tls"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/couchbase/service-broker-tests/pkg/api"
	"github.com/couchbase/service-broker-tests/pkg/log"
	"github.com/couchbase/service-broker-tests/pkg/util"

	"github.com/golang/glog"
	"github.com/julienschmidt/httprouter"
)

// handleBasicAuth implements RFC-7617.
func (b *Broker) handleBasicAuth(w http.ResponseWriter, r *http.Request) error {
	username, password, ok := r.BasicAuth()
	if !ok {
		util.HTTPResponse(w, http.StatusUnauthorized)
		return fmt.Errorf("no basic authorization header")
	}

	if !b.authorized(username, password) {
		util.HTTPResponse(w, http.StatusUnauthorized)
		return fmt.Errorf("authorization failed for user %s", username)
	}

	return nil
}

// handleTokenAuth accepts either a X-Auth-Token or basic authentication.
func (b *Broker) handleTokenAuth(w http.ResponseWriter, r *http.Request) error {
	tokens := r.Header.Values(api.HeaderAuthToken)

	switch len(tokens) {
	case 0:
		return b.handleBasicAuth(w, r)
	case 1:
		if b.options.Token == "" || subtle.ConstantTimeCompare([]byte(tokens[0]), []byte(b.options.Token)) != 1 {
			util.HTTPResponse(w, http.StatusUnauthorized)
			return fmt.Errorf("token authorization failed")
		}

		return nil
	}

	util.HTTPResponse(w, http.StatusBadRequest)

	return fmt.Errorf("multiple %s headers given", api.HeaderAuthToken)
}

// handleBrokerAPIHeader looks for a verifies the X-Broker-API-Version header
// is supported.
func handleBrokerAPIHeader(w http.ResponseWriter, r *http.Request) error {
	versions := r.Header.Values(api.HeaderAPIVersion)

	switch len(versions) {
	case 0:
		util.HTTPResponse(w, http.StatusBadRequest)
		return fmt.Errorf("no %s header", api.HeaderAPIVersion)
	case 1:
	default:
		util.HTTPResponse(w, http.StatusBadRequest)
		return fmt.Errorf("multiple %s headers given", api.HeaderAPIVersion)
	}

	apiVersion, err := strconv.ParseFloat(versions[0], 64)
	if err != nil {
		util.HTTPResponse(w, http.StatusBadRequest)
		return fmt.Errorf("malformed %s header: %w", api.HeaderAPIVersion, err)
	}

	if apiVersion < api.MinAPIVersion {
		util.HTTPResponse(w, http.StatusPreconditionFailed)
		return fmt.Errorf("unsupported %s header %v, requires at least %.2f", api.HeaderAPIVersion, versions[0], api.MinAPIVersion)
	}

	return nil
}

// handleContentTypeHeader looks for a verifies the Content-Type header is supported.
func handleContentTypeHeader(w http.ResponseWriter, r *http.Request) error {
	// If no content is specified we don't need a type.
	if r.ContentLength == 0 {
		return nil
	}

	contentTypes := r.Header.Values("Content-Type")
	if len(contentTypes) == 0 {
		util.HTTPResponse(w, http.StatusBadRequest)
		return fmt.Errorf("no Content-Type header")
	}

	for _, contentType := range contentTypes {
		if strings.EqualFold(strings.TrimSpace(strings.Split(contentType, ";")[0]), "application/json") {
			return nil
		}
	}

	util.HTTPResponse(w, http.StatusBadRequest)

	return fmt.Errorf("invalid Content-Type header")
}

// handleRequestHeaders checks that required headers are sent and are
// valid, and that content encodings are correct.
func (b *Broker) handleRequestHeaders(w http.ResponseWriter, r *http.Request) error {
	switch {
	case r.URL.Path == "/readyz":
		return nil
	case strings.HasPrefix(r.URL.Path, "/v2/"):
		if err := b.handleBasicAuth(w, r); err != nil {
			return err
		}

		if err := handleBrokerAPIHeader(w, r); err != nil {
			return err
		}
	default:
		if err := b.handleTokenAuth(w, r); err != nil {
			return err
		}
	}

	return handleContentTypeHeader(w, r)
}

// newRouter initializes the router with the Open Service Broker and application
// catalog APIs.
func (b *Broker) newRouter() http.Handler {
	router := httprouter.New()
	router.GET("/readyz", b.handleReadyz)
	router.GET("/v2/catalog", b.handleReadCatalog)
	router.PUT("/v2/service_instances/:instance_id", b.handleCreateServiceInstance)
	router.DELETE("/v2/service_instances/:instance_id", b.handleDeleteServiceInstance)
	router.GET("/v2/service_instances/:instance_id/last_operation", b.handleReadServiceInstanceStatus)
	router.PUT("/v2/service_instances/:instance_id/service_bindings/:binding_id", b.handleCreateServiceBinding)
	router.DELETE("/v2/service_instances/:instance_id/service_bindings/:binding_id", b.handleDeleteServiceBinding)
	router.GET("/v1/catalog/packages", b.handleListPackages)
	router.GET("/v1/catalog/packages/:package_id", b.handleReadPackage)
	router.GET("/v1/environments", b.handleListEnvironments)
	router.DELETE("/v1/environments/:environment_id", b.handleDeleteEnvironment)

	return router
}

// responseWriter wraps the standard response writer so we can extract the response data.
type responseWriter struct {
	writer http.ResponseWriter
	status int
}

// Header returns a reference to the response headers.
func (w *responseWriter) Header() http.Header {
	return w.writer.Header()
}

// Write writes out data after the headers have been written.
func (w *responseWriter) Write(body []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}

	return w.writer.Write(body)
}

// WriteHeader writes out the headers.
func (w *responseWriter) WriteHeader(statusCode int) {
	w.status = statusCode
	w.writer.WriteHeader(statusCode)
}

// ServeHTTP performs generic test on all API endpoints.
func (b *Broker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	// DO NOT print out headers at info level as that will leak credentials into the log stream.
	userAgent := r.Header.Get("User-Agent")
	if userAgent == "" {
		userAgent = "-"
	}

	glog.Infof(`HTTP req: "%s %s %s" %s %s`, r.Method, r.URL.Path, r.Proto, r.RemoteAddr, userAgent)

	writer := &responseWriter{
		writer: w,
	}

	if err := b.handleRequestHeaders(writer, r); err != nil {
		glog.V(log.LevelDebug).Info(err)
	} else {
		b.router.ServeHTTP(writer, r)
	}

	glog.Infof(`HTTP rsp: "%d %s" %v`, writer.status, http.StatusText(writer.status), time.Since(start))
}

// NewServer returns a HTTPS server for the broker.
func NewServer(handler http.Handler, certificate tls.Certificate) *http.Server {
	return &http.Server{
		Handler: handler,
		TLSConfig: &tls.Config{
			Certificates: []tls.Certificate{
				certificate,
			},
			MinVersion: tls.VersionTLS12,
		},
		ReadHeaderTimeout: 10 * time.Second,
	}
}
