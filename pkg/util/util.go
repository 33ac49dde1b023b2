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
	"encoding/json"
	"fmt"
	"io/ioutil"
	"net/http"
	"net/url"

	"github.com/couchbase/service-broker-tests/pkg/api"
	"github.com/couchbase/service-broker-tests/pkg/log"

	"github.com/golang/glog"
)

// HTTPResponse is the canonical writer for HTTP responses.
func HTTPResponse(w http.ResponseWriter, status int) {
	w.WriteHeader(status)
}

// JSONRequest reads the JSON body into the give structure.
func JSONRequest(r *http.Request, data interface{}) error {
	body, err := ioutil.ReadAll(r.Body)
	if err != nil {
		return fmt.Errorf("unable to read body: %w", err)
	}

	glog.V(log.LevelTrace).Infof("JSON req: %s", string(body))

	if err := json.Unmarshal(body, data); err != nil {
		return fmt.Errorf("unable to unmarshal body: %w", err)
	}

	return nil
}

// JSONResponse sends generic JSON data back to the client and replies
// with a HTTP status code.
func JSONResponse(w http.ResponseWriter, status int, data interface{}) {
	resp, err := json.Marshal(data)
	if err != nil {
		glog.Errorf("failed to marshal body: %v", err)
		HTTPResponse(w, http.StatusInternalServerError)

		return
	}

	RawJSONResponse(w, status, resp)
}

// RawJSONResponse sends pre-encoded JSON data back to the client.  This allows
// arbitrary, possibly illegal, payloads to be returned.
func RawJSONResponse(w http.ResponseWriter, status int, data []byte) {
	glog.V(log.LevelTrace).Infof("JSON rsp: %s", string(data))

	w.Header().Set("Content-Type", "application/json")

	HTTPResponse(w, status)

	if _, err := w.Write(data); err != nil {
		glog.Errorf("error writing response: %v", err)
	}
}

// JSONError is a helper method to return an error back to the client.
func JSONError(w http.ResponseWriter, status int, errorType api.ErrorType, err error) {
	e := &api.Error{
		Error:       errorType,
		Description: err.Error(),
	}

	JSONResponse(w, status, e)
}

// AsyncRequired returns an error unless the client has indicated it supports
// asynchronous operations.
func AsyncRequired(r *http.Request) error {
	query, err := url.ParseQuery(r.URL.RawQuery)
	if err != nil {
		return fmt.Errorf("malformed query data: %w", err)
	}

	if acceptsIncomplete, ok := query[api.QueryAcceptsIncomplete]; !ok || acceptsIncomplete[0] != "true" {
		return fmt.Errorf("client must support asynchronous operations")
	}

	return nil
}

// MayGetSingleParameter gets a named parameter from the request URL.  Returns false
// if it doesn't exist and an error if there is any ambiguity.
func MayGetSingleParameter(r *http.Request, name string) (string, bool, error) {
	query, err := url.ParseQuery(r.URL.RawQuery)
	if err != nil {
		return "", false, fmt.Errorf("malformed query data: %w", err)
	}

	values, ok := query[name]
	if !ok {
		return "", false, nil
	}

	if len(values) != 1 {
		return "", false, fmt.Errorf("query parameter %s not unique", name)
	}

	return values[0], true, nil
}

// GetSingleParameter gets a named parameter from the request URL.
func GetSingleParameter(r *http.Request, name string) (string, error) {
	value, ok, err := MayGetSingleParameter(r, name)
	if err != nil {
		return "", err
	}

	if !ok {
		return "", fmt.Errorf("query parameter %s not found", name)
	}

	return value, nil
}
