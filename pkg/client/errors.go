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
	"encoding/json"
	"fmt"

	"github.com/couchbase/service-broker-tests/pkg/api"

	"github.com/go-resty/resty/v2"
)

// HTTPStatusError is returned when an API call responds with an unexpected status
// code.
type HTTPStatusError struct {
	// Method is the HTTP method of the request.
	Method string

	// URL is the request URL.
	URL string

	// StatusCode is the status code returned by the server.
	StatusCode int

	// Body is the raw response body.
	Body []byte

	// APIError is the decoded error body, if the server returned one.
	APIError *api.Error
}

func newHTTPStatusError(response *resty.Response) error {
	err := &HTTPStatusError{
		Method:     response.Request.Method,
		URL:        response.Request.URL,
		StatusCode: response.StatusCode(),
		Body:       response.Body(),
	}

	apiError := &api.Error{}
	if json.Unmarshal(err.Body, apiError) == nil && (apiError.Error != "" || apiError.Description != "") {
		err.APIError = apiError
	}

	return err
}

// Error returns the error string.
func (e *HTTPStatusError) Error() string {
	if e.APIError != nil {
		return fmt.Sprintf("%s %s: unexpected status code %d: %s: %s", e.Method, e.URL, e.StatusCode, e.APIError.Error, e.APIError.Description)
	}

	return fmt.Sprintf("%s %s: unexpected status code %d", e.Method, e.URL, e.StatusCode)
}

// IsHTTPStatusError returns whether an error is a HTTP status error, and if so
// the error.
func IsHTTPStatusError(err error) (*HTTPStatusError, bool) {
	e, ok := err.(*HTTPStatusError)

	return e, ok
}

// IsHTTPStatus returns whether an error is a HTTP status error with the
// given status code.
func IsHTTPStatus(err error, code int) bool {
	e, ok := IsHTTPStatusError(err)

	return ok && e.StatusCode == code
}
