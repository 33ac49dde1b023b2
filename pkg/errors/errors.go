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

package errors

import (
	"fmt"
)

// skipError errors are raised when a test cannot run in the current environment
// e.g. a feature is disabled or credentials are missing.  These are not failures.
type skipError struct {
	message string
}

// NewSkipError returns a new skip error formatted like fmt.Errorf.
func NewSkipError(message string, arguments ...interface{}) error {
	return &skipError{message: fmt.Sprintf(message, arguments...)}
}

// IsSkipError returns whether an error is a skip error.
func IsSkipError(err error) bool {
	if _, ok := err.(*skipError); !ok {
		return false
	}
	return true
}

// Error returns the skip error string.
func (e *skipError) Error() string {
	return e.message
}

// configurationError errors are raised when the configuration is incorrect e.g. the
// test administrator has made a mistake.  An example could be a missing endpoint.
type configurationError struct {
	message string
}

// NewConfigurationError returns a new configuration error formatted like fmt.Errorf.
func NewConfigurationError(message string, arguments ...interface{}) error {
	return &configurationError{message: fmt.Sprintf(message, arguments...)}
}

// IsConfigurationError returns whether an error is a configuration error.
func IsConfigurationError(err error) bool {
	if _, ok := err.(*configurationError); !ok {
		return false
	}
	return true
}

// Error returns the configuration error string.
func (e *configurationError) Error() string {
	return e.message
}

// timeoutError errors are raised when an asynchronous operation's status did not
// change within the allotted time.
type timeoutError struct {
	message string
}

// NewTimeoutError returns a new timeout error formatted like fmt.Errorf.
func NewTimeoutError(message string, arguments ...interface{}) error {
	return &timeoutError{message: fmt.Sprintf(message, arguments...)}
}

// IsTimeoutError returns whether an error is a timeout error.
func IsTimeoutError(err error) bool {
	if _, ok := err.(*timeoutError); !ok {
		return false
	}
	return true
}

// Error returns the timeout error string.
func (e *timeoutError) Error() string {
	return e.message
}

// operationNotFoundError errors are raised when the broker reports no operation
// for an instance at the point we start waiting on it.
type operationNotFoundError struct {
	message string
}

// NewOperationNotFoundError returns a new operation not found error formatted like fmt.Errorf.
func NewOperationNotFoundError(message string, arguments ...interface{}) error {
	return &operationNotFoundError{message: fmt.Sprintf(message, arguments...)}
}

// IsOperationNotFoundError returns whether an error is an operation not found error.
func IsOperationNotFoundError(err error) bool {
	if _, ok := err.(*operationNotFoundError); !ok {
		return false
	}
	return true
}

// Error returns the operation not found error string.
func (e *operationNotFoundError) Error() string {
	return e.message
}

// unexpectedStateError errors are raised when an operation finishes in a state
// other than succeeded or failed.
type unexpectedStateError struct {
	message string
}

// NewUnexpectedStateError returns a new unexpected state error formatted like fmt.Errorf.
func NewUnexpectedStateError(message string, arguments ...interface{}) error {
	return &unexpectedStateError{message: fmt.Sprintf(message, arguments...)}
}

// IsUnexpectedStateError returns whether an error is an unexpected state error.
func IsUnexpectedStateError(err error) bool {
	if _, ok := err.(*unexpectedStateError); !ok {
		return false
	}
	return true
}

// Error returns the unexpected state error string.
func (e *unexpectedStateError) Error() string {
	return e.message
}

// unexpectedResultError errors are raised when an operation finishes, but not
// with the result the caller required e.g. a deprovision that failed.
type unexpectedResultError struct {
	message string
}

// NewUnexpectedResultError returns a new unexpected result error formatted like fmt.Errorf.
func NewUnexpectedResultError(message string, arguments ...interface{}) error {
	return &unexpectedResultError{message: fmt.Sprintf(message, arguments...)}
}

// IsUnexpectedResultError returns whether an error is an unexpected result error.
func IsUnexpectedResultError(err error) bool {
	if _, ok := err.(*unexpectedResultError); !ok {
		return false
	}
	return true
}

// Error returns the unexpected result error string.
func (e *unexpectedResultError) Error() string {
	return e.message
}

// malformedStatusError errors are raised when a status payload cannot be decoded
// into any of the known shapes.
type malformedStatusError struct {
	message string
}

// NewMalformedStatusError returns a new malformed status error formatted like fmt.Errorf.
func NewMalformedStatusError(message string, arguments ...interface{}) error {
	return &malformedStatusError{message: fmt.Sprintf(message, arguments...)}
}

// IsMalformedStatusError returns whether an error is a malformed status error.
func IsMalformedStatusError(err error) bool {
	if _, ok := err.(*malformedStatusError); !ok {
		return false
	}
	return true
}

// Error returns the malformed status error string.
func (e *malformedStatusError) Error() string {
	return e.message
}
