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

package api

import (
	"k8s.io/apimachinery/pkg/runtime"
)

// ErrorType is returned when a service broker error is encountered.
type ErrorType string

const (
	// ErrorAsyncRequired meand this request requires client support for asynchronous
	// service operations.
	ErrorAsyncRequired ErrorType = "AsyncRequired"

	// ErrorConcurrencyError means the Service Broker does not support concurrent
	// requests that mutate the same resource.
	ErrorConcurrencyError ErrorType = "ConcurrencyError"

	// ErrorInternalServerError means that something that shouldn't ever break has.
	ErrorInternalServerError ErrorType = "InternalServerError"

	// ErrorQueryError means that the user specified query is inavlid.
	ErrorQueryError ErrorType = "QueryError"

	// ErrorParameterError means that the user specified parameters are
	// invalid.
	ErrorParameterError ErrorType = "ParameterError"

	// ErrorResourceConflict means that an attempt to create a resource has resulted
	// in a conflict with an existing one.
	ErrorResourceConflict ErrorType = "ResourceConflict"

	// ErrorResourceNotFound means that an attempt has been made to access a resource
	// that does not extst.
	ErrorResourceNotFound ErrorType = "ResourceNotFound"

	// ErrorResourceGone means that a delete request has failed because the
	// requested resource does not exist.
	ErrorResourceGone ErrorType = "ResourceGone"
)

// PollState is returned when an asynchronous request is polled.
type PollState string

const (
	// PollStateInProgress means the async request is still being done.
	PollStateInProgress PollState = "in progress"

	// PollStateSucceeded means the async request completed successfully.
	PollStateSucceeded PollState = "succeeded"

	// PollStateFailed means the async request failed.
	PollStateFailed PollState = "failed"
)

// Terminal returns whether the poll state is one an operation may finish in.
func (s PollState) Terminal() bool {
	return s == PollStateSucceeded || s == PollStateFailed
}

// Error is the structured JSON response to send to a client on an error condition.
type Error struct {
	// A single word in camel case that uniquely identifies the error condition.
	// If present, MUST be a non-empty string.
	Error ErrorType `json:"error,omitempty"`

	// A user-facing error message explaining why the request failed.
	// If present, MUST be a non-empty string.
	Description string `json:"description,omitempty"`

	// If an update or deprovisioning operation failed, this flag indicates
	// whether or not the Service Instance is still usable.
	InstanceUsable *bool `json:"instance_usable,omitempty"`
}

// CreateServiceInstanceRequest is submitted by the client when creating a service instance.
type CreateServiceInstanceRequest struct {
	ServiceID        string                `json:"service_id"`
	PlanID           string                `json:"plan_id"`
	Context          *runtime.RawExtension `json:"context,omitempty"`
	OrganizationGUID string                `json:"organization_guid"`
	SpaceGUID        string                `json:"space_guid"`
	Parameters       *runtime.RawExtension `json:"parameters,omitempty"`
}

// CreateServiceInstanceResponse is returned by the server when creating a service instance.
type CreateServiceInstanceResponse struct {
	DashboardURL string `json:"dashboard_url,omitempty"`
	Operation    string `json:"operation,omitempty"`
}

// DeleteServiceInstanceResponse is returned by the server when deleting a service instance.
type DeleteServiceInstanceResponse struct {
	Operation string `json:"operation,omitempty"`
}

// PollServiceInstanceResponse is returned by the server when an operation is being polled.
type PollServiceInstanceResponse struct {
	State       PollState `json:"state"`
	Description string    `json:"description,omitempty"`
}

// CreateServiceBindingRequest is provided by the client when it wishes to bind to the service
// instance and get credentials.
type CreateServiceBindingRequest struct {
	Context      *runtime.RawExtension `json:"context,omitempty"`
	ServiceID    string                `json:"service_id"`
	PlanID       string                `json:"plan_id"`
	AppGUID      string                `json:"app_guid,omitempty"`
	BindResource *runtime.RawExtension `json:"bind_resource,omitempty"`
	Parameters   *runtime.RawExtension `json:"parameters,omitempty"`
}

// CreateServiceBindingResponse is returned to the client when a binding is created.
type CreateServiceBindingResponse struct {
	Credentials *runtime.RawExtension `json:"credentials,omitempty"`
	Operation   string                `json:"operation,omitempty"`
}
