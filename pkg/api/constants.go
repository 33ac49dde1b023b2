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

const (
	// HeaderAPIVersion is the header used to negotiate the Open Service Broker API version.
	// https://github.com/openservicebrokerapi/servicebroker/blob/master/spec.md#api-version-header
	HeaderAPIVersion = "X-Broker-API-Version"

	// HeaderAuthToken is used by the application catalog API for token authentication.
	HeaderAuthToken = "X-Auth-Token"

	// DefaultAPIVersion is the Open Service Broker API version requested by clients
	// unless otherwise configured.
	DefaultAPIVersion = "2.13"

	// MinAPIVersion is the oldest API version the fake broker will accept.
	MinAPIVersion = 2.13

	// QueryAcceptsIncomplete tells the broker the client supports asynchronous operations.
	QueryAcceptsIncomplete = "accepts_incomplete"

	// QueryServiceID is the service ID query parameter.
	QueryServiceID = "service_id"

	// QueryPlanID is the plan ID query parameter.
	QueryPlanID = "plan_id"

	// QueryOperation is the operation ID query parameter.
	QueryOperation = "operation"
)
