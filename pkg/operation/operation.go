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

// Package operation models the asynchronous operations a broker reports via
// its last operation endpoint.  Operations follow a script of responses so
// that clients can be tested against any sequence of behaviour.
package operation

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/couchbase/service-broker-tests/pkg/api"

	"github.com/google/uuid"
)

// OperationKind is the type of operation being performed.
type OperationKind string

const (
	// OperationKindServiceInstanceCreate is used when a service instance is being created.
	OperationKindServiceInstanceCreate OperationKind = "serviceInstanceCreate"

	// OperationKindServiceInstanceDelete is used when a service instance is being deleted.
	OperationKindServiceInstanceDelete OperationKind = "serviceInstanceDelete"
)

// Step is a single response to a last operation poll.
type Step struct {
	// StatusCode is the HTTP status code to respond with.
	StatusCode int

	// Body is the raw response body.
	Body string
}

// State returns a step that reports an operation state.
func State(state api.PollState) Step {
	body, _ := json.Marshal(&api.PollServiceInstanceResponse{State: state})

	return Step{StatusCode: http.StatusOK, Body: string(body)}
}

// StateWithDescription returns a step that reports an operation state with a
// description.  Changing the description alone is a change in status.
func StateWithDescription(state api.PollState, description string) Step {
	body, _ := json.Marshal(&api.PollServiceInstanceResponse{State: state, Description: description})

	return Step{StatusCode: http.StatusOK, Body: string(body)}
}

// InProgress returns a step that reports the operation is ongoing.
func InProgress() Step {
	return State(api.PollStateInProgress)
}

// Succeeded returns a step that reports the operation succeeded.
func Succeeded() Step {
	return State(api.PollStateSucceeded)
}

// Failed returns a step that reports the operation failed.
func Failed() Step {
	return State(api.PollStateFailed)
}

// Encoded returns a step that reports an object encoded as a JSON string.
func Encoded(object map[string]interface{}) Step {
	inner, _ := json.Marshal(object)
	body, _ := json.Marshal(string(inner))

	return Step{StatusCode: http.StatusOK, Body: string(body)}
}

// Raw returns a step with a verbatim body.
func Raw(body string) Step {
	return Step{StatusCode: http.StatusOK, Body: body}
}

// NotFound returns a step that reports the broker has no operation.
func NotFound() Step {
	return Step{StatusCode: http.StatusNotFound, Body: `{}`}
}

// Gone returns a step that reports the instance no longer exists.
func Gone() Step {
	return Step{StatusCode: http.StatusGone, Body: `{}`}
}

// Operation represents an asyncronous operation.
type Operation struct {
	// Kind is the type of operation being performed.
	Kind OperationKind

	// ID is a unique identifier for the operation.
	ID string

	// lock guards the script position, polls may come from many clients.
	lock sync.Mutex

	// steps are replayed in order, the last is repeated forever.
	steps []Step

	// polls is the number of times the operation has been polled.
	polls int
}

// New creates a new aysnchronous operation that will follow the provided script.
// An empty script is in progress when first polled, then succeeds.
func New(kind OperationKind, steps ...Step) *Operation {
	if len(steps) == 0 {
		steps = []Step{InProgress(), Succeeded()}
	}

	return &Operation{
		Kind:  kind,
		ID:    uuid.New().String(),
		steps: steps,
	}
}

// Next returns the next step in the script.
func (o *Operation) Next() Step {
	o.lock.Lock()
	defer o.lock.Unlock()

	index := o.polls
	if last := len(o.steps) - 1; index > last {
		index = last
	}

	o.polls++

	return o.steps[index]
}

// Polls returns how many times the operation has been polled.
func (o *Operation) Polls() int {
	o.lock.Lock()
	defer o.lock.Unlock()

	return o.polls
}
