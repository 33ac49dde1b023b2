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

// Package status decodes the last operation payloads returned by a service
// broker.  Brokers in the wild are not consistent: they may return nothing at
// all, a JSON object with a state, or a JSON string that itself encodes an
// object.  Decode resolves all of these into a single tagged type.
package status

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/couchbase/service-broker-tests/pkg/api"
	"github.com/couchbase/service-broker-tests/pkg/errors"

	"github.com/go-openapi/jsonpointer"
)

// Kind is the shape of a decoded status.
type Kind int

const (
	// KindEmpty means the broker has no operation for the instance.
	KindEmpty Kind = iota

	// KindStructured means the broker returned an object with a state.
	KindStructured

	// KindRawEncoded means the broker returned a string encoding an object
	// with no state.
	KindRawEncoded
)

// String returns a human readable kind.
func (k Kind) String() string {
	switch k {
	case KindEmpty:
		return "empty"
	case KindStructured:
		return "structured"
	case KindRawEncoded:
		return "raw encoded"
	}

	return fmt.Sprintf("kind(%d)", int(k))
}

// statePointer locates the state within a status object.
var statePointer = mustPointer("/state")

func mustPointer(path string) jsonpointer.Pointer {
	pointer, err := jsonpointer.New(path)
	if err != nil {
		panic(err)
	}

	return pointer
}

// Status is a decoded last operation payload.
type Status struct {
	kind   Kind
	state  api.PollState
	object map[string]interface{}
}

// Empty returns a status indicating no operation is known.
func Empty() Status {
	return Status{}
}

// Structured returns a status with the given state and no other attributes.
func Structured(state api.PollState) Status {
	return Status{
		kind:  KindStructured,
		state: state,
		object: map[string]interface{}{
			"state": string(state),
		},
	}
}

// Decode resolves raw bytes into a status.  Any shape that is not understood
// results in a malformed status error.
func Decode(raw []byte) (Status, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return Empty(), nil
	}

	var value interface{}
	if err := json.Unmarshal(trimmed, &value); err != nil {
		return Status{}, errors.NewMalformedStatusError("status is not valid JSON: %v", err)
	}

	return fromValue(value, false)
}

// fromValue converts a generic JSON value into a status.  The encoded flag is
// set when the value was extracted from a JSON string, in which case it may
// only be an object.
func fromValue(value interface{}, encoded bool) (Status, error) {
	switch v := value.(type) {
	case nil:
		if encoded {
			return Status{}, errors.NewMalformedStatusError("encoded status is null")
		}

		return Empty(), nil
	case map[string]interface{}:
		state, ok, err := lookupState(v)
		if err != nil {
			return Status{}, err
		}

		if ok {
			return Status{kind: KindStructured, state: state, object: v}, nil
		}

		if encoded {
			return Status{kind: KindRawEncoded, object: v}, nil
		}

		// An empty object is as good as no object.
		if len(v) == 0 {
			return Empty(), nil
		}

		return Status{}, errors.NewMalformedStatusError("status object has no state attribute")
	case string:
		if encoded {
			return Status{}, errors.NewMalformedStatusError("status is encoded more than once")
		}

		if v == "" {
			return Empty(), nil
		}

		var inner interface{}
		if err := json.Unmarshal([]byte(v), &inner); err != nil {
			return Status{}, errors.NewMalformedStatusError("encoded status is not valid JSON: %v", err)
		}

		return fromValue(inner, true)
	case []interface{}:
		// Falsy top level values are treated like an empty object.
		if !encoded && len(v) == 0 {
			return Empty(), nil
		}
	case bool:
		if !encoded && !v {
			return Empty(), nil
		}
	case float64:
		if !encoded && v == 0 {
			return Empty(), nil
		}
	}

	return Status{}, errors.NewMalformedStatusError("status has unexpected type %T", value)
}

// lookupState returns the state attribute of an object if it exists.
func lookupState(object map[string]interface{}) (api.PollState, bool, error) {
	v, _, err := statePointer.Get(object)
	if err != nil {
		return "", false, nil
	}

	state, ok := v.(string)
	if !ok {
		return "", false, errors.NewMalformedStatusError("status state has unexpected type %T", v)
	}

	return api.PollState(state), true, nil
}

// Kind returns the shape of the status.
func (s Status) Kind() Kind {
	return s.kind
}

// IsEmpty returns whether the broker has no operation for the instance.
func (s Status) IsEmpty() bool {
	return s.kind == KindEmpty
}

// State returns the operation state, only valid for structured statuses.
func (s Status) State() api.PollState {
	return s.state
}

// Payload returns the decoded object for raw encoded statuses.
func (s Status) Payload() map[string]interface{} {
	if s.kind != KindRawEncoded {
		return nil
	}

	return s.object
}

// Description returns the optional description of a structured status.
func (s Status) Description() string {
	if s.kind != KindStructured {
		return ""
	}

	description, _ := s.object["description"].(string)

	return description
}

// Equal compares the decoded content of two statuses.
func (s Status) Equal(o Status) bool {
	if s.kind != o.kind {
		return false
	}

	if s.kind == KindEmpty {
		return true
	}

	return reflect.DeepEqual(s.object, o.object)
}

// String returns a human readable status.
func (s Status) String() string {
	switch s.kind {
	case KindEmpty:
		return "<empty>"
	case KindStructured:
		return string(s.state)
	}

	data, err := json.Marshal(s.object)
	if err != nil {
		return fmt.Sprintf("%v", s.object)
	}

	return string(data)
}
