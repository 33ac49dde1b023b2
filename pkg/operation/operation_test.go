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

package operation

import (
	"net/http"
	"testing"

	"github.com/couchbase/service-broker-tests/pkg/api"
	"github.com/couchbase/service-broker-tests/pkg/status"
)

// TestOperationScript tests steps are replayed in order and the last repeats.
func TestOperationScript(t *testing.T) {
	op := New(OperationKindServiceInstanceCreate, InProgress(), Failed())

	expected := []api.PollState{
		api.PollStateInProgress,
		api.PollStateFailed,
		api.PollStateFailed,
	}

	for index, state := range expected {
		step := op.Next()

		s, err := status.Decode([]byte(step.Body))
		if err != nil {
			t.Fatal(err)
		}

		if s.State() != state {
			t.Fatalf("poll %d: expected %q, got %q", index, state, s.State())
		}
	}

	if op.Polls() != len(expected) {
		t.Fatalf("expected %d polls, got %d", len(expected), op.Polls())
	}
}

// TestOperationDefault tests an operation without a script succeeds after
// being in progress.
func TestOperationDefault(t *testing.T) {
	op := New(OperationKindServiceInstanceDelete)

	for _, expected := range []api.PollState{api.PollStateInProgress, api.PollStateSucceeded, api.PollStateSucceeded} {
		s, err := status.Decode([]byte(op.Next().Body))
		if err != nil {
			t.Fatal(err)
		}

		if s.State() != expected {
			t.Fatalf("expected %q, got %q", expected, s.State())
		}
	}

	if op.ID == "" {
		t.Fatalf("operation has no ID")
	}
}

// TestEncodedStep tests encoded steps decode to a raw payload.
func TestEncodedStep(t *testing.T) {
	step := Encoded(map[string]interface{}{"environment": "failed"})

	if step.StatusCode != http.StatusOK {
		t.Fatalf("unexpected status code %d", step.StatusCode)
	}

	s, err := status.Decode([]byte(step.Body))
	if err != nil {
		t.Fatal(err)
	}

	if s.Kind() != status.KindRawEncoded || s.Payload()["environment"] != "failed" {
		t.Fatalf("unexpected status %v", s)
	}
}
