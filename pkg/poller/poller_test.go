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

package poller

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/couchbase/service-broker-tests/pkg/api"
	"github.com/couchbase/service-broker-tests/pkg/errors"
	"github.com/couchbase/service-broker-tests/pkg/status"
)

const (
	// testInstanceID is the instance used by all tests.
	testInstanceID = "pinkiepie"

	// testInterval keeps tests fast.
	testInterval = 10 * time.Millisecond
)

// scriptedClient replays a list of raw payloads, repeating the last one forever.
type scriptedClient struct {
	lock         sync.Mutex
	script       []string
	queries      int
	deprovisions int

	// queriesAtDeprovision records how many status queries preceded the deprovision.
	queriesAtDeprovision int

	err error
}

func newScriptedClient(script ...string) *scriptedClient {
	return &scriptedClient{script: script}
}

func (c *scriptedClient) GetLastStatus(_ context.Context, instanceID string) (status.Status, error) {
	c.lock.Lock()
	defer c.lock.Unlock()

	if instanceID != testInstanceID {
		return status.Status{}, fmt.Errorf("unexpected instance %s", instanceID)
	}

	index := c.queries
	if index >= len(c.script) {
		index = len(c.script) - 1
	}

	c.queries++

	return status.Decode([]byte(c.script[index]))
}

func (c *scriptedClient) Deprovision(_ context.Context, instanceID string) error {
	c.lock.Lock()
	defer c.lock.Unlock()

	c.deprovisions++
	c.queriesAtDeprovision = c.queries

	return c.err
}

func mustWaitForResult(t *testing.T, client StatusGetter, timeout time.Duration) *Result {
	t.Helper()

	p := &Poller{Interval: testInterval}

	result, err := p.WaitForResult(context.Background(), client, testInstanceID, timeout)
	if err != nil {
		t.Fatal(err)
	}

	return result
}

// TestWaitForResultSucceeded tests a transition to succeeded is returned.
func TestWaitForResultSucceeded(t *testing.T) {
	client := newScriptedClient(`{"state":"in progress"}`, `{"state":"in progress"}`, `{"state":"succeeded"}`)

	result := mustWaitForResult(t, client, time.Minute)
	if result.State != api.PollStateSucceeded || !result.Succeeded() {
		t.Fatalf("expected %q, got %v", api.PollStateSucceeded, result)
	}
}

// TestWaitForResultFailed tests a transition to failed is returned, and is not
// an error in itself.
func TestWaitForResultFailed(t *testing.T) {
	client := newScriptedClient(`{"state":"in progress"}`, `{"state":"failed","description":"heat stack failed"}`)

	result := mustWaitForResult(t, client, time.Minute)
	if result.State != api.PollStateFailed || result.Succeeded() {
		t.Fatalf("expected %q, got %v", api.PollStateFailed, result)
	}
}

// TestWaitForResultUnexpectedState tests a transition to a non-terminal state is
// an error.
func TestWaitForResultUnexpectedState(t *testing.T) {
	for _, state := range []string{"pending", "in progress", "deleted"} {
		client := newScriptedClient(`{"state":"unknown"}`, `{"state":"`+state+`"}`)

		p := &Poller{Interval: testInterval}
		if _, err := p.WaitForResult(context.Background(), client, testInstanceID, time.Minute); !errors.IsUnexpectedStateError(err) {
			t.Fatalf("%s: expected unexpected state error, got %v", state, err)
		}
	}
}

// TestWaitForResultRawEncoded tests an encoded object without a state is returned
// verbatim.
func TestWaitForResultRawEncoded(t *testing.T) {
	client := newScriptedClient(`{"state":"in progress"}`, `"{\"error\":\"quota exceeded\"}"`)

	result := mustWaitForResult(t, client, time.Minute)
	if result.Payload == nil || result.Payload["error"] != "quota exceeded" {
		t.Fatalf("expected raw payload, got %v", result)
	}

	if result.Succeeded() {
		t.Fatalf("raw payload reported success")
	}
}

// TestWaitForResultRawEncodedWithState tests an encoded object carrying a state
// is interpreted as a structured status, not returned as a payload.
func TestWaitForResultRawEncodedWithState(t *testing.T) {
	client := newScriptedClient(`{"state":"in progress"}`, `"{\"state\":\"succeeded\",\"x\":1}"`)

	result := mustWaitForResult(t, client, time.Minute)
	if result.State != api.PollStateSucceeded || result.Payload != nil {
		t.Fatalf("expected structured %q, got %v", api.PollStateSucceeded, result)
	}
}

// TestWaitForResultRawEncodedWithNonTerminalState tests an encoded object with a
// non-terminal state is subject to the same checks as a structured status.
func TestWaitForResultRawEncodedWithNonTerminalState(t *testing.T) {
	client := newScriptedClient(`{"state":"in progress"}`, `"{\"state\":\"pending\",\"x\":1}"`)

	p := &Poller{Interval: testInterval}
	if _, err := p.WaitForResult(context.Background(), client, testInstanceID, time.Minute); !errors.IsUnexpectedStateError(err) {
		t.Fatalf("expected unexpected state error, got %v", err)
	}
}

// TestWaitForResultMalformed tests an undecodable status propagates a malformed
// status error.
func TestWaitForResultMalformed(t *testing.T) {
	client := newScriptedClient(`{"state":"in progress"}`, `"[1,2]"`)

	p := &Poller{Interval: testInterval}
	if _, err := p.WaitForResult(context.Background(), client, testInstanceID, time.Minute); !errors.IsMalformedStatusError(err) {
		t.Fatalf("expected malformed status error, got %v", err)
	}
}

// TestWaitForResultBecomesEmpty tests a status disappearing is an error.
func TestWaitForResultBecomesEmpty(t *testing.T) {
	client := newScriptedClient(`{"state":"in progress"}`, `{}`)

	p := &Poller{Interval: testInterval}
	if _, err := p.WaitForResult(context.Background(), client, testInstanceID, time.Minute); !errors.IsMalformedStatusError(err) {
		t.Fatalf("expected malformed status error, got %v", err)
	}
}

// TestWaitForResultInitiallyEmpty tests there is nothing to wait for when no
// operation is known, and that we don't poll any further.
func TestWaitForResultInitiallyEmpty(t *testing.T) {
	client := newScriptedClient(``, `{"state":"succeeded"}`)

	p := &Poller{Interval: testInterval}
	if _, err := p.WaitForResult(context.Background(), client, testInstanceID, time.Minute); !errors.IsOperationNotFoundError(err) {
		t.Fatalf("expected operation not found error, got %v", err)
	}

	if client.queries != 1 {
		t.Fatalf("expected 1 status query, got %d", client.queries)
	}
}

// TestWaitForResultInitiallyFalsy tests falsy statuses are treated as no
// operation at all.
func TestWaitForResultInitiallyFalsy(t *testing.T) {
	for _, raw := range []string{`[]`, `0`, `false`} {
		client := newScriptedClient(raw, `{"state":"succeeded"}`)

		p := &Poller{Interval: testInterval}
		if _, err := p.WaitForResult(context.Background(), client, testInstanceID, time.Minute); !errors.IsOperationNotFoundError(err) {
			t.Fatalf("%s: expected operation not found error, got %v", raw, err)
		}
	}
}

// TestWaitForResultTimeout tests an unchanging status times out no earlier than
// the timeout and no later than one interval after it.
func TestWaitForResultTimeout(t *testing.T) {
	timeout := 200 * time.Millisecond
	interval := 50 * time.Millisecond
	slack := 250 * time.Millisecond

	client := newScriptedClient(`{"state":"in progress"}`)

	p := &Poller{Interval: interval}

	start := time.Now()

	_, err := p.WaitForResult(context.Background(), client, testInstanceID, timeout)

	elapsed := time.Since(start)

	if !errors.IsTimeoutError(err) {
		t.Fatalf("expected timeout error, got %v", err)
	}

	if elapsed < timeout {
		t.Fatalf("timed out early after %v", elapsed)
	}

	if elapsed > timeout+interval+slack {
		t.Fatalf("timed out late after %v", elapsed)
	}
}

// TestWaitForResultCancelled tests the context aborts a wait.
func TestWaitForResultCancelled(t *testing.T) {
	client := newScriptedClient(`{"state":"in progress"}`)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	p := &Poller{Interval: testInterval}
	if _, err := p.WaitForResult(ctx, client, testInstanceID, time.Minute); err != context.DeadlineExceeded {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

// TestPerformDeprovision tests deprovision is called once, before polling, and
// succeeds when the operation does.
func TestPerformDeprovision(t *testing.T) {
	client := newScriptedClient(`{"state":"in progress"}`, `{"state":"in progress"}`, `{"state":"succeeded"}`)

	p := &Poller{Interval: testInterval}
	if err := p.PerformDeprovision(context.Background(), client, testInstanceID); err != nil {
		t.Fatal(err)
	}

	if client.deprovisions != 1 {
		t.Fatalf("expected 1 deprovision, got %d", client.deprovisions)
	}

	if client.queriesAtDeprovision != 0 {
		t.Fatalf("expected deprovision before polling, got %d queries first", client.queriesAtDeprovision)
	}
}

// TestPerformDeprovisionFailed tests a failed deprovision is an error.
func TestPerformDeprovisionFailed(t *testing.T) {
	client := newScriptedClient(`{"state":"in progress"}`, `{"state":"failed"}`)

	p := &Poller{Interval: testInterval}
	if err := p.PerformDeprovision(context.Background(), client, testInstanceID); !errors.IsUnexpectedResultError(err) {
		t.Fatalf("expected unexpected result error, got %v", err)
	}
}

// TestPerformDeprovisionRawPayload tests a raw payload is not success.
func TestPerformDeprovisionRawPayload(t *testing.T) {
	client := newScriptedClient(`{"state":"in progress"}`, `"{\"state_name\":\"deleted\"}"`)

	p := &Poller{Interval: testInterval}
	if err := p.PerformDeprovision(context.Background(), client, testInstanceID); !errors.IsUnexpectedResultError(err) {
		t.Fatalf("expected unexpected result error, got %v", err)
	}
}

// TestPerformDeprovisionError tests a deprovision request error is returned without
// polling.
func TestPerformDeprovisionError(t *testing.T) {
	client := newScriptedClient(`{"state":"in progress"}`)
	client.err = fmt.Errorf("connection refused")

	p := &Poller{Interval: testInterval}
	if err := p.PerformDeprovision(context.Background(), client, testInstanceID); err != client.err {
		t.Fatalf("expected deprovision error, got %v", err)
	}

	if client.queries != 0 {
		t.Fatalf("expected no status queries, got %d", client.queries)
	}
}
