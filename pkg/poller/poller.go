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

// Package poller waits for asynchronous service broker operations to complete.
package poller

import (
	"context"
	"fmt"
	"time"

	"github.com/couchbase/service-broker-tests/pkg/api"
	"github.com/couchbase/service-broker-tests/pkg/errors"
	"github.com/couchbase/service-broker-tests/pkg/log"
	"github.com/couchbase/service-broker-tests/pkg/status"

	"github.com/golang/glog"
)

const (
	// DefaultInterval is how long to wait between status queries.
	DefaultInterval = 2 * time.Second

	// DeprovisionTimeout is how long a deprovision has to report a change
	// in status.
	DeprovisionTimeout = 30 * time.Second
)

// StatusGetter queries the last operation status of an instance.
type StatusGetter interface {
	GetLastStatus(ctx context.Context, instanceID string) (status.Status, error)
}

// Deprovisioner can delete an instance and query its status.
type Deprovisioner interface {
	StatusGetter

	Deprovision(ctx context.Context, instanceID string) error
}

// Result is the outcome of a wait.  Either State is set to a terminal state,
// or Payload is set to the object the broker returned in place of one.
type Result struct {
	// State is the terminal state of the operation.
	State api.PollState

	// Payload is the decoded object when the broker returned an encoded
	// object without a state.
	Payload map[string]interface{}
}

// Succeeded returns whether the operation completed successfully.
func (r *Result) Succeeded() bool {
	return r.Payload == nil && r.State == api.PollStateSucceeded
}

// String returns a human readable result.
func (r *Result) String() string {
	if r.Payload != nil {
		return fmt.Sprintf("payload %v", r.Payload)
	}

	return string(r.State)
}

// Poller waits for operations.  The zero value is ready to use.
type Poller struct {
	// Interval overrides DefaultInterval.
	Interval time.Duration
}

func (p *Poller) interval() time.Duration {
	if p.Interval > 0 {
		return p.Interval
	}

	return DefaultInterval
}

// WaitForResult waits for the status of an instance to change from the first
// one observed.  The new status must be terminal, or an encoded object which
// is returned as is.  If the status doesn't change within the timeout a timeout
// error is returned.  If there is no status to begin with an operation not found
// error is returned, there is nothing to wait for.
func (p *Poller) WaitForResult(ctx context.Context, client StatusGetter, instanceID string, timeout time.Duration) (*Result, error) {
	start := time.Now()

	initial, err := client.GetLastStatus(ctx, instanceID)
	if err != nil {
		return nil, err
	}

	if initial.IsEmpty() {
		return nil, errors.NewOperationNotFoundError("no operation found for instance %s", instanceID)
	}

	glog.V(log.LevelDebug).Infof("waiting for instance %s to leave status %v", instanceID, initial)

	tick := time.NewTicker(p.interval())
	defer tick.Stop()

	for {
		current, err := client.GetLastStatus(ctx, instanceID)
		if err != nil {
			return nil, err
		}

		if !current.Equal(initial) {
			glog.V(log.LevelDebug).Infof("instance %s status changed to %v after %v", instanceID, current, time.Since(start))

			return resultFromStatus(instanceID, current)
		}

		if elapsed := time.Since(start); elapsed > timeout {
			return nil, errors.NewTimeoutError("instance %s status %v unchanged after %v", instanceID, current, elapsed)
		}

		select {
		case <-tick.C:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// resultFromStatus interprets a changed status.
func resultFromStatus(instanceID string, s status.Status) (*Result, error) {
	switch s.Kind() {
	case status.KindStructured:
		if !s.State().Terminal() {
			return nil, errors.NewUnexpectedStateError("instance %s operation in unexpected state %q, expected %q or %q", instanceID, s.State(), api.PollStateSucceeded, api.PollStateFailed)
		}

		return &Result{State: s.State()}, nil
	case status.KindRawEncoded:
		return &Result{Payload: s.Payload()}, nil
	}

	return nil, errors.NewMalformedStatusError("instance %s status changed to %v", instanceID, s)
}

// PerformDeprovision deletes an instance and waits for the operation to succeed.
func (p *Poller) PerformDeprovision(ctx context.Context, client Deprovisioner, instanceID string) error {
	if err := client.Deprovision(ctx, instanceID); err != nil {
		return err
	}

	result, err := p.WaitForResult(ctx, client, instanceID, DeprovisionTimeout)
	if err != nil {
		return err
	}

	if !result.Succeeded() {
		return errors.NewUnexpectedResultError("deprovision of instance %s finished with %v, expected %s", instanceID, result, api.PollStateSucceeded)
	}

	return nil
}

// defaultPoller is used by the package level helpers.
var defaultPoller = &Poller{}

// WaitForResult waits for an instance's status to change using the default interval.
func WaitForResult(ctx context.Context, client StatusGetter, instanceID string, timeout time.Duration) (*Result, error) {
	return defaultPoller.WaitForResult(ctx, client, instanceID, timeout)
}

// PerformDeprovision deletes an instance and waits for it using the default interval.
func PerformDeprovision(ctx context.Context, client Deprovisioner, instanceID string) error {
	return defaultPoller.PerformDeprovision(ctx, client, instanceID)
}
