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

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/couchbase/service-broker-tests/pkg/client"
	"github.com/couchbase/service-broker-tests/pkg/config"
	"github.com/couchbase/service-broker-tests/pkg/credentials"
	"github.com/couchbase/service-broker-tests/pkg/poller"
	"github.com/couchbase/service-broker-tests/pkg/version"

	"github.com/golang/glog"
)

const (
	// errorCode is what to return on application error.
	errorCode = 1
)

// ErrFatal is raised when the command cannot run.
var ErrFatal = errors.New("fatal error")

// run loads configuration, then waits for or deprovisions the instance.
func run(configPath, instanceID string, role credentials.Role, timeout time.Duration, deprovision bool) error {
	if instanceID == "" {
		return fmt.Errorf("%w: instance ID must be set", ErrFatal)
	}

	var c *config.Config

	var err error

	if configPath != "" {
		c, err = config.Load(configPath)
	} else {
		c, err = config.LoadFromEnv()
	}

	if err != nil {
		return err
	}

	if err := c.Validate(); err != nil {
		return err
	}

	provider, err := credentials.NewProvider(c, version.Application, false, c.Identity.AuthVersion)
	if err != nil {
		return err
	}

	creds, err := credentials.ForRole(provider, role)
	if err != nil {
		return err
	}

	clients, err := client.NewManager(c, creds)
	if err != nil {
		return err
	}

	if clients.ServiceBroker() == nil {
		return fmt.Errorf("%w: service broker endpoint must be set", ErrFatal)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if deprovision {
		if err := poller.PerformDeprovision(ctx, clients.ServiceBroker(), instanceID); err != nil {
			return err
		}

		fmt.Printf("instance %s deprovisioned\n", instanceID)

		return nil
	}

	result, err := poller.WaitForResult(ctx, clients.ServiceBroker(), instanceID, timeout)
	if err != nil {
		return err
	}

	fmt.Printf("instance %s: %v\n", instanceID, result)

	if !result.Succeeded() {
		return fmt.Errorf("%w: instance %s operation did not succeed", ErrFatal, instanceID)
	}

	return nil
}

func main() {
	// configPath is the configuration file, if not set it's read from the environment.
	var configPath string

	// instanceID is the service instance to operate on.
	var instanceID string

	// role is the account to authenticate as.
	var role string

	// timeout is how long to wait for the status to change.
	var timeout time.Duration

	// deprovision deletes the instance before waiting.
	var deprovision bool

	flag.StringVar(&configPath, "config", "", "Configuration file, defaults to $"+config.EnvironmentVariable)
	flag.StringVar(&instanceID, "instance", "", "Service instance ID")
	flag.StringVar(&role, "role", string(credentials.Primary), "Credentials role to authenticate as")
	flag.DurationVar(&timeout, "timeout", 5*time.Minute, "Time to wait for the status to change")
	flag.BoolVar(&deprovision, "deprovision", false, "Deprovision the instance and wait for it to be deleted")
	flag.Parse()

	glog.Infof("%s %s (git commit %s)", version.Application, version.Version, version.GitCommit)

	if err := run(configPath, instanceID, credentials.Role(role), timeout, deprovision); err != nil {
		glog.Error(err)
		glog.Flush()
		os.Exit(errorCode)
	}

	glog.Flush()
}
