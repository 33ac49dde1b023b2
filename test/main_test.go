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

package test

import (
	"flag"
	"fmt"
	"io/ioutil"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/couchbase/service-broker-tests/pkg/broker"
	"github.com/couchbase/service-broker-tests/pkg/config"
	pkgutil "github.com/couchbase/service-broker-tests/pkg/util"
	"github.com/couchbase/service-broker-tests/test/util"
)

var (
	// fakeBroker is shared by all tests, they should reset it before use.
	fakeBroker *broker.Broker

	// endpoint is where the broker is listening.
	endpoint string

	// caCertificate is the PEM encoded CA that signed the broker certificate.
	caCertificate []byte

	// defaultConfig is a configuration that enables everything, tests must
	// patch rather than modify it.
	defaultConfig *config.Config
)

// mustResetBroker forgets all broker state.
func mustResetBroker(t *testing.T) {
	t.Helper()

	fakeBroker.Reset()
}

// setup creates the broker and configuration, returning a function to
// clean up afterwards.
func setup() (func(), error) {
	material, err := pkgutil.GenerateLocalTLS()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize TLS: %w", err)
	}

	dir, err := ioutil.TempDir("", "service-broker-tests")
	if err != nil {
		return nil, err
	}

	cleanup := func() {
		os.RemoveAll(dir)
	}

	caFile := filepath.Join(dir, "ca.pem")
	if err := ioutil.WriteFile(caFile, material.CA, 0600); err != nil {
		cleanup()
		return nil, err
	}

	caCertificate = material.CA

	fakeBroker = broker.New(broker.Options{
		Username: util.Username,
		Password: util.Password,
		Token:    util.Token,
	})

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		cleanup()
		return nil, err
	}

	server := broker.NewServer(fakeBroker, material.Certificate)

	go func() {
		_ = server.ServeTLS(listener, "", "")
	}()

	address := listener.Addr().String()

	if err := pkgutil.WaitFor(util.ServerRunning(address), time.Minute); err != nil {
		cleanup()
		return nil, fmt.Errorf("failed to wait for service broker listening: %w", err)
	}

	endpoint = "https://" + address

	if defaultConfig, err = util.DefaultConfig(endpoint, caFile); err != nil {
		cleanup()
		return nil, err
	}

	return func() {
		server.Close()
		cleanup()
	}, nil
}

// TestMain creates, initializes and starts the service broker locally.
func TestMain(m *testing.M) {
	flag.Parse()

	cleanup, err := setup()
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}

	code := m.Run()

	cleanup()

	os.Exit(code)
}
