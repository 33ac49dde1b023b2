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

// Package test provides end-to-end testing of the service broker test fixtures.
//
// Testing uses the native go testing framework.  When any test is run an
// in-process broker is started over TLS (see TestMain for default parameters).
// Fixtures are then configured to talk to it exactly as they would a real
// deployment, and the broker is scripted to exercise each behaviour.
//
// Tests should only verify one thing and should aim to fail fast.  Tests are
// orgnaized into domain specific files as follows:
//
// api_test - Transport related functionality e.g. TLS and routing.
//
// fixture_test - Fixture setup, skipping and credential selection.
//
// poller_test - Waiting for operations and deprovisioning.
package test
