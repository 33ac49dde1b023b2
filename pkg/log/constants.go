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

package log

const (
	// LevelDebug is for logs to be emitted at -v 1.
	// These are not necessary for problem diagnosis, but internal debugging.
	LevelDebug = 1

	// LevelTrace is for logs to be emitted at -v 2.
	// Request and response bodies are logged at this level, they may contain
	// credentials so must never be enabled in shared CI logs.
	LevelTrace = 2
)
