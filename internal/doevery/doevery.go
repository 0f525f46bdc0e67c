// Copyright Otelobs Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package doevery provides per-call-site rate limiting, used to keep
// recurring per-tick export failures from flooding the diagnostics.
package doevery

import (
	"runtime"
	"sync"
	"time"
)

var (
	mu sync.Mutex

	// lastInvocation holds the previous invocation time per call
	// site.
	lastInvocation = make(map[invocationKey]time.Time)
)

// invocationKey identifies a unique line of source code.  The
// file/line pair is used instead of the program counter because the
// PC differs when the same line is inlined in multiple places.
type invocationKey struct {
	file string
	line int
}

// TimePeriod invokes f at most once per dur for each distinct call
// site.  The rate limit is global across goroutines for a given
// file/line.  Safe for concurrent use.
func TimePeriod(dur time.Duration, f func()) {
	_, file, line, ok := runtime.Caller(1)
	if !ok {
		// Unknown caller; fail open.
		f()
		return
	}
	key := invocationKey{file: file, line: line}

	mu.Lock()
	prev, seen := lastInvocation[key]
	invoke := !seen || time.Since(prev) > dur
	if invoke {
		lastInvocation[key] = time.Now()
	}
	mu.Unlock()

	if invoke {
		f()
	}
}
