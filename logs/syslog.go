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

package logs // import "github.com/otelobs/otel-orchestrator-go/logs"

import (
	"fmt"
	"io"
)

const syslogTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// writeSyslog writes one record in the syslog text structure:
//
//	<6>2024-05-01T12:00:00.000Z myservice [myhost pid="42" module="foo"] - message
//
// Writes are unbuffered so no records are lost if the process dies.
func writeSyslog(w io.Writer, r Record, service, host string, pid int) {
	fmt.Fprintf(w, "<%d>%s %s [%s pid=%q module=%q] - %s\n",
		syslogPriority(r.Severity),
		r.Time.UTC().Format(syslogTimeFormat),
		service,
		host,
		fmt.Sprint(pid),
		r.Module,
		r.Body,
	)
}

// syslogPriority maps severities onto syslog levels: err(3),
// warning(4), info(6), debug(7).
func syslogPriority(s Severity) int {
	switch {
	case s >= SeverityError:
		return 3
	case s >= SeverityWarn:
		return 4
	case s >= SeverityInfo:
		return 6
	default:
		return 7
	}
}
