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
	"sort"
	"strings"
)

// Filter is the parsed form of a level expression such as
// "info,hyper=off,mypkg=debug": a default severity plus per-module
// overrides.  Overrides match on module-path prefix, longest prefix
// wins.
type Filter struct {
	def       Severity
	overrides []moduleOverride
}

type moduleOverride struct {
	prefix string
	level  Severity
}

// ParseFilter parses a level expression.  The empty expression
// defaults to info.  Malformed directives are a setup-time error.
func ParseFilter(expr string) (*Filter, error) {
	f := &Filter{def: SeverityInfo}

	for _, directive := range strings.Split(expr, ",") {
		directive = strings.TrimSpace(directive)
		if directive == "" {
			continue
		}

		module, level, found := strings.Cut(directive, "=")
		if !found {
			sev, err := ParseSeverity(directive)
			if err != nil {
				return nil, fmt.Errorf("invalid level directive %q: %w", directive, err)
			}
			f.def = sev
			continue
		}

		if module == "" {
			return nil, fmt.Errorf("invalid level directive %q: empty module", directive)
		}
		sev, err := ParseSeverity(level)
		if err != nil {
			return nil, fmt.Errorf("invalid level directive %q: %w", directive, err)
		}
		f.overrides = append(f.overrides, moduleOverride{prefix: module, level: sev})
	}

	// Longest prefix first, so the first match is the winner.
	sort.SliceStable(f.overrides, func(i, j int) bool {
		return len(f.overrides[i].prefix) > len(f.overrides[j].prefix)
	})
	return f, nil
}

// Enabled reports whether a record from module at severity s passes
// the filter.
func (f *Filter) Enabled(module string, s Severity) bool {
	for _, o := range f.overrides {
		if module == o.prefix || strings.HasPrefix(module, o.prefix+"/") || strings.HasPrefix(module, o.prefix+".") {
			return s >= o.level && o.level != SeverityOff
		}
	}
	return s >= f.def && f.def != SeverityOff
}
