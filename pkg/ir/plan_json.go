// Copyright The OpenTelemetry Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//       http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package ir

import (
	"encoding/json"
	"fmt"

	"github.com/tabflow/tabflow/pkg/registry"
)

type jsonPlan struct {
	Steps []jsonStep `json:"steps"`
}

type jsonStep struct {
	Op   string         `json:"op"`
	Args map[string]any `json:"args"`
}

// FromJSON parses the on-disk `.tfp` plan form (`{"steps":[{"op","args"},…]}`)
// into an unvalidated Plan. A step with no `args` key gets an empty
// argument tree, matching the wire format's "args is optional" rule.
func FromJSON(data []byte) (*Plan, error) {
	var jp jsonPlan
	if err := json.Unmarshal(data, &jp); err != nil {
		return nil, fmt.Errorf("ir: invalid plan json: %w", err)
	}
	plan := NewPlan()
	for _, step := range jp.Steps {
		if step.Op == "" {
			return nil, fmt.Errorf("ir: plan step missing \"op\"")
		}
		plan.AddNode(step.Op, registry.Args(step.Args))
	}
	return plan, nil
}
