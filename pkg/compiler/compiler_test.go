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

package compiler

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tabflow/tabflow/pkg/dsl"
	"github.com/tabflow/tabflow/pkg/ir"
	"github.com/tabflow/tabflow/pkg/registry"
)

func mustPlan(t *testing.T, src string) *ir.Plan {
	t.Helper()
	plan, err := dsl.Parse(src)
	require.NoError(t, err)
	require.True(t, plan.Validate(), plan.Err)
	return plan
}

func TestCompileHappyPath(t *testing.T) {
	plan := mustPlan(t, `csv | filter "col(age) > 25" | select name,age | csv`)
	prog, err := Compile(plan)
	require.NoError(t, err)
	require.NotNil(t, prog.Decoder)
	require.NotNil(t, prog.Encoder)
	require.Len(t, prog.Steps, 2)
}

func TestCompileRejectsInvalidPlan(t *testing.T) {
	plan := ir.NewPlan() // never validated, Valid stays false
	_, err := Compile(plan)
	require.Error(t, err)
}

func TestCompileAbortsOnConstructorError(t *testing.T) {
	// The DSL only exposes --left/--inner; "right" is only reachable by
	// building the node directly (e.g. from a hand-written .tfp plan).
	plan := ir.NewPlan()
	plan.AddNode("codec.csv.decode", nil)
	plan.AddNode("join", registry.Args{
		"file": "lookup.csv", "left_key": "age", "right_key": "age", "how": "right",
	})
	plan.AddNode("codec.csv.encode", nil)
	require.True(t, plan.Validate(), plan.Err)

	_, err := Compile(plan)
	require.Error(t, err, "how=right is rejected at construction, not silently treated as inner")
}

func TestCompileEcosystemTierNoNativeTarget(t *testing.T) {
	registry.Register(registry.Entry{
		Name: "test.ecosystem-only",
		Kind: registry.OpTransform,
		Tier: registry.Ecosystem,
		New:  nil,
	})
	plan := ir.NewPlan()
	plan.AddNode("codec.csv.decode", nil)
	plan.AddNode("test.ecosystem-only", nil)
	plan.AddNode("codec.csv.encode", nil)
	require.True(t, plan.Validate(), plan.Err)

	_, err := Compile(plan)
	require.Error(t, err)
	require.Contains(t, err.Error(), "no native target")
}
