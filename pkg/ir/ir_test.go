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
	"reflect"
	"testing"

	"github.com/zeebo/assert"

	"github.com/tabflow/tabflow/pkg/batch"
	"github.com/tabflow/tabflow/pkg/registry"
)

func registerTestOps(t *testing.T) {
	t.Helper()
	if _, ok := registry.Find("test.decode"); ok {
		return
	}
	registry.Register(registry.Entry{
		Name: "test.decode",
		Kind: registry.OpDecoder,
		Caps: registry.AllCaps,
		Schema: func(in batch.Schema, args registry.Args) batch.Schema {
			return batch.NewSchema([]string{"a", "b"}, []batch.Kind{batch.Int64, batch.String})
		},
	})
	registry.Register(registry.Entry{
		Name: "test.encode",
		Kind: registry.OpEncoder,
		Caps: registry.AllCaps,
	})
	registry.Register(registry.Entry{
		Name: "test.transform",
		Kind: registry.OpTransform,
		Caps: registry.CapStreaming | registry.CapBoundedMemory,
		ArgSpec: []registry.ArgDescriptor{
			{Name: "col", Required: true},
		},
	})
	registry.Register(registry.Entry{
		Name: "test.transform.noreq",
		Kind: registry.OpTransform,
		Caps: registry.AllCaps,
	})
}

func TestValidateEmptyPlanFails(t *testing.T) {
	registerTestOps(t)
	p := NewPlan()
	assert.That(t, !p.Validate())
	assert.That(t, p.Err != "")
}

func TestValidateRequiresDecoderFirst(t *testing.T) {
	registerTestOps(t)
	p := NewPlan()
	p.AddNode("test.transform.noreq", nil)
	p.AddNode("test.encode", nil)
	assert.That(t, !p.Validate())
}

func TestValidateRequiresEncoderLast(t *testing.T) {
	registerTestOps(t)
	p := NewPlan()
	p.AddNode("test.decode", nil)
	p.AddNode("test.transform.noreq", nil)
	assert.That(t, !p.Validate())
}

func TestValidateUnknownOp(t *testing.T) {
	registerTestOps(t)
	p := NewPlan()
	p.AddNode("test.decode", nil)
	p.AddNode("nonexistent.op", nil)
	p.AddNode("test.encode", nil)
	assert.That(t, !p.Validate())
}

func TestValidateMissingRequiredArg(t *testing.T) {
	registerTestOps(t)
	p := NewPlan()
	p.AddNode("test.decode", nil)
	p.AddNode("test.transform", registry.Args{})
	p.AddNode("test.encode", nil)
	assert.That(t, !p.Validate())
}

func TestValidateHappyPathInfersSchemaAndCaps(t *testing.T) {
	registerTestOps(t)
	p := NewPlan()
	p.AddNode("test.decode", nil)
	p.AddNode("test.transform", registry.Args{"col": "a"})
	p.AddNode("test.encode", nil)

	assert.That(t, p.Validate())
	assert.Equal(t, "", p.Err)

	assert.That(t, reflect.DeepEqual([]string{"a", "b"}, p.Nodes[1].InputSchema.Names))
	// ops without a Schema fn keep the column names (their types become unknown).
	assert.That(t, reflect.DeepEqual([]string{"a", "b"}, p.FinalSchema.Names))

	// test.transform only has CapStreaming|CapBoundedMemory, so the AND
	// across all three nodes drops every other bit.
	assert.That(t, p.Caps.Has(registry.CapStreaming))
	assert.That(t, p.Caps.Has(registry.CapBoundedMemory))
	assert.That(t, !p.Caps.Has(registry.CapFs))
}

func TestCloneCopiesTopLevelArgs(t *testing.T) {
	registerTestOps(t)
	p := NewPlan()
	p.AddNode("test.decode", nil)
	p.AddNode("test.transform", registry.Args{"col": "a"})
	p.AddNode("test.encode", nil)
	assert.That(t, p.Validate())

	clone := p.Clone()
	clone.Nodes[1].Args["col"] = "mutated"
	// mutating the clone's args must not affect the original.
	assert.Equal(t, "a", p.Nodes[1].Args["col"])
}

func TestFromJSONParsesStepsAndRejectsMissingOp(t *testing.T) {
	registerTestOps(t)
	plan, err := FromJSON([]byte(`{"steps":[{"op":"test.decode"},{"op":"test.transform","args":{"col":"a"}},{"op":"test.encode"}]}`))
	assert.NoError(t, err)
	assert.Equal(t, 3, len(plan.Nodes))
	assert.That(t, plan.Validate())

	_, err = FromJSON([]byte(`{"steps":[{"args":{"col":"a"}}]}`))
	assert.Error(t, err)
}
