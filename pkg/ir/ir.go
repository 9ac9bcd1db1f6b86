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

// Package ir implements the validated, schema-annotated intermediate plan
// that the surface DSL and the on-disk JSON plan format both compile down
// to, and that the compiler turns into a concrete operator chain.
package ir

import (
	"fmt"

	"github.com/tabflow/tabflow/pkg/batch"
	"github.com/tabflow/tabflow/pkg/registry"
)

// Node is one step of a plan: an op name, its argument tree, and (after
// validation) the schemas flowing in and out and the op's capability bits.
type Node struct {
	Op            string
	Args          registry.Args
	InputSchema   batch.Schema
	OutputSchema  batch.Schema
	Caps          registry.Capability
	Pos           int
}

// Plan is an ordered sequence of nodes plus plan-wide derived state.
type Plan struct {
	Nodes       []*Node
	FinalSchema batch.Schema
	Caps        registry.Capability
	Valid       bool
	Err         string
}

// NewPlan returns an empty, not-yet-validated plan.
func NewPlan() *Plan { return &Plan{} }

// AddNode appends an owned node to the plan.
func (p *Plan) AddNode(op string, args registry.Args) *Node {
	if args == nil {
		args = registry.Args{}
	}
	n := &Node{Op: op, Args: args, Pos: len(p.Nodes)}
	p.Nodes = append(p.Nodes, n)
	return n
}

// Clone copies the plan, giving every node its own schemas and its own
// top-level argument map. Nested argument values (lists, mappings) are not
// copied: the clone shares them with the original.
func (p *Plan) Clone() *Plan {
	out := &Plan{
		FinalSchema: p.FinalSchema.Clone(),
		Caps:        p.Caps,
		Valid:       p.Valid,
		Err:         p.Err,
	}
	out.Nodes = make([]*Node, len(p.Nodes))
	for i, n := range p.Nodes {
		argsCopy := make(registry.Args, len(n.Args))
		for k, v := range n.Args {
			argsCopy[k] = v
		}
		out.Nodes[i] = &Node{
			Op:           n.Op,
			Args:         argsCopy,
			InputSchema:  n.InputSchema.Clone(),
			OutputSchema: n.OutputSchema.Clone(),
			Caps:         n.Caps,
			Pos:          n.Pos,
		}
	}
	return out
}

// Free drops the plan's owned storage.
func (p *Plan) Free() {
	p.Nodes = nil
}

func (p *Plan) fail(format string, args ...any) bool {
	p.Valid = false
	p.Err = fmt.Sprintf(format, args...)
	return false
}

// Validate runs the five ordered rules from spec.md §4.3: plan
// non-emptiness, decoder-first, encoder-last, every op known to the
// registry, and every required argument present. The first failure
// aborts and records a human-readable error on the plan. On success it
// copies capability bits from the registry onto every node, ANDs them
// into the plan-level bits, and runs schema inference.
func (p *Plan) Validate() bool {
	if len(p.Nodes) == 0 {
		return p.fail("plan has no nodes")
	}

	first, ok := registry.Find(p.Nodes[0].Op)
	if !ok || first.Kind != registry.OpDecoder {
		return p.fail("node 0 (%q) must be a decoder", p.Nodes[0].Op)
	}
	for i := 1; i < len(p.Nodes); i++ {
		if e, ok := registry.Find(p.Nodes[i].Op); ok && e.Kind == registry.OpDecoder {
			return p.fail("decoder %q found at position %d, must be at position 0", p.Nodes[i].Op, i)
		}
	}

	lastIdx := len(p.Nodes) - 1
	last, ok := registry.Find(p.Nodes[lastIdx].Op)
	if !ok || last.Kind != registry.OpEncoder {
		return p.fail("node %d (%q) must be an encoder", lastIdx, p.Nodes[lastIdx].Op)
	}
	for i := 0; i < lastIdx; i++ {
		if e, ok := registry.Find(p.Nodes[i].Op); ok && e.Kind == registry.OpEncoder {
			return p.fail("encoder %q found at position %d, must be at position %d", p.Nodes[i].Op, i, lastIdx)
		}
	}

	for _, n := range p.Nodes {
		if _, ok := registry.Find(n.Op); !ok {
			return p.fail("unknown op %q", n.Op)
		}
	}

	for _, n := range p.Nodes {
		e, _ := registry.Find(n.Op)
		if missing := e.MissingArgs(n.Args); len(missing) > 0 {
			return p.fail("op %q missing required argument(s): %v", n.Op, missing)
		}
	}

	p.Valid = true
	p.Err = ""
	p.inferCapsAndSchema()
	return true
}

func (p *Plan) inferCapsAndSchema() {
	caps := registry.AllCaps
	schema := batch.Unknown(nil)
	for _, n := range p.Nodes {
		e, _ := registry.Find(n.Op)
		n.Caps = e.Caps
		caps &= e.Caps
		n.InputSchema = schema
		if e.Schema != nil {
			schema = e.Schema(schema, n.Args)
		} else {
			schema = batch.Unknown(schema.Names)
		}
		n.OutputSchema = schema
	}
	p.Caps = caps
	p.FinalSchema = schema
}
