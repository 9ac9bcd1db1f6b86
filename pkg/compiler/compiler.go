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

// Package compiler turns a validated ir.Plan into a concrete operator
// chain: one decoder, an ordered vector of transform steps, and one
// encoder, ready for a pipeline to drive.
package compiler

import (
	"fmt"

	"github.com/tabflow/tabflow/pkg/batch"
	_ "github.com/tabflow/tabflow/pkg/codec/csv"
	_ "github.com/tabflow/tabflow/pkg/codec/jsonl"
	_ "github.com/tabflow/tabflow/pkg/codec/text"
	"github.com/tabflow/tabflow/pkg/ir"
	"github.com/tabflow/tabflow/pkg/ops"
	"github.com/tabflow/tabflow/pkg/registry"
)

// Decoder is the shape every codec.*.decode constructor returns.
type Decoder interface {
	Push(data []byte) ([]*batch.Batch, error)
	Flush() ([]*batch.Batch, error)
}

// Encoder is the shape every codec.*.encode constructor returns.
type Encoder interface {
	Encode(b *batch.Batch) ([]byte, error)
	Flush(schema batch.Schema) ([]byte, error)
}

// Program is a compiled, ready-to-run operator chain.
type Program struct {
	Decoder Decoder
	Steps   []ops.Step
	Encoder Encoder
	Schema  batch.Schema
	Caps    registry.Capability
}

// Compile walks a validated plan's nodes, looks each up in the registry,
// and invokes its constructor with the node's argument tree. A Core op
// with a nil constructor is a no-op. An
// Ecosystem-tier node with no native constructor fails with "no native
// target". A constructor error, a type mismatch between what it built
// and the node's declared Kind, or a second decoder/encoder aborts
// compilation and discards every operator already constructed.
func Compile(plan *ir.Plan) (*Program, error) {
	if !plan.Valid {
		return nil, fmt.Errorf("compiler: plan is not valid: %s", plan.Err)
	}
	prog := &Program{Schema: plan.FinalSchema, Caps: plan.Caps}
	for _, n := range plan.Nodes {
		entry, ok := registry.Find(n.Op)
		if !ok {
			destroy(prog)
			return nil, fmt.Errorf("compiler: unknown op %q", n.Op)
		}
		if entry.New == nil {
			if entry.Tier == registry.Ecosystem {
				destroy(prog)
				return nil, fmt.Errorf("compiler: op %q has no native target", n.Op)
			}
			continue
		}
		built, err := entry.New(n.Args)
		if err != nil {
			destroy(prog)
			return nil, fmt.Errorf("compiler: op %q: %w", n.Op, err)
		}
		if err := place(prog, n.Op, entry.Kind, built); err != nil {
			destroy(prog)
			return nil, err
		}
	}
	if prog.Decoder == nil {
		destroy(prog)
		return nil, fmt.Errorf("compiler: plan has no decoder")
	}
	if prog.Encoder == nil {
		destroy(prog)
		return nil, fmt.Errorf("compiler: plan has no encoder")
	}
	return prog, nil
}

func place(prog *Program, op string, kind registry.Kind, built any) error {
	switch kind {
	case registry.OpDecoder:
		d, ok := built.(Decoder)
		if !ok {
			return fmt.Errorf("compiler: op %q did not build a decoder", op)
		}
		if prog.Decoder != nil {
			return fmt.Errorf("compiler: multiple decoders in plan")
		}
		prog.Decoder = d
	case registry.OpEncoder:
		e, ok := built.(Encoder)
		if !ok {
			return fmt.Errorf("compiler: op %q did not build an encoder", op)
		}
		if prog.Encoder != nil {
			return fmt.Errorf("compiler: multiple encoders in plan")
		}
		prog.Encoder = e
	default:
		s, ok := built.(ops.Step)
		if !ok {
			return fmt.Errorf("compiler: op %q did not build a transform step", op)
		}
		prog.Steps = append(prog.Steps, s)
	}
	return nil
}

// destroy drops every reference the program holds. None of the compiled
// operator types own external resources beyond heap memory, so clearing
// the fields is enough to make them collectible.
func destroy(p *Program) {
	p.Decoder = nil
	p.Steps = nil
	p.Encoder = nil
}
