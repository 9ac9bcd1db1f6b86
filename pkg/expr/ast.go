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

/*
Package expr implements the expression sub-language used by filter, derive
and validate: a Pratt-style recursive-descent parser producing an immutable
AST, and a row-at-a-time evaluator with the type-promotion rules of
spec.md §4.2.
*/
package expr

// NodeKind tags an expression tree node.
type NodeKind uint8

const (
	LitInt NodeKind = iota
	LitFloat
	LitString
	Column
	Cmp
	And
	Or
	Not
	Add
	Sub
	Mul
	Div
	Neg
	Call
)

// CmpOp is one of the six comparison operators.
type CmpOp uint8

const (
	Eq CmpOp = iota
	Ne
	Lt
	Le
	Gt
	Ge
)

// Node is an expression tree node. A parent owns its Children exclusively;
// the tree is immutable once Parse returns.
type Node struct {
	Kind NodeKind

	IntVal    int64
	FloatVal  float64
	StringVal string // LitString value, Column name, or Call function name
	CmpOp     CmpOp

	Children []*Node
}

func lit(kind NodeKind) *Node { return &Node{Kind: kind} }
