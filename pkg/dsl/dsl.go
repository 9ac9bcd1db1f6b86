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

// Package dsl parses the pipe-syntax surface language (e.g.
// `csv | filter "col(age) > 25" | select name,age | csv`) into an
// unvalidated ir.Plan. Callers must call Validate on the result.
package dsl

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/tabflow/tabflow/pkg/ir"
	"github.com/tabflow/tabflow/pkg/registry"
)

var codecShortcuts = map[string]bool{"csv": true, "jsonl": true, "text": true}

// Parse splits src into pipe-separated stages, builds an IR node per
// stage, and returns the plan unvalidated.
func Parse(src string) (*ir.Plan, error) {
	stages := splitTop(src, '|')
	plan := ir.NewPlan()
	last := len(stages) - 1
	for i, stage := range stages {
		stage = strings.TrimSpace(stage)
		if stage == "" {
			return nil, fmt.Errorf("dsl: empty stage at position %d", i)
		}
		tokens := tokenize(stage)
		if len(tokens) == 0 {
			return nil, fmt.Errorf("dsl: empty stage at position %d", i)
		}
		op, args, err := expand(tokens[0], tokens[1:], i == 0, i == last)
		if err != nil {
			return nil, fmt.Errorf("dsl: stage %d (%s): %w", i, tokens[0], err)
		}
		plan.AddNode(op, args)
	}
	return plan, nil
}

// builders maps an op name to its dedicated argument-tree builder.
// Everything else (including ops the spec only shows by analogy, like
// window or step) falls back to a generic key=value parse, which matches
// their registry.ArgSpec names directly.
var builders = map[string]func([]string) (registry.Args, error){
	"filter":    exprArgs,
	"validate":  exprArgs,
	"select":    columnsArgs,
	"drop":      columnsArgs,
	"rename":    renameArgs,
	"head":      nArgs,
	"skip":      nArgs,
	"tail":      nArgs,
	"sample":    nArgs,
	"sort":      sortArgs,
	"top":       topArgs,
	"derive":    deriveArgs,
	"group-agg": groupAggArgs,
	"join":      joinArgs,
}

func expand(name string, rest []string, first, last bool) (string, registry.Args, error) {
	if codecShortcuts[name] {
		switch {
		case first:
			return "codec." + name + ".decode", kvArgs(rest), nil
		case last:
			return "codec." + name + ".encode", kvArgs(rest), nil
		}
	}
	if name == "table" && last {
		return "codec.table.encode", kvArgs(rest), nil
	}
	if builder, ok := builders[name]; ok {
		args, err := builder(rest)
		if err != nil {
			return "", nil, err
		}
		return name, args, nil
	}
	return name, kvArgs(rest), nil
}

func exprArgs(rest []string) (registry.Args, error) {
	if len(rest) == 0 {
		return nil, fmt.Errorf("expected an expression")
	}
	return registry.Args{"expr": strings.Join(rest, " ")}, nil
}

func columnsArgs(rest []string) (registry.Args, error) {
	cols := splitCommaWords(rest)
	if len(cols) == 0 {
		return nil, fmt.Errorf("expected a column list")
	}
	return registry.Args{"columns": cols}, nil
}

func renameArgs(rest []string) (registry.Args, error) {
	mapping := map[string]string{}
	for _, part := range splitCommaWords(rest) {
		k, v, ok := strings.Cut(part, "=")
		if !ok {
			return nil, fmt.Errorf("expected old=new, got %q", part)
		}
		mapping[k] = v
	}
	if len(mapping) == 0 {
		return nil, fmt.Errorf("expected at least one old=new mapping")
	}
	return registry.Args{"mapping": mapping}, nil
}

func nArgs(rest []string) (registry.Args, error) {
	if len(rest) == 0 {
		return nil, fmt.Errorf("expected a count")
	}
	n, err := strconv.ParseInt(rest[0], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("expected an integer count, got %q", rest[0])
	}
	return registry.Args{"n": n}, nil
}

func sortArgs(rest []string) (registry.Args, error) {
	names := splitCommaWords(rest)
	if len(names) == 0 {
		return nil, fmt.Errorf("expected a column list")
	}
	cols := make([]map[string]any, 0, len(names))
	for _, n := range names {
		desc := false
		switch {
		case strings.HasPrefix(n, "-"):
			desc, n = true, n[1:]
		case strings.HasPrefix(n, "+"):
			n = n[1:]
		}
		cols = append(cols, map[string]any{"name": n, "desc": desc})
	}
	return registry.Args{"columns": cols}, nil
}

func topArgs(rest []string) (registry.Args, error) {
	if len(rest) < 2 {
		return nil, fmt.Errorf("expected N and a column")
	}
	n, err := strconv.ParseInt(rest[0], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("expected an integer count, got %q", rest[0])
	}
	col := rest[1]
	desc := true
	switch {
	case strings.HasPrefix(col, "+"):
		desc, col = false, col[1:]
	case strings.HasPrefix(col, "-"):
		col = col[1:]
	}
	return registry.Args{"n": n, "column": col, "desc": desc}, nil
}

func deriveArgs(rest []string) (registry.Args, error) {
	mapping := map[string]string{}
	for _, part := range splitTopLevelComma(strings.Join(rest, " ")) {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		k, v, ok := strings.Cut(part, "=")
		if !ok {
			return nil, fmt.Errorf("expected name=expr, got %q", part)
		}
		mapping[strings.TrimSpace(k)] = strings.TrimSpace(v)
	}
	if len(mapping) == 0 {
		return nil, fmt.Errorf("expected at least one name=expr")
	}
	return registry.Args{"columns": mapping}, nil
}

func groupAggArgs(rest []string) (registry.Args, error) {
	if len(rest) < 2 {
		return nil, fmt.Errorf("expected group columns and at least one col:func aggregation")
	}
	by := splitCommaWords(rest[:1])
	aggs := make([]map[string]any, 0, len(rest)-1)
	for _, tok := range rest[1:] {
		fields := strings.Split(tok, ":")
		if len(fields) < 2 {
			return nil, fmt.Errorf("expected col:func[:name], got %q", tok)
		}
		agg := map[string]any{"column": fields[0], "func": fields[1]}
		if len(fields) >= 3 {
			agg["as"] = fields[2]
		}
		aggs = append(aggs, agg)
	}
	return registry.Args{"by": by, "aggregations": aggs}, nil
}

func joinArgs(rest []string) (registry.Args, error) {
	if len(rest) < 3 || rest[1] != "on" {
		return nil, fmt.Errorf(`expected "FILE on LEFT|RIGHT [--left]"`)
	}
	left, right, ok := strings.Cut(rest[2], "|")
	if !ok {
		left, right = rest[2], rest[2]
	}
	how := "inner"
	for _, flag := range rest[3:] {
		switch flag {
		case "--left":
			how = "left"
		case "--inner":
			how = "inner"
		}
	}
	return registry.Args{"file": rest[0], "left_key": left, "right_key": right, "how": how}, nil
}

// kvArgs parses key=value tokens (with numeric/bool coercion) and bare
// -flag/--flag tokens into a boolean-true entry. This is the fallback for
// every op without a dedicated builder above, and for codec shortcuts'
// trailing options (e.g. `csv delimiter=; header=false`).
func kvArgs(rest []string) registry.Args {
	args := registry.Args{}
	for _, tok := range rest {
		if k, v, ok := strings.Cut(tok, "="); ok {
			args[k] = coerce(v)
			continue
		}
		switch {
		case strings.HasPrefix(tok, "--"):
			args[tok[2:]] = true
		case strings.HasPrefix(tok, "-") && len(tok) > 1:
			args[tok[1:]] = true
		}
	}
	return args
}

func coerce(v string) any {
	if n, err := strconv.ParseInt(v, 10, 64); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(v, 64); err == nil {
		return f
	}
	if v == "true" {
		return true
	}
	if v == "false" {
		return false
	}
	return v
}

// splitTop splits s on sep, ignoring occurrences inside double quotes.
func splitTop(s string, sep byte) []string {
	var out []string
	var cur strings.Builder
	inQuote := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == '"' {
			inQuote = !inQuote
			cur.WriteByte(c)
			continue
		}
		if c == sep && !inQuote {
			out = append(out, cur.String())
			cur.Reset()
			continue
		}
		cur.WriteByte(c)
	}
	out = append(out, cur.String())
	return out
}

// tokenize splits a stage into whitespace-separated tokens, treating a
// double-quoted run as a single token and stripping its quotes.
func tokenize(s string) []string {
	var tokens []string
	var cur strings.Builder
	inQuote, hasTok := false, false
	flush := func() {
		if hasTok {
			tokens = append(tokens, cur.String())
			cur.Reset()
			hasTok = false
		}
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '"':
			inQuote = !inQuote
			hasTok = true
		case (c == ' ' || c == '\t') && !inQuote:
			flush()
		default:
			cur.WriteByte(c)
			hasTok = true
		}
	}
	flush()
	return tokens
}

// splitCommaWords splits every token on commas, trims whitespace, and
// drops empties — handling both `a,b,c` and `a b c` column lists.
func splitCommaWords(tokens []string) []string {
	var out []string
	for _, t := range tokens {
		for _, p := range strings.Split(t, ",") {
			p = strings.TrimSpace(p)
			if p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}

// splitTopLevelComma splits s on commas that are not nested inside
// parentheses, so a derive expression like round(x,2) survives intact.
func splitTopLevelComma(s string) []string {
	var out []string
	depth, start := 0, 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '(':
			depth++
		case ')':
			if depth > 0 {
				depth--
			}
		case ',':
			if depth == 0 {
				out = append(out, s[start:i])
				start = i + 1
			}
		}
	}
	out = append(out, s[start:])
	return out
}
