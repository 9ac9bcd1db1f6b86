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

package dsl

import (
	"testing"

	"github.com/stretchr/testify/require"

	_ "github.com/tabflow/tabflow/pkg/codec/csv"
	_ "github.com/tabflow/tabflow/pkg/codec/jsonl"
	_ "github.com/tabflow/tabflow/pkg/codec/text"
	_ "github.com/tabflow/tabflow/pkg/ops"
)

func TestParseCsvFilterSelectCsvEndToEnd(t *testing.T) {
	plan, err := Parse(`csv | filter "col(age) > 25" | select name,age | csv`)
	require.NoError(t, err)
	require.Len(t, plan.Nodes, 4)
	require.Equal(t, "codec.csv.decode", plan.Nodes[0].Op)
	require.Equal(t, "filter", plan.Nodes[1].Op)
	require.Equal(t, "col(age) > 25", plan.Nodes[1].Args["expr"])
	require.Equal(t, "select", plan.Nodes[2].Op)
	require.Equal(t, []string{"name", "age"}, plan.Nodes[2].Args["columns"])
	require.Equal(t, "codec.csv.encode", plan.Nodes[3].Op)

	require.True(t, plan.Validate(), plan.Err)
}

func TestParseRenameHeadSortTop(t *testing.T) {
	plan, err := Parse("jsonl | rename old=new | head 5 | sort -age,name | top 3 score | jsonl")
	require.NoError(t, err)
	require.Equal(t, map[string]string{"old": "new"}, plan.Nodes[1].Args["mapping"])
	require.Equal(t, int64(5), plan.Nodes[2].Args["n"])

	cols := plan.Nodes[3].Args["columns"].([]map[string]any)
	require.Equal(t, "age", cols[0]["name"])
	require.Equal(t, true, cols[0]["desc"])
	require.Equal(t, "name", cols[1]["name"])
	require.Equal(t, false, cols[1]["desc"])

	require.Equal(t, int64(3), plan.Nodes[4].Args["n"])
	require.Equal(t, "score", plan.Nodes[4].Args["column"])
}

func TestParseDeriveWithNestedComma(t *testing.T) {
	plan, err := Parse(`csv | derive rounded=round(x,2),doubled=x*2 | csv`)
	require.NoError(t, err)
	mapping := plan.Nodes[1].Args["columns"].(map[string]string)
	require.Equal(t, "round(x,2)", mapping["rounded"])
	require.Equal(t, "x*2", mapping["doubled"])
}

func TestParseGroupAgg(t *testing.T) {
	plan, err := Parse("csv | group-agg city n:sum:total avg:mean | csv")
	require.NoError(t, err)
	require.Equal(t, []string{"city"}, plan.Nodes[1].Args["by"])
	aggs := plan.Nodes[1].Args["aggregations"].([]map[string]any)
	require.Equal(t, "n", aggs[0]["column"])
	require.Equal(t, "sum", aggs[0]["func"])
	require.Equal(t, "total", aggs[0]["as"])
	require.Equal(t, "avg", aggs[1]["column"])
	require.Equal(t, "mean", aggs[1]["func"])
	require.NotContains(t, aggs[1], "as")
}

func TestParseJoinDefaultInnerAndLeftFlag(t *testing.T) {
	plan, err := Parse(`csv | join "lookup.csv" on "age|age" --left | csv`)
	require.NoError(t, err)
	require.Equal(t, "lookup.csv", plan.Nodes[1].Args["file"])
	require.Equal(t, "age", plan.Nodes[1].Args["left_key"])
	require.Equal(t, "age", plan.Nodes[1].Args["right_key"])
	require.Equal(t, "left", plan.Nodes[1].Args["how"])
}

func TestParseJoinDistinctKeysNoFlagDefaultsInner(t *testing.T) {
	plan, err := Parse(`csv | join "lookup.csv" on "lid|rid" | csv`)
	require.NoError(t, err)
	require.Equal(t, "lid", plan.Nodes[1].Args["left_key"])
	require.Equal(t, "rid", plan.Nodes[1].Args["right_key"])
	require.Equal(t, "inner", plan.Nodes[1].Args["how"])
}

func TestParseTableShortcutExpandsButStaysUnregistered(t *testing.T) {
	plan, err := Parse("csv | table")
	require.NoError(t, err)
	require.Equal(t, "codec.table.encode", plan.Nodes[1].Op)
	require.False(t, plan.Validate(), "codec.table.encode is intentionally never registered")
	require.Contains(t, plan.Err, "must be an encoder")
}

func TestParseUnknownOpFallsBackToKeyValueArgs(t *testing.T) {
	plan, err := Parse("csv | window size=3 column=x --center | csv")
	require.NoError(t, err)
	require.Equal(t, "window", plan.Nodes[1].Op)
	require.Equal(t, int64(3), plan.Nodes[1].Args["size"])
	require.Equal(t, "x", plan.Nodes[1].Args["column"])
	require.Equal(t, true, plan.Nodes[1].Args["center"])
}

func TestParseEmptyStageErrors(t *testing.T) {
	_, err := Parse("csv ||  csv")
	require.Error(t, err)
}

func TestParseQuotedPipeInsideStageIsNotASeparator(t *testing.T) {
	plan, err := Parse(`csv | filter "a | b" | csv`)
	require.NoError(t, err)
	require.Len(t, plan.Nodes, 3)
	require.Equal(t, "a | b", plan.Nodes[1].Args["expr"])
}
