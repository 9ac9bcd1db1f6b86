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

package pipeline

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	_ "github.com/tabflow/tabflow/pkg/codec/csv"
	"github.com/tabflow/tabflow/pkg/datagen"
	_ "github.com/tabflow/tabflow/pkg/ops"
)

const csvPlan = `{"steps":[
	{"op":"codec.csv.decode"},
	{"op":"filter","args":{"expr":"col(age) >= 18"}},
	{"op":"codec.csv.encode"}
]}`

func TestCreatePushFinishPullRoundTrip(t *testing.T) {
	p, err := Create([]byte(csvPlan))
	require.NoError(t, err)
	defer p.Free()

	rows := datagen.Rows(20, 42)
	require.NoError(t, p.Push(datagen.CSV(rows)))
	require.NoError(t, p.Finish())

	var main bytes.Buffer
	n := p.Pull(Main, &main)
	require.Greater(t, n, 0)
	require.Contains(t, main.String(), "name,age,score,city\n")

	var stats bytes.Buffer
	p.Pull(Stats, &stats)
	var rs RunStats
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(stats.Bytes()), &rs))
	require.Equal(t, int64(20), rs.RowsIn)
	require.LessOrEqual(t, rs.RowsOut, rs.RowsIn)
	require.Greater(t, rs.BytesIn, int64(0))
}

func TestFinishIsIdempotent(t *testing.T) {
	p, err := Create([]byte(csvPlan))
	require.NoError(t, err)
	defer p.Free()

	require.NoError(t, p.Push(datagen.CSV(datagen.Rows(3, 1))))
	require.NoError(t, p.Finish())

	var stats1 bytes.Buffer
	p.Pull(Stats, &stats1)

	require.NoError(t, p.Finish(), "a second Finish call is a no-op, not an error")

	var stats2 bytes.Buffer
	n := p.Pull(Stats, &stats2)
	require.Equal(t, 0, n, "no second stats line is appended")
}

func TestPushAfterFatalErrorReturnsRecordedError(t *testing.T) {
	plan := `{"steps":[
		{"op":"codec.csv.decode","args":{"batch_size":1}},
		{"op":"join","args":{"file":"/nonexistent/lookup.csv","left_key":"age","right_key":"age","how":"inner"}},
		{"op":"codec.csv.encode"}
	]}`
	p, err := Create([]byte(plan))
	require.NoError(t, err)
	defer p.Free()

	err1 := p.Push(datagen.CSV(datagen.Rows(2, 7)))
	require.Error(t, err1, "the lookup file does not exist, so the join's first Process call fails")

	var errs bytes.Buffer
	p.Pull(Errors, &errs)
	require.Contains(t, errs.String(), "error")

	err2 := p.Push(datagen.CSV(datagen.Rows(1, 8)))
	require.Equal(t, err1, err2, "once fatal, every subsequent Push returns the same recorded error")

	require.Equal(t, err1, p.Finish(), "Finish also short-circuits once a fatal error is recorded")
}

func TestCreateRejectsInvalidPlan(t *testing.T) {
	_, err := Create([]byte(`{"steps":[]}`))
	require.Error(t, err)

	_, err = Create([]byte(`not json`))
	require.Error(t, err)
}

func TestHumanBytesClampsNegative(t *testing.T) {
	require.NotPanics(t, func() { HumanBytes(-5) })
}
