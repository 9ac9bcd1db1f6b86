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

// Package datagen generates small, deterministic tabular fixtures for
// tests and examples: rows of (name, age, score, city) built with gofakeit
// under a fixed seed, rendered as CSV or JSONL bytes.
package datagen

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/brianvoe/gofakeit/v6"
)

// Row is one generated record.
type Row struct {
	Name  string
	Age   int
	Score float64
	City  string
}

// Rows generates n deterministic rows from seed.
func Rows(n int, seed uint64) []Row {
	src := gofakeit.New(int64(seed))
	rows := make([]Row, n)
	for i := 0; i < n; i++ {
		rows[i] = Row{
			Name:  src.Name(),
			Age:   src.Number(1, 99),
			Score: src.Float64Range(0, 100),
			City:  src.City(),
		}
	}
	return rows
}

// CSV renders rows as a CSV document with a header row.
func CSV(rows []Row) []byte {
	var buf bytes.Buffer
	buf.WriteString("name,age,score,city\n")
	for _, r := range rows {
		fmt.Fprintf(&buf, "%s,%s,%s,%s\n",
			r.Name, strconv.Itoa(r.Age), strconv.FormatFloat(r.Score, 'f', 2, 64), r.City)
	}
	return buf.Bytes()
}

// JSONL renders rows as newline-delimited JSON objects.
func JSONL(rows []Row) []byte {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, r := range rows {
		obj := map[string]any{
			"name":  r.Name,
			"age":   r.Age,
			"score": r.Score,
			"city":  r.City,
		}
		_ = enc.Encode(obj)
	}
	return buf.Bytes()
}
