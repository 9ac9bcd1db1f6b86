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

// Package compress compresses and decompresses whole byte slices with zstd
// or lz4, and picks an algorithm from a file extension. No other package in
// this module calls it: the codec decoders and the join's lookup-file load
// read uncompressed bytes.
package compress

import (
	"fmt"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4"
)

// Algorithm names a compression codec recognized by file extension.
type Algorithm uint8

const (
	None Algorithm = iota
	Zstd
	Lz4
)

// DetectByExtension maps a filename's suffix to the algorithm transparent
// decompression should use, defaulting to None.
func DetectByExtension(name string) Algorithm {
	switch {
	case hasSuffix(name, ".zst"):
		return Zstd
	case hasSuffix(name, ".lz4"):
		return Lz4
	default:
		return None
	}
}

func hasSuffix(s, suffix string) bool {
	return len(s) >= len(suffix) && s[len(s)-len(suffix):] == suffix
}

func (a Algorithm) String() string {
	switch a {
	case None:
		return "none"
	case Zstd:
		return "zstd"
	case Lz4:
		return "lz4"
	default:
		return "unknown"
	}
}

// Decompress fully decompresses data per algorithm.
func Decompress(algorithm Algorithm, data []byte) ([]byte, error) {
	switch algorithm {
	case None:
		return data, nil
	case Zstd:
		dec, err := zstd.NewReader(nil)
		if err != nil {
			return nil, err
		}
		defer dec.Close()
		return dec.DecodeAll(data, nil)
	case Lz4:
		out := make([]byte, 16*len(data)+64)
		n, err := lz4.UncompressBlock(data, out)
		if err != nil {
			return nil, err
		}
		return out[:n], nil
	default:
		return nil, fmt.Errorf("compress: unknown algorithm %v", algorithm)
	}
}

// Compress fully compresses data per algorithm.
func Compress(algorithm Algorithm, data []byte) ([]byte, error) {
	switch algorithm {
	case None:
		return data, nil
	case Zstd:
		enc, err := zstd.NewWriter(nil)
		if err != nil {
			return nil, err
		}
		defer enc.Close()
		return enc.EncodeAll(data, nil), nil
	case Lz4:
		buf := make([]byte, len(data))
		ht := make([]int, 64<<10)
		n, err := lz4.CompressBlock(data, buf, ht)
		if err != nil {
			return nil, err
		}
		if n == 0 {
			return data, nil
		}
		return buf[:n], nil
	default:
		return nil, fmt.Errorf("compress: unknown algorithm %v", algorithm)
	}
}
