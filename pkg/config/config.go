/*
 * Copyright The OpenTelemetry Authors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *        http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 *
 */

package config

// Main configuration object for the engine: arena/allocator sizing, default
// batch capacity, and the set of optional codec features a pipeline may use.

import (
	"github.com/apache/arrow/go/v12/arrow/memory"
)

// Config holds engine settings. No package in this module reads a Config:
// decoders take their batch size from plan arguments, codec input is never
// decompressed, and the pipeline always writes its stats summary.
type Config struct {
	Pool memory.Allocator

	// ArenaBlockSize is the size in bytes of each block the arena bump
	// allocator acquires from Pool.
	ArenaBlockSize int
	// BatchSize is the default row capacity a decoder allocates per batch.
	BatchSize int
	// Zstd is the setting for decompressing .zst-suffixed codec input.
	Zstd bool
	// Lz4 is the setting for decompressing .lz4-suffixed codec input.
	Lz4 bool
	// Stats is the setting for pipeline statistics (the stats channel's
	// JSON summary).
	Stats bool
}

type Option func(*Config)

// DefaultConfig returns a Config with the following default values:
//   - Pool: memory.NewGoAllocator()
//   - ArenaBlockSize: 64 * 1024
//   - BatchSize: 1024
//   - Zstd: true
//   - Lz4: true
//   - Stats: true
func DefaultConfig() *Config {
	return &Config{
		Pool:           memory.NewGoAllocator(),
		ArenaBlockSize: 64 * 1024,
		BatchSize:      1024,
		Zstd:           true,
		Lz4:            true,
		Stats:          true,
	}
}

// WithAllocator sets the allocator backing every arena in the pipeline.
func WithAllocator(allocator memory.Allocator) Option {
	return func(cfg *Config) {
		cfg.Pool = allocator
	}
}

// WithArenaBlockSize overrides the arena's block size.
func WithArenaBlockSize(size int) Option {
	return func(cfg *Config) {
		cfg.ArenaBlockSize = size
	}
}

// WithBatchSize overrides the default decoder batch capacity.
func WithBatchSize(size int) Option {
	return func(cfg *Config) {
		cfg.BatchSize = size
	}
}

// WithoutZstd sets Zstd to false.
func WithoutZstd() Option {
	return func(cfg *Config) {
		cfg.Zstd = false
	}
}

// WithoutLz4 sets Lz4 to false.
func WithoutLz4() Option {
	return func(cfg *Config) {
		cfg.Lz4 = false
	}
}

// WithStats sets Stats to true.
func WithStats() Option {
	return func(cfg *Config) {
		cfg.Stats = true
	}
}

// WithoutStats sets Stats to false.
func WithoutStats() Option {
	return func(cfg *Config) {
		cfg.Stats = false
	}
}

// New builds a Config from DefaultConfig with the given options applied.
func New(opts ...Option) *Config {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}
