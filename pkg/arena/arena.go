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
Package arena implements a bump allocator with a linked list of fixed-size
blocks. It backs the variable-length (mostly string) data reachable from a
single batch.Batch: allocate-only while the batch is being built, Reset to
reclaim everything at once, Destroy to release the blocks back to the
underlying allocator.

There is no per-object free. A caller that needs to discard one string
discards the whole arena (and, with it, the batch that owns it).
*/
package arena

import (
	"github.com/apache/arrow/go/v12/arrow/memory"
)

const defaultBlockSize = 64 * 1024
const alignment = 8

type block struct {
	buf  []byte
	used int
	next *block
}

// Arena is a bump allocator with a block list. It is not safe for
// concurrent use; each batch.Batch owns exactly one Arena.
type Arena struct {
	pool      memory.Allocator
	blockSize int

	head *block // first block ever allocated; survives Reset
	cur  *block // block bump allocation currently targets
}

// New creates an Arena that acquires blockSize-byte blocks from pool. A
// blockSize <= 0 uses the 64 KiB default.
func New(pool memory.Allocator, blockSize int) *Arena {
	if blockSize <= 0 {
		blockSize = defaultBlockSize
	}
	a := &Arena{pool: pool, blockSize: blockSize}
	a.head = a.newBlock(blockSize)
	a.cur = a.head
	return a
}

func (a *Arena) newBlock(size int) *block {
	return &block{buf: a.pool.Allocate(size)}
}

// Alloc returns n bytes of zeroed, 8-byte-aligned storage. The returned
// slice is valid until the next Reset or Destroy.
func (a *Arena) Alloc(n int) []byte {
	if n < 0 {
		panic("arena: negative allocation size")
	}
	if n == 0 {
		return nil
	}
	aligned := (n + alignment - 1) &^ (alignment - 1)

	if a.cur.used+aligned > len(a.cur.buf) {
		size := a.blockSize
		if aligned > size {
			size = aligned
		}
		nb := a.newBlock(size)
		a.cur.next = nb
		a.cur = nb
	}

	start := a.cur.used
	a.cur.used += aligned
	return a.cur.buf[start : start+n : start+aligned]
}

// AllocString copies s into the arena and returns a Go string converted
// from that arena copy. The conversion allocates the returned string's
// bytes on the Go heap, so the result does not point into arena storage
// (nor into s's original backing array).
func (a *Arena) AllocString(s string) string {
	if len(s) == 0 {
		return ""
	}
	buf := a.Alloc(len(s))
	copy(buf, s)
	return string(buf)
}

// AllocBytes copies b into the arena.
func (a *Arena) AllocBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	buf := a.Alloc(len(b))
	copy(buf, b)
	return buf
}

// Reset frees every block but the head and rewinds used-space to zero.
// Every pointer previously handed out by Alloc is invalidated.
func (a *Arena) Reset() {
	for b := a.head.next; b != nil; {
		next := b.next
		a.pool.Free(b.buf)
		b.next = nil
		b = next
	}
	a.head.next = nil
	a.head.used = 0
	a.cur = a.head
}

// Destroy releases every block back to the underlying allocator. The arena
// must not be used afterward.
func (a *Arena) Destroy() {
	for b := a.head; b != nil; {
		next := b.next
		a.pool.Free(b.buf)
		b = next
	}
	a.head = nil
	a.cur = nil
}

// BlockCount returns the number of blocks currently held (for tests/stats).
func (a *Arena) BlockCount() int {
	n := 0
	for b := a.head; b != nil; b = b.next {
		n++
	}
	return n
}
