package heap

import (
	"bytes"
	"hash/fnv"
)

// internThreshold is the 512-byte cutoff of spec §3.2/§4.B: strings shorter
// than this are interned (pointer-equality compares them); at or above it a
// String is heap-unique and bypasses the pool entirely.
const internThreshold = 512

// pool is the open-addressed intern table keyed by {hash, length, bytes}
// (spec §4.B). Buckets chain through each String's PoolNext/PoolMore fields
// rather than a separate bucket-of-slices, so the chain lives on the same
// objects the GC already walks as part of the global object list.
type pool struct {
	buckets []*String // bucket head, or nil
	count   int
}

func newPool() *pool {
	return &pool{buckets: make([]*String, 64)}
}

func hashBytes(b []byte) uint32 {
	h := fnv.New32a()
	h.Write(b)
	return h.Sum32()
}

// intern implements spec §4.B's three-step lookup-or-insert. alloc is called
// only on a miss, so the Heap (which owns GC triggering) controls exactly
// when a new String is actually allocated.
func (p *pool) intern(b []byte, alloc func([]byte, uint32) *String) *String {
	if len(b) >= internThreshold {
		return alloc(b, hashBytes(b))
	}

	h := hashBytes(b)
	idx := int(h) % len(p.buckets)
	for s := p.buckets[idx]; s != nil; {
		if s.Hash == h && s.Length == len(b) && bytes.Equal(s.Bytes[:s.Length], b) {
			return s
		}
		if !s.PoolMore {
			break
		}
		s = s.PoolNext
	}

	if p.count >= len(p.buckets) {
		p.rehash()
		idx = int(h) % len(p.buckets)
	}

	s := alloc(b, h)
	s.Interned = true
	if head := p.buckets[idx]; head == nil {
		s.PoolMore = false
	} else {
		s.PoolNext = head
		s.PoolMore = true
	}
	p.buckets[idx] = s
	p.count++
	return s
}

// rehash doubles capacity and rebuilds every chain; the pool never shrinks
// (spec §4.B).
func (p *pool) rehash() {
	old := p.buckets
	p.buckets = make([]*String, len(old)*2)
	p.count = 0
	for _, head := range old {
		for s := head; s != nil; {
			next := s.PoolNext
			more := s.PoolMore
			s.PoolNext, s.PoolMore = nil, false

			idx := int(s.Hash) % len(p.buckets)
			if bhead := p.buckets[idx]; bhead != nil {
				s.PoolNext = bhead
				s.PoolMore = true
			}
			p.buckets[idx] = s
			p.count++

			if !more {
				break
			}
			s = next
		}
	}
}
