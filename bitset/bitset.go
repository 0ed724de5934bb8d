// Package bitset provides a fixed-capacity bit vector used to record
// per-weight-combination pruning state.
//
// The word layout is a persistence contract: bit i lives in word i/64 at
// bit position i%64. Snapshots and cross-implementation comparisons rely
// on this layout, so it must not change.
package bitset

import (
	"encoding/binary"
	"fmt"
	"io"
	"math/bits"
)

// ErrOutOfRange indicates an index outside the valid range of the bitset.
type ErrOutOfRange struct {
	Index int // Requested index
	Size  int // Valid range is [0, Size)
}

// Error returns the error message for an out-of-range index.
func (e *ErrOutOfRange) Error() string {
	return fmt.Sprintf("index out of range: %d (size %d)", e.Index, e.Size)
}

// Fixed is a fixed-capacity bit vector. All bits are clear at construction.
// Fixed is not safe for concurrent use; callers serialize access.
type Fixed struct {
	words []uint64
	nbits int
}

// New creates a Fixed with capacity for nbits bits, all clear.
func New(nbits int) *Fixed {
	if nbits < 0 {
		nbits = 0
	}
	return &Fixed{
		words: make([]uint64, (nbits+63)/64),
		nbits: nbits,
	}
}

// Len returns the capacity of the bitset in bits.
func (f *Fixed) Len() int {
	return f.nbits
}

// SetTo sets the bit at index i to v.
func (f *Fixed) SetTo(i int, v bool) error {
	if i < 0 || i >= f.nbits {
		return &ErrOutOfRange{Index: i, Size: f.nbits}
	}
	wordIdx := i / 64
	bitMask := uint64(1) << (i % 64)
	if v {
		f.words[wordIdx] |= bitMask
	} else {
		f.words[wordIdx] &^= bitMask
	}
	return nil
}

// Set sets the bit at index i.
func (f *Fixed) Set(i int) error {
	return f.SetTo(i, true)
}

// Unset clears the bit at index i.
func (f *Fixed) Unset(i int) error {
	return f.SetTo(i, false)
}

// Test returns true if the bit at index i is set.
func (f *Fixed) Test(i int) (bool, error) {
	if i < 0 || i >= f.nbits {
		return false, &ErrOutOfRange{Index: i, Size: f.nbits}
	}
	return f.words[i/64]&(uint64(1)<<(i%64)) != 0, nil
}

// Count returns the number of set bits.
func (f *Fixed) Count() int {
	count := 0
	for _, w := range f.words {
		if w != 0 {
			count += bits.OnesCount64(w)
		}
	}
	return count
}

// ClearAll clears all bits.
func (f *Fixed) ClearAll() {
	for i := range f.words {
		f.words[i] = 0
	}
}

// Clone returns a deep copy of the bitset.
func (f *Fixed) Clone() *Fixed {
	words := make([]uint64, len(f.words))
	copy(words, f.words)
	return &Fixed{words: words, nbits: f.nbits}
}

// Words returns a copy of the underlying words in the contract layout.
func (f *Fixed) Words() []uint64 {
	words := make([]uint64, len(f.words))
	copy(words, f.words)
	return words
}

// WriteTo writes the bitset to w: bit capacity as uint64, then the words,
// all little-endian.
func (f *Fixed) WriteTo(w io.Writer) (int64, error) {
	if err := binary.Write(w, binary.LittleEndian, uint64(f.nbits)); err != nil {
		return 0, err
	}
	n := int64(8)
	for _, word := range f.words {
		if err := binary.Write(w, binary.LittleEndian, word); err != nil {
			return n, err
		}
		n += 8
	}
	return n, nil
}

// MaxWireBits bounds the capacity accepted by ReadFrom, so corrupt input
// cannot drive a giant word-slice allocation.
const MaxWireBits = 1 << 24

// ReadFrom reads a bitset previously written with WriteTo, replacing the
// receiver's contents and capacity. A capacity above MaxWireBits is
// rejected.
func (f *Fixed) ReadFrom(r io.Reader) (int64, error) {
	var nbits uint64
	if err := binary.Read(r, binary.LittleEndian, &nbits); err != nil {
		return 0, err
	}
	if nbits > MaxWireBits {
		return 8, fmt.Errorf("bitset capacity %d exceeds wire limit %d", nbits, MaxWireBits)
	}
	n := int64(8)
	words := make([]uint64, (nbits+63)/64)
	for i := range words {
		if err := binary.Read(r, binary.LittleEndian, &words[i]); err != nil {
			return n, err
		}
		n += 8
	}
	f.words = words
	f.nbits = int(nbits)
	return n, nil
}
