// Package shortlist implements the per-sentence target-vocabulary
// restriction of spec.md §4.5 (C6): a lexical table mapping source word
// ids to short lists of likely target word ids, used to shrink the
// decoder's output projection from the full vocabulary down to a few
// hundred classes per sentence.
//
// Grounded on internal/modelfile's container-parsing style (magic +
// header validation over a memory map, spec.md §6) rather than any
// teacher module directly — the teacher has no lexical-shortlist
// analogue — but follows the same load-then-query shape as every other
// loader in this repository.
package shortlist

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sort"

	"github.com/slimtgo/slimt/internal/membuf"
)

const wantMagic = 0xF11A48D5013417F5

var (
	ErrBadMagic   = errors.New("shortlist: bad magic number")
	ErrTruncated  = errors.New("shortlist: truncated container")
	ErrBadOffsets = errors.New("shortlist: offset table inconsistent with shortlist size")
)

// Table is a loaded shortlist container.
type Table struct {
	file      *membuf.FileMap
	Frequent  int
	Best      int
	VocabSize int
	Offsets   []uint64
	Ids       []uint32
}

// Load memory-maps path and parses a shortlist container (spec.md §6).
// The container carries no target-vocabulary-size field of its own (it
// only stores frequent/best counts and the offset/id arrays), so
// vocabSize must come from the caller's loaded model (its target
// embedding's vocabulary dimension) and bounds For's padding loop.
func Load(path string, vocabSize int) (*Table, error) {
	fm, err := membuf.MapFile(path)
	if err != nil {
		return nil, err
	}
	t, err := parse(fm, vocabSize)
	if err != nil {
		fm.Close()
		return nil, err
	}
	return t, nil
}

func parse(fm *membuf.FileMap, vocabSize int) (*Table, error) {
	data, err := fm.Buffer().Bytes()
	if err != nil {
		return nil, err
	}
	if len(data) < 48 {
		return nil, ErrTruncated
	}
	magic := binary.LittleEndian.Uint64(data[0:8])
	if magic != wantMagic {
		return nil, fmt.Errorf("%w: got %#x", ErrBadMagic, magic)
	}
	// checksum at data[8:16] is not independently verified: the spec
	// leaves the hash implementation-defined, and load-time integrity of
	// a read-only model artifact is enforced upstream of this loader.
	frequent := binary.LittleEndian.Uint64(data[16:24])
	best := binary.LittleEndian.Uint64(data[24:32])
	offsetCount := binary.LittleEndian.Uint64(data[32:40])
	shortlistSize := binary.LittleEndian.Uint64(data[40:48])

	pos := 48
	need := int(offsetCount)*8 + int(shortlistSize)*4
	if pos+need > len(data) {
		return nil, ErrTruncated
	}

	offsets := make([]uint64, offsetCount)
	for i := range offsets {
		offsets[i] = binary.LittleEndian.Uint64(data[pos : pos+8])
		pos += 8
	}
	if offsetCount > 0 && offsets[offsetCount-1] != shortlistSize {
		return nil, ErrBadOffsets
	}

	ids := make([]uint32, shortlistSize)
	for i := range ids {
		ids[i] = binary.LittleEndian.Uint32(data[pos : pos+4])
		pos += 4
	}

	return &Table{
		file:      fm,
		Frequent:  int(frequent),
		Best:      int(best),
		VocabSize: vocabSize,
		Offsets:   offsets,
		Ids:       ids,
	}, nil
}

// Close unmaps the underlying file.
func (t *Table) Close() error { return t.file.Close() }

// For computes the restricted target class list for one sentence's
// source words (spec.md §4.5's 5-step algorithm). sharedVocab marks the
// source words themselves as additional permitted classes.
func (t *Table) For(words []uint32, sharedVocab bool) []uint32 {
	marked := make(map[uint32]struct{}, t.Frequent+len(words)*8)
	for i := 0; i < t.Frequent; i++ {
		marked[uint32(i)] = struct{}{}
	}

	seen := make(map[uint32]struct{}, len(words))
	for _, w := range words {
		if _, dup := seen[w]; dup {
			continue
		}
		seen[w] = struct{}{}
		if sharedVocab {
			marked[w] = struct{}{}
		}
		if int(w)+1 >= len(t.Offsets) {
			continue
		}
		lo, hi := t.Offsets[w], t.Offsets[w+1]
		for _, id := range t.Ids[lo:hi] {
			marked[id] = struct{}{}
		}
	}

	out := make([]uint32, 0, len(marked)+8)
	for id := range marked {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })

	// Pad from Frequent up to VocabSize (the real target vocabulary size,
	// not Best: the original implementation only ever logs best_, it
	// never bounds padding by it) until the marked count is a multiple of
	// 8. Bounding by VocabSize instead of retrying indefinitely also
	// means this terminates even if every remaining id is already marked.
	for pad := uint32(t.Frequent); pad < uint32(t.VocabSize) && len(out)%8 != 0; pad++ {
		if _, ok := marked[pad]; !ok {
			marked[pad] = struct{}{}
			out = append(out, pad)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
