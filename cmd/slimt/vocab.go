package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/slimtgo/slimt/pkg/vocab"
)

// idVocab is a minimal stand-in pkg/vocab.Vocabulary for the CLI demo.
// It treats a source string as a list of whitespace-separated decimal
// token ids, rather than running a real sub-word tokenizer: tokenization
// is an external collaborator concern the core never implements (spec.md
// §1), so the demo CLI needs some concrete Vocabulary to drive the engine
// end to end and this is the simplest one that round-trips exactly.
type idVocab struct {
	padID, eosID uint32
	size         int
}

var _ vocab.Vocabulary = (*idVocab)(nil)

func newIDVocab(padID, eosID uint32, size int) *idVocab {
	return &idVocab{padID: padID, eosID: eosID, size: size}
}

func (v *idVocab) PadID() uint32 { return v.padID }
func (v *idVocab) EosID() uint32 { return v.eosID }
func (v *idVocab) Size() int     { return v.size }

func (v *idVocab) Encode(s string) ([]uint32, [][2]int, error) {
	fields := strings.Fields(s)
	ids := make([]uint32, 0, len(fields))
	spans := make([][2]int, 0, len(fields))
	pos := 0
	for _, f := range fields {
		start := strings.Index(s[pos:], f) + pos
		id, err := strconv.ParseUint(f, 10, 32)
		if err != nil {
			return nil, nil, fmt.Errorf("idvocab: %q is not a token id: %w", f, err)
		}
		ids = append(ids, uint32(id))
		spans = append(spans, [2]int{start, start + len(f)})
		pos = start + len(f)
	}
	return ids, spans, nil
}

func (v *idVocab) Decode(ids []uint32) (string, [][2]int, error) {
	parts := make([]string, len(ids))
	spans := make([][2]int, len(ids))
	pos := 0
	for i, id := range ids {
		parts[i] = strconv.FormatUint(uint64(id), 10)
		if i > 0 {
			pos++
		}
		spans[i] = [2]int{pos, pos + len(parts[i])}
		pos += len(parts[i])
	}
	return strings.Join(parts, " "), spans, nil
}
