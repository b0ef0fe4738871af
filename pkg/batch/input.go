// Package batch implements the packed batch tensor of spec.md §4.7 (C8):
// variable-length token sequences laid out into a rectangular [B,T]
// tensor plus a padding mask.
package batch

import (
	"errors"

	"github.com/slimtgo/slimt/pkg/tensor"
)

var (
	ErrFull        = errors.New("batch: input is full")
	ErrTooLong     = errors.New("batch: row exceeds declared width")
)

// Input is a pre-allocated [B,T] batch (spec.md §3/§4.7).
type Input struct {
	Indices     *tensor.Tensor // U32 [B,T]
	Mask        *tensor.Tensor // F32 [B,T]
	PadID       uint32
	LimitFactor float64

	b, t  int
	index int // rows [0,index) are populated
}

// New pre-allocates indices[B,T] and mask[B,T], all-pad (spec.md §4.7).
func New(b, t int, padID uint32, limitFactor float64) (*Input, error) {
	indices, err := tensor.New(tensor.U32, b, t)
	if err != nil {
		return nil, err
	}
	mask, err := tensor.New(tensor.F32, b, t)
	if err != nil {
		return nil, err
	}
	iv := indices.Uint32s()
	for i := range iv {
		iv[i] = padID
	}
	return &Input{Indices: indices, Mask: mask, PadID: padID, LimitFactor: limitFactor, b: b, t: t}, nil
}

// Add appends words at the next free row: copies words into
// indices[i,0..len], pads the rest, and sets the mask accordingly
// (spec.md §4.7).
func (in *Input) Add(words []uint32) error {
	if in.index >= in.b {
		return ErrFull
	}
	if len(words) > in.t {
		return ErrTooLong
	}
	i := in.index
	iv := in.Indices.Uint32s()
	mv := in.Mask.Float32s()
	base := i * in.t
	for j := 0; j < in.t; j++ {
		if j < len(words) {
			iv[base+j] = words[j]
			mv[base+j] = 1.0
		} else {
			iv[base+j] = in.PadID
			mv[base+j] = 0.0
		}
	}
	in.index++
	return nil
}

// Occupied returns the number of rows populated so far.
func (in *Input) Occupied() int { return in.index }

// Occupancy is used_tokens / (B*T), for batching telemetry (spec.md §4.7).
func (in *Input) Occupancy() float64 {
	used := 0
	mv := in.Mask.Float32s()
	for _, m := range mv {
		if m != 0 {
			used++
		}
	}
	return float64(used) / float64(in.b*in.t)
}
