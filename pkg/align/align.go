// Package align implements the pivot alignment remap of spec.md §4.13
// (C13): combining two hops' alignments (source->pivot and
// pivot->target) into a single source->target alignment matrix.
package align

import (
	"github.com/slimtgo/slimt/pkg/tensor"
	"github.com/slimtgo/slimt/pkg/xlate"
)

// Combine merges a first-hop Response (source->pivot) and a second-hop
// Response (pivot->target) into one source->target Response by
// marginalizing p(s|t) = sum_q p(s|q)*p(q|t) with a matrix multiplication.
//
// Pivot tokens are paired by index: column q of the second hop's
// alignment is matched with step q of the first hop. No byte-range
// overlap between the two hops' pivot tokenizations is computed, so the
// result is exact only when the pivot text re-tokenizes to the same
// token sequence on both hops; second-hop columns past the first hop's
// step count are dropped.
func Combine(first, second *xlate.Response) *xlate.Response {
	n := len(first.Alignments)
	alignments := make([][][]float32, n)
	for i := 0; i < n && i < len(second.Alignments); i++ {
		alignments[i] = marginalize(first.Alignments[i], second.Alignments[i])
	}
	return &xlate.Response{
		SourceText:  first.SourceText,
		TargetText:  second.TargetText,
		SourceSpans: first.SourceSpans,
		TargetSpans: second.TargetSpans,
		Alignments:  alignments,
	}
}

// marginalize computes p(s|t) = sum_q p(s|q)*p(q|t) via matrix
// multiplication: pSQ is p(s|q) with T1 rows (pivot-producing steps) and
// S columns (source tokens); pQT is p(q|t) with T2 rows (target steps)
// and Q columns (pivot tokens). Assumes Q == T1 (identity pivot overlap,
// see Combine's doc comment).
func marginalize(pSQ, pQT [][]float32) [][]float32 {
	if len(pSQ) == 0 || len(pQT) == 0 {
		return nil
	}
	t1, s := len(pSQ), len(pSQ[0])
	t2 := len(pQT)

	a, err := tensor.New(tensor.F32, 1, t2, t1)
	if err != nil {
		return nil
	}
	av := a.Float32s()
	for t := 0; t < t2; t++ {
		row := pQT[t]
		for q := 0; q < t1 && q < len(row); q++ {
			av[t*t1+q] = row[q]
		}
	}

	b, err := tensor.New(tensor.F32, 1, t1, s)
	if err != nil {
		return nil
	}
	bv := b.Float32s()
	for q := 0; q < t1; q++ {
		row := pSQ[q]
		for si := 0; si < s && si < len(row); si++ {
			bv[q*s+si] = row[si]
		}
	}

	out, err := tensor.New(tensor.F32, 1, t2, s)
	if err != nil {
		return nil
	}
	if err := tensor.BatchMatMul(out, a, b); err != nil {
		return nil
	}

	ov := out.Float32s()
	result := make([][]float32, t2)
	for t := 0; t < t2; t++ {
		result[t] = append([]float32(nil), ov[t*s:t*s+s]...)
	}
	return result
}
