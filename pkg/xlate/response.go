package xlate

import "strings"

// BuildResponse decodes every segment's target ids via the request's
// Vocabulary and reconstructs target text interleaved with the source
// gaps recorded between segments (spec.md §4.9).
func BuildResponse(r *Request) (*Response, error) {
	histories := r.Histories()
	var sb strings.Builder
	targetSpans := make([][2]int, 0, len(histories))
	alignments := make([][][]float32, len(histories))

	for i, h := range histories {
		text, _, err := r.Vocab.Decode(h.Words)
		if err != nil {
			return nil, err
		}
		start := sb.Len()
		sb.WriteString(text)
		targetSpans = append(targetSpans, [2]int{start, sb.Len()})
		alignments[i] = h.Alignment
		if i < len(r.SourceGaps) {
			sb.WriteString(r.SourceGaps[i])
		}
	}

	return &Response{
		SourceText:  r.AnnotatedText,
		TargetText:  sb.String(),
		SourceSpans: r.SourceSpans,
		TargetSpans: targetSpans,
		Alignments:  alignments,
	}, nil
}
