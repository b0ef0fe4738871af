package xlate

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slimtgo/slimt/pkg/cache"
	"github.com/slimtgo/slimt/pkg/search"
)

// stubVocab decodes a segment's word ids as "w<id>" tokens joined by
// spaces, enough to exercise BuildResponse without a real tokenizer.
type stubVocab struct{}

func (stubVocab) PadID() uint32 { return 0 }
func (stubVocab) EosID() uint32 { return 1 }
func (stubVocab) Size() int     { return 100 }
func (stubVocab) Encode(s string) ([]uint32, [][2]int, error) {
	return nil, nil, nil
}
func (stubVocab) Decode(ids []uint32) (string, [][2]int, error) {
	out := ""
	for i, id := range ids {
		if i > 0 {
			out += " "
		}
		out += fmt.Sprintf("w%d", id)
	}
	return out, nil, nil
}

func TestNewFiresImmediatelyWithNoSegments(t *testing.T) {
	fired := false
	r := New(1, "m", "", nil, nil, nil, stubVocab{}, nil, func(*Request) { fired = true })
	assert.True(t, fired)
	assert.Empty(t, r.Pending())
}

func TestNewProbesCacheAndFiresOnFullHit(t *testing.T) {
	c := cache.New(8)
	seg := Segment{1, 2}
	c.Store(cache.Key("m", seg), search.History{Words: []uint32{9}})

	fired := false
	r := New(2, "m", "", []Segment{seg}, nil, []string{""}, stubVocab{}, c, func(*Request) { fired = true })
	assert.True(t, fired)
	assert.Empty(t, r.Pending())
	assert.Equal(t, []uint32{9}, r.Histories()[0].Words)
}

func TestPendingAndCompleteDriveTheContinuationOnce(t *testing.T) {
	fireCount := 0
	segs := []Segment{{1}, {2}}
	r := New(3, "m", "", segs, nil, []string{"", ""}, stubVocab{}, nil, func(*Request) { fireCount++ })
	require.Equal(t, 0, fireCount)
	assert.Equal(t, []int{0, 1}, r.Pending())

	r.Complete(0, search.History{Words: []uint32{10}})
	assert.Equal(t, 0, fireCount, "must not fire until every segment completes")

	r.Complete(1, search.History{Words: []uint32{20}})
	assert.Equal(t, 1, fireCount, "must fire exactly once")
}

func TestBuildResponseInterleavesGapsAndAlignments(t *testing.T) {
	var resp *Response
	segs := []Segment{{1, 2}, {3}}
	spans := [][2]int{{0, 6}, {9, 11}}
	r := New(4, "m", "source text", segs, spans, []string{" - ", ""}, stubVocab{}, nil, func(req *Request) {
		var err error
		resp, err = BuildResponse(req)
		require.NoError(t, err)
	})
	r.Complete(0, search.History{Words: []uint32{1, 2}, Alignment: [][]float32{{1}}})
	r.Complete(1, search.History{Words: []uint32{3}, Alignment: [][]float32{{0.5, 0.5}}})

	require.NotNil(t, resp)
	assert.Equal(t, "w1 w2 - w3", resp.TargetText)
	assert.Equal(t, "source text", resp.SourceText)
	assert.Equal(t, spans, resp.SourceSpans)
	assert.Len(t, resp.TargetSpans, 2)
	assert.Equal(t, [][]float32{{1}}, resp.Alignments[0])
	assert.Equal(t, [][]float32{{0.5, 0.5}}, resp.Alignments[1])
}

func TestSegmentRefOrderingAndLen(t *testing.T) {
	r1 := &Request{ID: 1, Segments: []Segment{{1, 2, 3}}}
	r2 := &Request{ID: 2, Segments: []Segment{{4}}}
	refs := []SegmentRef{
		{Request: r2, Index: 0},
		{Request: r1, Index: 0},
	}
	SortRefs(refs)
	assert.Equal(t, uint64(1), refs[0].Request.ID)
	assert.Equal(t, uint64(2), refs[1].Request.ID)
	assert.Equal(t, 3, refs[0].Len())
}
