package index

import (
	"cmp"
	"slices"
	"sort"
)

// spanTree answers "which records cover this position" for one chromosome.
// A record covers the bases of its REF allele. The tree is a sorted slice
// and is rebuilt, not updated, when records are added.
type spanTree struct {
	spans  []span
	maxEnd []int64 // maxEnd[i] = max(end) for spans[:i+1]
}

type span struct {
	start, end int64
	rec        *Record
}

func buildSpanTree(records []*Record) *spanTree {
	if len(records) == 0 {
		return &spanTree{}
	}

	spans := make([]span, len(records))
	for i, r := range records {
		v := r.Variant
		spans[i] = span{start: v.Pos, end: v.Pos + int64(max(len(v.Ref), 1)) - 1, rec: r}
	}
	slices.SortStableFunc(spans, func(a, b span) int { return cmp.Compare(a.start, b.start) })

	maxEnd := make([]int64, len(spans))
	maxEnd[0] = spans[0].end
	for i := 1; i < len(spans); i++ {
		maxEnd[i] = max(spans[i].end, maxEnd[i-1])
	}
	return &spanTree{spans: spans, maxEnd: maxEnd}
}

// covering returns the records whose span contains pos, ordered by start.
func (t *spanTree) covering(pos int64) []*Record {
	// candidates all start at or before pos
	hi := sort.Search(len(t.spans), func(i int) bool { return t.spans[i].start > pos })

	var out []*Record
	for i := hi - 1; i >= 0; i-- {
		// nothing at or before i reaches pos
		if t.maxEnd[i] < pos {
			break
		}
		if t.spans[i].end >= pos {
			out = append(out, t.spans[i].rec)
		}
	}
	slices.Reverse(out)
	return out
}

// Covering returns the records on chrom whose REF allele spans pos, in
// position order. A deletion at 100 with REF ACGT covers 100 to 103.
func (m *MemoryIndex) Covering(chrom string, pos int64) []*Record {
	t, ok := m.spans[chrom]
	if !ok {
		var recs []*Record
		for _, l := range m.loci {
			if l.Chrom == chrom {
				recs = append(recs, m.byLocus[l])
			}
		}
		t = buildSpanTree(recs)
		if m.spans == nil {
			m.spans = make(map[string]*spanTree)
		}
		m.spans[chrom] = t
	}
	return t.covering(pos)
}
