package index

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inodb/vibe-vcf/internal/vcf"
)

func spanRecord(pos int64, ref string) *Record {
	return &Record{Variant: &vcf.Variant{Chrom: "1", Pos: pos, Ref: ref}}
}

func positions(recs []*Record) []int64 {
	var out []int64
	for _, r := range recs {
		out = append(out, r.Variant.Pos)
	}
	return out
}

func TestSpanTree_Empty(t *testing.T) {
	assert.Empty(t, buildSpanTree(nil).covering(100))
}

func TestSpanTree_Single(t *testing.T) {
	tree := buildSpanTree([]*Record{spanRecord(100, "ACGT")})

	assert.Equal(t, []int64{100}, positions(tree.covering(100)), "start inclusive")
	assert.Equal(t, []int64{100}, positions(tree.covering(103)), "end inclusive")
	assert.Empty(t, tree.covering(99))
	assert.Empty(t, tree.covering(104))
}

func TestSpanTree_Overlapping(t *testing.T) {
	tree := buildSpanTree([]*Record{
		spanRecord(200, strings.Repeat("A", 201)), // 200-400
		spanRecord(100, strings.Repeat("A", 201)), // 100-300
		spanRecord(150, strings.Repeat("A", 101)), // 150-250
	})

	assert.Equal(t, []int64{100, 150}, positions(tree.covering(175)))
	assert.Equal(t, []int64{100, 150, 200}, positions(tree.covering(250)))
	assert.Equal(t, []int64{200}, positions(tree.covering(350)))
	assert.Empty(t, tree.covering(401))
}

func TestSpanTree_Pruning(t *testing.T) {
	// a long record early on must still be found past shorter ones
	tree := buildSpanTree([]*Record{
		spanRecord(1, strings.Repeat("A", 1000)),
		spanRecord(10, "A"),
		spanRecord(20, "A"),
		spanRecord(30, "A"),
	})
	assert.Equal(t, []int64{1}, positions(tree.covering(500)))
	assert.Equal(t, []int64{1, 20}, positions(tree.covering(20)))
}

func TestMemoryIndex_Covering(t *testing.T) {
	idx := loadSample(t)

	// microsat1 has REF GTC
	assert.Equal(t, []int64{1234567}, positions(idx.Covering("20", 1234569)))
	assert.Empty(t, idx.Covering("20", 1234570))
	assert.Empty(t, idx.Covering("21", 14370))

	// new records invalidate the cached tree for their chromosome
	v, err := vcf.NewVariant("20", 1234568, nil, "TC", []string{"T"}, nil, nil, nil, nil)
	require.NoError(t, err)
	require.NoError(t, idx.Accept(idx.Metadata(), v, nil))
	assert.Equal(t, []int64{1234567, 1234568}, positions(idx.Covering("20", 1234569)))
}

func TestMemoryIndex_CoveringLongDeletion(t *testing.T) {
	input := "##fileformat=VCFv4.2\n" +
		"#CHROM\tPOS\tID\tREF\tALT\tQUAL\tFILTER\tINFO\n" +
		"1\t1\t.\t" + strings.Repeat("A", 20) + "\tA\t.\t.\t.\n" +
		"1\t5\t.\tA\tG\t.\t.\t.\n"
	idx := New(Fail, Fail)
	require.NoError(t, vcf.NewParserFromReader(strings.NewReader(input)).Parse(idx))

	assert.Equal(t, []int64{1}, positions(idx.Covering("1", 10)))
	assert.Equal(t, []int64{1, 5}, positions(idx.Covering("1", 5)))
	assert.Equal(t, []int64{1}, positions(idx.Covering("1", 20)))
	assert.Empty(t, idx.Covering("1", 21))
}
