package transform

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inodb/vibe-vcf/internal/output"
	"github.com/inodb/vibe-vcf/internal/vcf"
)

func openTestFile(t *testing.T, name string) *vcf.Parser {
	t.Helper()
	p, err := vcf.NewParser(findTestFile(t, name))
	require.NoError(t, err)
	t.Cleanup(func() { p.Close() })
	return p
}

func readTestFile(t *testing.T, name string) string {
	t.Helper()
	data, err := os.ReadFile(findTestFile(t, name))
	require.NoError(t, err)
	return string(data)
}

func dataLines(text string) []string {
	var out []string
	for _, line := range strings.Split(strings.TrimRight(text, "\n"), "\n") {
		if line != "" && !strings.HasPrefix(line, "#") {
			out = append(out, line)
		}
	}
	return out
}

func headerLines(text string) []string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		if strings.HasPrefix(line, "#") {
			out = append(out, line)
		}
	}
	return out
}

// addOutput adds t to p with a fresh buffer-backed writer.
func addOutput(p *Pipeline, t Transformation) *bytes.Buffer {
	var buf bytes.Buffer
	p.Add(t, output.NewVCFWriter(&buf))
	return &buf
}

func TestPipeline_NoTransformations(t *testing.T) {
	err := NewPipeline().Run(openTestFile(t, "sample.vcf"))
	assert.ErrorIs(t, err, ErrNoTransformations)

	err = NewPipeline().RunOrdered(openTestFile(t, "sample.vcf"), 2)
	assert.ErrorIs(t, err, ErrNoTransformations)
}

func TestPipeline_Identity(t *testing.T) {
	p := NewPipeline()
	buf := addOutput(p, Identity())
	require.NoError(t, p.Run(openTestFile(t, "sample.vcf")))

	assert.Equal(t, dataLines(readTestFile(t, "sample.vcf")), dataLines(buf.String()))
	assert.Equal(t, []int{6}, p.Written())
}

func TestPipeline_MultipleWriters(t *testing.T) {
	p := NewPipeline()
	dropped := addOutput(p, DropInfo("DB", "H2"))
	passing := addOutput(p, KeepPassing())
	rsids := addOutput(p, RSIDsOnlyFilter())
	raw := addOutput(p, AddRaw("note", "hello"))
	require.Equal(t, 4, p.Len())

	require.NoError(t, p.Run(openTestFile(t, "sample.vcf")))
	assert.Equal(t, []int{6, 4, 3, 6}, p.Written())

	t.Run("drop info", func(t *testing.T) {
		out := dropped.String()
		assert.NotContains(t, out, "##INFO=<ID=DB,")
		assert.NotContains(t, out, "##INFO=<ID=H2,")
		lines := dataLines(out)
		require.Len(t, lines, 6)
		assert.Contains(t, lines[0], "\tNS=3;DP=14;AF=0.5\t")
		assert.Contains(t, lines[2], "\tNS=2;DP=10;AF=0.333,0.667;AA=T\t")
	})

	t.Run("keep passing", func(t *testing.T) {
		var positions []string
		for _, line := range dataLines(passing.String()) {
			positions = append(positions, strings.Split(line, "\t")[1])
		}
		assert.Equal(t, []string{"14370", "1110696", "1230237", "1234567"}, positions)
	})

	t.Run("rsids only", func(t *testing.T) {
		var ids []string
		for _, line := range dataLines(rsids.String()) {
			ids = append(ids, strings.Split(line, "\t")[2])
		}
		assert.Equal(t, []string{"rs6054257", "rs6040355", "rs123;esv1"}, ids)
	})

	t.Run("add raw", func(t *testing.T) {
		assert.Contains(t, headerLines(raw.String()), "##note=hello")
		assert.NotContains(t, dropped.String(), "##note=hello")
		// records are not shared: DropInfo ran first on its own copy
		assert.Contains(t, dataLines(raw.String())[0], "\tNS=3;DP=14;AF=0.5;DB;H2\t")
	})
}

func TestPipeline_RecordLess(t *testing.T) {
	input := "##fileformat=VCFv4.2\n" +
		"#CHROM\tPOS\tID\tREF\tALT\tQUAL\tFILTER\tINFO\n"

	p := NewPipeline()
	first := addOutput(p, Identity())
	second := addOutput(p, AddRaw("source", "test"))
	require.NoError(t, p.Run(vcf.NewParserFromReader(strings.NewReader(input))))

	assert.Equal(t, input, first.String())
	assert.Equal(t, "##fileformat=VCFv4.2\n##source=test\n"+
		"#CHROM\tPOS\tID\tREF\tALT\tQUAL\tFILTER\tINFO\n", second.String())
	assert.Equal(t, []int{0, 0}, p.Written())
}

func TestPipeline_AsSink(t *testing.T) {
	r := openTestFile(t, "no_samples.vcf")
	md, err := r.Metadata()
	require.NoError(t, err)

	p := NewPipeline()
	buf := addOutput(p, Identity())
	require.NoError(t, r.Parse(p))
	require.NoError(t, p.Close(md))
	assert.Equal(t, readTestFile(t, "no_samples.vcf"), buf.String())
}

func TestPipeline_MetadataError(t *testing.T) {
	p := NewPipeline()
	addOutput(p, AddRaw("INFO", "x"))
	err := p.Run(openTestFile(t, "sample.vcf"))
	var fe *vcf.FormatError
	assert.ErrorAs(t, err, &fe)
}

type failAt struct {
	pos int64
}

var errBoom = errors.New("boom")

func (failAt) TransformMetadata(*vcf.Metadata) error { return nil }

func (f failAt) TransformRecord(_ *vcf.Metadata, v *vcf.Variant, _ []*vcf.Sample) (bool, error) {
	if v.Pos == f.pos {
		return false, errBoom
	}
	return true, nil
}

func TestPipeline_TransformError(t *testing.T) {
	p := NewPipeline()
	addOutput(p, failAt{pos: 1110696})
	err := p.Run(openTestFile(t, "sample.vcf"))
	assert.ErrorIs(t, err, errBoom)
	assert.Contains(t, err.Error(), "line 28")
}

func TestBuiltins(t *testing.T) {
	md, err := vcf.NewMetadata("VCFv4.2")
	require.NoError(t, err)
	dp, err := vcf.NewInfoEntry("DP", vcf.Number{Kind: vcf.NumberFixed, Count: 1}, vcf.TypeInteger, "Depth")
	require.NoError(t, err)
	require.NoError(t, md.Add(dp))

	newVariant := func() *vcf.Variant {
		info := vcf.NewInfo()
		info.Add("DP", "3")
		info.Add("DB")
		return &vcf.Variant{Chrom: "1", Pos: 5, IDs: []string{"rs5"}, Ref: "A", Info: info}
	}

	tests := []struct {
		name     string
		tr       Transformation
		mutate   func(v *vcf.Variant)
		wantKeep bool
		wantInfo string
	}{
		{"drop info", DropInfo("DP"), nil, true, "DB"},
		{"drop missing key", DropInfo("XX"), nil, true, "DP=3;DB"},
		{"keep passing", KeepPassing(), nil, true, "DP=3;DB"},
		{"keep passing failed", KeepPassing(), func(v *vcf.Variant) { v.Filters = []string{"q10"} }, false, "DP=3;DB"},
		{"rsids", RSIDsOnlyFilter(), nil, true, "DP=3;DB"},
		{"rsids none", RSIDsOnlyFilter(), func(v *vcf.Variant) { v.IDs = nil }, false, "DP=3;DB"},
		{"add raw", AddRaw("k", "v"), nil, true, "DP=3;DB"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := md.Clone()
			require.NoError(t, tt.tr.TransformMetadata(cmd))
			v := newVariant()
			if tt.mutate != nil {
				tt.mutate(v)
			}
			keep, err := tt.tr.TransformRecord(cmd, v, nil)
			require.NoError(t, err)
			assert.Equal(t, tt.wantKeep, keep)
			assert.Equal(t, tt.wantInfo, v.Info.String())
		})
	}

	cmd := md.Clone()
	require.NoError(t, DropInfo("DP").TransformMetadata(cmd))
	assert.Nil(t, cmd.Info("DP"))
	assert.NotNil(t, md.Info("DP"), "the input header is untouched")

	cmd = md.Clone()
	require.NoError(t, AddRaw("k", "v").TransformMetadata(cmd))
	assert.Equal(t, []string{"v"}, cmd.RawValues("k"))
}

func TestChain(t *testing.T) {
	md, err := vcf.NewMetadata("VCFv4.2")
	require.NoError(t, err)
	c := Chain(AddRaw("a", "1"), KeepPassing(), DropInfo("DP"), AddRaw("b", "2"))
	require.NoError(t, c.TransformMetadata(md))
	assert.Equal(t, []string{"1"}, md.RawValues("a"))
	assert.Equal(t, []string{"2"}, md.RawValues("b"))

	info := vcf.NewInfo()
	info.Add("DP", "3")
	v := &vcf.Variant{Chrom: "1", Pos: 1, Ref: "A", Info: info}
	keep, err := c.TransformRecord(md, v, nil)
	require.NoError(t, err)
	assert.True(t, keep)
	assert.Equal(t, ".", v.Info.String())

	// DropInfo never sees a record KeepPassing rejected
	info = vcf.NewInfo()
	info.Add("DP", "3")
	v = &vcf.Variant{Chrom: "1", Pos: 1, Ref: "A", Filters: []string{"q10"}, Info: info}
	keep, err = c.TransformRecord(md, v, nil)
	require.NoError(t, err)
	assert.False(t, keep)
	assert.Equal(t, "DP=3", v.Info.String())

	_, err = Chain(failAt{pos: 1}).TransformRecord(md, v, nil)
	assert.ErrorIs(t, err, errBoom)
}

// syntheticVCF returns a header plus n records on chromosome 1.
func syntheticVCF(n int) string {
	var b strings.Builder
	b.WriteString("##fileformat=VCFv4.2\n")
	b.WriteString("##INFO=<ID=DP,Number=1,Type=Integer,Description=\"Depth\">\n")
	b.WriteString("##FILTER=<ID=q10,Description=\"Quality below 10\">\n")
	b.WriteString("#CHROM\tPOS\tID\tREF\tALT\tQUAL\tFILTER\tINFO\n")
	for i := 0; i < n; i++ {
		id := "."
		if i%3 == 0 {
			id = fmt.Sprintf("rs%d", i)
		}
		filter := "PASS"
		if i%5 == 0 {
			filter = "q10"
		}
		fmt.Fprintf(&b, "1\t%d\t%s\tA\tC\t%d\t%s\tDP=%d\n", 100+i, id, i%60, filter, i)
	}
	return b.String()
}

func TestRunOrdered_MatchesRun(t *testing.T) {
	input := syntheticVCF(500)

	run := func(ordered bool, workers int) []string {
		p := NewPipeline()
		bufs := []*bytes.Buffer{
			addOutput(p, Identity()),
			addOutput(p, KeepPassing()),
			addOutput(p, RSIDsOnlyFilter()),
			addOutput(p, DropInfo("DP")),
		}
		r := vcf.NewParserFromReader(strings.NewReader(input))
		if ordered {
			require.NoError(t, p.RunOrdered(r, workers))
		} else {
			require.NoError(t, p.Run(r))
		}
		out := make([]string, len(bufs))
		for i, b := range bufs {
			out[i] = b.String()
		}
		return out
	}

	want := run(false, 0)
	assert.Equal(t, input, want[0])
	for _, workers := range []int{1, 4, 8} {
		t.Run(fmt.Sprintf("workers=%d", workers), func(t *testing.T) {
			assert.Equal(t, want, run(true, workers))
		})
	}
}

func TestRunOrdered_TransformError(t *testing.T) {
	p := NewPipeline()
	addOutput(p, Identity())
	addOutput(p, failAt{pos: 250})
	err := p.RunOrdered(vcf.NewParserFromReader(strings.NewReader(syntheticVCF(400))), 4)
	assert.ErrorIs(t, err, errBoom)
	// 4 header lines, record 150 is pos 250
	assert.Contains(t, err.Error(), "line 155")
}

func TestRunOrdered_ReadError(t *testing.T) {
	input := syntheticVCF(100) + "1\t999\t.\tA\n"
	p := NewPipeline()
	addOutput(p, Identity())
	err := p.RunOrdered(vcf.NewParserFromReader(strings.NewReader(input)), 4)

	var fe *vcf.FormatError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, 105, fe.Line)
	assert.Equal(t, []int{100}, p.Written(), "records before the bad line are written")
}

func TestOrderedCollect_Order(t *testing.T) {
	results := make(chan WorkResult, 100)
	// out of order arrival
	for i := 99; i >= 0; i-- {
		results <- WorkResult{Seq: i}
	}
	close(results)

	var collected []int
	err := OrderedCollect(results, func(r WorkResult) error {
		collected = append(collected, r.Seq)
		return nil
	})
	require.NoError(t, err)
	require.Len(t, collected, 100)
	for i, seq := range collected {
		assert.Equal(t, i, seq, "result %d out of order", i)
	}
}

func TestOrderedCollect_StopsOnError(t *testing.T) {
	results := make(chan WorkResult, 10)
	for i := 0; i < 10; i++ {
		results <- WorkResult{Seq: i}
	}
	close(results)

	calls := 0
	err := OrderedCollect(results, func(r WorkResult) error {
		calls++
		if r.Seq == 3 {
			return errBoom
		}
		return nil
	})
	assert.ErrorIs(t, err, errBoom)
	assert.Equal(t, 4, calls)
}

// findTestFile looks for a test file in the testdata directory.
func findTestFile(t *testing.T, name string) string {
	t.Helper()
	paths := []string{
		filepath.Join("testdata", name),
		filepath.Join("..", "..", "testdata", name),
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	t.Fatalf("test file not found: %s", name)
	return ""
}
