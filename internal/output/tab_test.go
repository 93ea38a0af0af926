package output

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inodb/vibe-vcf/internal/vcf"
)

func TestTabWriter_WriteHeader(t *testing.T) {
	md := newTestMetadata(t, "S1", "S2")
	var buf bytes.Buffer
	w := NewTabWriter(&buf)

	require.NoError(t, w.WriteHeader(md))
	require.NoError(t, w.Flush())

	assert.Equal(t, "#Uploaded_variation\tLocation\tID\tREF\tALT\tQUAL\tFILTER\tS1\tS2\n", buf.String())
}

func TestTabWriter_SampleFile(t *testing.T) {
	p := openTestFile(t, "sample.vcf")
	var buf bytes.Buffer
	w := NewTabWriter(&buf)
	require.NoError(t, p.Parse(w))
	require.NoError(t, w.Flush())

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 7)
	assert.Equal(t, "#Uploaded_variation\tLocation\tID\tREF\tALT\tQUAL\tFILTER\tNA00001\tNA00002\tNA00003", lines[0])

	tests := []struct {
		name string
		line int
		want string
	}{
		{"phased and homozygous", 1, "20_14370_G/A\t20:14370\trs6054257\tG\tA\t29\tPASS\tG|G\tA|G\tA|A"},
		{"multi-allelic", 3, "20_1110696_A/G,T\t20:1110696\trs6040355\tA\tG,T\t67\tPASS\tG|T\tT|G\tT|T"},
		{"no alt", 4, "20_1230237_T/-\t20:1230237\t-\tT\t-\t47\tPASS\tT|T\tT|T\tT|T"},
		{"no-call", 5, "20_1234567_GTC/G,GTCT\t20:1234567\tmicrosat1\tGTC\tG,GTCT\t50\tPASS\tGTC/G\tGTC/GTCT\t./."},
		{"symbolic", 6, "20_2000000_N/<DEL>\t20:2000000\trs123;esv1\tN\t<DEL>\t-\tq10;s50\t<DEL>|<DEL>\tN/<DEL>\t."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, lines[tt.line])
		})
	}
}

func TestTabWriter_MissingGenotype(t *testing.T) {
	md := newTestMetadata(t, "S1")
	var buf bytes.Buffer
	w := NewTabWriter(&buf)

	v := &vcf.Variant{Chrom: "1", Pos: 7, Ref: "A", Alt: []string{"C"}, Format: []string{"GQ"}}
	s, err := vcf.NewSample([]string{"GQ"}, []string{"10"})
	require.NoError(t, err)
	require.NoError(t, w.Accept(md, v, []*vcf.Sample{s}))
	require.NoError(t, w.Flush())

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "1_7_A/C\t1:7\t-\tA\tC\t-\tPASS\t-", lines[1])
}

func TestTabWriter_BadGenotype(t *testing.T) {
	var buf bytes.Buffer
	w := NewTabWriter(&buf)

	v := &vcf.Variant{Chrom: "1", Pos: 7, Ref: "A", Alt: []string{"C"}, Format: []string{"GT"}}
	s, err := vcf.NewSample([]string{"GT"}, []string{"0/4"})
	require.NoError(t, err)
	assert.Error(t, w.Write(v, []*vcf.Sample{s}))
}
