package duckdb

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inodb/vibe-vcf/internal/vcf"
)

func openInMemory(t *testing.T) *Store {
	t.Helper()
	s, err := Open("")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

// ingestSample loads testdata/sample.vcf and returns its source id.
func ingestSample(t *testing.T, s *Store, batchSize int) string {
	t.Helper()
	path := findTestFile(t, "sample.vcf")
	fp, err := StatFile(path)
	require.NoError(t, err)

	in, err := s.NewIngester(fp)
	require.NoError(t, err)
	in.SetBatchSize(batchSize)

	p, err := vcf.NewParser(path)
	require.NoError(t, err)
	defer p.Close()
	require.NoError(t, p.Parse(in))
	require.NoError(t, in.Close())
	return in.SourceID()
}

func TestOpenClose(t *testing.T) {
	s := openInMemory(t)
	assert.NotNil(t, s.DB())
}

func TestOpen_CreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "vcf.duckdb")
	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.Close())
	_, err = os.Stat(path)
	assert.NoError(t, err)
}

func TestIngest_Variants(t *testing.T) {
	s := openInMemory(t)
	id := ingestSample(t, s, 2)
	_, err := uuid.Parse(id)
	require.NoError(t, err, "source ids are uuids")

	counts, err := s.CountByChrom(id)
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"20": 6}, counts)

	rows, err := s.LookupLocus("20", 1110696)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	r := rows[0]
	assert.Equal(t, id, r.SourceID)
	assert.Equal(t, int64(2), r.RecordIdx)
	assert.Equal(t, []string{"rs6040355"}, r.IDs)
	assert.Equal(t, []string{"G", "T"}, r.Alt)
	require.NotNil(t, r.Qual)
	assert.InDelta(t, 67.0, *r.Qual, 1e-9)
	assert.Empty(t, r.Filters)
	assert.Equal(t, "NS=2;DP=10;AF=0.333,0.667;AA=T;DB", r.Info)
	assert.Equal(t, []string{"GT", "GQ", "DP", "HQ"}, r.Format)

	rows, err = s.LookupID("esv1")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, int64(2000000), rows[0].Pos)
	assert.Nil(t, rows[0].Qual)
	assert.Equal(t, []string{"q10", "s50"}, rows[0].Filters)

	rows, err = s.LookupID("rs1")
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestIngest_Genotypes(t *testing.T) {
	s := openInMemory(t)
	id := ingestSample(t, s, 100)

	gts, err := s.Genotypes(id, 0)
	require.NoError(t, err)
	require.Len(t, gts, 3)
	byName := make(map[string]GenotypeRow)
	for _, g := range gts {
		byName[g.Sample] = g
	}
	assert.Equal(t, GenotypeRow{Sample: "NA00002", GT: "1|0", Alleles: "A|G", Phased: true}, byName["NA00002"])
	assert.Equal(t, GenotypeRow{Sample: "NA00003", GT: "1/1", Alleles: "A|A", Phased: true}, byName["NA00003"])

	gts, err = s.Genotypes(id, 4)
	require.NoError(t, err)
	byName = make(map[string]GenotypeRow)
	for _, g := range gts {
		byName[g.Sample] = g
	}
	assert.Equal(t, GenotypeRow{Sample: "NA00001", GT: "0/1", Alleles: "GTC/G", Phased: false}, byName["NA00001"])
}

func TestIngest_BadGenotypeLeavesNoRows(t *testing.T) {
	input := "##fileformat=VCFv4.2\n" +
		"#CHROM\tPOS\tID\tREF\tALT\tQUAL\tFILTER\tINFO\tFORMAT\tS1\tS2\n" +
		"1\t10\trs1\tA\tC\t.\tPASS\tDP=1\tGT\t0|1\t1|1\n" +
		"1\t20\trs2\tA\tC\t.\tPASS\tDP=2\tGT\t0|1\t0|5\n" +
		"1\t30\trs3\tA\tC\t.\tPASS\tDP=3\tGT\t0/0\t0/1\n"

	s := openInMemory(t)
	in, err := s.NewIngester(FileFingerprint{Path: "bad.vcf"})
	require.NoError(t, err)

	p := vcf.NewParserFromReader(strings.NewReader(input))
	md, err := p.Metadata()
	require.NoError(t, err)
	var accepted []error
	for {
		v, samples, err := p.Next()
		require.NoError(t, err)
		if v == nil {
			break
		}
		accepted = append(accepted, in.Accept(md, v, samples))
	}
	require.Len(t, accepted, 3)
	assert.NoError(t, accepted[0])
	assert.Error(t, accepted[1])
	assert.NoError(t, accepted[2])
	require.NoError(t, in.Close())

	counts, err := s.CountByChrom(in.SourceID())
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"1": 2}, counts)

	dp, err := s.InfoValues(in.SourceID(), "DP")
	require.NoError(t, err)
	assert.Equal(t, map[int64]string{0: "1", 1: "3"}, dp)

	gts, err := s.Genotypes(in.SourceID(), 1)
	require.NoError(t, err)
	require.Len(t, gts, 2)
	for _, g := range gts {
		assert.Contains(t, []string{"0/0", "0/1"}, g.GT)
	}
}

func TestIngest_Info(t *testing.T) {
	s := openInMemory(t)
	id := ingestSample(t, s, 3)

	af, err := s.InfoValues(id, "AF")
	require.NoError(t, err)
	assert.Equal(t, map[int64]string{0: "0.5", 1: "0.017", 2: "0.333,0.667"}, af)

	db, err := s.InfoValues(id, "DB")
	require.NoError(t, err)
	assert.Equal(t, map[int64]string{0: "", 2: ""}, db)
}

func TestSources(t *testing.T) {
	s := openInMemory(t)
	path := findTestFile(t, "sample.vcf")
	fp, err := StatFile(path)
	require.NoError(t, err)

	_, ok, err := s.FindSource(fp)
	require.NoError(t, err)
	assert.False(t, ok)

	// an unfinished run is not reported as ingested
	in, err := s.NewIngester(fp)
	require.NoError(t, err)
	_, ok, err = s.FindSource(fp)
	require.NoError(t, err)
	assert.False(t, ok)
	require.NoError(t, s.DeleteSource(in.SourceID()))

	id := ingestSample(t, s, 10)
	found, ok, err := s.FindSource(fp)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, id, found)

	sources, err := s.Sources()
	require.NoError(t, err)
	require.Len(t, sources, 1)
	assert.Equal(t, "VCFv4.2", sources[0].FileFormat)
	assert.Equal(t, []string{"NA00001", "NA00002", "NA00003"}, sources[0].Samples)
	assert.Equal(t, int64(6), sources[0].RecordCount)
	assert.True(t, sources[0].Complete)

	require.NoError(t, s.DeleteSource(id))
	rows, err := s.LookupLocus("20", 14370)
	require.NoError(t, err)
	assert.Empty(t, rows)
	sources, err = s.Sources()
	require.NoError(t, err)
	assert.Empty(t, sources)
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
