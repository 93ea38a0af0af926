package main

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type result struct {
	code   int
	stdout string
	stderr string
}

// runCLI runs the command line with an isolated home directory and config
// file.
func runCLI(t *testing.T, stdin io.Reader, args ...string) result {
	t.Helper()
	if stdin == nil {
		stdin = strings.NewReader("")
	}
	var stdout, stderr bytes.Buffer
	code := run(args, stdin, &stdout, &stderr)
	return result{code: code, stdout: stdout.String(), stderr: stderr.String()}
}

func setupHome(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	return home
}

func writeVCF(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "input.vcf")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const undeclaredFilter = "##fileformat=VCFv4.2\n" +
	"#CHROM\tPOS\tID\tREF\tALT\tQUAL\tFILTER\tINFO\n" +
	"1\t10\trs1\tA\tC\t.\tq99\t.\n"

func dataLines(text string) []string {
	var out []string
	for _, line := range strings.Split(strings.TrimRight(text, "\n"), "\n") {
		if line != "" && !strings.HasPrefix(line, "#") {
			out = append(out, line)
		}
	}
	return out
}

func TestRun_Usage(t *testing.T) {
	setupHome(t)

	r := runCLI(t, nil, "--version")
	assert.Equal(t, ExitSuccess, r.code)
	assert.Contains(t, r.stdout, "dev")

	tests := []struct {
		name string
		args []string
	}{
		{"unknown command", []string{"frobnicate"}},
		{"missing input", []string{"validate"}},
		{"unknown flag", []string{"validate", "--nope", "x.vcf"}},
		{"not a vcf file", []string{"validate", "input.txt"}},
		{"bad output format", []string{"normalize", "-f", "maf", "x.vcf"}},
		{"bad add-raw", []string{"normalize", "--add-raw", "novalue", "x.vcf"}},
		{"lookup without key", []string{"lookup"}},
		{"lookup with two keys", []string{"lookup", "--id", "a", "--locus", "1:1"}},
		{"bad policy", []string{"index", "--on-duplicate-id", "sometimes", "x.vcf"}},
		{"bad log level", []string{"--log-level", "loud", "validate", "x.vcf"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := runCLI(t, nil, tt.args...)
			assert.Equal(t, ExitUsage, r.code, r.stderr)
			assert.Contains(t, r.stderr, "Error:")
		})
	}
}

func TestValidate(t *testing.T) {
	setupHome(t)
	sample := findTestFile(t, "sample.vcf")

	r := runCLI(t, nil, "validate", sample)
	require.Equal(t, ExitSuccess, r.code, r.stderr)
	assert.Contains(t, r.stdout, "VCFv4.2, 3 samples, 6 records, 0 warnings")

	path := writeVCF(t, undeclaredFilter)
	r = runCLI(t, nil, "validate", path)
	require.Equal(t, ExitSuccess, r.code, r.stderr)
	assert.Contains(t, r.stdout, "1 records, 1 warnings")
	assert.Contains(t, r.stderr, "q99")

	r = runCLI(t, nil, "validate", "--strict", path)
	assert.Equal(t, ExitError, r.code)

	t.Setenv("VIBE_VCF_WRITER_STRICT", "true")
	r = runCLI(t, nil, "validate", path)
	assert.Equal(t, ExitError, r.code, "strict mode from the environment")
}

func TestValidate_Stdin(t *testing.T) {
	setupHome(t)
	data, err := os.ReadFile(findTestFile(t, "sample.vcf"))
	require.NoError(t, err)

	r := runCLI(t, bytes.NewReader(data), "validate", "--rsids-only", "-")
	require.Equal(t, ExitSuccess, r.code, r.stderr)
	assert.Contains(t, r.stdout, "3 records")

	r = runCLI(t, strings.NewReader("not a vcf\n"), "validate", "-")
	assert.Equal(t, ExitError, r.code)
}

func TestNormalize(t *testing.T) {
	setupHome(t)
	sample := findTestFile(t, "sample.vcf")

	r := runCLI(t, nil, "normalize", sample)
	require.Equal(t, ExitSuccess, r.code, r.stderr)
	raw, err := os.ReadFile(sample)
	require.NoError(t, err)
	assert.Equal(t, dataLines(string(raw)), dataLines(r.stdout))

	r = runCLI(t, nil, "normalize", "--pass-only", "--drop-info", "DB,H2", "--add-raw", "note=x", sample)
	require.Equal(t, ExitSuccess, r.code, r.stderr)
	assert.Contains(t, r.stdout, "##note=x\n")
	assert.NotContains(t, r.stdout, "ID=DB,")
	lines := dataLines(r.stdout)
	require.Len(t, lines, 4)
	assert.Contains(t, lines[0], "\tNS=3;DP=14;AF=0.5\t")

	out := filepath.Join(t.TempDir(), "out.vcf")
	r = runCLI(t, nil, "normalize", "--rsids", "-o", out, sample)
	require.Equal(t, ExitSuccess, r.code, r.stderr)
	assert.Empty(t, r.stdout)
	written, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Len(t, dataLines(string(written)), 3)
}

func TestNormalize_Workers(t *testing.T) {
	setupHome(t)
	sample := findTestFile(t, "sample.vcf")

	one := runCLI(t, nil, "normalize", "--drop-info", "AF", "--workers", "1", sample)
	require.Equal(t, ExitSuccess, one.code, one.stderr)
	four := runCLI(t, nil, "normalize", "--drop-info", "AF", "--workers", "4", sample)
	require.Equal(t, ExitSuccess, four.code, four.stderr)
	assert.Equal(t, one.stdout, four.stdout)
}

func TestNormalize_Tab(t *testing.T) {
	setupHome(t)
	r := runCLI(t, nil, "normalize", "-f", "tab", "--pass-only", findTestFile(t, "sample.vcf"))
	require.Equal(t, ExitSuccess, r.code, r.stderr)

	lines := strings.Split(strings.TrimRight(r.stdout, "\n"), "\n")
	require.Len(t, lines, 5)
	assert.Equal(t, "#Uploaded_variation\tLocation\tID\tREF\tALT\tQUAL\tFILTER\tNA00001\tNA00002\tNA00003", lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "20_14370_G/A\t20:14370\trs6054257\t"), lines[1])
}

func TestIndexAndLookup(t *testing.T) {
	setupHome(t)
	storeDir := filepath.Join(t.TempDir(), "store")
	sample := findTestFile(t, "sample.vcf")

	r := runCLI(t, nil, "index", "--store", storeDir, sample)
	require.Equal(t, ExitSuccess, r.code, r.stderr)
	assert.Equal(t, "6 records indexed\n", r.stdout)

	r = runCLI(t, nil, "lookup", "--store", storeDir, "--id", "rs6054257")
	require.Equal(t, ExitSuccess, r.code, r.stderr)
	lines := strings.Split(strings.TrimRight(r.stdout, "\n"), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[1], "20_14370_G/A\t"), lines[1])

	r = runCLI(t, nil, "lookup", "--store", storeDir, "--locus", "20:1110696", "--sample", "NA00002")
	require.Equal(t, ExitSuccess, r.code, r.stderr)
	assert.Equal(t, "20:1110696\tNA00002\tT|G\n", r.stdout)

	r = runCLI(t, nil, "lookup", "--store", storeDir, "--region", "20:1-1110696")
	require.Equal(t, ExitSuccess, r.code, r.stderr)
	assert.Len(t, strings.Split(strings.TrimRight(r.stdout, "\n"), "\n"), 4)

	r = runCLI(t, nil, "lookup", "--store", storeDir, "--id", "rs0")
	assert.Equal(t, ExitError, r.code)

	r = runCLI(t, nil, "lookup", "--store", storeDir, "--id", "rs6054257", "--sample", "nobody")
	assert.Equal(t, ExitError, r.code)
}

func TestLookup_File(t *testing.T) {
	setupHome(t)
	sample := findTestFile(t, "sample.vcf")

	r := runCLI(t, nil, "lookup", "--file", sample, "--id", "microsat1", "--sample", "NA00003")
	require.Equal(t, ExitSuccess, r.code, r.stderr)
	assert.Equal(t, "20:1234567\tNA00003\t./.\n", r.stdout)

	r = runCLI(t, nil, "lookup", "--file", sample, "--covering", "20:1234569")
	require.Equal(t, ExitSuccess, r.code, r.stderr)
	lines := strings.Split(strings.TrimRight(r.stdout, "\n"), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[1], "20_1234567_GTC/G,GTCT\t"), lines[1])

	r = runCLI(t, nil, "lookup", "--file", sample, "--region", "20:1-2")
	assert.Equal(t, ExitUsage, r.code)
	r = runCLI(t, nil, "lookup", "--covering", "20:1")
	assert.Equal(t, ExitUsage, r.code)
}

func TestIngestAndSources(t *testing.T) {
	setupHome(t)
	db := filepath.Join(t.TempDir(), "vcf.duckdb")
	sample := findTestFile(t, "sample.vcf")

	r := runCLI(t, nil, "ingest", "--db", db, "--batch-size", "2", sample)
	require.Equal(t, ExitSuccess, r.code, r.stderr)
	assert.True(t, strings.HasPrefix(r.stdout, "source\t"), r.stdout)
	assert.Contains(t, r.stdout, "\n20\t6\n")

	r = runCLI(t, nil, "ingest", "--db", db, sample)
	require.Equal(t, ExitSuccess, r.code, r.stderr)
	assert.Contains(t, r.stdout, "already ingested")

	r = runCLI(t, nil, "sources", "--db", db)
	require.Equal(t, ExitSuccess, r.code, r.stderr)
	lines := strings.Split(strings.TrimRight(r.stdout, "\n"), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[1], "VCFv4.2")
	id := strings.Fields(lines[1])[0]

	r = runCLI(t, nil, "sources", "--db", db, "--delete", id)
	require.Equal(t, ExitSuccess, r.code, r.stderr)
	r = runCLI(t, nil, "sources", "--db", db)
	require.Equal(t, ExitSuccess, r.code, r.stderr)
	assert.Len(t, strings.Split(strings.TrimRight(r.stdout, "\n"), "\n"), 1)

	r = runCLI(t, nil, "ingest", "--db", db, "-")
	assert.Equal(t, ExitUsage, r.code)
}

func TestConfig(t *testing.T) {
	setupHome(t)
	cfg := filepath.Join(t.TempDir(), "config.yaml")

	r := runCLI(t, nil, "--config", cfg, "config", "set", "writer.strict", "yes")
	require.Equal(t, ExitSuccess, r.code, r.stderr)
	assert.Contains(t, r.stdout, "Set writer.strict = yes in "+cfg)

	r = runCLI(t, nil, "--config", cfg, "config", "get", "writer.strict")
	require.Equal(t, ExitSuccess, r.code, r.stderr)
	assert.Equal(t, "true\n", r.stdout)

	r = runCLI(t, nil, "--config", cfg, "config")
	require.Equal(t, ExitSuccess, r.code, r.stderr)
	assert.Contains(t, r.stdout, "strict: true")

	r = runCLI(t, nil, "--config", cfg, "config", "get", "no.such.key")
	assert.Equal(t, ExitError, r.code)

	// the stored setting applies to later commands
	r = runCLI(t, nil, "--config", cfg, "validate", writeVCF(t, undeclaredFilter))
	assert.Equal(t, ExitError, r.code)
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
