package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/inodb/vibe-vcf/internal/index"
	"github.com/inodb/vibe-vcf/internal/output"
	"github.com/inodb/vibe-vcf/internal/store"
	"github.com/inodb/vibe-vcf/internal/vcf"
)

func (a *app) newIndexCmd() *cobra.Command {
	var onDupID, onDupLocus string
	cmd := &cobra.Command{
		Use:   "index <input.vcf>",
		Short: "Load a VCF file into a persistent lookup index",
		Long: `Store every record of a VCF file in a badger database keyed by ID and by
chromosome and position, for later use with "vibe-vcf lookup".`,
		Example: `  vibe-vcf index input.vcf
  vibe-vcf index --store /data/idx --on-duplicate-locus keep-last input.vcf`,
		Args: usageArgs(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.bind(cmd, map[string]string{
				keyStore:     "store",
				keyRSIDsOnly: "rsids-only",
			}); err != nil {
				return err
			}
			idPolicy, locusPolicy, err := parsePolicies(onDupID, onDupLocus)
			if err != nil {
				return err
			}
			return a.runIndex(cmd, args[0], idPolicy, locusPolicy)
		},
	}
	cmd.Flags().String("store", "", "Index directory (default ~/.vibe-vcf/store)")
	cmd.Flags().Bool("rsids-only", false, "Skip records without an rs ID")
	addPolicyFlags(cmd, &onDupID, &onDupLocus)
	return cmd
}

func addPolicyFlags(cmd *cobra.Command, onDupID, onDupLocus *string) {
	cmd.Flags().StringVar(onDupID, "on-duplicate-id", index.Fail.String(),
		"Repeated ID: fail, keep-first, keep-last")
	cmd.Flags().StringVar(onDupLocus, "on-duplicate-locus", index.Fail.String(),
		"Repeated chromosome and position: fail, keep-first, keep-last")
}

func parsePolicies(onDupID, onDupLocus string) (idPolicy, locusPolicy index.DuplicatePolicy, err error) {
	if idPolicy, err = index.ParseDuplicatePolicy(onDupID); err != nil {
		return 0, 0, &usageError{err: err}
	}
	if locusPolicy, err = index.ParseDuplicatePolicy(onDupLocus); err != nil {
		return 0, 0, &usageError{err: err}
	}
	return idPolicy, locusPolicy, nil
}

func (a *app) openStore() (*store.Store, error) {
	path, err := a.dataPath(keyStore, "store")
	if err != nil {
		return nil, err
	}
	s, err := store.Open(path)
	if err != nil {
		return nil, err
	}
	s.SetLogger(a.logger)
	return s, nil
}

func (a *app) runIndex(cmd *cobra.Command, path string, idPolicy, locusPolicy index.DuplicatePolicy) error {
	p, err := a.openParser(cmd, path)
	if err != nil {
		return err
	}
	defer p.Close()

	s, err := a.openStore()
	if err != nil {
		return err
	}
	defer s.Close()
	s.SetDuplicatePolicies(idPolicy, locusPolicy)

	if err := p.Parse(s); err != nil {
		return err
	}
	n, err := s.Count()
	if err != nil {
		return err
	}
	a.logger.Info("indexed", zap.String("path", path), zap.Int("records", n))
	fmt.Fprintf(cmd.OutOrStdout(), "%d records indexed\n", n)
	return nil
}

type lookupOptions struct {
	id       string
	locus    string
	region   string
	covering string
	sample   string
	file     string
	onDupID  string
	onDupLoc string
}

func (a *app) newLookupCmd() *cobra.Command {
	var opts lookupOptions
	cmd := &cobra.Command{
		Use:   "lookup",
		Short: "Find records by ID, position or region",
		Long: `Print matching records as a genotype table. Records come from the index
built by "vibe-vcf index", or from a VCF file read into memory with --file.
With --sample only that sample's genotype is printed.`,
		Example: `  vibe-vcf lookup --id rs6054257
  vibe-vcf lookup --locus 20:14370 --sample NA00002
  vibe-vcf lookup --region 20:1-2000000
  vibe-vcf lookup --file input.vcf --id microsat1
  vibe-vcf lookup --file input.vcf --covering 20:1234569`,
		Args: usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.bind(cmd, map[string]string{keyStore: "store"}); err != nil {
				return err
			}
			return a.runLookup(cmd, opts)
		},
	}
	cmd.Flags().StringVar(&opts.id, "id", "", "Record ID")
	cmd.Flags().StringVar(&opts.locus, "locus", "", "Position as chrom:pos")
	cmd.Flags().StringVar(&opts.region, "region", "", "Region as chrom:start-end (index only)")
	cmd.Flags().StringVar(&opts.covering, "covering", "", "Records whose REF spans chrom:pos (--file only)")
	cmd.Flags().StringVar(&opts.sample, "sample", "", "Print this sample's genotype")
	cmd.Flags().StringVar(&opts.file, "file", "", "Read records from this VCF file instead of the index")
	cmd.Flags().String("store", "", "Index directory (default ~/.vibe-vcf/store)")
	addPolicyFlags(cmd, &opts.onDupID, &opts.onDupLoc)
	return cmd
}

// recordSource is what lookup needs from an index.
type recordSource interface {
	ByID(id string) (*index.Record, bool, error)
	AtLocus(chrom string, pos int64) (*index.Record, bool, error)
}

// memorySource adapts a MemoryIndex to recordSource.
type memorySource struct {
	m *index.MemoryIndex
}

func (s memorySource) ByID(id string) (*index.Record, bool, error) {
	rec, ok := s.m.ByID(id)
	return rec, ok, nil
}

func (s memorySource) AtLocus(chrom string, pos int64) (*index.Record, bool, error) {
	rec, ok := s.m.AtLocus(chrom, pos)
	return rec, ok, nil
}

func (a *app) runLookup(cmd *cobra.Command, opts lookupOptions) error {
	given := 0
	for _, s := range []string{opts.id, opts.locus, opts.region, opts.covering} {
		if s != "" {
			given++
		}
	}
	if given != 1 {
		return usageErrorf("exactly one of --id, --locus, --region or --covering is required")
	}
	if opts.region != "" && opts.file != "" {
		return usageErrorf("--region needs the index, not --file")
	}
	if opts.covering != "" && opts.file == "" {
		return usageErrorf("--covering needs --file")
	}

	var (
		src recordSource
		md  *vcf.Metadata
		err error
	)
	var st *store.Store
	if opts.file != "" {
		src, md, err = a.loadMemoryIndex(cmd, opts)
	} else {
		st, err = a.openStore()
		if err == nil {
			defer st.Close()
			src = st
			md, err = storeMetadata(st)
		}
	}
	if err != nil {
		return err
	}

	var records []*index.Record
	switch {
	case opts.id != "":
		rec, ok, err := src.ByID(opts.id)
		if err != nil {
			return err
		}
		if ok {
			records = append(records, rec)
		}
	case opts.locus != "":
		chrom, pos, err := parseLocus(opts.locus)
		if err != nil {
			return err
		}
		rec, ok, err := src.AtLocus(chrom, pos)
		if err != nil {
			return err
		}
		if ok {
			records = append(records, rec)
		}
	case opts.covering != "":
		chrom, pos, err := parseLocus(opts.covering)
		if err != nil {
			return err
		}
		records = src.(memorySource).m.Covering(chrom, pos)
	default:
		chrom, start, end, err := parseRegion(opts.region)
		if err != nil {
			return err
		}
		if err := st.Range(chrom, start, end, func(rec *index.Record) error {
			records = append(records, rec)
			return nil
		}); err != nil {
			return err
		}
	}
	if len(records) == 0 {
		return fmt.Errorf("no record found for %s", opts.id+opts.locus+opts.region+opts.covering)
	}

	if opts.sample != "" {
		return printGenotypes(cmd, md, records, opts.sample)
	}
	tw := output.NewTabWriter(cmd.OutOrStdout())
	for _, rec := range records {
		if err := tw.Accept(md, rec.Variant, rec.Samples); err != nil {
			return err
		}
	}
	return tw.Flush()
}

func (a *app) loadMemoryIndex(cmd *cobra.Command, opts lookupOptions) (recordSource, *vcf.Metadata, error) {
	idPolicy, locusPolicy, err := parsePolicies(opts.onDupID, opts.onDupLoc)
	if err != nil {
		return nil, nil, err
	}
	p, err := a.openParser(cmd, opts.file)
	if err != nil {
		return nil, nil, err
	}
	defer p.Close()

	m := index.New(idPolicy, locusPolicy)
	if err := p.Parse(m); err != nil {
		return nil, nil, err
	}
	md := m.Metadata()
	if md == nil {
		// no records: the header is still needed for the table
		if md, err = p.Metadata(); err != nil {
			return nil, nil, err
		}
	}
	a.logger.Debug("loaded file into memory", zap.Int("records", m.Len()), zap.Strings("chromosomes", m.Chromosomes()))
	return memorySource{m: m}, md, nil
}

// storeMetadata rebuilds enough of the header to name the sample columns.
func storeMetadata(s *store.Store) (*vcf.Metadata, error) {
	names, err := s.SampleNames()
	if err != nil {
		return nil, err
	}
	md, err := vcf.NewMetadata("VCFv4.2")
	if err != nil {
		return nil, err
	}
	if err := md.SetSampleNames(names); err != nil {
		return nil, err
	}
	return md, nil
}

func printGenotypes(cmd *cobra.Command, md *vcf.Metadata, records []*index.Record, sample string) error {
	i := md.SampleIndex(sample)
	if i < 0 {
		return fmt.Errorf("unknown sample %q", sample)
	}
	out := cmd.OutOrStdout()
	for _, rec := range records {
		v := rec.Variant
		g, ok, err := vcf.GenotypeOf(v, rec.Sample(i))
		if err != nil {
			return err
		}
		gt := "-"
		if ok {
			gt = g.String()
		}
		fmt.Fprintf(out, "%s:%d\t%s\t%s\n", v.Chrom, v.Pos, sample, gt)
	}
	return nil
}

func parseLocus(s string) (string, int64, error) {
	i := strings.LastIndexByte(s, ':')
	if i <= 0 {
		return "", 0, usageErrorf("locus %q: expected chrom:pos", s)
	}
	pos, err := strconv.ParseInt(s[i+1:], 10, 64)
	if err != nil {
		return "", 0, usageErrorf("locus %q: position is not a number", s)
	}
	return s[:i], pos, nil
}

func parseRegion(s string) (chrom string, start, end int64, err error) {
	i := strings.LastIndexByte(s, ':')
	from, to, ok := strings.Cut(s[i+1:], "-")
	if i <= 0 || !ok {
		return "", 0, 0, usageErrorf("region %q: expected chrom:start-end", s)
	}
	if start, err = strconv.ParseInt(from, 10, 64); err != nil {
		return "", 0, 0, usageErrorf("region %q: start is not a number", s)
	}
	if end, err = strconv.ParseInt(to, 10, 64); err != nil {
		return "", 0, 0, usageErrorf("region %q: end is not a number", s)
	}
	if end < start {
		return "", 0, 0, usageErrorf("region %q: end before start", s)
	}
	return s[:i], start, end, nil
}
