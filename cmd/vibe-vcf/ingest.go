package main

import (
	"fmt"
	"slices"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/inodb/vibe-vcf/internal/duckdb"
)

func (a *app) newIngestCmd() *cobra.Command {
	var (
		force     bool
		batchSize int
	)
	cmd := &cobra.Command{
		Use:   "ingest <input.vcf>",
		Short: "Load a VCF file into a DuckDB database",
		Long: `Bulk-load the records, INFO entries and genotypes of a VCF file into
DuckDB. Each run is recorded as a source with its own id. A file that was
already loaded and has not changed since is skipped unless --force is given.`,
		Example: `  vibe-vcf ingest input.vcf
  vibe-vcf ingest --db /data/vcf.duckdb --force input.vcf`,
		Args: usageArgs(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.bind(cmd, map[string]string{
				keyDuckDB:    "db",
				keyRSIDsOnly: "rsids-only",
			}); err != nil {
				return err
			}
			return a.runIngest(cmd, args[0], force, batchSize)
		},
	}
	cmd.Flags().String("db", "", "DuckDB database path (default ~/.vibe-vcf/vcf.duckdb)")
	cmd.Flags().Bool("rsids-only", false, "Skip records without an rs ID")
	cmd.Flags().BoolVar(&force, "force", false, "Load the file even if it was loaded before")
	cmd.Flags().IntVar(&batchSize, "batch-size", duckdb.DefaultBatchSize, "Records per bulk insert")
	return cmd
}

func (a *app) openDuckDB() (*duckdb.Store, error) {
	path, err := a.dataPath(keyDuckDB, "vcf.duckdb")
	if err != nil {
		return nil, err
	}
	return duckdb.Open(path)
}

func (a *app) runIngest(cmd *cobra.Command, path string, force bool, batchSize int) error {
	if path == "-" {
		return usageErrorf("ingest needs a file path, not stdin")
	}
	fp, err := duckdb.StatFile(path)
	if err != nil {
		return err
	}

	db, err := a.openDuckDB()
	if err != nil {
		return err
	}
	defer db.Close()

	if !force {
		id, ok, err := db.FindSource(fp)
		if err != nil {
			return err
		}
		if ok {
			fmt.Fprintf(cmd.OutOrStdout(), "%s already ingested as %s\n", path, id)
			return nil
		}
	}

	p, err := a.openParser(cmd, path)
	if err != nil {
		return err
	}
	defer p.Close()

	in, err := db.NewIngester(fp)
	if err != nil {
		return err
	}
	in.SetLogger(a.logger)
	in.SetBatchSize(batchSize)

	start := time.Now()
	if err := p.Parse(in); err != nil {
		if derr := db.DeleteSource(in.SourceID()); derr != nil {
			a.logger.Warn("removing partial source", zap.String("source", in.SourceID()), zap.Error(derr))
		}
		return err
	}
	if err := in.Close(); err != nil {
		return err
	}
	a.logger.Info("ingested",
		zap.String("path", path),
		zap.String("source", in.SourceID()),
		zap.Duration("elapsed", time.Since(start)))

	counts, err := db.CountByChrom(in.SourceID())
	if err != nil {
		return err
	}
	chroms := make([]string, 0, len(counts))
	for c := range counts {
		chroms = append(chroms, c)
	}
	slices.Sort(chroms)

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "source\t%s\n", in.SourceID())
	for _, c := range chroms {
		fmt.Fprintf(out, "%s\t%d\n", c, counts[c])
	}
	return nil
}

func (a *app) newSourcesCmd() *cobra.Command {
	var remove string
	cmd := &cobra.Command{
		Use:   "sources",
		Short: "List or delete ingested VCF files",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.bind(cmd, map[string]string{keyDuckDB: "db"}); err != nil {
				return err
			}
			db, err := a.openDuckDB()
			if err != nil {
				return err
			}
			defer db.Close()

			if remove != "" {
				if err := db.DeleteSource(remove); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", remove)
				return nil
			}

			sources, err := db.Sources()
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "SOURCE\tPATH\tFORMAT\tSAMPLES\tRECORDS\tCOMPLETE\tINGESTED")
			for _, s := range sources {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%t\t%s\n",
					s.ID, s.Path, s.FileFormat, len(s.Samples), s.RecordCount, s.Complete,
					s.IngestedAt.Format(time.RFC3339))
			}
			return tw.Flush()
		},
	}
	cmd.Flags().String("db", "", "DuckDB database path (default ~/.vibe-vcf/vcf.duckdb)")
	cmd.Flags().StringVar(&remove, "delete", "", "Delete the source with this id")
	return cmd
}
