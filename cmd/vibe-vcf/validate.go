package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/inodb/vibe-vcf/internal/output"
	"github.com/inodb/vibe-vcf/internal/vcf"
)

func (a *app) newValidateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <input.vcf>",
		Short: "Check every record of a VCF file against its header",
		Long: `Parse a VCF file and run every record through the writer's consistency
checks without writing anything. FILTER, INFO and FORMAT keys missing from
the header are reported as warnings, or as errors with --strict.`,
		Example: `  vibe-vcf validate input.vcf
  vibe-vcf validate --strict input.vcf
  cat input.vcf | vibe-vcf validate -`,
		Args: usageArgs(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.bind(cmd, map[string]string{
				keyStrict:    "strict",
				keyRSIDsOnly: "rsids-only",
			}); err != nil {
				return err
			}
			return a.runValidate(cmd, args[0])
		},
	}
	cmd.Flags().Bool("strict", false, "Treat keys missing from the header as errors")
	cmd.Flags().Bool("rsids-only", false, "Skip records without an rs ID")
	return cmd
}

func (a *app) runValidate(cmd *cobra.Command, path string) error {
	p, err := a.openParser(cmd, path)
	if err != nil {
		return err
	}
	defer p.Close()

	md, err := p.Metadata()
	if err != nil {
		return err
	}

	w := output.NewVCFWriter(io.Discard)
	w.SetLogger(a.logger)
	w.SetStrict(a.v.GetBool(keyStrict))
	if err := w.WriteHeader(md); err != nil {
		return err
	}

	records := 0
	err = p.Parse(vcf.SinkFunc(func(md *vcf.Metadata, v *vcf.Variant, samples []*vcf.Sample) error {
		records++
		return w.Write(md, v, samples)
	}))
	if err != nil {
		return err
	}

	warnings := w.Warnings()
	for _, warn := range warnings {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: %s\n", warn)
	}
	a.logger.Info("validated", zap.String("path", path), zap.Int("records", records))
	fmt.Fprintf(cmd.OutOrStdout(), "%s: %s, %d samples, %d records, %d warnings\n",
		path, md.FileFormat(), md.SampleCount(), records, len(warnings))
	return nil
}
