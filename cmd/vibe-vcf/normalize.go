package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/inodb/vibe-vcf/internal/output"
	"github.com/inodb/vibe-vcf/internal/transform"
	"github.com/inodb/vibe-vcf/internal/vcf"
)

type normalizeOptions struct {
	outputFile   string
	outputFormat string
	dropInfo     []string
	passOnly     bool
	rsidsFilter  bool
	addRaw       []string
}

func (a *app) newNormalizeCmd() *cobra.Command {
	var opts normalizeOptions
	cmd := &cobra.Command{
		Use:   "normalize <input.vcf>",
		Short: "Rewrite a VCF file, optionally transforming it",
		Long: `Read a VCF file and write it back in canonical form: PASS filters
normalized, header lines in standard order. Transformations given as flags
are applied in the order drop-info, pass-only, rsids, add-raw.`,
		Example: `  vibe-vcf normalize input.vcf -o output.vcf
  vibe-vcf normalize --pass-only --drop-info DB,H2 input.vcf
  vibe-vcf normalize -f tab --workers 4 input.vcf`,
		Args: usageArgs(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.bind(cmd, map[string]string{
				keyStrict:    "strict",
				keyRSIDsOnly: "rsids-only",
				keyWorkers:   "workers",
			}); err != nil {
				return err
			}
			return a.runNormalize(cmd, args[0], opts)
		},
	}
	cmd.Flags().StringVarP(&opts.outputFile, "output", "o", "", "Output file (default: stdout)")
	cmd.Flags().StringVarP(&opts.outputFormat, "output-format", "f", "vcf", "Output format: vcf, tab")
	cmd.Flags().StringSliceVar(&opts.dropInfo, "drop-info", nil, "INFO keys to remove")
	cmd.Flags().BoolVar(&opts.passOnly, "pass-only", false, "Drop records that failed a filter")
	cmd.Flags().BoolVar(&opts.rsidsFilter, "rsids", false, "Drop records without an rs ID after parsing")
	cmd.Flags().StringArrayVar(&opts.addRaw, "add-raw", nil, "Header line to add, as key=value")
	cmd.Flags().Bool("strict", false, "Treat keys missing from the header as errors")
	cmd.Flags().Bool("rsids-only", false, "Skip records without an rs ID while parsing")
	cmd.Flags().Int("workers", 1, "Transformation workers (0 = all CPUs)")
	return cmd
}

// transformation builds the chain selected by the flags.
func (o normalizeOptions) transformation() (transform.Transformation, error) {
	var ts []transform.Transformation
	if len(o.dropInfo) > 0 {
		ts = append(ts, transform.DropInfo(o.dropInfo...))
	}
	if o.passOnly {
		ts = append(ts, transform.KeepPassing())
	}
	if o.rsidsFilter {
		ts = append(ts, transform.RSIDsOnlyFilter())
	}
	for _, kv := range o.addRaw {
		key, value, ok := strings.Cut(kv, "=")
		if !ok || key == "" {
			return nil, usageErrorf("--add-raw %q: expected key=value", kv)
		}
		ts = append(ts, transform.AddRaw(key, value))
	}
	if len(ts) == 0 {
		return transform.Identity(), nil
	}
	return transform.Chain(ts...), nil
}

func (a *app) runNormalize(cmd *cobra.Command, path string, opts normalizeOptions) error {
	if opts.outputFormat != "vcf" && opts.outputFormat != "tab" {
		return usageErrorf("unknown output format %q", opts.outputFormat)
	}
	t, err := opts.transformation()
	if err != nil {
		return err
	}

	p, err := a.openParser(cmd, path)
	if err != nil {
		return err
	}
	defer p.Close()

	out, closeOut, err := createOutput(cmd, opts.outputFile)
	if err != nil {
		return err
	}
	defer closeOut()

	if opts.outputFormat == "tab" {
		err = a.writeTab(p, t, output.NewTabWriter(out))
	} else {
		err = a.writeVCF(p, t, out)
	}
	if err != nil {
		return err
	}
	return closeOut()
}

func (a *app) writeVCF(p *vcf.Parser, t transform.Transformation, out io.Writer) error {
	w := output.NewVCFWriter(out)
	w.SetLogger(a.logger)
	w.SetStrict(a.v.GetBool(keyStrict))

	pipeline := transform.NewPipeline()
	pipeline.SetLogger(a.logger)
	pipeline.Add(t, w)

	var err error
	if workers := a.v.GetInt(keyWorkers); workers == 1 {
		err = pipeline.Run(p)
	} else {
		err = pipeline.RunOrdered(p, workers)
	}
	if err != nil {
		return err
	}
	a.logger.Info("normalized",
		zap.Int("written", pipeline.Written()[0]),
		zap.Int("warnings", len(w.Warnings())))
	return nil
}

// writeTab applies t and writes the genotype table.
func (a *app) writeTab(p *vcf.Parser, t transform.Transformation, tw *output.TabWriter) error {
	md, err := p.Metadata()
	if err != nil {
		return err
	}
	tmd := md.Clone()
	if err := t.TransformMetadata(tmd); err != nil {
		return fmt.Errorf("transform metadata: %w", err)
	}
	if err := tw.WriteHeader(tmd); err != nil {
		return err
	}

	written := 0
	err = p.Parse(vcf.SinkFunc(func(_ *vcf.Metadata, v *vcf.Variant, samples []*vcf.Sample) error {
		keep, err := t.TransformRecord(tmd, v, samples)
		if err != nil || !keep {
			return err
		}
		written++
		return tw.Write(v, samples)
	}))
	if err != nil {
		return err
	}
	a.logger.Info("wrote table", zap.Int("written", written))
	return tw.Flush()
}
