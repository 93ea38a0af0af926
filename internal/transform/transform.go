// Package transform runs parsed VCF records through one or more
// transformations, each feeding its own writer.
package transform

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/inodb/vibe-vcf/internal/output"
	"github.com/inodb/vibe-vcf/internal/vcf"
)

// ErrNoTransformations is returned when a pipeline is started without any
// transformation.
var ErrNoTransformations = errors.New("transform: no transformations")

// Transformation edits the header once and then each record.
//
// TransformMetadata receives a private copy of the input header; the
// changes it makes are what its writer sees. TransformRecord may modify the
// record in place and returns false to drop it. When a pipeline runs with
// RunOrdered, TransformRecord is called from several goroutines at once.
type Transformation interface {
	TransformMetadata(md *vcf.Metadata) error
	TransformRecord(md *vcf.Metadata, v *vcf.Variant, samples []*vcf.Sample) (keep bool, err error)
}

type stage struct {
	t       Transformation
	w       *output.VCFWriter
	md      *vcf.Metadata
	written int
}

// Output is the result of one transformation for one record.
type Output struct {
	Variant *vcf.Variant
	Samples []*vcf.Sample
	Keep    bool
}

// Pipeline fans a stream of records out to one writer per transformation.
// It is a vcf.RecordSink; call Close after the last record.
type Pipeline struct {
	stages  []*stage
	logger  *zap.Logger
	started bool
	records int
}

// NewPipeline creates an empty pipeline.
func NewPipeline() *Pipeline {
	return &Pipeline{logger: zap.NewNop()}
}

// SetLogger sets the logger for pipeline progress.
func (p *Pipeline) SetLogger(l *zap.Logger) {
	p.logger = l
}

// Add appends a transformation and the writer that receives its output.
func (p *Pipeline) Add(t Transformation, w *output.VCFWriter) {
	p.stages = append(p.stages, &stage{t: t, w: w})
}

// Len returns the number of transformations.
func (p *Pipeline) Len() int { return len(p.stages) }

// Written returns how many records each writer received, in Add order.
func (p *Pipeline) Written() []int {
	out := make([]int, len(p.stages))
	for i, s := range p.stages {
		out[i] = s.written
	}
	return out
}

// Start transforms the header for every transformation and writes it.
// Calling Start again is a no-op.
func (p *Pipeline) Start(md *vcf.Metadata) error {
	if p.started {
		return nil
	}
	if len(p.stages) == 0 {
		return ErrNoTransformations
	}
	for i, s := range p.stages {
		s.md = md.Clone()
		if err := s.t.TransformMetadata(s.md); err != nil {
			return fmt.Errorf("transformation %d metadata: %w", i, err)
		}
		if err := s.w.WriteHeader(s.md); err != nil {
			return fmt.Errorf("transformation %d header: %w", i, err)
		}
	}
	p.started = true
	p.logger.Debug("pipeline started", zap.Int("transformations", len(p.stages)))
	return nil
}

// Accept runs one record through every transformation and writes the
// records that are kept.
func (p *Pipeline) Accept(md *vcf.Metadata, v *vcf.Variant, samples []*vcf.Sample) error {
	if err := p.Start(md); err != nil {
		return err
	}
	outputs, err := p.transform(v, samples)
	if err != nil {
		return err
	}
	return p.write(outputs)
}

// Close writes the header if no record arrived, then flushes every writer.
func (p *Pipeline) Close(md *vcf.Metadata) error {
	if err := p.Start(md); err != nil {
		return err
	}
	for i, s := range p.stages {
		if err := s.w.Flush(); err != nil {
			return fmt.Errorf("flush writer %d: %w", i, err)
		}
	}
	p.logger.Debug("pipeline finished",
		zap.Int("records", p.records),
		zap.Ints("written", p.Written()))
	return nil
}

// Run reads every record from r, runs it through the pipeline and closes
// the pipeline.
func (p *Pipeline) Run(r vcf.RecordReader) error {
	md, err := r.Metadata()
	if err != nil {
		return err
	}
	if err := p.Start(md); err != nil {
		return err
	}
	for {
		v, samples, err := r.Next()
		if err != nil {
			return err
		}
		if v == nil {
			break
		}
		if err := p.Accept(md, v, samples); err != nil {
			return fmt.Errorf("line %d: %w", r.LineNumber(), err)
		}
	}
	return p.Close(md)
}

// transform applies every transformation to its own copy of the record.
// The last transformation gets the original.
func (p *Pipeline) transform(v *vcf.Variant, samples []*vcf.Sample) ([]Output, error) {
	outputs := make([]Output, len(p.stages))
	last := len(p.stages) - 1
	for i, s := range p.stages {
		cv, cs := v, samples
		if i < last {
			cv, cs = cloneRecord(v, samples)
		}
		keep, err := s.t.TransformRecord(s.md, cv, cs)
		if err != nil {
			return nil, fmt.Errorf("transformation %d: %w", i, err)
		}
		outputs[i] = Output{Variant: cv, Samples: cs, Keep: keep}
	}
	return outputs, nil
}

func (p *Pipeline) write(outputs []Output) error {
	p.records++
	for i, o := range outputs {
		if !o.Keep {
			continue
		}
		s := p.stages[i]
		if err := s.w.Write(s.md, o.Variant, o.Samples); err != nil {
			return fmt.Errorf("writer %d: %w", i, err)
		}
		s.written++
	}
	return nil
}

func cloneRecord(v *vcf.Variant, samples []*vcf.Sample) (*vcf.Variant, []*vcf.Sample) {
	if samples == nil {
		return v.Clone(), nil
	}
	cs := make([]*vcf.Sample, len(samples))
	for i, s := range samples {
		cs[i] = s.Clone()
	}
	return v.Clone(), cs
}
