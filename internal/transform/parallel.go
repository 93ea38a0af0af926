package transform

import (
	"fmt"
	"runtime"
	"sync"

	"github.com/inodb/vibe-vcf/internal/vcf"
)

// WorkItem holds a parsed record ready for transformation. The worker that
// receives it owns the record until its result is written.
type WorkItem struct {
	Seq     int
	Line    int
	Variant *vcf.Variant
	Samples []*vcf.Sample
}

// WorkResult holds the per-writer outputs for a single record.
type WorkResult struct {
	Seq     int
	Line    int
	Outputs []Output
	Err     error
}

// ParallelTransform transforms work items using a pool of workers.
// Results are sent to the returned channel in arrival order (not sequence order).
// Use OrderedCollect to consume results in sequence-number order.
// Start must have been called. If workers is 0, runtime.NumCPU() is used.
func (p *Pipeline) ParallelTransform(items <-chan WorkItem, workers int) <-chan WorkResult {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	results := make(chan WorkResult, 2*workers)

	var wg sync.WaitGroup
	wg.Add(workers)

	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			for item := range items {
				outputs, err := p.transform(item.Variant, item.Samples)
				results <- WorkResult{
					Seq:     item.Seq,
					Line:    item.Line,
					Outputs: outputs,
					Err:     err,
				}
			}
		}()
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	return results
}

// OrderedCollect calls fn for each result in sequence-number order.
// It buffers out-of-order results in a pending map and emits them
// as soon as the next expected sequence number is available.
// Blocks until the results channel is closed.
func OrderedCollect(results <-chan WorkResult, fn func(WorkResult) error) error {
	pending := make(map[int]WorkResult)
	nextSeq := 0

	for r := range results {
		pending[r.Seq] = r

		for {
			rr, ok := pending[nextSeq]
			if !ok {
				break
			}
			delete(pending, nextSeq)
			nextSeq++
			if err := fn(rr); err != nil {
				// Drain remaining results to unblock workers.
				for range results {
				}
				return err
			}
		}
	}

	return nil
}

// RunOrdered is Run with the transformations spread over a worker pool.
// Records reach the writers in file order.
func (p *Pipeline) RunOrdered(r vcf.RecordReader, workers int) error {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	md, err := r.Metadata()
	if err != nil {
		return err
	}
	if err := p.Start(md); err != nil {
		return err
	}

	items := make(chan WorkItem, 2*workers)
	done := make(chan struct{})
	var stop sync.Once
	var readErr error

	go func() {
		defer close(items)
		for seq := 0; ; seq++ {
			v, samples, err := r.Next()
			if err != nil {
				readErr = err
				return
			}
			if v == nil {
				return
			}
			select {
			case items <- WorkItem{Seq: seq, Line: r.LineNumber(), Variant: v, Samples: samples}:
			case <-done:
				return
			}
		}
	}()

	err = OrderedCollect(p.ParallelTransform(items, workers), func(res WorkResult) error {
		if res.Err == nil {
			res.Err = p.write(res.Outputs)
		}
		if res.Err != nil {
			stop.Do(func() { close(done) })
			return fmt.Errorf("line %d: %w", res.Line, res.Err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	// readErr is visible here: the reader closed items before the workers
	// closed results.
	if readErr != nil {
		return readErr
	}
	return p.Close(md)
}
