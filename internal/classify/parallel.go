package classify

import (
	"runtime"
	"sync"

	"github.com/inodb/vibe-cdr3/internal/fasta"
)

// WorkItem is one read of a batch with its reconciled hits. Seq is the
// read's position in the batch FASTA, starting at 0.
type WorkItem struct {
	Seq  int
	Read *fasta.Record
	ID   string // normalized read id
	Hits Hits
}

// WorkResult holds the classification of a single read.
type WorkResult struct {
	Seq   int
	Read  *fasta.Record
	Class *Classification
	Err   error
}

// ParallelClassify classifies reads on a pool of workers. Results come out
// as workers finish them, so reads of one batch may be interleaved; pass
// the channel to OrderedCollect to get them back in FASTA order.
// A workers value below 1 means runtime.NumCPU().
func (c *Classifier) ParallelClassify(items <-chan WorkItem, workers int) <-chan WorkResult {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	results := make(chan WorkResult, 2*workers)

	var wg sync.WaitGroup
	wg.Add(workers)

	for range workers {
		go func() {
			defer wg.Done()
			for item := range items {
				cl, err := c.Classify(item.ID, item.Read.Seq, item.Hits)
				results <- WorkResult{
					Seq:   item.Seq,
					Read:  item.Read,
					Class: cl,
					Err:   err,
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

// OrderedCollect calls fn for each classified read in FASTA order, holding
// back reads that finish ahead of an earlier one. The first error from fn
// stops delivery; the channel is still drained so no worker blocks.
func OrderedCollect(results <-chan WorkResult, fn func(WorkResult) error) error {
	held := make(map[int]WorkResult)
	next := 0

	for r := range results {
		held[r.Seq] = r

		for {
			ready, ok := held[next]
			if !ok {
				break
			}
			delete(held, next)
			next++
			if err := fn(ready); err != nil {
				for range results {
				}
				return err
			}
		}
	}

	return nil
}
