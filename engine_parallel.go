package compgraph

import (
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/jward/compgraph/internal/extract"
	"github.com/jward/compgraph/internal/link"
)

// workItem is one file handed to a first-pass worker.
type workItem struct {
	index int
	file  SourceFile
}

// firstPassParallel runs the first pass on a worker pool. Each worker writes
// only the result slot of the file it took, so the output is index-aligned
// with files regardless of scheduling.
func (e *Engine) firstPassParallel(files []SourceFile) []*extract.Facts {
	out := make([]*extract.Facts, len(files))

	numWorkers := e.numWorkers(len(files))
	workCh := make(chan workItem, len(files))
	for i, f := range files {
		workCh <- workItem{index: i, file: f}
	}
	close(workCh)

	var wg sync.WaitGroup
	for range numWorkers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for item := range workCh {
				out[item.index] = e.extractFile(item.file)
			}
		}()
	}
	// Barrier: the second pass needs every unit.
	wg.Wait()
	return out
}

// linkParallel links every file against the shared read-only Linker with a
// bounded errgroup. Results are index-aligned with facts so the merge can
// run in file order.
func (e *Engine) linkParallel(linker *link.Linker, facts []*extract.Facts) []link.Result {
	results := make([]link.Result, len(facts))

	g := new(errgroup.Group)
	g.SetLimit(e.numWorkers(len(facts)))
	for i, f := range facts {
		if !f.HasUnit() {
			continue
		}
		g.Go(func() error {
			results[i] = linker.Link(f)
			return nil
		})
	}
	// Link never fails; Wait is the join point.
	_ = g.Wait()
	return results
}
