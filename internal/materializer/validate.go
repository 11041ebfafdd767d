package materializer

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/novalym/velm-sub003/internal/heresy"
)

// validateStaged walks the staging tree's touched files (directories
// skipped) and runs each through the validators registry on a bounded
// worker pool — per spec.md's scheduling model, Validate is one of the
// three steps allowed to parallelize within a transaction since it has no
// cross-file ordering dependency, unlike Stage.
func (m *Materializer) validateStaged(ctx context.Context) []*heresy.Heresy {
	paths := m.staging.Touched()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.opts.WorkerLimit)

	var mu sync.Mutex
	var heresies []*heresy.Heresy
	record := func(h *heresy.Heresy) {
		mu.Lock()
		heresies = append(heresies, h)
		mu.Unlock()
	}

	for _, path := range paths {
		path := path
		if m.staging.IsDir(path) {
			continue
		}
		g.Go(func() error {
			content, err := m.staging.Staging.ReadFile(gctx, path)
			if err != nil {
				record(heresy.Wrap(err, "reading staged "+path))
				return nil
			}
			if h := m.validators.Validate(gctx, path, content); h != nil {
				record(h)
			}
			return nil
		})
	}
	_ = g.Wait()
	return heresies
}
