package pipeline

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/RyanBlaney/spectrum-analyzer/pkg/audio/spectral"
	"github.com/RyanBlaney/spectrum-analyzer/pkg/audio/spectrogram"
	"github.com/RyanBlaney/spectrum-analyzer/pkg/audio/window"
)

// runParallel windows on one goroutine into a bounded queue, transforms on
// workers goroutines, and hands frames to sink on the calling goroutine in
// index order. At most queueSize+workers frames are in flight, which also
// bounds the reorder buffer.
func runParallel(ctx context.Context, w *window.Windower, t *spectral.Transform, sink spectrogram.Sink,
	tracker *progressTracker, workers, queueSize int) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	windows := make(chan window.Window, queueSize)
	frames := make(chan *spectral.SpectralFrame, queueSize)
	inFlight := make(chan struct{}, queueSize+workers)

	g.Go(func() error {
		defer close(windows)
		it := w.Iterator()
		for win, ok := it.Next(); ok; win, ok = it.Next() {
			select {
			case inFlight <- struct{}{}:
			case <-gctx.Done():
				return gctx.Err()
			}
			select {
			case windows <- win:
			case <-gctx.Done():
				return gctx.Err()
			}
		}
		return nil
	})

	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		g.Go(func() error {
			defer wg.Done()
			for win := range windows {
				frame, err := t.Compute(win)
				if err != nil {
					return err
				}
				select {
				case frames <- frame:
				case <-gctx.Done():
					return gctx.Err()
				}
			}
			return nil
		})
	}

	go func() {
		wg.Wait()
		close(frames)
	}()

	var sinkErr error
	pending := make(map[int]*spectral.SpectralFrame)
	next := 0
	for frame := range frames {
		if sinkErr != nil {
			continue
		}
		pending[frame.Index] = frame
		for f, ok := pending[next]; ok; f, ok = pending[next] {
			delete(pending, next)
			if err := sink.Accept(f); err != nil {
				sinkErr = err
				cancel()
				break
			}
			<-inFlight
			tracker.advance()
			next++
		}
	}

	if err := g.Wait(); err != nil && sinkErr == nil {
		return err
	}
	if sinkErr != nil {
		return sinkErr
	}
	return ctx.Err()
}
