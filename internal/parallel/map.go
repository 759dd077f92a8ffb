// Package parallel runs a mapping function over a sequence with a bounded
// number of workers.
package parallel

import (
	"context"
	"iter"

	"golang.org/x/sync/errgroup"
)

type result[D any] struct {
	d D
	e error
}

// Map is a parallel mapping function, which can run the mapFuncs in a parallel and wait for
// completions. The input and output are represented as iterators, so the typical usage is.
// Map is context aware, so canceled context ends the processing.
//
//	for result, err := range pmap.Iter(input) {}
//
// Results arrive in completion order. Errors of the input sequence are
// passed through with a zero value.
type Map[E, D any] struct {
	parentCtx    context.Context
	cancelParent context.CancelFunc
	g            *errgroup.Group
	gctx         context.Context
	mapped       chan result[D]
	mapFunc      func(context.Context, E) (D, error)
}

func NewMap[E, D any](parentCtx context.Context, limit int, mapFunc func(context.Context, E) (D, error)) *Map[E, D] {
	limit = max(limit, 1)
	parentCtx, cancelParent := context.WithCancel(parentCtx)
	g, gctx := errgroup.WithContext(parentCtx)
	// one extra slot for the feeding goroutine
	g.SetLimit(limit + 1)

	return &Map[E, D]{
		parentCtx:    parentCtx,
		cancelParent: cancelParent,
		g:            g,
		gctx:         gctx,
		mapped:       make(chan result[D], limit),
		mapFunc:      mapFunc,
	}
}

func (s *Map[E, D]) send(r result[D]) error {
	select {
	case <-s.gctx.Done():
		return s.gctx.Err()
	case s.mapped <- r:
		return nil
	}
}

func (s *Map[E, D]) goWorkers(seq iter.Seq2[E, error]) {
	s.g.Go(func() error {
		for entry, nerr := range seq {
			if s.gctx.Err() != nil {
				return s.gctx.Err()
			}
			if nerr != nil {
				var zero D
				if err := s.send(result[D]{d: zero, e: nerr}); err != nil {
					return err
				}
				continue
			}
			s.g.Go(func() error {
				d, mapErr := s.mapFunc(s.gctx, entry)
				return s.send(result[D]{d: d, e: mapErr})
			})
		}
		return nil
	})
}

func (s *Map[E, D]) Iter(seq iter.Seq2[E, error]) iter.Seq2[D, error] {
	return func(yield func(D, error) bool) {
		defer s.cancelParent()
		s.goWorkers(seq)

		go func() {
			_ = s.g.Wait()
			close(s.mapped)
		}()

		for r := range s.mapped {
			if s.parentCtx.Err() != nil {
				return
			}
			if !yield(r.d, r.e) {
				return
			}
		}
	}
}

// All returns a sequence over s without errors.
func All[T any](s []T) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		for _, x := range s {
			if !yield(x, nil) {
				return
			}
		}
	}
}
