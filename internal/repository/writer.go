package repository

import (
	"log/slog"
	"sync"
)

// writer persists snapshots on a single background goroutine. Only the
// newest pending snapshot is kept, so an older snapshot is never written
// after a newer one.
type writer[K comparable, E any] struct {
	persister Persister[K, E]
	logger    *slog.Logger

	mu         sync.Mutex
	cond       *sync.Cond
	pending    map[K]E
	pendingSeq uint64
	queued     uint64
	written    uint64
	err        error
	closing    bool
	done       chan struct{}
}

func newWriter[K comparable, E any](p Persister[K, E], logger *slog.Logger) *writer[K, E] {
	w := &writer[K, E]{
		persister: p,
		logger:    logger,
		done:      make(chan struct{}),
	}
	w.cond = sync.NewCond(&w.mu)
	go w.run()
	return w
}

func (w *writer[K, E]) submit(snapshot map[K]E) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closing {
		w.logger.Warn("dropping snapshot submitted after close", "count", len(snapshot))
		return
	}
	w.queued++
	w.pending = snapshot
	w.pendingSeq = w.queued
	w.cond.Broadcast()
}

func (w *writer[K, E]) run() {
	defer close(w.done)

	w.mu.Lock()
	defer w.mu.Unlock()
	for {
		for w.pending == nil && !w.closing {
			w.cond.Wait()
		}
		if w.pending == nil {
			return
		}
		snapshot, seq := w.pending, w.pendingSeq
		w.pending = nil

		w.mu.Unlock()
		err := w.persister.Persist(snapshot)
		w.mu.Lock()

		if err != nil {
			w.err = err
			w.logger.Error("failed to persist snapshot", "error", err, "count", len(snapshot))
		} else {
			w.logger.Debug("persisted snapshot", "count", len(snapshot))
		}
		w.written = seq
		w.cond.Broadcast()
	}
}

func (w *writer[K, E]) flush() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	target := w.queued
	for w.written < target {
		w.cond.Wait()
	}
	err := w.err
	w.err = nil
	return err
}

func (w *writer[K, E]) close() error {
	w.mu.Lock()
	w.closing = true
	w.cond.Broadcast()
	w.mu.Unlock()

	<-w.done
	return w.flush()
}
