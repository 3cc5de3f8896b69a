package audit

import (
	"context"
	"fmt"
	"sync"

	"scopedrest/internal/metrics"
)

type Outcome string

const (
	OutcomeQueued  Outcome = "queued"
	OutcomeWritten Outcome = "written"
	OutcomeDropped Outcome = "dropped"
)

// Recorder tries the dispatcher, then the store. A nil dispatcher means
// every entry is written directly.
type Recorder struct {
	async Dispatcher
	store Store
	wg    sync.WaitGroup
}

func NewRecorder(async Dispatcher, store Store) *Recorder {
	return &Recorder{async: async, store: store}
}

// Record persists e and reports how. It never returns an error and never
// panics.
func (r *Recorder) Record(ctx context.Context, e Entry) (out Outcome) {
	defer func() {
		if p := recover(); p != nil {
			log.Error("Audit recorder panicked on %s", fmt.Errorf("%v", p), e.RequestUUID)
			out = OutcomeDropped
		}
		metrics.RecordAuditDispatch(string(out))
	}()

	if r.async != nil {
		err := r.async.Dispatch(ctx, e)
		if err == nil {
			return OutcomeQueued
		}
		log.Warn("Audit queue unavailable for %s, writing directly: %v", e.RequestUUID, err)
	}
	if r.store != nil {
		err := r.store.Write(ctx, e)
		if err == nil {
			return OutcomeWritten
		}
		log.Error("Failed to write audit entry %s", err, e.RequestUUID)
	}
	return OutcomeDropped
}

// Go records e in the background. Wait blocks until every Go call is done.
func (r *Recorder) Go(e Entry) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		r.Record(context.Background(), e)
	}()
}

// Wait returns once pending entries are recorded or ctx is done.
func (r *Recorder) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
