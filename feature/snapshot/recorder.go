package snapshot

import (
	"context"
	"time"

	"account-sync/core/reconcile"
)

// Recorder is a reconcile.Sink that saves both inventories before the first
// record is processed. A failed upload aborts the run.
type Recorder struct {
	service *Service
	runID   string
	company string
	object  string
}

// NewRecorder creates a Recorder for one run.
func NewRecorder(service *Service, runID, company string) *Recorder {
	return &Recorder{service: service, runID: runID, company: company}
}

// ObserveInventories implements reconcile.InventoryObserver.
func (r *Recorder) ObserveInventories(ctx context.Context, source, target []reconcile.Record) error {
	name, err := r.service.Save(ctx, &Snapshot{
		RunID:   r.runID,
		Company: r.company,
		TakenAt: time.Now(),
		Source:  source,
		Target:  target,
	})
	if err != nil {
		return err
	}
	r.object = name
	return nil
}

// Decide implements reconcile.Sink. Decisions are not part of a snapshot.
func (r *Recorder) Decide(context.Context, reconcile.Decision) {}

// Object returns the name of the saved snapshot, or "" before the run started.
func (r *Recorder) Object() string {
	return r.object
}
