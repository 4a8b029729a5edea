package history

import (
	"context"
	"sync"

	"account-sync/core/reconcile"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Recorder is a reconcile.Sink that persists a run and its decision stream.
// Write failures are logged and never interrupt the sync.
type Recorder struct {
	service *Service
	runID   string
	logger  *zap.Logger

	mu  sync.Mutex
	seq int
}

// NewRecorder creates a Recorder. An empty runID gets a fresh UUID.
func NewRecorder(service *Service, runID string) *Recorder {
	if runID == "" {
		runID = uuid.NewString()
	}
	return &Recorder{
		service: service,
		runID:   runID,
		logger:  service.logger.With(zap.String("run_id", runID)),
	}
}

// RunID returns the id the run is stored under.
func (r *Recorder) RunID() string {
	return r.runID
}

// Start inserts the run row.
func (r *Recorder) Start(ctx context.Context, opts reconcile.Options) error {
	return r.service.StartRun(ctx, &Run{
		ID:      r.runID,
		DryRun:  opts.DryRun,
		Company: opts.Company,
	})
}

// Decide implements reconcile.Sink.
func (r *Recorder) Decide(ctx context.Context, d reconcile.Decision) {
	r.mu.Lock()
	r.seq++
	row := FromDecision(r.runID, r.seq, d)
	r.mu.Unlock()

	// Recorded even when the run is being cancelled
	if err := r.service.AddDecision(context.WithoutCancel(ctx), &row); err != nil {
		r.logger.Warn("Failed to record decision", zap.String("account", d.Name), zap.Error(err))
	}
}

// ObserveSummary implements reconcile.SummaryObserver.
func (r *Recorder) ObserveSummary(ctx context.Context, s reconcile.Summary) {
	status := StatusCompleted
	errMsg := ""
	if err := ctx.Err(); err != nil {
		status = StatusInterrupted
		errMsg = err.Error()
	}
	if err := r.service.FinishRun(context.WithoutCancel(ctx), r.runID, s, status, errMsg); err != nil {
		r.logger.Warn("Failed to finish run", zap.Error(err))
	}
}

// Fail marks the run failed, for errors that abort a run before any summary exists.
func (r *Recorder) Fail(ctx context.Context, cause error) {
	if err := r.service.FinishRun(context.WithoutCancel(ctx), r.runID, reconcile.Summary{}, StatusFailed, cause.Error()); err != nil {
		r.logger.Warn("Failed to mark run failed", zap.Error(err))
	}
}

// AttachSnapshot links a saved snapshot object to the run.
func (r *Recorder) AttachSnapshot(ctx context.Context, object string) {
	if object == "" {
		return
	}
	if err := r.service.SetSnapshot(ctx, r.runID, object); err != nil {
		r.logger.Warn("Failed to attach snapshot", zap.Error(err))
	}
}
