package reconcile

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// DefaultMaxParentRetries is used when Options.MaxParentRetries is not positive.
const DefaultMaxParentRetries = 5

// Options controls a reconciliation run.
type Options struct {
	// DryRun logs every decision without creating or updating anything.
	DryRun bool

	// Company scopes both inventories to one owning scope. Empty means all.
	Company string

	// MaxParentRetries caps creation attempts for a missing parent.
	MaxParentRetries int

	// RetryDelay is the fixed pause between parent creation attempts.
	RetryDelay time.Duration

	// Concurrency bounds the workers processing one depth level.
	// Values below 2 process records strictly sequentially.
	Concurrency int
}

// State is a record's position in the per-record state machine.
type State string

const (
	StatePending       State = "pending"
	StateParentEnsured State = "parent_ensured"
	StateMatched       State = "matched"
	StateCreated       State = "created"
	StateDone          State = "done"
	StateSkipped       State = "skipped"
	StateFailed        State = "failed"
)

// Outcome is the decision taken for a record.
type Outcome string

const (
	OutcomeCreated   Outcome = "create"
	OutcomeUpdated   Outcome = "update"
	OutcomeUnchanged Outcome = "unchanged"
	OutcomeSkipped   Outcome = "skip"
	OutcomeFailed    Outcome = "fail"
)

// Decision is the per-record entry of the decision stream.
type Decision struct {
	// Name is the source-side identifying name.
	Name string `json:"name"`

	// Key is the record's NormalizedKey.
	Key string `json:"key"`

	// Depth is the record's depth in the source hierarchy.
	Depth int `json:"depth"`

	// Outcome is what was (or, in a dry run, would have been) done.
	Outcome Outcome `json:"outcome"`

	// State is the terminal state reached.
	State State `json:"state"`

	// Target is the target-side identifying name, when known.
	Target string `json:"target,omitempty"`

	// Parent is the target-side name of the ensured parent.
	Parent string `json:"parent,omitempty"`

	// ParentCreated is set when the parent had to be created for this record.
	ParentCreated bool `json:"parent_created,omitempty"`

	// Changes holds the differing fields for updates.
	Changes Diff `json:"changes,omitempty"`

	// Payload is the body sent (or that would be sent) to the target.
	Payload Payload `json:"payload,omitempty"`

	// DryRun marks hypothetical outcomes.
	DryRun bool `json:"dry_run"`

	// Err is the cause of a skip or failure.
	Err error `json:"-"`
}

// ErrorMessage returns the cause as text, or "".
func (d Decision) ErrorMessage() string {
	if d.Err == nil {
		return ""
	}
	return d.Err.Error()
}

// Summary aggregates the decisions of a run.
type Summary struct {
	Total          int           `json:"total"`
	Created        int           `json:"created"`
	Updated        int           `json:"updated"`
	Unchanged      int           `json:"unchanged"`
	Skipped        int           `json:"skipped"`
	Failed         int           `json:"failed"`
	ParentsCreated int           `json:"parents_created"`
	Cycles         int           `json:"cycles"`
	DryRun         bool          `json:"dry_run"`
	Duration       time.Duration `json:"duration"`
}

// Result is the outcome of a run.
type Result struct {
	Summary   Summary    `json:"summary"`
	Decisions []Decision `json:"decisions"`
}

func (r *Result) add(d Decision) {
	r.Decisions = append(r.Decisions, d)
	r.Summary.Total++
	switch d.Outcome {
	case OutcomeCreated:
		r.Summary.Created++
	case OutcomeUpdated:
		r.Summary.Updated++
	case OutcomeUnchanged:
		r.Summary.Unchanged++
	case OutcomeSkipped:
		r.Summary.Skipped++
	case OutcomeFailed:
		r.Summary.Failed++
	}
}

// Sink receives every decision as it is made.
type Sink interface {
	Decide(ctx context.Context, d Decision)
}

// InventoryObserver is an optional Sink extension notified with both
// inventories before any record is processed. An error aborts the run.
type InventoryObserver interface {
	ObserveInventories(ctx context.Context, source, target []Record) error
}

// SummaryObserver is an optional Sink extension notified when the run ends.
type SummaryObserver interface {
	ObserveSummary(ctx context.Context, s Summary)
}

// Reconciler syncs the target store with the source store.
type Reconciler struct {
	source Store
	target Store
	opts   Options
	logger *zap.Logger
	sinks  []Sink
	sleep  func(ctx context.Context, d time.Duration) error
}

// New creates a Reconciler. A nil logger discards output.
func New(source, target Store, opts Options, logger *zap.Logger, sinks ...Sink) *Reconciler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.MaxParentRetries <= 0 {
		opts.MaxParentRetries = DefaultMaxParentRetries
	}
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	return &Reconciler{
		source: source,
		target: target,
		opts:   opts,
		logger: logger,
		sinks:  sinks,
		sleep:  sleepContext,
	}
}

// Run fetches both inventories and processes every source record in depth order.
// Only a failed inventory listing, a failed inventory observer or cancellation
// returns an error; per-record problems end up in the decisions.
func (r *Reconciler) Run(ctx context.Context) (*Result, error) {
	start := time.Now()
	filter := Filter{Company: r.opts.Company}

	r.logger.Info("Fetching source accounts", zap.String("company", r.opts.Company))
	source, err := r.source.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list source accounts: %w", err)
	}
	r.logger.Info("Fetched source accounts", zap.Int("count", len(source)))

	r.logger.Info("Fetching target accounts", zap.String("company", r.opts.Company))
	target, err := r.target.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list target accounts: %w", err)
	}
	r.logger.Info("Fetched target accounts", zap.Int("count", len(target)))

	for _, s := range r.sinks {
		if obs, ok := s.(InventoryObserver); ok {
			if err := obs.ObserveInventories(ctx, source, target); err != nil {
				return nil, fmt.Errorf("failed to observe inventories: %w", err)
			}
		}
	}

	h := BuildHierarchy(source)
	for _, c := range h.Cycles() {
		r.logger.Warn("Cycle detected in parent chain; breaking",
			zap.String("account", c.Record),
			zap.Strings("chain", c.Chain),
		)
	}

	rn := &run{
		Reconciler: r,
		hierarchy:  h,
		table:      NewMatchTable(target),
	}

	result := &Result{Summary: Summary{DryRun: r.opts.DryRun, Cycles: len(h.Cycles())}}
	finish := func() {
		result.Summary.ParentsCreated = int(rn.parentsCreated.Load())
		result.Summary.Duration = time.Since(start)
		for _, s := range r.sinks {
			if obs, ok := s.(SummaryObserver); ok {
				obs.ObserveSummary(ctx, result.Summary)
			}
		}
		r.logger.Info("Sync run complete",
			zap.Int("total", result.Summary.Total),
			zap.Int("created", result.Summary.Created),
			zap.Int("updated", result.Summary.Updated),
			zap.Int("unchanged", result.Summary.Unchanged),
			zap.Int("skipped", result.Summary.Skipped),
			zap.Int("failed", result.Summary.Failed),
			zap.Int("parents_created", result.Summary.ParentsCreated),
			zap.Bool("dry_run", r.opts.DryRun),
			zap.Duration("elapsed", result.Summary.Duration),
		)
	}

	for _, level := range h.Levels() {
		r.logger.Info("Processing depth",
			zap.Int("depth", level.Depth),
			zap.Int("accounts", len(level.Names)),
			zap.Duration("elapsed", time.Since(start)),
		)
		decisions, err := rn.processLevel(ctx, level)
		for _, d := range decisions {
			result.add(d)
		}
		if err != nil {
			finish()
			return result, err
		}
	}

	finish()
	return result, nil
}

// run holds the state of a single Run call.
type run struct {
	*Reconciler
	hierarchy      *Hierarchy
	table          *MatchTable
	flight         singleflight.Group
	parentsCreated atomic.Int64
	emitMu         sync.Mutex
}

// processLevel handles every record of one level and returns once all of them
// are done, so the MatchTable is complete before the next level starts.
func (rn *run) processLevel(ctx context.Context, level Level) ([]Decision, error) {
	if rn.opts.Concurrency < 2 {
		decisions := make([]Decision, 0, len(level.Names))
		for _, name := range level.Names {
			if err := ctx.Err(); err != nil {
				return decisions, err
			}
			decisions = append(decisions, rn.process(ctx, name, level.Depth))
		}
		return decisions, nil
	}

	var (
		slots = make([]Decision, len(level.Names))
		done  = make([]bool, len(level.Names))
		g     errgroup.Group
	)
	g.SetLimit(rn.opts.Concurrency)
	for i, name := range level.Names {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			slots[i] = rn.process(ctx, name, level.Depth)
			done[i] = true
			return nil
		})
	}
	_ = g.Wait()

	decisions := make([]Decision, 0, len(slots))
	for i, d := range slots {
		if done[i] {
			decisions = append(decisions, d)
		}
	}
	return decisions, ctx.Err()
}

// process runs the per-record state machine. It never returns an error: every
// problem is folded into the decision.
func (rn *run) process(ctx context.Context, name string, depth int) (d Decision) {
	src, _ := rn.hierarchy.Record(name)
	key := src.Key()
	d = Decision{
		Name:   name,
		Key:    key,
		Depth:  depth,
		State:  StatePending,
		DryRun: rn.opts.DryRun,
	}

	defer func() {
		if p := recover(); p != nil {
			d.fail(fmt.Errorf("panic while syncing %s: %v", name, p))
		}
		rn.emit(ctx, d)
	}()

	// Ensure the parent exists in the target.
	if ref := strings.TrimSpace(src.Parent); ref != "" {
		parent, created, err := rn.ensureParent(ctx, ref)
		if err != nil {
			if errors.Is(err, ErrUnresolvableParent) {
				d.Outcome = OutcomeSkipped
				rn.transition(&d, StateSkipped)
				d.Err = err
				return d
			}
			d.fail(err)
			return d
		}
		d.Parent = parent
		d.ParentCreated = created
	}
	rn.transition(&d, StateParentEnsured)

	// Resolve the record's own counterpart.
	tgt, err := rn.fullMatch(ctx, key)
	if err != nil {
		d.fail(err)
		return d
	}

	desired := src
	if d.Parent != "" {
		desired.Parent = d.Parent
	}

	if tgt != nil {
		rn.transition(&d, StateMatched)
		d.Target = tgt.Name

		diff := Compare(src, *tgt)
		if diff.Empty() {
			d.Outcome = OutcomeUnchanged
			rn.transition(&d, StateDone)
			return d
		}

		d.Changes = diff
		d.Outcome = OutcomeUpdated
		d.Payload = UpdatePayload(desired, diff.Fields())
		if !rn.opts.DryRun {
			updated, err := rn.target.Update(ctx, tgt.Name, d.Payload)
			if err != nil {
				d.fail(err)
				return d
			}
			if updated != nil {
				rn.table.Record(key, Match{Name: tgt.Name, Record: *updated})
			}
		}
		rn.transition(&d, StateDone)
		return d
	}

	d.Outcome = OutcomeCreated
	d.Payload = CreatePayload(desired)
	if rn.opts.DryRun {
		rn.table.Record(key, Match{Name: name, Record: desired, Placeholder: true})
		d.Target = name
	} else {
		created, err := rn.target.Create(ctx, d.Payload)
		if err != nil {
			d.fail(err)
			return d
		}
		m := Match{Name: name, Record: desired}
		if created != nil {
			m.Record = *created
			if created.Name != "" {
				m.Name = created.Name
			}
		}
		rn.table.Record(key, m)
		d.Target = m.Name
	}
	rn.transition(&d, StateCreated)
	rn.transition(&d, StateDone)
	return d
}

func (d *Decision) fail(err error) {
	d.Outcome = OutcomeFailed
	d.State = StateFailed
	d.Err = err
}

func (rn *run) transition(d *Decision, s State) {
	d.State = s
	rn.logger.Debug("Account state changed",
		zap.String("account", d.Name),
		zap.String("state", string(s)),
	)
}

// fullMatch looks key up in the MatchTable and confirms the hit with a full
// fetch. Dry-run placeholders are returned as-is.
func (rn *run) fullMatch(ctx context.Context, key string) (*Record, error) {
	m, ok := rn.table.Lookup(key)
	if !ok {
		return nil, nil
	}
	if m.Placeholder {
		rec := m.Record
		rec.Name = m.Name
		return &rec, nil
	}

	full, err := rn.target.Get(ctx, m.Name)
	if err != nil {
		return nil, err
	}
	if full == nil {
		rn.logger.Warn("Target returned no full record; treating as missing", zap.String("target", m.Name))
		return nil, nil
	}
	return full, nil
}

type ensured struct {
	name    string
	created bool
}

// ensureParent makes sure the parent referenced by ref exists in the target and
// returns its target-side name. Concurrent callers for the same parent share
// one creation.
func (rn *run) ensureParent(ctx context.Context, ref string) (string, bool, error) {
	key := Normalize(ref)
	if m, ok := rn.table.Lookup(key); ok {
		return m.Name, false, nil
	}

	v, err, _ := rn.flight.Do(key, func() (any, error) {
		if m, ok := rn.table.Lookup(key); ok {
			return ensured{name: m.Name}, nil
		}
		return rn.createParent(ctx, ref, key)
	})
	if err != nil {
		return "", false, err
	}
	e := v.(ensured)
	return e.name, e.created, nil
}

// createParent creates a missing parent with bounded, fixed-delay retries.
func (rn *run) createParent(ctx context.Context, ref, key string) (ensured, error) {
	rec, payload := rn.parentPayload(ref)

	if rn.opts.DryRun {
		rn.logger.Info("Create parent",
			zap.String("parent", ref),
			zap.String("account_name", rec.DisplayName),
			zap.Bool("dry_run", true),
		)
		rn.table.Record(key, Match{Name: rec.Name, Record: rec, Placeholder: true})
		rn.parentsCreated.Add(1)
		return ensured{name: rec.Name, created: true}, nil
	}

	attempts := rn.opts.MaxParentRetries
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		created, err := rn.target.Create(ctx, payload)
		if err == nil {
			m := Match{Name: rec.Name, Record: rec}
			if created != nil {
				m.Record = *created
				if created.Name != "" {
					m.Name = created.Name
				}
			}
			rn.table.Record(key, m)
			rn.parentsCreated.Add(1)
			rn.logger.Info("Create parent",
				zap.String("parent", ref),
				zap.String("target", m.Name),
				zap.Int("attempt", attempt),
				zap.Bool("dry_run", false),
			)
			return ensured{name: m.Name, created: true}, nil
		}

		lastErr = err
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ensured{}, ctxErr
		}
		if attempt < attempts {
			rn.logger.Warn("Parent creation failed; retrying",
				zap.String("parent", ref),
				zap.Int("attempt", attempt),
				zap.Duration("retry_delay", rn.opts.RetryDelay),
				zap.Error(err),
			)
			if err := rn.sleep(ctx, rn.opts.RetryDelay); err != nil {
				return ensured{}, err
			}
		}
	}

	return ensured{}, &UnresolvableParentError{Parent: ref, Attempts: attempts, Err: lastErr}
}

// parentPayload builds the creation body for a missing parent: from its own
// source record when there is one, else a minimal placeholder group.
func (rn *run) parentPayload(ref string) (Record, Payload) {
	if rec, ok := rn.hierarchy.Resolve(ref); ok {
		rec.IsGroup = true
		if gp := strings.TrimSpace(rec.Parent); gp != "" {
			if name, ok := rn.table.TargetName(gp); ok {
				rec.Parent = name
			}
		}
		return rec, CreatePayload(rec)
	}

	display := StripNumberPrefix(ref)
	rec := Record{Name: display, DisplayName: display, IsGroup: true}
	return rec, Payload{
		FieldDisplayName: display,
		FieldIsGroup:     1,
		FieldParent:      nil,
		FieldCompany:     "",
	}
}

// emit logs a decision and forwards it to every sink.
func (rn *run) emit(ctx context.Context, d Decision) {
	fields := []zap.Field{
		zap.String("account", d.Name),
		zap.Int("depth", d.Depth),
		zap.String("outcome", string(d.Outcome)),
		zap.Bool("dry_run", d.DryRun),
	}
	if d.Target != "" {
		fields = append(fields, zap.String("target", d.Target))
	}

	switch d.Outcome {
	case OutcomeCreated:
		rn.logger.Info("Create", fields...)
	case OutcomeUpdated:
		rn.logger.Info("Update", append(fields, zap.String("diffs", d.Changes.String()))...)
	case OutcomeUnchanged:
		rn.logger.Info("Skip (no changes)", fields...)
	case OutcomeSkipped:
		rn.logger.Error("Skip (parent not ensured)", append(fields, zap.Error(d.Err))...)
	case OutcomeFailed:
		rn.logger.Error("Failed to sync account", append(fields, zap.Error(d.Err))...)
	}

	rn.emitMu.Lock()
	defer rn.emitMu.Unlock()
	for _, s := range rn.sinks {
		s.Decide(ctx, d)
	}
}

// sleepContext waits for d or until ctx is done.
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
