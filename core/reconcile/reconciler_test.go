package reconcile

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func outcomes(decisions []Decision) []string {
	out := make([]string, 0, len(decisions))
	for _, d := range decisions {
		out = append(out, fmt.Sprintf("%s:%s", d.Name, d.Outcome))
	}
	return out
}

func TestRun_CreatesParentsBeforeChildren(t *testing.T) {
	source := newMemStore(
		Record{Name: "B", DisplayName: "B", Parent: "A"},
		Record{Name: "A", DisplayName: "A", IsGroup: true},
	)
	target := newMemStore()

	res, err := New(source, target, Options{}, zap.NewNop()).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"A", "B"}, target.createdNames())
	assert.Equal(t, "A", target.creates[1][FieldParent])
	assert.Equal(t, []string{"A:create", "B:create"}, outcomes(res.Decisions))
	assert.Equal(t, 2, res.Summary.Created)
	assert.Equal(t, 0, res.Summary.ParentsCreated)
	assert.Len(t, target.records, 2)
	for _, d := range res.Decisions {
		assert.Equal(t, StateDone, d.State)
	}
}

func TestRun_OrphanGetsPlaceholderParent(t *testing.T) {
	source := newMemStore(Record{Name: "X", DisplayName: "X", Parent: "3000 - Root"})
	target := newMemStore()

	res, err := New(source, target, Options{}, nil).Run(context.Background())
	require.NoError(t, err)

	require.Len(t, target.creates, 2)
	assert.Equal(t, Payload{
		FieldDisplayName: "Root",
		FieldIsGroup:     1,
		FieldParent:      nil,
		FieldCompany:     "",
	}, target.creates[0])
	assert.Equal(t, "X", target.creates[1][FieldName])
	assert.Equal(t, "Root", target.creates[1][FieldParent])

	require.Len(t, res.Decisions, 1)
	assert.True(t, res.Decisions[0].ParentCreated)
	assert.Equal(t, "Root", res.Decisions[0].Parent)
	assert.Equal(t, 1, res.Summary.ParentsCreated)
	assert.Equal(t, 1, res.Summary.Created)
}

func TestRun_UpdatesOnlyDifferingFields(t *testing.T) {
	source := newMemStore(Record{Name: "1100 - Cash", DisplayName: "Cash", Type: "Cash", RootType: "Asset"})
	target := newMemStore(Record{Name: "1100 - Cash", DisplayName: "Cash", Type: "Bank", RootType: "Asset"})

	res, err := New(source, target, Options{}, nil).Run(context.Background())
	require.NoError(t, err)

	assert.Empty(t, target.creates)
	assert.Equal(t, []string{"1100 - Cash"}, target.gets)
	require.Len(t, target.updates, 1)
	assert.Equal(t, update{Name: "1100 - Cash", Payload: Payload{FieldType: "Cash"}}, target.updates[0])

	d := res.Decisions[0]
	assert.Equal(t, OutcomeUpdated, d.Outcome)
	assert.Equal(t, "1100 - Cash", d.Target)
	assert.Equal(t, []Field{FieldType}, d.Changes.Fields())
	assert.Equal(t, 1, res.Summary.Updated)
}

func TestRun_PayloadsCarryNoProtectedFields(t *testing.T) {
	protected := []Field{
		"account_currency", "balance", "total_debit", "total_credit",
		"creation", "modified", "modified_by", "owner", "idx", "docstatus",
	}
	source := newMemStore(
		Record{Name: "A", DisplayName: "A", IsGroup: true, Company: "ACME"},
		Record{Name: "B", DisplayName: "B", Parent: "A", Type: "Bank", Company: "ACME"},
	)
	target := newMemStore(Record{Name: "B", DisplayName: "B", Parent: "A", Type: "Cash", Company: "ACME"})

	_, err := New(source, target, Options{}, nil).Run(context.Background())
	require.NoError(t, err)

	var payloads []Payload
	payloads = append(payloads, target.creates...)
	for _, u := range target.updates {
		payloads = append(payloads, u.Payload)
	}
	require.NotEmpty(t, payloads)
	for _, p := range payloads {
		for _, f := range protected {
			assert.NotContains(t, p, f)
		}
	}
}

func TestRun_UnchangedRecordsAreLeftAlone(t *testing.T) {
	rec := Record{Name: "Assets", DisplayName: "Assets", IsGroup: true, RootType: "Asset"}
	target := newMemStore(rec)

	res, err := New(newMemStore(rec), target, Options{}, nil).Run(context.Background())
	require.NoError(t, err)

	assert.Empty(t, target.creates)
	assert.Empty(t, target.updates)
	assert.Equal(t, []string{"Assets:unchanged"}, outcomes(res.Decisions))
	assert.Equal(t, 1, res.Summary.Unchanged)
}

func TestRun_ParentUpdateUsesTargetName(t *testing.T) {
	source := newMemStore(
		Record{Name: "1000 - Assets", DisplayName: "Assets", IsGroup: true},
		Record{Name: "1100 - Cash", DisplayName: "Cash", Parent: "1000 - Assets"},
	)
	target := newMemStore(
		Record{Name: "Assets", DisplayName: "Assets", IsGroup: true},
		Record{Name: "Cash", DisplayName: "Cash", Parent: "Other"},
	)

	res, err := New(source, target, Options{}, nil).Run(context.Background())
	require.NoError(t, err)

	assert.Empty(t, target.creates)
	require.Len(t, target.updates, 1)
	assert.Equal(t, update{Name: "Cash", Payload: Payload{FieldParent: "Assets"}}, target.updates[0])
	assert.Equal(t, []string{"1000 - Assets:unchanged", "1100 - Cash:update"}, outcomes(res.Decisions))
}

func TestRun_DryRunMatchesLiveDecisions(t *testing.T) {
	inventory := func() (*memStore, *memStore) {
		source := newMemStore(
			Record{Name: "A", DisplayName: "A", IsGroup: true},
			Record{Name: "B", DisplayName: "B", Parent: "A"},
			Record{Name: "X", DisplayName: "X", Parent: "3000 - Root"},
			Record{Name: "Y", DisplayName: "Y", Parent: "X"},
			Record{Name: "Cash", DisplayName: "Cash", Type: "Cash"},
		)
		target := newMemStore(Record{Name: "Cash", DisplayName: "Cash", Type: "Bank"})
		return source, target
	}

	liveSource, liveTarget := inventory()
	live, err := New(liveSource, liveTarget, Options{}, nil).Run(context.Background())
	require.NoError(t, err)

	drySource, dryTarget := inventory()
	dry, err := New(drySource, dryTarget, Options{DryRun: true}, nil).Run(context.Background())
	require.NoError(t, err)

	assert.Empty(t, dryTarget.creates)
	assert.Empty(t, dryTarget.updates)
	assert.Len(t, dryTarget.records, 1)
	assert.True(t, dry.Summary.DryRun)

	strip := func(in []Decision) []Decision {
		out := make([]Decision, len(in))
		for i, d := range in {
			d.DryRun = false
			out[i] = d
		}
		return out
	}
	assert.Equal(t, strip(live.Decisions), strip(dry.Decisions))

	live.Summary.DryRun, live.Summary.Duration = false, 0
	dry.Summary.DryRun, dry.Summary.Duration = false, 0
	assert.Equal(t, live.Summary, dry.Summary)
}

func TestRun_ParentRetryExhaustionSkips(t *testing.T) {
	source := newMemStore(
		Record{Name: "X", DisplayName: "X", Parent: "3000 - Root"},
		Record{Name: "Y", DisplayName: "Y"},
	)
	target := newMemStore()
	target.createErr = func(p Payload) error {
		if p[FieldDisplayName] == "Root" {
			return errors.New("connection reset")
		}
		return nil
	}

	r := New(source, target, Options{MaxParentRetries: 3, RetryDelay: 10 * time.Millisecond}, nil)
	var sleeps []time.Duration
	r.sleep = func(ctx context.Context, d time.Duration) error {
		sleeps = append(sleeps, d)
		return nil
	}

	res, err := r.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"Y", "Root", "Root", "Root"}, target.createdNames())
	assert.Equal(t, []time.Duration{10 * time.Millisecond, 10 * time.Millisecond}, sleeps)

	assert.Equal(t, []string{"Y:create", "X:skip"}, outcomes(res.Decisions))
	skipped := res.Decisions[1]
	assert.Equal(t, StateSkipped, skipped.State)
	assert.True(t, errors.Is(skipped.Err, ErrUnresolvableParent))

	var upe *UnresolvableParentError
	require.True(t, errors.As(skipped.Err, &upe))
	assert.Equal(t, 3, upe.Attempts)
	assert.Equal(t, "3000 - Root", upe.Parent)

	assert.Equal(t, 1, res.Summary.Skipped)
	assert.Equal(t, 0, res.Summary.ParentsCreated)
}

func TestRun_CreateFailureContinues(t *testing.T) {
	source := newMemStore(
		Record{Name: "A", DisplayName: "A", IsGroup: true},
		Record{Name: "B", DisplayName: "B", IsGroup: true},
		Record{Name: "A1", DisplayName: "A1", Parent: "A"},
	)
	target := newMemStore()
	target.createErr = func(p Payload) error {
		if p[FieldName] == "A" {
			return &RemoteRejectedError{Op: "create", Name: "A", StatusCode: 417, Message: "validation failed"}
		}
		return nil
	}

	res, err := New(source, target, Options{MaxParentRetries: 2}, nil).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"A:fail", "B:create", "A1:skip"}, outcomes(res.Decisions))
	assert.True(t, errors.Is(res.Decisions[0].Err, ErrRemoteRejected))
	assert.Equal(t, StateFailed, res.Decisions[0].State)
	assert.Equal(t, []string{"A", "B", "A", "A"}, target.createdNames())

	assert.Equal(t, 3, res.Summary.Total)
	assert.Equal(t, 1, res.Summary.Failed)
	assert.Equal(t, 1, res.Summary.Created)
	assert.Equal(t, 1, res.Summary.Skipped)
}

func TestRun_GetFailureMarksRecordFailed(t *testing.T) {
	source := newMemStore(Record{Name: "Cash", Type: "Cash"})
	target := newMemStore(Record{Name: "Cash", Type: "Bank"})
	target.getErr = &TransientError{Op: "get Cash", Err: errors.New("timeout")}

	res, err := New(source, target, Options{}, nil).Run(context.Background())
	require.NoError(t, err)

	require.Len(t, res.Decisions, 1)
	assert.Equal(t, OutcomeFailed, res.Decisions[0].Outcome)
	assert.True(t, errors.Is(res.Decisions[0].Err, ErrTransient))
	assert.Empty(t, target.updates)
}

func TestRun_PanicIsRecordedAsFailure(t *testing.T) {
	source := newMemStore(
		Record{Name: "Boom", DisplayName: "Boom"},
		Record{Name: "Fine", DisplayName: "Fine"},
	)
	target := newMemStore()
	target.createErr = func(p Payload) error {
		if p[FieldName] == "Boom" {
			panic("unexpected payload")
		}
		return nil
	}

	res, err := New(source, target, Options{}, nil).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"Boom:fail", "Fine:create"}, outcomes(res.Decisions))
	assert.Contains(t, res.Decisions[0].ErrorMessage(), "panic")
}

func TestRun_ListFailureIsFatal(t *testing.T) {
	t.Run("source", func(t *testing.T) {
		source := newMemStore()
		source.listErr = errors.New("unauthorized")
		target := newMemStore()

		res, err := New(source, target, Options{}, nil).Run(context.Background())
		assert.Nil(t, res)
		assert.ErrorContains(t, err, "failed to list source accounts")
		assert.Empty(t, target.creates)
	})

	t.Run("target", func(t *testing.T) {
		source := newMemStore(Record{Name: "A"})
		target := newMemStore()
		target.listErr = errors.New("unauthorized")

		res, err := New(source, target, Options{}, nil).Run(context.Background())
		assert.Nil(t, res)
		assert.ErrorContains(t, err, "failed to list target accounts")
		assert.Empty(t, target.creates)
	})
}

func TestRun_CancellationStopsBetweenRecords(t *testing.T) {
	source := newMemStore(
		Record{Name: "A", DisplayName: "A"},
		Record{Name: "B", DisplayName: "B"},
		Record{Name: "C", DisplayName: "C"},
	)
	target := newMemStore()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	stop := sinkFunc(func(context.Context, Decision) { cancel() })

	res, err := New(source, target, Options{}, nil, stop).Run(ctx)
	require.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, res)

	assert.Equal(t, []string{"A:create"}, outcomes(res.Decisions))
	assert.Equal(t, 1, res.Summary.Total)
	assert.Equal(t, []string{"A"}, target.createdNames())
}

func TestRun_CycleIsBroken(t *testing.T) {
	source := newMemStore(
		Record{Name: "A", DisplayName: "A", Parent: "B"},
		Record{Name: "B", DisplayName: "B", Parent: "A"},
	)
	target := newMemStore()

	res, err := New(source, target, Options{}, nil).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, res.Summary.Cycles)
	assert.Equal(t, 2, res.Summary.Total)
	assert.Equal(t, 0, res.Summary.Failed)
	assert.Len(t, target.records, 2)
}

func TestRun_ConcurrentSiblingsShareParentCreation(t *testing.T) {
	var records []Record
	var names []string
	for i := 0; i < 20; i++ {
		name := fmt.Sprintf("Child %02d", i)
		names = append(names, name)
		records = append(records, Record{Name: name, DisplayName: name, Parent: "3000 - Root"})
	}
	target := newMemStore()

	res, err := New(newMemStore(records...), target, Options{Concurrency: 8}, nil).Run(context.Background())
	require.NoError(t, err)

	roots := 0
	for _, p := range target.creates {
		if p[FieldDisplayName] == "Root" && p[FieldName] == nil {
			roots++
		}
	}
	assert.Equal(t, 1, roots)
	assert.Equal(t, 1, res.Summary.ParentsCreated)
	assert.Equal(t, 20, res.Summary.Created)

	got := make([]string, 0, len(res.Decisions))
	for _, d := range res.Decisions {
		got = append(got, d.Name)
		assert.Equal(t, "Root", d.Parent)
	}
	assert.Equal(t, names, got)
}

func TestRun_CompanyFilter(t *testing.T) {
	source := newMemStore(
		Record{Name: "A", DisplayName: "A", Company: "ACME"},
		Record{Name: "B", DisplayName: "B", Company: "Other"},
	)
	target := newMemStore()

	res, err := New(source, target, Options{Company: "ACME"}, nil).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"A:create"}, outcomes(res.Decisions))
}

type observer struct {
	mu        sync.Mutex
	decisions []Decision
	source    []Record
	target    []Record
	summary   *Summary
	err       error
}

func (o *observer) Decide(_ context.Context, d Decision) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.decisions = append(o.decisions, d)
}

func (o *observer) ObserveInventories(_ context.Context, source, target []Record) error {
	o.source, o.target = source, target
	return o.err
}

func (o *observer) ObserveSummary(_ context.Context, s Summary) {
	o.summary = &s
}

func TestRun_NotifiesSinks(t *testing.T) {
	source := newMemStore(Record{Name: "A", DisplayName: "A"}, Record{Name: "B", DisplayName: "B", Parent: "A"})
	target := newMemStore(Record{Name: "Z"})
	obs := &observer{}

	res, err := New(source, target, Options{}, nil, obs).Run(context.Background())
	require.NoError(t, err)

	assert.Len(t, obs.source, 2)
	assert.Len(t, obs.target, 1)
	assert.Equal(t, res.Decisions, obs.decisions)
	require.NotNil(t, obs.summary)
	assert.Equal(t, res.Summary, *obs.summary)
}

func TestRun_InventoryObserverErrorAborts(t *testing.T) {
	source := newMemStore(Record{Name: "A"})
	target := newMemStore()
	obs := &observer{err: errors.New("bucket missing")}

	res, err := New(source, target, Options{}, nil, obs).Run(context.Background())
	assert.Nil(t, res)
	assert.ErrorContains(t, err, "bucket missing")
	assert.Empty(t, target.creates)
	assert.Empty(t, obs.decisions)
}

func TestSleepContext(t *testing.T) {
	assert.NoError(t, sleepContext(context.Background(), 0))
	assert.NoError(t, sleepContext(context.Background(), time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, sleepContext(ctx, time.Hour), context.Canceled)
}
