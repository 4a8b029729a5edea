package accounts

import (
	"context"
	"errors"
	"fmt"

	"account-sync/core/reconcile"
	"account-sync/core/remote"

	"go.uber.org/zap"
)

// Resource is the remote collection a Store reads and writes.
// *remote.Client satisfies it.
type Resource interface {
	List(ctx context.Context, fields []string, filters [][]any) ([]remote.Document, error)
	Get(ctx context.Context, name string) (remote.Document, error)
	Insert(ctx context.Context, doc remote.Document) (remote.Document, error)
	Update(ctx context.Context, name string, doc remote.Document) (remote.Document, error)
}

// Store adapts a Resource to reconcile.Store.
type Store struct {
	resource Resource
	label    string
	logger   *zap.Logger
}

// NewStore creates a Store. label names the side ("source", "target") in logs.
func NewStore(resource Resource, label string, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		resource: resource,
		label:    label,
		logger:   logger.With(zap.String("store", label)),
	}
}

// NewRemoteStore builds a Store backed by a remote.Client for cfg.
func NewRemoteStore(cfg remote.Config, label string, logger *zap.Logger) *Store {
	return NewStore(remote.New(cfg), label, logger)
}

// List returns every account, scoped to filter.Company when set.
func (s *Store) List(ctx context.Context, filter reconcile.Filter) ([]reconcile.Record, error) {
	var filters [][]any
	if filter.Company != "" {
		filters = append(filters, []any{string(reconcile.FieldCompany), "=", filter.Company})
	}

	docs, err := s.resource.List(ctx, ListFields, filters)
	if err != nil {
		return nil, mapError("list", "", err)
	}

	records := make([]reconcile.Record, 0, len(docs))
	for _, doc := range docs {
		rec := DecodeRecord(doc)
		if filter.Company != "" && rec.Company != filter.Company {
			continue
		}
		records = append(records, rec)
	}

	s.logger.Debug("Listed accounts",
		zap.Int("documents", len(docs)),
		zap.Int("records", len(records)),
	)
	return records, nil
}

// Get fetches one account. A missing account yields (nil, nil).
func (s *Store) Get(ctx context.Context, name string) (*reconcile.Record, error) {
	doc, err := s.resource.Get(ctx, name)
	if err != nil {
		return nil, mapError("get", name, err)
	}
	if doc == nil {
		return nil, nil
	}
	rec := DecodeRecord(doc)
	return &rec, nil
}

// Create inserts an account built from payload.
func (s *Store) Create(ctx context.Context, payload reconcile.Payload) (*reconcile.Record, error) {
	doc, err := s.resource.Insert(ctx, EncodePayload(payload))
	if err != nil {
		name, _ := payload[reconcile.FieldName].(string)
		if name == "" {
			name, _ = payload[reconcile.FieldDisplayName].(string)
		}
		return nil, mapError("create", name, err)
	}
	return decodeResult(doc), nil
}

// Update applies payload to the named account.
func (s *Store) Update(ctx context.Context, name string, payload reconcile.Payload) (*reconcile.Record, error) {
	doc, err := s.resource.Update(ctx, name, EncodePayload(payload))
	if err != nil {
		return nil, mapError("update", name, err)
	}
	return decodeResult(doc), nil
}

func decodeResult(doc remote.Document) *reconcile.Record {
	if doc == nil {
		return nil
	}
	rec := DecodeRecord(doc)
	return &rec
}

// mapError translates remote client errors into reconcile errors.
func mapError(op, name string, err error) error {
	var apiErr *remote.APIError
	if errors.As(err, &apiErr) {
		return &reconcile.RemoteRejectedError{
			Op:         op,
			Name:       name,
			StatusCode: apiErr.StatusCode,
			Message:    apiErr.Message,
		}
	}

	var transportErr *remote.TransportError
	if errors.As(err, &transportErr) {
		label := op
		if name != "" {
			label = op + " " + name
		}
		return &reconcile.TransientError{Op: label, Err: transportErr.Err}
	}

	if name != "" {
		return fmt.Errorf("failed to %s %s: %w", op, name, err)
	}
	return fmt.Errorf("failed to %s: %w", op, err)
}
