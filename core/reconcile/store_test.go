package reconcile

import (
	"context"
	"fmt"
	"sync"
)

// memStore is an in-memory Store used across the reconciler tests.
type memStore struct {
	mu      sync.Mutex
	records []Record

	listErr   error
	getErr    error
	createErr func(p Payload) error
	updateErr func(name string, p Payload) error

	creates []Payload
	updates []update
	gets    []string
}

type update struct {
	Name    string
	Payload Payload
}

func newMemStore(records ...Record) *memStore {
	return &memStore{records: append([]Record(nil), records...)}
}

func (s *memStore) List(ctx context.Context, filter Filter) ([]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listErr != nil {
		return nil, s.listErr
	}
	var out []Record
	for _, r := range s.records {
		if filter.Company != "" && r.Company != filter.Company {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

func (s *memStore) Get(ctx context.Context, name string) (*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gets = append(s.gets, name)
	if s.getErr != nil {
		return nil, s.getErr
	}
	for _, r := range s.records {
		if r.Name == name {
			rec := r
			return &rec, nil
		}
	}
	return nil, nil
}

func (s *memStore) Create(ctx context.Context, p Payload) (*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.creates = append(s.creates, p)
	if s.createErr != nil {
		if err := s.createErr(p); err != nil {
			return nil, err
		}
	}
	rec := recordFromPayload(Record{}, p)
	if rec.Name == "" {
		rec.Name = rec.DisplayName
	}
	for _, r := range s.records {
		if r.Name == rec.Name {
			return nil, &RemoteRejectedError{Op: "create", Name: rec.Name, StatusCode: 409, Message: "duplicate"}
		}
	}
	s.records = append(s.records, rec)
	return &rec, nil
}

func (s *memStore) Update(ctx context.Context, name string, p Payload) (*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.updates = append(s.updates, update{Name: name, Payload: p})
	if s.updateErr != nil {
		if err := s.updateErr(name, p); err != nil {
			return nil, err
		}
	}
	for i, r := range s.records {
		if r.Name == name {
			s.records[i] = recordFromPayload(r, p)
			rec := s.records[i]
			return &rec, nil
		}
	}
	return nil, &RemoteRejectedError{Op: "update", Name: name, StatusCode: 404, Message: "not found"}
}

func (s *memStore) createdNames() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.creates))
	for _, p := range s.creates {
		if n, _ := p[FieldName].(string); n != "" {
			names = append(names, n)
			continue
		}
		names = append(names, fmt.Sprint(p[FieldDisplayName]))
	}
	return names
}

func recordFromPayload(r Record, p Payload) Record {
	str := func(v any) string {
		if v == nil {
			return ""
		}
		return fmt.Sprint(v)
	}
	for f, v := range p {
		switch f {
		case FieldName:
			r.Name = str(v)
		case FieldDisplayName:
			r.DisplayName = str(v)
		case FieldParent:
			r.Parent = str(v)
		case FieldType:
			r.Type = str(v)
		case FieldRootType:
			r.RootType = str(v)
		case FieldReportType:
			r.ReportType = str(v)
		case FieldIsGroup:
			r.IsGroup = str(v) == "1"
		case FieldCompany:
			r.Company = str(v)
		}
	}
	return r
}

// sinkFunc adapts a function to Sink.
type sinkFunc func(ctx context.Context, d Decision)

func (f sinkFunc) Decide(ctx context.Context, d Decision) { f(ctx, d) }
