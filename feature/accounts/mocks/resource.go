package mocks

import (
	"context"

	"account-sync/core/remote"

	"github.com/stretchr/testify/mock"
)

// Resource is a mock implementation of accounts.Resource
type Resource struct {
	mock.Mock
}

func (m *Resource) List(ctx context.Context, fields []string, filters [][]any) ([]remote.Document, error) {
	args := m.Called(ctx, fields, filters)
	if docs, ok := args.Get(0).([]remote.Document); ok {
		return docs, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *Resource) Get(ctx context.Context, name string) (remote.Document, error) {
	args := m.Called(ctx, name)
	if doc, ok := args.Get(0).(remote.Document); ok {
		return doc, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *Resource) Insert(ctx context.Context, doc remote.Document) (remote.Document, error) {
	args := m.Called(ctx, doc)
	if out, ok := args.Get(0).(remote.Document); ok {
		return out, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *Resource) Update(ctx context.Context, name string, doc remote.Document) (remote.Document, error) {
	args := m.Called(ctx, name, doc)
	if out, ok := args.Get(0).(remote.Document); ok {
		return out, args.Error(1)
	}
	return nil, args.Error(1)
}
