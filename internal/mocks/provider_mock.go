// Code generated manually. DO NOT EDIT.

package mocks

import (
	"context"

	"github.com/guttosm/geo-cache-service/internal/domain/model"
	"github.com/guttosm/geo-cache-service/internal/provider"
	"github.com/stretchr/testify/mock"
)

type MockProvider struct {
	mock.Mock
	ProviderName string
	Kinds        []model.RequestKind
}

func (m *MockProvider) Name() string {
	return m.ProviderName
}

func (m *MockProvider) Supports(kind model.RequestKind) bool {
	for _, k := range m.Kinds {
		if k == kind {
			return true
		}
	}
	return false
}

func (m *MockProvider) Resolve(ctx context.Context, req model.Request) (provider.RawResult, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(provider.RawResult), args.Error(1)
}

type MockBatchProvider struct {
	MockProvider
}

func (m *MockBatchProvider) ResolveBatch(ctx context.Context, reqs []model.Request) ([]provider.BatchItem, error) {
	args := m.Called(ctx, reqs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]provider.BatchItem), args.Error(1)
}
