// Code generated manually. DO NOT EDIT.

package mocks

import (
	"context"
	"time"

	"github.com/guttosm/geo-cache-service/internal/domain/model"
	"github.com/stretchr/testify/mock"
)

type MockLookuper struct {
	mock.Mock
}

func (m *MockLookuper) Lookup(ctx context.Context, req model.Request) (*model.Result, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Result), args.Error(1)
}

func (m *MockLookuper) LookupBatch(ctx context.Context, reqs []model.Request) []model.BatchResult {
	args := m.Called(ctx, reqs)
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).([]model.BatchResult)
}

func (m *MockLookuper) GetPerformance() model.Performance {
	args := m.Called()
	return args.Get(0).(model.Performance)
}

type MockMaintainer struct {
	mock.Mock
}

func (m *MockMaintainer) RunMaintenance(ctx context.Context) (*model.MaintenanceReport, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.MaintenanceReport), args.Error(1)
}

func (m *MockMaintainer) Cleanup(ctx context.Context) (*model.MaintenanceReport, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.MaintenanceReport), args.Error(1)
}

func (m *MockMaintainer) Stats(ctx context.Context, window time.Duration) (*model.MaintenanceReport, error) {
	args := m.Called(ctx, window)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.MaintenanceReport), args.Error(1)
}
