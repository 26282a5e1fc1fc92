// Code generated manually. DO NOT EDIT.

package mocks

import (
	"context"
	"time"

	"github.com/guttosm/geo-cache-service/internal/domain/model"
	"github.com/stretchr/testify/mock"
)

type MockCacheStore struct {
	mock.Mock
}

func (m *MockCacheStore) Get(ctx context.Context, key string, kind model.RequestKind) (*model.CacheEntry, error) {
	args := m.Called(ctx, key, kind)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.CacheEntry), args.Error(1)
}

func (m *MockCacheStore) Put(ctx context.Context, entry *model.CacheEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockCacheStore) BulkPut(ctx context.Context, entries []*model.CacheEntry) error {
	args := m.Called(ctx, entries)
	return args.Error(0)
}

func (m *MockCacheStore) IncrementHits(ctx context.Context, hits []model.HitIncrement) error {
	args := m.Called(ctx, hits)
	return args.Error(0)
}

func (m *MockCacheStore) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	args := m.Called(ctx, before)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockCacheStore) AggregateStats(ctx context.Context, window time.Duration, now time.Time) (model.AggregateStats, error) {
	args := m.Called(ctx, window, now)
	return args.Get(0).(model.AggregateStats), args.Error(1)
}

func (m *MockCacheStore) RecordUsage(ctx context.Context, delta model.UsageDelta) error {
	args := m.Called(ctx, delta)
	return args.Error(0)
}

func (m *MockCacheStore) TopEntries(ctx context.Context, limit int) ([]*model.CacheEntry, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.CacheEntry), args.Error(1)
}

func (m *MockCacheStore) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockCacheStore) Close(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}
