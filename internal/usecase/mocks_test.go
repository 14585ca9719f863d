package usecase

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/xavierca1/ligue-crm/internal/entity"
)

// MockLeadRepository
type MockLeadRepository struct {
	mock.Mock
}

func (m *MockLeadRepository) Find(ctx context.Context, q entity.LeadQuery, order entity.Ordering) ([]*entity.Lead, error) {
	args := m.Called(ctx, q, order)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entity.Lead), args.Error(1)
}

func (m *MockLeadRepository) Stream(ctx context.Context, q entity.LeadQuery, order entity.Ordering, fn func(*entity.Lead) error) error {
	args := m.Called(ctx, q, order, fn)
	return args.Error(0)
}

func (m *MockLeadRepository) FindByID(ctx context.Context, id string) (*entity.Lead, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Lead), args.Error(1)
}

func (m *MockLeadRepository) Insert(ctx context.Context, lead *entity.Lead) error {
	args := m.Called(ctx, lead)
	return args.Error(0)
}

func (m *MockLeadRepository) Update(ctx context.Context, lead *entity.Lead) error {
	args := m.Called(ctx, lead)
	return args.Error(0)
}

func (m *MockLeadRepository) Delete(ctx context.Context, id string) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *MockLeadRepository) Count(ctx context.Context, q entity.LeadQuery) (int, error) {
	args := m.Called(ctx, q)
	return args.Int(0), args.Error(1)
}

func (m *MockLeadRepository) CountBy(ctx context.Context, field entity.GroupField) (map[string]int, error) {
	args := m.Called(ctx, field)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]int), args.Error(1)
}

func (m *MockLeadRepository) SumValue(ctx context.Context, q entity.LeadQuery) (float64, error) {
	args := m.Called(ctx, q)
	return args.Get(0).(float64), args.Error(1)
}

func (m *MockLeadRepository) AverageValue(ctx context.Context, q entity.LeadQuery) (float64, error) {
	args := m.Called(ctx, q)
	return args.Get(0).(float64), args.Error(1)
}

func (m *MockLeadRepository) MonthlyCreated(ctx context.Context, since time.Time, loc *time.Location) ([]entity.MonthlyBucket, error) {
	args := m.Called(ctx, since, loc)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.MonthlyBucket), args.Error(1)
}

// MockPublisher
type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) PublishLeadEvent(ctx context.Context, event LeadEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

// MockMetrics
type MockMetrics struct {
	mock.Mock
}

func (m *MockMetrics) LeadCreated() {
	m.Called()
}

func (m *MockMetrics) LeadStatusChanged(status string) {
	m.Called(status)
}

// stubUsers is a fixed user directory.
type stubUsers map[string]entity.UserRef

func (s stubUsers) FindByIDs(ctx context.Context, ids []string) (map[string]entity.UserRef, error) {
	out := map[string]entity.UserRef{}
	for _, id := range ids {
		if u, ok := s[id]; ok {
			out[id] = u
		}
	}
	return out, nil
}
