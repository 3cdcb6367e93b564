package mocks

import (
	"context"

	"snaplens/internal/model"

	"github.com/stretchr/testify/mock"
)

type MockImageRepository struct {
	mock.Mock
}

func (m *MockImageRepository) Create(ctx context.Context, img *model.Image) (*model.Image, error) {
	args := m.Called(ctx, img)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Image), args.Error(1)
}

func (m *MockImageRepository) FindByID(ctx context.Context, id string) (*model.Image, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Image), args.Error(1)
}

func (m *MockImageRepository) ListProcessed(ctx context.Context) ([]model.Image, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Image), args.Error(1)
}

func (m *MockImageRepository) NextPending(ctx context.Context) (*model.Image, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Image), args.Error(1)
}

func (m *MockImageRepository) HasPending(ctx context.Context) (bool, error) {
	args := m.Called(ctx)
	return args.Bool(0), args.Error(1)
}

func (m *MockImageRepository) MarkProcessed(ctx context.Context, id string, classifications []model.Classification, processedAt int64) error {
	args := m.Called(ctx, id, classifications, processedAt)
	return args.Error(0)
}

func (m *MockImageRepository) SetDefinition(ctx context.Context, id string, definition string) error {
	args := m.Called(ctx, id, definition)
	return args.Error(0)
}
