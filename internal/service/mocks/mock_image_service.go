package mocks

import (
	"context"

	"snaplens/internal/model"
	"snaplens/internal/service"

	"github.com/stretchr/testify/mock"
)

type MockImageService struct {
	mock.Mock
}

func (m *MockImageService) Upload(ctx context.Context, dataURL string) (*model.Image, error) {
	args := m.Called(ctx, dataURL)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Image), args.Error(1)
}

func (m *MockImageService) GalleryEntries(ctx context.Context) ([]service.GalleryEntry, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]service.GalleryEntry), args.Error(1)
}

func (m *MockImageService) ImageData(ctx context.Context, id string) ([]byte, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func (m *MockImageService) HasPending(ctx context.Context) (bool, error) {
	args := m.Called(ctx)
	return args.Bool(0), args.Error(1)
}
