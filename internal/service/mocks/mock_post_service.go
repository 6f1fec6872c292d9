package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"postboard/internal/model"
	"postboard/internal/service"
)

type MockPostService struct {
	mock.Mock
}

func (m *MockPostService) List(ctx context.Context) ([]model.Post, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Post), args.Error(1)
}

func (m *MockPostService) Create(ctx context.Context, in service.CreatePostInput) (*service.CreatePostResult, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.CreatePostResult), args.Error(1)
}
