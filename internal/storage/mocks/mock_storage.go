package mocks

import (
	"context"
	"io"

	"github.com/stretchr/testify/mock"

	"postboard/internal/storage"
)

type MockStorage struct {
	mock.Mock
}

func (m *MockStorage) Upload(ctx context.Context, r io.Reader, opt storage.PutObjectOptions) (storage.ObjectInfo, error) {
	args := m.Called(ctx, r, opt)
	if f, ok := args.Get(0).(func(context.Context, io.Reader, storage.PutObjectOptions) storage.ObjectInfo); ok {
		return f(ctx, r, opt), args.Error(1)
	}
	return args.Get(0).(storage.ObjectInfo), args.Error(1)
}
