package mocks

import (
	"context"
	"io"

	"github.com/stretchr/testify/mock"
)

type MockStorage struct {
	mock.Mock
}

func (m *MockStorage) Store(ctx context.Context, reader io.Reader, key string) (string, error) {
	args := m.Called(ctx, reader, key)
	return args.String(0), args.Error(1)
}
