package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
)

type MockForceOCR struct {
	mock.Mock
}

func (m *MockForceOCR) ForceOCR(ctx context.Context, source, lang string) (string, error) {
	args := m.Called(ctx, source, lang)
	return args.String(0), args.Error(1)
}
