package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/feichai0017/pdf2md/internal/agent/document"
	"github.com/feichai0017/pdf2md/internal/models"
)

// MockLoader implements document.Loader and document.OptionDescriber.
type MockLoader struct {
	mock.Mock
}

func (m *MockLoader) Load(ctx context.Context, path string, opts document.Options) ([]models.Page, error) {
	args := m.Called(ctx, path, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Page), args.Error(1)
}

func (m *MockLoader) AcceptedOptions() ([]string, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

// MockPlainLoader implements document.Loader only.
type MockPlainLoader struct {
	mock.Mock
}

func (m *MockPlainLoader) Load(ctx context.Context, path string, opts document.Options) ([]models.Page, error) {
	args := m.Called(ctx, path, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Page), args.Error(1)
}
