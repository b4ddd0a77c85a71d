package mocks

import (
	"github.com/stretchr/testify/mock"

	"github.com/feichai0017/pdf2md/internal/models"
)

type MockSourceValidator struct {
	mock.Mock
}

func (m *MockSourceValidator) ValidateSource(path string) (*models.DocumentMetadata, error) {
	args := m.Called(path)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.DocumentMetadata), args.Error(1)
}
