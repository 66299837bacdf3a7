package usecase

import (
	"context"

	"github.com/stretchr/testify/mock"

	"ephemera/internal/domain/entity"
	"ephemera/internal/domain/model"
)

var pngBody = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00")

var fastConfig = Config{
	RequireDescription:   true,
	MaxMedia:             3,
	DefaultTTL:           86400,
	UploadAttempts:       3,
	DeleteAttempts:       2,
	RetryInitialInterval: 1,
	RetryMaxInterval:     2,
}

type MockOwners struct {
	mock.Mock
}

func (m *MockOwners) Exists(ctx context.Context, ownerID string) (bool, error) {
	args := m.Called(ctx, ownerID)

	return args.Bool(0), args.Error(1)
}

type MockWriter struct {
	mock.Mock
}

func (m *MockWriter) Write(ctx context.Context, content *model.Content) error {
	args := m.Called(ctx, content)

	return args.Error(0)
}

type MockUploader struct {
	mock.Mock
}

func (m *MockUploader) Upload(ctx context.Context, body []byte, contentType string) (entity.UploadedBlob, error) {
	args := m.Called(ctx, body, contentType)

	return args.Get(0).(entity.UploadedBlob), args.Error(1)
}

type MockBlobRemover struct {
	mock.Mock
}

func (m *MockBlobRemover) Remove(ctx context.Context, blobID string) error {
	args := m.Called(ctx, blobID)

	return args.Error(0)
}

type MockLedger struct {
	mock.Mock
}

func (m *MockLedger) Record(ctx context.Context, orphan *model.Orphan) error {
	args := m.Called(ctx, orphan)

	return args.Error(0)
}

func (m *MockLedger) List(ctx context.Context, limit int64) ([]model.Orphan, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]model.Orphan), args.Error(1)
}

func (m *MockLedger) Resolve(ctx context.Context, id string) error {
	args := m.Called(ctx, id)

	return args.Error(0)
}

type MockRetriever struct {
	mock.Mock
}

func (m *MockRetriever) GetByID(ctx context.Context, id string) (*model.Content, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*model.Content), args.Error(1)
}

func (m *MockRetriever) GetByOwner(ctx context.Context, ownerID string) ([]model.Content, error) {
	args := m.Called(ctx, ownerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]model.Content), args.Error(1)
}

type MockContentRemover struct {
	mock.Mock
}

func (m *MockContentRemover) RemoveByID(ctx context.Context, id string) (bool, error) {
	args := m.Called(ctx, id)

	return args.Bool(0), args.Error(1)
}
