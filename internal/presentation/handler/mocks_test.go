package handler

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"ephemera/internal/application/usecase"
	"ephemera/internal/domain/dto"
	"ephemera/internal/domain/model"
	"ephemera/internal/presentation"
)

const testOwner = "b2b2b2b2b2b2b2b2b2b2b2b2b2b2b2b2b2b2b2b2b2b2b2b2b2b2b2b2b2b2b2b2"

type MockCreator struct {
	mock.Mock
}

func (m *MockCreator) Create(ctx context.Context, req usecase.CreateRequest) (*model.Content, error) {
	args := m.Called(ctx, req)
	if c, ok := args.Get(0).(*model.Content); ok {
		return c, args.Error(1)
	}

	return nil, args.Error(1)
}

type MockDeleter struct {
	mock.Mock
}

func (m *MockDeleter) Delete(ctx context.Context, id, requester string) error {
	return m.Called(ctx, id, requester).Error(0)
}

type MockGetter struct {
	mock.Mock
}

func (m *MockGetter) Get(ctx context.Context, id string) (*dto.ContentDescriptor, error) {
	args := m.Called(ctx, id)
	if d, ok := args.Get(0).(*dto.ContentDescriptor); ok {
		return d, args.Error(1)
	}

	return nil, args.Error(1)
}

func (m *MockGetter) ListByOwner(ctx context.Context, ownerID string) ([]dto.ContentDescriptor, error) {
	args := m.Called(ctx, ownerID)
	if d, ok := args.Get(0).([]dto.ContentDescriptor); ok {
		return d, args.Error(1)
	}

	return nil, args.Error(1)
}

type part struct {
	field       string
	filename    string
	contentType string
	body        []byte
}

func multipartRequest(t *testing.T, parts []part, fields map[string]string) *http.Request {
	t.Helper()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	for _, p := range parts {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", `form-data; name="`+p.field+`"; filename="`+p.filename+`"`)
		h.Set(presentation.TypeKey, p.contentType)
		pw, err := w.CreatePart(h)
		require.NoError(t, err)
		_, err = pw.Write(p.body)
		require.NoError(t, err)
	}

	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/", &buf)
	req.Header.Set(presentation.TypeKey, w.FormDataContentType())

	return req
}

func newContext(req *http.Request, pk string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if pk != "" {
		c.Set(presentation.PK, pk)
	}

	return c, rec
}
