package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"snaplens/internal/model"
	"snaplens/internal/service"
	serviceMocks "snaplens/internal/service/mocks"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/template/html/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newTestApp(t *testing.T, svc service.ImageService) (*fiber.App, sqlmock.Sqlmock) {
	t.Helper()

	db, dbMock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	app := fiber.New(fiber.Config{
		Views:        html.New("../../../web/templates", ".html"),
		ErrorHandler: ErrorHandler(),
	})
	RegisterRoutes(app, db, svc)
	return app, dbMock
}

func TestGallery(t *testing.T) {
	mockSvc := new(serviceMocks.MockImageService)
	app, _ := newTestApp(t, mockSvc)

	t.Run("renders processed images", func(t *testing.T) {
		entries := []service.GalleryEntry{
			{
				ID:            uuid.New().String(),
				FormattedTime: "02:15 PM",
				TopLabel:      "Beans",
				Definition:    "a legume plant.",
				Confidence:    "93.12%",
			},
		}
		mockSvc.On("GalleryEntries", mock.Anything).Return(entries, nil).Once()

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		resp, err := app.Test(req)
		require.NoError(t, err)

		assert.Equal(t, http.StatusOK, resp.StatusCode)

		body, _ := io.ReadAll(resp.Body)
		assert.Contains(t, string(body), "Beans")
		assert.Contains(t, string(body), "93.12%")
		mockSvc.AssertExpectations(t)
	})

	t.Run("service failure", func(t *testing.T) {
		mockSvc.On("GalleryEntries", mock.Anything).Return(nil, errors.New("db down")).Once()

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		resp, err := app.Test(req)
		require.NoError(t, err)

		assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)

		var body errorPayload
		json.NewDecoder(resp.Body).Decode(&body)
		assert.Equal(t, "INTERNAL_ERROR", body.Error.Code)
		mockSvc.AssertExpectations(t)
	})
}

func TestUploadImage(t *testing.T) {
	mockSvc := new(serviceMocks.MockImageService)
	app, _ := newTestApp(t, mockSvc)

	postUpload := func(payload string) *http.Response {
		req := httptest.NewRequest(http.MethodPost, "/upload", bytes.NewBufferString(payload))
		req.Header.Set("Content-Type", "application/json")
		resp, _ := app.Test(req)
		return resp
	}

	t.Run("success", func(t *testing.T) {
		id := uuid.New().String()
		mockSvc.On("Upload", mock.Anything, "data:image/jpeg;base64,AAAA").
			Return(&model.Image{ID: id, Status: model.StatusPending}, nil).Once()

		resp := postUpload(`{"image":"data:image/jpeg;base64,AAAA"}`)

		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var body map[string]any
		json.NewDecoder(resp.Body).Decode(&body)
		assert.Equal(t, true, body["success"])
		assert.Equal(t, id, body["image_id"])
		assert.Equal(t, "Image uploaded successfully and is being processed.", body["message"])
		mockSvc.AssertExpectations(t)
	})

	t.Run("malformed body", func(t *testing.T) {
		resp := postUpload(`{not json`)

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		var body errorPayload
		json.NewDecoder(resp.Body).Decode(&body)
		assert.Equal(t, "INVALID_BODY", body.Error.Code)
	})

	t.Run("missing image key", func(t *testing.T) {
		mockSvc.On("Upload", mock.Anything, "").
			Return(nil, service.ErrInvalidImage).Once()

		resp := postUpload(`{}`)

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		var body errorPayload
		json.NewDecoder(resp.Body).Decode(&body)
		assert.Equal(t, "INVALID_IMAGE", body.Error.Code)
		mockSvc.AssertExpectations(t)
	})

	t.Run("invalid image payload", func(t *testing.T) {
		mockSvc.On("Upload", mock.Anything, "garbage").
			Return(nil, service.ErrInvalidImage).Once()

		resp := postUpload(`{"image":"garbage"}`)

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		var body errorPayload
		json.NewDecoder(resp.Body).Decode(&body)
		assert.Equal(t, "INVALID_IMAGE", body.Error.Code)
		mockSvc.AssertExpectations(t)
	})

	t.Run("storage failure", func(t *testing.T) {
		mockSvc.On("Upload", mock.Anything, "data:image/jpeg;base64,BBBB").
			Return(nil, errors.New("minio unreachable")).Once()

		resp := postUpload(`{"image":"data:image/jpeg;base64,BBBB"}`)

		assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
		var body errorPayload
		json.NewDecoder(resp.Body).Decode(&body)
		assert.Equal(t, "INTERNAL_ERROR", body.Error.Code)
		mockSvc.AssertExpectations(t)
	})
}

func TestGetImage(t *testing.T) {
	mockSvc := new(serviceMocks.MockImageService)
	app, _ := newTestApp(t, mockSvc)

	t.Run("success", func(t *testing.T) {
		id := uuid.New().String()
		jpeg := []byte{0xFF, 0xD8, 0xFF, 0xE0}
		mockSvc.On("ImageData", mock.Anything, id).Return(jpeg, nil).Once()

		req := httptest.NewRequest(http.MethodGet, "/image/"+id, nil)
		resp, err := app.Test(req)
		require.NoError(t, err)

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.True(t, strings.HasPrefix(resp.Header.Get("Content-Type"), "image/jpeg"))

		body, _ := io.ReadAll(resp.Body)
		assert.Equal(t, jpeg, body)
		mockSvc.AssertExpectations(t)
	})

	t.Run("invalid id format", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/image/not-a-uuid", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		var body errorPayload
		json.NewDecoder(resp.Body).Decode(&body)
		assert.Equal(t, "INVALID_ID", body.Error.Code)
	})

	t.Run("not found", func(t *testing.T) {
		id := uuid.New().String()
		mockSvc.On("ImageData", mock.Anything, id).Return(nil, service.ErrNotFound).Once()

		req := httptest.NewRequest(http.MethodGet, "/image/"+id, nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		var body errorPayload
		json.NewDecoder(resp.Body).Decode(&body)
		assert.Equal(t, "NOT_FOUND", body.Error.Code)
		mockSvc.AssertExpectations(t)
	})

	t.Run("storage failure", func(t *testing.T) {
		id := uuid.New().String()
		mockSvc.On("ImageData", mock.Anything, id).Return(nil, errors.New("read failed")).Once()

		req := httptest.NewRequest(http.MethodGet, "/image/"+id, nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
		var body errorPayload
		json.NewDecoder(resp.Body).Decode(&body)
		assert.Equal(t, "INTERNAL_ERROR", body.Error.Code)
		mockSvc.AssertExpectations(t)
	})
}

func TestStatus(t *testing.T) {
	mockSvc := new(serviceMocks.MockImageService)
	app, _ := newTestApp(t, mockSvc)

	t.Run("pending work remains", func(t *testing.T) {
		mockSvc.On("HasPending", mock.Anything).Return(true, nil).Once()

		req := httptest.NewRequest(http.MethodGet, "/status", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var body map[string]bool
		json.NewDecoder(resp.Body).Decode(&body)
		assert.True(t, body["pending"])
		mockSvc.AssertExpectations(t)
	})

	t.Run("queue drained", func(t *testing.T) {
		mockSvc.On("HasPending", mock.Anything).Return(false, nil).Once()

		req := httptest.NewRequest(http.MethodGet, "/status", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var body map[string]bool
		json.NewDecoder(resp.Body).Decode(&body)
		assert.False(t, body["pending"])
		mockSvc.AssertExpectations(t)
	})

	t.Run("repository failure", func(t *testing.T) {
		mockSvc.On("HasPending", mock.Anything).Return(false, errors.New("db down")).Once()

		req := httptest.NewRequest(http.MethodGet, "/status", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
		mockSvc.AssertExpectations(t)
	})
}

func TestHealth(t *testing.T) {
	mockSvc := new(serviceMocks.MockImageService)
	app, dbMock := newTestApp(t, mockSvc)

	t.Run("healthy", func(t *testing.T) {
		dbMock.ExpectPing().WillReturnError(nil)

		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var body map[string]string
		json.NewDecoder(resp.Body).Decode(&body)
		assert.Equal(t, "healthy", body["status"])
	})

	t.Run("unhealthy", func(t *testing.T) {
		dbMock.ExpectPing().WillReturnError(errors.New("db error"))

		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

		var body errorPayload
		json.NewDecoder(resp.Body).Decode(&body)
		assert.Equal(t, "SERVICE_UNAVAILABLE", body.Error.Code)
	})
}

func TestLivenessProbe(t *testing.T) {
	mockSvc := new(serviceMocks.MockImageService)
	app, _ := newTestApp(t, mockSvc)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	resp, _ := app.Test(req)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestMethodNotAllowed(t *testing.T) {
	mockSvc := new(serviceMocks.MockImageService)
	app, _ := newTestApp(t, mockSvc)

	req := httptest.NewRequest(http.MethodDelete, "/status", nil)
	resp, _ := app.Test(req)

	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)

	var body errorPayload
	json.NewDecoder(resp.Body).Decode(&body)
	assert.Equal(t, "METHOD_NOT_ALLOWED", body.Error.Code)
}
