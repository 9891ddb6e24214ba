package handlers

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pushkindt/pushkind-dantes/internal/upload"
)

func multipartUpload(t *testing.T, fileName, content, format, mode string) *http.Request {
	t.Helper()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", fileName)
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, writer.WriteField("format", format))
	require.NoError(t, writer.WriteField("mode", mode))
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/import", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func TestReadUploadFile(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = multipartUpload(t, "catalog.csv", "sku,price\nA1,10\n", "csv", "partial")

	data, meta, ok := readUploadFile(c)
	require.True(t, ok)
	assert.Equal(t, "sku,price\nA1,10\n", string(data))
	assert.Equal(t, "catalog.csv", meta.FileName)
	assert.Equal(t, "csv", meta.Format)
	assert.Equal(t, "partial", meta.Mode)
}

func TestReadUploadFileMissingFile(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/import", nil)
	c.Request.Header.Set("Content-Type", "multipart/form-data; boundary=x")

	_, _, ok := readUploadFile(c)
	assert.False(t, ok)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), upload.CodeFileRequired)
}

func TestRespondUploadError(t *testing.T) {
	gin.SetMode(gin.TestMode)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	_, err := upload.ParseFormat("pdf")
	respondUploadError(c, err)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), upload.CodeInvalidFormat)

	w = httptest.NewRecorder()
	c, _ = gin.CreateTestContext(w)
	respondUploadError(c, assert.AnError)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "INTERNAL_ERROR")
}

func TestPaginationParams(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodGet, "/?page=3&limit=25", nil)

	page, limit := paginationParams(c)
	assert.Equal(t, 3, page)
	assert.Equal(t, 25, limit)

	c, _ = gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodGet, "/?page=-1&limit=9999", nil)
	page, limit = paginationParams(c)
	assert.Equal(t, 1, page)
	assert.Equal(t, 50, limit)
}

func TestBuildPagination(t *testing.T) {
	info := buildPagination(2, 50, 120)
	assert.Equal(t, 3, info.TotalPages)
	assert.True(t, info.HasNext)
	assert.True(t, info.HasPrevious)

	info = buildPagination(1, 50, 0)
	assert.Equal(t, 0, info.TotalPages)
	assert.False(t, info.HasNext)
	assert.False(t, info.HasPrevious)
}
