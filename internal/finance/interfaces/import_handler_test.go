package interfaces

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/sebuszqo/FinanceTracker/internal/finance/application"
	"github.com/sebuszqo/FinanceTracker/internal/finance/ingest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingImportService records the size of every uploaded file.
type countingImportService struct {
	sizes []int
}

func (s *countingImportService) ImportFile(_ context.Context, _ string, _ uuid.UUID, _ string, data []byte) (*application.ImportResult, error) {
	s.sizes = append(s.sizes, len(data))
	return &application.ImportResult{Imported: 1}, nil
}

func (s *countingImportService) SyncFeed(_ context.Context, _ string, _ uuid.UUID, _ []ingest.FeedTransaction) (*application.ImportResult, error) {
	return &application.ImportResult{}, nil
}

func multipartUpload(t *testing.T, filename string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, writer.Close())
	return body, writer.FormDataContentType()
}

func TestImportFileRemovesSpilledUploads(t *testing.T) {
	tempDir := t.TempDir()
	t.Setenv("TMPDIR", tempDir)

	service := &countingImportService{}
	handler := NewImportHandler(service, 4<<20, RespondJSON, RespondError, zerolog.Nop())
	content := []byte("Date,Description,Amount\n" + strings.Repeat("2024-03-01,Coffee,-3.50\n", 100000))
	require.Greater(t, len(content), multipartMemory, "the upload must not fit in memory")

	body, contentType := multipartUpload(t, "statement.csv", content)
	req := withUser(httptest.NewRequest(http.MethodPost, "/api/protected/accounts/x/import", body), "u1")
	req.Header.Set("Content-Type", contentType)
	req.SetPathValue("accountID", uuid.NewString())
	w := httptest.NewRecorder()
	handler.ImportFile(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []int{len(content)}, service.sizes)
	leftovers, err := os.ReadDir(tempDir)
	require.NoError(t, err)
	assert.Empty(t, leftovers, "temporary multipart files are removed after the request")
}

func TestImportFileRejectsOversizedUpload(t *testing.T) {
	service := &countingImportService{}
	handler := NewImportHandler(service, 1<<10, RespondJSON, RespondError, zerolog.Nop())

	body, contentType := multipartUpload(t, "statement.csv", bytes.Repeat([]byte("x"), 200<<10))
	req := withUser(httptest.NewRequest(http.MethodPost, "/api/protected/accounts/x/import", body), "u1")
	req.Header.Set("Content-Type", contentType)
	req.SetPathValue("accountID", uuid.NewString())
	w := httptest.NewRecorder()
	handler.ImportFile(w, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	assert.Empty(t, service.sizes)
}
