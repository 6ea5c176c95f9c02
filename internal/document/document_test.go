package document

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// MockStorageService is a mock implementation of gcs.StorageService.
type MockStorageService struct {
	FetchFromGCSFunc func(ctx context.Context, gcsURI string) ([]byte, error)
}

func (m *MockStorageService) UploadFile(ctx context.Context, bucket, object, filePath string) error {
	return nil
}

func (m *MockStorageService) UploadReader(ctx context.Context, bucket, object, contentType string, r io.Reader) (int64, error) {
	return 0, nil
}

func (m *MockStorageService) FetchFromGCS(ctx context.Context, gcsURI string) ([]byte, error) {
	if m.FetchFromGCSFunc != nil {
		return m.FetchFromGCSFunc(ctx, gcsURI)
	}
	return nil, nil
}

func (m *MockStorageService) Close() error { return nil }

func TestDetectMIMEType(t *testing.T) {
	tests := []struct {
		name    string
		content []byte
		want    string
	}{
		{"statement.pdf", nil, MIMEPDF},
		{"STATEMENT.PDF", nil, MIMEPDF},
		{"ledger.txt", nil, MIMEText},
		{"export.csv", nil, MIMECSV},
		{"rows.json", nil, MIMEJSON},
		{"noext", []byte("%PDF-1.7\n"), MIMEPDF},
		{"noext", []byte("hello world"), MIMEText},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DetectMIMEType(tt.name, tt.content))
		})
	}
}

func TestDocumentText(t *testing.T) {
	doc := FromText("s.txt", "2024-01-15 Salary 5000.00")
	text, err := doc.Text()
	require.NoError(t, err)
	assert.Contains(t, text, "Salary")
	assert.False(t, doc.IsEmpty())
	assert.NotEmpty(t, doc.ID)

	pdf := New("s.pdf", "", []byte("%PDF-1.4"))
	_, err = pdf.Text()
	assert.Error(t, err)

	assert.True(t, FromText("blank.txt", " \n\t ").IsEmpty())
}

func TestLoaderLocal(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "statement.txt")
	require.NoError(t, os.WriteFile(path, []byte("2024-01-15 Salary 5000.00\n"), 0o644))

	doc, err := NewLoader(nil).Load(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "statement.txt", doc.Name)
	assert.Equal(t, path, doc.URI)
	assert.Equal(t, MIMEText, doc.MIMEType)
	assert.Len(t, doc.Checksum(), 64)

	_, err = NewLoader(nil).Load(context.Background(), filepath.Join(dir, "missing.txt"))
	assert.Error(t, err)
}

func TestLoaderGCS(t *testing.T) {
	storage := &MockStorageService{
		FetchFromGCSFunc: func(ctx context.Context, gcsURI string) ([]byte, error) {
			assert.Equal(t, "gs://bucket/statements/jan.pdf", gcsURI)
			return []byte("%PDF-1.4"), nil
		},
	}

	doc, err := NewLoader(storage).Load(context.Background(), "gs://bucket/statements/jan.pdf")
	require.NoError(t, err)
	assert.Equal(t, "jan.pdf", doc.Name)
	assert.Equal(t, MIMEPDF, doc.MIMEType)

	_, err = NewLoader(nil).Load(context.Background(), "gs://bucket/x.pdf")
	assert.Error(t, err)

	failing := &MockStorageService{
		FetchFromGCSFunc: func(ctx context.Context, gcsURI string) ([]byte, error) {
			return nil, errors.New("permission denied")
		},
	}
	_, err = NewLoader(failing).Load(context.Background(), "gs://bucket/x.pdf")
	assert.ErrorContains(t, err, "permission denied")
}
