package document

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/dvloznov/statement-extractor/internal/gcs"
	"github.com/google/uuid"
)

// Supported MIME types.
const (
	MIMEPDF  = "application/pdf"
	MIMEText = "text/plain"
	MIMECSV  = "text/csv"
	MIMEJSON = "application/json"
)

// Document is the raw content handed to the extraction and validation stages.
// Stages treat Content as read-only.
type Document struct {
	ID       string
	Name     string // original filename
	URI      string // local path or gs:// URI it was loaded from
	MIMEType string
	Content  []byte
}

// New wraps in-memory content as a Document. An empty mimeType is detected
// from the name and the content.
func New(name, mimeType string, content []byte) Document {
	if mimeType == "" {
		mimeType = DetectMIMEType(name, content)
	}
	return Document{
		ID:       uuid.NewString(),
		Name:     name,
		MIMEType: mimeType,
		Content:  content,
	}
}

// FromText builds a plain-text document.
func FromText(name, text string) Document {
	return New(name, MIMEText, []byte(text))
}

// IsEmpty reports whether the document has no meaningful content.
func (d Document) IsEmpty() bool {
	return len(bytes.TrimSpace(d.Content)) == 0
}

// IsText reports whether the content can be passed to a model as text.
func (d Document) IsText() bool {
	return strings.HasPrefix(d.MIMEType, "text/") || d.MIMEType == MIMEJSON
}

// Text returns the content as a string. It fails for binary documents and
// for text that is not valid UTF-8.
func (d Document) Text() (string, error) {
	if !d.IsText() {
		return "", fmt.Errorf("document %q has binary type %s", d.Name, d.MIMEType)
	}
	if !utf8.Valid(d.Content) {
		return "", fmt.Errorf("document %q is not valid UTF-8", d.Name)
	}
	return string(d.Content), nil
}

// Checksum returns the hex SHA-256 of the content.
func (d Document) Checksum() string {
	sum := sha256.Sum256(d.Content)
	return hex.EncodeToString(sum[:])
}

// DetectMIMEType guesses the type from the file extension, falling back to
// content sniffing.
func DetectMIMEType(name string, content []byte) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".pdf":
		return MIMEPDF
	case ".txt", ".text":
		return MIMEText
	case ".csv":
		return MIMECSV
	case ".json":
		return MIMEJSON
	}

	sniffed := http.DetectContentType(content)
	if i := strings.Index(sniffed, ";"); i != -1 {
		sniffed = sniffed[:i]
	}
	return sniffed
}

// Loader reads documents from the local filesystem or from GCS.
type Loader struct {
	storage gcs.StorageService
}

// NewLoader creates a Loader. storage may be nil when only local paths are used.
func NewLoader(storage gcs.StorageService) *Loader {
	return &Loader{storage: storage}
}

// Load fetches the document at uri, which is either a gs:// URI or a local path.
func (l *Loader) Load(ctx context.Context, uri string) (Document, error) {
	var (
		content []byte
		name    string
		err     error
	)

	if gcs.IsURI(uri) {
		if l.storage == nil {
			return Document{}, fmt.Errorf("Load: %s: no storage service configured", uri)
		}
		content, err = l.storage.FetchFromGCS(ctx, uri)
		if err != nil {
			return Document{}, fmt.Errorf("Load: %w", err)
		}
		name = gcs.ExtractFilenameFromGCSURI(uri)
	} else {
		content, err = os.ReadFile(uri)
		if err != nil {
			return Document{}, fmt.Errorf("Load: reading %s: %w", uri, err)
		}
		name = filepath.Base(uri)
	}

	doc := New(name, "", content)
	doc.URI = uri
	return doc, nil
}
