package io

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/williampepple1/booksource-verifier/pkg/models"
)

// OutputFileName is the file the reachable sources are written to
const OutputFileName = "valid_books.json"

// ResultWriter writes results to disk
type ResultWriter struct {
	Logger *slog.Logger
}

// NewResultWriter creates a new result writer
func NewResultWriter(logger *slog.Logger) *ResultWriter {
	return &ResultWriter{
		Logger: logger,
	}
}

// Save writes sources to dir/valid_books.json, creating dir when needed, and
// returns the file path. Errors are *SaveError.
func (w *ResultWriter) Save(sources []models.BookSource, dir string) (string, error) {
	if dir == "" {
		dir = "."
	}
	path := filepath.Join(dir, OutputFileName)
	w.Logger.Info("Saving valid book sources", "count", len(sources), "path", path)

	if sources == nil {
		sources = []models.BookSource{}
	}
	data, err := EncodeJSON(sources)
	if err != nil {
		return "", &SaveError{Path: path, Err: err}
	}
	if err := writeFileAtomic(path, data); err != nil {
		return "", err
	}

	w.Logger.Info("Valid book sources saved", "path", path)
	return path, nil
}

// SaveReport writes any JSON-serializable report to path
func (w *ResultWriter) SaveReport(report any, path string) error {
	data, err := EncodeJSON(report)
	if err != nil {
		return &SaveError{Path: path, Err: err}
	}
	if err := writeFileAtomic(path, data); err != nil {
		return err
	}
	w.Logger.Info("Report saved", "path", path)
	return nil
}

// EncodeJSON renders v with four space indentation, leaving HTML characters
// and non-ASCII text unescaped.
func EncodeJSON(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// writeFileAtomic replaces path so a failed write leaves the old file intact
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return &SaveError{Path: path, Err: err}
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return &SaveError{Path: path, Err: err}
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after a successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return &SaveError{Path: path, Err: err}
	}
	if err := tmp.Close(); err != nil {
		return &SaveError{Path: path, Err: err}
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return &SaveError{Path: path, Err: err}
	}
	if err := os.Rename(tmpName, path); err != nil {
		return &SaveError{Path: path, Err: err}
	}
	return nil
}
