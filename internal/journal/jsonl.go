package journal

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/williamsryan/OptiTrade/internal/ledger"
)

// JSONLWriter appends trades as JSON lines for later analysis.
type JSONLWriter struct {
	mu   sync.Mutex
	file *os.File
	enc  *json.Encoder
}

// NewJSONLWriter creates/opens the target file and returns a writer.
func NewJSONLWriter(path string) (*JSONLWriter, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, err
	}
	return &JSONLWriter{file: file, enc: json.NewEncoder(file)}, nil
}

// RecordTrade writes a single trade line.
func (w *JSONLWriter) RecordTrade(t ledger.ExecutedTrade) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.enc.Encode(t)
}

// Close flushes and closes the file handle.
func (w *JSONLWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.file == nil {
		return nil
	}
	err := w.file.Close()
	w.file = nil
	return err
}
