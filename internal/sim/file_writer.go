package sim

import (
	"bufio"
	"os"
	"sync"

	"dcmetrics-sim/internal/telemetry"
)

// FileWriter writes readings to a JSONL file that ReplayLogFile can read back.
type FileWriter struct {
	mu   sync.Mutex
	file *os.File
	buf  *bufio.Writer
}

// NewFileWriter creates (or truncates) path.
func NewFileWriter(path string) (*FileWriter, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	return &FileWriter{file: f, buf: bufio.NewWriter(f)}, nil
}

// Write logs a single reading.
func (f *FileWriter) Write(r telemetry.Reading) error {
	data, err := r.Marshal()
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, err := f.buf.Write(append(data, '\n')); err != nil {
		return err
	}
	return f.buf.Flush()
}

// WriteBatch logs multiple readings.
func (f *FileWriter) WriteBatch(rows []telemetry.Reading) error {
	for _, r := range rows {
		if err := f.Write(r); err != nil {
			return err
		}
	}
	return nil
}

// Close flushes and closes the underlying file.
func (f *FileWriter) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	err := f.buf.Flush()
	if e := f.file.Close(); e != nil && err == nil {
		err = e
	}
	return err
}
