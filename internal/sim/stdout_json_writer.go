package sim

import (
	"fmt"
	"io"
	"os"
	"sync"

	"golang.org/x/term"

	"dcmetrics-sim/internal/config"
	"dcmetrics-sim/internal/telemetry"
)

// JSONStdoutWriter prints readings as JSON lines to STDOUT.
type JSONStdoutWriter struct {
	mu  sync.Mutex
	out io.Writer
}

// NewJSONStdoutWriter creates a JSONStdoutWriter writing to os.Stdout.
func NewJSONStdoutWriter() *JSONStdoutWriter {
	return &JSONStdoutWriter{out: os.Stdout}
}

// Write outputs a reading in JSON format.
func (w *JSONStdoutWriter) Write(r telemetry.Reading) error {
	data, err := r.Marshal()
	if err != nil {
		return err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	_, err = fmt.Fprintln(w.out, string(data))
	return err
}

// WriteBatch outputs multiple readings in JSON format.
func (w *JSONStdoutWriter) WriteBatch(rows []telemetry.Reading) error {
	for _, r := range rows {
		if err := w.Write(r); err != nil {
			return err
		}
	}
	return nil
}

// NewStdoutWriter picks the colorized writer when STDOUT is a terminal and
// JSON otherwise. forceJSON always selects JSON.
func NewStdoutWriter(cfg *config.Config, forceJSON bool) ReadingWriter {
	if forceJSON || !term.IsTerminal(int(os.Stdout.Fd())) {
		return NewJSONStdoutWriter()
	}
	return NewColorStdoutWriter(cfg)
}
