package sim

import (
	"errors"

	"dcmetrics-sim/internal/telemetry"
)

// MultiWriter fans readings out to multiple writers. Every writer is tried
// even when an earlier one fails; the errors are joined.
type MultiWriter struct {
	writers []ReadingWriter
}

// NewMultiWriter creates a new MultiWriter.
func NewMultiWriter(ws []ReadingWriter) *MultiWriter {
	return &MultiWriter{writers: ws}
}

// Write sends a reading to all writers.
func (mw *MultiWriter) Write(r telemetry.Reading) error {
	var errs []error
	for _, w := range mw.writers {
		if err := w.Write(r); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// WriteBatch sends multiple readings to all writers, using batch if supported.
func (mw *MultiWriter) WriteBatch(rows []telemetry.Reading) error {
	var errs []error
	for _, w := range mw.writers {
		if bw, ok := w.(batchWriter); ok {
			if err := bw.WriteBatch(rows); err != nil {
				errs = append(errs, err)
			}
			continue
		}
		for _, r := range rows {
			if err := w.Write(r); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

// SetAdminStatus forwards the admin server status to writers that show it.
func (mw *MultiWriter) SetAdminStatus(listening bool) {
	for _, w := range mw.writers {
		if aw, ok := w.(AdminStatusWriter); ok {
			aw.SetAdminStatus(listening)
		}
	}
}
