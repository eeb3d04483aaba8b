package sim

import "motorsync/internal/telemetry"

// MultiWriter fans readings and alerts out to multiple writers.
type MultiWriter struct {
	readingWriters []ReadingWriter
	alertWriters   []AlertWriter
}

// NewMultiWriter creates a new MultiWriter.
func NewMultiWriter(rws []ReadingWriter, aws []AlertWriter) *MultiWriter {
	return &MultiWriter{readingWriters: rws, alertWriters: aws}
}

// Write sends a reading to all writers.
func (mw *MultiWriter) Write(r telemetry.Reading) error {
	for _, w := range mw.readingWriters {
		if err := w.Write(r); err != nil {
			return err
		}
	}
	return nil
}

// WriteBatch sends multiple readings to all writers, using batch mode
// where supported.
func (mw *MultiWriter) WriteBatch(rows []telemetry.Reading) error {
	for _, w := range mw.readingWriters {
		if bw, ok := w.(batchWriter); ok {
			if err := bw.WriteBatch(rows); err != nil {
				return err
			}
			continue
		}
		for _, r := range rows {
			if err := w.Write(r); err != nil {
				return err
			}
		}
	}
	return nil
}

// WriteAlert sends an alert to all alert writers.
func (mw *MultiWriter) WriteAlert(a telemetry.Alert) error {
	for _, w := range mw.alertWriters {
		if err := w.WriteAlert(a); err != nil {
			return err
		}
	}
	return nil
}
