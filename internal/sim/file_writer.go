package sim

import (
	"encoding/json"
	"os"

	"motorsync/internal/telemetry"
)

// FileWriter appends readings and alerts to JSONL files. The reading log
// is replayable via ReplayLog.
type FileWriter struct {
	readingFile *os.File
	alertFile   *os.File
	readingEnc  *json.Encoder
	alertEnc    *json.Encoder
}

// NewFileWriter creates a FileWriter. alertPath may be empty to skip the
// alert log.
func NewFileWriter(readingPath, alertPath string) (*FileWriter, error) {
	rf, err := os.Create(readingPath)
	if err != nil {
		return nil, err
	}
	fw := &FileWriter{readingFile: rf, readingEnc: json.NewEncoder(rf)}
	if alertPath != "" {
		af, err := os.Create(alertPath)
		if err != nil {
			rf.Close()
			return nil, err
		}
		fw.alertFile = af
		fw.alertEnc = json.NewEncoder(af)
	}
	return fw, nil
}

// Write appends one reading.
func (w *FileWriter) Write(r telemetry.Reading) error {
	return w.readingEnc.Encode(r)
}

// WriteBatch appends multiple readings.
func (w *FileWriter) WriteBatch(rows []telemetry.Reading) error {
	for _, r := range rows {
		if err := w.Write(r); err != nil {
			return err
		}
	}
	return nil
}

// WriteAlert appends one alert, if an alert log was configured.
func (w *FileWriter) WriteAlert(a telemetry.Alert) error {
	if w.alertEnc == nil {
		return nil
	}
	return w.alertEnc.Encode(a)
}

// Close closes the underlying files.
func (w *FileWriter) Close() error {
	err := w.readingFile.Close()
	if w.alertFile != nil {
		if cerr := w.alertFile.Close(); err == nil {
			err = cerr
		}
	}
	return err
}
