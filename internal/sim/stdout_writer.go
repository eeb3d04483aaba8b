// Writer implementation printing readings to STDOUT
package sim

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"motorsync/internal/telemetry"
)

// StdoutWriter prints readings and alerts as JSON lines.
type StdoutWriter struct {
	out io.Writer
}

// NewStdoutWriter creates a StdoutWriter writing to os.Stdout.
func NewStdoutWriter() *StdoutWriter {
	return &StdoutWriter{out: os.Stdout}
}

// Write outputs a single reading.
func (w *StdoutWriter) Write(r telemetry.Reading) error {
	data, _ := json.Marshal(r)
	fmt.Fprintln(w.out, string(data))
	return nil
}

// WriteBatch outputs multiple readings.
func (w *StdoutWriter) WriteBatch(rows []telemetry.Reading) error {
	for _, r := range rows {
		_ = w.Write(r)
	}
	return nil
}

// WriteAlert outputs an alert.
func (w *StdoutWriter) WriteAlert(a telemetry.Alert) error {
	data, _ := json.Marshal(a)
	fmt.Fprintln(w.out, string(data))
	return nil
}
