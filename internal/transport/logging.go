// SPDX-License-Identifier: MIT
package transport

import (
	"fmt"

	"gonum.org/v1/gonum/floats"

	"consolefft/internal/analysis"
	"consolefft/internal/log"
)

// LoggingTransport implements the Transport interface by logging a one-line
// summary of each frame at debug level.
type LoggingTransport struct {
	binHz float64 // Width of one spectrum bin, 0 if unknown.
}

// NewLoggingTransport creates a new LoggingTransport. binHz converts the
// peak bin to a frequency in the summary; pass 0 to log bin indexes only.
func NewLoggingTransport(binHz float64) *LoggingTransport {
	log.Infof("Transport: Using LoggingTransport")
	return &LoggingTransport{binHz: binHz}
}

// Send logs the received data. Logging never fails to "send".
func (lt *LoggingTransport) Send(data any) error {
	if !log.Enabled(log.LevelDebug) {
		return nil
	}
	switch v := data.(type) {
	case analysis.Frame:
		log.Debugf("Transport: Frame %d (%s) %s", v.Seq, v.Mode, lt.summary(v.Spectrum))
	case []float64:
		log.Debugf("Transport: Spectrum %s", lt.summary(v))
	default:
		log.Debugf("Transport: Received %T", data)
	}
	return nil
}

func (lt *LoggingTransport) summary(spectrum []float64) string {
	if len(spectrum) == 0 {
		return "empty"
	}
	peak := floats.MaxIdx(spectrum)
	if lt.binHz > 0 {
		return fmt.Sprintf("peak bin %d (%.1f Hz) power %.3g", peak, float64(peak)*lt.binHz, spectrum[peak])
	}
	return fmt.Sprintf("peak bin %d power %.3g", peak, spectrum[peak])
}

// Close is a no-op for LoggingTransport.
func (lt *LoggingTransport) Close() error {
	log.Debugf("Transport: LoggingTransport closed")
	return nil
}

// Ensure LoggingTransport satisfies the interface at compile time.
var _ Transport = (*LoggingTransport)(nil)
