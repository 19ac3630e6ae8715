// SPDX-License-Identifier: MIT
package transport

import (
	"context"
	"time"

	"consolefft/internal/analysis"
	"consolefft/internal/log"
)

// Transport defines a generic interface for sending processed data or events.
// Implementations should be thread-safe.
type Transport interface {
	Send(data any) error
	Close() error
}

// Pump forwards analyzer frames to t until frames is closed or ctx is
// cancelled. Frames arriving less than minInterval after the last forwarded
// frame are skipped; a zero minInterval forwards every frame. Send errors
// are logged and do not stop the pump.
func Pump(ctx context.Context, frames <-chan analysis.Frame, t Transport, minInterval time.Duration) error {
	var (
		last    time.Time
		skipped uint64
		failed  uint64
	)
	defer func() {
		log.Debugf("Transport: Pump stopped (skipped %d frames, %d send errors)", skipped, failed)
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case frame, ok := <-frames:
			if !ok {
				return nil
			}
			if minInterval > 0 && !last.IsZero() && frame.Time.Sub(last) < minInterval {
				skipped++
				continue
			}
			last = frame.Time
			if err := t.Send(frame); err != nil {
				failed++
				log.Warnf("Transport: Send failed: %v", err)
			}
		}
	}
}
