// SPDX-License-Identifier: MIT
package udp

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"consolefft/internal/analysis"
	"consolefft/internal/log"
)

/*
UDP Packet Structure (BigEndian)

|<---- 4 Bytes ---->|<------ 8 Bytes ------>|<-- 2 Bytes -->|<----- N * 4 Bytes ----->|
+-------------------+-----------------------+---------------+-------------------------+
|  Sequence Number  |       Timestamp       |   Magnitude   |       Magnitudes        |
|      (uint32)     |   (int64, unix ns)    |     Count     |      (N * float32)      |
|                   |                       |     (uint16)  |                         |
+-------------------+-----------------------+---------------+-------------------------+

Magnitudes are the averaged power of bins [0, N/2). HeaderSize covers the
three fixed fields.
*/
const HeaderSize = 4 + 8 + 2

// MaxPayload is the largest IPv4 UDP payload (65535 - 8 byte UDP header -
// 20 byte IP header).
const MaxPayload = 65507

// MaxMagnitudes is the largest spectrum a single datagram can carry. A
// transform of 32768 samples (16384 bins) does not fit.
const MaxMagnitudes = (MaxPayload - HeaderSize) / 4

// ErrTooManyBins is returned when a spectrum does not fit in one datagram.
var ErrTooManyBins = errors.New("spectrum too large for a UDP packet")

// ErrShortPacket is returned by DecodePacket for truncated input.
var ErrShortPacket = errors.New("short spectrum packet")

// Packet is a decoded spectrum packet.
type Packet struct {
	Seq        uint32
	Timestamp  time.Time
	Magnitudes []float32
}

// AppendPacket appends the encoding of one packet to dst.
func AppendPacket(dst []byte, seq uint32, ts time.Time, mags []float32) []byte {
	dst = binary.BigEndian.AppendUint32(dst, seq)
	dst = binary.BigEndian.AppendUint64(dst, uint64(ts.UnixNano()))
	dst = binary.BigEndian.AppendUint16(dst, uint16(len(mags)))
	for _, m := range mags {
		dst = binary.BigEndian.AppendUint32(dst, math.Float32bits(m))
	}
	return dst
}

// DecodePacket parses a packet produced by AppendPacket.
func DecodePacket(b []byte) (Packet, error) {
	if len(b) < HeaderSize {
		return Packet{}, fmt.Errorf("%w: %d bytes", ErrShortPacket, len(b))
	}
	count := int(binary.BigEndian.Uint16(b[12:14]))
	if len(b) < HeaderSize+4*count {
		return Packet{}, fmt.Errorf("%w: %d bytes for %d magnitudes", ErrShortPacket, len(b), count)
	}
	p := Packet{
		Seq:        binary.BigEndian.Uint32(b[0:4]),
		Timestamp:  time.Unix(0, int64(binary.BigEndian.Uint64(b[4:12]))),
		Magnitudes: make([]float32, count),
	}
	body := b[HeaderSize:]
	for i := range p.Magnitudes {
		p.Magnitudes[i] = math.Float32frombits(binary.BigEndian.Uint32(body[4*i:]))
	}
	return p, nil
}

// packetSender is the part of UDPSender the publisher needs.
type packetSender interface {
	Send(data []byte) error
}

// UDPPublisher periodically fetches the averaged spectrum from a
// SpectrumProvider, packs it into the binary format above, and sends it
// over UDP. It runs in a separate goroutine managed by Start and Stop (or
// Run).
type UDPPublisher struct {
	sender   packetSender
	spectrum analysis.SpectrumProvider
	interval time.Duration

	ticker   *time.Ticker   // Ticker that triggers packet sending.
	doneChan chan struct{}  // Channel used to signal the publisher goroutine to stop.
	stopOnce sync.Once      // Ensures the stop logic runs only once per Start/Stop cycle.
	wg       sync.WaitGroup // Waits for the publisher goroutine to finish during Stop.
	mu       sync.Mutex     // Protects access to ticker and doneChan during Start/Stop.

	sequenceNum uint32 // Monotonically increasing sequence number for packets.
	sendErrors  uint64

	// Pre-allocated buffers to reduce allocations in the hot path (buildAndSendPacket).
	magBuffer []float64
	f32Buffer []float32
	packet    []byte
}

// NewUDPPublisher creates and initializes a new UDPPublisher.
// If the provided interval is invalid (<= 0), it defaults to 16ms (~60Hz).
func NewUDPPublisher(interval time.Duration, sender *UDPSender, spectrum analysis.SpectrumProvider) (*UDPPublisher, error) {
	if sender == nil {
		return nil, fmt.Errorf("UDPPublisher: UDP sender cannot be nil")
	}
	return newUDPPublisher(interval, sender, spectrum)
}

func newUDPPublisher(interval time.Duration, sender packetSender, spectrum analysis.SpectrumProvider) (*UDPPublisher, error) {
	if spectrum == nil {
		return nil, fmt.Errorf("UDPPublisher: spectrum provider cannot be nil")
	}
	bins := spectrum.Bins()
	if bins > MaxMagnitudes {
		return nil, fmt.Errorf("UDPPublisher: %w: %d bins, %d bytes (max %d bins)",
			ErrTooManyBins, bins, HeaderSize+4*bins, MaxMagnitudes)
	}

	if interval <= 0 {
		interval = 16 * time.Millisecond // Default to ~60Hz if invalid
		log.Warnf("UDPPublisher: Invalid interval provided, defaulting to %s", interval)
	}

	log.Infof("UDPPublisher: Initializing (Interval: %s, Bins: %d)", interval, bins)

	return &UDPPublisher{
		sender:    sender,
		spectrum:  spectrum,
		interval:  interval,
		magBuffer: make([]float64, bins),
		f32Buffer: make([]float32, bins),
		packet:    make([]byte, 0, HeaderSize+4*bins),
	}, nil
}

// Start begins the periodic publishing process.
// It is safe to call Start multiple times; subsequent calls are no-ops if already started.
func (p *UDPPublisher) Start() {
	p.mu.Lock()
	if p.ticker != nil {
		p.mu.Unlock()
		log.Warnf("UDPPublisher: Start called but already running.")
		return
	}

	p.ticker = time.NewTicker(p.interval)
	p.doneChan = make(chan struct{})
	p.stopOnce = sync.Once{} // Reset stopOnce for this run

	// Local copies so the goroutine does not race on p.ticker/p.doneChan.
	ticker := p.ticker
	doneChan := p.doneChan

	p.mu.Unlock()

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		log.Infof("UDPPublisher: Publisher goroutine started (Interval: %s)", p.interval)
		for {
			select {
			case <-ticker.C:
				p.buildAndSendPacket()
			case <-doneChan:
				return
			}
		}
	}()
}

// Stop signals the publisher goroutine to terminate and waits for it to exit.
// It is safe to call Stop multiple times; subsequent calls are no-ops.
func (p *UDPPublisher) Stop() error {
	p.mu.Lock()
	if p.ticker == nil {
		p.mu.Unlock()
		log.Debugf("UDPPublisher: Stop called but not running.")
		return nil
	}

	p.stopOnce.Do(func() {
		close(p.doneChan)
		p.ticker.Stop()
		p.ticker = nil
	})

	p.mu.Unlock()

	p.wg.Wait()
	log.Infof("UDPPublisher: Stopped after %d packets (%d send errors)", p.sequenceNum, p.sendErrors)
	return nil
}

// Run publishes until ctx is cancelled.
func (p *UDPPublisher) Run(ctx context.Context) error {
	p.Start()
	<-ctx.Done()
	return p.Stop()
}

// buildAndSendPacket fetches the averaged spectrum, converts it to float32,
// packs it and sends it. Runs on the publisher goroutine only.
func (p *UDPPublisher) buildAndSendPacket() {
	p.magBuffer = p.spectrum.Averages(p.magBuffer)
	if len(p.f32Buffer) != len(p.magBuffer) {
		p.f32Buffer = make([]float32, len(p.magBuffer))
	}
	for i, v := range p.magBuffer {
		p.f32Buffer[i] = float32(v)
	}

	p.sequenceNum++
	p.packet = AppendPacket(p.packet[:0], p.sequenceNum, time.Now(), p.f32Buffer)

	if err := p.sender.Send(p.packet); err != nil {
		p.sendErrors++
		// Log the first failure and then every 100th to avoid flooding.
		if p.sendErrors%100 == 1 {
			log.Warnf("UDPPublisher: Error sending packet %d: %v", p.sequenceNum, err)
		}
		return
	}
	if log.Enabled(log.LevelDebug) {
		log.Debugf("UDPPublisher: Sent packet %d (%d bytes)", p.sequenceNum, len(p.packet))
	}
}

// Close implements the io.Closer interface. It gracefully stops the publisher goroutine.
func (p *UDPPublisher) Close() error {
	return p.Stop()
}

var _ interface{ Close() error } = (*UDPPublisher)(nil)
