package sidelink

import (
	"fmt"
	"log"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/twardokus/sidelink/pkg/phy"
	"github.com/twardokus/sidelink/pkg/sci"
)

type State int32

const (
	StateIdle State = iota
	StateConfiguring
	StateBuildingFrame
	StateTransmitting
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateConfiguring:
		return "Configuring"
	case StateBuildingFrame:
		return "BuildingFrame"
	case StateTransmitting:
		return "Transmitting"
	case StateClosed:
		return "Closed"
	default:
		return "ERROR"
	}
}

// LoopConfig is everything the transmission loop needs. It is not modified
// once the loop runs.
type LoopConfig struct {
	Cell          phy.Cell
	Scheduling    sci.Scheduling
	Scrambling    phy.ScramblingPolicy
	Device        DeviceSpec
	TXGain        float64
	TXFrequency   float64
	StandardRates bool
	// Number of subframes to attempt, 0 for no limit.
	MaxSubframes int
	Payload      PayloadSource
	EventLog     *slog.Logger

	// Optional channel encoders replacing the reference ones.
	Control phy.ControlEncoder
	Shared  phy.SharedEncoder
}

// Loop builds and transmits one subframe per iteration until stopped. It
// owns the radio for its whole lifetime.
type Loop struct {
	cfg   LoopConfig
	open  Opener
	state atomic.Int32
	stop  atomic.Bool

	radio   Radio
	builder *FrameBuilder
	sent    int
}

func NewLoop(cfg LoopConfig, open Opener) *Loop {
	if open == nil {
		open = OpenRadio
	}
	if cfg.Payload == nil {
		cfg.Payload = NewRandomSource(time.Now().UnixNano())
	}
	l := &Loop{cfg: cfg, open: open}
	l.setState(StateIdle)
	return l
}

// Stop asks the loop to finish after the subframe in flight. Safe to call
// from any goroutine.
func (l *Loop) Stop() {
	l.stop.Store(true)
}

func (l *Loop) State() State {
	return State(l.state.Load())
}

// Sent is the number of subframes the radio accepted.
func (l *Loop) Sent() int {
	return l.sent
}

func (l *Loop) setState(s State) {
	old := State(l.state.Swap(int32(s)))
	if old != s {
		log.Printf("[DEBUG] loop %s -> %s", old, s)
	}
	recordState(s)
}

// Run configures the radio and transmits until Stop is called, the subframe
// limit is reached or a fatal error occurs. The radio is always closed
// before Run returns.
func (l *Loop) Run() error {
	if l.State() != StateIdle {
		return fmt.Errorf("loop already ran, state %s", l.State())
	}
	l.setState(StateConfiguring)
	if err := l.configure(); err != nil {
		l.close()
		return err
	}

	buf := phy.NewSubframeBuffer(l.cfg.Cell)
	var err error
	for n := 0; !l.stop.Load(); n++ {
		if l.cfg.MaxSubframes > 0 && n >= l.cfg.MaxSubframes {
			break
		}
		err = l.iterate(buf, n)
		if err != nil {
			break
		}
	}
	l.close()
	return err
}

// iterate builds and sends subframe n. Only fatal errors are returned.
func (l *Loop) iterate(buf *phy.SubframeBuffer, n int) error {
	l.setState(StateBuildingFrame)
	frame, err := l.builder.Build(buf, n%10)
	if err != nil {
		if phy.IsFatal(err) {
			log.Printf("[ERROR] Fatal error building subframe %d: %v", n, err)
			return err
		}
		recordDiscarded("encoding")
		log.Printf("[ERROR] Discarding subframe %d: %v", n, err)
		return nil
	}
	recordBuilt()
	log.Printf("[DEBUG] Built subframe %d: %s", n, frame)

	l.setState(StateTransmitting)
	start := time.Now()
	if err := l.radio.Send(buf.Samples, true); err != nil {
		log.Printf("[ERROR] Radio send failed on subframe %d: %v", n, err)
		return fmt.Errorf("%w: send: %w", phy.ErrDevice, err)
	}
	d := time.Since(start)
	recordSent(d)
	l.sent++
	if l.cfg.EventLog != nil {
		l.cfg.EventLog.Info("", "type", "Subframe", "n", n, "sf", frame.Subframe,
			"pscch", frame.Control.String(), "pssch", frame.Shared.Placement.String(),
			"nxid", frame.Shared.ScramblingID, "tbs", frame.TBS, "send", d.String())
	}
	return nil
}

func (l *Loop) configure() error {
	cell := l.cfg.Cell
	if err := cell.Validate(); err != nil {
		return err
	}
	pool, err := phy.NewResourcePool(cell)
	if err != nil {
		return fmt.Errorf("resource pool: %w", err)
	}
	log.Printf("[INFO] Cell %s, resource pool %s", cell, pool)
	msg, err := sci.Build(cell, pool, l.cfg.Scheduling)
	if err != nil {
		return fmt.Errorf("scheduling: %w", err)
	}
	if _, err := msg.Pack(); err != nil {
		return fmt.Errorf("scheduling: %w", err)
	}
	l.builder, err = NewFrameBuilder(cell, pool, l.cfg.Scheduling, l.cfg.Scrambling, l.cfg.Payload)
	if err != nil {
		return err
	}
	if l.cfg.Control != nil {
		l.builder.Control = l.cfg.Control
	}
	if l.cfg.Shared != nil {
		l.builder.Shared = l.cfg.Shared
	}
	srate, err := phy.SampleRate(cell.PRB, l.cfg.StandardRates)
	if err != nil {
		return err
	}

	log.Printf("[INFO] Opening RF device %s", l.cfg.Device.Name)
	r, err := l.open(l.cfg.Device)
	if err != nil {
		return fmt.Errorf("%w: %w", phy.ErrDevice, err)
	}
	l.radio = r
	if err := r.SetTXGain(l.cfg.TXGain); err != nil {
		return fmt.Errorf("%w: set TX gain: %w", phy.ErrDevice, err)
	}
	log.Printf("[INFO] Set TX gain: %.1f dB", l.cfg.TXGain)
	freq, err := r.SetTXFreq(l.cfg.TXFrequency)
	if err != nil {
		return fmt.Errorf("%w: set TX freq: %w", phy.ErrDevice, err)
	}
	log.Printf("[INFO] Set TX freq: %.6f MHz", freq/1e6)
	log.Printf("[INFO] Setting sampling rate %.2f MHz", srate/1e6)
	got, err := r.SetTXSampleRate(srate)
	if err != nil {
		return fmt.Errorf("%w: set sample rate: %w", phy.ErrDevice, err)
	}
	if got != srate {
		return fmt.Errorf("%w: could not set sampling rate %.0f, radio reports %.0f", phy.ErrDevice, srate, got)
	}
	return nil
}

func (l *Loop) close() {
	if l.radio != nil {
		if err := l.radio.Close(); err != nil {
			log.Printf("[ERROR] Error closing radio: %v", err)
		}
		l.radio = nil
	}
	l.setState(StateClosed)
	log.Printf("[INFO] Transmission loop closed after %d subframes", l.sent)
}
