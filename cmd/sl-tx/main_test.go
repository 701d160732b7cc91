package main

import (
	"errors"
	"net"
	"os"
	"path/filepath"
	"testing"

	"github.com/twardokus/sidelink"
	"github.com/twardokus/sidelink/pkg/phy"
	"github.com/twardokus/sidelink/pkg/sci"
)

func testConfig(t *testing.T) config {
	t.Helper()
	f, err := os.Create(filepath.Join(t.TempDir(), "events.json"))
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	return config{
		cell:         phy.Cell{PRB: 50, TM: phy.TM4},
		scheduling:   sci.Scheduling{SubChannelCount: 5, DataMCS: 4, RIV: 9},
		scrambling:   phy.ScramblingDerived,
		device:       sidelink.DeviceSpec{Name: "null"},
		txGain:       50,
		txFrequency:  5.92e9,
		maxSubframes: 3,
		seed:         1,
		eventLogFile: f,
	}
}

// freeUDPAddr returns a loopback address nothing is listening on.
func freeUDPAddr(t *testing.T) string {
	t.Helper()
	conn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	if err != nil {
		t.Fatalf("ListenUDP() error = %v", err)
	}
	addr := conn.LocalAddr().String()
	conn.Close()
	return addr
}

func TestTransmit(t *testing.T) {
	tests := []struct {
		name   string
		device string
		want   int
	}{
		{"Done", "null", 0},
		{"Device error", "uhd", 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig(t)
			cfg.device.Name = tt.device
			cfg.payloadListen = freeUDPAddr(t)
			if got := transmit(cfg); got != tt.want {
				t.Errorf("transmit() = %d, want %d", got, tt.want)
			}
			if _, err := cfg.eventLogFile.WriteString("x"); !errors.Is(err, os.ErrClosed) {
				t.Errorf("event log still open, write error = %v", err)
			}
			a, err := net.ResolveUDPAddr("udp", cfg.payloadListen)
			if err != nil {
				t.Fatalf("ResolveUDPAddr() error = %v", err)
			}
			conn, err := net.ListenUDP("udp", a)
			if err != nil {
				t.Fatalf("payload listener still open: %v", err)
			}
			conn.Close()
		})
	}
}

func TestRunWithMetrics(t *testing.T) {
	cfg := testConfig(t)
	defer cfg.eventLogFile.Close()
	loop := sidelink.NewLoop(sidelink.LoopConfig{
		Cell:         cfg.cell,
		Scheduling:   cfg.scheduling,
		Scrambling:   cfg.scrambling,
		Device:       cfg.device,
		TXGain:       cfg.txGain,
		TXFrequency:  cfg.txFrequency,
		MaxSubframes: cfg.maxSubframes,
		Payload:      sidelink.NewRandomSource(cfg.seed),
	}, nil)
	// the metrics server is shut down once the loop finishes
	if err := run(loop, "127.0.0.1:0"); err != nil {
		t.Fatalf("run() error = %v", err)
	}
	if loop.Sent() != 3 {
		t.Errorf("Sent() = %d, want 3", loop.Sent())
	}
	if loop.State() != sidelink.StateClosed {
		t.Errorf("State() = %s, want Closed", loop.State())
	}
}
