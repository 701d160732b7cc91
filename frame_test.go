package sidelink

import (
	"errors"
	"slices"
	"testing"

	"github.com/twardokus/sidelink/pkg/phy"
	"github.com/twardokus/sidelink/pkg/sci"
)

func newTestBuilder(t *testing.T, cell phy.Cell, s sci.Scheduling, seed int64) *FrameBuilder {
	t.Helper()
	pool, err := phy.NewResourcePool(cell)
	if err != nil {
		t.Fatalf("NewResourcePool() error = %v", err)
	}
	b, err := NewFrameBuilder(cell, pool, s, phy.ScramblingDerived, NewRandomSource(seed))
	if err != nil {
		t.Fatalf("NewFrameBuilder() error = %v", err)
	}
	return b
}

func TestFrameBuilderBuild(t *testing.T) {
	tests := []struct {
		name        string
		cell        phy.Cell
		s           sci.Scheduling
		wantControl phy.Placement
		wantShared  phy.Placement
		wantTBS     int
	}{
		{"TM4 50", phy.Cell{PRB: 50, TM: phy.TM4}, sci.Scheduling{SubChannelCount: 5, DataMCS: 4, RIV: 9}, phy.Placement{Start: 0, Count: 2}, phy.Placement{Start: 2, Count: 48}, 3336},
		{"TM3 25", phy.Cell{PRB: 25, TM: phy.TM3}, sci.Scheduling{SubChannelCount: 5, DataMCS: 0, RIV: 9}, phy.Placement{Start: 0, Count: 2}, phy.Placement{Start: 2, Count: 20}, 512},
		{"TM1 6", phy.Cell{PRB: 6, TM: phy.TM1}, sci.Scheduling{SubChannelCount: 1}, phy.Placement{Start: 0, Count: 1}, phy.Placement{Start: 1, Count: 5}, 128},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := newTestBuilder(t, tt.cell, tt.s, 1)
			buf := phy.NewSubframeBuffer(tt.cell)
			f, err := b.Build(buf, 3)
			if err != nil {
				t.Fatalf("Build() error = %v", err)
			}
			if f.Control != tt.wantControl || f.Shared.Placement != tt.wantShared || f.TBS != tt.wantTBS {
				t.Errorf("Build() = %s, want PSCCH %s, PSSCH %s, TBS %d", f, tt.wantControl, tt.wantShared, tt.wantTBS)
			}
			if f.Subframe != 3 {
				t.Errorf("Build() subframe = %d, want 3", f.Subframe)
			}
			if f.SCI.MCS != sci.ControlMCS {
				t.Errorf("Build() SCI MCS = %d, want %d", f.SCI.MCS, sci.ControlMCS)
			}
			if f.Shared.ScramblingID != phy.CRC16(f.SCIBits) {
				t.Errorf("Build() scrambling ID = %d, want CRC of the SCI", f.Shared.ScramblingID)
			}
		})
	}
}

func TestFrameBuilderRepeatable(t *testing.T) {
	cell := phy.Cell{PRB: 50, TM: phy.TM4}
	s := sci.Scheduling{SubChannelCount: 5, DataMCS: 12, RIV: 9}
	a := phy.NewSubframeBuffer(cell)
	b := phy.NewSubframeBuffer(cell)
	if _, err := newTestBuilder(t, cell, s, 42).Build(a, 0); err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if _, err := newTestBuilder(t, cell, s, 42).Build(b, 0); err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if !slices.Equal(a.Samples, b.Samples) {
		t.Errorf("Build() with the same seed gave different subframes")
	}

	// the buffer is cleared before each build
	builder := newTestBuilder(t, cell, s, 42)
	for i := range b.Samples {
		b.Samples[i] = 1
	}
	if _, err := builder.Build(b, 0); err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if !slices.Equal(a.Samples, b.Samples) {
		t.Errorf("Build() left stale samples in the buffer")
	}
}

func TestFrameBuilderErrors(t *testing.T) {
	cell := phy.Cell{PRB: 50, TM: phy.TM4}
	buf := phy.NewSubframeBuffer(cell)

	b := newTestBuilder(t, cell, sci.Scheduling{SubChannelCount: 5, DataMCS: 29}, 1)
	_, err := b.Build(buf, 0)
	if !errors.Is(err, phy.ErrConfiguration) || !phy.IsFatal(err) {
		t.Errorf("Build() error = %v, want fatal configuration error", err)
	}

	b = newTestBuilder(t, cell, sci.Scheduling{SubChannelCount: 5, DataMCS: 4}, 1)
	b.Control = brokenControl{}
	_, err = b.Build(buf, 0)
	if !errors.Is(err, phy.ErrEncodingFailure) || phy.IsFatal(err) {
		t.Errorf("Build() error = %v, want %v", err, phy.ErrEncodingFailure)
	}
}

type brokenControl struct{}

func (brokenControl) Encode(bits []uint8, buf *phy.SubframeBuffer, prbStart int) (int, error) {
	return 0, errors.New("no control channel")
}
