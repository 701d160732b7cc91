package sidelink

import (
	"fmt"
	"log"

	"github.com/twardokus/sidelink/pkg/phy"
	"github.com/twardokus/sidelink/pkg/sci"
)

// Frame describes one assembled subframe.
type Frame struct {
	Subframe int
	SCI      *sci.Message
	SCIBits  []uint8
	Control  phy.Placement
	Shared   phy.SharedPlacement
	TBS      int
}

func (f Frame) String() string {
	return fmt.Sprintf("{Subframe: %d, PSCCH: %s, PSSCH: %s, N_X_ID: %d, TBS: %d}",
		f.Subframe, f.Control, f.Shared.Placement, f.Shared.ScramblingID, f.TBS)
}

// FrameBuilder runs the per-subframe pipeline: SCI, PSCCH, PSSCH planning
// and PSSCH placement into one buffer.
type FrameBuilder struct {
	Cell       phy.Cell
	Pool       phy.ResourcePool
	Scheduling sci.Scheduling
	Scrambling phy.ScramblingPolicy
	// PRB the control channel starts at.
	ControlStart int

	Control phy.ControlEncoder
	Shared  phy.SharedEncoder
	Payload PayloadSource
}

// NewFrameBuilder returns a builder using the reference PSCCH and PSSCH
// encoders.
func NewFrameBuilder(cell phy.Cell, pool phy.ResourcePool, s sci.Scheduling, policy phy.ScramblingPolicy, payload PayloadSource) (*FrameBuilder, error) {
	pscch, err := phy.NewPSCCH(cell)
	if err != nil {
		return nil, err
	}
	pssch, err := phy.NewPSSCH(cell)
	if err != nil {
		return nil, err
	}
	return &FrameBuilder{
		Cell:       cell,
		Pool:       pool,
		Scheduling: s,
		Scrambling: policy,
		Control:    pscch,
		Shared:     pssch,
		Payload:    payload,
	}, nil
}

// Build clears buf and assembles subframe sf into it. On error the buffer
// content is undefined and must not be transmitted.
func (b *FrameBuilder) Build(buf *phy.SubframeBuffer, sf int) (*Frame, error) {
	buf.Zero()

	msg, err := sci.Build(b.Cell, b.Pool, b.Scheduling)
	if err != nil {
		return nil, fmt.Errorf("build SCI: %w", err)
	}
	bits, err := msg.Pack()
	if err != nil {
		return nil, fmt.Errorf("pack SCI: %w", err)
	}
	log.Printf("[DEBUG] Tx SCI format %d: [% 02x]", msg.Format, phy.PackBits(bits))

	ctrl, err := phy.PlaceControl(b.Control, b.Cell, bits, buf, b.ControlStart)
	if err != nil {
		return nil, err
	}
	sp, err := phy.PlanShared(b.Cell, ctrl, bits, b.Scrambling)
	if err != nil {
		return nil, err
	}
	tbs, err := phy.TransportBlockSize(sp.Count, b.Scheduling.DataMCS)
	if err != nil {
		return nil, err
	}
	tb := make([]uint8, tbs)
	b.Payload.Fill(tb)
	if err := phy.PlaceShared(b.Shared, sp, b.Scheduling.DataMCS, sf, tb, buf); err != nil {
		return nil, err
	}
	return &Frame{
		Subframe: sf,
		SCI:      msg,
		SCIBits:  bits,
		Control:  ctrl,
		Shared:   sp,
		TBS:      tbs,
	}, nil
}
