// Package sci builds and packs sidelink control information messages.
package sci

import (
	"errors"
	"fmt"
	"math/bits"

	"github.com/twardokus/sidelink/pkg/phy"
)

type Format byte

const (
	Format0 Format = iota
	Format1
)

func (f Format) String() string {
	switch f {
	case Format0:
		return "0 - Legacy (TM1/TM2)"
	case Format1:
		return "1 - V2X (TM3/TM4)"
	default:
		return "ERROR"
	}
}

// ControlMCS is the MCS carried in every SCI, independent of the MCS used
// for the data channel.
const ControlMCS = 2

// Format1Len is the fixed size of a format 1 SCI including padding.
const Format1Len = 32

var (
	ErrInvalidFormatSelection = fmt.Errorf("%w: transmission mode does not support extended CP", phy.ErrConfiguration)
	ErrFieldRange             = fmt.Errorf("%w: SCI field out of range", phy.ErrConfiguration)
)

// Scheduling carries the per-opportunity values the caller picks.
type Scheduling struct {
	SubChannelStart int
	SubChannelCount int
	DataMCS         int
	RIV             uint32

	// Format 1
	Priority            uint8
	ResourceReservation uint8
	TimeGap             uint8
	Retransmission      bool
	TransmissionFormat  bool

	// Format 0
	FrequencyHopping    bool
	TimeResourcePattern uint8
	TimingAdvance       uint16
	GroupDestinationID  uint8
}

// Message is one sidelink control information record.
type Message struct {
	Format Format
	MCS    uint8
	RIV    uint32

	Priority            uint8
	ResourceReservation uint8
	TimeGap             uint8
	Retransmission      bool
	TransmissionFormat  bool

	FrequencyHopping    bool
	TimeResourcePattern uint8
	TimingAdvance       uint16
	GroupDestinationID  uint8

	SubChannelStart int
	SubChannelCount int
	SidelinkID      int

	// Width in PRB (format 0) or sub-channels (format 1) the RIV refers to.
	rivSpan int
}

// FormatFor selects the SCI format of a cell.
func FormatFor(cell phy.Cell) (Format, error) {
	if cell.CP == phy.CPExtended && cell.TM.V2X() {
		return 0, fmt.Errorf("%w: %s", ErrInvalidFormatSelection, cell.TM)
	}
	if cell.TM.V2X() {
		return Format1, nil
	}
	return Format0, nil
}

// Build assembles the SCI for one transmission opportunity.
func Build(cell phy.Cell, pool phy.ResourcePool, s Scheduling) (*Message, error) {
	f, err := FormatFor(cell)
	if err != nil {
		return nil, err
	}
	var dataMCSErr, subChannelErr error
	if s.DataMCS < 0 || s.DataMCS > phy.MaxPSSCHMCS {
		dataMCSErr = fmt.Errorf("%w: data MCS %d", ErrFieldRange, s.DataMCS)
	}
	if s.SubChannelStart < 0 || s.SubChannelCount < 1 || s.SubChannelStart+s.SubChannelCount > pool.SubChannelCount {
		subChannelErr = fmt.Errorf("%w: sub-channels %d+%d in a pool of %d", ErrFieldRange, s.SubChannelStart, s.SubChannelCount, pool.SubChannelCount)
	}
	if err := errors.Join(dataMCSErr, subChannelErr); err != nil {
		return nil, err
	}
	m := &Message{
		Format:              f,
		MCS:                 ControlMCS,
		RIV:                 s.RIV,
		Priority:            s.Priority,
		ResourceReservation: s.ResourceReservation,
		TimeGap:             s.TimeGap,
		Retransmission:      s.Retransmission,
		TransmissionFormat:  s.TransmissionFormat,
		FrequencyHopping:    s.FrequencyHopping,
		TimeResourcePattern: s.TimeResourcePattern,
		TimingAdvance:       s.TimingAdvance,
		GroupDestinationID:  s.GroupDestinationID,
		SubChannelStart:     s.SubChannelStart,
		SubChannelCount:     s.SubChannelCount,
		SidelinkID:          cell.SidelinkID,
		rivSpan:             pool.SubChannelCount,
	}
	if f == Format0 {
		m.rivSpan = cell.PRB
	}
	if err := m.check(); err != nil {
		return nil, err
	}
	return m, nil
}

// rivWidth is the number of bits needed for a resource indication value
// over n units: ceil(log2(n(n+1)/2)).
func rivWidth(n int) int {
	v := n * (n + 1) / 2
	if v <= 1 {
		return 0
	}
	return bits.Len(uint(v - 1))
}

// ResourceIndication encodes a contiguous allocation of length units
// starting at start out of n units, per TS 36.213 14.1.1.4C.
func ResourceIndication(n, start, length int) (uint32, error) {
	if n < 1 || start < 0 || length < 1 || start+length > n {
		return 0, fmt.Errorf("%w: allocation %d+%d of %d", ErrFieldRange, start, length, n)
	}
	if length-1 <= n/2 {
		return uint32(n*(length-1) + start), nil
	}
	return uint32(n*(n-length+1) + (n - 1 - start)), nil
}

func fieldErr(name string, v uint64, width int) error {
	if width < 64 && v >= 1<<width {
		return fmt.Errorf("%w: %s = %d does not fit in %d bits", ErrFieldRange, name, v, width)
	}
	return nil
}

func (m *Message) check() error {
	w := rivWidth(m.rivSpan)
	errs := []error{fieldErr("MCS", uint64(m.MCS), 5), fieldErr("RIV", uint64(m.RIV), w)}
	switch m.Format {
	case Format0:
		errs = append(errs,
			fieldErr("TimeResourcePattern", uint64(m.TimeResourcePattern), 7),
			fieldErr("TimingAdvance", uint64(m.TimingAdvance), 11),
		)
	case Format1:
		errs = append(errs,
			fieldErr("Priority", uint64(m.Priority), 3),
			fieldErr("ResourceReservation", uint64(m.ResourceReservation), 4),
			fieldErr("TimeGap", uint64(m.TimeGap), 4),
		)
	}
	return errors.Join(errs...)
}

// Len is the packed size of the message in bits.
func (m *Message) Len() int {
	if m.Format == Format1 {
		return Format1Len
	}
	return Format0Len(m.rivSpan)
}

// Format0Len is the size of a format 0 SCI for a cell of prb PRBs.
func Format0Len(prb int) int {
	return 1 + rivWidth(prb) + 7 + 5 + 11 + 8
}

func (m Message) String() string {
	return fmt.Sprintf(`{
	Format: %v
	MCS: %d
	RIV: %d
	SubChannels: %d+%d
	SidelinkID: %d
	Priority: %d
	ResourceReservation: %d
	TimeGap: %d
}`, m.Format, m.MCS, m.RIV, m.SubChannelStart, m.SubChannelCount, m.SidelinkID, m.Priority, m.ResourceReservation, m.TimeGap)
}
