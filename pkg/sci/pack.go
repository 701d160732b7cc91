package sci

import (
	"fmt"

	"github.com/twardokus/sidelink/pkg/phy"
)

func boolBit(b bool) uint32 {
	if b {
		return 1
	}
	return 0
}

// Pack serializes the message into its frozen over-the-air bit layout.
func (m *Message) Pack() ([]uint8, error) {
	if err := m.check(); err != nil {
		return nil, err
	}
	b := make([]uint8, 0, m.Len())
	w := rivWidth(m.rivSpan)
	switch m.Format {
	case Format0:
		b = phy.AppendBits(b, boolBit(m.FrequencyHopping), 1)
		b = phy.AppendBits(b, m.RIV, w)
		b = phy.AppendBits(b, uint32(m.TimeResourcePattern), 7)
		b = phy.AppendBits(b, uint32(m.MCS), 5)
		b = phy.AppendBits(b, uint32(m.TimingAdvance), 11)
		b = phy.AppendBits(b, uint32(m.GroupDestinationID), 8)
	case Format1:
		b = phy.AppendBits(b, uint32(m.Priority), 3)
		b = phy.AppendBits(b, uint32(m.ResourceReservation), 4)
		b = phy.AppendBits(b, m.RIV, w)
		b = phy.AppendBits(b, uint32(m.TimeGap), 4)
		b = phy.AppendBits(b, uint32(m.MCS), 5)
		b = phy.AppendBits(b, boolBit(m.Retransmission), 1)
		b = phy.AppendBits(b, boolBit(m.TransmissionFormat), 1)
		// reserved bits up to the fixed length are zero
		for len(b) < Format1Len {
			b = append(b, 0)
		}
	default:
		return nil, fmt.Errorf("%w: unknown SCI format %d", ErrFieldRange, m.Format)
	}
	return b, nil
}

// Unpack parses packed bits back into a message. rivSpan is the cell PRB
// count for format 0 and the sub-channel count for format 1.
func Unpack(f Format, bits []uint8, rivSpan int) (*Message, error) {
	m := &Message{Format: f, rivSpan: rivSpan}
	if len(bits) != m.Len() {
		return nil, fmt.Errorf("%w: %d bits for format %d, want %d", ErrFieldRange, len(bits), f, m.Len())
	}
	w := rivWidth(rivSpan)
	pos := 0
	next := func(n int) uint32 {
		v := phy.ReadBits(bits, pos, n)
		pos += n
		return v
	}
	switch f {
	case Format0:
		m.FrequencyHopping = next(1) == 1
		m.RIV = next(w)
		m.TimeResourcePattern = uint8(next(7))
		m.MCS = uint8(next(5))
		m.TimingAdvance = uint16(next(11))
		m.GroupDestinationID = uint8(next(8))
	case Format1:
		m.Priority = uint8(next(3))
		m.ResourceReservation = uint8(next(4))
		m.RIV = next(w)
		m.TimeGap = uint8(next(4))
		m.MCS = uint8(next(5))
		m.Retransmission = next(1) == 1
		m.TransmissionFormat = next(1) == 1
	default:
		return nil, fmt.Errorf("%w: unknown SCI format %d", ErrFieldRange, f)
	}
	return m, nil
}
