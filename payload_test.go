package sidelink

import (
	"net"
	"reflect"
	"testing"
	"time"
)

func TestRandomSource(t *testing.T) {
	a := make([]uint8, 256)
	b := make([]uint8, 256)
	NewRandomSource(7).Fill(a)
	NewRandomSource(7).Fill(b)
	if !reflect.DeepEqual(a, b) {
		t.Errorf("Fill() differs for the same seed")
	}
	ones := 0
	for _, v := range a {
		if v > 1 {
			t.Fatalf("Fill() produced %d", v)
		}
		ones += int(v)
	}
	if ones == 0 || ones == len(a) {
		t.Errorf("Fill() produced %d ones out of %d", ones, len(a))
	}
}

type onesSource struct{}

func (onesSource) Fill(tb []uint8) {
	for i := range tb {
		tb[i] = 1
	}
}

// fillUntil polls s until the first bit is set or a second passes.
func fillUntil(t *testing.T, s PayloadSource, tb []uint8) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		s.Fill(tb)
		if tb[0] == 1 {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("no datagram arrived")
}

func TestUDPSource(t *testing.T) {
	s, err := NewUDPSource("127.0.0.1:0", nil)
	if err != nil {
		t.Fatalf("NewUDPSource() error = %v", err)
	}
	defer s.Close()

	tb := make([]uint8, 24)
	s.Fill(tb)
	if !reflect.DeepEqual(tb, make([]uint8, 24)) {
		t.Errorf("Fill() with nothing queued = %v, want zeros", tb)
	}

	conn, err := net.Dial("udp", s.Addr().String())
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	defer conn.Close()

	// shorter than the transport block, padded with zeros
	if _, err := conn.Write([]byte{0xFF, 0x01}); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	fillUntil(t, s, tb)
	want := []uint8{1, 1, 1, 1, 1, 1, 1, 1, 0, 0, 0, 0, 0, 0, 0, 1, 0, 0, 0, 0, 0, 0, 0, 0}
	if !reflect.DeepEqual(tb, want) {
		t.Errorf("Fill() = %v, want %v", tb, want)
	}

	// longer than the transport block, truncated
	if _, err := conn.Write([]byte{0x80, 0x00, 0x00, 0xFF}); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	short := make([]uint8, 8)
	fillUntil(t, s, short)
	if !reflect.DeepEqual(short, []uint8{1, 0, 0, 0, 0, 0, 0, 0}) {
		t.Errorf("Fill() = %v", short)
	}
}

func TestUDPSourceIdle(t *testing.T) {
	s, err := NewUDPSource("127.0.0.1:0", onesSource{})
	if err != nil {
		t.Fatalf("NewUDPSource() error = %v", err)
	}
	tb := make([]uint8, 16)
	s.Fill(tb)
	for i, v := range tb {
		if v != 1 {
			t.Fatalf("Fill()[%d] = %d, want idle fill", i, v)
		}
	}
	if err := s.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
	// a closed source keeps serving idle payload
	s.Fill(tb)
	if tb[0] != 1 {
		t.Errorf("Fill() after Close = %v", tb)
	}
}
