package sidelink

import (
	"fmt"
	"log"
	"math/rand"
	"net"

	"github.com/twardokus/sidelink/pkg/phy"
)

// PayloadSource fills a transport block with bits.
type PayloadSource interface {
	Fill(tb []uint8)
}

// RandomSource produces uniformly random bits. The same seed always yields
// the same sequence.
type RandomSource struct {
	rng *rand.Rand
}

func NewRandomSource(seed int64) *RandomSource {
	return &RandomSource{rng: rand.New(rand.NewSource(seed))}
}

func (s *RandomSource) Fill(tb []uint8) {
	for i := range tb {
		tb[i] = uint8(s.rng.Intn(2))
	}
}

const udpQueueLen = 64

// UDPSource carries datagrams received on a UDP socket in the transport
// block, one datagram per subframe. When nothing is queued it falls back to
// Idle.
type UDPSource struct {
	Idle PayloadSource

	conn  *net.UDPConn
	queue chan []byte
}

func NewUDPSource(addr string, idle PayloadSource) (*UDPSource, error) {
	a, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve address: %w", err)
	}
	conn, err := net.ListenUDP("udp", a)
	if err != nil {
		return nil, fmt.Errorf("failed to listen: %w", err)
	}
	s := &UDPSource{
		Idle:  idle,
		conn:  conn,
		queue: make(chan []byte, udpQueueLen),
	}
	log.Printf("[INFO] Accepting payload datagrams on %s", conn.LocalAddr())
	go s.handle()
	return s, nil
}

func (s *UDPSource) Addr() net.Addr {
	return s.conn.LocalAddr()
}

func (s *UDPSource) handle() {
	buf := make([]byte, 65535)
	for {
		n, _, err := s.conn.ReadFromUDP(buf)
		if err != nil {
			log.Printf("[DEBUG] UDP payload reader stopped: %v", err)
			close(s.queue)
			return
		}
		d := make([]byte, n)
		copy(d, buf[:n])
		select {
		case s.queue <- d:
		default:
			// queue is full, so drop it
			recordPayloadDropped()
			log.Printf("[DEBUG] Dropped payload datagram of %d bytes", n)
		}
	}
}

// Fill copies the next queued datagram into tb, truncating it or padding
// with zero bits to fit.
func (s *UDPSource) Fill(tb []uint8) {
	select {
	case d, ok := <-s.queue:
		if ok {
			clear(tb)
			copy(tb, phy.UnpackBytes(d))
			return
		}
	default:
	}
	if s.Idle != nil {
		s.Idle.Fill(tb)
		return
	}
	clear(tb)
}

func (s *UDPSource) Close() error {
	log.Print("[DEBUG] UDPSource.Close()")
	return s.conn.Close()
}
