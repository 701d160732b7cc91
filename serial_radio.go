package sidelink

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"log"
	"math"
	"net"
	"os"
	"strconv"
	"sync"

	"go.bug.st/serial"
)

// Serial SDR bridge commands
const (
	serialCmdPing = iota
	serialCmdSetTXFreq
	serialCmdSetTXGain
	serialCmdSetSampleRate
	serialCmdTXStart
	serialCmdTXSamples
	serialCmdTXStop
)

const (
	txIdle = iota
	txTX
)

const (
	serialDefaultSpeed = 460800
	// int16 full scale for a unit amplitude sample
	serialSampleScale = 8192

	serialFlagAck = 0x01
)

var ErrSerialNAK = errors.New("radio returned NAK")

// SerialRadio drives an SDR bridge over a serial port, or over a unix
// socket when talking to an emulator. Commands are framed as
// [cmd][len uint32 LE][payload]; replies as [cmd][status][len][payload].
// TX stop and sample frames sent without the ack flag get no reply.
type SerialRadio struct {
	port io.ReadWriteCloser

	mutex   sync.Mutex
	txState int // protected by mutex

	channels int
	buf      []byte
}

func NewSerialRadio(spec DeviceSpec) (*SerialRadio, error) {
	var portErr error
	port := spec.Arg("port", "")
	if port == "" {
		portErr = errors.New("serial radio port must have a value")
	}
	speed, speedErr := strconv.Atoi(spec.Arg("speed", strconv.Itoa(serialDefaultSpeed)))
	if err := errors.Join(portErr, speedErr); err != nil {
		return nil, err
	}

	fi, err := os.Stat(port)
	if err != nil {
		return nil, fmt.Errorf("radio stat: %w", err)
	}
	var p io.ReadWriteCloser
	if fi.Mode()&os.ModeSocket == os.ModeSocket {
		log.Printf("[DEBUG] Opening emulator")
		p, err = net.Dial("unix", port)
		if err != nil {
			return nil, fmt.Errorf("radio socket open: %w", err)
		}
	} else {
		log.Printf("[DEBUG] Opening serial radio")
		mode := &serial.Mode{
			BaudRate: speed,
		}
		p, err = serial.Open(port, mode)
		if err != nil {
			return nil, fmt.Errorf("radio open: %w", err)
		}
	}
	r := newSerialRadio(p, spec.Channels)
	if _, err := r.commandWithResponse(serialCmdPing, nil); err != nil {
		p.Close()
		return nil, fmt.Errorf("test PING: %w", err)
	}
	log.Printf("[INFO] Connected to serial radio on %s", port)
	return r, nil
}

func newSerialRadio(port io.ReadWriteCloser, channels int) *SerialRadio {
	if channels < 1 {
		channels = 1
	}
	return &SerialRadio{
		port:     port,
		channels: channels,
		txState:  txIdle,
	}
}

func (r *SerialRadio) SetTXGain(db float64) error {
	log.Printf("[DEBUG] setTXGain(%v)", db)
	cmd, _ := binary.Append(nil, binary.LittleEndian, float32(db))
	_, err := r.commandWithResponse(serialCmdSetTXGain, cmd)
	if err != nil {
		return fmt.Errorf("send set TX gain: %w", err)
	}
	return nil
}

func (r *SerialRadio) SetTXFreq(hz float64) (float64, error) {
	log.Printf("[DEBUG] setTXFreq(%v)", hz)
	cmd, _ := binary.Append(nil, binary.LittleEndian, hz)
	resp, err := r.commandWithResponse(serialCmdSetTXFreq, cmd)
	if err != nil {
		return 0, fmt.Errorf("send set TX freq: %w", err)
	}
	return decodeFloat64(resp, hz)
}

func (r *SerialRadio) SetTXSampleRate(hz float64) (float64, error) {
	log.Printf("[DEBUG] setTXSampleRate(%v)", hz)
	cmd, _ := binary.Append(nil, binary.LittleEndian, hz)
	resp, err := r.commandWithResponse(serialCmdSetSampleRate, cmd)
	if err != nil {
		return 0, fmt.Errorf("send set sample rate: %w", err)
	}
	return decodeFloat64(resp, hz)
}

// decodeFloat64 reads the value a device reports back, or def when the
// reply carries none.
func decodeFloat64(resp []byte, def float64) (float64, error) {
	switch len(resp) {
	case 0:
		return def, nil
	case 8:
		return math.Float64frombits(binary.LittleEndian.Uint64(resp)), nil
	default:
		return 0, fmt.Errorf("unexpected response: %#v", resp)
	}
}

func (r *SerialRadio) Send(samples []complex64, blocking bool) error {
	if err := r.startTX(); err != nil {
		return err
	}
	var flags byte
	if blocking {
		flags |= serialFlagAck
	}
	r.buf = append(r.buf[:0], flags)
	for _, s := range samples {
		r.buf, _ = binary.Append(r.buf, binary.LittleEndian, [2]int16{toInt16(real(s)), toInt16(imag(s))})
	}
	if !blocking {
		return r.command(serialCmdTXSamples, r.buf)
	}
	_, err := r.commandWithResponse(serialCmdTXSamples, r.buf)
	if err != nil {
		return fmt.Errorf("send samples: %w", err)
	}
	return nil
}

func toInt16(v float32) int16 {
	x := math.Round(float64(v) * serialSampleScale)
	return int16(max(math.MinInt16, min(math.MaxInt16, x)))
}

func (r *SerialRadio) startTX() error {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	if r.txState == txTX {
		return nil
	}
	log.Printf("[DEBUG] startTX()")
	if _, err := r.commandWithResponse(serialCmdTXStart, nil); err != nil {
		return fmt.Errorf("start TX: %w", err)
	}
	r.txState = txTX
	return nil
}

func (r *SerialRadio) stopTX() error {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	// Only stop if we've started
	if r.txState != txTX {
		return nil
	}
	log.Print("[DEBUG] radio stopping TX")
	r.txState = txIdle
	return r.command(serialCmdTXStop, nil)
}

// Close the radio
func (r *SerialRadio) Close() error {
	log.Print("[DEBUG] radio Close()")
	err1 := r.stopTX()
	err2 := r.port.Close()
	return errors.Join(err1, err2)
}

func (r *SerialRadio) command(cmd byte, payload []byte) error {
	frame := make([]byte, 0, 5+len(payload))
	frame = append(frame, cmd)
	frame = binary.LittleEndian.AppendUint32(frame, uint32(len(payload)))
	frame = append(frame, payload...)
	_, err := r.port.Write(frame)
	if err != nil {
		return fmt.Errorf("command: %w", err)
	}
	return nil
}

func (r *SerialRadio) commandWithResponse(cmd byte, payload []byte) ([]byte, error) {
	err := r.command(cmd, payload)
	if err != nil {
		return nil, err
	}
	hdr := make([]byte, 3)
	if _, err := io.ReadFull(r.port, hdr); err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	resp := make([]byte, hdr[2])
	if _, err := io.ReadFull(r.port, resp); err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if hdr[0] != cmd {
		return nil, fmt.Errorf("response to command %02x, expected %02x", hdr[0], cmd)
	}
	if hdr[1] != 0 {
		return nil, fmt.Errorf("%w: command %02x, status %d", ErrSerialNAK, cmd, hdr[1])
	}
	return resp, nil
}
