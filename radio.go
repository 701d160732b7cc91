// Package sidelink drives a continuous LTE sidelink transmitter: it builds
// PSCCH and PSSCH subframes and streams them to a radio backend.
package sidelink

import (
	"encoding/binary"
	"fmt"
	"io"
	"log"
	"strings"

	"github.com/twardokus/sidelink/pkg/phy"
)

// Radio is the transmit side of an RF device. All calls are synchronous and
// a Radio is only ever used from one goroutine.
type Radio interface {
	SetTXGain(db float64) error
	// SetTXFreq and SetTXSampleRate return the value the device actually
	// applied.
	SetTXFreq(hz float64) (float64, error)
	SetTXSampleRate(hz float64) (float64, error)
	// Send hands one subframe of samples to the device. With blocking set it
	// returns only after the device accepted the whole buffer.
	Send(samples []complex64, blocking bool) error
	Close() error
}

// Opener opens the device described by spec.
type Opener func(spec DeviceSpec) (Radio, error)

// DeviceSpec names a radio backend and its arguments.
type DeviceSpec struct {
	Name     string
	Args     map[string]string
	Channels int
}

// ParseDeviceArgs parses "key=value,key=value" device arguments.
func ParseDeviceArgs(s string) (map[string]string, error) {
	args := make(map[string]string)
	for _, kv := range strings.Split(s, ",") {
		kv = strings.TrimSpace(kv)
		if kv == "" {
			continue
		}
		k, v, ok := strings.Cut(kv, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("bad device argument '%s', want key=value", kv)
		}
		args[strings.TrimSpace(k)] = strings.TrimSpace(v)
	}
	return args, nil
}

// Arg returns the argument value or def when it is not set.
func (d DeviceSpec) Arg(key, def string) string {
	if v, ok := d.Args[key]; ok && v != "" {
		return v
	}
	return def
}

func (d DeviceSpec) String() string {
	return fmt.Sprintf("%s %v (%d channels)", d.Name, d.Args, d.Channels)
}

// OpenRadio opens one of the built-in backends: serial, fifo, file or null.
func OpenRadio(spec DeviceSpec) (Radio, error) {
	log.Printf("[DEBUG] Opening radio %s", spec)
	var r Radio
	var err error
	switch spec.Name {
	case "serial":
		r, err = NewSerialRadio(spec)
	case "fifo":
		r, err = NewFIFORadio(spec)
	case "file":
		r, err = NewFileRadio(spec)
	case "null", "":
		r = &FileRadio{Out: io.Discard}
	default:
		err = fmt.Errorf("unknown radio device '%s'", spec.Name)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %w", phy.ErrDevice, spec.Name, err)
	}
	return r, nil
}

// appendCF32 appends samples as interleaved little-endian float32 I/Q.
func appendCF32(buf []byte, samples []complex64) []byte {
	buf, _ = binary.Append(buf, binary.LittleEndian, samples)
	return buf
}
