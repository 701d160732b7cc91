package sidelink

import (
	"fmt"
	"io"
	"log"
	"os"
)

// FileRadio writes every subframe to Out as cf32 samples. With Out set to
// io.Discard it is a null sink.
type FileRadio struct {
	Out        io.Writer
	gain       float64
	freq       float64
	sampleRate float64
	buf        []byte
}

func NewFileRadio(spec DeviceSpec) (*FileRadio, error) {
	path := spec.Arg("path", "")
	if path == "" {
		return nil, fmt.Errorf("file radio needs a path argument")
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("file radio create: %w", err)
	}
	log.Printf("[INFO] Writing samples to %s", path)
	return &FileRadio{Out: f}, nil
}

func (r *FileRadio) SetTXGain(db float64) error {
	r.gain = db
	return nil
}

func (r *FileRadio) SetTXFreq(hz float64) (float64, error) {
	r.freq = hz
	return hz, nil
}

func (r *FileRadio) SetTXSampleRate(hz float64) (float64, error) {
	r.sampleRate = hz
	return hz, nil
}

func (r *FileRadio) Send(samples []complex64, blocking bool) error {
	r.buf = appendCF32(r.buf[:0], samples)
	_, err := r.Out.Write(r.buf)
	return err
}

func (r *FileRadio) Close() error {
	log.Print("[DEBUG] FileRadio.Close()")
	if c, ok := r.Out.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
