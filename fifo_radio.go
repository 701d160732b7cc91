//go:build linux

package sidelink

import (
	"errors"
	"fmt"
	"log"
	"os"

	"golang.org/x/sys/unix"
)

const fifoPipeSize = 1024 * 1024

// FIFORadio streams cf32 samples into a named pipe, for SDR front ends that
// read baseband from a FIFO.
type FIFORadio struct {
	path string
	f    *os.File
	buf  []byte
}

// NewFIFORadio creates the pipe if needed and blocks until a reader opens
// it.
func NewFIFORadio(spec DeviceSpec) (*FIFORadio, error) {
	path := spec.Arg("path", "")
	if path == "" {
		return nil, errors.New("fifo radio needs a path argument")
	}
	fi, err := os.Stat(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		if err := unix.Mkfifo(path, 0666); err != nil {
			return nil, fmt.Errorf("mkfifo %s: %w", path, err)
		}
	case err != nil:
		return nil, fmt.Errorf("fifo stat: %w", err)
	case fi.Mode()&os.ModeNamedPipe == 0:
		return nil, fmt.Errorf("%s exists and is not a FIFO", path)
	}

	log.Printf("[INFO] Waiting for a reader on %s", path)
	fd, err := unix.Open(path, unix.O_WRONLY|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, fmt.Errorf("fifo open: %w", err)
	}
	if _, err := unix.FcntlInt(uintptr(fd), unix.F_SETPIPE_SZ, fifoPipeSize); err != nil {
		log.Printf("[DEBUG] Unable to grow pipe buffer: %v", err)
	}
	return &FIFORadio{path: path, f: os.NewFile(uintptr(fd), path)}, nil
}

func (r *FIFORadio) SetTXGain(db float64) error {
	log.Printf("[DEBUG] fifo radio ignores TX gain %.1f dB", db)
	return nil
}

func (r *FIFORadio) SetTXFreq(hz float64) (float64, error) {
	return hz, nil
}

func (r *FIFORadio) SetTXSampleRate(hz float64) (float64, error) {
	return hz, nil
}

// Send writes the subframe. Writes to a pipe always block until the kernel
// has taken every byte.
func (r *FIFORadio) Send(samples []complex64, blocking bool) error {
	r.buf = appendCF32(r.buf[:0], samples)
	_, err := r.f.Write(r.buf)
	return err
}

func (r *FIFORadio) Close() error {
	log.Printf("[DEBUG] FIFORadio.Close() %s", r.path)
	return r.f.Close()
}
