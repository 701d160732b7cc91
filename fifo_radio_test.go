//go:build linux

package sidelink

import (
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestFIFORadio(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tx.fifo")
	got := make(chan []byte, 1)
	go func() {
		// wait for the radio to create the pipe
		for {
			fi, err := os.Stat(path)
			if err == nil && fi.Mode()&os.ModeNamedPipe != 0 {
				break
			}
			time.Sleep(time.Millisecond)
		}
		f, err := os.Open(path)
		if err != nil {
			got <- nil
			return
		}
		defer f.Close()
		data, _ := io.ReadAll(f)
		got <- data
	}()

	r, err := OpenRadio(DeviceSpec{Name: "fifo", Args: map[string]string{"path": path}})
	if err != nil {
		t.Fatalf("OpenRadio() error = %v", err)
	}
	if err := r.Send(make([]complex64, 100), true); err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if err := r.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	select {
	case data := <-got:
		if len(data) != 800 {
			t.Errorf("reader got %d bytes, want 800", len(data))
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("reader did not finish")
	}
}

func TestFIFORadioNotAPipe(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plain")
	if err := os.WriteFile(path, nil, 0644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	if _, err := NewFIFORadio(DeviceSpec{Args: map[string]string{"path": path}}); err == nil {
		t.Errorf("NewFIFORadio() want error for a regular file")
	}
}
