//go:build !linux

package sidelink

import "errors"

type FIFORadio struct {
	FileRadio
}

func NewFIFORadio(spec DeviceSpec) (*FIFORadio, error) {
	return nil, errors.New("fifo radio is only supported on linux")
}
