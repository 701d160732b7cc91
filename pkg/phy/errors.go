package phy

import (
	"errors"
	"fmt"
)

// Error categories. Specific errors wrap exactly one of these.
var (
	ErrConfiguration = errors.New("configuration error")
	ErrAllocation    = errors.New("allocation error")
	ErrEncoding      = errors.New("encoding failure")
	ErrDevice        = errors.New("device error")
)

var (
	ErrUnsupportedBandwidth = fmt.Errorf("%w: unsupported number of PRB", ErrConfiguration)
	ErrInvalidCell          = fmt.Errorf("%w: invalid cell", ErrConfiguration)
	ErrNoValidAllocation    = fmt.Errorf("%w: no valid PSSCH PRB allocation", ErrAllocation)
	ErrEncodingFailure      = ErrEncoding
	// A rejected transport block costs one subframe, not the loop.
	ErrTransportBlockSizeMismatch = fmt.Errorf("%w: transport block size mismatch", ErrEncoding)
)

// IsFatal reports whether err should stop the transmission loop. Only
// encoding failures are recoverable.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	return !errors.Is(err, ErrEncoding)
}
