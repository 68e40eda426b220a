package memory

import (
	"errors"
	"fmt"
)

// ErrRAMSize is returned when battery RAM data does not match the cartridge RAM size.
var ErrRAMSize = errors.New("cartridge RAM size mismatch")

// ErrStateSize is returned when a restored memory block has the wrong length.
var ErrStateSize = errors.New("memory block size mismatch")

// LoadError reports a malformed or truncated cartridge image.
type LoadError struct {
	Reason string
	Err    error
}

func (e *LoadError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("cartridge load failed: %s: %v", e.Reason, e.Err)
	}
	return "cartridge load failed: " + e.Reason
}

func (e *LoadError) Unwrap() error { return e.Err }

// UnsupportedMapperError reports a cartridge type byte with no mapper implementation.
type UnsupportedMapperError struct {
	CartType uint8
}

func (e *UnsupportedMapperError) Error() string {
	return fmt.Sprintf("unsupported cartridge mapper: type 0x%02X (%s)", e.CartType, cartTypeName(e.CartType))
}
