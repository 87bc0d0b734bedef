package tiva

import (
	"errors"
	"fmt"

	"go.bug.st/serial.v1"
)

var (
	// ErrInvalidPayload is returned when a command payload can't be framed.
	ErrInvalidPayload = errors.New("invalid payload")
	// ErrMalformedLine is returned by DecodeLine for anything but three fields.
	ErrMalformedLine = errors.New("malformed line")

	// ErrPortUnavailable wraps any failure to open the serial port.
	ErrPortUnavailable = errors.New("port unavailable")
	// ErrNotConnected is returned by Send on a closed connection.
	ErrNotConnected = errors.New("not connected")
	// ErrWriteFailure wraps underlying write errors.
	ErrWriteFailure = errors.New("write failure")
)

// PortError describes a failed Open. It matches ErrPortUnavailable with errors.Is.
type PortError struct {
	Port string
	Err  error
}

func (e *PortError) Error() string {
	if e.Port == "" {
		return "port unavailable: empty port identifier"
	}
	return fmt.Sprintf("port unavailable: %q %s (%s)", e.Port, likelyCause(e.Err), e.Err)
}

func (e *PortError) Unwrap() error {
	return e.Err
}

func (e *PortError) Is(target error) bool {
	return target == ErrPortUnavailable
}

// likelyCause turns serial errors into something a user can act on.
func likelyCause(err error) string {
	perr, ok := err.(*serial.PortError)
	if !ok {
		return "is invalid or busy"
	}
	switch perr.Code() {
	case serial.PortBusy:
		return "is busy"
	case serial.PortNotFound, serial.InvalidSerialPort:
		return "does not exist or is not a serial port"
	case serial.PermissionDenied:
		return "can't be opened (permission denied)"
	}
	return "is invalid or busy"
}
