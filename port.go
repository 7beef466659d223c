package monoprice

import (
	"time"

	"go.bug.st/serial"
)

// Port is the subset of serial.Port used by the sessions.
type Port interface {
	Read(p []byte) (int, error)
	Write(p []byte) (int, error)
	ResetInputBuffer() error
	ResetOutputBuffer() error
	SetReadTimeout(t time.Duration) error
	Close() error
}

var _ Port = (serial.Port)(nil)

// PortFactory opens the serial port at path.
type PortFactory func(path string, mode *serial.Mode) (Port, error)

// DefaultMode is the amplifier line setting: 9600 baud, 8 data bits, no parity, one stop bit.
var DefaultMode = serial.Mode{
	BaudRate: 9600,
	DataBits: 8,
	Parity:   serial.NoParity,
	StopBits: serial.OneStopBit,
}

// DefaultPortFactory opens a real serial port.
func DefaultPortFactory(path string, mode *serial.Mode) (Port, error) {
	port, err := serial.Open(path, mode)
	if err != nil {
		return nil, err
	}
	return port, nil
}
