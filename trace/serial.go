package trace

import (
	"io"

	"github.com/jacobsa/go-serial/serial"
	"github.com/pkg/errors"
)

// DefaultSerialOptions returns 8N1 options for port at baud.
func DefaultSerialOptions(port string, baud uint) serial.OpenOptions {
	return serial.OpenOptions{
		PortName:        port,
		BaudRate:        baud,
		DataBits:        8,
		StopBits:        1,
		ParityMode:      serial.PARITY_NONE,
		MinimumReadSize: 1,
	}
}

// OpenSerial opens a UART carrying binary trace records.
func OpenSerial(opts serial.OpenOptions) (io.ReadWriteCloser, error) {
	// reads time out so a quiet link doesn't block shutdown
	opts.MinimumReadSize = 0
	opts.InterCharacterTimeout = 100

	sp, err := serial.Open(opts)
	if err != nil {
		return nil, errors.Wrapf(err, "can't open %v", opts.PortName)
	}
	return sp, nil
}
