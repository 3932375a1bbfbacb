package pkg

import "errors"

// Bus and EEPROM errors.
var (
	// ErrNoDevice indicates no device acknowledged its address.
	ErrNoDevice = errors.New("device not present")

	// ErrNACK indicates the device refused a data byte.
	ErrNACK = errors.New("data byte not acknowledged")

	// ErrBusError indicates an unclassified bus fault (arbitration lost,
	// stuck line, adapter failure).
	ErrBusError = errors.New("bus error")

	// ErrTimeout indicates a bus transaction or write-cycle wait timed out.
	ErrTimeout = errors.New("bus timeout")

	// ErrNoData indicates a read request returned no bytes.
	ErrNoData = errors.New("no data available")

	// ErrShortRead indicates a read request returned fewer bytes than requested.
	ErrShortRead = errors.New("short read")

	// ErrTransferTooLarge indicates a transaction exceeds the transport
	// buffer or the configured maximum transfer length.
	ErrTransferTooLarge = errors.New("transfer too large")

	// ErrPageBoundary indicates a write spans a device page boundary.
	ErrPageBoundary = errors.New("write crosses page boundary")

	// ErrAddressRange indicates a request extends past the device capacity.
	ErrAddressRange = errors.New("address out of range")

	// ErrInvalidAddress indicates an invalid 7-bit device address.
	ErrInvalidAddress = errors.New("invalid device address")

	// ErrInvalidParameter indicates an invalid parameter was provided.
	ErrInvalidParameter = errors.New("invalid parameter")

	// ErrNoTransaction indicates a byte was written outside of a transaction.
	ErrNoTransaction = errors.New("no open transaction")

	// ErrClosed indicates the transport has been closed.
	ErrClosed = errors.New("transport closed")

	// ErrNotSupported indicates an unsupported operation or platform.
	ErrNotSupported = errors.New("not supported")
)

// Status represents the completion status of a bus write transaction. The
// values follow the return codes of the Arduino Wire endTransmission call.
type Status int

// Transaction status values.
const (
	StatusSuccess     Status = iota // Transaction completed
	StatusDataTooLong               // Data too long for transmit buffer
	StatusAddressNACK               // NACK on transmit of address
	StatusDataNACK                  // NACK on transmit of data
	StatusOther                     // Other bus error
	StatusTimeout                   // Bus timeout
)

// String returns a string representation of the status.
func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusDataTooLong:
		return "data too long"
	case StatusAddressNACK:
		return "address nack"
	case StatusDataNACK:
		return "data nack"
	case StatusOther:
		return "other"
	case StatusTimeout:
		return "timeout"
	default:
		return "unknown"
	}
}

// Error returns the corresponding error for the status.
func (s Status) Error() error {
	switch s {
	case StatusSuccess:
		return nil
	case StatusDataTooLong:
		return ErrTransferTooLarge
	case StatusAddressNACK:
		return ErrNoDevice
	case StatusDataNACK:
		return ErrNACK
	case StatusTimeout:
		return ErrTimeout
	default:
		return ErrBusError
	}
}

// StatusOf classifies err into a Status. Errors that do not wrap one of the
// bus sentinels are reported as StatusOther.
func StatusOf(err error) Status {
	switch {
	case err == nil:
		return StatusSuccess
	case errors.Is(err, ErrTransferTooLarge):
		return StatusDataTooLong
	case errors.Is(err, ErrNoDevice):
		return StatusAddressNACK
	case errors.Is(err, ErrNACK):
		return StatusDataNACK
	case errors.Is(err, ErrTimeout):
		return StatusTimeout
	default:
		return StatusOther
	}
}
