package host

const (
	// DefaultLamportsPerByte is the per-byte storage price.
	DefaultLamportsPerByte uint64 = 6960

	// DefaultOverheadBytes is charged on top of every record's size.
	DefaultOverheadBytes uint64 = 128
)

// Rent is the storage-deposit schedule. A record's deposit is charged to its
// payer on Create and returned to the beneficiary on Close.
type Rent struct {
	LamportsPerByte uint64 `json:"lamports_per_byte" yaml:"lamports_per_byte"`
	OverheadBytes   uint64 `json:"overhead_bytes" yaml:"overhead_bytes"`
}

// DefaultRent returns the default schedule.
func DefaultRent() Rent {
	return Rent{LamportsPerByte: DefaultLamportsPerByte, OverheadBytes: DefaultOverheadBytes}
}

// FreeRent charges nothing. Handy for tests that do not care about deposits.
func FreeRent() Rent {
	return Rent{}
}

// Deposit returns the deposit for a record of the given size.
func (r Rent) Deposit(size int) uint64 {
	return (r.OverheadBytes + uint64(size)) * r.LamportsPerByte
}
