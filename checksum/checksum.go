package checksum

import (
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"sync/atomic"
)

// Integrity trailer layout constants.
const (
	// CRC32Size is the size of the CRC-32 trailer in bytes
	CRC32Size = 4

	// SHA256Size is the size of the SHA-256 unique id in bytes
	SHA256Size = sha256.Size

	// SuffixSizeFieldSize is the size of the suffixSize field between the hash and the CRC
	SuffixSizeFieldSize = 2

	// SHA256TrailerSize is the number of trailing bytes excluded from the SHA-256 window:
	// SHA-256(32) + SUFFIX_SIZE(2) + CRC-32(4)
	SHA256TrailerSize = SHA256Size + SuffixSizeFieldSize + CRC32Size
)

// ErrBufferTooSmall is returned when a buffer is shorter than a checksum window.
var ErrBufferTooSmall = errors.New("buffer too small")

// CRC32Func computes a CRC-32 over data.
type CRC32Func func(data []byte) uint32

var defaultCRC32 atomic.Pointer[CRC32Func]

func init() {
	SetCRC32Func(nil)
}

// SetCRC32Func replaces the process-wide default CRC-32 function.
// Passing nil restores the standard IEEE CRC-32. Only engines created after
// the call observe the new function.
func SetCRC32Func(fn CRC32Func) {
	if fn == nil {
		fn = crc32.ChecksumIEEE
	}
	defaultCRC32.Store(&fn)
}

// CurrentCRC32Func returns the process-wide default CRC-32 function.
func CurrentCRC32Func() CRC32Func {
	return *defaultCRC32.Load()
}

// Engine recomputes module checksums with a fixed CRC-32 function.
// An Engine is immutable and safe for concurrent use.
type Engine struct {
	crc CRC32Func
}

// Option configures an Engine.
type Option func(*Engine)

// WithCRC32 sets the CRC-32 function used by the engine.
//
// Example:
//
//	eng := checksum.New(checksum.WithCRC32(crc32.ChecksumIEEE))
func WithCRC32(fn CRC32Func) Option {
	return func(e *Engine) {
		if fn != nil {
			e.crc = fn
		}
	}
}

// New creates an Engine. Without options it captures the current
// process-wide CRC-32 function.
func New(opts ...Option) *Engine {
	e := &Engine{crc: CurrentCRC32Func()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// CRC32 computes the CRC-32 of data.
func (e *Engine) CRC32(data []byte) uint32 {
	return e.crc(data)
}

// UpdateSHA256 recomputes the 32-byte unique id over [0, len-38) and writes it
// in place at [len-38, len-6).
func (e *Engine) UpdateSHA256(buf []byte) error {
	if len(buf) < SHA256TrailerSize {
		return fmt.Errorf("update sha256: %w: got %d bytes, need at least %d",
			ErrBufferTooSmall, len(buf), SHA256TrailerSize)
	}
	end := len(buf) - SHA256TrailerSize
	sum := sha256.Sum256(buf[:end])
	copy(buf[end:end+SHA256Size], sum[:])
	return nil
}

// UpdateCRC32 recomputes the CRC-32 over [0, len-4) and writes it big-endian
// into the last 4 bytes.
func (e *Engine) UpdateCRC32(buf []byte) error {
	if len(buf) < CRC32Size {
		return fmt.Errorf("update crc32: %w: got %d bytes, need at least %d",
			ErrBufferTooSmall, len(buf), CRC32Size)
	}
	end := len(buf) - CRC32Size
	binary.BigEndian.PutUint32(buf[end:], e.crc(buf[:end]))
	return nil
}

// Update recomputes the unique id and then the CRC-32 trailer.
func (e *Engine) Update(buf []byte) error {
	if err := e.UpdateSHA256(buf); err != nil {
		return err
	}
	return e.UpdateCRC32(buf)
}

// Result holds the outcome of a CRC-32 verification.
type Result struct {
	// OK is true when the stored CRC matches the computed one
	OK bool `json:"ok"`

	// Stored is the CRC read from the trailer
	Stored uint32 `json:"storedCrc"`

	// Computed is the CRC calculated over [0, len-4)
	Computed uint32 `json:"actualCrc"`
}

// VerifyCRC32 compares the stored CRC-32 trailer with a freshly computed one.
func (e *Engine) VerifyCRC32(buf []byte) (Result, error) {
	if len(buf) < CRC32Size {
		return Result{}, fmt.Errorf("verify crc32: %w: got %d bytes, need at least %d",
			ErrBufferTooSmall, len(buf), CRC32Size)
	}
	end := len(buf) - CRC32Size
	res := Result{
		Stored:   binary.BigEndian.Uint32(buf[end:]),
		Computed: e.crc(buf[:end]),
	}
	res.OK = res.Stored == res.Computed
	return res, nil
}

// UpdateSHA256 recomputes the unique id using a default engine.
func UpdateSHA256(buf []byte) error {
	return New().UpdateSHA256(buf)
}

// UpdateCRC32 recomputes the CRC-32 trailer using a default engine.
func UpdateCRC32(buf []byte) error {
	return New().UpdateCRC32(buf)
}

// SHA256 returns the SHA-256 digest of data.
func SHA256(data []byte) []byte {
	sum := sha256.Sum256(data)
	return sum[:]
}
