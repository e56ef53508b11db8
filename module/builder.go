package module

import (
	"fmt"
	"math"
)

// Parts are the pieces of a module before assembly.
type Parts struct {
	// VectorTable is copied ahead of the prefix, if any
	VectorTable []byte

	Prefix  Prefix
	Payload []byte
	Suffix  Suffix
}

// Assemble builds a complete module from parts. The prefix offset is set to
// the vector table length, the end address is derived from the start address
// and the total length, and the unique id and CRC are computed according to
// the configuration.
//
// Example:
//
//	buf, err := module.Assemble(module.Parts{
//		Prefix:  module.Prefix{StartAddress: 0x80000, PlatformID: 32, Function: module.FunctionUserPart, Index: 1},
//		Payload: firmware,
//	})
func Assemble(parts Parts, opts ...Option) ([]byte, error) {
	cfg := newConfig(opts)

	prefix := parts.Prefix
	prefix.Offset = len(parts.VectorTable)
	pre, err := prefix.MarshalBinary()
	if err != nil {
		return nil, err
	}

	suffix := parts.Suffix
	suf, err := suffix.MarshalBinary()
	if err != nil {
		return nil, err
	}

	total := len(parts.VectorTable) + len(pre) + len(parts.Payload) + len(suf) + CRCSize
	end := uint64(prefix.StartAddress) + uint64(total) - CRCSize
	if end > math.MaxUint32 {
		return nil, fmt.Errorf("%w: module of %d bytes does not fit at %s", ErrMalformed, total, prefix.StartAddress)
	}

	buf := make([]byte, 0, total)
	buf = append(buf, parts.VectorTable...)
	buf = append(buf, pre...)
	buf = append(buf, parts.Payload...)
	buf = append(buf, suf...)
	buf = append(buf, make([]byte, CRCSize)...)

	putEndAddress(buf, prefix.Offset, uint32(end))

	if err := cfg.updateChecksums(buf); err != nil {
		return nil, err
	}
	return buf, nil
}
