package module

import (
	"encoding/binary"
	"fmt"
)

// Prefix is the module header found at the start of the module, after an
// optional vector table.
//
// Layout (PrefixSize bytes, little-endian):
//
//	[START(4)][END(4)][RSVD(1)][FLAGS(1)][VERSION(2)][PLATFORM(2)][FUNC(1)][INDEX(1)]
//	[DEP1_FUNC(1)][DEP1_INDEX(1)][DEP1_VERSION(2)][DEP2_FUNC(1)][DEP2_INDEX(1)][DEP2_VERSION(2)]
//
// When FlagPrefixExtensions is set an END-terminated TLV list follows.
type Prefix struct {
	// Offset is the position of the prefix in the buffer (0 or the vector table size)
	Offset int `json:"prefixOffset"`

	// StartAddress is the flash address of the first module byte
	StartAddress Address `json:"moduleStartAddy"`

	// EndAddress is the flash address of the CRC trailer
	EndAddress Address `json:"moduleEndAddy"`

	Reserved      uint8    `json:"reserved"`
	Flags         Flags    `json:"moduleFlags"`
	ModuleVersion uint16   `json:"moduleVersion"`
	PlatformID    uint16   `json:"platformID"`
	Function      Function `json:"moduleFunction"`
	Index         uint8    `json:"moduleIndex"`

	// Dep1 and Dep2 are the two hardware dependency slots
	Dep1 Dependency `json:"depModule"`
	Dep2 Dependency `json:"dep2Module"`

	// Size is the prefix size including extensions
	Size int `json:"prefixSize"`

	// Extensions are the prefix TLV records, if FlagPrefixExtensions is set
	Extensions []Extension `json:"extensions,omitempty"`
}

// ModuleLength returns the module length implied by the addresses:
// EndAddress - StartAddress + CRCSize. It returns 0 when the addresses are inverted.
func (p *Prefix) ModuleLength() int {
	if p.EndAddress < p.StartAddress {
		return 0
	}
	return int(p.EndAddress-p.StartAddress) + CRCSize
}

// Dependencies returns the used dependency slots.
func (p *Prefix) Dependencies() []Dependency {
	var deps []Dependency
	for _, d := range []Dependency{p.Dep1, p.Dep2} {
		if !d.IsNone() {
			deps = append(deps, d)
		}
	}
	return deps
}

// ReadPrefix decodes the prefix located at offset.
func ReadPrefix(buf []byte, offset int) (*Prefix, error) {
	if offset < 0 || len(buf)-offset < PrefixSize {
		return nil, &MalformedError{Field: "prefix", Need: offset + PrefixSize, Have: len(buf)}
	}
	p := readFixedPrefix(buf, offset)

	if p.Flags.Has(FlagPrefixExtensions) {
		exts, n, terminated, err := decodeExtensions(buf[offset+PrefixSize:])
		if err != nil {
			return nil, fmt.Errorf("prefix extensions: %w", err)
		}
		if !terminated {
			return nil, fmt.Errorf("prefix extensions: %w: missing END record", ErrMalformed)
		}
		p.Extensions = exts
		p.Size += n
	}

	return p, nil
}

// readFixedPrefix decodes the fixed fields only. The caller checks bounds.
func readFixedPrefix(buf []byte, offset int) *Prefix {
	b := buf[offset:]
	return &Prefix{
		Offset:        offset,
		StartAddress:  Address(binary.LittleEndian.Uint32(b[offStartAddress:])),
		EndAddress:    Address(binary.LittleEndian.Uint32(b[offEndAddress:])),
		Reserved:      b[offReserved],
		Flags:         Flags(b[offFlags]),
		ModuleVersion: binary.LittleEndian.Uint16(b[offModuleVersion:]),
		PlatformID:    binary.LittleEndian.Uint16(b[offPlatformID:]),
		Function:      Function(b[offModuleFunction]),
		Index:         b[offModuleIndex],
		Dep1: Dependency{
			Function: Function(b[offDep1Function]),
			Index:    b[offDep1Index],
			Version:  binary.LittleEndian.Uint16(b[offDep1Version:]),
		},
		Dep2: Dependency{
			Function: Function(b[offDep2Function]),
			Index:    b[offDep2Index],
			Version:  binary.LittleEndian.Uint16(b[offDep2Version:]),
		},
		Size: PrefixSize,
	}
}

// MarshalBinary encodes the fixed prefix followed by the END-terminated
// extension list when FlagPrefixExtensions is set.
func (p *Prefix) MarshalBinary() ([]byte, error) {
	b := make([]byte, PrefixSize)
	binary.LittleEndian.PutUint32(b[offStartAddress:], uint32(p.StartAddress))
	binary.LittleEndian.PutUint32(b[offEndAddress:], uint32(p.EndAddress))
	b[offReserved] = p.Reserved
	b[offFlags] = byte(p.Flags)
	binary.LittleEndian.PutUint16(b[offModuleVersion:], p.ModuleVersion)
	binary.LittleEndian.PutUint16(b[offPlatformID:], p.PlatformID)
	b[offModuleFunction] = byte(p.Function)
	b[offModuleIndex] = p.Index
	b[offDep1Function] = byte(p.Dep1.Function)
	b[offDep1Index] = p.Dep1.Index
	binary.LittleEndian.PutUint16(b[offDep1Version:], p.Dep1.Version)
	b[offDep2Function] = byte(p.Dep2.Function)
	b[offDep2Index] = p.Dep2.Index
	binary.LittleEndian.PutUint16(b[offDep2Version:], p.Dep2.Version)

	if p.Flags.Has(FlagPrefixExtensions) {
		exts, err := EncodeExtensions(p.Extensions, true)
		if err != nil {
			return nil, fmt.Errorf("prefix extensions: %w", err)
		}
		b = append(b, exts...)
	}
	return b, nil
}

// WritePrefix encodes p and writes it in place at p.Offset. The encoded size
// must equal the size of the prefix already in the buffer (p.Size).
func WritePrefix(buf []byte, p *Prefix) error {
	b, err := p.MarshalBinary()
	if err != nil {
		return err
	}
	if p.Size != 0 && len(b) != p.Size {
		return fmt.Errorf("%w: prefix size changed from %d to %d bytes", ErrMalformed, p.Size, len(b))
	}
	if len(buf)-p.Offset < len(b) {
		return &MalformedError{Field: "prefix", Need: p.Offset + len(b), Have: len(buf)}
	}
	copy(buf[p.Offset:], b)
	return nil
}

func putFlags(buf []byte, prefixOffset int, f Flags) {
	buf[prefixOffset+offFlags] = byte(f)
}

func putEndAddress(buf []byte, prefixOffset int, a uint32) {
	binary.LittleEndian.PutUint32(buf[prefixOffset+offEndAddress:], a)
}

func putStartAddress(buf []byte, prefixOffset int, a uint32) {
	binary.LittleEndian.PutUint32(buf[prefixOffset+offStartAddress:], a)
}
