package module

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/moffa90/go-modbin/checksum"
)

// PrefixFields selects prefix fields to overwrite. Nil fields are left untouched.
// Addresses decode from JSON numbers or hex strings.
type PrefixFields struct {
	StartAddress  *Address  `json:"moduleStartAddy,omitempty"`
	EndAddress    *Address  `json:"moduleEndAddy,omitempty"`
	Reserved      *uint8    `json:"reserved,omitempty"`
	Flags         *Flags    `json:"moduleFlags,omitempty"`
	ModuleVersion *uint16   `json:"moduleVersion,omitempty"`
	PlatformID    *uint16   `json:"platformID,omitempty"`
	Function      *Function `json:"moduleFunction,omitempty"`
	Index         *uint8    `json:"moduleIndex,omitempty"`
	Dep1Function  *Function `json:"depModuleFunction,omitempty"`
	Dep1Index     *uint8    `json:"depModuleIndex,omitempty"`
	Dep1Version   *uint16   `json:"depModuleVersion,omitempty"`
	Dep2Function  *Function `json:"dep2ModuleFunction,omitempty"`
	Dep2Index     *uint8    `json:"dep2ModuleIndex,omitempty"`
	Dep2Version   *uint16   `json:"dep2ModuleVersion,omitempty"`
}

// SuffixFields selects suffix fields to overwrite. Nil fields are left untouched.
type SuffixFields struct {
	ProductID      *uint32  `json:"productId,omitempty"`
	ProductVersion *uint16  `json:"productVersion,omitempty"`
	Reserved       *uint16  `json:"reserved,omitempty"`
	UniqueID       HexBytes `json:"fwUniqueId,omitempty"`
	SuffixSize     *uint16  `json:"suffixSize,omitempty"`
	CRC            *uint32  `json:"crc,omitempty"`
}

// UpdatePrefix writes the selected fields into the prefix of buf in place.
// Bytes of fields that are not selected are not modified, and checksums are
// not recomputed.
//
// Example:
//
//	v := uint16(3)
//	err := module.UpdatePrefix(buf, module.PrefixFields{ModuleVersion: &v})
func UpdatePrefix(buf []byte, f PrefixFields, opts ...Option) error {
	p := NewParser(opts...)
	if len(buf) < PrefixSize {
		return &MalformedError{Field: "prefix", Need: PrefixSize, Have: len(buf)}
	}
	off := 0
	if len(buf) >= MinModuleSize {
		off = p.locatePrefix(buf)
	}
	b := buf[off : off+PrefixSize]

	put32 := func(pos int, v *Address) {
		if v != nil {
			binary.LittleEndian.PutUint32(b[pos:], uint32(*v))
		}
	}
	put16 := func(pos int, v *uint16) {
		if v != nil {
			binary.LittleEndian.PutUint16(b[pos:], *v)
		}
	}
	put8 := func(pos int, v *uint8) {
		if v != nil {
			b[pos] = *v
		}
	}
	putFn := func(pos int, v *Function) {
		if v != nil {
			b[pos] = byte(*v)
		}
	}

	put32(offStartAddress, f.StartAddress)
	put32(offEndAddress, f.EndAddress)
	put8(offReserved, f.Reserved)
	if f.Flags != nil {
		b[offFlags] = byte(*f.Flags)
	}
	put16(offModuleVersion, f.ModuleVersion)
	put16(offPlatformID, f.PlatformID)
	putFn(offModuleFunction, f.Function)
	put8(offModuleIndex, f.Index)
	putFn(offDep1Function, f.Dep1Function)
	put8(offDep1Index, f.Dep1Index)
	put16(offDep1Version, f.Dep1Version)
	putFn(offDep2Function, f.Dep2Function)
	put8(offDep2Index, f.Dep2Index)
	put16(offDep2Version, f.Dep2Version)
	return nil
}

// UpdateSuffix writes the selected fields into the suffix of buf in place.
// Product fields are written to the legacy layout or to the PRODUCT_DATA
// extension, whichever the module carries. Checksums are not recomputed
// unless CRC is given explicitly.
func UpdateSuffix(buf []byte, f SuffixFields) error {
	if len(buf) < SuffixTailSize+CRCSize {
		return &MalformedError{Field: "suffix", Need: SuffixTailSize + CRCSize, Have: len(buf)}
	}
	crcStart := len(buf) - CRCSize

	if f.ProductID != nil || f.ProductVersion != nil {
		if err := updateProductFields(buf, f.ProductID, f.ProductVersion); err != nil {
			return err
		}
	}
	if f.Reserved != nil {
		binary.LittleEndian.PutUint16(buf[crcStart+offSuffixRsvd:], *f.Reserved)
	}
	if f.UniqueID != nil {
		if len(f.UniqueID) != checksum.SHA256Size {
			return fmt.Errorf("unique id must be %d bytes, got %d", checksum.SHA256Size, len(f.UniqueID))
		}
		copy(buf[crcStart+offUniqueID:crcStart+offSuffixSize], f.UniqueID)
	}
	if f.SuffixSize != nil {
		binary.LittleEndian.PutUint16(buf[crcStart+offSuffixSize:], *f.SuffixSize)
	}
	if f.CRC != nil {
		binary.BigEndian.PutUint32(buf[crcStart:], *f.CRC)
	}
	return nil
}

func updateProductFields(buf []byte, id *uint32, version *uint16) error {
	crcStart := len(buf) - CRCSize
	size := int(binary.LittleEndian.Uint16(buf[crcStart+offSuffixSize:]))

	switch {
	case size == LegacySuffixSize:
		if id != nil {
			if *id > math.MaxUint16 {
				return fmt.Errorf("legacy product id %d does not fit in 16 bits", *id)
			}
			binary.LittleEndian.PutUint16(buf[crcStart+offProductID:], uint16(*id))
		}
		if version != nil {
			binary.LittleEndian.PutUint16(buf[crcStart+offProductVer:], *version)
		}
		return nil
	case size > SuffixTailSize && size <= crcStart:
		start := crcStart - size
		pos, n, ok := findRecord(buf[start:crcStart+offSuffixRsvd], ExtProductData)
		if !ok || n < 6 {
			break
		}
		payload := buf[start+pos : start+pos+n]
		if id != nil {
			binary.LittleEndian.PutUint32(payload[0:4], *id)
		}
		if version != nil {
			binary.LittleEndian.PutUint16(payload[4:6], *version)
		}
		return nil
	}
	return fmt.Errorf("%w: module has no product fields", ErrMalformed)
}

// findRecord returns the payload offset and length of the first record of
// type t in an extension region.
func findRecord(region []byte, t ExtensionType) (int, int, bool) {
	off := 0
	for len(region)-off >= ExtensionHeaderSize {
		rt := ExtensionType(binary.LittleEndian.Uint16(region[off:]))
		n := int(binary.LittleEndian.Uint16(region[off+2:]))
		off += ExtensionHeaderSize
		if rt == ExtEnd || len(region)-off < n {
			return 0, 0, false
		}
		if rt == t {
			return off, n, true
		}
		off += n
	}
	return 0, 0, false
}
