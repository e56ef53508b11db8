package module

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/moffa90/go-modbin/checksum"
)

// Suffix is the trailing metadata block, anchored at the CRC trailer.
//
// Layout, measured backward from the CRC (Size bytes in total):
//
//	[EXTENSIONS(Size-36)][RSVD(2)][UNIQUE_ID(32)][SUFFIX_SIZE(2)]
//
// A legacy suffix (Size == 40) carries [PRODUCT_ID(2)][PRODUCT_VERSION(2)]
// instead of extensions.
type Suffix struct {
	// ProductID is the legacy product id, or the PRODUCT_DATA id if present
	ProductID uint32 `json:"productId"`

	// ProductVersion is the legacy product version, or the PRODUCT_DATA version
	ProductVersion uint16 `json:"productVersion"`

	// Legacy is true when the product fields use the fixed 4-byte layout
	Legacy bool `json:"legacy"`

	Reserved uint16 `json:"reserved"`

	// UniqueID is the SHA-256 of bytes [0, len-38)
	UniqueID HexBytes `json:"fwUniqueId"`

	// Size is the suffix size, including the suffix size field itself
	Size uint16 `json:"suffixSize"`

	Extensions []Extension `json:"extensions,omitempty"`
}

// ReadSuffix decodes the suffix of a module occupying all of buf.
func ReadSuffix(buf []byte) (*Suffix, error) {
	if len(buf) < SuffixTailSize+CRCSize {
		return nil, &MalformedError{Field: "suffix", Need: SuffixTailSize + CRCSize, Have: len(buf)}
	}
	crcStart := len(buf) - CRCSize
	s := &Suffix{
		Size:     binary.LittleEndian.Uint16(buf[crcStart+offSuffixSize:]),
		UniqueID: append(HexBytes(nil), buf[crcStart+offUniqueID:crcStart+offSuffixSize]...),
		Reserved: binary.LittleEndian.Uint16(buf[crcStart+offSuffixRsvd:]),
	}

	if s.Size < SuffixTailSize {
		return nil, fmt.Errorf("%w: suffix size %d is smaller than the fixed tail (%d)",
			ErrMalformed, s.Size, SuffixTailSize)
	}
	if int(s.Size) > crcStart {
		return nil, &MalformedError{Field: "suffix", Need: int(s.Size) + CRCSize, Have: len(buf)}
	}

	switch {
	case s.Size == SuffixTailSize:
	case s.Size == LegacySuffixSize:
		s.Legacy = true
		s.ProductID = uint32(binary.LittleEndian.Uint16(buf[crcStart+offProductID:]))
		s.ProductVersion = binary.LittleEndian.Uint16(buf[crcStart+offProductVer:])
	default:
		start := crcStart - int(s.Size)
		exts, _, err := DecodeExtensions(buf[start : crcStart+offSuffixRsvd])
		if err != nil {
			return nil, fmt.Errorf("suffix extensions: %w", err)
		}
		s.Extensions = exts
		if pd, ok := FindExtension[ProductData](exts); ok {
			s.ProductID = pd.ID
			s.ProductVersion = pd.Version
		}
	}

	return s, nil
}

// MarshalBinary encodes the suffix without the CRC trailer and sets s.Size.
// Extensions take precedence over the legacy product fields.
func (s *Suffix) MarshalBinary() ([]byte, error) {
	var head []byte
	switch {
	case len(s.Extensions) > 0:
		exts, err := EncodeExtensions(s.Extensions, false)
		if err != nil {
			return nil, fmt.Errorf("suffix extensions: %w", err)
		}
		if len(exts) == LegacySuffixSize-SuffixTailSize {
			// Keep the region distinguishable from the legacy product fields.
			exts = appendRecord(exts, ExtEnd, nil)
		}
		head = exts
	case s.Legacy:
		if s.ProductID > math.MaxUint16 {
			return nil, fmt.Errorf("legacy product id %d does not fit in 16 bits", s.ProductID)
		}
		head = make([]byte, 4)
		binary.LittleEndian.PutUint16(head[0:2], uint16(s.ProductID))
		binary.LittleEndian.PutUint16(head[2:4], s.ProductVersion)
	}

	size := len(head) + SuffixTailSize
	if size > math.MaxUint16 {
		return nil, fmt.Errorf("suffix too large: %d bytes", size)
	}

	b := make([]byte, size)
	copy(b, head)
	tail := b[len(head):]
	binary.LittleEndian.PutUint16(tail[0:2], s.Reserved)
	if len(s.UniqueID) > 0 && len(s.UniqueID) != checksum.SHA256Size {
		return nil, fmt.Errorf("unique id must be %d bytes, got %d", checksum.SHA256Size, len(s.UniqueID))
	}
	copy(tail[2:2+checksum.SHA256Size], s.UniqueID)
	binary.LittleEndian.PutUint16(tail[34:36], uint16(size))
	s.Size = uint16(size)
	return b, nil
}

// Clone returns a copy of s whose slices can be modified independently.
func (s *Suffix) Clone() *Suffix {
	c := *s
	c.UniqueID = append(HexBytes(nil), s.UniqueID...)
	c.Extensions = append([]Extension(nil), s.Extensions...)
	return &c
}
