package module

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"math"
)

// ExtensionType is the TLV record type of a module extension.
type ExtensionType uint16

const (
	// ExtEnd terminates an extension list
	ExtEnd ExtensionType = 0x0000

	// ExtProductData carries the product id and product version
	ExtProductData ExtensionType = 0x0001

	// ExtDynamicLocation records where a module that moves at install time starts
	ExtDynamicLocation ExtensionType = 0x0002

	// ExtDependency declares an additional module dependency
	ExtDependency ExtensionType = 0x0003

	// ExtHash carries a digest of the module contents
	ExtHash ExtensionType = 0x0004

	// ExtName carries a UTF-8 module name
	ExtName ExtensionType = 0x0005

	// ExtAssetDependency references an asset required by an application
	ExtAssetDependency ExtensionType = 0x0006

	// ExtSecurityMode carries the module security mode
	ExtSecurityMode ExtensionType = 0x0007
)

func (t ExtensionType) String() string {
	switch t {
	case ExtEnd:
		return "END"
	case ExtProductData:
		return "PRODUCT_DATA"
	case ExtDynamicLocation:
		return "DYNAMIC_LOCATION"
	case ExtDependency:
		return "DEPENDENCY"
	case ExtHash:
		return "HASH"
	case ExtName:
		return "NAME"
	case ExtAssetDependency:
		return "ASSET_DEPENDENCY"
	case ExtSecurityMode:
		return "SECURITY_MODE"
	default:
		return fmt.Sprintf("UNKNOWN(0x%04X)", uint16(t))
	}
}

// HashType identifies a digest algorithm.
type HashType uint8

const (
	// HashSHA256 is a SHA-256 digest
	HashSHA256 HashType = 0x00
)

func (h HashType) String() string {
	if h == HashSHA256 {
		return "sha256"
	}
	return fmt.Sprintf("hash(%d)", uint8(h))
}

// HexBytes is a byte slice that marshals as lowercase hex text.
type HexBytes []byte

// MarshalText implements encoding.TextMarshaler.
func (b HexBytes) MarshalText() ([]byte, error) {
	return []byte(hex.EncodeToString(b)), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (b *HexBytes) UnmarshalText(text []byte) error {
	d, err := hex.DecodeString(string(text))
	if err != nil {
		return err
	}
	*b = d
	return nil
}

func (b HexBytes) String() string {
	return hex.EncodeToString(b)
}

// Extension is a single TLV record from a prefix or suffix extension list.
type Extension interface {
	// Type returns the TLV record type
	Type() ExtensionType

	// MarshalPayload encodes the record payload without the TLV header
	MarshalPayload() ([]byte, error)
}

// ProductData is the PRODUCT_DATA extension.
//
// Payload: [PRODUCT_ID(4)][PRODUCT_VERSION(2)]
type ProductData struct {
	ID      uint32 `json:"productId"`
	Version uint16 `json:"productVersion"`
}

func (ProductData) Type() ExtensionType { return ExtProductData }

func (e ProductData) MarshalPayload() ([]byte, error) {
	b := make([]byte, 6)
	binary.LittleEndian.PutUint32(b[0:4], e.ID)
	binary.LittleEndian.PutUint16(b[4:6], e.Version)
	return b, nil
}

// DynamicLocation is the DYNAMIC_LOCATION extension.
//
// Payload: [MODULE_START_ADDRESS(4)]
type DynamicLocation struct {
	StartAddress Address `json:"moduleStartAddress"`
}

func (DynamicLocation) Type() ExtensionType { return ExtDynamicLocation }

func (e DynamicLocation) MarshalPayload() ([]byte, error) {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, uint32(e.StartAddress))
	return b, nil
}

// Dependency is a module requirement. It appears twice in the fixed prefix and
// as the DEPENDENCY extension.
//
// Payload: [FUNCTION(1)][INDEX(1)][VERSION(2)]
type Dependency struct {
	Function Function `json:"func"`
	Index    uint8    `json:"index"`
	Version  uint16   `json:"version"`
}

func (Dependency) Type() ExtensionType { return ExtDependency }

func (e Dependency) MarshalPayload() ([]byte, error) {
	b := make([]byte, 4)
	b[0] = byte(e.Function)
	b[1] = e.Index
	binary.LittleEndian.PutUint16(b[2:4], e.Version)
	return b, nil
}

// IsNone reports whether the dependency slot is unused.
func (e Dependency) IsNone() bool {
	return e.Function == FunctionNone
}

// Hash is the HASH extension.
//
// Payload: [HASH_TYPE(1)][HASH(N)]
type Hash struct {
	HashType HashType `json:"hashType"`
	Hash     HexBytes `json:"hash"`
}

func (Hash) Type() ExtensionType { return ExtHash }

func (e Hash) MarshalPayload() ([]byte, error) {
	b := make([]byte, 0, 1+len(e.Hash))
	b = append(b, byte(e.HashType))
	return append(b, e.Hash...), nil
}

// Name is the NAME extension.
type Name struct {
	Name string `json:"name"`
}

func (Name) Type() ExtensionType { return ExtName }

func (e Name) MarshalPayload() ([]byte, error) {
	return []byte(e.Name), nil
}

// AssetDependency is the ASSET_DEPENDENCY extension.
//
// Payload: [HASH_TYPE(1)][HASH_LEN(1)][HASH(HASH_LEN)][NAME(rest)]
type AssetDependency struct {
	HashType HashType `json:"hashType"`
	Hash     HexBytes `json:"hash"`
	Name     string   `json:"name"`
}

func (AssetDependency) Type() ExtensionType { return ExtAssetDependency }

func (e AssetDependency) MarshalPayload() ([]byte, error) {
	if len(e.Hash) > math.MaxUint8 {
		return nil, fmt.Errorf("asset dependency %q: hash too long (%d bytes)", e.Name, len(e.Hash))
	}
	b := make([]byte, 0, 2+len(e.Hash)+len(e.Name))
	b = append(b, byte(e.HashType), byte(len(e.Hash)))
	b = append(b, e.Hash...)
	return append(b, e.Name...), nil
}

// SecurityMode is the SECURITY_MODE extension.
type SecurityMode struct {
	Mode uint8 `json:"mode"`
}

func (SecurityMode) Type() ExtensionType { return ExtSecurityMode }

func (e SecurityMode) MarshalPayload() ([]byte, error) {
	return []byte{e.Mode}, nil
}

// UnknownExtension preserves a record whose type this package does not know.
type UnknownExtension struct {
	Code    ExtensionType `json:"type"`
	Payload HexBytes      `json:"payload"`
}

func (e UnknownExtension) Type() ExtensionType { return e.Code }

func (e UnknownExtension) MarshalPayload() ([]byte, error) {
	return append([]byte(nil), e.Payload...), nil
}

// EncodeExtensions serializes records as [TYPE(2)][LENGTH(2)][PAYLOAD] in
// order. When terminate is true an END record is appended.
func EncodeExtensions(exts []Extension, terminate bool) ([]byte, error) {
	var out []byte
	for _, ext := range exts {
		if ext.Type() == ExtEnd {
			return nil, fmt.Errorf("END is not a valid extension record")
		}
		payload, err := ext.MarshalPayload()
		if err != nil {
			return nil, err
		}
		if len(payload) > math.MaxUint16 {
			return nil, fmt.Errorf("%s extension payload too long: %d bytes", ext.Type(), len(payload))
		}
		out = appendRecord(out, ext.Type(), payload)
	}
	if terminate {
		out = appendRecord(out, ExtEnd, nil)
	}
	return out, nil
}

func appendRecord(out []byte, t ExtensionType, payload []byte) []byte {
	var hdr [ExtensionHeaderSize]byte
	binary.LittleEndian.PutUint16(hdr[0:2], uint16(t))
	binary.LittleEndian.PutUint16(hdr[2:4], uint16(len(payload)))
	out = append(out, hdr[:]...)
	return append(out, payload...)
}

// DecodeExtensions reads records until an END record or the end of data.
// Unknown record types are skipped over using their declared length and
// returned as UnknownExtension. It returns the records and the number of
// bytes consumed, including the END record if one was read.
func DecodeExtensions(data []byte) ([]Extension, int, error) {
	exts, n, _, err := decodeExtensions(data)
	return exts, n, err
}

func decodeExtensions(data []byte) (exts []Extension, consumed int, terminated bool, err error) {
	off := 0
	for off < len(data) {
		if len(data)-off < ExtensionHeaderSize {
			return nil, 0, false, &MalformedError{
				Field: "extension header",
				Need:  ExtensionHeaderSize,
				Have:  len(data) - off,
			}
		}
		t := ExtensionType(binary.LittleEndian.Uint16(data[off:]))
		n := int(binary.LittleEndian.Uint16(data[off+2:]))
		off += ExtensionHeaderSize

		if len(data)-off < n {
			return nil, 0, false, &MalformedError{
				Field: t.String() + " extension",
				Need:  n,
				Have:  len(data) - off,
			}
		}
		payload := data[off : off+n]
		off += n

		if t == ExtEnd {
			return exts, off, true, nil
		}

		ext, err := decodeExtension(t, payload)
		if err != nil {
			return nil, 0, false, err
		}
		exts = append(exts, ext)
	}
	return exts, off, false, nil
}

func decodeExtension(t ExtensionType, p []byte) (Extension, error) {
	short := func(need int) error {
		return &MalformedError{Field: t.String() + " extension payload", Need: need, Have: len(p)}
	}

	switch t {
	case ExtProductData:
		if len(p) < 6 {
			return nil, short(6)
		}
		return ProductData{
			ID:      binary.LittleEndian.Uint32(p[0:4]),
			Version: binary.LittleEndian.Uint16(p[4:6]),
		}, nil
	case ExtDynamicLocation:
		if len(p) < 4 {
			return nil, short(4)
		}
		return DynamicLocation{StartAddress: Address(binary.LittleEndian.Uint32(p))}, nil
	case ExtDependency:
		if len(p) < 4 {
			return nil, short(4)
		}
		return Dependency{
			Function: Function(p[0]),
			Index:    p[1],
			Version:  binary.LittleEndian.Uint16(p[2:4]),
		}, nil
	case ExtHash:
		if len(p) < 1 {
			return nil, short(1)
		}
		return Hash{HashType: HashType(p[0]), Hash: append(HexBytes(nil), p[1:]...)}, nil
	case ExtName:
		return Name{Name: string(p)}, nil
	case ExtAssetDependency:
		if len(p) < 2 {
			return nil, short(2)
		}
		hl := int(p[1])
		if len(p) < 2+hl {
			return nil, short(2 + hl)
		}
		return AssetDependency{
			HashType: HashType(p[0]),
			Hash:     append(HexBytes(nil), p[2:2+hl]...),
			Name:     string(p[2+hl:]),
		}, nil
	case ExtSecurityMode:
		if len(p) < 1 {
			return nil, short(1)
		}
		return SecurityMode{Mode: p[0]}, nil
	default:
		return UnknownExtension{Code: t, Payload: append(HexBytes(nil), p...)}, nil
	}
}

// FindExtension returns the first record of type T in exts.
//
// Example:
//
//	if name, ok := module.FindExtension[module.Name](info.Suffix.Extensions); ok {
//	    fmt.Println(name.Name)
//	}
func FindExtension[T Extension](exts []Extension) (T, bool) {
	for _, ext := range exts {
		if v, ok := ext.(T); ok {
			return v, true
		}
	}
	var zero T
	return zero, false
}
