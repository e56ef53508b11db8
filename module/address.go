package module

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Address is a 32-bit module address. In JSON it accepts either a number or a
// hex string ("0x08060000" or "08060000") and always marshals as a hex string.
type Address uint32

// UnmarshalJSON implements json.Unmarshaler.
func (a *Address) UnmarshalJSON(data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	addr, err := SanitizeAddress(v)
	if err != nil {
		return err
	}
	*a = Address(addr)
	return nil
}

// MarshalJSON implements json.Marshaler.
func (a Address) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.String())
}

func (a Address) String() string {
	return fmt.Sprintf("0x%08x", uint32(a))
}

// SanitizeAddress normalizes an address given as an integer or a hex string
// into a uint32. Strings are always read as hexadecimal, with or without a
// 0x prefix.
//
// Example:
//
//	a, _ := module.SanitizeAddress("0x000D4000") // 0xD4000
//	b, _ := module.SanitizeAddress(868352)       // 0xD4000
func SanitizeAddress(v any) (uint32, error) {
	switch x := v.(type) {
	case Address:
		return uint32(x), nil
	case uint32:
		return x, nil
	case uint16:
		return uint32(x), nil
	case uint8:
		return uint32(x), nil
	case uint:
		return checkAddressRange(uint64(x))
	case uint64:
		return checkAddressRange(x)
	case int:
		return signedAddress(int64(x))
	case int32:
		return signedAddress(int64(x))
	case int64:
		return signedAddress(x)
	case float64:
		if x != math.Trunc(x) {
			return 0, fmt.Errorf("invalid address %v: not an integer", x)
		}
		return signedAddress(int64(x))
	case json.Number:
		n, err := strconv.ParseUint(string(x), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid address %q: %w", string(x), err)
		}
		return checkAddressRange(n)
	case string:
		s := strings.TrimSpace(x)
		s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
		if s == "" {
			return 0, fmt.Errorf("invalid address %q: empty", x)
		}
		n, err := strconv.ParseUint(s, 16, 32)
		if err != nil {
			return 0, fmt.Errorf("invalid address %q: %w", x, err)
		}
		return uint32(n), nil
	default:
		return 0, fmt.Errorf("invalid address type %T", v)
	}
}

func signedAddress(v int64) (uint32, error) {
	if v < 0 {
		return 0, fmt.Errorf("invalid address %d: negative", v)
	}
	return checkAddressRange(uint64(v))
}

func checkAddressRange(v uint64) (uint32, error) {
	if v > math.MaxUint32 {
		return 0, fmt.Errorf("invalid address 0x%X: exceeds 32 bits", v)
	}
	return uint32(v), nil
}
