package module

import (
	"fmt"
	"strings"
)

// Fixed layout sizes.
const (
	// PrefixSize is the size of the fixed module prefix in bytes
	PrefixSize = 24

	// SuffixTailSize is the size of the fixed suffix tail:
	// RESERVED(2) + UNIQUE_ID(32) + SUFFIX_SIZE(2)
	SuffixTailSize = 36

	// LegacySuffixSize is the suffix size when legacy product fields are present:
	// PRODUCT_ID(2) + PRODUCT_VERSION(2) + tail
	LegacySuffixSize = 40

	// CRCSize is the size of the CRC-32 trailer
	CRCSize = 4

	// MinModuleSize is the smallest buffer that can hold a prefix, a bare suffix and a CRC
	MinModuleSize = PrefixSize + SuffixTailSize + CRCSize

	// ExtensionHeaderSize is the size of a TLV record header: TYPE(2) + LENGTH(2)
	ExtensionHeaderSize = 4
)

// Prefix field offsets, relative to the prefix start.
const (
	offStartAddress   = 0
	offEndAddress     = 4
	offReserved       = 8
	offFlags          = 9
	offModuleVersion  = 10
	offPlatformID     = 12
	offModuleFunction = 14
	offModuleIndex    = 15
	offDep1Function   = 16
	offDep1Index      = 17
	offDep1Version    = 18
	offDep2Function   = 20
	offDep2Index      = 21
	offDep2Version    = 22
)

// Suffix field offsets, relative to the CRC trailer start (negative, counting back).
const (
	offSuffixSize = -2
	offUniqueID   = -34
	offSuffixRsvd = -36
	offProductVer = -38
	offProductID  = -40
)

// DefaultVectorTableSizes are the leading vector-table sizes probed when the
// prefix is not found at offset 0 (STM32F2xx and nRF52840 layouts).
var DefaultVectorTableSizes = []int{0x184, 0x200}

// Flags is the module prefix flag bitset.
type Flags uint8

const (
	// FlagNone indicates no flags are set
	FlagNone Flags = 0x00

	// FlagDropModuleInfo indicates the prefix is not copied to flash
	FlagDropModuleInfo Flags = 0x01

	// FlagCompressed indicates the payload is a framed deflate stream
	FlagCompressed Flags = 0x02

	// FlagCombined indicates another module follows this one in the same buffer
	FlagCombined Flags = 0x04

	// FlagEncrypted indicates the payload is encrypted
	FlagEncrypted Flags = 0x08

	// FlagPrefixExtensions indicates a TLV extension list follows the fixed prefix
	FlagPrefixExtensions Flags = 0x40
)

var flagNames = []struct {
	flag Flags
	name string
}{
	{FlagDropModuleInfo, "DROP_MODULE_INFO"},
	{FlagCompressed, "COMPRESSED"},
	{FlagCombined, "COMBINED"},
	{FlagEncrypted, "ENCRYPTED"},
	{FlagPrefixExtensions, "PREFIX_EXTENSIONS"},
}

// Has reports whether all bits of f2 are set.
func (f Flags) Has(f2 Flags) bool {
	return f&f2 == f2
}

func (f Flags) String() string {
	if f == FlagNone {
		return "NONE"
	}
	var parts []string
	rest := f
	for _, fn := range flagNames {
		if f&fn.flag != 0 {
			parts = append(parts, fn.name)
			rest &^= fn.flag
		}
	}
	if rest != 0 {
		parts = append(parts, fmt.Sprintf("0x%02X", uint8(rest)))
	}
	return strings.Join(parts, "|")
}

// Function identifies what a module contains.
type Function uint8

const (
	FunctionNone        Function = 0
	FunctionResource    Function = 1
	FunctionBootloader  Function = 2
	FunctionMonolithic  Function = 3
	FunctionSystemPart  Function = 4
	FunctionUserPart    Function = 5
	FunctionSettings    Function = 6
	FunctionNCPFirmware Function = 7
	FunctionRadioStack  Function = 8
	FunctionAsset       Function = 9
)

// functionCodes is the canonical mapping between binary function values and
// the single-character codes used in describe messages.
var functionCodes = []struct {
	fn   Function
	char string
	name string
}{
	{FunctionNone, "n", "none"},
	{FunctionResource, "r", "resource"},
	{FunctionBootloader, "b", "bootloader"},
	{FunctionMonolithic, "m", "monolithic"},
	{FunctionSystemPart, "s", "system"},
	{FunctionUserPart, "u", "user"},
	{FunctionSettings, "c", "settings"},
	{FunctionNCPFirmware, "p", "ncp"},
	{FunctionRadioStack, "a", "radio_stack"},
	{FunctionAsset, "A", "asset"},
}

// Char returns the describe-message code for the function, or "" if unknown.
func (f Function) Char() string {
	for _, c := range functionCodes {
		if c.fn == f {
			return c.char
		}
	}
	return ""
}

func (f Function) String() string {
	for _, c := range functionCodes {
		if c.fn == f {
			return c.name
		}
	}
	return fmt.Sprintf("function(%d)", uint8(f))
}

// ParseFunctionChar maps a describe-message function code to a Function.
func ParseFunctionChar(s string) (Function, error) {
	for _, c := range functionCodes {
		if c.char == s {
			return c.fn, nil
		}
	}
	return FunctionNone, fmt.Errorf("unknown module function code %q", s)
}

// Location identifies where a module is stored on the device.
type Location uint8

const (
	LocationNone     Location = 0
	LocationMain     Location = 1
	LocationFactory  Location = 2
	LocationBackup   Location = 3
	LocationExternal Location = 4
)

var locationCodes = []struct {
	loc  Location
	char string
	name string
}{
	{LocationNone, "", "none"},
	{LocationMain, "m", "main"},
	{LocationFactory, "f", "factory"},
	{LocationBackup, "b", "backup"},
	{LocationExternal, "e", "external"},
}

// Char returns the describe-message code for the location.
func (l Location) Char() string {
	for _, c := range locationCodes {
		if c.loc == l {
			return c.char
		}
	}
	return ""
}

func (l Location) String() string {
	for _, c := range locationCodes {
		if c.loc == l {
			return c.name
		}
	}
	return fmt.Sprintf("location(%d)", uint8(l))
}

// ParseLocationChar maps a describe-message location code to a Location.
// An empty code maps to LocationNone.
func ParseLocationChar(s string) (Location, error) {
	for _, c := range locationCodes {
		if c.char == s {
			return c.loc, nil
		}
	}
	return LocationNone, fmt.Errorf("unknown module location code %q", s)
}
