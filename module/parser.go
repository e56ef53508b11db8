package module

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/spf13/afero"

	"github.com/moffa90/go-modbin/checksum"
)

// Info is the parsed descriptor of a module.
type Info struct {
	Prefix *Prefix         `json:"prefixInfo"`
	Suffix *Suffix         `json:"suffixInfo"`
	CRC    checksum.Result `json:"crc"`

	// Length is the number of buffer bytes that belong to this module
	Length int `json:"length"`
}

// PayloadStart returns the offset of the first byte after the prefix.
func (i *Info) PayloadStart() int {
	return i.Prefix.Offset + i.Prefix.Size
}

// SuffixStart returns the offset of the first suffix byte.
func (i *Info) SuffixStart() int {
	return i.Length - CRCSize - int(i.Suffix.Size)
}

// PayloadRange returns the [start, end) span of the payload.
func (i *Info) PayloadRange() (int, int) {
	return i.PayloadStart(), i.SuffixStart()
}

// ModuleLength returns the module length declared by the prefix addresses.
func (i *Info) ModuleLength() int {
	return i.Prefix.ModuleLength()
}

// Payload returns the bytes between the prefix and the suffix of buf.
func (i *Info) Payload(buf []byte) []byte {
	return buf[i.PayloadStart():i.SuffixStart()]
}

// Requirements returns the prefix dependency slots followed by any
// DEPENDENCY suffix extensions.
func (i *Info) Requirements() []Dependency {
	deps := i.Prefix.Dependencies()
	for _, ext := range i.Suffix.Extensions {
		if d, ok := ext.(Dependency); ok && !d.IsNone() {
			deps = append(deps, d)
		}
	}
	return deps
}

// Parser decodes module buffers into Info descriptors.
// A Parser is safe for concurrent use.
type Parser struct {
	config Config
}

// NewParser creates a Parser with the given options.
//
// Example:
//
//	p := module.NewParser(module.WithVectorTableSizes(0x200))
//	info, err := p.ParseFile("system-part1.bin")
func NewParser(opts ...Option) *Parser {
	return &Parser{config: newConfig(opts)}
}

// ParseFile reads and parses the module at path.
// Returns ErrNotFound if the file does not exist and ErrEmpty if it has no content.
func (p *Parser) ParseFile(path string) (*Info, error) {
	data, err := afero.ReadFile(p.config.Fs, path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmpty, path)
	}
	return p.ParseBuffer(data)
}

// ParseBuffer parses a module from memory.
//
// The procedure is:
//  1. Skip an optional leading vector table
//  2. Decode the prefix (and its extensions)
//  3. Read the suffix size preceding the CRC and decode the suffix backward
//  4. Recompute the CRC over [0, len-4) and compare it to the trailer
//
// A CRC mismatch is reported in Info.CRC and is not an error. When the
// module is flagged COMBINED only the first module is parsed.
func (p *Parser) ParseBuffer(buf []byte) (*Info, error) {
	if len(buf) == 0 {
		return nil, ErrEmpty
	}
	if len(buf) < MinModuleSize {
		return nil, &MalformedError{Field: "module", Need: MinModuleSize, Have: len(buf)}
	}

	prefix, err := ReadPrefix(buf, p.locatePrefix(buf))
	if err != nil {
		return nil, err
	}

	length := len(buf)
	if prefix.Flags.Has(FlagCombined) {
		if ml := prefix.ModuleLength(); ml >= MinModuleSize && ml <= len(buf) {
			length = ml
		}
	}
	mod := buf[:length]

	suffix, err := ReadSuffix(mod)
	if err != nil {
		return nil, err
	}

	info := &Info{Prefix: prefix, Suffix: suffix, Length: length}
	if info.PayloadStart() > info.SuffixStart() {
		return nil, fmt.Errorf("%w: suffix (%d bytes) overlaps prefix ending at %d",
			ErrMalformed, suffix.Size, info.PayloadStart())
	}

	info.CRC, err = p.config.Checksum.VerifyCRC32(mod)
	if err != nil {
		return nil, err
	}

	return info, nil
}

// locatePrefix returns the offset of the first plausible prefix: offset 0,
// then each configured vector-table size. It falls back to 0.
func (p *Parser) locatePrefix(buf []byte) int {
	candidates := append([]int{0}, p.config.VectorTableSizes...)
	for _, off := range candidates {
		if off < 0 || off+MinModuleSize > len(buf) {
			continue
		}
		pre := readFixedPrefix(buf, off)
		ml := pre.ModuleLength()
		if pre.EndAddress > pre.StartAddress && ml >= off+MinModuleSize && ml <= len(buf) {
			return off
		}
	}
	return 0
}

// ParseFile parses the module at path with a default Parser.
func ParseFile(path string, opts ...Option) (*Info, error) {
	return NewParser(opts...).ParseFile(path)
}

// ParseBuffer parses a module from memory with a default Parser.
func ParseBuffer(buf []byte, opts ...Option) (*Info, error) {
	return NewParser(opts...).ParseBuffer(buf)
}
