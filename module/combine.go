package module

import (
	"fmt"
)

// CombineModules concatenates modules in order into a single buffer. Every
// module except the last is flagged COMBINED and has its checksums
// recomputed, unless disabled by option. The inputs are not modified.
//
// Each module that is followed by another must declare its own length through
// its prefix addresses, since that is how SplitCombinedModules finds the
// boundaries.
func CombineModules(modules [][]byte, opts ...Option) ([]byte, error) {
	if len(modules) == 0 {
		return nil, fmt.Errorf("%w: no modules to combine", ErrEmpty)
	}
	p := NewParser(opts...)

	total := 0
	for _, m := range modules {
		total += len(m)
	}
	out := make([]byte, 0, total)

	for i, m := range modules {
		info, err := p.ParseBuffer(m)
		if err != nil {
			return nil, fmt.Errorf("module %d: %w", i, err)
		}
		start := len(out)
		out = append(out, m...)
		if i == len(modules)-1 {
			break
		}
		if ml := info.ModuleLength(); ml != len(m) {
			return nil, fmt.Errorf("module %d: %w: declared length %d, buffer has %d bytes",
				i, ErrMalformed, ml, len(m))
		}
		if info.Prefix.Flags.Has(FlagCombined) {
			continue
		}
		sub := out[start:]
		putFlags(sub, info.Prefix.Offset, info.Prefix.Flags|FlagCombined)
		if err := p.config.updateChecksums(sub); err != nil {
			return nil, fmt.Errorf("module %d: %w", i, err)
		}
	}
	return out, nil
}

// SplitCombinedModules slices a combined buffer back into its modules. Each
// module is sliced at its declared length and COMBINED is cleared, with the
// checksums recomputed unless disabled by option. A buffer holding a single
// uncombined module yields that module.
func SplitCombinedModules(buf []byte, opts ...Option) ([][]byte, error) {
	p := NewParser(opts...)

	var modules [][]byte
	for off := 0; off < len(buf); {
		info, err := p.ParseBuffer(buf[off:])
		if err != nil {
			return nil, fmt.Errorf("module at offset %d: %w", off, err)
		}
		m := append([]byte(nil), buf[off:off+info.Length]...)
		if info.Prefix.Flags.Has(FlagCombined) {
			putFlags(m, info.Prefix.Offset, info.Prefix.Flags&^FlagCombined)
			if err := p.config.updateChecksums(m); err != nil {
				return nil, fmt.Errorf("module at offset %d: %w", off, err)
			}
		}
		modules = append(modules, m)
		off += info.Length
	}
	return modules, nil
}
