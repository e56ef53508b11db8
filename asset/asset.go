// Package asset wraps arbitrary files as firmware modules, attaches them to
// application modules as ASSET_DEPENDENCY records and packages an
// application with its assets into a bundle archive.
//
// # Asset Modules
//
// An asset module has function ASSET, start address 0 and the
// DROP_MODULE_INFO flag. Its payload is the asset data, deflated by default,
// and its suffix carries the SHA-256 of the original data (HASH) and the
// asset name (NAME):
//
//	buf, err := asset.CreateAssetModule(data, "logo.png")
//	orig, err := asset.UnwrapAssetModule(buf)
//
// # Application Dependencies
//
// UpdateModuleAssetDependencies rewrites the suffix of an application
// module so it references each asset by name and hash. The module grows by
// the size of the new records, in the direction the platform table gives
// for the module platform, and the platform size limits are enforced with
// AssetLimitError.
package asset

import (
	"bytes"
	"fmt"
	"path/filepath"

	"github.com/spf13/afero"

	"github.com/moffa90/go-modbin/checksum"
	"github.com/moffa90/go-modbin/module"
)

// File is a named blob given either inline or by path.
type File struct {
	// Name is the file name; defaults to the base of Path
	Name string `json:"name"`

	// Data is the file contents; when nil, Path is read
	Data []byte `json:"-"`

	// Path is read through the configured filesystem when Data is nil
	Path string `json:"path,omitempty"`
}

// load returns a File with Data and Name filled in.
func (f File) load(fs afero.Fs) (File, error) {
	out := f
	if out.Name == "" && out.Path != "" {
		out.Name = filepath.Base(out.Path)
	}
	if out.Data == nil && out.Path != "" {
		data, err := afero.ReadFile(fs, out.Path)
		if err != nil {
			return File{}, fmt.Errorf("failed to read %s: %w", out.Path, err)
		}
		out.Data = data
	}
	if out.Name == "" {
		return File{}, fmt.Errorf("file has no name")
	}
	return out, nil
}

func loadFiles(fs afero.Fs, files []File) ([]File, error) {
	out := make([]File, 0, len(files))
	for _, f := range files {
		lf, err := f.load(fs)
		if err != nil {
			return nil, err
		}
		out = append(out, lf)
	}
	return out, nil
}

// CreateAssetModule wraps data as an asset module named name.
func CreateAssetModule(data []byte, name string, opts ...Option) ([]byte, error) {
	cfg := newConfig(opts)
	buf, err := module.Assemble(module.Parts{
		Prefix: module.Prefix{
			Flags:    module.FlagDropModuleInfo,
			Function: module.FunctionAsset,
		},
		Payload: data,
		Suffix: module.Suffix{
			Extensions: []module.Extension{
				module.Hash{HashType: module.HashSHA256, Hash: checksum.SHA256(data)},
				module.Name{Name: name},
			},
		},
	}, cfg.ModuleOptions...)
	if err != nil {
		return nil, fmt.Errorf("failed to build asset module: %w", err)
	}

	if !cfg.Compress {
		return buf, nil
	}
	return module.CompressModule(buf, cfg.ModuleOptions...)
}

// ReadAssetModule unwraps an asset module and returns its name and original
// contents. The contents are checked against the HASH extension.
func ReadAssetModule(buf []byte, opts ...Option) (*File, error) {
	cfg := newConfig(opts)

	info, err := module.ParseBuffer(buf, cfg.ModuleOptions...)
	if err != nil {
		return nil, err
	}
	if info.Prefix.Function != module.FunctionAsset {
		return nil, fmt.Errorf("%w: function is %s", ErrNotAsset, info.Prefix.Function)
	}

	if info.Prefix.Flags.Has(module.FlagCompressed) {
		buf, err = module.DecompressModule(buf, cfg.ModuleOptions...)
		if err != nil {
			return nil, fmt.Errorf("failed to decompress asset: %w", err)
		}
		if info, err = module.ParseBuffer(buf, cfg.ModuleOptions...); err != nil {
			return nil, err
		}
	}

	hash, ok := module.FindExtension[module.Hash](info.Suffix.Extensions)
	if !ok {
		return nil, ErrMissingHash
	}
	name, _ := module.FindExtension[module.Name](info.Suffix.Extensions)
	data := bytes.Clone(info.Payload(buf))

	valid, err := IsAssetValid(data, module.AssetDependency{HashType: hash.HashType, Hash: hash.Hash})
	if err != nil {
		return nil, err
	}
	if !valid {
		return nil, fmt.Errorf("%w: %s", ErrHashMismatch, name.Name)
	}
	return &File{Name: name.Name, Data: data}, nil
}

// UnwrapAssetModule returns the original contents of an asset module.
func UnwrapAssetModule(buf []byte, opts ...Option) ([]byte, error) {
	f, err := ReadAssetModule(buf, opts...)
	if err != nil {
		return nil, err
	}
	return f.Data, nil
}

// IsAssetValid reports whether data matches the hash of dep.
// Returns ErrUnrecognizedHashType for hash types other than SHA-256.
func IsAssetValid(data []byte, dep module.AssetDependency) (bool, error) {
	if dep.HashType != module.HashSHA256 {
		return false, fmt.Errorf("%w: %s", ErrUnrecognizedHashType, dep.HashType)
	}
	return bytes.Equal(checksum.SHA256(data), dep.Hash), nil
}

// Dependency returns the ASSET_DEPENDENCY record that references f.
func (f File) Dependency() module.AssetDependency {
	return module.AssetDependency{HashType: module.HashSHA256, Hash: checksum.SHA256(f.Data), Name: f.Name}
}
