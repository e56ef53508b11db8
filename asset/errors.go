package asset

import (
	"errors"
	"fmt"
)

var (
	// ErrNotAsset indicates the module function is not ASSET
	ErrNotAsset = errors.New("module is not an asset")

	// ErrMissingHash indicates an asset module without a HASH extension
	ErrMissingHash = errors.New("asset module has no hash")

	// ErrHashMismatch indicates the asset contents do not match the recorded hash
	ErrHashMismatch = errors.New("asset hash mismatch")

	// ErrUnrecognizedHashType indicates a hash type other than SHA-256
	ErrUnrecognizedHashType = errors.New("unrecognized hash type")

	// ErrUnknownPlatform indicates the module targets a platform missing from the table
	ErrUnknownPlatform = errors.New("unknown platform")

	// ErrAssetsUnsupported indicates assets were given for a platform without asset storage
	ErrAssetsUnsupported = errors.New("platform does not support assets")

	// ErrInvalidBundle indicates a bundle archive without exactly one application
	ErrInvalidBundle = errors.New("invalid asset bundle")
)

// LimitKind identifies which platform size limit was exceeded.
type LimitKind int

const (
	// LimitSingleAsset is the per-asset size limit
	LimitSingleAsset LimitKind = iota

	// LimitTotalAssets is the limit on the combined size of all assets
	LimitTotalAssets

	// LimitModuleSize is the limit on the resulting application module
	LimitModuleSize
)

func (k LimitKind) String() string {
	switch k {
	case LimitSingleAsset:
		return "single asset"
	case LimitTotalAssets:
		return "total assets"
	case LimitModuleSize:
		return "module size"
	default:
		return fmt.Sprintf("limit(%d)", int(k))
	}
}

// AssetLimitError indicates a platform size limit was exceeded.
type AssetLimitError struct {
	Kind LimitKind

	// Name is the offending asset for LimitSingleAsset, empty otherwise
	Name string

	Size  int
	Limit int
}

func (e *AssetLimitError) Error() string {
	switch e.Kind {
	case LimitSingleAsset:
		return fmt.Sprintf("asset %q is %d bytes, platform limit is %d", e.Name, e.Size, e.Limit)
	case LimitTotalAssets:
		return fmt.Sprintf("assets total %d bytes, platform limit is %d", e.Size, e.Limit)
	default:
		return fmt.Sprintf("application module with assets is %d bytes, platform limit is %d", e.Size, e.Limit)
	}
}
