package asset

import (
	"fmt"
	"math"

	"github.com/moffa90/go-modbin/module"
	"github.com/moffa90/go-modbin/platform"
)

// UpdateModuleAssetDependencies returns a copy of the application module app
// whose suffix references each asset through an ASSET_DEPENDENCY record.
// Existing asset records are replaced and legacy product fields are moved to
// a PRODUCT_DATA extension.
//
// The module grows by the size change of its suffix. On platforms that grow
// down the start address and every DYNAMIC_LOCATION extension move down by
// the same amount; on platforms that grow up the end address moves up.
//
// Returns an *AssetLimitError when an asset, the total of all assets or the
// resulting module exceeds a platform limit, and ErrAssetsUnsupported when
// assets are given for a platform without asset storage.
func UpdateModuleAssetDependencies(app []byte, assets []File, opts ...Option) ([]byte, error) {
	cfg := newConfig(opts)

	info, err := module.ParseBuffer(app, cfg.ModuleOptions...)
	if err != nil {
		return nil, err
	}
	plat, ok := cfg.Platforms.Lookup(info.Prefix.PlatformID)
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownPlatform, info.Prefix.PlatformID)
	}

	files, err := loadFiles(cfg.Fs, assets)
	if err != nil {
		return nil, err
	}
	if err := checkAssetLimits(plat, files); err != nil {
		return nil, err
	}

	_, hadAssets := module.FindExtension[module.AssetDependency](info.Suffix.Extensions)
	if len(files) == 0 && !hadAssets {
		return append([]byte(nil), app...), nil
	}

	suffix := info.Suffix.Clone()
	exts := make([]module.Extension, 0, len(suffix.Extensions)+len(files)+1)
	if suffix.Legacy {
		exts = append(exts, module.ProductData{ID: suffix.ProductID, Version: suffix.ProductVersion})
		suffix.Legacy = false
	}
	for _, ext := range suffix.Extensions {
		if _, ok := ext.(module.AssetDependency); !ok {
			exts = append(exts, ext)
		}
	}
	for _, f := range files {
		exts = append(exts, f.Dependency())
	}
	suffix.Extensions = exts

	// DYNAMIC_LOCATION has a fixed size, so the first encoding gives the delta.
	encoded, err := suffix.MarshalBinary()
	if err != nil {
		return nil, err
	}
	delta := int64(len(encoded)) - int64(info.Suffix.Size)

	prefix := *info.Prefix
	switch plat.AssetGrowth {
	case platform.GrowDown:
		start := int64(prefix.StartAddress) - delta
		if start < 0 || start > math.MaxUint32 {
			return nil, fmt.Errorf("%w: start address out of range after growth", module.ErrMalformed)
		}
		prefix.StartAddress = module.Address(start)
		if prefix.Extensions, err = relocate(prefix.Extensions, delta); err != nil {
			return nil, err
		}
		if suffix.Extensions, err = relocate(suffix.Extensions, delta); err != nil {
			return nil, err
		}
		if encoded, err = suffix.MarshalBinary(); err != nil {
			return nil, err
		}
	case platform.GrowUp:
		end := int64(prefix.EndAddress) + delta
		if end < int64(prefix.StartAddress) || end > math.MaxUint32 {
			return nil, fmt.Errorf("%w: end address out of range after growth", module.ErrMalformed)
		}
		prefix.EndAddress = module.Address(end)
	}

	newLen := info.SuffixStart() + len(encoded) + module.CRCSize
	if plat.MaxModuleSize > 0 && newLen > plat.MaxModuleSize {
		return nil, &AssetLimitError{Kind: LimitModuleSize, Size: newLen, Limit: plat.MaxModuleSize}
	}

	out := make([]byte, 0, newLen+len(app)-info.Length)
	out = append(out, app[:info.SuffixStart()]...)
	out = append(out, encoded...)
	out = append(out, make([]byte, module.CRCSize)...)
	if err := module.WritePrefix(out, &prefix); err != nil {
		return nil, err
	}
	if err := module.UpdateChecksums(out, cfg.ModuleOptions...); err != nil {
		return nil, err
	}
	return append(out, app[info.Length:]...), nil
}

func checkAssetLimits(plat platform.Platform, files []File) error {
	if len(files) == 0 {
		return nil
	}
	if !plat.SupportsAssets() {
		return fmt.Errorf("%w: %s", ErrAssetsUnsupported, plat.Name)
	}

	total := 0
	for _, f := range files {
		if len(f.Data) > plat.MaxAssetSize {
			return &AssetLimitError{Kind: LimitSingleAsset, Name: f.Name, Size: len(f.Data), Limit: plat.MaxAssetSize}
		}
		total += len(f.Data)
	}
	if plat.MaxTotalAssetsSize > 0 && total > plat.MaxTotalAssetsSize {
		return &AssetLimitError{Kind: LimitTotalAssets, Size: total, Limit: plat.MaxTotalAssetsSize}
	}
	return nil
}

// relocate returns exts with every DYNAMIC_LOCATION moved down by delta.
func relocate(exts []module.Extension, delta int64) ([]module.Extension, error) {
	out := make([]module.Extension, len(exts))
	for i, ext := range exts {
		if dl, ok := ext.(module.DynamicLocation); ok {
			start := int64(dl.StartAddress) - delta
			if start < 0 || start > math.MaxUint32 {
				return nil, fmt.Errorf("%w: dynamic location %s out of range after growth",
					module.ErrMalformed, dl.StartAddress)
			}
			ext = module.DynamicLocation{StartAddress: module.Address(start)}
		}
		out[i] = ext
	}
	return out, nil
}
