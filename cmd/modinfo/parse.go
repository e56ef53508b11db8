package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/moffa90/go-modbin/module"
	"github.com/moffa90/go-modbin/platform"
)

var parseCmd = &cobra.Command{
	Use:   "parse FILE...",
	Short: "Print the prefix, suffix and checksum status of modules",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p := module.NewParser(cfg.moduleOptions()...)
		platforms, err := cfg.platformTable()
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()

		failed := 0
		for _, path := range args {
			info, err := p.ParseFile(path)
			if err != nil {
				logger.Error("Parse failed", "file", path, "err", err)
				failed++
				continue
			}
			logger.Debug("Parsed module", "file", path, "length", info.Length, "prefixOffset", info.Prefix.Offset)

			if jsonOutput {
				if err := printJSON(out, map[string]any{"file": path, "module": info}); err != nil {
					return err
				}
				continue
			}
			renderInfo(out, platforms, path, info)
		}
		if failed > 0 {
			return fmt.Errorf("%d of %d modules failed to parse", failed, len(args))
		}
		return nil
	},
}

func renderInfo(w io.Writer, platforms *platform.Table, path string, info *module.Info) {
	p, s := info.Prefix, info.Suffix

	var b strings.Builder
	b.WriteString(TitleStyle.Render(path) + "\n")

	platformName := fmt.Sprint(p.PlatformID)
	if plat, ok := platforms.Lookup(p.PlatformID); ok {
		platformName = fmt.Sprintf("%s (%d)", plat.DisplayName, p.PlatformID)
	}
	b.WriteString(field("Platform", platformName))
	b.WriteString(field("Function", fmt.Sprintf("%s, index %d", p.Function, p.Index)))
	b.WriteString(field("Version", p.ModuleVersion))
	b.WriteString(field("Address range", fmt.Sprintf("%s - %s", p.StartAddress, p.EndAddress)))
	b.WriteString(field("Flags", p.Flags))
	for _, d := range info.Requirements() {
		b.WriteString(field("Depends on", fmt.Sprintf("%s, index %d, version %d", d.Function, d.Index, d.Version)))
	}
	if s.ProductID != 0 || s.Legacy {
		b.WriteString(field("Product", fmt.Sprintf("%d version %d", s.ProductID, s.ProductVersion)))
	}
	for _, ext := range append(append([]module.Extension{}, p.Extensions...), s.Extensions...) {
		b.WriteString(field("Extension", describeExtension(ext)))
	}
	b.WriteString(field("Unique ID", s.UniqueID))

	if info.CRC.OK {
		b.WriteString(LabelStyle.Render("CRC") + SuccessStyle.Render(fmt.Sprintf("0x%08X ok", info.CRC.Stored)) + "\n")
	} else {
		b.WriteString(LabelStyle.Render("CRC") + ErrorStyle.Render(
			fmt.Sprintf("mismatch: stored 0x%08X, computed 0x%08X", info.CRC.Stored, info.CRC.Computed)) + "\n")
	}
	fmt.Fprintln(w, b.String())
}

func describeExtension(ext module.Extension) string {
	switch e := ext.(type) {
	case module.Name:
		return fmt.Sprintf("NAME %q", e.Name)
	case module.Hash:
		return fmt.Sprintf("HASH %s %s", e.HashType, e.Hash)
	case module.AssetDependency:
		return fmt.Sprintf("ASSET_DEPENDENCY %q %s %s", e.Name, e.HashType, e.Hash)
	case module.DynamicLocation:
		return fmt.Sprintf("DYNAMIC_LOCATION %s", e.StartAddress)
	default:
		return fmt.Sprintf("%s %+v", ext.Type(), ext)
	}
}
