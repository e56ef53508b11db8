package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/moffa90/go-modbin/platform"
)

var platformsCmd = &cobra.Command{
	Use:   "platforms",
	Short: "List known platforms and their asset limits",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		tbl, err := cfg.platformTable()
		if err != nil {
			return err
		}
		all := tbl.All()
		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), all)
		}
		fmt.Fprint(cmd.OutOrStdout(), renderPlatforms(all))
		return nil
	},
}

var (
	cellStyle   = lipgloss.NewStyle().PaddingRight(2)
	headerStyle = cellStyle.Foreground(ColorPrimary).Bold(true)
)

func renderPlatforms(all []platform.Platform) string {
	header := []string{"ID", "NAME", "MCU", "GROWTH", "MAX MODULE", "MAX ASSET", "MAX ASSETS"}
	rows := [][]string{header}
	for _, p := range all {
		rows = append(rows, []string{
			fmt.Sprint(p.ID),
			p.Name,
			p.MCU,
			string(p.AssetGrowth),
			sizeString(p.MaxModuleSize),
			sizeString(p.MaxAssetSize),
			sizeString(p.MaxTotalAssetsSize),
		})
	}

	widths := make([]int, len(header))
	for _, r := range rows {
		for i, c := range r {
			widths[i] = max(widths[i], lipgloss.Width(c))
		}
	}

	var b strings.Builder
	for n, r := range rows {
		style := cellStyle
		if n == 0 {
			style = headerStyle
		}
		cells := make([]string, len(r))
		for i, c := range r {
			cells[i] = style.Width(widths[i] + 2).Render(c)
		}
		b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, cells...) + "\n")
	}
	return b.String()
}

func sizeString(n int) string {
	switch {
	case n == 0:
		return "-"
	case n%(1<<20) == 0:
		return fmt.Sprintf("%dM", n>>20)
	case n%(1<<10) == 0:
		return fmt.Sprintf("%dK", n>>10)
	default:
		return fmt.Sprint(n)
	}
}
