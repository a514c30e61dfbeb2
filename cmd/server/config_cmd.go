package main

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/yourusername/relaygate/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective configuration",
	Long:  "Print every configuration key with its effective value and the environment variable that overrides it.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), renderSettings(cfg.Settings()))
		return nil
	},
}

func renderSettings(settings []config.Setting) string {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"Key", "Value", "Env"})
	for _, s := range settings {
		t.AppendRow(table.Row{s.Key, s.Value, s.Env})
	}
	return t.Render()
}
