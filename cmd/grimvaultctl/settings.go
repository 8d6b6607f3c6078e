package main

import (
	"github.com/spf13/cobra"

	"grimvault/internal/config"
)

// SettingsResult is the output of `settings validate`.
type SettingsResult struct {
	Path     string           `yaml:"path"               json:"path"`
	Valid    bool             `yaml:"valid"              json:"valid"`
	Warnings []string         `yaml:"warnings,omitempty" json:"warnings,omitempty"`
	Settings *config.Settings `yaml:"settings"           json:"settings"`
}

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Inspect the settings file",
}

var settingsValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Load settings.toml and report values that fall back to defaults",
	Long:  "Load settings.toml the way the overlay does. A missing file is created with the defaults; invalid values are listed and replaced.",
	RunE:  runSettingsValidate,
}

func init() {
	rootCmd.AddCommand(settingsCmd)
	settingsCmd.AddCommand(settingsValidateCmd)
	settingsValidateCmd.Flags().String("dir", "", "Config directory (default: <UserConfigDir>/GrimVault)")
}

func runSettingsValidate(cmd *cobra.Command, args []string) error {
	dir, _ := cmd.Flags().GetString("dir")
	if dir == "" {
		d, err := config.DefaultDir()
		if err != nil {
			return err
		}
		dir = d
	}

	svc, err := config.New(dir)
	if err != nil {
		return err
	}

	return printResult(cmd, SettingsResult{
		Path:     svc.Path(),
		Valid:    len(svc.Warnings()) == 0,
		Warnings: svc.Warnings(),
		Settings: svc.Get(),
	})
}
