package main

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"grimvault/internal/config"
	"grimvault/internal/geometry"
	"grimvault/internal/native"
)

// ProbeResult is the output of `window probe`.
type ProbeResult struct {
	ActiveTitle string             `yaml:"active_title,omitempty" json:"active_title,omitempty"`
	ActiveError string             `yaml:"active_error,omitempty" json:"active_error,omitempty"`
	Game        *native.WindowInfo `yaml:"game,omitempty"         json:"game,omitempty"`
	GameError   string             `yaml:"game_error,omitempty"   json:"game_error,omitempty"`
	Physical    *geometry.Rect     `yaml:"physical,omitempty"     json:"physical,omitempty"`
	Relative    *geometry.Rect     `yaml:"relative,omitempty"     json:"relative,omitempty"`
}

var windowCmd = &cobra.Command{
	Use:   "window",
	Short: "Inspect the windows the overlay follows",
}

var windowProbeCmd = &cobra.Command{
	Use:   "probe",
	Short: "Query the active window and the game window once",
	Long:  "Load the native screen module and report the active window title, the game window and the overlay bounds derived from it.",
	RunE:  runWindowProbe,
}

func init() {
	rootCmd.AddCommand(windowCmd)
	windowCmd.AddCommand(windowProbeCmd)
	windowProbeCmd.Flags().String("game-title", "Dark and Darker", "Game window title")
	windowProbeCmd.Flags().String("capture", config.CaptureWGC, "Capture method: wgc, d3d, gdi")
}

func runWindowProbe(cmd *cobra.Command, args []string) error {
	logger, err := newLogger(cmd)
	if err != nil {
		return err
	}
	defer logger.Sync()

	rt, err := config.LoadRuntime()
	if err != nil {
		return err
	}
	exe, err := os.Executable()
	if err != nil {
		return err
	}
	tesseract, detection := rt.ModelPaths(filepath.Dir(exe))

	gameTitle, _ := cmd.Flags().GetString("game-title")
	capture, _ := cmd.Flags().GetString("capture")

	svc := native.New(native.NewPlatformModule(rt.NativeDLL), logger)
	if err := svc.Initialize(native.Options{
		TesseractPath:      tesseract,
		DetectionModelPath: detection,
		CaptureMode:        capture,
		GameTitle:          gameTitle,
	}); err != nil {
		return err
	}

	return printResult(cmd, probe(svc))
}

type windowSensor interface {
	ActiveWindowTitle() (string, error)
	GameWindowInfo() (*native.WindowInfo, error)
}

// probe collects one snapshot of what the tracker would see. Query failures
// are reported in the result rather than aborting.
func probe(sensor windowSensor) ProbeResult {
	var res ProbeResult

	if title, err := sensor.ActiveWindowTitle(); err != nil {
		res.ActiveError = err.Error()
	} else {
		res.ActiveTitle = title
	}

	info, err := sensor.GameWindowInfo()
	if err != nil {
		res.GameError = err.Error()
		return res
	}
	res.Game = info

	resolved := geometry.NewResolver().Resolve(info.Bounds, info.Monitor)
	res.Physical = &resolved.Physical
	res.Relative = &resolved.Relative
	return res
}
