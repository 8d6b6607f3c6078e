package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"grimvault/internal/config"
	"grimvault/internal/metrics"
	"grimvault/internal/pricecheck"
)

// PriceCheckResult is the output of `pricecheck`.
type PriceCheckResult struct {
	Text     string         `yaml:"text"             json:"text"`
	API      string         `yaml:"api"              json:"api"`
	Found    bool           `yaml:"found"            json:"found"`
	Duration string         `yaml:"duration"         json:"duration"`
	Result   map[string]any `yaml:"result,omitempty" json:"result,omitempty"`
}

var priceCheckCmd = &cobra.Command{
	Use:   "pricecheck",
	Short: "Look up tooltip text against the price-check service",
	Long:  "Send one lookup to the price-check service, bypassing the cache, and print the response body.",
	RunE:  runPriceCheck,
}

func init() {
	rootCmd.AddCommand(priceCheckCmd)
	priceCheckCmd.Flags().String("text", "", "Tooltip text to look up (required)")
	priceCheckCmd.Flags().String("api", "", "Service base URL (default: GRIMVAULT_API_URL or the production API)")
	priceCheckCmd.Flags().Duration("timeout", 15*time.Second, "Request timeout")
}

func runPriceCheck(cmd *cobra.Command, args []string) error {
	text, _ := cmd.Flags().GetString("text")
	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("specify --text")
	}

	logger, err := newLogger(cmd)
	if err != nil {
		return err
	}
	defer logger.Sync()

	api, _ := cmd.Flags().GetString("api")
	if api == "" {
		rt, err := config.LoadRuntime()
		if err != nil {
			return err
		}
		api = rt.API()
	}
	timeout, _ := cmd.Flags().GetDuration("timeout")

	opts := pricecheck.DefaultOptions(api)
	opts.Version = config.Version
	opts.InstallID = "grimvaultctl"
	opts.Timeout = timeout
	opts.RateLimit = 0
	client := pricecheck.New(opts, metrics.New(), logger)

	start := time.Now()
	result, err := client.Fetch(cmd.Context(), text)
	if err != nil && !errors.Is(err, pricecheck.ErrNoResult) {
		return err
	}

	return printResult(cmd, PriceCheckResult{
		Text:     text,
		API:      api,
		Found:    result != nil,
		Duration: time.Since(start).Round(time.Millisecond).String(),
		Result:   result,
	})
}
