package main

import (
	"encoding/json"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/kostichs/company-enricher/internal/probe"
	"github.com/kostichs/company-enricher/pkg/scrapingbee"
)

var probeCmd = &cobra.Command{
	Use:   "probe <url>",
	Short: "Check whether a website is alive",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var browser scrapingbee.Client
		if cfg.ScrapingBee.Key != "" {
			browser = scrapingbee.NewClient(cfg.ScrapingBee.Key, scrapingbee.WithBaseURL(cfg.ScrapingBee.BaseURL))
		}
		p := probe.New(
			probe.WithBrowser(browser),
			probe.WithTimeouts(
				time.Duration(cfg.Probe.TimeoutSecs)*time.Second,
				time.Duration(cfg.Probe.ExtendedTimeoutSecs)*time.Second,
			),
		)

		result := p.Probe(cmd.Context(), args[0])

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	},
}

func init() {
	rootCmd.AddCommand(probeCmd)
}
