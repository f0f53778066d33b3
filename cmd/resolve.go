package main

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"github.com/kostichs/company-enricher/internal/model"
)

var resolveSeed string

var resolveCmd = &cobra.Command{
	Use:   "resolve <company name>",
	Short: "Resolve one company to its official website and LinkedIn page",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		e, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer e.Close()

		rec := &model.CompanyRecord{Index: 1, Name: args[0], SeedURL: resolveSeed, Status: model.StatusPending}

		hp := e.resolver.ResolveHomepage(ctx, rec)
		out := struct {
			Name     string                 `json:"name"`
			URL      string                 `json:"url,omitempty"`
			Method   model.ResolutionMethod `json:"method"`
			Live     bool                   `json:"live"`
			FinalURL string                 `json:"final_url,omitempty"`
			Profile  string                 `json:"profile,omitempty"`
		}{Name: rec.Name, URL: hp.URL, Method: hp.Method}

		if hp.URL != "" {
			if hp.Verified {
				out.Live = true
				out.FinalURL = hp.URL
			} else {
				res := e.prober.Probe(ctx, hp.URL)
				out.Live = res.IsLive
				out.FinalURL = res.FinalURL
			}
		}
		if profile, ok := e.resolver.ResolveProfile(ctx, rec.Name); ok {
			out.Profile = profile
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	},
}

func init() {
	resolveCmd.Flags().StringVar(&resolveSeed, "seed", "", "candidate URL to verify before searching")
	rootCmd.AddCommand(resolveCmd)
}
