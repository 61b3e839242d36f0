// Copyright Open Responses Gateway Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/leseb/smartsearch-gw/pkg/core/engine"
	"github.com/leseb/smartsearch-gw/pkg/core/schema"
	"github.com/leseb/smartsearch-gw/pkg/observability/logging"
)

var askCmd = &cobra.Command{
	Use:   "ask <query...>",
	Short: "Answer a question from live search results",
	Long:  `Fetch search results for the query, then print an LLM answer citing them as [Source N].`,
	Args:  cobra.MinimumNArgs(1),
	RunE:  runAsk,
}

func init() {
	addAskFlags(askCmd)
}

func addAskFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("engine", "e", schema.DefaultSearchEngine, "Search engine: google or bing")
	cmd.Flags().StringP("provider", "p", schema.DefaultLLMProvider, "LLM provider: openai or qwen")
	cmd.Flags().StringP("model", "m", "", "LLM model (default: provider default)")
	cmd.Flags().String("llm-api-key", "", "LLM API key (default: server key from config)")
	cmd.Flags().String("search-api-key", "", "SearchCans API key (default: server key from config)")
	cmd.Flags().Bool("json", false, "Print the full JSON response")
}

func runAsk(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	req, err := askRequest(cmd, args)
	if err != nil {
		return err
	}

	level := "warn"
	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		level = "debug"
	}
	logger := logging.New(logging.Config{Level: level, Format: "text", Output: os.Stderr})

	eng, err := engine.FromConfig(cfg, logger.Logger, nil)
	if err != nil {
		return err
	}

	resp, err := eng.Search(cmd.Context(), req)
	if err != nil {
		return err
	}

	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(resp)
	}
	printAnswer(cmd.OutOrStdout(), resp)
	return nil
}

// askRequest builds and validates the request the HTTP API would receive.
func askRequest(cmd *cobra.Command, args []string) (*schema.SearchRequest, error) {
	req := schema.NewSearchRequest()
	req.Query = strings.Join(args, " ")
	req.SearchEngine, _ = cmd.Flags().GetString("engine")
	req.LLMProvider, _ = cmd.Flags().GetString("provider")
	req.LLMModel, _ = cmd.Flags().GetString("model")
	req.LLMAPIKey, _ = cmd.Flags().GetString("llm-api-key")
	req.SearchCansAPIKey, _ = cmd.Flags().GetString("search-api-key")

	if err := req.Validate(); err != nil {
		return nil, err
	}
	return req, nil
}

func printAnswer(w io.Writer, resp *schema.SearchResponse) {
	fmt.Fprintln(w, resp.Answer)

	if len(resp.Sources) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Sources:")
		for i, src := range resp.Sources {
			fmt.Fprintf(w, "  [%d] %s\n", i+1, src)
		}
	}

	md := resp.Metadata
	fmt.Fprintf(w, "\n%d results via %s, answered by %s", md.ResultsFound, md.SearchEngine, md.LLMProvider)
	if md.LLMModel != "" {
		fmt.Fprintf(w, " (%s)", md.LLMModel)
	}
	fmt.Fprintf(w, " in %dms\n", md.ProcessingTimeMS)
}
