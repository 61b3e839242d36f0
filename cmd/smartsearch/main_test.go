// Copyright Open Responses Gateway Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"

	"github.com/leseb/smartsearch-gw/pkg/core/errdefs"
	"github.com/leseb/smartsearch-gw/pkg/core/schema"
)

func newAskCmd(t *testing.T, flags map[string]string) *cobra.Command {
	t.Helper()
	cmd := &cobra.Command{}
	addAskFlags(cmd)
	for name, value := range flags {
		if err := cmd.Flags().Set(name, value); err != nil {
			t.Fatalf("set %s: %v", name, err)
		}
	}
	return cmd
}

func TestAskRequest(t *testing.T) {
	cmd := newAskCmd(t, map[string]string{"engine": "BING", "provider": "qwen", "model": "qwen-max"})

	req, err := askRequest(cmd, []string{"capital", "of", "France"})
	if err != nil {
		t.Fatalf("askRequest: %v", err)
	}
	if req.Query != "capital of France" {
		t.Errorf("Query = %q, want %q", req.Query, "capital of France")
	}
	if req.SearchEngine != "bing" || req.LLMProvider != "qwen" || req.LLMModel != "qwen-max" {
		t.Errorf("unexpected request %+v", req)
	}
}

func TestAskRequest_Invalid(t *testing.T) {
	cmd := newAskCmd(t, map[string]string{"provider": "claude"})

	_, err := askRequest(cmd, []string{"q"})
	if !errdefs.IsKind(err, errdefs.KindValidation) {
		t.Fatalf("err = %v, want validation error", err)
	}
	if err.Error() != "LLM provider must be openai or qwen" {
		t.Errorf("message = %q", err.Error())
	}
}

func TestPrintAnswer(t *testing.T) {
	var buf bytes.Buffer
	printAnswer(&buf, &schema.SearchResponse{
		Answer:  "Paris [Source 1].",
		Sources: []string{"https://a.example", "https://b.example"},
		Metadata: schema.Metadata{
			SearchEngine: "google", LLMProvider: "openai", LLMModel: "gpt-4o-mini",
			ResultsFound: 2, ProcessingTimeMS: 42,
		},
	})

	out := buf.String()
	for _, want := range []string{
		"Paris [Source 1].",
		"  [1] https://a.example",
		"  [2] https://b.example",
		"2 results via google, answered by openai (gpt-4o-mini) in 42ms",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestPrintAnswer_NoSources(t *testing.T) {
	var buf bytes.Buffer
	printAnswer(&buf, &schema.SearchResponse{Answer: "Sorry."})
	if strings.Contains(buf.String(), "Sources:") {
		t.Errorf("unexpected sources section:\n%s", buf.String())
	}
}

func configCmdWith(t *testing.T, defaultPath, explicit string) *cobra.Command {
	t.Helper()
	cmd := &cobra.Command{}
	cmd.Flags().String("config", defaultPath, "")
	if explicit != "" {
		if err := cmd.Flags().Set("config", explicit); err != nil {
			t.Fatal(err)
		}
	}
	return cmd
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	missing := filepath.Join(dir, "config.yaml")
	broken := filepath.Join(dir, "broken.yaml")
	if err := os.WriteFile(broken, []byte("server: [unterminated"), 0o600); err != nil {
		t.Fatal(err)
	}

	if _, err := loadConfig(configCmdWith(t, missing, "")); err != nil {
		t.Errorf("missing default file should fall back, got %v", err)
	}
	if _, err := loadConfig(configCmdWith(t, "config.yaml", missing)); err == nil {
		t.Error("explicit missing file should fail")
	}
	if _, err := loadConfig(configCmdWith(t, broken, "")); err == nil {
		t.Error("broken default file should fail, not fall back")
	}
}
