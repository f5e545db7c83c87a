// Command tts-hub-cli is a thin HTTP client for the media studio server's
// favorites + synthesis routes: list, synth, choose, export, import, and an
// interactive menu mode, grounded on the server's own favorites CLI.
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/go-resty/resty/v2"
	"github.com/spf13/cobra"
)

var (
	apiBase string
	apiKey  string
	client  *resty.Client
)

var rootCmd = &cobra.Command{
	Use:   "tts-hub-cli",
	Short: "Command-line client for the tts-hub media studio server",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		client = newClient()
	},
}

func main() {
	if v := os.Getenv("TTSHUB_API_BASE"); v != "" {
		apiBase = v
	} else {
		apiBase = "http://127.0.0.1:7860/api"
	}
	apiKey = os.Getenv("TTSHUB_API_KEY")

	rootCmd.PersistentFlags().StringVar(&apiBase, "api-base", apiBase, "base URL of the tts-hub API")
	rootCmd.PersistentFlags().StringVar(&apiKey, "api-key", apiKey, "bearer token for favorites routes, if the server requires one")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "tts-hub-cli: %v\n", err)
		os.Exit(1)
	}
}

func newClient() *resty.Client {
	c := resty.New().SetBaseURL(strings.TrimRight(apiBase, "/"))
	if apiKey != "" {
		c.SetAuthToken(apiKey)
	}
	return c
}

// resolveAudioURL turns a server-relative audio path into an absolute URL
// against the API base's parent (routes like /audio/... live one level up
// from /api).
func resolveAudioURL(value string) string {
	if value == "" || strings.HasPrefix(value, "http://") || strings.HasPrefix(value, "https://") {
		return value
	}
	base := strings.TrimRight(apiBase, "/")
	base = strings.TrimSuffix(base, "/api")
	return base + "/" + strings.TrimPrefix(value, "/")
}

// extractAudioURL picks the first populated field a synthesis response
// might carry its output location under; the server's JSON shape isn't
// pinned to one key across every route.
func extractAudioURL(resp map[string]any) string {
	for _, key := range []string{"url", "audio_url", "path", "clip", "filename", "file"} {
		if v, ok := resp[key].(string); ok && v != "" {
			return v
		}
	}
	return ""
}
