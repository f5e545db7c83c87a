package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Astrocyte74/tts-hub/internal/execrunner"
)

var (
	synthSlug     string
	synthID       string
	synthText     string
	synthDownload string
	synthPlay     bool
)

var synthCmd = &cobra.Command{
	Use:   "synth",
	Short: "Synthesise by favorite slug or id",
	RunE: func(cmd *cobra.Command, args []string) error {
		if synthSlug == "" && synthID == "" {
			return fmt.Errorf("provide --slug or --id")
		}
		text := synthText
		if text == "" {
			data, _ := io.ReadAll(os.Stdin)
			text = strings.TrimSpace(string(data))
		}
		if text == "" {
			return fmt.Errorf("provide --text or pipe text on stdin")
		}
		resp, err := synthesizeByFavorite(text, synthSlug, synthID)
		if err != nil {
			return err
		}
		return handleSynthResponse(resp, synthDownload, synthPlay)
	},
}

func init() {
	rootCmd.AddCommand(synthCmd)
	synthCmd.Flags().StringVar(&synthSlug, "slug", "", "favorite slug")
	synthCmd.Flags().StringVar(&synthID, "id", "", "favorite id")
	synthCmd.Flags().StringVar(&synthText, "text", "", "text to synthesise (or pipe on stdin)")
	synthCmd.Flags().StringVar(&synthDownload, "download", "", "save audio to path (or folder/)")
	synthCmd.Flags().BoolVar(&synthPlay, "play", false, "attempt to play audio (macOS afplay)")
}

func synthesizeByFavorite(text, slug, id string) (map[string]any, error) {
	body := map[string]any{"text": text}
	if slug != "" {
		body["favoriteSlug"] = slug
	}
	if id != "" {
		body["favoriteId"] = id
	}
	var result map[string]any
	resp, err := client.R().SetBody(body).SetResult(&result).Post("/synthesise")
	if err != nil {
		return nil, fmt.Errorf("synthesise: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("synthesise: HTTP %d: %s", resp.StatusCode(), resp.String())
	}
	return result, nil
}

func handleSynthResponse(resp map[string]any, download string, play bool) error {
	url := extractAudioURL(resp)
	if url == "" {
		return fmt.Errorf("no audio URL/path found in response: %v", resp)
	}
	resolved := resolveAudioURL(url)
	fmt.Printf("Audio: %s\n", resolved)
	if download == "" {
		return nil
	}
	target := download
	if strings.HasSuffix(target, "/") {
		filename, _ := resp["filename"].(string)
		if filename == "" {
			filename = filepath.Base(url)
		}
		target = filepath.Join(target, filename)
	}
	saved, err := downloadAudio(resolved, target)
	if err != nil {
		return err
	}
	fmt.Printf("Saved: %s\n", saved)
	if play {
		maybePlay(saved)
	}
	return nil
}

func downloadAudio(url, outPath string) (string, error) {
	resp, err := client.R().Get(url)
	if err != nil {
		return "", fmt.Errorf("download audio: %w", err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("download audio: HTTP %d", resp.StatusCode())
	}
	if dir := filepath.Dir(outPath); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", err
		}
	}
	if err := os.WriteFile(outPath, resp.Body(), 0o644); err != nil {
		return "", err
	}
	abs, err := filepath.Abs(outPath)
	if err != nil {
		return outPath, nil
	}
	return abs, nil
}

// maybePlay shells out to afplay when present, mirroring the reference
// CLI's macOS-only playback convenience. Silently does nothing elsewhere.
func maybePlay(path string) {
	if !execrunner.Lookup("afplay") {
		return
	}
	_, _ = execrunner.Run(context.Background(), execrunner.Spec{Command: "afplay", Args: []string{path}})
}

func readLine(r *bufio.Reader, prompt string) string {
	fmt.Print(prompt)
	line, err := r.ReadString('\n')
	if err != nil {
		return ""
	}
	return strings.TrimSpace(line)
}
