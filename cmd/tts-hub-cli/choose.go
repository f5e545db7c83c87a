package main

import (
	"bufio"
	"fmt"
	"os"
	"sort"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/Astrocyte74/tts-hub/internal/favorites"
)

var (
	chooseEngine   string
	chooseTag      string
	chooseText     string
	chooseDownload string
	choosePlay     bool
)

var chooseCmd = &cobra.Command{
	Use:   "choose",
	Short: "Interactively pick a favorite and synthesise",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runChoose(bufio.NewReader(os.Stdin), chooseEngine, chooseTag, chooseText, chooseDownload, choosePlay)
	},
}

func init() {
	rootCmd.AddCommand(chooseCmd)
	chooseCmd.Flags().StringVar(&chooseEngine, "engine", "", "filter by engine id")
	chooseCmd.Flags().StringVar(&chooseTag, "tag", "", "filter by tag")
	chooseCmd.Flags().StringVar(&chooseText, "text", "", "text to synthesise (prompted if omitted)")
	chooseCmd.Flags().StringVar(&chooseDownload, "download", "", "save audio to path (or folder/)")
	chooseCmd.Flags().BoolVar(&choosePlay, "play", false, "attempt to play audio (macOS afplay)")
}

func runChoose(r *bufio.Reader, engine, tag, text, download string, play bool) error {
	profiles, _, err := fetchFavorites(engine, tag)
	if err != nil {
		return err
	}
	if len(profiles) == 0 {
		fmt.Println("No favorites match current filters.")
		return nil
	}
	sort.Slice(profiles, func(i, j int) bool {
		return labelOf(profiles[i]) < labelOf(profiles[j])
	})
	printFavorites(profiles)

	raw := readLine(r, "Select favorite #: ")
	idx, err := strconv.Atoi(raw)
	if err != nil || idx < 1 || idx > len(profiles) {
		fmt.Println("Out of range.")
		return nil
	}
	chosen := profiles[idx-1]

	if text == "" {
		text = readLine(r, "Enter text to synthesise: ")
	}
	if text == "" {
		fmt.Println("No text provided.")
		return nil
	}

	resp, err := synthesizeByFavorite(text, chosen.Slug, "")
	if err != nil {
		return err
	}
	return handleSynthResponse(resp, download, play)
}

func labelOf(p favorites.Profile) string {
	if p.Label != "" {
		return p.Label
	}
	if p.Slug != "" {
		return p.Slug
	}
	return p.ID
}
