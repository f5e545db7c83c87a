package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Astrocyte74/tts-hub/internal/favorites"
)

var (
	listEngine string
	listTag    string
	listJSON   bool
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List favorites",
	RunE: func(cmd *cobra.Command, args []string) error {
		profiles, raw, err := fetchFavorites(listEngine, listTag)
		if err != nil {
			return err
		}
		if listJSON {
			out, err := json.MarshalIndent(raw, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(out))
			return nil
		}
		printFavorites(profiles)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(listCmd)
	listCmd.Flags().StringVar(&listEngine, "engine", "", "filter by engine id")
	listCmd.Flags().StringVar(&listTag, "tag", "", "filter by tag")
	listCmd.Flags().BoolVar(&listJSON, "json", false, "print raw JSON")
}

func fetchFavorites(engine, tag string) ([]favorites.Profile, map[string]any, error) {
	req := client.R().SetResult(&favoritesListResponse{})
	if engine != "" {
		req.SetQueryParam("engine", engine)
	}
	if tag != "" {
		req.SetQueryParam("tag", tag)
	}
	resp, err := req.Get("/favorites")
	if err != nil {
		return nil, nil, fmt.Errorf("list favorites: %w", err)
	}
	if resp.IsError() {
		return nil, nil, fmt.Errorf("list favorites: HTTP %d: %s", resp.StatusCode(), resp.String())
	}
	result := resp.Result().(*favoritesListResponse)
	raw := map[string]any{"profiles": result.Profiles, "count": result.Count}
	return result.Profiles, raw, nil
}

type favoritesListResponse struct {
	Profiles []favorites.Profile `json:"profiles"`
	Count    int                 `json:"count"`
}

func printFavorites(profiles []favorites.Profile) {
	if len(profiles) == 0 {
		fmt.Println("No favorites found.")
		return
	}
	for i, p := range profiles {
		label := p.Label
		if label == "" {
			label = p.Slug
		}
		if label == "" {
			label = p.ID
		}
		fmt.Printf("%2d. %s  [%s · %s]  slug=%s  tags=%s\n",
			i+1, label, p.Engine, p.VoiceID, p.Slug, strings.Join(p.Tags, ","))
	}
}
