package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var exportOut string

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export favorites as JSON",
	RunE: func(cmd *cobra.Command, args []string) error {
		payload, err := exportFavorites()
		if err != nil {
			return err
		}
		out, err := json.MarshalIndent(payload, "", "  ")
		if err != nil {
			return err
		}
		if exportOut == "" {
			fmt.Println(string(out))
			return nil
		}
		if err := os.WriteFile(exportOut, out, 0o644); err != nil {
			return err
		}
		fmt.Printf("Wrote %s\n", exportOut)
		return nil
	},
}

var importMode string

var importCmd = &cobra.Command{
	Use:   "import <path>",
	Short: "Import favorites from a JSON file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		var payload map[string]any
		if err := json.Unmarshal(data, &payload); err != nil {
			return fmt.Errorf("parse %s: %w", args[0], err)
		}
		result, err := importFavorites(payload, importMode)
		if err != nil {
			return err
		}
		out, _ := json.MarshalIndent(result, "", "  ")
		fmt.Println(string(out))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(exportCmd)
	exportCmd.Flags().StringVar(&exportOut, "out", "", "write to file (defaults to stdout)")

	rootCmd.AddCommand(importCmd)
	importCmd.Flags().StringVar(&importMode, "mode", "merge", "merge or replace")
}

func exportFavorites() (map[string]any, error) {
	var result map[string]any
	resp, err := client.R().SetResult(&result).Get("/favorites/export")
	if err != nil {
		return nil, fmt.Errorf("export favorites: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("export favorites: HTTP %d: %s", resp.StatusCode(), resp.String())
	}
	return result, nil
}

func importFavorites(payload map[string]any, mode string) (map[string]any, error) {
	body := map[string]any{}
	for k, v := range payload {
		body[k] = v
	}
	if _, ok := body["mode"]; !ok {
		body["mode"] = mode
	}
	var result map[string]any
	resp, err := client.R().SetBody(body).SetResult(&result).Post("/favorites/import")
	if err != nil {
		return nil, fmt.Errorf("import favorites: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("import favorites: HTTP %d: %s", resp.StatusCode(), resp.String())
	}
	return result, nil
}
