package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// menuState holds the sticky filters the interactive menu keeps between
// actions, mirroring the reference CLI's module-level menu globals.
type menuState struct {
	engine string
	tag    string
}

var menuCmd = &cobra.Command{
	Use:   "menu",
	Short: "Interactive menu mode",
	RunE: func(cmd *cobra.Command, args []string) error {
		runMenu(bufio.NewReader(os.Stdin))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(menuCmd)
}

func runMenu(r *bufio.Reader) {
	state := &menuState{}
	for {
		engineLabel, tagLabel := "all", "all"
		if state.engine != "" {
			engineLabel = state.engine
		}
		if state.tag != "" {
			tagLabel = state.tag
		}
		fmt.Println()
		fmt.Println("Favorites CLI — Menu")
		fmt.Printf("  Filters → engine: %s · tag: %s\n", engineLabel, tagLabel)
		fmt.Println("  1. List favorites")
		fmt.Println("  2. Choose favorite and synthesise")
		fmt.Println("  3. Change filters")
		fmt.Println("  4. Export favorites")
		fmt.Println("  5. Import favorites")
		fmt.Println("  0. Exit")

		switch readLine(r, "Select: ") {
		case "", "0":
			return
		case "1":
			profiles, _, err := fetchFavorites(state.engine, state.tag)
			if err != nil {
				fmt.Println(err)
				continue
			}
			printFavorites(profiles)
		case "2":
			if err := runChoose(r, state.engine, state.tag, "", "", false); err != nil {
				fmt.Println(err)
			}
		case "3":
			changeFilters(r, state)
		case "4":
			path := readLine(r, "Write export to (favorites.json): ")
			if path == "" {
				path = "favorites.json"
			}
			payload, err := exportFavorites()
			if err != nil {
				fmt.Println(err)
				continue
			}
			out, _ := json.MarshalIndent(payload, "", "  ")
			if err := os.WriteFile(path, out, 0o644); err != nil {
				fmt.Println(err)
				continue
			}
			fmt.Printf("Wrote %s\n", path)
		case "5":
			path := readLine(r, "Import file path: ")
			if path == "" {
				fmt.Println("Cancelled.")
				continue
			}
			mode := readLine(r, "Mode [merge/replace] (merge): ")
			if mode == "" {
				mode = "merge"
			}
			data, err := os.ReadFile(path)
			if err != nil {
				fmt.Println(err)
				continue
			}
			var payload map[string]any
			if err := json.Unmarshal(data, &payload); err != nil {
				fmt.Println(err)
				continue
			}
			result, err := importFavorites(payload, mode)
			if err != nil {
				fmt.Println(err)
				continue
			}
			out, _ := json.MarshalIndent(result, "", "  ")
			fmt.Println(string(out))
		default:
			fmt.Println("Unknown choice.")
		}
	}
}

func changeFilters(r *bufio.Reader, state *menuState) {
	profiles, _, err := fetchFavorites("", "")
	if err != nil {
		fmt.Println(err)
		return
	}
	engines := uniqueSorted(func(yield func(string)) {
		for _, p := range profiles {
			if p.Engine != "" {
				yield(p.Engine)
			}
		}
	})
	tags := uniqueSorted(func(yield func(string)) {
		for _, p := range profiles {
			for _, t := range p.Tags {
				yield(t)
			}
		}
	})

	if len(engines) > 0 {
		if idx := promptChoice(r, "Select engine", append([]string{"all"}, engines...)); idx > 0 {
			state.engine = engines[idx-1]
		} else if idx == 0 {
			state.engine = ""
		}
	}
	if len(tags) > 0 {
		if idx := promptChoice(r, "Select tag", append([]string{"all"}, tags...)); idx > 0 {
			state.tag = tags[idx-1]
		} else if idx == 0 {
			state.tag = ""
		}
	}
}

// promptChoice prints a numbered list and returns the selected index, or
// -1 if the input didn't resolve to one of the options.
func promptChoice(r *bufio.Reader, title string, options []string) int {
	fmt.Println(title)
	for i, opt := range options {
		fmt.Printf("  %d. %s\n", i+1, opt)
	}
	raw := readLine(r, "Select: ")
	var n int
	if _, err := fmt.Sscanf(raw, "%d", &n); err != nil {
		return -1
	}
	if n < 1 || n > len(options) {
		return -1
	}
	return n - 1
}

func uniqueSorted(iterate func(yield func(string))) []string {
	seen := map[string]bool{}
	var out []string
	iterate(func(s string) {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	})
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j-1] > out[j]; j-- {
			out[j-1], out[j] = out[j], out[j-1]
		}
	}
	return out
}
