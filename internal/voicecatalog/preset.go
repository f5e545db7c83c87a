package voicecatalog

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Preset is one dialogue-engine speaker preset: either a structured entry
// (loaded from a .json sidecar) or a bare speaker string (loaded from a
// .txt file, one preset per file).
type Preset struct {
	ID      string `json:"id"`
	Label   string `json:"label"`
	Speaker string `json:"speaker"`
}

// randomSpeakerPreset is appended whenever the dialogue backend is
// available, regardless of what is on disk, so clients always have a
// no-commitment option.
var randomSpeakerPreset = Preset{ID: "__random__", Label: "Random speaker", Speaker: ""}

// LoadPresets enumerates dialogue presets under dir: ".json" files are
// parsed as {"label": ..., "speaker": ...}; ".txt" files hold a bare
// speaker string and take their id/label from the filename stem.
func LoadPresets(dir string, backendAvailable bool) ([]Preset, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return presetsWithRandom(nil, backendAvailable), nil
		}
		return nil, fmt.Errorf("voicecatalog: read preset dir %q: %w", dir, err)
	}

	var presets []Preset
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		path := filepath.Join(dir, e.Name())
		stem := fileStem(e.Name())

		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".json":
			preset, err := loadJSONPreset(path, stem)
			if err != nil {
				continue // malformed sidecar is recovered from locally
			}
			presets = append(presets, preset)
		case ".txt":
			speaker, err := os.ReadFile(path)
			if err != nil {
				continue
			}
			presets = append(presets, Preset{
				ID:      stem,
				Label:   stem,
				Speaker: strings.TrimSpace(string(speaker)),
			})
		}
	}

	sort.Slice(presets, func(i, j int) bool { return presets[i].ID < presets[j].ID })
	return presetsWithRandom(presets, backendAvailable), nil
}

func loadJSONPreset(path, stem string) (Preset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Preset{}, err
	}
	var body struct {
		Label   string `json:"label"`
		Speaker string `json:"speaker"`
	}
	if err := json.Unmarshal(data, &body); err != nil {
		return Preset{}, err
	}
	preset := Preset{ID: stem, Label: body.Label, Speaker: body.Speaker}
	if preset.Label == "" {
		preset.Label = stem
	}
	return preset, nil
}

func presetsWithRandom(presets []Preset, backendAvailable bool) []Preset {
	if !backendAvailable {
		return presets
	}
	return append(presets, randomSpeakerPreset)
}
