package httpapi

import (
	"math/rand"
	"net/http"
	"sort"
)

// randomSnippets mirrors the distilled service's local fallback text bank,
// keyed by tone category; "any" is the default and the fallback when an
// unknown category is requested.
var randomSnippets = map[string][]string{
	"any": {
		"Welcome to the studio. Generate speech clips, audition voices, and tweak the pacing to fit your project.",
		"Testing, one two three. Synthetic voices can be astonishingly crisp when tuned properly.",
	},
	"narration": {
		"In the stillness between the trees, a quiet melody carried the promise of the coming dawn.",
		"The crew had rehearsed for months, but nothing prepared them for the thrill of opening night.",
	},
	"promo": {
		"Upgrade your workflow today. Faster rendering, smarter presets, limitless creativity.",
		"Your story deserves a captivating voice. Launch the studio and discover the perfect tone in seconds.",
	},
	"dialogue": {
		"I can't believe it worked. All those late nights finally paid off.",
		"You really think this voice will convince them? Trust me, it's the right choice.",
	},
	"news": {
		"Local engineers today unveiled a breakthrough text-to-speech model designed for studio quality voiceovers.",
		"In technology headlines, developers are embracing on-device speech synthesis for privacy-conscious products.",
	},
	"story": {
		"Beneath the shifting aurora, the explorers found a hidden city pulsing with ancient light.",
		"Every legend begins with a single voice daring to speak the impossible aloud.",
	},
	"whimsy": {
		"Some voices sparkle like stardust; others hum like a cup of tea on a rainy afternoon.",
		"This sentence serves no purpose except to make the waveform wiggle in a delightful way.",
	},
}

var randomCategories = sortedKeys(randomSnippets)

func sortedKeys(m map[string][]string) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// handleRandomText implements GET /random_text?category=: a local snippet,
// falling back to "any" for an unrecognized category. LLM generation via
// Ollama is left to the client's own /ollama/generate call rather than
// duplicated here, since the category prompt-templating belongs to the
// caller that actually wants one particular tone.
func (r *Router) handleRandomText(w http.ResponseWriter, req *http.Request) {
	category := req.URL.Query().Get("category")
	if category == "" {
		category = "any"
	}
	snippets, ok := randomSnippets[category]
	if !ok {
		category = "any"
		snippets = randomSnippets["any"]
	}
	text := snippets[rand.Intn(len(snippets))]
	writeJSON(w, http.StatusOK, map[string]any{
		"text":       text,
		"source":     "local",
		"category":   category,
		"categories": randomCategories,
	})
}

// handleOllamaModels implements GET /ollama_models: model inventory.
func (r *Router) handleOllamaModels(w http.ResponseWriter, req *http.Request) {
	if r.ollama == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{"models": []string{}, "available": false})
		return
	}
	var payload struct {
		Models []struct {
			Name string `json:"name"`
		} `json:"models"`
	}
	resp, err := r.ollama.R().SetContext(req.Context()).SetResult(&payload).Get("/api/tags")
	if err != nil || resp.StatusCode() != http.StatusOK {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{"models": []string{}, "available": false, "url": r.cfg.OllamaBaseURL})
		return
	}
	names := make([]string, len(payload.Models))
	for i, m := range payload.Models {
		names[i] = m.Name
	}
	writeJSON(w, http.StatusOK, map[string]any{"models": names, "available": len(names) > 0, "url": r.cfg.OllamaBaseURL})
}

// engineMeta is one entry of /meta's "engines" array.
type engineMeta struct {
	ID            string         `json:"id"`
	Available     bool           `json:"available"`
	RequiresVoice bool           `json:"requiresVoice"`
	Defaults      map[string]any `json:"defaults"`
}

// handleMeta implements GET /meta: a capability snapshot.
func (r *Router) handleMeta(w http.ResponseWriter, req *http.Request) {
	ids := r.cfg.Engines.IDs()
	engines := make([]engineMeta, 0, len(ids))
	voiceCount := 0
	var accentGroups any

	for _, id := range ids {
		backend, err := r.cfg.Engines.Backend(id)
		if err != nil {
			continue
		}
		engines = append(engines, engineMeta{
			ID:            id,
			Available:     backend.Available(req.Context()),
			RequiresVoice: backend.RequiresVoice(),
			Defaults:      backend.Defaults(),
		})
		if catalog, err := r.cfg.Engines.FetchVoices(req.Context(), id); err == nil {
			voiceCount += catalog.Count
			if id == firstOrEmpty(ids) {
				accentGroups = catalog.AccentGroups
			}
		}
	}

	ollamaAvailable := false
	if r.ollama != nil {
		resp, err := r.ollama.R().SetContext(req.Context()).Get("/api/tags")
		ollamaAvailable = err == nil && resp.StatusCode() == http.StatusOK
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"api_prefix":        r.cfg.APIPrefix,
		"random_categories": randomCategories,
		"accent_groups":     accentGroups,
		"voice_count":       voiceCount,
		"ollama_available":  ollamaAvailable,
		"engines":           engines,
		"default_engine":    firstOrEmpty(ids),
	})
}
