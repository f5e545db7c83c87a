package stt

import "sync"

// modelCache is the lazy, language-tag-keyed singleton cache for loaded
// ASR models: "reload per-language alignment model (cache-first)" applies
// equally to the base ASR model.
type modelCache struct {
	mu    sync.Mutex
	byTag map[string]ASRModel
}

func newModelCache() *modelCache {
	return &modelCache{byTag: make(map[string]ASRModel)}
}

// get returns the cached model for tag, loading it on first use. A failed
// load is not cached, so a later call may retry once the underlying
// condition (missing model file, unavailable weights directory) clears.
func (c *modelCache) get(tag string, load ASRLoader) (ASRModel, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if model, ok := c.byTag[tag]; ok {
		return model, nil
	}
	model, err := load(tag)
	if err != nil {
		return nil, err
	}
	c.byTag[tag] = model
	return model, nil
}
