package httpapi

import (
	"path/filepath"
	"strings"
)

// toAudioURL rewrites an absolute filesystem path rooted at outputDir into
// the "/audio/<relative>" URL the static file namespace serves it at.
func toAudioURL(outputDir, path string) string {
	rel, err := filepath.Rel(outputDir, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return "/audio/" + filepath.Base(path)
	}
	return "/audio/" + filepath.ToSlash(rel)
}

// toImageURL rewrites an absolute filesystem path rooted at imageDir into
// the "/image/drawthings/<relative>" URL the static file namespace serves
// it at.
func toImageURL(imageDir, path string) string {
	rel, err := filepath.Rel(imageDir, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return "/image/drawthings/" + filepath.Base(path)
	}
	return "/image/drawthings/" + filepath.ToSlash(rel)
}
