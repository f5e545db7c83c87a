package execrunner

import (
	"os"
	"path/filepath"
	"sort"
)

// Snapshot lists the current set of files in dir matching glob, keyed by
// name, for use with [NewestOrDiff] after a subprocess that writes into its
// own working directory has run.
func Snapshot(dir, glob string) (map[string]struct{}, error) {
	matches, err := filepath.Glob(filepath.Join(dir, glob))
	if err != nil {
		return nil, err
	}
	out := make(map[string]struct{}, len(matches))
	for _, m := range matches {
		out[m] = struct{}{}
	}
	return out, nil
}

// NewestOrDiff implements the dispatcher's file-discovery policy for
// subprocess backends that drop output files into their own working
// directory rather than an explicit path: take the set difference between
// before and an after snapshot of the same glob; if that is empty (the
// subprocess overwrote an existing filename), fall back to the most
// recently modified match in after.
func NewestOrDiff(before, after map[string]struct{}) (string, bool) {
	var fresh []string
	for name := range after {
		if _, existed := before[name]; !existed {
			fresh = append(fresh, name)
		}
	}
	if len(fresh) > 0 {
		sort.Strings(fresh)
		return fresh[len(fresh)-1], true
	}

	var newest string
	var newestMod int64
	for name := range after {
		info, err := os.Stat(name)
		if err != nil {
			continue
		}
		if mt := info.ModTime().UnixNano(); mt > newestMod {
			newestMod = mt
			newest = name
		}
	}
	if newest == "" {
		return "", false
	}
	return newest, true
}
