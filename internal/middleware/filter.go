package middleware

import "strings"

// probePaths are hit by orchestrator probes every few seconds.
var probePaths = []string{"/healthz", "/livez"}

// pathFilter decides which requests a middleware leaves alone.
type pathFilter struct {
	prefixes []string
	exact    []string
}

func (f pathFilter) skip(path string) bool {
	for _, p := range f.exact {
		if path == p {
			return true
		}
	}
	for _, p := range f.prefixes {
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}
