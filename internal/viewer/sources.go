package viewer

import (
	"frame-viewer/internal/logging"
	"frame-viewer/internal/media"
)

// activeSource hands out decoders for one source at a time, closing the
// decoders of a source once frames are requested from another. It runs on
// the worker goroutine only.
type activeSource struct {
	reg  *media.Registry
	last string
}

func (s *activeSource) Decoder(path string) (media.Decoder, error) {
	if s.last != "" && s.last != path {
		if err := s.reg.Release(s.last); err != nil {
			logging.Warn("Failed to close decoder for %s: %v", s.last, err)
		}
	}
	s.last = path
	return s.reg.Decoder(path)
}
