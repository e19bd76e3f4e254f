package media

import (
	"errors"
	"fmt"

	"frame-viewer/internal/logging"
)

// Openers maps a source kind to the function that opens it.
type Openers map[Kind]Opener

// DefaultOpeners handles image sequences only. Callers that link the
// container decoder add it under KindVideo.
func DefaultOpeners() Openers {
	return Openers{KindImage: OpenSequence}
}

// Open creates a decoder for path with the opener for its kind.
func (o Openers) Open(path string) (Decoder, error) {
	kind := DetectKind(path)
	open, ok := o[kind]
	if !ok || open == nil {
		return nil, fmt.Errorf("%w: %s (%s)", ErrUnsupported, path, kind)
	}
	return open(path)
}

// Probe opens path, reads its metadata and closes it again.
func (o Openers) Probe(path string) (Metadata, error) {
	d, err := o.Open(path)
	if err != nil {
		return Metadata{}, err
	}
	defer d.Close()
	return d.Metadata(), nil
}

// Registry keeps one open decoder per source path. It is not safe for
// concurrent use: the goroutine that evaluates frames owns it.
type Registry struct {
	openers  Openers
	decoders map[string]Decoder
}

// NewRegistry creates an empty registry.
func NewRegistry(openers Openers) *Registry {
	return &Registry{
		openers:  openers,
		decoders: make(map[string]Decoder),
	}
}

// Decoder returns the decoder for path, opening it on first use.
func (r *Registry) Decoder(path string) (Decoder, error) {
	if d, ok := r.decoders[path]; ok {
		return d, nil
	}
	d, err := r.openers.Open(path)
	if err != nil {
		return nil, err
	}
	r.decoders[path] = d
	logging.Debug("Decoder opened for %s", path)
	return d, nil
}

// Len returns the number of open decoders.
func (r *Registry) Len() int {
	return len(r.decoders)
}

// Release closes and forgets the decoder for path, if any.
func (r *Registry) Release(path string) error {
	d, ok := r.decoders[path]
	if !ok {
		return nil
	}
	delete(r.decoders, path)
	return d.Close()
}

// Close closes every decoder.
func (r *Registry) Close() error {
	var errs []error
	for path, d := range r.decoders {
		if err := d.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", path, err))
		}
		delete(r.decoders, path)
	}
	return errors.Join(errs...)
}
