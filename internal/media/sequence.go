package media

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"frame-viewer/internal/filesystem"
)

// Sequence is a numbered run of still images such as shot.1001.exr ...
// shot.1100.exr. A still without a frame number is a one-frame sequence.
type Sequence struct {
	Dir    string
	Prefix string
	Ext    string
	// Digits is the zero-padded width of the frame number, 0 for a still.
	Digits int
	First  int
	Last   int
}

// Pattern renders the sequence in printf form, e.g. shot.%04d.exr.
func (s Sequence) Pattern() string {
	if s.Digits == 0 {
		return filepath.Join(s.Dir, s.Prefix+s.Ext)
	}
	return filepath.Join(s.Dir, fmt.Sprintf("%s%%0%dd%s", s.Prefix, s.Digits, s.Ext))
}

// Path returns the file holding frame index.
func (s Sequence) Path(index int) string {
	if s.Digits == 0 {
		return filepath.Join(s.Dir, s.Prefix+s.Ext)
	}
	return filepath.Join(s.Dir, fmt.Sprintf("%s%0*d%s", s.Prefix, s.Digits, index, s.Ext))
}

// splitFrameNumber splits a file stem into the text before the trailing
// digits and the digits themselves.
func splitFrameNumber(stem string) (prefix, digits string) {
	i := len(stem)
	for i > 0 && stem[i-1] >= '0' && stem[i-1] <= '9' {
		i--
	}
	return stem[:i], stem[i:]
}

// IsSequenceMember reports whether path names a numbered still image.
func IsSequenceMember(path string) bool {
	if DetectKind(path) != KindImage {
		return false
	}
	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	_, digits := splitFrameNumber(stem)
	return digits != ""
}

// ParseSequence finds the sequence path belongs to by listing its siblings
// with the same prefix, extension and frame number width.
func ParseSequence(path string) (Sequence, error) {
	dir, name := filepath.Split(path)
	if dir == "" {
		dir = "."
	}
	dir = filepath.Clean(dir)
	ext := filepath.Ext(name)
	prefix, digits := splitFrameNumber(strings.TrimSuffix(name, ext))

	seq := Sequence{Dir: dir, Prefix: prefix, Ext: ext, Digits: len(digits)}

	if digits == "" {
		if _, err := filesystem.StatWithRetry(path, filesystem.DefaultRetryConfig()); err != nil {
			if os.IsNotExist(err) {
				return Sequence{}, fmt.Errorf("%w: %s", ErrNotFound, path)
			}
			return Sequence{}, err
		}
		return seq, nil
	}

	entries, err := filesystem.ReadDirWithRetry(dir, filesystem.DefaultRetryConfig())
	if err != nil {
		if os.IsNotExist(err) {
			return Sequence{}, fmt.Errorf("%w: %s", ErrNotFound, dir)
		}
		return Sequence{}, fmt.Errorf("list sequence directory: %w", err)
	}

	found := false
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		n := e.Name()
		if len(n) < len(prefix)+len(ext) || !strings.HasPrefix(n, prefix) || !strings.HasSuffix(n, ext) {
			continue
		}
		num := n[len(prefix) : len(n)-len(ext)]
		if len(num) != seq.Digits {
			continue
		}
		frame, err := strconv.Atoi(num)
		if err != nil || strings.ContainsAny(num, "+-") {
			continue
		}
		if !found || frame < seq.First {
			seq.First = frame
		}
		if !found || frame > seq.Last {
			seq.Last = frame
		}
		found = true
	}

	if !found {
		return Sequence{}, fmt.Errorf("%w: no frames match %s", ErrNotFound, seq.Pattern())
	}
	return seq, nil
}
