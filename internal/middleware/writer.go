package middleware

import (
	"net/http"
	"strings"
)

// recorder wraps a ResponseWriter to remember the status and body size
// handed to the client.
type recorder struct {
	http.ResponseWriter
	status  int
	written int64
	sent    bool
}

func newRecorder(w http.ResponseWriter) *recorder {
	return &recorder{ResponseWriter: w, status: http.StatusOK}
}

// WriteHeader forwards only the first status; later calls are ignored the
// same way net/http ignores them.
func (rec *recorder) WriteHeader(code int) {
	if rec.sent {
		return
	}
	rec.status, rec.sent = code, true
	rec.ResponseWriter.WriteHeader(code)
}

func (rec *recorder) Write(b []byte) (int, error) {
	rec.sent = true
	n, err := rec.ResponseWriter.Write(b)
	rec.written += int64(n)
	return n, err
}

// Flush keeps /api/stream parts moving through the wrapper.
func (rec *recorder) Flush() {
	if f, ok := rec.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (rec *recorder) Unwrap() http.ResponseWriter {
	return rec.ResponseWriter
}

// streaming reports whether the handler answered with a multipart stream.
func (rec *recorder) streaming() bool {
	return strings.HasPrefix(rec.Header().Get("Content-Type"), "multipart/")
}
