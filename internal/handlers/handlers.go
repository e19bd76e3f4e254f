package handlers

import (
	"time"

	"frame-viewer/internal/viewer"
)

// Handlers serves the status API of a viewer session.
type Handlers struct {
	session *viewer.Session
	started time.Time
}

func New(session *viewer.Session) *Handlers {
	return &Handlers{
		session: session,
		started: time.Now(),
	}
}
