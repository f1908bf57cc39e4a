package model

// UserID is the opaque identity issued by the external auth service
type UserID string

// Session binds an anonymous identity for the lifetime of the process.
// It is set once on sign-in and read-only afterwards; a fresh identity
// may be issued on the next run.
type Session struct {
	userID UserID
	ready  bool
}

// NewSession creates a ready session bound to the given user
func NewSession(userID UserID) *Session {
	return &Session{userID: userID, ready: userID != ""}
}

func (s *Session) UserID() UserID {
	if s == nil {
		return ""
	}
	return s.userID
}

// Ready reports whether identity resolution has completed
func (s *Session) Ready() bool {
	return s != nil && s.ready
}
