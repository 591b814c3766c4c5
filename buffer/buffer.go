package buffer

import (
	"strings"
	"sync"
)

// Store keeps the daemon's view of each open document's full text. Clients
// send whole snapshots on change; the previous snapshot is what the edit
// tracker diffs against, so the client never has to compute or ship diffs
// itself.
type Store struct {
	mu   sync.Mutex
	docs map[string]string
}

func NewStore() *Store {
	return &Store{docs: make(map[string]string)}
}

// Update replaces the stored text for uri and returns the previous snapshot.
// The first update for a document returns "" with ok=false; there is nothing
// meaningful to diff against yet.
func (s *Store) Update(uri, text string) (previous string, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	previous, ok = s.docs[uri]
	s.docs[uri] = text
	return previous, ok
}

// Text returns the last known text for uri.
func (s *Store) Text(uri string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	text, ok := s.docs[uri]
	return text, ok
}

// SplitAt divides the stored snapshot of uri around a 0-indexed line and
// character position, clamping positions past the end of a line or file.
func (s *Store) SplitAt(uri string, line, character int) (prefix, suffix string, ok bool) {
	text, ok := s.Text(uri)
	if !ok {
		return "", "", false
	}

	offset := 0
	for line > 0 && offset < len(text) {
		next := strings.IndexByte(text[offset:], '\n')
		if next < 0 {
			offset = len(text)
			break
		}
		offset += next + 1
		line--
	}

	lineEnd := len(text)
	if next := strings.IndexByte(text[offset:], '\n'); next >= 0 {
		lineEnd = offset + next
	}
	offset += character
	if offset > lineEnd {
		offset = lineEnd
	}

	return text[:offset], text[offset:], true
}

// Forget drops a closed document.
func (s *Store) Forget(uri string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.docs, uri)
}

// Len reports how many documents are tracked.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.docs)
}
