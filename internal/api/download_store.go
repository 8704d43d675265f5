package api

import (
	"crypto/rand"
	"encoding/base64"
	"os"
	"sync"
	"time"
)

// downloadTicket an exported workbook waiting on disk for its single download.
type downloadTicket struct {
	path      string
	name      string
	expiresAt time.Time
}

// downloadStore one-shot tokens for streamed exports. Expired files are removed from disk.
type downloadStore struct {
	mu      sync.Mutex
	tickets map[string]downloadTicket
	now     func() time.Time
}

func newDownloadStore() *downloadStore {
	return &downloadStore{
		tickets: make(map[string]downloadTicket),
		now:     time.Now,
	}
}

// issue registers path under a fresh token valid for ttl.
func (s *downloadStore) issue(path, name string, ttl time.Duration) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sweepLocked()
	token := newRandomToken(24)
	s.tickets[token] = downloadTicket{path: path, name: name, expiresAt: s.now().Add(ttl)}
	return token
}

// claim hands the ticket out once; a second claim or an expired token fails.
func (s *downloadStore) claim(token string) (downloadTicket, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sweepLocked()
	t, ok := s.tickets[token]
	if ok {
		delete(s.tickets, token)
	}
	return t, ok
}

func (s *downloadStore) sweepLocked() {
	now := s.now()
	for token, t := range s.tickets {
		if now.After(t.expiresAt) {
			_ = os.Remove(t.path)
			delete(s.tickets, token)
		}
	}
}

func newRandomToken(n int) string {
	b := make([]byte, n)
	_, _ = rand.Read(b)
	return base64.RawURLEncoding.EncodeToString(b)
}
