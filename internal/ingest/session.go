// Package ingest connects to Telegram and turns channel history into feed
// posts, relocating attached media on the way.
package ingest

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"sync"

	"github.com/gotd/td/session"
)

// ErrSessionMissing indicates TELEGRAM_SESSION is not set.
var ErrSessionMissing = errors.New("telegram session missing")

// SessionString keeps gotd session data in memory, seeded from the base64
// string the session generator prints. Telegram can rotate keys mid-run,
// so StoreSession keeps the latest bytes for re-export.
type SessionString struct {
	mu   sync.Mutex
	data []byte
}

var _ session.Storage = (*SessionString)(nil)

// NewSessionString returns empty storage for a fresh login.
func NewSessionString() *SessionString {
	return &SessionString{}
}

// SessionFromString decodes a base64 session produced by Encoded.
func SessionFromString(encoded string) (*SessionString, error) {
	if encoded == "" {
		return nil, ErrSessionMissing
	}

	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("decode telegram session: %w", err)
	}

	return &SessionString{data: data}, nil
}

func (s *SessionString) LoadSession(_ context.Context) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.data) == 0 {
		return nil, session.ErrNotFound
	}

	out := make([]byte, len(s.data))
	copy(out, s.data)

	return out, nil
}

func (s *SessionString) StoreSession(_ context.Context, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.data = make([]byte, len(data))
	copy(s.data, data)

	return nil
}

// Encoded returns the current session bytes as the base64 string expected
// in TELEGRAM_SESSION.
func (s *SessionString) Encoded() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return base64.StdEncoding.EncodeToString(s.data)
}
