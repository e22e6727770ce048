// Package service implements the tree/branch model operations and the
// session-rotation control loop.
package service

import (
	"sync"

	"github.com/canopy-ai/canopy/internal/adapter/agentbridge"
	"github.com/canopy-ai/canopy/internal/eventlog"
	store "github.com/canopy-ai/canopy/internal/repository"
	"github.com/canopy-ai/canopy/internal/summarize"
)

// Service wires the store, summarizer, agent bridge, and event log together.
// All dependencies are injected; there is no ambient global state.
type Service struct {
	store      store.Store
	summarizer *summarize.Summarizer
	bridge     agentbridge.Rotator
	events     *eventlog.Logger

	// Per-session locks serialize rotation: concurrent rotation attempts on
	// the same session are forbidden, different sessions run in parallel.
	mu           sync.Mutex
	sessionLocks map[string]*sync.Mutex
}

// New creates a service.
func New(st store.Store, summarizer *summarize.Summarizer, bridge agentbridge.Rotator, events *eventlog.Logger) *Service {
	return &Service{
		store:        st,
		summarizer:   summarizer,
		bridge:       bridge,
		events:       events,
		sessionLocks: make(map[string]*sync.Mutex),
	}
}

func (s *Service) sessionLock(sessionID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.sessionLocks[sessionID]
	if !ok {
		lock = &sync.Mutex{}
		s.sessionLocks[sessionID] = lock
	}
	return lock
}
