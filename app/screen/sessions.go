package screen

import (
	"sync"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/conteo/inventory-admin/app/form"
	"go.uber.org/zap"
)

type session struct {
	dialog   *form.Dialog
	lastSeen time.Time
}

// Sessions keeps the open product dialogs, one per browser tab, keyed by
// snowflake id.
type Sessions struct {
	node      *snowflake.Node
	newFields form.FieldsFactory
	now       func() time.Time
	logger    *zap.Logger

	mu   sync.Mutex
	byID map[string]*session
}

func NewSessions(node *snowflake.Node, newFields form.FieldsFactory) *Sessions {
	return &Sessions{
		node:      node,
		newFields: newFields,
		now:       time.Now,
		logger:    zap.L().Named("sessions"),
		byID:      map[string]*session{},
	}
}

// New registers a closed dialog and returns its id.
func (s *Sessions) New() (string, *form.Dialog) {
	id := s.node.Generate().String()
	d := form.NewDialog(s.newFields)

	s.mu.Lock()
	s.byID[id] = &session{dialog: d, lastSeen: s.now()}
	s.mu.Unlock()
	return id, d
}

// Get returns the dialog registered under id and marks it as used.
func (s *Sessions) Get(id string) (*form.Dialog, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.byID[id]
	if !ok {
		return nil, false
	}
	sess.lastSeen = s.now()
	return sess.dialog, true
}

// Close closes and forgets the dialog.
func (s *Sessions) Close(id string) bool {
	s.mu.Lock()
	sess, ok := s.byID[id]
	delete(s.byID, id)
	s.mu.Unlock()
	if !ok {
		return false
	}
	sess.dialog.Close()
	return true
}

// Sweep closes dialogs idle for longer than ttl and reports how many were
// dropped.
func (s *Sessions) Sweep(ttl time.Duration) int {
	cutoff := s.now().Add(-ttl)

	s.mu.Lock()
	var stale []*session
	for id, sess := range s.byID {
		if sess.lastSeen.Before(cutoff) {
			stale = append(stale, sess)
			delete(s.byID, id)
		}
	}
	s.mu.Unlock()

	for _, sess := range stale {
		sess.dialog.Close()
	}
	if len(stale) > 0 {
		s.logger.Info("abandoned dialogs swept", zap.Int("count", len(stale)))
	}
	return len(stale)
}

func (s *Sessions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.byID)
}
