package service

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog/log"

	"arena-bot/internal/model"
)

// SessionManager maps chat users to authenticated arena identities.
type SessionManager struct {
	directory *DirectoryService

	mu       sync.RWMutex
	sessions map[int64]string // chat user id -> account id
}

// NewSessionManager creates a new SessionManager instance.
func NewSessionManager(directory *DirectoryService) *SessionManager {
	return &SessionManager{
		directory: directory,
		sessions:  make(map[int64]string),
	}
}

// Login authenticates and, on success, binds the account to the chat user.
func (m *SessionManager) Login(ctx context.Context, chatUserID int64, username, password string) (model.LoginResult, model.Principal, error) {
	result, p, err := m.directory.Authenticate(ctx, username, password)
	if err != nil {
		return result, model.Principal{}, err
	}
	if result != model.LoginSuccess {
		log.Debug().Int64("chat_user_id", chatUserID).Str("result", string(result)).Msg("Login refused")
		return result, model.Principal{}, nil
	}

	m.mu.Lock()
	m.sessions[chatUserID] = p.ID
	m.mu.Unlock()

	log.Info().Int64("chat_user_id", chatUserID).Str("account_id", p.ID).Str("role", string(p.Role)).Msg("Session opened")
	return result, p, nil
}

// Current returns the identity bound to the chat user. The account is looked
// up again on every call: a removed account or a banned user ends the session.
func (m *SessionManager) Current(ctx context.Context, chatUserID int64) (model.Principal, error) {
	m.mu.RLock()
	id, ok := m.sessions[chatUserID]
	m.mu.RUnlock()
	if !ok {
		return model.Principal{}, ErrNotLoggedIn
	}

	p, err := m.directory.Principal(ctx, id)
	switch {
	case err == nil:
		return p, nil
	case errors.Is(err, ErrNotFound):
		m.Logout(chatUserID)
		return model.Principal{}, ErrNotLoggedIn
	case errors.Is(err, ErrAccountBanned):
		m.Logout(chatUserID)
		return model.Principal{}, ErrAccountBanned
	default:
		return model.Principal{}, err
	}
}

// Logout drops the chat user's session. It reports whether one existed.
func (m *SessionManager) Logout(chatUserID int64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.sessions[chatUserID]
	delete(m.sessions, chatUserID)
	return ok
}

// Count returns the number of open sessions.
func (m *SessionManager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}
