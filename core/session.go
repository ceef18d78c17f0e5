package core

import (
	"sync"
	"time"
)

// Role identifies the author of a conversation message.
type Role string

const (
	// RoleUser marks a message authored by the end user.
	RoleUser Role = "user"
	// RoleAssistant marks a message authored by the assistant.
	RoleAssistant Role = "assistant"
)

// Message is one entry in a session's append-only conversation history.
// Insertion order is semantically significant: the hand-off assembler uses it
// to find the most recent user message.
type Message struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// VerifiedUser holds identity data stored after a successful identity check.
type VerifiedUser struct {
	CustomerName string `json:"customer_name"`
	Account      string `json:"account"`
	SortCode     string `json:"sort_code"`
	AuthStatus   string `json:"auth_status"`
}

// AuthStatusVerified is the backend auth status that marks an identity check
// as successful.
const AuthStatusVerified = "VERIFIED"

// SessionMemory is a serializable snapshot of the portable parts of a
// session: verified identity and inferred intent. Adapters pass it to
// InitializeSession to restore state across reconnects; it is a one-shot
// restore, not a live link to the session.
type SessionMemory struct {
	Verified   bool   `json:"verified,omitempty"`
	UserName   string `json:"userName,omitempty"`
	Account    string `json:"account,omitempty"`
	SortCode   string `json:"sortCode,omitempty"`
	UserIntent string `json:"userIntent,omitempty"`
}

// Session is the mutable state of one active conversation. It is owned
// exclusively by the session manager; adapters hold only the id. All methods
// are safe for concurrent use, though within a single session callers are
// expected to operate sequentially.
type Session struct {
	ID          string
	CurrentNode string
	StartTime   time.Time

	mu           sync.RWMutex
	messages     []Message
	verifiedUser *VerifiedUser
	userIntent   string
}

// NewSession creates an empty session positioned at the given workflow node.
func NewSession(id, startNode string) *Session {
	return &Session{ID: id, CurrentNode: startNode, StartTime: time.Now().UTC()}
}

// AddMessage appends a message to the conversation history.
func (s *Session) AddMessage(role Role, content string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, Message{Role: role, Content: content, Timestamp: time.Now().UTC()})
}

// Messages returns a defensive copy of the conversation history.
func (s *Session) Messages() []Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	msgs := make([]Message, len(s.messages))
	copy(msgs, s.messages)
	return msgs
}

// MessageCount returns the number of messages in the history.
func (s *Session) MessageCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.messages)
}

// LastUserMessage returns the content of the most recent user-authored
// message, or false if the user has not spoken yet.
func (s *Session) LastUserMessage() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i := len(s.messages) - 1; i >= 0; i-- {
		if s.messages[i].Role == RoleUser {
			return s.messages[i].Content, true
		}
	}
	return "", false
}

// VerifiedUser returns a copy of the stored identity data, or nil when the
// session has not completed an identity check.
func (s *Session) VerifiedUser() *VerifiedUser {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.verifiedUser == nil {
		return nil
	}
	vu := *s.verifiedUser
	return &vu
}

// SetVerifiedUser stores identity data; nil clears it.
func (s *Session) SetVerifiedUser(vu *VerifiedUser) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if vu == nil {
		s.verifiedUser = nil
		return
	}
	cp := *vu
	s.verifiedUser = &cp
}

// UserIntent returns the inferred user goal, empty when unknown.
func (s *Session) UserIntent() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.userIntent
}

// SetUserIntent records the inferred user goal.
func (s *Session) SetUserIntent(intent string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.userIntent = intent
}

// Memory reconstructs the portable snapshot from current session state.
// Unverified sessions yield a snapshot without identity fields.
func (s *Session) Memory() SessionMemory {
	s.mu.RLock()
	defer s.mu.RUnlock()
	mem := SessionMemory{UserIntent: s.userIntent}
	if s.verifiedUser != nil {
		mem.Verified = true
		mem.UserName = s.verifiedUser.CustomerName
		mem.Account = s.verifiedUser.Account
		mem.SortCode = s.verifiedUser.SortCode
	}
	return mem
}

// RestoreMemory applies a snapshot to the session. Identity fields are only
// restored when the snapshot is marked verified and carries a user name.
func (s *Session) RestoreMemory(mem SessionMemory) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if mem.Verified && mem.UserName != "" {
		s.verifiedUser = &VerifiedUser{
			CustomerName: mem.UserName,
			Account:      mem.Account,
			SortCode:     mem.SortCode,
			AuthStatus:   AuthStatusVerified,
		}
	}
	if mem.UserIntent != "" {
		s.userIntent = mem.UserIntent
	}
}
