package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSession_LastUserMessage(t *testing.T) {
	s := NewSession("s1", "start")

	_, ok := s.LastUserMessage()
	assert.False(t, ok, "empty session has no user message")

	s.AddMessage(RoleUser, "first")
	s.AddMessage(RoleAssistant, "reply")
	s.AddMessage(RoleUser, "second")
	s.AddMessage(RoleAssistant, "another reply")

	last, ok := s.LastUserMessage()
	require.True(t, ok)
	assert.Equal(t, "second", last)
}

func TestSession_MessagesAreCopied(t *testing.T) {
	s := NewSession("s2", "start")
	s.AddMessage(RoleUser, "hello")

	msgs := s.Messages()
	msgs[0].Content = "mutated"

	assert.Equal(t, "hello", s.Messages()[0].Content)
}

func TestSession_MemoryRoundTrip(t *testing.T) {
	s := NewSession("s3", "start")
	s.RestoreMemory(SessionMemory{
		Verified: true,
		UserName: "Jane Doe",
		Account:  "12345678",
		SortCode: "123456",
	})
	s.SetUserIntent("Dispute a charge")

	mem := s.Memory()
	assert.True(t, mem.Verified)
	assert.Equal(t, "Jane Doe", mem.UserName)
	assert.Equal(t, "12345678", mem.Account)
	assert.Equal(t, "123456", mem.SortCode)
	assert.Equal(t, "Dispute a charge", mem.UserIntent)

	vu := s.VerifiedUser()
	require.NotNil(t, vu)
	assert.Equal(t, AuthStatusVerified, vu.AuthStatus)
}

func TestSession_RestoreMemoryRequiresVerifiedName(t *testing.T) {
	s := NewSession("s4", "start")
	s.RestoreMemory(SessionMemory{Verified: true}) // no user name
	assert.Nil(t, s.VerifiedUser())

	s.RestoreMemory(SessionMemory{UserName: "Jane Doe"}) // not verified
	assert.Nil(t, s.VerifiedUser())
}

func TestSession_VerifiedUserIsCopied(t *testing.T) {
	s := NewSession("s5", "start")
	s.SetVerifiedUser(&VerifiedUser{CustomerName: "Test User", AuthStatus: AuthStatusVerified})

	vu := s.VerifiedUser()
	vu.CustomerName = "mutated"

	assert.Equal(t, "Test User", s.VerifiedUser().CustomerName)
}
