package mail

import (
	"context"
	"errors"
	"net/smtp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSMTPSenderDisabledWithoutHost(t *testing.T) {
	s := NewSMTPSender("", 587, "", "", "no-reply@example.org")
	s.send = func(string, smtp.Auth, string, []string, []byte) error {
		t.Fatal("send must not be called without a host")
		return nil
	}

	assert.NoError(t, s.Send(context.Background(), Message{To: "a@example.org", Subject: "hi"}))
}

func TestSMTPSenderSend(t *testing.T) {
	s := NewSMTPSender("smtp.example.org", 2525, "user", "secret", "no-reply@example.org")

	var (
		gotAddr string
		gotTo   []string
		gotMsg  string
	)
	s.send = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr = addr
		gotTo = to
		gotMsg = string(msg)
		assert.NotNil(t, a)
		assert.Equal(t, "no-reply@example.org", from)
		return nil
	}

	err := s.Send(context.Background(), Message{To: "admin@example.org", Subject: "Reset", Body: "line1\nline2"})
	require.NoError(t, err)

	assert.Equal(t, "smtp.example.org:2525", gotAddr)
	assert.Equal(t, []string{"admin@example.org"}, gotTo)
	assert.Contains(t, gotMsg, "Subject: Reset\r\n")
	assert.Contains(t, gotMsg, "line1\r\nline2")
}

func TestSMTPSenderWrapsErrors(t *testing.T) {
	s := NewSMTPSender("smtp.example.org", 25, "", "", "no-reply@example.org")
	s.send = func(string, smtp.Auth, string, []string, []byte) error {
		return errors.New("connection refused")
	}

	err := s.Send(context.Background(), Message{To: "admin@example.org"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "admin@example.org")
}
