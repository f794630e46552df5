package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHasCredential(t *testing.T) {
	cases := []struct {
		name    string
		account MailAccount
		want    bool
	}{
		{"imap with password", MailAccount{Provider: ProviderIMAP, Password: "secret"}, true},
		{"imap without password", MailAccount{Provider: ProviderIMAP}, false},
		{"gmail with refresh token", MailAccount{Provider: ProviderGmail, RefreshToken: "tok"}, true},
		{"gmail without refresh token", MailAccount{Provider: ProviderGmail, Password: "secret"}, false},
		{"unknown provider", MailAccount{Provider: "pop3", Password: "secret"}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.account.HasCredential())
		})
	}
}

func TestSender(t *testing.T) {
	msg := EmailMessage{FromName: "Alice", FromAddr: "alice@example.com"}
	assert.Equal(t, "Alice <alice@example.com>", msg.Sender())

	msg.FromName = ""
	assert.Equal(t, "alice@example.com", msg.Sender())
}
