package mailer

import (
	"bytes"
	"strings"
	"testing"
)

func TestRenderWelcome(t *testing.T) {
	m := New("localhost", 1025, "", "", "Film Library <no-reply@example.com>")

	msg, err := m.render("alice@example.com", "user_welcome.tmpl", map[string]any{
		"username": "alice",
		"userID":   7,
	})
	if err != nil {
		t.Fatal(err)
	}

	if got := msg.GetHeader("Subject"); len(got) != 1 || got[0] != "Welcome to the film library!" {
		t.Errorf("subject = %v", got)
	}
	if got := msg.GetHeader("To"); len(got) != 1 || got[0] != "alice@example.com" {
		t.Errorf("to = %v", got)
	}

	var buf bytes.Buffer
	if _, err := msg.WriteTo(&buf); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "user ID number is 7") {
		t.Errorf("body does not mention the user id:\n%s", buf.String())
	}
}

func TestRenderUnknownTemplate(t *testing.T) {
	m := New("localhost", 1025, "", "", "no-reply@example.com")

	if _, err := m.render("alice@example.com", "missing.tmpl", nil); err == nil {
		t.Error("expected an error for a missing template")
	}
}
