package data

import (
	"testing"

	"github.com/hafizmfadli/film-library/internal/validator"
)

func TestPassword(t *testing.T) {
	var p password
	if err := p.Set("pa55word1"); err != nil {
		t.Fatal(err)
	}

	ok, err := p.Matches("pa55word1")
	if err != nil || !ok {
		t.Errorf("Matches(correct) = %v, %v", ok, err)
	}

	ok, err = p.Matches("wrong-password")
	if err != nil || ok {
		t.Errorf("Matches(wrong) = %v, %v", ok, err)
	}
}

func TestValidateUser(t *testing.T) {
	user := &User{Username: "alice", Email: "alice@example.com"}
	if err := user.Password.Set("pa55word1"); err != nil {
		t.Fatal(err)
	}

	v := validator.New()
	ValidateUser(v, user)
	if !v.Valid() {
		t.Fatalf("unexpected errors %v", v.Errors)
	}

	user.Username = ""
	user.Email = "not-an-email"
	v = validator.New()
	ValidateUser(v, user)
	if v.Errors["username"] == "" || v.Errors["email"] == "" {
		t.Errorf("expected username and email errors, got %v", v.Errors)
	}
}

func TestValidatePasswordPlaintext(t *testing.T) {
	for pw, valid := range map[string]bool{
		"":              false,
		"short":         false,
		"long-enough-1": true,
	} {
		v := validator.New()
		ValidatePasswordPlaintext(v, pw)
		if v.Valid() != valid {
			t.Errorf("%q: valid = %v, want %v", pw, v.Valid(), valid)
		}
	}
}

func TestAnonymousUser(t *testing.T) {
	if !AnonymousUser.IsAnonymous() {
		t.Error("AnonymousUser must be anonymous")
	}
	if (&User{ID: 1}).IsAnonymous() {
		t.Error("a loaded user must not be anonymous")
	}
}
