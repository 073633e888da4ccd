package validator

import "testing"

func TestValidatorKeepsFirstError(t *testing.T) {
	v := New()

	v.Check(false, "year", "must be greater than or equal to 1880")
	v.Check(false, "year", "must be provided")
	v.Check(true, "title", "must be provided")

	if v.Valid() {
		t.Fatal("expected validator to be invalid")
	}
	if got := v.Errors["year"]; got != "must be greater than or equal to 1880" {
		t.Errorf("year error = %q", got)
	}
	if _, ok := v.Errors["title"]; ok {
		t.Error("title should not have an error")
	}
}

func TestHelpers(t *testing.T) {
	tests := []struct {
		name string
		got  bool
		want bool
	}{
		{"in hit", In("tv", "movie", "tv"), true},
		{"in miss", In("book", "movie", "tv"), false},
		{"unique", Unique([]string{"drama", "war"}), true},
		{"not unique", Unique([]string{"drama", "drama"}), false},
		{"email ok", Matches("alice@example.com", EmailRX), true},
		{"email bad", Matches("alice@", EmailRX), false},
		{"between low edge", Between(1880, 1880, 2030), true},
		{"between high edge", Between(2030, 1880, 2030), true},
		{"below", Between(1879, 1880, 2030), false},
		{"above float", Between(10.1, 0, 10), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %v, want %v", tt.got, tt.want)
			}
		})
	}
}
