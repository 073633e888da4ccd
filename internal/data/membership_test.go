package data

import (
	"database/sql"
	"encoding/json"
	"errors"
	"testing"

	"github.com/hafizmfadli/film-library/internal/validator"
)

func TestNewCatalogRef(t *testing.T) {
	movie, tv := ptr(int64(3)), ptr(int64(7))

	tests := []struct {
		name  string
		movie *int64
		tv    *int64
		want  CatalogRef
	}{
		{"movie only", movie, nil, CatalogRef{Kind: KindMovie, ID: 3}},
		{"tv only", nil, tv, CatalogRef{Kind: KindTV, ID: 7}},
		{"both", movie, tv, CatalogRef{}},
		{"neither", nil, nil, CatalogRef{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NewCatalogRef(tt.movie, tt.tv)
			if got != tt.want {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestValidateMembershipRequiresExactlyOneEntry(t *testing.T) {
	for _, list := range []List{Watched, ToWatch} {
		for name, ref := range map[string]CatalogRef{
			"both":    NewCatalogRef(ptr(int64(1)), ptr(int64(2))),
			"neither": NewCatalogRef(nil, nil),
		} {
			rec := &Membership{List: list, UserID: 1, Ref: ref}

			v := validator.New()
			ValidateMembership(v, rec)

			if got := v.Errors["catalog_entry"]; got != "must reference exactly one catalog entry" {
				t.Errorf("%s/%s: catalog_entry error = %q", list, name, got)
			}
		}
	}
}

func TestValidateMembershipScore(t *testing.T) {
	rec := &Membership{List: Watched, UserID: 1, Ref: CatalogRef{Kind: KindMovie, ID: 1}}

	for score, valid := range map[float64]bool{-0.1: false, 0: true, 8.5: true, 10: true, 10.1: false} {
		rec.Score = ptr(score)

		v := validator.New()
		ValidateMembership(v, rec)

		if v.Valid() != valid {
			t.Errorf("score %v: valid = %v, want %v", score, v.Valid(), valid)
		}
	}
}

func TestValidateMembershipToWatchRejectsScore(t *testing.T) {
	rec := &Membership{
		List:   ToWatch,
		UserID: 1,
		Ref:    CatalogRef{Kind: KindTV, ID: 4},
		Score:  ptr(5.0),
	}

	v := validator.New()
	ValidateMembership(v, rec)

	if v.Errors["score"] == "" {
		t.Errorf("expected score error, got %v", v.Errors)
	}
}

func TestCheckMembershipWrite(t *testing.T) {
	tests := []struct {
		name      string
		list      List
		conflicts Conflicts
		supersede bool
		err       error
	}{
		{"watched fresh", Watched, Conflicts{}, false, nil},
		{"watched supersedes to-watch", Watched, Conflicts{ToWatch: true}, true, nil},
		{"watched duplicate", Watched, Conflicts{Watched: true}, false, ErrDuplicateMembership},
		{"to-watch fresh", ToWatch, Conflicts{}, false, nil},
		{"to-watch after watched", ToWatch, Conflicts{Watched: true}, false, ErrAlreadyWatched},
		{"to-watch duplicate", ToWatch, Conflicts{ToWatch: true}, false, ErrDuplicateMembership},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			supersede, err := CheckMembershipWrite(tt.list, tt.conflicts)
			if !errors.Is(err, tt.err) {
				t.Fatalf("err = %v, want %v", err, tt.err)
			}
			if supersede != tt.supersede {
				t.Errorf("supersede = %v, want %v", supersede, tt.supersede)
			}
		})
	}

	if _, err := CheckMembershipWrite(List("favourites"), Conflicts{}); err == nil {
		t.Error("unknown list must be rejected")
	}
}

func TestResolveKind(t *testing.T) {
	set := sql.NullInt64{Int64: 9, Valid: true}
	unset := sql.NullInt64{}

	if k, err := ResolveKind(set, unset); err != nil || k != KindMovie {
		t.Errorf("movie ref: %q, %v", k, err)
	}
	if k, err := ResolveKind(unset, set); err != nil || k != KindTV {
		t.Errorf("tv ref: %q, %v", k, err)
	}
	if _, err := ResolveKind(set, set); !errors.Is(err, ErrNoReference) {
		t.Errorf("both refs: %v", err)
	}
	if _, err := ResolveKind(unset, unset); !errors.Is(err, ErrNoReference) {
		t.Errorf("no refs: %v", err)
	}
}

func TestMembershipRepresentation(t *testing.T) {
	watched := &Membership{
		ID:       5,
		List:     Watched,
		UserID:   2,
		Username: "alice",
		Ref:      CatalogRef{Kind: KindMovie, ID: 11},
		Title:    "Arrival",
		Score:    ptr(8.5),
	}

	var got map[string]any
	b, err := json.Marshal(watched)
	if err != nil {
		t.Fatal(err)
	}
	if err := json.Unmarshal(b, &got); err != nil {
		t.Fatal(err)
	}

	if got["movie"] != float64(11) || got["score"] != 8.5 || got["user"] != "alice" {
		t.Errorf("unexpected watched representation %s", b)
	}
	if _, ok := got["tv"]; ok {
		t.Errorf("movie-kind record must not expose tv: %s", b)
	}
	if v, ok := got["review"]; !ok || v != nil {
		t.Errorf("watched record must expose a null review: %s", b)
	}

	toWatch := &Membership{ID: 6, List: ToWatch, Username: "alice", Ref: CatalogRef{Kind: KindTV, ID: 3}}
	b, err = json.Marshal(toWatch)
	if err != nil {
		t.Fatal(err)
	}
	got = nil
	if err := json.Unmarshal(b, &got); err != nil {
		t.Fatal(err)
	}
	if got["tv"] != float64(3) {
		t.Errorf("tv-kind record must expose tv: %s", b)
	}
	for _, key := range []string{"movie", "score", "review"} {
		if _, ok := got[key]; ok {
			t.Errorf("to-watch tv record must not expose %q: %s", key, b)
		}
	}

	if _, err := json.Marshal(&Membership{ID: 7}); err == nil {
		t.Error("a record without a reference must not marshal")
	}
}
