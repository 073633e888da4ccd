package data

import (
	"math"
	"time"
	"unicode/utf8"

	"github.com/hafizmfadli/film-library/internal/validator"
)

// Kind identifies which catalog a record belongs to.
type Kind string

const (
	KindMovie Kind = "movie"
	KindTV    Kind = "tv"
)

// ParseKind accepts "movie" or "tv". The empty string is returned as the zero
// Kind, meaning "any kind" where a filter is concerned.
func ParseKind(s string) (Kind, bool) {
	switch Kind(s) {
	case KindMovie, KindTV, "":
		return Kind(s), true
	}
	return "", false
}

// column is the membership foreign key holding a reference of this kind.
func (k Kind) column() string {
	if k == KindTV {
		return "tv_id"
	}
	return "movie_id"
}

// Catalog bounds shared by movies and tv shows.
const (
	MinYear        = 1880
	MaxYear        = 2030
	MinScore       = 0.0
	MaxScore       = 10.0
	maxTitleLength = 200
	maxGenreLength = 50
)

// CatalogSortSafelist lists the sort values accepted by catalog list endpoints.
var CatalogSortSafelist = []string{"id", "title", "year", "rating", "-id", "-title", "-year", "-rating"}

// Entry holds the fields common to every catalog record.
type Entry struct {
	ID        int64     `json:"id"`
	CreatedAt time.Time `json:"-"`
	Title     string    `json:"title"`
	Year      int32     `json:"year"`
	Rating    *float64  `json:"rating"`
	Genres    []string  `json:"genre"`
	// AddedBy is the owning user; AddedByName is their username as shown to clients.
	AddedBy     int64  `json:"-"`
	AddedByName string `json:"added_by"`
	// Version starts at 1 and is incremented on every update.
	Version int32 `json:"version"`
}

// ValidateScore checks a rating or score: inclusive [0, 10] with at most one
// fractional digit, matching the numeric(3,1) columns.
func ValidateScore(v *validator.Validator, key string, score *float64) {
	if score == nil {
		return
	}
	s := *score
	v.Check(validator.Between(s, MinScore, MaxScore), key, "must be between 0 and 10")
	v.Check(math.Abs(s*10-math.Round(s*10)) < 1e-9, key, "must have at most one decimal place")
}

func validateEntry(v *validator.Validator, e *Entry) {
	v.Check(e.Title != "", "title", "must be provided")
	v.Check(utf8.RuneCountInString(e.Title) <= maxTitleLength, "title", "must not be more than 200 characters long")

	v.Check(e.Year != 0, "year", "must be provided")
	v.Check(e.Year >= MinYear, "year", "must be greater than or equal to 1880")
	v.Check(e.Year <= MaxYear, "year", "must not be greater than 2030")

	ValidateScore(v, "rating", e.Rating)

	v.Check(validator.Unique(e.Genres), "genre", "must not contain duplicate values")
	for _, g := range e.Genres {
		v.Check(g != "", "genre", "must not contain empty values")
		v.Check(utf8.RuneCountInString(g) <= maxGenreLength, "genre", "values must not be more than 50 characters long")
	}
}

func validateDuration(v *validator.Validator, key string, d *int32) {
	if d != nil {
		v.Check(*d >= 0, key, "must not be negative")
	}
}
