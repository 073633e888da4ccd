package data

import (
	"database/sql"
	"errors"
	"time"

	"github.com/lib/pq"
)

var (
	// ErrRecordNotFound is returned by Get/Update/Delete when the id does not
	// resolve to a row.
	ErrRecordNotFound = errors.New("record not found")
	// ErrEditConflict is returned when the version read by the caller is stale.
	ErrEditConflict = errors.New("edit conflict")
	// ErrDuplicateUsername is returned when a username is already taken.
	ErrDuplicateUsername = errors.New("duplicate username")
	// ErrDuplicateMembership is returned when the user already has a record for
	// the catalog entry in the same list.
	ErrDuplicateMembership = errors.New("entry already in list")
	// ErrAlreadyWatched is returned when a to-watch record is requested for an
	// entry the user has already watched.
	ErrAlreadyWatched = errors.New("entry already marked watched")
	// ErrNoReference is returned when a membership record references both or
	// neither of movie and tv.
	ErrNoReference = errors.New("must reference exactly one catalog entry")
	// ErrInvalidReference is returned when the referenced catalog entry does not exist.
	ErrInvalidReference = errors.New("catalog entry does not exist")
)

// queryTimeout bounds every database round trip made by the models.
const queryTimeout = 3 * time.Second

// Models is 'container' which can hold and respresent all your database models
type Models struct {
	Movies interface {
		Insert(movie *Movie) error
		Get(id int64) (*Movie, error)
		GetAll(genres []string, filters Filters) ([]*Movie, Metadata, error)
		Update(movie *Movie) error
		Delete(id int64) error
	}
	TV interface {
		Insert(show *TV) error
		Get(id int64) (*TV, error)
		GetAll(genres []string, filters Filters) ([]*TV, Metadata, error)
		Update(show *TV) error
		Delete(id int64) error
	}
	Users interface {
		Insert(user *User) error
		Get(id int64) (*User, error)
		GetByUsername(username string) (*User, error)
		GetAll(filters Filters) ([]*User, Metadata, error)
		Update(user *User) error
		Delete(id int64) error
	}
	Memberships interface {
		Insert(rec *Membership) error
		Get(list List, id int64) (*Membership, error)
		Resolve(list List, id int64) (Kind, error)
		GetAllForUser(list List, userID int64, kind Kind, filters Filters) ([]*Membership, Metadata, error)
		Update(rec *Membership) error
		Delete(list List, id int64) error
	}
}

// NewModels return a Models struct
func NewModels(db *sql.DB) Models {
	return Models{
		Movies:      MovieModel{DB: db},
		TV:          TVModel{DB: db},
		Users:       UserModel{DB: db},
		Memberships: MembershipModel{DB: db},
	}
}

// Postgres error codes the models translate into domain errors.
const (
	pqForeignKeyViolation = "23503"
	pqUniqueViolation     = "23505"
	pqCheckViolation      = "23514"
)

// pqError extracts the *pq.Error wrapped in err, if any.
func pqError(err error) (*pq.Error, bool) {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr, true
	}
	return nil, false
}
