package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/hafizmfadli/film-library/internal/validator"
	"github.com/lib/pq"
	"golang.org/x/crypto/bcrypt"
)

// AnonymousUser represents a request without (valid) credentials.
var AnonymousUser = &User{}

// UserSortSafelist lists the sort values accepted by the user list endpoint.
var UserSortSafelist = []string{"id", "username", "-id", "-username"}

// User is an account. IsSuperuser marks an elevated caller. The trailing id
// slices are derived on read and never written.
type User struct {
	ID          int64     `json:"id"`
	CreatedAt   time.Time `json:"created_at"`
	Username    string    `json:"username"`
	Email       string    `json:"email"`
	FirstName   string    `json:"first_name"`
	LastName    string    `json:"last_name"`
	Password    password  `json:"-"`
	IsSuperuser bool      `json:"is_superuser"`
	IsStaff     bool      `json:"is_staff"`
	IsActive    bool      `json:"is_active"`
	Version     int32     `json:"-"`

	MoviesAdded []int64 `json:"movies_added"`
	TVAdded     []int64 `json:"tv_added"`
	Watched     []int64 `json:"watched"`
	ToWatch     []int64 `json:"to_watch"`
}

// IsAnonymous reports whether u is the AnonymousUser sentinel.
func (u *User) IsAnonymous() bool {
	return u == AnonymousUser
}

type password struct {
	plaintext *string
	hash      []byte
}

// Set calculates the bcrypt hash of a plaintext password.
func (p *password) Set(plaintextPassword string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(plaintextPassword), 12)
	if err != nil {
		return err
	}

	p.plaintext = &plaintextPassword
	p.hash = hash

	return nil
}

// Matches checks whether the provided plaintext password matches the stored hash.
func (p *password) Matches(plaintextPassword string) (bool, error) {
	err := bcrypt.CompareHashAndPassword(p.hash, []byte(plaintextPassword))
	if err != nil {
		switch {
		case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
			return false, nil
		default:
			return false, err
		}
	}

	return true, nil
}

func ValidateEmail(v *validator.Validator, email string) {
	v.Check(validator.Matches(email, validator.EmailRX), "email", "must be a valid email address")
}

func ValidatePasswordPlaintext(v *validator.Validator, password string) {
	v.Check(password != "", "password", "must be provided")
	v.Check(len(password) >= 8, "password", "must be at least 8 bytes long")
	v.Check(len(password) <= 72, "password", "must not be more than 72 bytes long")
}

func ValidateUser(v *validator.Validator, user *User) {
	v.Check(user.Username != "", "username", "must be provided")
	v.Check(utf8.RuneCountInString(user.Username) <= 150, "username", "must not be more than 150 characters long")

	// Email is optional, but must look like an address when given.
	if user.Email != "" {
		ValidateEmail(v, user.Email)
	}

	v.Check(utf8.RuneCountInString(user.FirstName) <= 150, "first_name", "must not be more than 150 characters long")
	v.Check(utf8.RuneCountInString(user.LastName) <= 150, "last_name", "must not be more than 150 characters long")

	if user.Password.plaintext != nil {
		ValidatePasswordPlaintext(v, *user.Password.plaintext)
	}

	// A missing hash here means a bug in the handler, not bad input.
	if user.Password.hash == nil {
		panic("missing password hash for user")
	}
}

type UserModel struct {
	DB *sql.DB
}

func (m UserModel) Insert(user *User) error {
	query := `
		INSERT INTO users (username, email, first_name, last_name, password_hash, is_superuser, is_staff, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at, version`

	args := []any{
		user.Username,
		user.Email,
		user.FirstName,
		user.LastName,
		user.Password.hash,
		user.IsSuperuser,
		user.IsStaff,
		user.IsActive,
	}

	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	err := m.DB.QueryRowContext(ctx, query, args...).Scan(&user.ID, &user.CreatedAt, &user.Version)
	if err != nil {
		return translateUserError(err)
	}

	return nil
}

// userColumns selects a user row together with the ids of the records hanging
// off it, so list and detail responses can link to them.
const userColumns = `
	u.id, u.created_at, u.username, u.email, u.first_name, u.last_name, u.password_hash,
	u.is_superuser, u.is_staff, u.is_active, u.version,
	ARRAY(SELECT id FROM movies WHERE added_by = u.id ORDER BY id),
	ARRAY(SELECT id FROM tv WHERE added_by = u.id ORDER BY id),
	ARRAY(SELECT id FROM watched WHERE user_id = u.id ORDER BY id),
	ARRAY(SELECT id FROM to_watch WHERE user_id = u.id ORDER BY id)`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner, extra ...any) (*User, error) {
	var user User
	dest := append(extra,
		&user.ID,
		&user.CreatedAt,
		&user.Username,
		&user.Email,
		&user.FirstName,
		&user.LastName,
		&user.Password.hash,
		&user.IsSuperuser,
		&user.IsStaff,
		&user.IsActive,
		&user.Version,
		pq.Array(&user.MoviesAdded),
		pq.Array(&user.TVAdded),
		pq.Array(&user.Watched),
		pq.Array(&user.ToWatch),
	)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	return &user, nil
}

func (m UserModel) Get(id int64) (*User, error) {
	if id < 1 {
		return nil, ErrRecordNotFound
	}

	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	row := m.DB.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users u WHERE u.id = $1`, id)
	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRecordNotFound
		}
		return nil, err
	}

	return user, nil
}

func (m UserModel) GetByUsername(username string) (*User, error) {
	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	row := m.DB.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users u WHERE u.username = $1`, username)
	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRecordNotFound
		}
		return nil, err
	}

	return user, nil
}

func (m UserModel) GetAll(filters Filters) ([]*User, Metadata, error) {
	query := fmt.Sprintf(`
		SELECT count(*) OVER(), %s
		FROM users u
		ORDER BY %s
		LIMIT $1 OFFSET $2`, userColumns, filters.orderBy("u"))

	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	rows, err := m.DB.QueryContext(ctx, query, filters.limit(), filters.offset())
	if err != nil {
		return nil, Metadata{}, err
	}
	defer rows.Close()

	totalRecords := 0
	users := []*User{}

	for rows.Next() {
		user, err := scanUser(rows, &totalRecords)
		if err != nil {
			return nil, Metadata{}, err
		}
		users = append(users, user)
	}

	if err = rows.Err(); err != nil {
		return nil, Metadata{}, err
	}

	return users, CalculateMetadata(totalRecords, filters.Page, filters.PageSize), nil
}

func (m UserModel) Update(user *User) error {
	query := `
		UPDATE users
		SET username = $1, email = $2, first_name = $3, last_name = $4, password_hash = $5,
		    is_superuser = $6, is_staff = $7, is_active = $8, version = version + 1
		WHERE id = $9 AND version = $10
		RETURNING version`

	args := []any{
		user.Username,
		user.Email,
		user.FirstName,
		user.LastName,
		user.Password.hash,
		user.IsSuperuser,
		user.IsStaff,
		user.IsActive,
		user.ID,
		user.Version,
	}

	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	err := m.DB.QueryRowContext(ctx, query, args...).Scan(&user.Version)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return ErrEditConflict
		default:
			return translateUserError(err)
		}
	}

	return nil
}

// Delete removes the user together with the catalog entries they added and
// all of their membership records.
func (m UserModel) Delete(id int64) error {
	if id < 1 {
		return ErrRecordNotFound
	}

	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	result, err := m.DB.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return ErrRecordNotFound
	}

	return nil
}

func translateUserError(err error) error {
	if pqErr, ok := pqError(err); ok && pqErr.Code == pqUniqueViolation && pqErr.Constraint == "users_username_key" {
		return ErrDuplicateUsername
	}
	return err
}
