package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/hafizmfadli/film-library/internal/validator"
	"github.com/lib/pq"
)

type Movie struct {
	Entry
	// Movie runtime (in minutes)
	Duration *int32 `json:"duration"`
}

// ValidateMovie checks movie against the catalog rules. Every failure is
// added to v under the offending field's JSON name.
func ValidateMovie(v *validator.Validator, movie *Movie) {
	validateEntry(v, &movie.Entry)
	validateDuration(v, "duration", movie.Duration)
}

// MovieModel wraps a sql.DB connection pool for the movies table.
type MovieModel struct {
	DB *sql.DB
}

// Insert adds movie and fills in its ID, CreatedAt, AddedByName and Version.
func (m MovieModel) Insert(movie *Movie) error {
	query := `
		WITH ins AS (
			INSERT INTO movies (title, year, rating, genre, duration, added_by)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING id, created_at, version, added_by
		)
		SELECT ins.id, ins.created_at, ins.version, u.username
		FROM ins JOIN users u ON u.id = ins.added_by`

	args := []any{movie.Title, movie.Year, movie.Rating, pq.Array(movie.Genres), movie.Duration, movie.AddedBy}

	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	return m.DB.QueryRowContext(ctx, query, args...).Scan(&movie.ID, &movie.CreatedAt, &movie.Version, &movie.AddedByName)
}

func (m MovieModel) Get(id int64) (*Movie, error) {
	if id < 1 {
		return nil, ErrRecordNotFound
	}

	query := `
		SELECT m.id, m.created_at, m.title, m.year, m.rating, m.genre, m.duration, m.added_by, u.username, m.version
		FROM movies m
		JOIN users u ON u.id = m.added_by
		WHERE m.id = $1`

	var movie Movie

	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	err := m.DB.QueryRowContext(ctx, query, id).Scan(
		&movie.ID,
		&movie.CreatedAt,
		&movie.Title,
		&movie.Year,
		&movie.Rating,
		pq.Array(&movie.Genres),
		&movie.Duration,
		&movie.AddedBy,
		&movie.AddedByName,
		&movie.Version,
	)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, ErrRecordNotFound
		default:
			return nil, err
		}
	}

	return &movie, nil
}

// GetAll returns one page of movies, optionally restricted to those carrying
// every genre in genres.
func (m MovieModel) GetAll(genres []string, filters Filters) ([]*Movie, Metadata, error) {
	query := fmt.Sprintf(`
		SELECT count(*) OVER(), m.id, m.created_at, m.title, m.year, m.rating, m.genre, m.duration, m.added_by, u.username, m.version
		FROM movies m
		JOIN users u ON u.id = m.added_by
		WHERE (m.genre @> $1 OR $1 = '{}')
		ORDER BY %s
		LIMIT $2 OFFSET $3`, filters.orderBy("m"))

	if genres == nil {
		genres = []string{}
	}

	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	rows, err := m.DB.QueryContext(ctx, query, pq.Array(genres), filters.limit(), filters.offset())
	if err != nil {
		return nil, Metadata{}, err
	}
	defer rows.Close()

	totalRecords := 0
	movies := []*Movie{}

	for rows.Next() {
		var movie Movie

		err := rows.Scan(
			&totalRecords,
			&movie.ID,
			&movie.CreatedAt,
			&movie.Title,
			&movie.Year,
			&movie.Rating,
			pq.Array(&movie.Genres),
			&movie.Duration,
			&movie.AddedBy,
			&movie.AddedByName,
			&movie.Version,
		)
		if err != nil {
			return nil, Metadata{}, err
		}

		movies = append(movies, &movie)
	}

	if err = rows.Err(); err != nil {
		return nil, Metadata{}, err
	}

	return movies, CalculateMetadata(totalRecords, filters.Page, filters.PageSize), nil
}

// Update writes movie back if its Version still matches the stored row and
// bumps Version. A stale Version yields ErrEditConflict.
func (m MovieModel) Update(movie *Movie) error {
	query := `
		UPDATE movies
		SET title = $1, year = $2, rating = $3, genre = $4, duration = $5, version = version + 1
		WHERE id = $6 AND version = $7
		RETURNING version`

	args := []any{
		movie.Title,
		movie.Year,
		movie.Rating,
		pq.Array(movie.Genres),
		movie.Duration,
		movie.ID,
		movie.Version,
	}

	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	err := m.DB.QueryRowContext(ctx, query, args...).Scan(&movie.Version)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return ErrEditConflict
		default:
			return err
		}
	}

	return nil
}

// Delete removes the movie; membership records referencing it go with it.
func (m MovieModel) Delete(id int64) error {
	if id < 1 {
		return ErrRecordNotFound
	}

	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	result, err := m.DB.ExecContext(ctx, `DELETE FROM movies WHERE id = $1`, id)
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
