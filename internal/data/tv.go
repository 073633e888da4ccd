package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/hafizmfadli/film-library/internal/validator"
	"github.com/lib/pq"
)

// TV is a catalog entry for a series.
type TV struct {
	Entry
	NumberOfEpisodes   *int32 `json:"number_of_episodes"`
	AvgEpisodeDuration *int32 `json:"avg_episode_duration"`
}

func ValidateTV(v *validator.Validator, show *TV) {
	validateEntry(v, &show.Entry)
	if show.NumberOfEpisodes != nil {
		v.Check(*show.NumberOfEpisodes >= 1, "number_of_episodes", "must be greater than or equal to 1")
	}
	validateDuration(v, "avg_episode_duration", show.AvgEpisodeDuration)
}

type TVModel struct {
	DB *sql.DB
}

func (m TVModel) Insert(show *TV) error {
	query := `
		WITH ins AS (
			INSERT INTO tv (title, year, rating, genre, number_of_episodes, avg_episode_duration, added_by)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			RETURNING id, created_at, version, added_by
		)
		SELECT ins.id, ins.created_at, ins.version, u.username
		FROM ins JOIN users u ON u.id = ins.added_by`

	args := []any{
		show.Title,
		show.Year,
		show.Rating,
		pq.Array(show.Genres),
		show.NumberOfEpisodes,
		show.AvgEpisodeDuration,
		show.AddedBy,
	}

	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	return m.DB.QueryRowContext(ctx, query, args...).Scan(&show.ID, &show.CreatedAt, &show.Version, &show.AddedByName)
}

func (m TVModel) Get(id int64) (*TV, error) {
	if id < 1 {
		return nil, ErrRecordNotFound
	}

	query := `
		SELECT t.id, t.created_at, t.title, t.year, t.rating, t.genre,
		       t.number_of_episodes, t.avg_episode_duration, t.added_by, u.username, t.version
		FROM tv t
		JOIN users u ON u.id = t.added_by
		WHERE t.id = $1`

	var show TV

	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	err := m.DB.QueryRowContext(ctx, query, id).Scan(
		&show.ID,
		&show.CreatedAt,
		&show.Title,
		&show.Year,
		&show.Rating,
		pq.Array(&show.Genres),
		&show.NumberOfEpisodes,
		&show.AvgEpisodeDuration,
		&show.AddedBy,
		&show.AddedByName,
		&show.Version,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRecordNotFound
		}
		return nil, err
	}

	return &show, nil
}

func (m TVModel) GetAll(genres []string, filters Filters) ([]*TV, Metadata, error) {
	query := fmt.Sprintf(`
		SELECT count(*) OVER(), t.id, t.created_at, t.title, t.year, t.rating, t.genre,
		       t.number_of_episodes, t.avg_episode_duration, t.added_by, u.username, t.version
		FROM tv t
		JOIN users u ON u.id = t.added_by
		WHERE (t.genre @> $1 OR $1 = '{}')
		ORDER BY %s
		LIMIT $2 OFFSET $3`, filters.orderBy("t"))

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
	shows := []*TV{}

	for rows.Next() {
		var show TV

		err := rows.Scan(
			&totalRecords,
			&show.ID,
			&show.CreatedAt,
			&show.Title,
			&show.Year,
			&show.Rating,
			pq.Array(&show.Genres),
			&show.NumberOfEpisodes,
			&show.AvgEpisodeDuration,
			&show.AddedBy,
			&show.AddedByName,
			&show.Version,
		)
		if err != nil {
			return nil, Metadata{}, err
		}

		shows = append(shows, &show)
	}

	if err = rows.Err(); err != nil {
		return nil, Metadata{}, err
	}

	return shows, CalculateMetadata(totalRecords, filters.Page, filters.PageSize), nil
}

func (m TVModel) Update(show *TV) error {
	query := `
		UPDATE tv
		SET title = $1, year = $2, rating = $3, genre = $4,
		    number_of_episodes = $5, avg_episode_duration = $6, version = version + 1
		WHERE id = $7 AND version = $8
		RETURNING version`

	args := []any{
		show.Title,
		show.Year,
		show.Rating,
		pq.Array(show.Genres),
		show.NumberOfEpisodes,
		show.AvgEpisodeDuration,
		show.ID,
		show.Version,
	}

	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	err := m.DB.QueryRowContext(ctx, query, args...).Scan(&show.Version)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrEditConflict
		}
		return err
	}

	return nil
}

func (m TVModel) Delete(id int64) error {
	if id < 1 {
		return ErrRecordNotFound
	}

	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	result, err := m.DB.ExecContext(ctx, `DELETE FROM tv WHERE id = $1`, id)
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
