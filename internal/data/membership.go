package data

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hafizmfadli/film-library/internal/validator"
)

// List names one of the two per-user lists a catalog entry can be on.
type List string

const (
	Watched List = "watched"
	ToWatch List = "to_watch"
)

func (l List) table() string {
	if l == ToWatch {
		return "to_watch"
	}
	return "watched"
}

// MembershipSortSafelist lists the sort values accepted by membership lists.
// Rows are always grouped by user first.
var MembershipSortSafelist = []string{"id", "-id"}

// CatalogRef points at exactly one catalog entry. The zero value references
// nothing and fails validation.
type CatalogRef struct {
	Kind Kind
	ID   int64
}

// NewCatalogRef builds a reference from the two optional foreign keys of a
// membership record. Exactly one of movieID and tvID must be non-nil;
// otherwise the zero CatalogRef is returned.
func NewCatalogRef(movieID, tvID *int64) CatalogRef {
	switch {
	case movieID != nil && tvID == nil:
		return CatalogRef{Kind: KindMovie, ID: *movieID}
	case tvID != nil && movieID == nil:
		return CatalogRef{Kind: KindTV, ID: *tvID}
	default:
		return CatalogRef{}
	}
}

// Valid reports whether r references exactly one catalog entry.
func (r CatalogRef) Valid() bool {
	return (r.Kind == KindMovie || r.Kind == KindTV) && r.ID > 0
}

// ResolveKind decides the kind of a stored record from its foreign keys.
func ResolveKind(movieID, tvID sql.NullInt64) (Kind, error) {
	switch {
	case movieID.Valid && !tvID.Valid:
		return KindMovie, nil
	case tvID.Valid && !movieID.Valid:
		return KindTV, nil
	default:
		return "", ErrNoReference
	}
}

// Membership is a Watched or ToWatch record. Score and Review are only
// meaningful on the watched list.
type Membership struct {
	ID        int64
	CreatedAt time.Time
	List      List
	UserID    int64
	Username  string
	Ref       CatalogRef
	// Title of the referenced entry, filled in on read.
	Title  string
	Score  *float64
	Review *string
}

// MarshalJSON renders the representation for the record's kind and list: a
// movie-kind record exposes "movie", a tv-kind record exposes "tv", and only
// watched records carry score and review.
func (m *Membership) MarshalJSON() ([]byte, error) {
	var movie, tv *int64
	switch m.Ref.Kind {
	case KindMovie:
		movie = &m.Ref.ID
	case KindTV:
		tv = &m.Ref.ID
	default:
		return nil, fmt.Errorf("membership %d: %w", m.ID, ErrNoReference)
	}

	if m.List == ToWatch {
		return json.Marshal(struct {
			ID    int64  `json:"id"`
			User  string `json:"user"`
			Movie *int64 `json:"movie,omitempty"`
			TV    *int64 `json:"tv,omitempty"`
			Title string `json:"title"`
		}{m.ID, m.Username, movie, tv, m.Title})
	}

	return json.Marshal(struct {
		ID     int64    `json:"id"`
		User   string   `json:"user"`
		Movie  *int64   `json:"movie,omitempty"`
		TV     *int64   `json:"tv,omitempty"`
		Title  string   `json:"title"`
		Score  *float64 `json:"score"`
		Review *string  `json:"review"`
	}{m.ID, m.Username, movie, tv, m.Title, m.Score, m.Review})
}

// ValidateMembership checks a candidate record before it is written.
func ValidateMembership(v *validator.Validator, m *Membership) {
	v.Check(m.UserID > 0, "user", "must be provided")
	v.Check(m.Ref.Valid(), "catalog_entry", ErrNoReference.Error())

	switch m.List {
	case Watched:
		ValidateScore(v, "score", m.Score)
	case ToWatch:
		v.Check(m.Score == nil, "score", "is only allowed on watched records")
		v.Check(m.Review == nil, "review", "is only allowed on watched records")
	default:
		v.AddError("list", "must be watched or to_watch")
	}
}

// Conflicts describes the records a user already holds for one catalog entry,
// not counting the record being written.
type Conflicts struct {
	Watched bool
	ToWatch bool
}

// CheckMembershipWrite decides whether a record may be written to list given
// the user's existing records for the same entry. supersede is true when a
// to-watch record must be removed in the same transaction.
func CheckMembershipWrite(list List, c Conflicts) (supersede bool, err error) {
	switch list {
	case Watched:
		if c.Watched {
			return false, ErrDuplicateMembership
		}
		return c.ToWatch, nil
	case ToWatch:
		if c.Watched {
			return false, ErrAlreadyWatched
		}
		if c.ToWatch {
			return false, ErrDuplicateMembership
		}
		return false, nil
	default:
		return false, fmt.Errorf("unknown list %q", list)
	}
}

// MembershipModel stores watched and to_watch rows.
type MembershipModel struct {
	DB *sql.DB
}

// queryer is satisfied by *sql.DB and *sql.Tx.
type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// selectQuery returns the SELECT ... FROM part shared by every membership
// read. lead is prepended to the column list.
func (m MembershipModel) selectQuery(list List, lead string) string {
	extra := `NULL::numeric, NULL::text`
	if list == Watched {
		extra = `r.score, r.review`
	}
	return fmt.Sprintf(`
		SELECT %s r.id, r.created_at, r.user_id, u.username, r.movie_id, r.tv_id,
		       COALESCE(mv.title, t.title, ''), %s
		FROM %s r
		JOIN users u ON u.id = r.user_id
		LEFT JOIN movies mv ON mv.id = r.movie_id
		LEFT JOIN tv t ON t.id = r.tv_id`, lead, extra, list.table())
}

func scanMembership(row rowScanner, list List, extra ...any) (*Membership, error) {
	rec := Membership{List: list}
	var movieID, tvID sql.NullInt64

	dest := append(extra,
		&rec.ID,
		&rec.CreatedAt,
		&rec.UserID,
		&rec.Username,
		&movieID,
		&tvID,
		&rec.Title,
		&rec.Score,
		&rec.Review,
	)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}

	kind, err := ResolveKind(movieID, tvID)
	if err != nil {
		return nil, fmt.Errorf("%s %d: %w", list, rec.ID, err)
	}
	rec.Ref = CatalogRef{Kind: kind}
	if kind == KindMovie {
		rec.Ref.ID = movieID.Int64
	} else {
		rec.Ref.ID = tvID.Int64
	}

	return &rec, nil
}

func (m MembershipModel) get(ctx context.Context, q queryer, list List, id int64) (*Membership, error) {
	row := q.QueryRowContext(ctx, m.selectQuery(list, "")+` WHERE r.id = $1`, id)
	rec, err := scanMembership(row, list)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRecordNotFound
		}
		return nil, err
	}
	return rec, nil
}

func (m MembershipModel) Get(list List, id int64) (*Membership, error) {
	if id < 1 {
		return nil, ErrRecordNotFound
	}

	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	return m.get(ctx, m.DB, list, id)
}

// Resolve reports whether the record stored under id references a movie or a
// tv show.
func (m MembershipModel) Resolve(list List, id int64) (Kind, error) {
	if id < 1 {
		return "", ErrRecordNotFound
	}

	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	var movieID, tvID sql.NullInt64
	query := fmt.Sprintf(`SELECT movie_id, tv_id FROM %s WHERE id = $1`, list.table())

	err := m.DB.QueryRowContext(ctx, query, id).Scan(&movieID, &tvID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrRecordNotFound
		}
		return "", err
	}

	return ResolveKind(movieID, tvID)
}

// GetAllForUser lists a user's records on one list, optionally restricted to
// one kind, ordered by user and then by the filter's sort column.
func (m MembershipModel) GetAllForUser(list List, userID int64, kind Kind, filters Filters) ([]*Membership, Metadata, error) {
	where := ""
	if kind != "" {
		where = fmt.Sprintf(" AND r.%s IS NOT NULL", kind.column())
	}

	query := fmt.Sprintf(`%s
		WHERE r.user_id = $1%s
		ORDER BY r.user_id ASC, %s
		LIMIT $2 OFFSET $3`, m.selectQuery(list, "count(*) OVER(),"), where, filters.orderBy("r"))

	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	rows, err := m.DB.QueryContext(ctx, query, userID, filters.limit(), filters.offset())
	if err != nil {
		return nil, Metadata{}, err
	}
	defer rows.Close()

	totalRecords := 0
	records := []*Membership{}

	for rows.Next() {
		rec, err := scanMembership(rows, list, &totalRecords)
		if err != nil {
			return nil, Metadata{}, err
		}
		records = append(records, rec)
	}

	if err = rows.Err(); err != nil {
		return nil, Metadata{}, err
	}

	return records, CalculateMetadata(totalRecords, filters.Page, filters.PageSize), nil
}

// conflicts reports which of the user's lists already hold ref, ignoring the
// row excludeID on list (zero when inserting).
func (m MembershipModel) conflicts(ctx context.Context, tx *sql.Tx, list List, userID int64, ref CatalogRef, excludeID int64) (Conflicts, error) {
	var watchedExclude, toWatchExclude int64
	if list == Watched {
		watchedExclude = excludeID
	} else {
		toWatchExclude = excludeID
	}

	col := ref.Kind.column()
	query := fmt.Sprintf(`
		SELECT
			EXISTS(SELECT 1 FROM watched WHERE user_id = $1 AND %[1]s = $2 AND id <> $3),
			EXISTS(SELECT 1 FROM to_watch WHERE user_id = $1 AND %[1]s = $2 AND id <> $4)`, col)

	var c Conflicts
	err := tx.QueryRowContext(ctx, query, userID, ref.ID, watchedExclude, toWatchExclude).Scan(&c.Watched, &c.ToWatch)
	return c, err
}

// lockUser serializes membership writes of one user behind the user's row.
func lockUser(ctx context.Context, tx *sql.Tx, userID int64) error {
	var id int64
	err := tx.QueryRowContext(ctx, `SELECT id FROM users WHERE id = $1 FOR UPDATE`, userID).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrRecordNotFound
	}
	return err
}

// prepareWrite runs the invariant checks for a write of rec inside tx and
// removes a superseded to-watch record.
func (m MembershipModel) prepareWrite(ctx context.Context, tx *sql.Tx, rec *Membership, excludeID int64) error {
	if !rec.Ref.Valid() {
		return ErrNoReference
	}

	if err := lockUser(ctx, tx, rec.UserID); err != nil {
		return err
	}

	c, err := m.conflicts(ctx, tx, rec.List, rec.UserID, rec.Ref, excludeID)
	if err != nil {
		return err
	}

	supersede, err := CheckMembershipWrite(rec.List, c)
	if err != nil {
		return err
	}

	if supersede {
		query := fmt.Sprintf(`DELETE FROM to_watch WHERE user_id = $1 AND %s = $2`, rec.Ref.Kind.column())
		if _, err := tx.ExecContext(ctx, query, rec.UserID, rec.Ref.ID); err != nil {
			return err
		}
	}

	return nil
}

func refArgs(ref CatalogRef) (movieID, tvID *int64) {
	id := ref.ID
	if ref.Kind == KindTV {
		return nil, &id
	}
	return &id, nil
}

// Insert writes rec after enforcing the list invariants. Adding a watched
// record removes the user's to-watch record for the same entry; both happen
// in one transaction. On success rec is reloaded with its generated fields.
func (m MembershipModel) Insert(rec *Membership) error {
	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	tx, err := m.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := m.prepareWrite(ctx, tx, rec, 0); err != nil {
		return err
	}

	movieID, tvID := refArgs(rec.Ref)

	var id int64
	if rec.List == Watched {
		err = tx.QueryRowContext(ctx, `
			INSERT INTO watched (user_id, movie_id, tv_id, score, review)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING id`, rec.UserID, movieID, tvID, rec.Score, rec.Review).Scan(&id)
	} else {
		err = tx.QueryRowContext(ctx, `
			INSERT INTO to_watch (user_id, movie_id, tv_id)
			VALUES ($1, $2, $3)
			RETURNING id`, rec.UserID, movieID, tvID).Scan(&id)
	}
	if err != nil {
		return translateMembershipError(err)
	}

	stored, err := m.get(ctx, tx, rec.List, id)
	if err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return translateMembershipError(err)
	}

	*rec = *stored
	return nil
}

// Update rewrites the reference, score and review of an existing record under
// the same invariants as Insert. The record keeps its owner and list.
func (m MembershipModel) Update(rec *Membership) error {
	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	tx, err := m.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := m.prepareWrite(ctx, tx, rec, rec.ID); err != nil {
		return err
	}

	movieID, tvID := refArgs(rec.Ref)

	var result sql.Result
	if rec.List == Watched {
		result, err = tx.ExecContext(ctx, `
			UPDATE watched SET movie_id = $1, tv_id = $2, score = $3, review = $4
			WHERE id = $5 AND user_id = $6`, movieID, tvID, rec.Score, rec.Review, rec.ID, rec.UserID)
	} else {
		result, err = tx.ExecContext(ctx, `
			UPDATE to_watch SET movie_id = $1, tv_id = $2
			WHERE id = $3 AND user_id = $4`, movieID, tvID, rec.ID, rec.UserID)
	}
	if err != nil {
		return translateMembershipError(err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return ErrRecordNotFound
	}

	stored, err := m.get(ctx, tx, rec.List, rec.ID)
	if err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return translateMembershipError(err)
	}

	*rec = *stored
	return nil
}

func (m MembershipModel) Delete(list List, id int64) error {
	if id < 1 {
		return ErrRecordNotFound
	}

	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	result, err := m.DB.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, list.table()), id)
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

// translateMembershipError maps constraint violations raised by concurrent
// writers that slipped past the in-transaction checks.
func translateMembershipError(err error) error {
	pqErr, ok := pqError(err)
	if !ok {
		return err
	}

	switch pqErr.Code {
	case pqUniqueViolation:
		return ErrDuplicateMembership
	case pqForeignKeyViolation:
		return ErrInvalidReference
	case pqCheckViolation:
		return ErrNoReference
	default:
		return err
	}
}
