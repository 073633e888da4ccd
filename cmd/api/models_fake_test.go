package main

import (
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/hafizmfadli/film-library/internal/data"
)

// memStore keeps every table in memory and implements the data.Models
// interfaces with the same invariants as the Postgres models.
type memStore struct {
	mu      sync.Mutex
	nextID  int64
	users   map[int64]*data.User
	movies  map[int64]*data.Movie
	tv      map[int64]*data.TV
	watched map[int64]*data.Membership
	toWatch map[int64]*data.Membership
}

func newMemStore() *memStore {
	return &memStore{
		users:   map[int64]*data.User{},
		movies:  map[int64]*data.Movie{},
		tv:      map[int64]*data.TV{},
		watched: map[int64]*data.Membership{},
		toWatch: map[int64]*data.Membership{},
	}
}

func (s *memStore) models() data.Models {
	return data.Models{
		Movies:      memMovies{s},
		TV:          memTV{s},
		Users:       memUsers{s},
		Memberships: memMemberships{s},
	}
}

func (s *memStore) id() int64 {
	s.nextID++
	return s.nextID
}

func (s *memStore) list(list data.List) map[int64]*data.Membership {
	if list == data.ToWatch {
		return s.toWatch
	}
	return s.watched
}

// page applies the offset and limit of f to n items.
func page(n int, f data.Filters) (lo, hi int) {
	lo = min((f.Page-1)*f.PageSize, n)
	hi = min(lo+f.PageSize, n)
	return lo, hi
}

func descending(f data.Filters) bool {
	return strings.HasPrefix(f.Sort, "-")
}

type memUsers struct{ s *memStore }

func (m memUsers) Insert(user *data.User) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	for _, u := range m.s.users {
		if u.Username == user.Username {
			return data.ErrDuplicateUsername
		}
	}

	user.ID = m.s.id()
	user.CreatedAt = time.Now()
	user.Version = 1
	stored := *user
	m.s.users[user.ID] = &stored
	return nil
}

func (m memUsers) Get(id int64) (*data.User, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	u, ok := m.s.users[id]
	if !ok {
		return nil, data.ErrRecordNotFound
	}
	user := *u
	return &user, nil
}

func (m memUsers) GetByUsername(username string) (*data.User, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	for _, u := range m.s.users {
		if u.Username == username {
			user := *u
			return &user, nil
		}
	}
	return nil, data.ErrRecordNotFound
}

func (m memUsers) GetAll(filters data.Filters) ([]*data.User, data.Metadata, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	users := []*data.User{}
	for _, u := range m.s.users {
		user := *u
		users = append(users, &user)
	}
	sort.Slice(users, func(i, j int) bool {
		if descending(filters) {
			return users[i].Username > users[j].Username
		}
		return users[i].Username < users[j].Username
	})

	lo, hi := page(len(users), filters)
	return users[lo:hi], data.CalculateMetadata(len(users), filters.Page, filters.PageSize), nil
}

func (m memUsers) Update(user *data.User) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	stored, ok := m.s.users[user.ID]
	if !ok || stored.Version != user.Version {
		return data.ErrEditConflict
	}
	for _, u := range m.s.users {
		if u.ID != user.ID && u.Username == user.Username {
			return data.ErrDuplicateUsername
		}
	}

	user.Version++
	updated := *user
	m.s.users[user.ID] = &updated
	return nil
}

func (m memUsers) Delete(id int64) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	if _, ok := m.s.users[id]; !ok {
		return data.ErrRecordNotFound
	}
	delete(m.s.users, id)

	for mid, mv := range m.s.movies {
		if mv.AddedBy == id {
			m.s.deleteEntry(data.KindMovie, mid)
		}
	}
	for tid, show := range m.s.tv {
		if show.AddedBy == id {
			m.s.deleteEntry(data.KindTV, tid)
		}
	}
	for _, records := range []map[int64]*data.Membership{m.s.watched, m.s.toWatch} {
		for rid, rec := range records {
			if rec.UserID == id {
				delete(records, rid)
			}
		}
	}
	return nil
}

// deleteEntry removes a catalog entry and the records referencing it. The
// caller holds the lock.
func (s *memStore) deleteEntry(kind data.Kind, id int64) {
	if kind == data.KindMovie {
		delete(s.movies, id)
	} else {
		delete(s.tv, id)
	}

	ref := data.CatalogRef{Kind: kind, ID: id}
	for _, records := range []map[int64]*data.Membership{s.watched, s.toWatch} {
		for rid, rec := range records {
			if rec.Ref == ref {
				delete(records, rid)
			}
		}
	}
}

func hasGenres(have, want []string) bool {
	for _, g := range want {
		if !slices.Contains(have, g) {
			return false
		}
	}
	return true
}

func sortEntries[T any](items []T, entry func(T) *data.Entry, f data.Filters) {
	sort.SliceStable(items, func(i, j int) bool {
		a, b := entry(items[i]), entry(items[j])
		var less bool
		switch strings.TrimPrefix(f.Sort, "-") {
		case "title":
			less = a.Title < b.Title
		case "year":
			less = a.Year < b.Year
		default:
			less = a.ID < b.ID
		}
		if descending(f) {
			return !less
		}
		return less
	})
}

type memMovies struct{ s *memStore }

func (m memMovies) Insert(movie *data.Movie) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	movie.ID = m.s.id()
	movie.CreatedAt = time.Now()
	movie.Version = 1
	movie.AddedByName = m.s.users[movie.AddedBy].Username
	stored := *movie
	m.s.movies[movie.ID] = &stored
	return nil
}

func (m memMovies) Get(id int64) (*data.Movie, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	mv, ok := m.s.movies[id]
	if !ok {
		return nil, data.ErrRecordNotFound
	}
	movie := *mv
	return &movie, nil
}

func (m memMovies) GetAll(genres []string, filters data.Filters) ([]*data.Movie, data.Metadata, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	movies := []*data.Movie{}
	for _, mv := range m.s.movies {
		if hasGenres(mv.Genres, genres) {
			movie := *mv
			movies = append(movies, &movie)
		}
	}
	sortEntries(movies, func(mv *data.Movie) *data.Entry { return &mv.Entry }, filters)

	lo, hi := page(len(movies), filters)
	return movies[lo:hi], data.CalculateMetadata(len(movies), filters.Page, filters.PageSize), nil
}

func (m memMovies) Update(movie *data.Movie) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	stored, ok := m.s.movies[movie.ID]
	if !ok || stored.Version != movie.Version {
		return data.ErrEditConflict
	}
	movie.Version++
	updated := *movie
	m.s.movies[movie.ID] = &updated
	return nil
}

func (m memMovies) Delete(id int64) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	if _, ok := m.s.movies[id]; !ok {
		return data.ErrRecordNotFound
	}
	m.s.deleteEntry(data.KindMovie, id)
	return nil
}

type memTV struct{ s *memStore }

func (m memTV) Insert(show *data.TV) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	show.ID = m.s.id()
	show.CreatedAt = time.Now()
	show.Version = 1
	show.AddedByName = m.s.users[show.AddedBy].Username
	stored := *show
	m.s.tv[show.ID] = &stored
	return nil
}

func (m memTV) Get(id int64) (*data.TV, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	t, ok := m.s.tv[id]
	if !ok {
		return nil, data.ErrRecordNotFound
	}
	show := *t
	return &show, nil
}

func (m memTV) GetAll(genres []string, filters data.Filters) ([]*data.TV, data.Metadata, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	shows := []*data.TV{}
	for _, t := range m.s.tv {
		if hasGenres(t.Genres, genres) {
			show := *t
			shows = append(shows, &show)
		}
	}
	sortEntries(shows, func(t *data.TV) *data.Entry { return &t.Entry }, filters)

	lo, hi := page(len(shows), filters)
	return shows[lo:hi], data.CalculateMetadata(len(shows), filters.Page, filters.PageSize), nil
}

func (m memTV) Update(show *data.TV) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	stored, ok := m.s.tv[show.ID]
	if !ok || stored.Version != show.Version {
		return data.ErrEditConflict
	}
	show.Version++
	updated := *show
	m.s.tv[show.ID] = &updated
	return nil
}

func (m memTV) Delete(id int64) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	if _, ok := m.s.tv[id]; !ok {
		return data.ErrRecordNotFound
	}
	m.s.deleteEntry(data.KindTV, id)
	return nil
}

type memMemberships struct{ s *memStore }

// title returns the referenced entry's title, or false when it does not exist.
func (s *memStore) title(ref data.CatalogRef) (string, bool) {
	if ref.Kind == data.KindTV {
		t, ok := s.tv[ref.ID]
		if !ok {
			return "", false
		}
		return t.Title, true
	}
	mv, ok := s.movies[ref.ID]
	if !ok {
		return "", false
	}
	return mv.Title, true
}

// prepareWrite mirrors MembershipModel.prepareWrite.
func (s *memStore) prepareWrite(rec *data.Membership, excludeID int64) (string, error) {
	if !rec.Ref.Valid() {
		return "", data.ErrNoReference
	}
	user, ok := s.users[rec.UserID]
	if !ok {
		return "", data.ErrRecordNotFound
	}
	title, ok := s.title(rec.Ref)
	if !ok {
		return "", data.ErrInvalidReference
	}

	var c data.Conflicts
	for id, r := range s.watched {
		if r.UserID == rec.UserID && r.Ref == rec.Ref && !(rec.List == data.Watched && id == excludeID) {
			c.Watched = true
		}
	}
	for id, r := range s.toWatch {
		if r.UserID == rec.UserID && r.Ref == rec.Ref && !(rec.List == data.ToWatch && id == excludeID) {
			c.ToWatch = true
		}
	}

	supersede, err := data.CheckMembershipWrite(rec.List, c)
	if err != nil {
		return "", err
	}
	if supersede {
		for id, r := range s.toWatch {
			if r.UserID == rec.UserID && r.Ref == rec.Ref {
				delete(s.toWatch, id)
			}
		}
	}

	rec.Username = user.Username
	return title, nil
}

func (m memMemberships) Insert(rec *data.Membership) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	title, err := m.s.prepareWrite(rec, 0)
	if err != nil {
		return err
	}

	rec.ID = m.s.id()
	rec.CreatedAt = time.Now()
	rec.Title = title
	if rec.List == data.ToWatch {
		rec.Score, rec.Review = nil, nil
	}
	stored := *rec
	m.s.list(rec.List)[rec.ID] = &stored
	return nil
}

func (m memMemberships) Get(list data.List, id int64) (*data.Membership, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	r, ok := m.s.list(list)[id]
	if !ok {
		return nil, data.ErrRecordNotFound
	}
	rec := *r
	rec.Title, _ = m.s.title(rec.Ref)
	return &rec, nil
}

func (m memMemberships) Resolve(list data.List, id int64) (data.Kind, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	r, ok := m.s.list(list)[id]
	if !ok {
		return "", data.ErrRecordNotFound
	}
	return r.Ref.Kind, nil
}

func (m memMemberships) GetAllForUser(list data.List, userID int64, kind data.Kind, filters data.Filters) ([]*data.Membership, data.Metadata, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	records := []*data.Membership{}
	for _, r := range m.s.list(list) {
		if r.UserID != userID || (kind != "" && r.Ref.Kind != kind) {
			continue
		}
		rec := *r
		rec.Title, _ = m.s.title(rec.Ref)
		records = append(records, &rec)
	}
	sort.Slice(records, func(i, j int) bool {
		if descending(filters) {
			return records[i].ID > records[j].ID
		}
		return records[i].ID < records[j].ID
	})

	lo, hi := page(len(records), filters)
	return records[lo:hi], data.CalculateMetadata(len(records), filters.Page, filters.PageSize), nil
}

func (m memMemberships) Update(rec *data.Membership) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	stored, ok := m.s.list(rec.List)[rec.ID]
	if !ok || stored.UserID != rec.UserID {
		return data.ErrRecordNotFound
	}

	title, err := m.s.prepareWrite(rec, rec.ID)
	if err != nil {
		return err
	}

	rec.CreatedAt = stored.CreatedAt
	rec.Title = title
	updated := *rec
	m.s.list(rec.List)[rec.ID] = &updated
	return nil
}

func (m memMemberships) Delete(list data.List, id int64) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	records := m.s.list(list)
	if _, ok := records[id]; !ok {
		return data.ErrRecordNotFound
	}
	delete(records, id)
	return nil
}
