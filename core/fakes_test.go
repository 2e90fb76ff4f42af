package core

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// fakeUserRepo is an in-memory UserRepository for handler and auth tests.
type fakeUserRepo struct {
	users     map[string]*UserRecord // keyed by id
	favorites map[string][]string    // user id -> movie ids, insertion order
	failWith  error                  // when set, every call errors
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{
		users:     map[string]*UserRecord{},
		favorites: map[string][]string{},
	}
}

func (f *fakeUserRepo) add(username, password, email string) *UserRecord {
	hash, err := HashPassword(password)
	if err != nil {
		panic(err)
	}
	u := &UserRecord{
		ID:           uuid.NewString(),
		Username:     username,
		PasswordHash: hash,
		Email:        email,
		Birthday:     time.Date(1990, 1, 2, 0, 0, 0, 0, time.UTC),
		CreatedAt:    time.Now(),
	}
	f.users[u.ID] = u
	return u
}

func (f *fakeUserRepo) record(id string) *UserRecord {
	u, ok := f.users[id]
	if !ok {
		return nil
	}
	cp := *u
	cp.Favorites = append([]string{}, f.favorites[id]...)
	return &cp
}

func (f *fakeUserRepo) FindByUsername(_ context.Context, username string) (*UserRecord, error) {
	if f.failWith != nil {
		return nil, f.failWith
	}
	for id, u := range f.users {
		if u.Username == username {
			return f.record(id), nil
		}
	}
	return nil, nil
}

func (f *fakeUserRepo) FindByID(_ context.Context, id string) (*UserRecord, error) {
	if f.failWith != nil {
		return nil, f.failWith
	}
	return f.record(id), nil
}

func (f *fakeUserRepo) Create(_ context.Context, username, passwordHash, email string, birthday time.Time) (*UserRecord, error) {
	if f.failWith != nil {
		return nil, f.failWith
	}
	for _, u := range f.users {
		if u.Username == username {
			return nil, errors.New("duplicate key value violates unique constraint")
		}
	}
	u := &UserRecord{
		ID:           uuid.NewString(),
		Username:     username,
		PasswordHash: passwordHash,
		Email:        email,
		Birthday:     birthday,
		Favorites:    []string{},
		CreatedAt:    time.Now(),
	}
	f.users[u.ID] = u
	return f.record(u.ID), nil
}

func (f *fakeUserRepo) Update(_ context.Context, id string, input UserUpdateInput) (*UserRecord, error) {
	if f.failWith != nil {
		return nil, f.failWith
	}
	u, ok := f.users[id]
	if !ok {
		return nil, nil
	}
	if input.Username != nil {
		u.Username = *input.Username
	}
	if input.NewPasswordHash != nil {
		u.PasswordHash = *input.NewPasswordHash
	}
	if input.Email != nil {
		u.Email = *input.Email
	}
	if input.Birthday != nil {
		u.Birthday = *input.Birthday
	}
	return f.record(id), nil
}

func (f *fakeUserRepo) Delete(_ context.Context, id string) error {
	if f.failWith != nil {
		return f.failWith
	}
	if _, ok := f.users[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(f.users, id)
	delete(f.favorites, id)
	return nil
}

func (f *fakeUserRepo) List(_ context.Context, page, perPage int) ([]User, int, error) {
	if f.failWith != nil {
		return nil, 0, f.failWith
	}
	all := make([]User, 0, len(f.users))
	for id := range f.users {
		all = append(all, f.record(id).User())
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Username < all[j].Username })
	total := len(all)
	start := (page - 1) * perPage
	if start > total {
		start = total
	}
	end := start + perPage
	if end > total {
		end = total
	}
	return all[start:end], total, nil
}

func (f *fakeUserRepo) AddFavorite(_ context.Context, userID, movieID string) error {
	if f.failWith != nil {
		return f.failWith
	}
	for _, id := range f.favorites[userID] {
		if id == movieID {
			return nil
		}
	}
	f.favorites[userID] = append(f.favorites[userID], movieID)
	return nil
}

func (f *fakeUserRepo) RemoveFavorite(_ context.Context, userID, movieID string) (bool, error) {
	if f.failWith != nil {
		return false, f.failWith
	}
	favorites := f.favorites[userID]
	for i, id := range favorites {
		if id == movieID {
			f.favorites[userID] = append(favorites[:i], favorites[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

// fakeMovieRepo is an in-memory MovieRepository.
type fakeMovieRepo struct {
	movies []Movie
}

func newFakeMovieRepo(movies ...Movie) *fakeMovieRepo {
	for i := range movies {
		if movies[i].ID == "" {
			movies[i].ID = uuid.NewString()
		}
	}
	return &fakeMovieRepo{movies: movies}
}

func (f *fakeMovieRepo) List(context.Context) ([]Movie, error) {
	return append([]Movie{}, f.movies...), nil
}

func (f *fakeMovieRepo) FindByTitle(_ context.Context, title string) (*Movie, error) {
	for _, m := range f.movies {
		if m.Title == title {
			cp := m
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeMovieRepo) FindByID(_ context.Context, id string) (*Movie, error) {
	for _, m := range f.movies {
		if m.ID == id {
			cp := m
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeMovieRepo) GenreByName(_ context.Context, name string) (*Genre, error) {
	for _, m := range f.movies {
		if m.Genre.Name == name {
			g := m.Genre
			return &g, nil
		}
	}
	return nil, nil
}

func (f *fakeMovieRepo) DirectorByName(_ context.Context, name string) (*Director, error) {
	for _, m := range f.movies {
		if m.Director.Name == name {
			d := m.Director
			return &d, nil
		}
	}
	return nil, nil
}

func (f *fakeMovieRepo) CreateBatch(_ context.Context, movies []Movie) (int, error) {
	inserted := 0
outer:
	for _, m := range movies {
		for _, existing := range f.movies {
			if existing.Title == m.Title {
				continue outer
			}
		}
		if m.ID == "" {
			m.ID = uuid.NewString()
		}
		f.movies = append(f.movies, m)
		inserted++
	}
	return inserted, nil
}

func (f *fakeMovieRepo) Count(context.Context) (int, error) {
	return len(f.movies), nil
}
