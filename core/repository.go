package core

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// UserRecord is the full persistence projection, including the hash.
// It stays inside the repository/auth layer; handlers only ever see User.
type UserRecord struct {
	ID           string
	Username     string
	PasswordHash string
	Email        string
	Birthday     time.Time
	Favorites    []string // favorite movie ids, oldest first
	CreatedAt    time.Time
}

// User strips the credential from a record.
func (r *UserRecord) User() User {
	favorites := r.Favorites
	if favorites == nil {
		favorites = []string{}
	}
	return User{
		ID:        r.ID,
		Username:  r.Username,
		Email:     r.Email,
		Birthday:  r.Birthday,
		Favorites: favorites,
		CreatedAt: r.CreatedAt,
	}
}

// UserUpdateInput carries a partial update; nil fields keep current values.
// NewPasswordHash must already be hashed by the caller.
type UserUpdateInput struct {
	Username        *string
	NewPasswordHash *string
	Email           *string
	Birthday        *time.Time
}

// UserRepository defines persistence operations for users. Lookups
// return (nil, nil) when no row matches; errors are reserved for the
// store itself failing.
type UserRepository interface {
	FindByUsername(ctx context.Context, username string) (*UserRecord, error)
	FindByID(ctx context.Context, id string) (*UserRecord, error)
	Create(ctx context.Context, username, passwordHash, email string, birthday time.Time) (*UserRecord, error)
	Update(ctx context.Context, id string, input UserUpdateInput) (*UserRecord, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, page, perPage int) ([]User, int, error)
	AddFavorite(ctx context.Context, userID, movieID string) error
	RemoveFavorite(ctx context.Context, userID, movieID string) (bool, error)
}

// PgUserRepository implements UserRepository using pgxpool.
type PgUserRepository struct {
	db *pgxpool.Pool
}

func NewPgUserRepository(db *pgxpool.Pool) *PgUserRepository {
	return &PgUserRepository{db: db}
}

func (r *PgUserRepository) FindByUsername(ctx context.Context, username string) (*UserRecord, error) {
	const q = `SELECT id, username, password_hash, email, birthday, created_at FROM users WHERE username=$1`
	return r.findOne(ctx, q, username)
}

func (r *PgUserRepository) FindByID(ctx context.Context, id string) (*UserRecord, error) {
	const q = `SELECT id, username, password_hash, email, birthday, created_at FROM users WHERE id=$1`
	return r.findOne(ctx, q, id)
}

func (r *PgUserRepository) findOne(ctx context.Context, q string, arg any) (*UserRecord, error) {
	var u UserRecord
	if err := r.db.QueryRow(ctx, q, arg).Scan(&u.ID, &u.Username, &u.PasswordHash, &u.Email, &u.Birthday, &u.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	favorites, err := r.listFavoriteIDs(ctx, u.ID)
	if err != nil {
		return nil, err
	}
	u.Favorites = favorites
	return &u, nil
}

func (r *PgUserRepository) listFavoriteIDs(ctx context.Context, userID string) ([]string, error) {
	const q = `SELECT movie_id FROM user_favorites WHERE user_id=$1 ORDER BY added_at, movie_id`
	rows, err := r.db.Query(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *PgUserRepository) Create(ctx context.Context, username, passwordHash, email string, birthday time.Time) (*UserRecord, error) {
	const q = `INSERT INTO users (id, username, password_hash, email, birthday) VALUES ($1,$2,$3,$4,$5) RETURNING created_at`
	u := UserRecord{
		ID:           uuid.NewString(),
		Username:     username,
		PasswordHash: passwordHash,
		Email:        email,
		Birthday:     birthday,
		Favorites:    []string{},
	}
	if err := r.db.QueryRow(ctx, q, u.ID, username, passwordHash, email, birthday).Scan(&u.CreatedAt); err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *PgUserRepository) Update(ctx context.Context, id string, input UserUpdateInput) (*UserRecord, error) {
	const q = `
UPDATE users SET
  username      = COALESCE($2, username),
  password_hash = COALESCE($3, password_hash),
  email         = COALESCE($4, email),
  birthday      = COALESCE($5, birthday)
WHERE id=$1
RETURNING id, username, password_hash, email, birthday, created_at
`
	var u UserRecord
	err := r.db.QueryRow(ctx, q, id, input.Username, input.NewPasswordHash, input.Email, input.Birthday).
		Scan(&u.ID, &u.Username, &u.PasswordHash, &u.Email, &u.Birthday, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	favorites, err := r.listFavoriteIDs(ctx, u.ID)
	if err != nil {
		return nil, err
	}
	u.Favorites = favorites
	return &u, nil
}

func (r *PgUserRepository) Delete(ctx context.Context, id string) error {
	// user_favorites rows cascade via FK.
	const q = `DELETE FROM users WHERE id=$1`
	tag, err := r.db.Exec(ctx, q, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// List returns paginated users without password hashes.
func (r *PgUserRepository) List(ctx context.Context, page, perPage int) ([]User, int, error) {
	if page <= 0 || perPage <= 0 {
		return nil, 0, errors.New("invalid pagination")
	}
	const countQ = `SELECT COUNT(*) FROM users`
	var total int
	if err := r.db.QueryRow(ctx, countQ).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.db.Query(ctx, `SELECT id, username, email, birthday, created_at FROM users ORDER BY username LIMIT $1 OFFSET $2`, perPage, (page-1)*perPage)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	items := make([]User, 0, perPage)
	for rows.Next() {
		var u User
		if err := rows.Scan(&u.ID, &u.Username, &u.Email, &u.Birthday, &u.CreatedAt); err != nil {
			return nil, 0, err
		}
		u.Favorites = []string{}
		items = append(items, u)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	for i := range items {
		favorites, err := r.listFavoriteIDs(ctx, items[i].ID)
		if err != nil {
			return nil, 0, err
		}
		items[i].Favorites = favorites
	}
	return items, total, nil
}

// AddFavorite appends a movie to the user's favorites. Adding a movie
// that is already present is a no-op so the list stays a set.
func (r *PgUserRepository) AddFavorite(ctx context.Context, userID, movieID string) error {
	const q = `INSERT INTO user_favorites (user_id, movie_id) VALUES ($1,$2) ON CONFLICT DO NOTHING`
	_, err := r.db.Exec(ctx, q, userID, movieID)
	return err
}

// RemoveFavorite deletes the favorite and reports whether it existed.
func (r *PgUserRepository) RemoveFavorite(ctx context.Context, userID, movieID string) (bool, error) {
	const q = `DELETE FROM user_favorites WHERE user_id=$1 AND movie_id=$2`
	tag, err := r.db.Exec(ctx, q, userID, movieID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}
