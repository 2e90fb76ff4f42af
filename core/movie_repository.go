package core

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Genre and Director are embedded movie attributes, not entities of
// their own; the catalog queries them straight off the movie rows.
type Genre struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type Director struct {
	Name  string `json:"name"`
	Bio   string `json:"bio"`
	Birth *int   `json:"birth"`
	Death *int   `json:"death"`
}

type Movie struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Genre       Genre    `json:"genre"`
	Director    Director `json:"director"`
	ImagePath   string   `json:"image_path"`
	Featured    bool     `json:"featured"`
}

// MovieRepository defines read access and seed import for the catalog.
// Single-row lookups return (nil, nil) when nothing matches.
type MovieRepository interface {
	List(ctx context.Context) ([]Movie, error)
	FindByTitle(ctx context.Context, title string) (*Movie, error)
	FindByID(ctx context.Context, id string) (*Movie, error)
	GenreByName(ctx context.Context, name string) (*Genre, error)
	DirectorByName(ctx context.Context, name string) (*Director, error)
	CreateBatch(ctx context.Context, movies []Movie) (int, error)
	Count(ctx context.Context) (int, error)
}

// PgMovieRepository implements MovieRepository using pgxpool.
type PgMovieRepository struct {
	db *pgxpool.Pool
}

func NewPgMovieRepository(db *pgxpool.Pool) *PgMovieRepository {
	return &PgMovieRepository{db: db}
}

const movieColumns = `id, title, description, genre_name, genre_description,
director_name, director_bio, director_birth, director_death, image_path, featured`

func scanMovie(row pgx.Row) (*Movie, error) {
	var m Movie
	err := row.Scan(&m.ID, &m.Title, &m.Description, &m.Genre.Name, &m.Genre.Description,
		&m.Director.Name, &m.Director.Bio, &m.Director.Birth, &m.Director.Death, &m.ImagePath, &m.Featured)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &m, nil
}

func (r *PgMovieRepository) List(ctx context.Context) ([]Movie, error) {
	rows, err := r.db.Query(ctx, `SELECT `+movieColumns+` FROM movies ORDER BY title`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	movies := []Movie{}
	for rows.Next() {
		m, err := scanMovie(rows)
		if err != nil {
			return nil, err
		}
		movies = append(movies, *m)
	}
	return movies, rows.Err()
}

func (r *PgMovieRepository) FindByTitle(ctx context.Context, title string) (*Movie, error) {
	const q = `SELECT ` + movieColumns + ` FROM movies WHERE title=$1`
	return scanMovie(r.db.QueryRow(ctx, q, title))
}

func (r *PgMovieRepository) FindByID(ctx context.Context, id string) (*Movie, error) {
	const q = `SELECT ` + movieColumns + ` FROM movies WHERE id=$1`
	return scanMovie(r.db.QueryRow(ctx, q, id))
}

func (r *PgMovieRepository) GenreByName(ctx context.Context, name string) (*Genre, error) {
	const q = `SELECT genre_name, genre_description FROM movies WHERE genre_name=$1 LIMIT 1`
	var g Genre
	if err := r.db.QueryRow(ctx, q, name).Scan(&g.Name, &g.Description); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &g, nil
}

func (r *PgMovieRepository) DirectorByName(ctx context.Context, name string) (*Director, error) {
	const q = `SELECT director_name, director_bio, director_birth, director_death FROM movies WHERE director_name=$1 LIMIT 1`
	var d Director
	if err := r.db.QueryRow(ctx, q, name).Scan(&d.Name, &d.Bio, &d.Birth, &d.Death); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &d, nil
}

// CreateBatch inserts seed movies inside one transaction; duplicate
// titles are skipped so re-running an import stays idempotent. Returns
// the number of rows actually inserted.
func (r *PgMovieRepository) CreateBatch(ctx context.Context, movies []Movie) (int, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback(ctx)

	const q = `
INSERT INTO movies (id, title, description, genre_name, genre_description,
  director_name, director_bio, director_birth, director_death, image_path, featured)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
ON CONFLICT (title) DO NOTHING
`
	inserted := 0
	for _, m := range movies {
		id := m.ID
		if id == "" {
			id = uuid.NewString()
		}
		tag, err := tx.Exec(ctx, q, id, m.Title, m.Description, m.Genre.Name, m.Genre.Description,
			m.Director.Name, m.Director.Bio, m.Director.Birth, m.Director.Death, m.ImagePath, m.Featured)
		if err != nil {
			return 0, err
		}
		inserted += int(tag.RowsAffected())
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}
	return inserted, nil
}

func (r *PgMovieRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM movies`).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}
