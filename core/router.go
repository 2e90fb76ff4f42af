package core

import (
	"errors"
	"fmt"
	"net/http"
	"net/mail"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

// NewRouter constructs the Gin engine with routes wired. db and
// redisClient are only consulted by /healthz and may be nil in tests.
func NewRouter(cfg Config, authService AuthService, tokens *TokenService, userRepo UserRepository, movieRepo MovieRepository, cache *CatalogCache, db *pgxpool.Pool, redisClient *redis.Client) *gin.Engine {
	startedAt := time.Now()
	r := gin.Default()

	r.Use(CORSMiddleware(cfg))

	r.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"name": "movie-catalog-api", "docs": "/movies"})
	})

	r.GET("/healthz", func(c *gin.Context) {
		st := CollectSystemStatus(c.Request.Context(), db, redisClient, startedAt)
		status := http.StatusOK
		if st.Status != "ok" {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, st)
	})

	r.POST("/users", func(c *gin.Context) {
		var req struct {
			Username string `json:"username"`
			Password string `json:"password"`
			Email    string `json:"email"`
			Birthday string `json:"birthday"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "invalid json")
			return
		}

		req.Username = strings.TrimSpace(req.Username)
		req.Email = strings.TrimSpace(req.Email)
		birthday, verr := validateRegistration(req.Username, req.Password, req.Email, req.Birthday)
		if verr != "" {
			respondError(c, http.StatusUnprocessableEntity, "VALIDATION_ERROR", verr)
			return
		}

		ctx := c.Request.Context()
		existing, err := userRepo.FindByUsername(ctx, req.Username)
		if err != nil {
			respondError(c, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "failed to check username")
			return
		}
		if existing != nil {
			respondError(c, http.StatusConflict, "CONFLICT", "username already in use")
			return
		}

		hash, err := HashPassword(req.Password)
		if err != nil {
			respondError(c, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "failed to hash password")
			return
		}

		record, err := userRepo.Create(ctx, req.Username, hash, req.Email, birthday)
		if err != nil {
			// unique index races past the pre-check under concurrency
			if strings.Contains(err.Error(), "duplicate") || strings.Contains(err.Error(), "unique") {
				respondError(c, http.StatusConflict, "CONFLICT", "username already in use")
				return
			}
			respondError(c, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "failed to create user")
			return
		}
		c.JSON(http.StatusCreated, record.User())
	})

	r.POST("/login", LoginRateLimitMiddleware(cfg), func(c *gin.Context) {
		var req struct {
			Username string `json:"username"`
			Password string `json:"password"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"message": "Something is not right", "user": nil})
			return
		}

		user, err := authService.Authenticate(req.Username, req.Password)
		if err != nil {
			if errors.Is(err, ErrInternal) {
				respondError(c, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "login unavailable")
				return
			}
			// Same body for unknown user and wrong password.
			c.JSON(http.StatusBadRequest, gin.H{"message": "Something is not right", "user": nil})
			return
		}

		token, err := tokens.Issue(user)
		if err != nil {
			respondError(c, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "failed to issue token")
			return
		}
		c.JSON(http.StatusOK, gin.H{"user": user, "token": token})
	})

	authed := r.Group("/")
	authed.Use(AuthRequired(tokens))
	{
		authed.GET("/movies", func(c *gin.Context) {
			ctx := c.Request.Context()
			if movies, ok := cache.GetMovies(ctx); ok {
				c.JSON(http.StatusOK, movies)
				return
			}
			movies, err := movieRepo.List(ctx)
			if err != nil {
				respondError(c, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "failed to fetch movies")
				return
			}
			cache.SetMovies(ctx, movies)
			c.JSON(http.StatusOK, movies)
		})

		authed.GET("/movies/:title", func(c *gin.Context) {
			movie, err := movieRepo.FindByTitle(c.Request.Context(), c.Param("title"))
			if err != nil {
				respondError(c, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "failed to fetch movie")
				return
			}
			if movie == nil {
				respondError(c, http.StatusNotFound, "NOT_FOUND", "movie not found")
				return
			}
			c.JSON(http.StatusOK, movie)
		})

		authed.GET("/genres/:genreName", func(c *gin.Context) {
			genre, err := movieRepo.GenreByName(c.Request.Context(), c.Param("genreName"))
			if err != nil {
				respondError(c, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "failed to fetch genre")
				return
			}
			if genre == nil {
				respondError(c, http.StatusNotFound, "NOT_FOUND", "genre not found")
				return
			}
			c.JSON(http.StatusOK, genre)
		})

		authed.GET("/directors/:directorName", func(c *gin.Context) {
			director, err := movieRepo.DirectorByName(c.Request.Context(), c.Param("directorName"))
			if err != nil {
				respondError(c, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "failed to fetch director")
				return
			}
			if director == nil {
				respondError(c, http.StatusNotFound, "NOT_FOUND", "director not found")
				return
			}
			c.JSON(http.StatusOK, director)
		})

		authed.GET("/users", func(c *gin.Context) {
			page, perPage, err := parsePagination(c.Query("page"), c.Query("per_page"))
			if err != nil {
				respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
				return
			}
			items, total, err := userRepo.List(c.Request.Context(), page, perPage)
			if err != nil {
				respondError(c, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "failed to fetch users")
				return
			}
			c.JSON(http.StatusOK, gin.H{
				"items":       items,
				"page":        page,
				"per_page":    perPage,
				"total_items": total,
				"total_pages": calcTotalPages(total, perPage),
			})
		})

		authed.GET("/users/me", func(c *gin.Context) {
			user, _ := CurrentUser(c)
			c.JSON(http.StatusOK, user)
		})

		owner := authed.Group("/users/:username")
		owner.Use(RequireSelf(cfg))
		{
			owner.PUT("", func(c *gin.Context) {
				var req struct {
					Username *string `json:"username"`
					Password *string `json:"password"`
					Email    *string `json:"email"`
					Birthday *string `json:"birthday"`
				}
				if err := c.ShouldBindJSON(&req); err != nil {
					respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "invalid json")
					return
				}

				input, verr := buildUpdateInput(req.Username, req.Password, req.Email, req.Birthday)
				if verr != "" {
					respondError(c, http.StatusUnprocessableEntity, "VALIDATION_ERROR", verr)
					return
				}

				user, _ := CurrentUser(c)
				updated, err := userRepo.Update(c.Request.Context(), user.ID, input)
				if err != nil {
					if strings.Contains(err.Error(), "duplicate") || strings.Contains(err.Error(), "unique") {
						respondError(c, http.StatusConflict, "CONFLICT", "username already in use")
						return
					}
					respondError(c, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "failed to update user")
					return
				}
				if updated == nil {
					respondError(c, http.StatusNotFound, "NOT_FOUND", "user not found")
					return
				}
				c.JSON(http.StatusOK, updated.User())
			})

			owner.DELETE("", func(c *gin.Context) {
				user, _ := CurrentUser(c)
				if err := userRepo.Delete(c.Request.Context(), user.ID); err != nil {
					if errors.Is(err, pgx.ErrNoRows) {
						respondError(c, http.StatusNotFound, "NOT_FOUND", "user not found")
						return
					}
					respondError(c, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "failed to delete user")
					return
				}
				c.JSON(http.StatusOK, gin.H{"message": fmt.Sprintf("Account for %s has been deleted.", user.Email)})
			})

			owner.PUT("/favorites/:title", func(c *gin.Context) {
				title := c.Param("title")
				user, _ := CurrentUser(c)
				ctx := c.Request.Context()

				// existence checks run before any mutation; a miss at
				// either step leaves the favorites untouched
				movie, err := movieRepo.FindByTitle(ctx, title)
				if err != nil {
					respondError(c, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "failed to fetch movie")
					return
				}
				if movie == nil {
					respondError(c, http.StatusNotFound, "NOT_FOUND", "movie not found")
					return
				}

				if err := userRepo.AddFavorite(ctx, user.ID, movie.ID); err != nil {
					respondError(c, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "failed to add favorite")
					return
				}
				c.JSON(http.StatusOK, gin.H{"message": fmt.Sprintf("%s has been added to %s's favorites.", movie.Title, user.Username)})
			})

			owner.DELETE("/favorites/:title", func(c *gin.Context) {
				title := c.Param("title")
				user, _ := CurrentUser(c)
				ctx := c.Request.Context()

				movie, err := movieRepo.FindByTitle(ctx, title)
				if err != nil {
					respondError(c, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "failed to fetch movie")
					return
				}
				if movie == nil {
					respondError(c, http.StatusNotFound, "NOT_FOUND", "movie not found")
					return
				}

				removed, err := userRepo.RemoveFavorite(ctx, user.ID, movie.ID)
				if err != nil {
					respondError(c, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "failed to remove favorite")
					return
				}
				if !removed {
					respondError(c, http.StatusNotFound, "NOT_FOUND", fmt.Sprintf("%s is not in %s's favorites", movie.Title, user.Username))
					return
				}
				c.JSON(http.StatusOK, gin.H{"message": fmt.Sprintf("%s has been removed from %s's favorites.", movie.Title, user.Username)})
			})
		}
	}

	return r
}

const minUsernameLen = 5

func validateRegistration(username, password, email, birthday string) (time.Time, string) {
	if len(username) < minUsernameLen {
		return time.Time{}, fmt.Sprintf("username must be at least %d characters long", minUsernameLen)
	}
	if !isAlphanumeric(username) {
		return time.Time{}, "username can only contain alphanumeric characters"
	}
	if password == "" {
		return time.Time{}, "password is required"
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return time.Time{}, "email is not valid"
	}
	if strings.TrimSpace(birthday) == "" {
		return time.Time{}, "birthday is required"
	}
	day, err := parseBirthday(birthday)
	if err != nil {
		return time.Time{}, "birthday must be a date (YYYY-MM-DD)"
	}
	return day, ""
}

// buildUpdateInput validates the provided fields of a partial update and
// hashes a new password before it ever reaches the repository.
func buildUpdateInput(username, password, email, birthday *string) (UserUpdateInput, string) {
	var input UserUpdateInput
	if username != nil {
		name := strings.TrimSpace(*username)
		if len(name) < minUsernameLen {
			return input, fmt.Sprintf("username must be at least %d characters long", minUsernameLen)
		}
		if !isAlphanumeric(name) {
			return input, "username can only contain alphanumeric characters"
		}
		input.Username = &name
	}
	if password != nil {
		if *password == "" {
			return input, "password must not be empty"
		}
		hash, err := HashPassword(*password)
		if err != nil {
			return input, "password could not be processed"
		}
		input.NewPasswordHash = &hash
	}
	if email != nil {
		addr := strings.TrimSpace(*email)
		if _, err := mail.ParseAddress(addr); err != nil {
			return input, "email is not valid"
		}
		input.Email = &addr
	}
	if birthday != nil {
		day, err := parseBirthday(*birthday)
		if err != nil {
			return input, "birthday must be a date (YYYY-MM-DD)"
		}
		input.Birthday = &day
	}
	if input.Username == nil && input.NewPasswordHash == nil && input.Email == nil && input.Birthday == nil {
		return input, "nothing to update"
	}
	return input, ""
}

func parseBirthday(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, s)
}

func isAlphanumeric(s string) bool {
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		default:
			return false
		}
	}
	return s != ""
}

const (
	defaultPerPage = 20
	maxPerPage     = 100
)

func parsePagination(pageStr, perPageStr string) (int, int, error) {
	page := 1
	perPage := defaultPerPage
	if strings.TrimSpace(pageStr) != "" {
		p, err := strconv.Atoi(pageStr)
		if err != nil || p <= 0 {
			return 0, 0, errors.New("page must be a positive integer")
		}
		page = p
	}
	if strings.TrimSpace(perPageStr) != "" {
		p, err := strconv.Atoi(perPageStr)
		if err != nil || p <= 0 {
			return 0, 0, errors.New("per_page must be a positive integer")
		}
		if p > maxPerPage {
			p = maxPerPage
		}
		perPage = p
	}
	return page, perPage, nil
}

func calcTotalPages(total, perPage int) int {
	if perPage <= 0 {
		return 0
	}
	return (total + perPage - 1) / perPage
}
