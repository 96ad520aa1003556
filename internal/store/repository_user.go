package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mkamenev/memobox/internal/logger"
	"github.com/mkamenev/memobox/models"
)

// SQLUserRepository persists user accounts in PostgreSQL.
type SQLUserRepository struct {
	logger *logger.Logger
	db     *DB
}

func NewSQLUserRepository(db *DB, log *logger.Logger) *SQLUserRepository {
	return &SQLUserRepository{logger: log, db: db}
}

func (r *SQLUserRepository) CreateUser(ctx context.Context, user models.User) (models.User, error) {
	log := logger.FromContext(ctx)

	row := r.db.QueryRowContext(ctx, insertUserSQL, user.Login, user.Name, user.PasswordHash, user.CreatedAt)
	if err := row.Scan(&user.UserID); err != nil {
		if isUniqueViolation(err) {
			return models.User{}, fmt.Errorf("%w: login=%s", ErrLoginAlreadyExists, user.Login)
		}
		return models.User{}, fmt.Errorf("%w: %w", ErrSQLExecution, err)
	}

	log.Debug().Str("login", user.Login).Int64("user_id", user.UserID).Msg("user created")
	return user, nil
}

func (r *SQLUserRepository) FindUserByLogin(ctx context.Context, login string) (models.User, error) {
	var user models.User

	row := r.db.QueryRowContext(ctx, selectUserByLoginSQL, login)
	err := row.Scan(&user.UserID, &user.Login, &user.Name, &user.PasswordHash, &user.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, fmt.Errorf("%w: login=%s", ErrNoUserWasFound, login)
	}
	if err != nil {
		return models.User{}, fmt.Errorf("%w: %w", ErrSQLRowScan, err)
	}

	return user, nil
}
