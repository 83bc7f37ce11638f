package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"github.com/pokernights/poker-tracker/models"
)

var (
	ErrPlayerInvalidUser = errors.New("invalid player user reference")
	ErrPlayerDuplicate   = errors.New("player already registered for this game")
)

type PlayerRepository interface {
	CreateBatch(ctx context.Context, exec SQLExecutor, players []*models.GamePlayer) error
	ListByGame(ctx context.Context, exec SQLExecutor, gameID int) ([]models.GamePlayer, error)
	Exists(ctx context.Context, exec SQLExecutor, gameID, userID int) (bool, error)
}

type postgresPlayerRepository struct {
	db *sql.DB
}

func NewPostgresPlayerRepository(db *sql.DB) PlayerRepository {
	return &postgresPlayerRepository{db: db}
}

func (r *postgresPlayerRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresPlayerRepository) CreateBatch(ctx context.Context, exec SQLExecutor, players []*models.GamePlayer) error {
	if len(players) == 0 {
		return nil
	}
	executor := r.getExecutor(exec)
	query := `INSERT INTO game_players (game_id, user_id, starting_stack) VALUES ($1, $2, $3)`

	for _, p := range players {
		if _, err := executor.ExecContext(ctx, query, p.GameID, p.UserID, p.StartingStack); err != nil {
			return r.handlePlayerError(err, p.UserID)
		}
	}
	return nil
}

// ListByGame возвращает состав игры вместе с данными пользователей для
// отображения, отсортированный по username.
func (r *postgresPlayerRepository) ListByGame(ctx context.Context, exec SQLExecutor, gameID int) ([]models.GamePlayer, error) {
	executor := r.getExecutor(exec)
	query := `
		SELECT gp.game_id, gp.user_id, gp.starting_stack, u.username, u.first_name, u.last_name
		FROM game_players gp
		JOIN users u ON u.id = gp.user_id
		WHERE gp.game_id = $1
		ORDER BY u.username`

	rows, err := executor.QueryContext(ctx, query, gameID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	players := make([]models.GamePlayer, 0)
	for rows.Next() {
		var p models.GamePlayer
		if scanErr := rows.Scan(&p.GameID, &p.UserID, &p.StartingStack, &p.Username, &p.FirstName, &p.LastName); scanErr != nil {
			return nil, scanErr
		}
		players = append(players, p)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return players, nil
}

func (r *postgresPlayerRepository) Exists(ctx context.Context, exec SQLExecutor, gameID, userID int) (bool, error) {
	executor := r.getExecutor(exec)
	query := `SELECT EXISTS(SELECT 1 FROM game_players WHERE game_id = $1 AND user_id = $2)`

	var exists bool
	if err := executor.QueryRowContext(ctx, query, gameID, userID).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

func (r *postgresPlayerRepository) handlePlayerError(err error, userID int) error {
	if pqErr, ok := err.(*pq.Error); ok {
		switch pqErr.Code {
		case "23503": // foreign_key_violation
			if pqErr.Constraint == "game_players_user_id_fkey" {
				return fmt.Errorf("%w: user %d", ErrPlayerInvalidUser, userID)
			}
		case "23505": // unique_violation
			return fmt.Errorf("%w: user %d", ErrPlayerDuplicate, userID)
		}
	}
	return err
}
