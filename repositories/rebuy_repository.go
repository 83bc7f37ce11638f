package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/lib/pq"
	"github.com/pokernights/poker-tracker/models"
)

var (
	ErrRebuyInvalidGame = errors.New("invalid rebuy game reference")
	ErrRebuyInvalidUser = errors.New("invalid rebuy user reference")
)

type RebuyRepository interface {
	Create(ctx context.Context, exec SQLExecutor, rebuy *models.Rebuy) error
	CountByGameAndUser(ctx context.Context, exec SQLExecutor, gameID, userID int) (int, error)
	AggregateByGame(ctx context.Context, exec SQLExecutor, gameID int) ([]models.RebuyTotal, error)
	HistoryByGame(ctx context.Context, exec SQLExecutor, gameID int) ([]models.RebuyHistoryEntry, error)
}

type postgresRebuyRepository struct {
	db *sql.DB
}

func NewPostgresRebuyRepository(db *sql.DB) RebuyRepository {
	return &postgresRebuyRepository{db: db}
}

func (r *postgresRebuyRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresRebuyRepository) Create(ctx context.Context, exec SQLExecutor, rebuy *models.Rebuy) error {
	executor := r.getExecutor(exec)
	query := `
		INSERT INTO rebuys (game_id, user_id, amount)
		VALUES ($1, $2, $3)
		RETURNING id, created_at`

	err := executor.QueryRowContext(ctx, query, rebuy.GameID, rebuy.UserID, rebuy.Amount).
		Scan(&rebuy.ID, &rebuy.CreatedAt)
	return r.handleRebuyError(err)
}

func (r *postgresRebuyRepository) CountByGameAndUser(ctx context.Context, exec SQLExecutor, gameID, userID int) (int, error) {
	executor := r.getExecutor(exec)
	query := `SELECT COUNT(*) FROM rebuys WHERE game_id = $1 AND user_id = $2`

	var count int
	if err := executor.QueryRowContext(ctx, query, gameID, userID).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

// AggregateByGame группирует ребаи по игроку: количество и сумма.
func (r *postgresRebuyRepository) AggregateByGame(ctx context.Context, exec SQLExecutor, gameID int) ([]models.RebuyTotal, error) {
	executor := r.getExecutor(exec)
	query := `
		SELECT user_id, COUNT(*), COALESCE(SUM(amount), 0)
		FROM rebuys
		WHERE game_id = $1
		GROUP BY user_id
		ORDER BY user_id`

	rows, err := executor.QueryContext(ctx, query, gameID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	totals := make([]models.RebuyTotal, 0)
	for rows.Next() {
		var t models.RebuyTotal
		if scanErr := rows.Scan(&t.UserID, &t.Count, &t.Total); scanErr != nil {
			return nil, scanErr
		}
		totals = append(totals, t)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return totals, nil
}

// HistoryByGame возвращает полный журнал ребаев по возрастанию created_at.
// seconds_from_start вычисляется относительно games.started_at и равен NULL,
// если игра ещё не была запущена.
func (r *postgresRebuyRepository) HistoryByGame(ctx context.Context, exec SQLExecutor, gameID int) ([]models.RebuyHistoryEntry, error) {
	executor := r.getExecutor(exec)
	query := `
		SELECT
			r.id, r.user_id, u.username, r.amount, r.created_at,
			EXTRACT(EPOCH FROM (r.created_at - g.started_at))::bigint AS seconds_from_start
		FROM rebuys r
		JOIN users u ON u.id = r.user_id
		JOIN games g ON g.id = r.game_id
		WHERE r.game_id = $1
		ORDER BY r.created_at ASC, r.id ASC`

	rows, err := executor.QueryContext(ctx, query, gameID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	history := make([]models.RebuyHistoryEntry, 0)
	for rows.Next() {
		var e models.RebuyHistoryEntry
		if scanErr := rows.Scan(&e.ID, &e.UserID, &e.Username, &e.Amount, &e.CreatedAt, &e.SecondsFromStart); scanErr != nil {
			return nil, scanErr
		}
		history = append(history, e)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return history, nil
}

func (r *postgresRebuyRepository) handleRebuyError(err error) error {
	if err == nil {
		return nil
	}
	if pqErr, ok := err.(*pq.Error); ok {
		if pqErr.Code == "23503" {
			switch pqErr.Constraint {
			case "rebuys_game_id_fkey":
				return ErrRebuyInvalidGame
			case "rebuys_user_id_fkey":
				return ErrRebuyInvalidUser
			}
		}
	}
	return err
}
