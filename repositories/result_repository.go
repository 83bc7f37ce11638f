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
	ErrResultInvalidUser = errors.New("invalid result user reference")
	ErrResultDuplicate   = errors.New("result already recorded for this player")
)

type ResultRepository interface {
	CreateBatch(ctx context.Context, exec SQLExecutor, results []*models.GameResult) error
	ListByGame(ctx context.Context, exec SQLExecutor, gameID int) ([]models.GameResult, error)
}

type postgresResultRepository struct {
	db *sql.DB
}

func NewPostgresResultRepository(db *sql.DB) ResultRepository {
	return &postgresResultRepository{db: db}
}

func (r *postgresResultRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresResultRepository) CreateBatch(ctx context.Context, exec SQLExecutor, results []*models.GameResult) error {
	executor := r.getExecutor(exec)
	query := `
		INSERT INTO game_results (game_id, user_id, money_in, money_out, profit)
		VALUES ($1, $2, $3, $4, $5)`

	for _, res := range results {
		if _, err := executor.ExecContext(ctx, query,
			res.GameID, res.UserID, res.MoneyIn, res.MoneyOut, res.Profit,
		); err != nil {
			return r.handleResultError(err, res.UserID)
		}
	}
	return nil
}

// ListByGame возвращает таблицу итогов в порядке лидерборда: прибыль по убыванию.
func (r *postgresResultRepository) ListByGame(ctx context.Context, exec SQLExecutor, gameID int) ([]models.GameResult, error) {
	executor := r.getExecutor(exec)
	query := `
		SELECT gr.game_id, gr.user_id, u.username, gr.money_in, gr.money_out, gr.profit
		FROM game_results gr
		JOIN users u ON u.id = gr.user_id
		WHERE gr.game_id = $1
		ORDER BY gr.profit DESC, gr.user_id ASC`

	rows, err := executor.QueryContext(ctx, query, gameID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	results := make([]models.GameResult, 0)
	for rows.Next() {
		var res models.GameResult
		if scanErr := rows.Scan(&res.GameID, &res.UserID, &res.Username, &res.MoneyIn, &res.MoneyOut, &res.Profit); scanErr != nil {
			return nil, scanErr
		}
		results = append(results, res)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

func (r *postgresResultRepository) handleResultError(err error, userID int) error {
	if pqErr, ok := err.(*pq.Error); ok {
		switch pqErr.Code {
		case "23503":
			if pqErr.Constraint == "game_results_user_id_fkey" {
				return fmt.Errorf("%w: user %d", ErrResultInvalidUser, userID)
			}
		case "23505":
			return fmt.Errorf("%w: user %d", ErrResultDuplicate, userID)
		}
	}
	return err
}
