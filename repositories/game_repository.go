package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/lib/pq"
	"github.com/pokernights/poker-tracker/models"
)

var (
	ErrGameNotFound       = errors.New("game not found")
	ErrGameInvalidGroup   = errors.New("invalid group reference")
	ErrGameInvalidCreator = errors.New("invalid creator reference")
)

type GameRepository interface {
	Create(ctx context.Context, exec SQLExecutor, game *models.Game) error
	GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Game, error)
	// GetByIDForUpdate reads the game row with a row lock, so that settlement
	// and concurrent rebuys serialize on the game.
	GetByIDForUpdate(ctx context.Context, exec SQLExecutor, id int) (*models.Game, error)
	GetByIDForShare(ctx context.Context, exec SQLExecutor, id int) (*models.Game, error)
	UpdateLifecycle(ctx context.Context, exec SQLExecutor, game *models.Game) error
}

type postgresGameRepository struct {
	db *sql.DB
}

func NewPostgresGameRepository(db *sql.DB) GameRepository {
	return &postgresGameRepository{db: db}
}

func (r *postgresGameRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

const gameColumns = `id, group_id, created_by, game_type, status, created_at, started_at, finished_at, duration_seconds`

func (r *postgresGameRepository) Create(ctx context.Context, exec SQLExecutor, game *models.Game) error {
	executor := r.getExecutor(exec)
	query := `
		INSERT INTO games (group_id, created_by, game_type, status)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`

	err := executor.QueryRowContext(ctx, query,
		game.GroupID, game.CreatedBy, game.GameType, game.Status,
	).Scan(&game.ID, &game.CreatedAt)

	return r.handleGameError(err)
}

func (r *postgresGameRepository) GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Game, error) {
	return r.getByID(ctx, exec, id, "")
}

func (r *postgresGameRepository) GetByIDForUpdate(ctx context.Context, exec SQLExecutor, id int) (*models.Game, error) {
	return r.getByID(ctx, exec, id, " FOR UPDATE")
}

func (r *postgresGameRepository) GetByIDForShare(ctx context.Context, exec SQLExecutor, id int) (*models.Game, error) {
	return r.getByID(ctx, exec, id, " FOR SHARE")
}

func (r *postgresGameRepository) getByID(ctx context.Context, exec SQLExecutor, id int, lock string) (*models.Game, error) {
	executor := r.getExecutor(exec)
	query := `SELECT ` + gameColumns + ` FROM games WHERE id = $1` + lock

	g := &models.Game{}
	err := executor.QueryRowContext(ctx, query, id).Scan(
		&g.ID, &g.GroupID, &g.CreatedBy, &g.GameType, &g.Status,
		&g.CreatedAt, &g.StartedAt, &g.FinishedAt, &g.DurationSeconds,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrGameNotFound
		}
		return nil, err
	}
	return g, nil
}

// UpdateLifecycle persists status and the lifecycle timestamps together.
func (r *postgresGameRepository) UpdateLifecycle(ctx context.Context, exec SQLExecutor, game *models.Game) error {
	executor := r.getExecutor(exec)
	query := `
		UPDATE games SET
			status = $1,
			started_at = $2,
			finished_at = $3,
			duration_seconds = $4
		WHERE id = $5`

	result, err := executor.ExecContext(ctx, query,
		game.Status, game.StartedAt, game.FinishedAt, game.DurationSeconds, game.ID,
	)
	if err != nil {
		return r.handleGameError(err)
	}
	return checkAffectedRows(result, ErrGameNotFound)
}

func (r *postgresGameRepository) handleGameError(err error) error {
	if err == nil {
		return nil
	}
	if pqErr, ok := err.(*pq.Error); ok {
		if pqErr.Code == "23503" { // foreign_key_violation
			switch pqErr.Constraint {
			case "games_group_id_fkey":
				return ErrGameInvalidGroup
			case "games_created_by_fkey":
				return ErrGameInvalidCreator
			}
		}
	}
	return err
}
