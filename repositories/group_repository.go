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
	ErrGroupNotFound      = errors.New("group not found")
	ErrGroupInvalidOwner  = errors.New("invalid group owner reference")
	ErrGroupInvalidMember = errors.New("invalid group member reference")
)

type GroupRepository interface {
	Create(ctx context.Context, exec SQLExecutor, group *models.Group) error
	GetByID(ctx context.Context, id int) (*models.Group, error)
	AddMembers(ctx context.Context, exec SQLExecutor, groupID int, userIDs []int) error
	ListByUser(ctx context.Context, userID int) ([]models.Group, error)
	ListMembers(ctx context.Context, groupID int) ([]models.User, error)
	ListGames(ctx context.Context, groupID int) ([]models.GroupGame, error)
	UpdateLogoKey(ctx context.Context, groupID int, logoKey *string) error
}

type postgresGroupRepository struct {
	db *sql.DB
}

func NewPostgresGroupRepository(db *sql.DB) GroupRepository {
	return &postgresGroupRepository{db: db}
}

func (r *postgresGroupRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresGroupRepository) Create(ctx context.Context, exec SQLExecutor, group *models.Group) error {
	executor := r.getExecutor(exec)
	query := `
		INSERT INTO groups (name, owner_id)
		VALUES ($1, $2)
		RETURNING id, created_at`

	err := executor.QueryRowContext(ctx, query, group.Name, group.OwnerID).
		Scan(&group.ID, &group.CreatedAt)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23503" {
			return ErrGroupInvalidOwner
		}
		return err
	}
	return nil
}

func (r *postgresGroupRepository) GetByID(ctx context.Context, id int) (*models.Group, error) {
	query := `SELECT id, name, owner_id, created_at, logo_key FROM groups WHERE id = $1`

	g := &models.Group{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(&g.ID, &g.Name, &g.OwnerID, &g.CreatedAt, &g.LogoKey)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrGroupNotFound
		}
		return nil, err
	}
	return g, nil
}

func (r *postgresGroupRepository) AddMembers(ctx context.Context, exec SQLExecutor, groupID int, userIDs []int) error {
	if len(userIDs) == 0 {
		return nil
	}
	executor := r.getExecutor(exec)
	query := `INSERT INTO group_members (group_id, user_id) VALUES ($1, $2)`

	for _, userID := range userIDs {
		if _, err := executor.ExecContext(ctx, query, groupID, userID); err != nil {
			if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23503" {
				return fmt.Errorf("%w: user %d", ErrGroupInvalidMember, userID)
			}
			return err
		}
	}
	return nil
}

// ListByUser возвращает группы, где пользователь состоит или которыми владеет.
func (r *postgresGroupRepository) ListByUser(ctx context.Context, userID int) ([]models.Group, error) {
	query := `
		SELECT DISTINCT g.id, g.name, g.owner_id, g.created_at, g.logo_key
		FROM groups g
		LEFT JOIN group_members gm ON gm.group_id = g.id
		WHERE gm.user_id = $1 OR g.owner_id = $1
		ORDER BY g.created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	groups := make([]models.Group, 0)
	for rows.Next() {
		var g models.Group
		if scanErr := rows.Scan(&g.ID, &g.Name, &g.OwnerID, &g.CreatedAt, &g.LogoKey); scanErr != nil {
			return nil, scanErr
		}
		groups = append(groups, g)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return groups, nil
}

func (r *postgresGroupRepository) ListMembers(ctx context.Context, groupID int) ([]models.User, error) {
	query := `
		SELECT u.id, u.first_name, u.last_name, u.username, u.email, u.created_at
		FROM group_members gm
		JOIN users u ON u.id = gm.user_id
		WHERE gm.group_id = $1
		ORDER BY u.username`

	rows, err := r.db.QueryContext(ctx, query, groupID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	members := make([]models.User, 0)
	for rows.Next() {
		var u models.User
		if scanErr := rows.Scan(&u.ID, &u.FirstName, &u.LastName, &u.Username, &u.Email, &u.CreatedAt); scanErr != nil {
			return nil, scanErr
		}
		members = append(members, u)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return members, nil
}

// ListGames возвращает игры группы с последовательным game_number внутри
// группы (порядковый номер по времени создания, по возрастанию).
func (r *postgresGroupRepository) ListGames(ctx context.Context, groupID int) ([]models.GroupGame, error) {
	query := `
		SELECT
			id, group_id, created_by, game_type, status, created_at,
			started_at, finished_at, duration_seconds,
			ROW_NUMBER() OVER (ORDER BY created_at ASC, id ASC) AS game_number
		FROM games
		WHERE group_id = $1
		ORDER BY created_at ASC, id ASC`

	rows, err := r.db.QueryContext(ctx, query, groupID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	games := make([]models.GroupGame, 0)
	for rows.Next() {
		var g models.GroupGame
		if scanErr := rows.Scan(
			&g.ID, &g.GroupID, &g.CreatedBy, &g.GameType, &g.Status, &g.CreatedAt,
			&g.StartedAt, &g.FinishedAt, &g.DurationSeconds, &g.GameNumber,
		); scanErr != nil {
			return nil, scanErr
		}
		games = append(games, g)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return games, nil
}

func (r *postgresGroupRepository) UpdateLogoKey(ctx context.Context, groupID int, logoKey *string) error {
	query := `UPDATE groups SET logo_key = $1 WHERE id = $2`
	result, err := r.db.ExecContext(ctx, query, logoKey, groupID)
	if err != nil {
		return fmt.Errorf("failed to update group logo key: %w", err)
	}
	return checkAffectedRows(result, ErrGroupNotFound)
}
