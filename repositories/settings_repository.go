package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/pokernights/poker-tracker/models"
)

var ErrSettingsNotFound = errors.New("game settings not found")

type SettingsRepository interface {
	Create(ctx context.Context, exec SQLExecutor, settings *models.GameSettings) error
	GetByGameID(ctx context.Context, exec SQLExecutor, gameID int) (*models.GameSettings, error)
}

type postgresSettingsRepository struct {
	db *sql.DB
}

func NewPostgresSettingsRepository(db *sql.DB) SettingsRepository {
	return &postgresSettingsRepository{db: db}
}

func (r *postgresSettingsRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresSettingsRepository) Create(ctx context.Context, exec SQLExecutor, s *models.GameSettings) error {
	executor := r.getExecutor(exec)
	query := `
		INSERT INTO game_settings (
			game_id, game_type, currency, buy_in,
			cash_sb, cash_bb,
			allow_rebuy, rebuy_type, min_rebuy, max_rebuy, rebuy_percent, max_rebuys_allowed,
			starting_chips, level_duration, starting_sb, starting_bb,
			enable_late_reg, late_reg_type, late_reg_minutes, late_reg_level,
			allow_straddle, allow_run_it_twice, notes
		) VALUES (
			$1, $2, $3, $4,
			$5, $6,
			$7, $8, $9, $10, $11, $12,
			$13, $14, $15, $16,
			$17, $18, $19, $20,
			$21, $22, $23
		)`

	_, err := executor.ExecContext(ctx, query,
		s.GameID, s.GameType, s.Currency, s.BuyIn,
		s.CashSB, s.CashBB,
		s.AllowRebuy, nullString(string(s.RebuyType)), s.MinRebuy, s.MaxRebuy, s.RebuyPercent, s.MaxRebuysAllowed,
		s.StartingChips, s.LevelDuration, s.StartingSB, s.StartingBB,
		s.EnableLateReg, nullString(string(s.LateRegType)), s.LateRegMinutes, s.LateRegLevel,
		s.AllowStraddle, s.AllowRunItTwice, s.Notes,
	)
	return err
}

func (r *postgresSettingsRepository) GetByGameID(ctx context.Context, exec SQLExecutor, gameID int) (*models.GameSettings, error) {
	executor := r.getExecutor(exec)
	query := `
		SELECT
			game_id, game_type, currency, buy_in,
			cash_sb, cash_bb,
			allow_rebuy, rebuy_type, min_rebuy, max_rebuy, rebuy_percent, max_rebuys_allowed,
			starting_chips, level_duration, starting_sb, starting_bb,
			enable_late_reg, late_reg_type, late_reg_minutes, late_reg_level,
			allow_straddle, allow_run_it_twice, notes
		FROM game_settings
		WHERE game_id = $1`

	s := &models.GameSettings{}
	var rebuyType, lateRegType sql.NullString
	err := executor.QueryRowContext(ctx, query, gameID).Scan(
		&s.GameID, &s.GameType, &s.Currency, &s.BuyIn,
		&s.CashSB, &s.CashBB,
		&s.AllowRebuy, &rebuyType, &s.MinRebuy, &s.MaxRebuy, &s.RebuyPercent, &s.MaxRebuysAllowed,
		&s.StartingChips, &s.LevelDuration, &s.StartingSB, &s.StartingBB,
		&s.EnableLateReg, &lateRegType, &s.LateRegMinutes, &s.LateRegLevel,
		&s.AllowStraddle, &s.AllowRunItTwice, &s.Notes,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSettingsNotFound
		}
		return nil, err
	}
	s.RebuyType = models.RebuyType(rebuyType.String)
	s.LateRegType = models.LateRegType(lateRegType.String)
	return s, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
