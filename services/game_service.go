package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/coder/quartz"
	"github.com/pokernights/poker-tracker/models"
	"github.com/pokernights/poker-tracker/repositories"
)

// Live event types pushed to the game's websocket room.
const (
	EventGameStatusUpdated = "GAME_STATUS_UPDATED"
	EventRebuyAdded        = "REBUY_ADDED"
	EventGameFinished      = "GAME_FINISHED"
)

// LiveBroadcaster publishes game events to connected clients. A nil
// broadcaster disables live updates.
type LiveBroadcaster interface {
	BroadcastToGame(gameID int, eventType string, payload interface{})
}

type CreateGameInput struct {
	GroupID   int                 `json:"groupId"`
	CreatedBy int                 `json:"createdBy"`
	PlayerIDs []int               `json:"playerIds"`
	Settings  models.GameSettings `json:"settings"`
}

type GameResultInput struct {
	UserID   int `json:"userId"`
	MoneyIn  int `json:"moneyIn"`
	MoneyOut int `json:"moneyOut"`
	Profit   int `json:"profit"`
}

// FinishGameInput carries the settlement rows. DurationSeconds is accepted
// for wire compatibility with older clients but the stored duration is always
// recomputed from the game's own timestamps.
type FinishGameInput struct {
	Results         []GameResultInput `json:"results"`
	DurationSeconds *int64            `json:"durationSeconds,omitempty"`
}

// GameService — контроллер жизненного цикла игры: создание, статусы, журнал
// ребаев и финальный расчёт.
type GameService interface {
	CreateGame(ctx context.Context, input CreateGameInput) (*models.Game, error)
	GetGameByID(ctx context.Context, gameID int) (*models.Game, error)
	GetGameSettings(ctx context.Context, gameID int) (*models.GameSettings, error)
	GetGamePlayers(ctx context.Context, gameID int) ([]models.GamePlayer, error)
	UpdateGameStatus(ctx context.Context, gameID int, status models.GameStatus) (*models.Game, error)
	AddRebuy(ctx context.Context, gameID, userID, amount int) (*models.Rebuy, error)
	GetGameRebuys(ctx context.Context, gameID int) ([]models.RebuyTotal, error)
	GetGameRebuyHistory(ctx context.Context, gameID int) ([]models.RebuyHistoryEntry, error)
	FinishGame(ctx context.Context, gameID int, input FinishGameInput) error
	GetGameResults(ctx context.Context, gameID int) ([]models.GameResult, error)
}

type gameService struct {
	db           *sql.DB
	gameRepo     repositories.GameRepository
	settingsRepo repositories.SettingsRepository
	playerRepo   repositories.PlayerRepository
	rebuyRepo    repositories.RebuyRepository
	resultRepo   repositories.ResultRepository
	live         LiveBroadcaster
	logger       *slog.Logger
	clock        quartz.Clock
}

func NewGameService(
	db *sql.DB,
	gameRepo repositories.GameRepository,
	settingsRepo repositories.SettingsRepository,
	playerRepo repositories.PlayerRepository,
	rebuyRepo repositories.RebuyRepository,
	resultRepo repositories.ResultRepository,
	live LiveBroadcaster,
	logger *slog.Logger,
	clock quartz.Clock,
) GameService {
	if clock == nil {
		clock = quartz.NewReal()
	}
	return &gameService{
		db:           db,
		gameRepo:     gameRepo,
		settingsRepo: settingsRepo,
		playerRepo:   playerRepo,
		rebuyRepo:    rebuyRepo,
		resultRepo:   resultRepo,
		live:         live,
		logger:       logger,
		clock:        clock,
	}
}

// CreateGame вставляет игру, её настройки и состав одной транзакцией:
// либо появляются все строки, либо ни одной.
func (s *gameService) CreateGame(ctx context.Context, input CreateGameInput) (*models.Game, error) {
	if err := input.Settings.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrValidationFailed, err)
	}
	if len(input.PlayerIDs) == 0 {
		return nil, ErrPlayersRequired
	}
	seen := make(map[int]struct{}, len(input.PlayerIDs))
	for _, id := range input.PlayerIDs {
		if _, ok := seen[id]; ok {
			return nil, fmt.Errorf("%w: user %d", ErrDuplicatePlayers, id)
		}
		seen[id] = struct{}{}
	}

	game := &models.Game{
		GroupID:   input.GroupID,
		CreatedBy: input.CreatedBy,
		GameType:  input.Settings.GameType,
		Status:    models.GameStatusPending,
	}

	err := runInTx(ctx, s.db, nil, func(tx *sql.Tx) error {
		if err := s.gameRepo.Create(ctx, tx, game); err != nil {
			return s.translateRepoError(err)
		}

		settings := input.Settings
		settings.GameID = game.ID
		if err := s.settingsRepo.Create(ctx, tx, &settings); err != nil {
			return s.translateRepoError(err)
		}

		players := make([]*models.GamePlayer, 0, len(input.PlayerIDs))
		for _, userID := range input.PlayerIDs {
			p := &models.GamePlayer{GameID: game.ID, UserID: userID}
			// Для турнира каждый игрок начинает со стартового стека,
			// в кэш-игре стартовый стек не фиксирован.
			if settings.GameType == models.GameTypeTournament {
				p.StartingStack = settings.StartingChips
			}
			players = append(players, p)
		}
		if err := s.playerRepo.CreateBatch(ctx, tx, players); err != nil {
			return s.translateRepoError(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log().Info("game created",
		slog.Int("game_id", game.ID),
		slog.Int("group_id", game.GroupID),
		slog.String("game_type", string(game.GameType)),
		slog.Int("players", len(input.PlayerIDs)),
	)
	return game, nil
}

// GetGameByID собирает полное представление игры — саму игру, настройки,
// состав и агрегаты ребаев — внутри одной read-only транзакции, чтобы
// конкурентные записи не расслаивали снимок.
func (s *gameService) GetGameByID(ctx context.Context, gameID int) (*models.Game, error) {
	var game *models.Game
	err := runInTx(ctx, s.db, &sql.TxOptions{ReadOnly: true}, func(tx *sql.Tx) error {
		var err error
		game, err = s.gameRepo.GetByID(ctx, tx, gameID)
		if err != nil {
			return s.translateRepoError(err)
		}

		settings, err := s.settingsRepo.GetByGameID(ctx, tx, gameID)
		if err != nil && !errors.Is(err, repositories.ErrSettingsNotFound) {
			return err
		}
		game.Settings = settings

		if game.Players, err = s.playerRepo.ListByGame(ctx, tx, gameID); err != nil {
			return err
		}
		if game.Rebuys, err = s.rebuyRepo.AggregateByGame(ctx, tx, gameID); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return game, nil
}

func (s *gameService) GetGameSettings(ctx context.Context, gameID int) (*models.GameSettings, error) {
	settings, err := s.settingsRepo.GetByGameID(ctx, nil, gameID)
	if err != nil {
		if errors.Is(err, repositories.ErrSettingsNotFound) {
			return nil, ErrGameNotFound
		}
		return nil, err
	}
	return settings, nil
}

func (s *gameService) GetGamePlayers(ctx context.Context, gameID int) ([]models.GamePlayer, error) {
	return s.playerRepo.ListByGame(ctx, nil, gameID)
}

// UpdateGameStatus переводит игру по машине статусов pending→active→finished.
// Переход в active ставит отметку старта, переход в finished — отметку
// завершения и длительность, вычисленную на сервере.
func (s *gameService) UpdateGameStatus(ctx context.Context, gameID int, status models.GameStatus) (*models.Game, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidGameStatus, status)
	}

	var game *models.Game
	err := runInTx(ctx, s.db, nil, func(tx *sql.Tx) error {
		var err error
		game, err = s.gameRepo.GetByIDForUpdate(ctx, tx, gameID)
		if err != nil {
			return s.translateRepoError(err)
		}

		if game.Status == status {
			return nil // no-op
		}
		if !isValidStatusTransition(game.Status, status) {
			return fmt.Errorf("%w: %s → %s", ErrInvalidStatusTransition, game.Status, status)
		}

		now := s.clock.Now().UTC()
		switch status {
		case models.GameStatusActive:
			game.StartedAt = &now
			game.FinishedAt = nil
			game.DurationSeconds = nil
		case models.GameStatusFinished:
			game.FinishedAt = &now
			duration := int64(now.Sub(*game.StartedAt).Seconds())
			game.DurationSeconds = &duration
		}
		game.Status = status

		return s.gameRepo.UpdateLifecycle(ctx, tx, game)
	})
	if err != nil {
		return nil, err
	}

	s.broadcast(gameID, EventGameStatusUpdated, game)
	return game, nil
}

// AddRebuy записывает докупку после проверки статуса игры и политики ребаев.
// Строка игры читается с разделяемой блокировкой: завершение игры держит
// эксклюзивную, поэтому ребай не может проскочить после снятия итогов.
func (s *gameService) AddRebuy(ctx context.Context, gameID, userID, amount int) (*models.Rebuy, error) {
	if amount <= 0 {
		return nil, ErrRebuyAmountInvalid
	}

	rebuy := &models.Rebuy{GameID: gameID, UserID: userID, Amount: amount}
	err := runInTx(ctx, s.db, nil, func(tx *sql.Tx) error {
		game, err := s.gameRepo.GetByIDForShare(ctx, tx, gameID)
		if err != nil {
			return s.translateRepoError(err)
		}
		if game.Status != models.GameStatusActive {
			return fmt.Errorf("%w: status is %s", ErrGameNotActive, game.Status)
		}

		settings, err := s.settingsRepo.GetByGameID(ctx, tx, gameID)
		if err != nil {
			return s.translateRepoError(err)
		}
		if !settings.AllowRebuy {
			return ErrRebuyNotAllowed
		}
		if settings.RebuyType == models.RebuyTypeFixed {
			if amount < *settings.MinRebuy || amount > *settings.MaxRebuy {
				return fmt.Errorf("%w: %d not in [%d, %d]",
					ErrRebuyAmountOutOfRange, amount, *settings.MinRebuy, *settings.MaxRebuy)
			}
		}

		onRoster, err := s.playerRepo.Exists(ctx, tx, gameID, userID)
		if err != nil {
			return err
		}
		if !onRoster {
			return fmt.Errorf("%w: user %d", ErrRebuyPlayerNotInGame, userID)
		}

		if settings.MaxRebuysAllowed != nil {
			count, err := s.rebuyRepo.CountByGameAndUser(ctx, tx, gameID, userID)
			if err != nil {
				return err
			}
			if count >= *settings.MaxRebuysAllowed {
				return fmt.Errorf("%w: %d of %d used",
					ErrRebuyLimitReached, count, *settings.MaxRebuysAllowed)
			}
		}

		return s.translateRepoError(s.rebuyRepo.Create(ctx, tx, rebuy))
	})
	if err != nil {
		return nil, err
	}

	s.broadcast(gameID, EventRebuyAdded, rebuy)
	return rebuy, nil
}

func (s *gameService) GetGameRebuys(ctx context.Context, gameID int) ([]models.RebuyTotal, error) {
	return s.rebuyRepo.AggregateByGame(ctx, nil, gameID)
}

func (s *gameService) GetGameRebuyHistory(ctx context.Context, gameID int) ([]models.RebuyHistoryEntry, error) {
	return s.rebuyRepo.HistoryByGame(ctx, nil, gameID)
}

// FinishGame — авторитетный путь расчёта. Одной транзакцией под блокировкой
// строки игры: проверка статуса, валидация нулевой суммы, вставка итогов и
// перевод игры в терминальное состояние. Повторный вызов — конфликт.
func (s *gameService) FinishGame(ctx context.Context, gameID int, input FinishGameInput) error {
	if err := validateResults(input.Results); err != nil {
		return err
	}

	var game *models.Game
	err := runInTx(ctx, s.db, nil, func(tx *sql.Tx) error {
		var err error
		game, err = s.gameRepo.GetByIDForUpdate(ctx, tx, gameID)
		if err != nil {
			return s.translateRepoError(err)
		}
		if game.Status == models.GameStatusFinished {
			return ErrGameAlreadyFinished
		}
		if game.Status != models.GameStatusActive {
			return fmt.Errorf("%w: cannot finish a %s game", ErrInvalidStatusTransition, game.Status)
		}

		results := make([]*models.GameResult, 0, len(input.Results))
		for _, in := range input.Results {
			onRoster, err := s.playerRepo.Exists(ctx, tx, gameID, in.UserID)
			if err != nil {
				return err
			}
			if !onRoster {
				return fmt.Errorf("%w: user %d", ErrResultsPlayerNotInGame, in.UserID)
			}
			results = append(results, &models.GameResult{
				GameID:   gameID,
				UserID:   in.UserID,
				MoneyIn:  in.MoneyIn,
				MoneyOut: in.MoneyOut,
				Profit:   in.Profit,
			})
		}
		if err := s.resultRepo.CreateBatch(ctx, tx, results); err != nil {
			return s.translateRepoError(err)
		}

		now := s.clock.Now().UTC()
		game.Status = models.GameStatusFinished
		game.FinishedAt = &now
		// Длительность всегда вычисляется по серверным отметкам, присланное
		// клиентом значение не принимается на веру.
		duration := int64(now.Sub(*game.StartedAt).Seconds())
		game.DurationSeconds = &duration

		return s.gameRepo.UpdateLifecycle(ctx, tx, game)
	})
	if err != nil {
		return err
	}

	s.log().Info("game finished",
		slog.Int("game_id", gameID),
		slog.Int("results", len(input.Results)),
		slog.Int64("duration_seconds", *game.DurationSeconds),
	)
	s.broadcast(gameID, EventGameFinished, game)
	return nil
}

func (s *gameService) GetGameResults(ctx context.Context, gameID int) ([]models.GameResult, error) {
	return s.resultRepo.ListByGame(ctx, nil, gameID)
}

// validateResults проверяет инварианты расчёта: для каждой строки
// profit == moneyOut - moneyIn, сумма profit по всем строкам равна нулю.
func validateResults(results []GameResultInput) error {
	if len(results) == 0 {
		return ErrResultsRequired
	}
	seen := make(map[int]struct{}, len(results))
	sum := 0
	for _, r := range results {
		if _, ok := seen[r.UserID]; ok {
			return fmt.Errorf("%w: user %d", ErrResultsDuplicatePlayer, r.UserID)
		}
		seen[r.UserID] = struct{}{}
		if r.Profit != r.MoneyOut-r.MoneyIn {
			return fmt.Errorf("%w: user %d", ErrResultsProfitMismatch, r.UserID)
		}
		sum += r.Profit
	}
	if sum != 0 {
		return fmt.Errorf("%w: sum is %d", ErrResultsNotZeroSum, sum)
	}
	return nil
}

func (s *gameService) translateRepoError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repositories.ErrGameNotFound):
		return ErrGameNotFound
	case errors.Is(err, repositories.ErrSettingsNotFound):
		return ErrGameNotFound
	case errors.Is(err, repositories.ErrGameInvalidGroup):
		return ErrGroupNotFound
	case errors.Is(err, repositories.ErrGameInvalidCreator),
		errors.Is(err, repositories.ErrPlayerInvalidUser),
		errors.Is(err, repositories.ErrRebuyInvalidUser),
		errors.Is(err, repositories.ErrResultInvalidUser):
		return fmt.Errorf("%w: %s", ErrUserNotFound, err)
	case errors.Is(err, repositories.ErrPlayerDuplicate):
		return fmt.Errorf("%w: %s", ErrDuplicatePlayers, err)
	}
	return err
}

func (s *gameService) broadcast(gameID int, eventType string, payload interface{}) {
	if s.live == nil {
		return
	}
	s.live.BroadcastToGame(gameID, eventType, payload)
}

func (s *gameService) log() *slog.Logger {
	if s.logger == nil {
		return slog.Default()
	}
	return s.logger
}
