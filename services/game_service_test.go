package services

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/coder/quartz"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pokernights/poker-tracker/models"
	"github.com/pokernights/poker-tracker/repositories"
)

// Репозитории подменяются стабами, а *sql.DB — sqlmock'ом: он обслуживает
// только Begin/Commit/Rollback, сами запросы до драйвера не доходят.

type stubGameRepo struct {
	game      *models.Game
	getErr    error
	createErr error
	updateErr error
	created   *models.Game
	updated   *models.Game
}

func (r *stubGameRepo) Create(_ context.Context, _ repositories.SQLExecutor, game *models.Game) error {
	if r.createErr != nil {
		return r.createErr
	}
	game.ID = 7
	game.CreatedAt = time.Date(2025, 6, 1, 19, 0, 0, 0, time.UTC)
	r.created = game
	return nil
}

func (r *stubGameRepo) get() (*models.Game, error) {
	if r.getErr != nil {
		return nil, r.getErr
	}
	return r.game, nil
}

func (r *stubGameRepo) GetByID(context.Context, repositories.SQLExecutor, int) (*models.Game, error) {
	return r.get()
}

func (r *stubGameRepo) GetByIDForUpdate(context.Context, repositories.SQLExecutor, int) (*models.Game, error) {
	return r.get()
}

func (r *stubGameRepo) GetByIDForShare(context.Context, repositories.SQLExecutor, int) (*models.Game, error) {
	return r.get()
}

func (r *stubGameRepo) UpdateLifecycle(_ context.Context, _ repositories.SQLExecutor, game *models.Game) error {
	if r.updateErr != nil {
		return r.updateErr
	}
	r.updated = game
	return nil
}

type stubSettingsRepo struct {
	settings  *models.GameSettings
	getErr    error
	createErr error
	created   *models.GameSettings
}

func (r *stubSettingsRepo) Create(_ context.Context, _ repositories.SQLExecutor, settings *models.GameSettings) error {
	if r.createErr != nil {
		return r.createErr
	}
	r.created = settings
	return nil
}

func (r *stubSettingsRepo) GetByGameID(context.Context, repositories.SQLExecutor, int) (*models.GameSettings, error) {
	if r.getErr != nil {
		return nil, r.getErr
	}
	return r.settings, nil
}

type stubPlayerRepo struct {
	roster  map[int]bool
	players []models.GamePlayer
	created []*models.GamePlayer
}

func (r *stubPlayerRepo) CreateBatch(_ context.Context, _ repositories.SQLExecutor, players []*models.GamePlayer) error {
	r.created = append(r.created, players...)
	return nil
}

func (r *stubPlayerRepo) ListByGame(context.Context, repositories.SQLExecutor, int) ([]models.GamePlayer, error) {
	return r.players, nil
}

func (r *stubPlayerRepo) Exists(_ context.Context, _ repositories.SQLExecutor, _, userID int) (bool, error) {
	return r.roster[userID], nil
}

type stubRebuyRepo struct {
	count   int
	totals  []models.RebuyTotal
	history []models.RebuyHistoryEntry
	created *models.Rebuy
}

func (r *stubRebuyRepo) Create(_ context.Context, _ repositories.SQLExecutor, rebuy *models.Rebuy) error {
	rebuy.ID = 42
	rebuy.CreatedAt = time.Date(2025, 6, 1, 20, 30, 0, 0, time.UTC)
	r.created = rebuy
	return nil
}

func (r *stubRebuyRepo) CountByGameAndUser(context.Context, repositories.SQLExecutor, int, int) (int, error) {
	return r.count, nil
}

func (r *stubRebuyRepo) AggregateByGame(context.Context, repositories.SQLExecutor, int) ([]models.RebuyTotal, error) {
	return r.totals, nil
}

func (r *stubRebuyRepo) HistoryByGame(context.Context, repositories.SQLExecutor, int) ([]models.RebuyHistoryEntry, error) {
	return r.history, nil
}

type stubResultRepo struct {
	createErr error
	created   []*models.GameResult
	results   []models.GameResult
}

func (r *stubResultRepo) CreateBatch(_ context.Context, _ repositories.SQLExecutor, results []*models.GameResult) error {
	if r.createErr != nil {
		return r.createErr
	}
	r.created = append(r.created, results...)
	return nil
}

func (r *stubResultRepo) ListByGame(context.Context, repositories.SQLExecutor, int) ([]models.GameResult, error) {
	return r.results, nil
}

type broadcastEvent struct {
	gameID    int
	eventType string
	payload   interface{}
}

type recordingBroadcaster struct {
	events []broadcastEvent
}

func (b *recordingBroadcaster) BroadcastToGame(gameID int, eventType string, payload interface{}) {
	b.events = append(b.events, broadcastEvent{gameID: gameID, eventType: eventType, payload: payload})
}

type serviceFixture struct {
	svc      GameService
	sqlMock  sqlmock.Sqlmock
	games    *stubGameRepo
	settings *stubSettingsRepo
	players  *stubPlayerRepo
	rebuys   *stubRebuyRepo
	results  *stubResultRepo
	live     *recordingBroadcaster
	clock    *quartz.Mock
}

func newServiceFixture(t *testing.T) *serviceFixture {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	f := &serviceFixture{
		sqlMock:  mock,
		games:    &stubGameRepo{},
		settings: &stubSettingsRepo{},
		players:  &stubPlayerRepo{roster: map[int]bool{}},
		rebuys:   &stubRebuyRepo{},
		results:  &stubResultRepo{},
		live:     &recordingBroadcaster{},
		clock:    quartz.NewMock(t),
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	f.svc = NewGameService(db, f.games, f.settings, f.players, f.rebuys, f.results, f.live, logger, f.clock)
	return f
}

func (f *serviceFixture) expectCommit() {
	f.sqlMock.ExpectBegin()
	f.sqlMock.ExpectCommit()
}

func (f *serviceFixture) expectRollback() {
	f.sqlMock.ExpectBegin()
	f.sqlMock.ExpectRollback()
}

func intPtr(v int) *int { return &v }

func cashSettings() models.GameSettings {
	return models.GameSettings{
		GameType: models.GameTypeCash,
		Currency: "USD",
		BuyIn:    100,
		CashSB:   intPtr(1),
		CashBB:   intPtr(2),
	}
}

func TestCreateGame(t *testing.T) {
	t.Run("cash game creates game, settings and roster in one transaction", func(t *testing.T) {
		f := newServiceFixture(t)
		f.expectCommit()

		game, err := f.svc.CreateGame(context.Background(), CreateGameInput{
			GroupID:   3,
			CreatedBy: 1,
			PlayerIDs: []int{1, 2, 5},
			Settings:  cashSettings(),
		})
		require.NoError(t, err)
		require.NotNil(t, game)

		assert.Equal(t, 7, game.ID)
		assert.Equal(t, models.GameStatusPending, game.Status)
		assert.Equal(t, models.GameTypeCash, game.GameType)
		assert.Nil(t, game.StartedAt)

		require.NotNil(t, f.settings.created)
		assert.Equal(t, 7, f.settings.created.GameID)

		require.Len(t, f.players.created, 3)
		for _, p := range f.players.created {
			assert.Equal(t, 7, p.GameID)
			assert.Nil(t, p.StartingStack)
		}
		require.NoError(t, f.sqlMock.ExpectationsWereMet())
	})

	t.Run("tournament players start with the configured stack", func(t *testing.T) {
		f := newServiceFixture(t)
		f.expectCommit()

		settings := models.GameSettings{
			GameType:      models.GameTypeTournament,
			Currency:      "USD",
			BuyIn:         50,
			StartingChips: intPtr(20000),
			StartingSB:    intPtr(100),
			StartingBB:    intPtr(200),
			LevelDuration: intPtr(15),
		}
		_, err := f.svc.CreateGame(context.Background(), CreateGameInput{
			GroupID:   3,
			CreatedBy: 1,
			PlayerIDs: []int{1, 2},
			Settings:  settings,
		})
		require.NoError(t, err)

		require.Len(t, f.players.created, 2)
		for _, p := range f.players.created {
			require.NotNil(t, p.StartingStack)
			assert.Equal(t, 20000, *p.StartingStack)
		}
	})

	t.Run("invalid settings are rejected before any write", func(t *testing.T) {
		f := newServiceFixture(t)

		settings := cashSettings()
		settings.CashBB = nil
		_, err := f.svc.CreateGame(context.Background(), CreateGameInput{
			GroupID:   3,
			CreatedBy: 1,
			PlayerIDs: []int{1},
			Settings:  settings,
		})
		require.ErrorIs(t, err, ErrValidationFailed)
		assert.Nil(t, f.games.created)
		require.NoError(t, f.sqlMock.ExpectationsWereMet())
	})

	t.Run("empty roster is rejected", func(t *testing.T) {
		f := newServiceFixture(t)

		_, err := f.svc.CreateGame(context.Background(), CreateGameInput{
			GroupID:   3,
			CreatedBy: 1,
			Settings:  cashSettings(),
		})
		require.ErrorIs(t, err, ErrPlayersRequired)
	})

	t.Run("duplicate player ids are rejected", func(t *testing.T) {
		f := newServiceFixture(t)

		_, err := f.svc.CreateGame(context.Background(), CreateGameInput{
			GroupID:   3,
			CreatedBy: 1,
			PlayerIDs: []int{1, 2, 1},
			Settings:  cashSettings(),
		})
		require.ErrorIs(t, err, ErrDuplicatePlayers)
	})

	t.Run("settings insert failure rolls the whole creation back", func(t *testing.T) {
		f := newServiceFixture(t)
		f.expectRollback()
		f.settings.createErr = errors.New("settings insert failed")

		_, err := f.svc.CreateGame(context.Background(), CreateGameInput{
			GroupID:   3,
			CreatedBy: 1,
			PlayerIDs: []int{1, 2},
			Settings:  cashSettings(),
		})
		require.Error(t, err)
		assert.Empty(t, f.players.created)
		require.NoError(t, f.sqlMock.ExpectationsWereMet())
	})

	t.Run("unknown group maps to not found", func(t *testing.T) {
		f := newServiceFixture(t)
		f.expectRollback()
		f.games.createErr = repositories.ErrGameInvalidGroup

		_, err := f.svc.CreateGame(context.Background(), CreateGameInput{
			GroupID:   999,
			CreatedBy: 1,
			PlayerIDs: []int{1},
			Settings:  cashSettings(),
		})
		require.ErrorIs(t, err, ErrGroupNotFound)
		require.NoError(t, f.sqlMock.ExpectationsWereMet())
	})
}

func TestUpdateGameStatus(t *testing.T) {
	t.Run("pending to active stamps the start time", func(t *testing.T) {
		f := newServiceFixture(t)
		f.expectCommit()
		f.games.game = &models.Game{ID: 7, Status: models.GameStatusPending}

		game, err := f.svc.UpdateGameStatus(context.Background(), 7, models.GameStatusActive)
		require.NoError(t, err)

		assert.Equal(t, models.GameStatusActive, game.Status)
		require.NotNil(t, game.StartedAt)
		assert.Equal(t, f.clock.Now().UTC(), *game.StartedAt)
		assert.Nil(t, game.FinishedAt)
		assert.Nil(t, game.DurationSeconds)
		require.NotNil(t, f.games.updated)

		require.Len(t, f.live.events, 1)
		assert.Equal(t, EventGameStatusUpdated, f.live.events[0].eventType)
		assert.Equal(t, 7, f.live.events[0].gameID)
	})

	t.Run("active to finished computes duration from server timestamps", func(t *testing.T) {
		f := newServiceFixture(t)
		f.expectCommit()

		startedAt := f.clock.Now().UTC()
		f.games.game = &models.Game{ID: 7, Status: models.GameStatusActive, StartedAt: &startedAt}
		f.clock.Advance(90 * time.Minute)

		game, err := f.svc.UpdateGameStatus(context.Background(), 7, models.GameStatusFinished)
		require.NoError(t, err)

		assert.Equal(t, models.GameStatusFinished, game.Status)
		require.NotNil(t, game.FinishedAt)
		require.NotNil(t, game.DurationSeconds)
		assert.Equal(t, int64(5400), *game.DurationSeconds)
	})

	t.Run("repeating the current status is a no-op", func(t *testing.T) {
		f := newServiceFixture(t)
		f.expectCommit()
		f.games.game = &models.Game{ID: 7, Status: models.GameStatusActive}

		game, err := f.svc.UpdateGameStatus(context.Background(), 7, models.GameStatusActive)
		require.NoError(t, err)
		assert.Equal(t, models.GameStatusActive, game.Status)
		assert.Nil(t, f.games.updated)
	})

	t.Run("skipping a stage is rejected", func(t *testing.T) {
		f := newServiceFixture(t)
		f.expectRollback()
		f.games.game = &models.Game{ID: 7, Status: models.GameStatusPending}

		_, err := f.svc.UpdateGameStatus(context.Background(), 7, models.GameStatusFinished)
		require.ErrorIs(t, err, ErrInvalidStatusTransition)
		assert.Empty(t, f.live.events)
	})

	t.Run("finished game cannot be reopened", func(t *testing.T) {
		f := newServiceFixture(t)
		f.expectRollback()
		f.games.game = &models.Game{ID: 7, Status: models.GameStatusFinished}

		_, err := f.svc.UpdateGameStatus(context.Background(), 7, models.GameStatusActive)
		require.ErrorIs(t, err, ErrInvalidStatusTransition)
	})

	t.Run("unknown status value is rejected", func(t *testing.T) {
		f := newServiceFixture(t)

		_, err := f.svc.UpdateGameStatus(context.Background(), 7, models.GameStatus("cancelled"))
		require.ErrorIs(t, err, ErrInvalidGameStatus)
	})

	t.Run("missing game maps to not found", func(t *testing.T) {
		f := newServiceFixture(t)
		f.expectRollback()
		f.games.getErr = repositories.ErrGameNotFound

		_, err := f.svc.UpdateGameStatus(context.Background(), 404, models.GameStatusActive)
		require.ErrorIs(t, err, ErrGameNotFound)
	})
}

func TestAddRebuy(t *testing.T) {
	activeGame := func() *models.Game {
		return &models.Game{ID: 7, Status: models.GameStatusActive}
	}
	rebuySettings := func() *models.GameSettings {
		s := cashSettings()
		s.GameID = 7
		s.AllowRebuy = true
		s.RebuyType = models.RebuyTypeFixed
		s.MinRebuy = intPtr(50)
		s.MaxRebuy = intPtr(200)
		return &s
	}

	t.Run("records the rebuy and broadcasts it", func(t *testing.T) {
		f := newServiceFixture(t)
		f.expectCommit()
		f.games.game = activeGame()
		f.settings.settings = rebuySettings()
		f.players.roster[2] = true

		rebuy, err := f.svc.AddRebuy(context.Background(), 7, 2, 100)
		require.NoError(t, err)

		assert.Equal(t, 42, rebuy.ID)
		assert.Equal(t, 100, rebuy.Amount)
		require.Len(t, f.live.events, 1)
		assert.Equal(t, EventRebuyAdded, f.live.events[0].eventType)
	})

	t.Run("non-positive amount is rejected up front", func(t *testing.T) {
		f := newServiceFixture(t)

		_, err := f.svc.AddRebuy(context.Background(), 7, 2, 0)
		require.ErrorIs(t, err, ErrRebuyAmountInvalid)
	})

	t.Run("rebuys require an active game", func(t *testing.T) {
		f := newServiceFixture(t)
		f.expectRollback()
		f.games.game = &models.Game{ID: 7, Status: models.GameStatusPending}

		_, err := f.svc.AddRebuy(context.Background(), 7, 2, 100)
		require.ErrorIs(t, err, ErrGameNotActive)
	})

	t.Run("rebuys must be enabled in the settings", func(t *testing.T) {
		f := newServiceFixture(t)
		f.expectRollback()
		f.games.game = activeGame()
		s := rebuySettings()
		s.AllowRebuy = false
		f.settings.settings = s
		f.players.roster[2] = true

		_, err := f.svc.AddRebuy(context.Background(), 7, 2, 100)
		require.ErrorIs(t, err, ErrRebuyNotAllowed)
	})

	t.Run("fixed amount must stay within bounds", func(t *testing.T) {
		f := newServiceFixture(t)
		f.expectRollback()
		f.games.game = activeGame()
		f.settings.settings = rebuySettings()
		f.players.roster[2] = true

		_, err := f.svc.AddRebuy(context.Background(), 7, 2, 500)
		require.ErrorIs(t, err, ErrRebuyAmountOutOfRange)
	})

	t.Run("only rostered players may rebuy", func(t *testing.T) {
		f := newServiceFixture(t)
		f.expectRollback()
		f.games.game = activeGame()
		f.settings.settings = rebuySettings()

		_, err := f.svc.AddRebuy(context.Background(), 7, 99, 100)
		require.ErrorIs(t, err, ErrRebuyPlayerNotInGame)
	})

	t.Run("per-player limit is enforced", func(t *testing.T) {
		f := newServiceFixture(t)
		f.expectRollback()
		f.games.game = activeGame()
		s := rebuySettings()
		s.MaxRebuysAllowed = intPtr(2)
		f.settings.settings = s
		f.players.roster[2] = true
		f.rebuys.count = 2

		_, err := f.svc.AddRebuy(context.Background(), 7, 2, 100)
		require.ErrorIs(t, err, ErrRebuyLimitReached)
		assert.Empty(t, f.live.events)
	})
}

func TestFinishGame(t *testing.T) {
	balanced := []GameResultInput{
		{UserID: 1, MoneyIn: 100, MoneyOut: 250, Profit: 150},
		{UserID: 2, MoneyIn: 200, MoneyOut: 50, Profit: -150},
	}

	t.Run("records results and closes the game", func(t *testing.T) {
		f := newServiceFixture(t)
		f.expectCommit()

		startedAt := f.clock.Now().UTC()
		f.games.game = &models.Game{ID: 7, Status: models.GameStatusActive, StartedAt: &startedAt}
		f.players.roster[1] = true
		f.players.roster[2] = true
		f.clock.Advance(2 * time.Hour)

		err := f.svc.FinishGame(context.Background(), 7, FinishGameInput{Results: balanced})
		require.NoError(t, err)

		require.Len(t, f.results.created, 2)
		assert.Equal(t, models.GameStatusFinished, f.games.updated.Status)
		require.NotNil(t, f.games.updated.DurationSeconds)
		assert.Equal(t, int64(7200), *f.games.updated.DurationSeconds)

		require.Len(t, f.live.events, 1)
		assert.Equal(t, EventGameFinished, f.live.events[0].eventType)
	})

	t.Run("client-supplied duration is ignored", func(t *testing.T) {
		f := newServiceFixture(t)
		f.expectCommit()

		startedAt := f.clock.Now().UTC()
		f.games.game = &models.Game{ID: 7, Status: models.GameStatusActive, StartedAt: &startedAt}
		f.players.roster[1] = true
		f.players.roster[2] = true
		f.clock.Advance(30 * time.Minute)

		bogus := int64(1)
		err := f.svc.FinishGame(context.Background(), 7, FinishGameInput{
			Results:         balanced,
			DurationSeconds: &bogus,
		})
		require.NoError(t, err)
		assert.Equal(t, int64(1800), *f.games.updated.DurationSeconds)
	})

	t.Run("empty settlement is rejected", func(t *testing.T) {
		f := newServiceFixture(t)

		err := f.svc.FinishGame(context.Background(), 7, FinishGameInput{})
		require.ErrorIs(t, err, ErrResultsRequired)
	})

	t.Run("duplicate settlement rows are rejected", func(t *testing.T) {
		f := newServiceFixture(t)

		err := f.svc.FinishGame(context.Background(), 7, FinishGameInput{Results: []GameResultInput{
			{UserID: 1, MoneyIn: 100, MoneyOut: 100, Profit: 0},
			{UserID: 1, MoneyIn: 100, MoneyOut: 100, Profit: 0},
		}})
		require.ErrorIs(t, err, ErrResultsDuplicatePlayer)
	})

	t.Run("profit must equal money out minus money in", func(t *testing.T) {
		f := newServiceFixture(t)

		err := f.svc.FinishGame(context.Background(), 7, FinishGameInput{Results: []GameResultInput{
			{UserID: 1, MoneyIn: 100, MoneyOut: 250, Profit: 100},
			{UserID: 2, MoneyIn: 200, MoneyOut: 50, Profit: -100},
		}})
		require.ErrorIs(t, err, ErrResultsProfitMismatch)
	})

	t.Run("settlement must sum to zero", func(t *testing.T) {
		f := newServiceFixture(t)

		err := f.svc.FinishGame(context.Background(), 7, FinishGameInput{Results: []GameResultInput{
			{UserID: 1, MoneyIn: 100, MoneyOut: 250, Profit: 150},
			{UserID: 2, MoneyIn: 200, MoneyOut: 100, Profit: -100},
		}})
		require.ErrorIs(t, err, ErrResultsNotZeroSum)
	})

	t.Run("second finish is a conflict", func(t *testing.T) {
		f := newServiceFixture(t)
		f.expectRollback()
		f.games.game = &models.Game{ID: 7, Status: models.GameStatusFinished}

		err := f.svc.FinishGame(context.Background(), 7, FinishGameInput{Results: balanced})
		require.ErrorIs(t, err, ErrGameAlreadyFinished)
		assert.Empty(t, f.results.created)
	})

	t.Run("pending game cannot be finished", func(t *testing.T) {
		f := newServiceFixture(t)
		f.expectRollback()
		f.games.game = &models.Game{ID: 7, Status: models.GameStatusPending}

		err := f.svc.FinishGame(context.Background(), 7, FinishGameInput{Results: balanced})
		require.ErrorIs(t, err, ErrInvalidStatusTransition)
	})

	t.Run("settlement rows must belong to the roster", func(t *testing.T) {
		f := newServiceFixture(t)
		f.expectRollback()

		startedAt := f.clock.Now().UTC()
		f.games.game = &models.Game{ID: 7, Status: models.GameStatusActive, StartedAt: &startedAt}
		f.players.roster[1] = true // user 2 is missing

		err := f.svc.FinishGame(context.Background(), 7, FinishGameInput{Results: balanced})
		require.ErrorIs(t, err, ErrResultsPlayerNotInGame)
		require.NoError(t, f.sqlMock.ExpectationsWereMet())
	})
}

func TestGetGameByID(t *testing.T) {
	t.Run("assembles game with settings, players and rebuy totals", func(t *testing.T) {
		f := newServiceFixture(t)
		f.expectCommit()

		f.games.game = &models.Game{ID: 7, Status: models.GameStatusActive}
		settings := cashSettings()
		settings.GameID = 7
		f.settings.settings = &settings
		f.players.players = []models.GamePlayer{{GameID: 7, UserID: 1}, {GameID: 7, UserID: 2}}
		f.rebuys.totals = []models.RebuyTotal{{UserID: 1, Count: 2, Total: 200}}

		game, err := f.svc.GetGameByID(context.Background(), 7)
		require.NoError(t, err)

		require.NotNil(t, game.Settings)
		assert.Equal(t, 7, game.Settings.GameID)
		assert.Len(t, game.Players, 2)
		assert.Len(t, game.Rebuys, 1)
	})

	t.Run("missing settings row does not fail the read", func(t *testing.T) {
		f := newServiceFixture(t)
		f.expectCommit()

		f.games.game = &models.Game{ID: 7, Status: models.GameStatusPending}
		f.settings.getErr = repositories.ErrSettingsNotFound

		game, err := f.svc.GetGameByID(context.Background(), 7)
		require.NoError(t, err)
		assert.Nil(t, game.Settings)
	})

	t.Run("missing game maps to not found", func(t *testing.T) {
		f := newServiceFixture(t)
		f.expectRollback()
		f.games.getErr = repositories.ErrGameNotFound

		_, err := f.svc.GetGameByID(context.Background(), 404)
		require.ErrorIs(t, err, ErrGameNotFound)
	})
}
