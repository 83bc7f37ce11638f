package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pokernights/poker-tracker/models"
	"github.com/pokernights/poker-tracker/services"
)

// stubGameService позволяет подставить нужный результат под каждый хендлер.
type stubGameService struct {
	createFn func(services.CreateGameInput) (*models.Game, error)
	getFn    func(int) (*models.Game, error)
	statusFn func(int, models.GameStatus) (*models.Game, error)
	rebuyFn  func(int, int, int) (*models.Rebuy, error)
	finishFn func(int, services.FinishGameInput) error
}

func (s *stubGameService) CreateGame(_ context.Context, input services.CreateGameInput) (*models.Game, error) {
	return s.createFn(input)
}

func (s *stubGameService) GetGameByID(_ context.Context, gameID int) (*models.Game, error) {
	return s.getFn(gameID)
}

func (s *stubGameService) GetGameSettings(context.Context, int) (*models.GameSettings, error) {
	return nil, nil
}

func (s *stubGameService) GetGamePlayers(context.Context, int) ([]models.GamePlayer, error) {
	return nil, nil
}

func (s *stubGameService) UpdateGameStatus(_ context.Context, gameID int, status models.GameStatus) (*models.Game, error) {
	return s.statusFn(gameID, status)
}

func (s *stubGameService) AddRebuy(_ context.Context, gameID, userID, amount int) (*models.Rebuy, error) {
	return s.rebuyFn(gameID, userID, amount)
}

func (s *stubGameService) GetGameRebuys(context.Context, int) ([]models.RebuyTotal, error) {
	return nil, nil
}

func (s *stubGameService) GetGameRebuyHistory(context.Context, int) ([]models.RebuyHistoryEntry, error) {
	return nil, nil
}

func (s *stubGameService) FinishGame(_ context.Context, gameID int, input services.FinishGameInput) error {
	return s.finishFn(gameID, input)
}

func (s *stubGameService) GetGameResults(context.Context, int) ([]models.GameResult, error) {
	return nil, nil
}

func newGameRouter(svc services.GameService) *chi.Mux {
	h := NewGameHandler(svc)
	r := chi.NewRouter()
	r.Post("/api/games/create", h.CreateHandler)
	r.Get("/api/games/{gameID}", h.GetByIDHandler)
	r.Post("/api/games/{gameID}/status", h.UpdateStatusHandler)
	r.Post("/api/games/{gameID}/rebuy", h.AddRebuyHandler)
	r.Post("/api/games/{gameID}/finish", h.FinishHandler)
	return r
}

func doRequest(t *testing.T, router *chi.Mux, method, path, body string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()

	var reqBody *strings.Reader
	if body == "" {
		reqBody = strings.NewReader("")
	} else {
		reqBody = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reqBody)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return rec, env
}

func TestCreateHandler(t *testing.T) {
	t.Run("returns 201 with the new game id", func(t *testing.T) {
		svc := &stubGameService{
			createFn: func(input services.CreateGameInput) (*models.Game, error) {
				assert.Equal(t, 3, input.GroupID)
				assert.Equal(t, []int{1, 2}, input.PlayerIDs)
				return &models.Game{ID: 17}, nil
			},
		}
		rec, env := doRequest(t, newGameRouter(svc), http.MethodPost, "/api/games/create", `{
			"groupId": 3,
			"createdBy": 1,
			"playerIds": [1, 2],
			"settings": {"gameType": "cash", "currency": "USD", "buyIn": 100, "cashSB": 1, "cashBB": 2}
		}`)

		assert.Equal(t, http.StatusCreated, rec.Code)
		assert.True(t, env.Success)
		data, ok := env.Data.(map[string]interface{})
		require.True(t, ok)
		assert.Equal(t, float64(17), data["gameId"])
	})

	t.Run("malformed JSON is a 400", func(t *testing.T) {
		svc := &stubGameService{}
		rec, env := doRequest(t, newGameRouter(svc), http.MethodPost, "/api/games/create", `{"groupId": `)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.False(t, env.Success)
		assert.NotEmpty(t, env.Error)
	})

	t.Run("missing required fields is a 400", func(t *testing.T) {
		svc := &stubGameService{}
		rec, _ := doRequest(t, newGameRouter(svc), http.MethodPost, "/api/games/create", `{"groupId": 3}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("validation failures map to 400", func(t *testing.T) {
		svc := &stubGameService{
			createFn: func(services.CreateGameInput) (*models.Game, error) {
				return nil, services.ErrValidationFailed
			},
		}
		rec, _ := doRequest(t, newGameRouter(svc), http.MethodPost, "/api/games/create", `{
			"groupId": 3, "createdBy": 1, "playerIds": [1],
			"settings": {"gameType": "cash", "currency": "USD", "buyIn": 100}
		}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("unknown group maps to 404", func(t *testing.T) {
		svc := &stubGameService{
			createFn: func(services.CreateGameInput) (*models.Game, error) {
				return nil, services.ErrGroupNotFound
			},
		}
		rec, _ := doRequest(t, newGameRouter(svc), http.MethodPost, "/api/games/create", `{
			"groupId": 999, "createdBy": 1, "playerIds": [1],
			"settings": {"gameType": "cash", "currency": "USD", "buyIn": 100, "cashSB": 1, "cashBB": 2}
		}`)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestGetByIDHandler(t *testing.T) {
	t.Run("unknown game is a 404", func(t *testing.T) {
		svc := &stubGameService{
			getFn: func(int) (*models.Game, error) { return nil, services.ErrGameNotFound },
		}
		rec, env := doRequest(t, newGameRouter(svc), http.MethodGet, "/api/games/404", "")

		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.False(t, env.Success)
	})

	t.Run("non-numeric id is a 400", func(t *testing.T) {
		svc := &stubGameService{}
		rec, _ := doRequest(t, newGameRouter(svc), http.MethodGet, "/api/games/abc", "")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestUpdateStatusHandler(t *testing.T) {
	t.Run("illegal transition maps to 400", func(t *testing.T) {
		svc := &stubGameService{
			statusFn: func(int, models.GameStatus) (*models.Game, error) {
				return nil, services.ErrInvalidStatusTransition
			},
		}
		rec, _ := doRequest(t, newGameRouter(svc), http.MethodPost, "/api/games/7/status", `{"status": "finished"}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("missing status is a 400", func(t *testing.T) {
		svc := &stubGameService{}
		rec, _ := doRequest(t, newGameRouter(svc), http.MethodPost, "/api/games/7/status", `{}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestAddRebuyHandler(t *testing.T) {
	t.Run("returns 201 with the recorded rebuy", func(t *testing.T) {
		svc := &stubGameService{
			rebuyFn: func(gameID, userID, amount int) (*models.Rebuy, error) {
				return &models.Rebuy{ID: 42, GameID: gameID, UserID: userID, Amount: amount}, nil
			},
		}
		rec, env := doRequest(t, newGameRouter(svc), http.MethodPost, "/api/games/7/rebuy", `{"userId": 2, "amount": 100}`)

		assert.Equal(t, http.StatusCreated, rec.Code)
		assert.True(t, env.Success)
	})

	t.Run("rebuy limit maps to 409", func(t *testing.T) {
		svc := &stubGameService{
			rebuyFn: func(int, int, int) (*models.Rebuy, error) {
				return nil, services.ErrRebuyLimitReached
			},
		}
		rec, _ := doRequest(t, newGameRouter(svc), http.MethodPost, "/api/games/7/rebuy", `{"userId": 2, "amount": 100}`)
		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("inactive game maps to 409", func(t *testing.T) {
		svc := &stubGameService{
			rebuyFn: func(int, int, int) (*models.Rebuy, error) {
				return nil, services.ErrGameNotActive
			},
		}
		rec, _ := doRequest(t, newGameRouter(svc), http.MethodPost, "/api/games/7/rebuy", `{"userId": 2, "amount": 100}`)
		assert.Equal(t, http.StatusConflict, rec.Code)
	})
}

func TestFinishHandler(t *testing.T) {
	t.Run("returns success envelope", func(t *testing.T) {
		svc := &stubGameService{
			finishFn: func(int, services.FinishGameInput) error { return nil },
		}
		rec, env := doRequest(t, newGameRouter(svc), http.MethodPost, "/api/games/7/finish", `{
			"results": [
				{"userId": 1, "moneyIn": 100, "moneyOut": 250, "profit": 150},
				{"userId": 2, "moneyIn": 200, "moneyOut": 50, "profit": -150}
			]
		}`)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.True(t, env.Success)
	})

	t.Run("double finish maps to 409", func(t *testing.T) {
		svc := &stubGameService{
			finishFn: func(int, services.FinishGameInput) error {
				return services.ErrGameAlreadyFinished
			},
		}
		rec, env := doRequest(t, newGameRouter(svc), http.MethodPost, "/api/games/7/finish", `{
			"results": [{"userId": 1, "moneyIn": 100, "moneyOut": 100, "profit": 0}]
		}`)

		assert.Equal(t, http.StatusConflict, rec.Code)
		assert.False(t, env.Success)
	})

	t.Run("unbalanced settlement maps to 400", func(t *testing.T) {
		svc := &stubGameService{
			finishFn: func(int, services.FinishGameInput) error {
				return services.ErrResultsNotZeroSum
			},
		}
		rec, _ := doRequest(t, newGameRouter(svc), http.MethodPost, "/api/games/7/finish", `{
			"results": [{"userId": 1, "moneyIn": 100, "moneyOut": 250, "profit": 150}]
		}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}
