package handlers

import (
	"errors"
	"net/http"

	"github.com/pokernights/poker-tracker/models"
	"github.com/pokernights/poker-tracker/services"
)

type GameHandler struct {
	gameService services.GameService
}

func NewGameHandler(gs services.GameService) *GameHandler {
	return &GameHandler{gameService: gs}
}

// CreateHandler обрабатывает POST /api/games/create
func (h *GameHandler) CreateHandler(w http.ResponseWriter, r *http.Request) {
	var input services.CreateGameInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	if input.GroupID <= 0 || input.CreatedBy <= 0 || input.PlayerIDs == nil {
		badRequestResponse(w, r, errors.New("groupId, createdBy, and playerIds are required"))
		return
	}

	game, err := h.gameService.CreateGame(r.Context(), input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	dataResponse(w, r, http.StatusCreated, map[string]int{"gameId": game.ID})
}

// GetByIDHandler обрабатывает GET /api/games/{gameID} — полное представление
// игры с настройками, составом и агрегатами ребаев.
func (h *GameHandler) GetByIDHandler(w http.ResponseWriter, r *http.Request) {
	gameID, err := getIDFromURL(r, "gameID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	game, err := h.gameService.GetGameByID(r.Context(), gameID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	dataResponse(w, r, http.StatusOK, game)
}

// GetSettingsHandler обрабатывает GET /api/games/{gameID}/settings
func (h *GameHandler) GetSettingsHandler(w http.ResponseWriter, r *http.Request) {
	gameID, err := getIDFromURL(r, "gameID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	settings, err := h.gameService.GetGameSettings(r.Context(), gameID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	dataResponse(w, r, http.StatusOK, settings)
}

// GetPlayersHandler обрабатывает GET /api/games/{gameID}/players
func (h *GameHandler) GetPlayersHandler(w http.ResponseWriter, r *http.Request) {
	gameID, err := getIDFromURL(r, "gameID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	players, err := h.gameService.GetGamePlayers(r.Context(), gameID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	dataResponse(w, r, http.StatusOK, players)
}

// UpdateStatusHandler обрабатывает POST /api/games/{gameID}/status
func (h *GameHandler) UpdateStatusHandler(w http.ResponseWriter, r *http.Request) {
	gameID, err := getIDFromURL(r, "gameID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var input struct {
		Status models.GameStatus `json:"status"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	if input.Status == "" {
		badRequestResponse(w, r, errors.New("status is required"))
		return
	}

	game, err := h.gameService.UpdateGameStatus(r.Context(), gameID, input.Status)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	dataResponse(w, r, http.StatusOK, game)
}

// AddRebuyHandler обрабатывает POST /api/games/{gameID}/rebuy
func (h *GameHandler) AddRebuyHandler(w http.ResponseWriter, r *http.Request) {
	gameID, err := getIDFromURL(r, "gameID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var input struct {
		UserID int `json:"userId"`
		Amount int `json:"amount"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	if input.UserID <= 0 || input.Amount == 0 {
		badRequestResponse(w, r, errors.New("userId and amount are required"))
		return
	}

	rebuy, err := h.gameService.AddRebuy(r.Context(), gameID, input.UserID, input.Amount)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	dataResponse(w, r, http.StatusCreated, rebuy)
}

// GetRebuysHandler обрабатывает GET /api/games/{gameID}/rebuys —
// агрегаты по игрокам для live-отображения текущего бай-ина.
func (h *GameHandler) GetRebuysHandler(w http.ResponseWriter, r *http.Request) {
	gameID, err := getIDFromURL(r, "gameID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	rebuys, err := h.gameService.GetGameRebuys(r.Context(), gameID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	dataResponse(w, r, http.StatusOK, rebuys)
}

// GetRebuyHistoryHandler обрабатывает GET /api/games/{gameID}/rebuys/history
func (h *GameHandler) GetRebuyHistoryHandler(w http.ResponseWriter, r *http.Request) {
	gameID, err := getIDFromURL(r, "gameID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	history, err := h.gameService.GetGameRebuyHistory(r.Context(), gameID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	dataResponse(w, r, http.StatusOK, history)
}

// FinishHandler обрабатывает POST /api/games/{gameID}/finish —
// авторитетный путь завершения игры с записью итогов.
func (h *GameHandler) FinishHandler(w http.ResponseWriter, r *http.Request) {
	gameID, err := getIDFromURL(r, "gameID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var input services.FinishGameInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	if err := h.gameService.FinishGame(r.Context(), gameID, input); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	dataResponse(w, r, http.StatusOK, map[string]bool{"success": true})
}

// GetResultsHandler обрабатывает GET /api/games/{gameID}/results —
// лидерборд по убыванию прибыли.
func (h *GameHandler) GetResultsHandler(w http.ResponseWriter, r *http.Request) {
	gameID, err := getIDFromURL(r, "gameID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	results, err := h.gameService.GetGameResults(r.Context(), gameID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	dataResponse(w, r, http.StatusOK, results)
}
