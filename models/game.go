package models

import "time"

// GameStatus представляет статусы игры, соответствующие ENUM в БД.
type GameStatus string

const (
	GameStatusPending  GameStatus = "pending"
	GameStatusActive   GameStatus = "active"
	GameStatusFinished GameStatus = "finished"
)

// GameType различает кэш-игру и турнир. От типа зависит схема настроек.
type GameType string

const (
	GameTypeCash       GameType = "cash"
	GameTypeTournament GameType = "tournament"
)

func (s GameStatus) Valid() bool {
	switch s {
	case GameStatusPending, GameStatusActive, GameStatusFinished:
		return true
	}
	return false
}

// Game представляет одну игровую сессию группы.
type Game struct {
	ID              int        `json:"id"`
	GroupID         int        `json:"groupId"`
	CreatedBy       int        `json:"createdBy"`
	GameType        GameType   `json:"gameType"`
	Status          GameStatus `json:"status"`
	CreatedAt       time.Time  `json:"createdAt"`
	StartedAt       *time.Time `json:"startedAt,omitempty"`
	FinishedAt      *time.Time `json:"finishedAt,omitempty"`
	DurationSeconds *int64     `json:"durationSeconds,omitempty"`

	// Опциональные связанные сущности (не мапятся напрямую)
	Settings *GameSettings `json:"settings,omitempty"`
	Players  []GamePlayer  `json:"players,omitempty"`
	Rebuys   []RebuyTotal  `json:"rebuys,omitempty"`
}

// GamePlayer — запись о регистрации игрока в игре, уникальная по (game_id, user_id).
type GamePlayer struct {
	GameID        int    `json:"gameId"`
	UserID        int    `json:"userId"`
	StartingStack *int   `json:"startingStack,omitempty"`
	Username      string `json:"username,omitempty"`
	FirstName     string `json:"firstName,omitempty"`
	LastName      string `json:"lastName,omitempty"`
}
