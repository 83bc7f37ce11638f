package models

import "time"

// Rebuy — одна докупка фишек во время активной игры. Журнал ребаев только
// пополняется, записи никогда не изменяются и не удаляются.
type Rebuy struct {
	ID        int       `json:"id"`
	GameID    int       `json:"gameId"`
	UserID    int       `json:"userId"`
	Amount    int       `json:"amount"`
	CreatedAt time.Time `json:"createdAt"`
}

// RebuyTotal — агрегат по игроку: сколько раз докупался и на какую сумму.
type RebuyTotal struct {
	UserID int `json:"userId"`
	Count  int `json:"count"`
	Total  int `json:"total"`
}

// RebuyHistoryEntry — строка полной истории ребаев с привязкой ко времени
// старта игры. SecondsFromStart == nil, если игра не была запущена.
type RebuyHistoryEntry struct {
	ID               int       `json:"id"`
	UserID           int       `json:"userId"`
	Username         string    `json:"username"`
	Amount           int       `json:"amount"`
	CreatedAt        time.Time `json:"createdAt"`
	SecondsFromStart *int64    `json:"secondsFromStart,omitempty"`
}
