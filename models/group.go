package models

import "time"

// Group — компания игроков, внутри которой создаются игры.
type Group struct {
	ID        int       `json:"id"`
	Name      string    `json:"name"`
	OwnerID   *int      `json:"ownerId,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	LogoKey   *string   `json:"-"`
	LogoURL   *string   `json:"logoUrl,omitempty"`
}

// GroupGame — игра в списке игр группы с порядковым номером внутри группы
// (по времени создания, по возрастанию).
type GroupGame struct {
	Game
	GameNumber int `json:"gameNumber"`
}

// GroupOverview — сводка по группе для главного экрана.
type GroupOverview struct {
	Group   Group       `json:"group"`
	Members []User      `json:"members"`
	Games   []GroupGame `json:"games"`
}
