package models

import "errors"

// RebuyType определяет, как считается размер ребая.
type RebuyType string

const (
	RebuyTypeFixed   RebuyType = "fixed"   // сумма в пределах [MinRebuy, MaxRebuy]
	RebuyTypePercent RebuyType = "percent" // процент от бай-ина
)

// LateRegType определяет, чем ограничено окно поздней регистрации.
type LateRegType string

const (
	LateRegByMinutes LateRegType = "minutes"
	LateRegByLevel   LateRegType = "level"
)

var (
	ErrSettingsCurrencyRequired   = errors.New("settings: currency is required")
	ErrSettingsBuyInRequired      = errors.New("settings: buy-in must be positive")
	ErrSettingsInvalidGameType    = errors.New("settings: invalid game type")
	ErrSettingsCashBlindsRequired = errors.New("settings: cash game requires small and big blind")
	ErrSettingsChipsRequired      = errors.New("settings: tournament requires starting chips")
	ErrSettingsBlindsRequired     = errors.New("settings: tournament requires starting blinds")
	ErrSettingsLevelRequired      = errors.New("settings: tournament requires level duration")
	ErrSettingsRebuyBounds        = errors.New("settings: fixed rebuy requires min and max bounds")
	ErrSettingsRebuyPercent       = errors.New("settings: percent rebuy requires rebuy percent")
	ErrSettingsLateRegWindow      = errors.New("settings: late registration requires a window (minutes or level)")
)

// GameSettings — конфигурация игры, один к одному с Game. Неизменяема после
// создания. Обязательные поля зависят от GameType: кэш-игра использует блайнды
// в валюте, турнир — стек фишек и структуру уровней.
type GameSettings struct {
	GameID   int      `json:"gameId"`
	GameType GameType `json:"gameType"`
	Currency string   `json:"currency"`
	BuyIn    int      `json:"buyIn"`

	// cash
	CashSB *int `json:"cashSB,omitempty"`
	CashBB *int `json:"cashBB,omitempty"`

	// rebuy policy
	AllowRebuy       bool      `json:"allowRebuy"`
	RebuyType        RebuyType `json:"rebuyType,omitempty"`
	MinRebuy         *int      `json:"minRebuy,omitempty"`
	MaxRebuy         *int      `json:"maxRebuy,omitempty"`
	RebuyPercent     *int      `json:"rebuyPercent,omitempty"`
	MaxRebuysAllowed *int      `json:"maxRebuysAllowed,omitempty"`

	// tournament
	StartingChips *int `json:"startingChips,omitempty"`
	LevelDuration *int `json:"levelDuration,omitempty"`
	StartingSB    *int `json:"startingSB,omitempty"`
	StartingBB    *int `json:"startingBB,omitempty"`

	// late registration
	EnableLateReg  bool        `json:"enableLateReg"`
	LateRegType    LateRegType `json:"lateRegType,omitempty"`
	LateRegMinutes *int        `json:"lateRegMinutes,omitempty"`
	LateRegLevel   *int        `json:"lateRegLevel,omitempty"`

	AllowStraddle   bool   `json:"allowStraddle"`
	AllowRunItTwice bool   `json:"allowRunItTwice"`
	Notes           string `json:"notes"`
}

// Validate проверяет обязательные поля для объявленного типа игры.
func (s *GameSettings) Validate() error {
	if s.Currency == "" {
		return ErrSettingsCurrencyRequired
	}
	if s.BuyIn <= 0 {
		return ErrSettingsBuyInRequired
	}

	switch s.GameType {
	case GameTypeCash:
		if !positive(s.CashSB) || !positive(s.CashBB) {
			return ErrSettingsCashBlindsRequired
		}
	case GameTypeTournament:
		if !positive(s.StartingChips) {
			return ErrSettingsChipsRequired
		}
		if !positive(s.StartingSB) || !positive(s.StartingBB) {
			return ErrSettingsBlindsRequired
		}
		if !positive(s.LevelDuration) {
			return ErrSettingsLevelRequired
		}
	default:
		return ErrSettingsInvalidGameType
	}

	if s.AllowRebuy {
		switch s.RebuyType {
		case RebuyTypeFixed:
			if !positive(s.MinRebuy) || !positive(s.MaxRebuy) || *s.MinRebuy > *s.MaxRebuy {
				return ErrSettingsRebuyBounds
			}
		case RebuyTypePercent:
			if !positive(s.RebuyPercent) {
				return ErrSettingsRebuyPercent
			}
		}
	}

	if s.EnableLateReg {
		switch s.LateRegType {
		case LateRegByMinutes:
			if !positive(s.LateRegMinutes) {
				return ErrSettingsLateRegWindow
			}
		case LateRegByLevel:
			if !positive(s.LateRegLevel) {
				return ErrSettingsLateRegWindow
			}
		default:
			return ErrSettingsLateRegWindow
		}
	}

	return nil
}

func positive(v *int) bool {
	return v != nil && *v > 0
}
