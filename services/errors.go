package services

import "errors"

// Общие ошибки сервисного слоя, используемые в маппинге HTTP.
var (
	// Ошибки валидации и бизнес-правил
	ErrValidationFailed        = errors.New("validation failed")
	ErrPlayersRequired         = errors.New("at least one player is required")
	ErrDuplicatePlayers        = errors.New("player ids contain duplicates")
	ErrInvalidGameStatus       = errors.New("invalid game status")
	ErrInvalidStatusTransition = errors.New("invalid game status transition")
	ErrGameNotActive           = errors.New("game is not active")

	// Политика ребаев
	ErrRebuyNotAllowed       = errors.New("rebuys are not allowed for this game")
	ErrRebuyAmountInvalid    = errors.New("rebuy amount must be positive")
	ErrRebuyAmountOutOfRange = errors.New("rebuy amount is outside the allowed bounds")
	ErrRebuyLimitReached     = errors.New("player has reached the rebuy limit")
	ErrRebuyPlayerNotInGame  = errors.New("player is not registered for this game")

	// Завершение игры
	ErrGameAlreadyFinished    = errors.New("game is already finished")
	ErrResultsRequired        = errors.New("at least one result row is required")
	ErrResultsDuplicatePlayer = errors.New("results contain a duplicate player")
	ErrResultsProfitMismatch  = errors.New("result profit must equal money out minus money in")
	ErrResultsNotZeroSum      = errors.New("results must sum to a zero-sum settlement")
	ErrResultsPlayerNotInGame = errors.New("result references a player not registered for this game")

	// Ошибки "не найдено"
	ErrGameNotFound         = errors.New("game not found")
	ErrGroupNotFound        = errors.New("group not found")
	ErrUserNotFound         = errors.New("user not found")
	ErrNotificationNotFound = errors.New("notification not found")

	// Аутентификация
	ErrAuthInvalidCredentials = errors.New("invalid email or password")
	ErrAuthEmailTaken         = errors.New("email is already taken")
	ErrAuthUsernameTaken      = errors.New("username is already taken")

	// Группы и уведомления
	ErrGroupNameRequired    = errors.New("group name is required")
	ErrReceiversRequired    = errors.New("at least one receiver is required")
	ErrMessageRequired      = errors.New("notification message is required")
)
