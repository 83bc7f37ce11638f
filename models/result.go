package models

// GameResult — итог одного игрока в завершённой игре. Записывается ровно один
// раз при завершении; инвариант расчёта: Profit == MoneyOut - MoneyIn, сумма
// Profit по всем игрокам равна нулю.
type GameResult struct {
	GameID   int    `json:"gameId"`
	UserID   int    `json:"userId"`
	Username string `json:"username,omitempty"`
	MoneyIn  int    `json:"moneyIn"`
	MoneyOut int    `json:"moneyOut"`
	Profit   int    `json:"profit"`
}
