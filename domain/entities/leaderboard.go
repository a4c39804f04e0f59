package entities

// LeaderboardEntry is one ranked row
type LeaderboardEntry struct {
	Username string `json:"username"`
	Points   int64  `json:"points"`
}

// LeaderboardPage is a page of the global ranking
type LeaderboardPage struct {
	Users []LeaderboardEntry `json:"users"`
	Total int64              `json:"total"`
	Page  int                `json:"page"`
	Limit int                `json:"limit"`
	Pages int                `json:"pages"`
}
