package core

// Standing is one row of a leaderboard.
type Standing struct {
	Member string `json:"member"`
	Points int    `json:"points"`
}

// CategoryTotal is a count and its point value for one category.
type CategoryTotal struct {
	Category CategoryName `json:"category"`
	Count    int          `json:"count"`
	Points   int          `json:"points"`
}

// WeekPoints is a member's points for one week.
type WeekPoints struct {
	Week   WeekKey `json:"week"`
	Points int     `json:"points"`
}

// Summary is the headline of a leaderboard.
type Summary struct {
	TotalPoints   int    `json:"total_points"`
	Members       int    `json:"members"`
	ActiveMembers int    `json:"active_members"`
	Leader        string `json:"leader,omitempty"`
	LeaderPoints  int    `json:"leader_points"`
}
