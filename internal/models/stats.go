package models

// DailyStats summarizes the entries of one day for the admin dashboard
type DailyStats struct {
	Date              string `json:"date"`
	TotalEntries      int    `json:"total_entries"`
	PaidEntries       int    `json:"paid_entries"`
	FreeEntries       int    `json:"free_entries"`
	DisabilityEntries int    `json:"disability_entries"`
	CurrentlyInside   int    `json:"currently_inside"`
}
