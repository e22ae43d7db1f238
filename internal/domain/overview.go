package domain

import "sort"

// Overview summarises the whole ticket table.
type Overview struct {
	TotalRecords            int            `json:"total_records"`
	OpenCount               int            `json:"current_open_count"`
	EmptyFirstResponseCount int            `json:"empty_firstresponse_count"`
	PriorityDistribution    map[string]int `json:"priority_distribution"`
	StateDistribution       map[string]int `json:"state_distribution"`
	DailyNew                map[string]int `json:"daily_new"`
	DailyClosed             map[string]int `json:"daily_closed"`
	DailyOpen               map[string]int `json:"daily_open"`
}

// CumulativeOpen walks every day that saw activity in ascending order and
// accumulates new minus closed.
func CumulativeOpen(dailyNew, dailyClosed map[string]int) map[string]int {
	days := make(map[string]struct{}, len(dailyNew)+len(dailyClosed))
	for day := range dailyNew {
		days[day] = struct{}{}
	}
	for day := range dailyClosed {
		days[day] = struct{}{}
	}
	ordered := make([]string, 0, len(days))
	for day := range days {
		ordered = append(ordered, day)
	}
	sort.Strings(ordered)

	result := make(map[string]int, len(ordered))
	running := 0
	for _, day := range ordered {
		running += dailyNew[day] - dailyClosed[day]
		result[day] = running
	}
	return result
}
