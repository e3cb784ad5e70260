package scoringdomain

import "sort"

// SortLeaderboard orders by value descending, then by ascending attacker
// points, then by name.
func SortLeaderboard(scores []SubmissionScore) {
	sort.SliceStable(scores, func(i, j int) bool {
		a, b := scores[i], scores[j]
		if a.Value != b.Value {
			return a.Value > b.Value
		}
		if sa, sb := a.AttackerPointsSum(), b.AttackerPointsSum(); sa != sb {
			return sa < sb
		}
		return a.Name < b.Name
	})
}

// AttackerTotal is an attacking team's overall standing.
type AttackerTotal struct {
	Name   string `json:"name"`
	Points int    `json:"points"`
}

// AttackerStandings totals each attacker's best results. Each team may hold
// maxSubmissionsPerTeam submissions, so only the best
// len(scores)-maxSubmissionsPerTeam results of an attacker count.
func AttackerStandings(scores []SubmissionScore, maxSubmissionsPerTeam int) []AttackerTotal {
	counted := len(scores) - maxSubmissionsPerTeam
	if counted < 0 {
		counted = 0
	}

	var order []string
	results := make(map[string][]int)
	for _, s := range scores {
		for _, a := range s.Attackers {
			if _, seen := results[a.Name]; !seen {
				order = append(order, a.Name)
			}
			results[a.Name] = append(results[a.Name], a.Points)
		}
	}

	totals := make([]AttackerTotal, 0, len(order))
	for _, name := range order {
		points := results[name]
		sort.Sort(sort.Reverse(sort.IntSlice(points)))
		if len(points) > counted {
			points = points[:counted]
		}
		total := 0
		for _, p := range points {
			total += p
		}
		totals = append(totals, AttackerTotal{Name: name, Points: total})
	}
	sort.SliceStable(totals, func(i, j int) bool { return totals[i].Points > totals[j].Points })
	return totals
}
