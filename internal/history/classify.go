package history

import (
	"sort"
	"time"

	"smartassist/internal/api"
)

// Bucket labels for the recent groups. Older entries fall into one
// bucket per calendar month, labelled like "January 2026".
const (
	BucketToday  = "Today"
	Bucket7Days  = "Previous 7 Days"
	Bucket30Days = "Previous 30 Days"
)

// Bucket is one display group of the sidebar.
type Bucket struct {
	Label   string
	Entries []api.Entry
}

// Classify partitions entries into display buckets using the local time
// zone of now: created today, within the previous 7 days, within the
// previous 30 days, then one bucket per calendar month. Buckets are
// ordered newest first and entries inside each bucket sort by creation
// time descending. Empty buckets are omitted.
func Classify(entries []api.Entry, now time.Time) []Bucket {
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	weekAgo := midnight.AddDate(0, 0, -7)
	monthAgo := midnight.AddDate(0, 0, -30)

	groups := map[string][]api.Entry{}
	var monthLabels []string

	for _, e := range entries {
		created := e.CreatedAt.In(now.Location())
		var label string
		switch {
		case !created.Before(midnight):
			label = BucketToday
		case !created.Before(weekAgo):
			label = Bucket7Days
		case !created.Before(monthAgo):
			label = Bucket30Days
		default:
			label = created.Format("January 2006")
			if _, seen := groups[label]; !seen {
				monthLabels = append(monthLabels, label)
			}
		}
		groups[label] = append(groups[label], e)
	}

	for label := range groups {
		g := groups[label]
		sort.SliceStable(g, func(i, j int) bool {
			return g[i].CreatedAt.After(g[j].CreatedAt)
		})
	}

	// Month buckets sort newest first by their first (newest) entry.
	sort.SliceStable(monthLabels, func(i, j int) bool {
		return groups[monthLabels[i]][0].CreatedAt.After(groups[monthLabels[j]][0].CreatedAt)
	})

	var out []Bucket
	for _, label := range []string{BucketToday, Bucket7Days, Bucket30Days} {
		if g, ok := groups[label]; ok {
			out = append(out, Bucket{Label: label, Entries: g})
		}
	}
	for _, label := range monthLabels {
		out = append(out, Bucket{Label: label, Entries: groups[label]})
	}
	return out
}
