package history

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smartassist/internal/api"
)

func TestClassifyBuckets(t *testing.T) {
	// Fixed "now" mid-day so midnight boundaries are unambiguous.
	now := time.Date(2026, time.August, 30, 14, 0, 0, 0, time.Local)

	entries := []api.Entry{
		{ID: "today", CreatedAt: now.Add(-2 * time.Hour)},
		{ID: "thisWeek", CreatedAt: now.AddDate(0, 0, -3)},
		{ID: "tenDays", CreatedAt: now.AddDate(0, 0, -10)},
		{ID: "fortyDays", CreatedAt: now.AddDate(0, 0, -40)},
		{ID: "lastYear", CreatedAt: time.Date(2025, time.March, 5, 9, 0, 0, 0, time.Local)},
	}

	buckets := Classify(entries, now)
	labels := make([]string, len(buckets))
	for i, b := range buckets {
		labels[i] = b.Label
	}
	assert.Equal(t, []string{
		BucketToday,
		Bucket7Days,
		Bucket30Days,
		"July 2026",
		"March 2025",
	}, labels)

	byLabel := map[string][]api.Entry{}
	for _, b := range buckets {
		byLabel[b.Label] = b.Entries
	}
	assert.Equal(t, "today", byLabel[BucketToday][0].ID)
	assert.Equal(t, "thisWeek", byLabel[Bucket7Days][0].ID)
	assert.Equal(t, "tenDays", byLabel[Bucket30Days][0].ID)
	assert.Equal(t, "fortyDays", byLabel["July 2026"][0].ID)
}

func TestClassifyMidnightBoundary(t *testing.T) {
	now := time.Date(2026, time.August, 30, 0, 30, 0, 0, time.Local)
	midnight := time.Date(2026, time.August, 30, 0, 0, 0, 0, time.Local)

	entries := []api.Entry{
		{ID: "justToday", CreatedAt: midnight},
		{ID: "lastNight", CreatedAt: midnight.Add(-time.Minute)},
	}

	buckets := Classify(entries, now)
	require.Len(t, buckets, 2)
	assert.Equal(t, BucketToday, buckets[0].Label)
	assert.Equal(t, "justToday", buckets[0].Entries[0].ID)
	assert.Equal(t, Bucket7Days, buckets[1].Label)
	assert.Equal(t, "lastNight", buckets[1].Entries[0].ID)
}

func TestClassifySortsWithinBucket(t *testing.T) {
	now := time.Date(2026, time.August, 30, 14, 0, 0, 0, time.Local)
	entries := []api.Entry{
		{ID: "older", CreatedAt: now.Add(-5 * time.Hour)},
		{ID: "newer", CreatedAt: now.Add(-1 * time.Hour)},
	}

	buckets := Classify(entries, now)
	require.Len(t, buckets, 1)
	assert.Equal(t, []string{"newer", "older"},
		[]string{buckets[0].Entries[0].ID, buckets[0].Entries[1].ID})
}

func TestClassifyMonthBucketOrder(t *testing.T) {
	now := time.Date(2026, time.August, 30, 14, 0, 0, 0, time.Local)
	entries := []api.Entry{
		{ID: "march", CreatedAt: time.Date(2026, time.March, 1, 0, 0, 0, 0, time.Local)},
		{ID: "june", CreatedAt: time.Date(2026, time.June, 1, 0, 0, 0, 0, time.Local)},
	}

	buckets := Classify(entries, now)
	require.Len(t, buckets, 2)
	assert.Equal(t, "June 2026", buckets[0].Label)
	assert.Equal(t, "March 2026", buckets[1].Label)
}

func TestClassifyEmpty(t *testing.T) {
	assert.Empty(t, Classify(nil, time.Now()))
}
