package weeklylog

import (
	"sort"
	"time"

	"activitylog/internal/domain/activity"
	"activitylog/internal/domain/duration"
	"activitylog/internal/domain/week"
)

// Skip reasons reported for records that cannot be grouped.
const (
	ReasonMissingLogType = "missing log type"
	ReasonMissingDate    = "missing date"
)

// WeeklyLog is the derived, never-persisted bucket of activities sharing a log type and week.
type WeeklyLog struct {
	LogType              activity.LogType
	WeekStart            time.Time
	WeekEnd              time.Time
	Label                string
	Activities           []activity.Activity
	TotalDurationMinutes int
	TotalFormatted       string
}

// Skip identifies an input record that was left out of the result.
type Skip struct {
	Index  int
	ID     string
	Reason string
}

// Result is the grouped output plus any records that were skipped.
type Result struct {
	Logs    []WeeklyLog
	Skipped []Skip
}

// SkippedCount returns the number of records left out of Logs.
func (r Result) SkippedCount() int {
	return len(r.Skipped)
}

type groupKey struct {
	logType   activity.LogType
	weekStart string
}

// Group buckets records by (log type, week start). Week starts compare by calendar date, so
// records carrying different locations still share a bucket; WeekStart is reported as UTC
// midnight. Within a bucket, activities keep their input order. Buckets are ordered most
// recent week first, then by log type.
// PRE: records were already authorized and fetched by the caller
// POST: every input record appears in exactly one of Logs or Skipped
// INVARIANT: output order depends only on the multiset of records, never on input order
func Group(records []activity.Activity) Result {
	var res Result
	index := make(map[groupKey]int)

	for i, rec := range records {
		if rec.LogType == "" {
			res.Skipped = append(res.Skipped, Skip{Index: i, ID: rec.ID, Reason: ReasonMissingLogType})
			continue
		}
		ws := rec.WeekStart
		if ws.IsZero() {
			if rec.Date.IsZero() {
				res.Skipped = append(res.Skipped, Skip{Index: i, ID: rec.ID, Reason: ReasonMissingDate})
				continue
			}
			ws = week.Start(rec.Date)
		}
		ws = time.Date(ws.Year(), ws.Month(), ws.Day(), 0, 0, 0, 0, time.UTC)

		key := groupKey{logType: rec.LogType, weekStart: week.FormatDate(ws)}
		pos, ok := index[key]
		if !ok {
			pos = len(res.Logs)
			index[key] = pos
			res.Logs = append(res.Logs, WeeklyLog{
				LogType:   rec.LogType,
				WeekStart: ws,
				WeekEnd:   week.End(ws),
				Label:     week.FormatRange(ws),
			})
		}
		res.Logs[pos].Activities = append(res.Logs[pos].Activities, rec)
		res.Logs[pos].TotalDurationMinutes += rec.Minutes()
	}

	// Keys are unique after grouping, so this ordering is total.
	sort.Slice(res.Logs, func(i, j int) bool {
		a, b := res.Logs[i], res.Logs[j]
		if !a.WeekStart.Equal(b.WeekStart) {
			return a.WeekStart.After(b.WeekStart)
		}
		return a.LogType < b.LogType
	})
	for i := range res.Logs {
		res.Logs[i].TotalFormatted = duration.Format(res.Logs[i].TotalDurationMinutes)
	}
	return res
}

// TotalMinutes sums the totals of every log.
func TotalMinutes(logs []WeeklyLog) int {
	total := 0
	for _, l := range logs {
		total += l.TotalDurationMinutes
	}
	return total
}
