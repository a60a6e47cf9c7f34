package web

import (
	"time"

	"activitylog/internal/application/projections"
	"activitylog/internal/domain/activity"
	"activitylog/internal/domain/client"
	"activitylog/internal/domain/duration"
	"activitylog/internal/domain/week"
	"activitylog/internal/domain/weeklylog"
)

type commentJSON struct {
	ID         string    `json:"id"`
	AuthorID   string    `json:"author_id"`
	AuthorName string    `json:"author_name"`
	AuthorRole string    `json:"author_role"`
	Text       string    `json:"text"`
	Timestamp  time.Time `json:"timestamp"`
}

type activityJSON struct {
	ID                string        `json:"id"`
	OwnerID           string        `json:"owner_id"`
	OwnerName         string        `json:"owner_name,omitempty"`
	LogType           string        `json:"log_type"`
	WeekStart         string        `json:"week_start"`
	Date              string        `json:"date"`
	StartTime         string        `json:"start_time"`
	EndTime           string        `json:"end_time"`
	Duration          *int          `json:"duration"`
	DurationFormatted string        `json:"duration_formatted"`
	Description       string        `json:"description"`
	Notes             string        `json:"notes"`
	Comments          []commentJSON `json:"comments"`
	CreatedBy         string        `json:"created_by"`
	CreatedAt         time.Time     `json:"created_at"`
	UpdatedAt         *time.Time    `json:"updated_at,omitempty"`
	Editable          bool          `json:"editable"`
}

func toCommentJSON(c activity.Comment) commentJSON {
	return commentJSON{
		ID:         c.ID,
		AuthorID:   c.AuthorID,
		AuthorName: c.AuthorName,
		AuthorRole: c.AuthorRole,
		Text:       c.Text,
		Timestamp:  c.Timestamp,
	}
}

func toActivityJSON(a activity.Activity) activityJSON {
	out := activityJSON{
		ID:                a.ID,
		OwnerID:           a.OwnerID,
		LogType:           string(a.LogType),
		WeekStart:         week.FormatDate(a.WeekStart),
		Date:              week.FormatDate(a.Date),
		StartTime:         a.StartTime,
		EndTime:           a.EndTime,
		Duration:          a.Duration,
		DurationFormatted: duration.FormatPtr(a.Duration),
		Description:       a.Description,
		Notes:             a.Notes,
		Comments:          make([]commentJSON, 0, len(a.Comments)),
		CreatedBy:         a.CreatedBy,
		CreatedAt:         a.CreatedAt,
	}
	if !a.UpdatedAt.IsZero() {
		u := a.UpdatedAt
		out.UpdatedAt = &u
	}
	for _, c := range a.Comments {
		out.Comments = append(out.Comments, toCommentJSON(c))
	}
	return out
}

func activityViewJSON(v projections.ActivityView) activityJSON {
	out := toActivityJSON(v.Activity)
	out.OwnerName = v.OwnerName
	out.Editable = v.Editable
	return out
}

type weeklyLogJSON struct {
	OwnerID        string         `json:"owner_id"`
	OwnerName      string         `json:"owner_name"`
	LogType        string         `json:"log_type"`
	WeekStart      string         `json:"week_start"`
	WeekEnd        string         `json:"week_end"`
	Label          string         `json:"label"`
	Editable       bool           `json:"editable"`
	Activities     []activityJSON `json:"activities"`
	TotalMinutes   int            `json:"total_duration_minutes"`
	TotalFormatted string         `json:"total_formatted"`
}

type skipJSON struct {
	Index  int    `json:"index"`
	ID     string `json:"id"`
	Reason string `json:"reason"`
}

type weeklyLogsResponse struct {
	Logs           []weeklyLogJSON `json:"logs"`
	Skipped        []skipJSON      `json:"skipped"`
	SkippedCount   int             `json:"skipped_count"`
	TotalMinutes   int             `json:"total_duration_minutes"`
	TotalFormatted string          `json:"total_formatted"`
}

func toWeeklyLogsResponse(res projections.GetWeeklyLogsResult) weeklyLogsResponse {
	out := weeklyLogsResponse{
		Logs:           make([]weeklyLogJSON, 0, len(res.Logs)),
		Skipped:        make([]skipJSON, 0, len(res.Skipped)),
		SkippedCount:   len(res.Skipped),
		TotalMinutes:   res.TotalMinutes,
		TotalFormatted: res.TotalFormatted,
	}
	for _, l := range res.Logs {
		wl := weeklyLogJSON{
			OwnerID:        l.OwnerID,
			OwnerName:      l.OwnerName,
			LogType:        string(l.LogType),
			WeekStart:      week.FormatDate(l.WeekStart),
			WeekEnd:        week.FormatDate(l.WeekEnd),
			Label:          l.Label,
			Editable:       l.Editable,
			Activities:     make([]activityJSON, 0, len(l.Activities)),
			TotalMinutes:   l.TotalDurationMinutes,
			TotalFormatted: l.TotalFormatted,
		}
		for _, a := range l.Activities {
			aj := toActivityJSON(a)
			aj.OwnerName = l.OwnerName
			aj.Editable = l.Editable
			wl.Activities = append(wl.Activities, aj)
		}
		out.Logs = append(out.Logs, wl)
	}
	for _, s := range res.Skipped {
		out.Skipped = append(out.Skipped, skipJSON{Index: s.Index, ID: s.ID, Reason: s.Reason})
	}
	return out
}

// weeklyLogs strips the per-owner annotations for export.
func weeklyLogs(res projections.GetWeeklyLogsResult) []weeklylog.WeeklyLog {
	out := make([]weeklylog.WeeklyLog, len(res.Logs))
	for i, l := range res.Logs {
		out[i] = l.WeeklyLog
	}
	return out
}

type calendarDayJSON struct {
	Date           string         `json:"date"`
	InMonth        bool           `json:"in_month"`
	Activities     []activityJSON `json:"activities"`
	TotalMinutes   int            `json:"total_duration_minutes"`
	TotalFormatted string         `json:"total_formatted"`
}

type calendarWeekJSON struct {
	WeekStart      string            `json:"week_start"`
	Label          string            `json:"label"`
	Editable       bool              `json:"editable"`
	Days           []calendarDayJSON `json:"days"`
	TotalMinutes   int               `json:"total_duration_minutes"`
	TotalFormatted string            `json:"total_formatted"`
}

type calendarResponse struct {
	Month     string             `json:"month"`
	OwnerID   string             `json:"owner_id"`
	OwnerName string             `json:"owner_name"`
	Weeks     []calendarWeekJSON `json:"weeks"`
}

func toCalendarResponse(res projections.GetCalendarMonthResult) calendarResponse {
	out := calendarResponse{
		Month:     res.Month.Format(week.MonthLayout),
		OwnerID:   res.OwnerID,
		OwnerName: res.OwnerName,
		Weeks:     make([]calendarWeekJSON, 0, len(res.Weeks)),
	}
	for _, cw := range res.Weeks {
		wj := calendarWeekJSON{
			WeekStart:      week.FormatDate(cw.WeekStart),
			Label:          cw.Label,
			Editable:       cw.Editable,
			Days:           make([]calendarDayJSON, 0, len(cw.Days)),
			TotalMinutes:   cw.TotalMinutes,
			TotalFormatted: cw.TotalFormatted,
		}
		for _, d := range cw.Days {
			dj := calendarDayJSON{
				Date:           week.FormatDate(d.Date),
				InMonth:        d.InMonth,
				Activities:     make([]activityJSON, 0, len(d.Activities)),
				TotalMinutes:   d.TotalMinutes,
				TotalFormatted: d.TotalFormatted,
			}
			for _, a := range d.Activities {
				aj := toActivityJSON(a)
				aj.Editable = cw.Editable
				dj.Activities = append(dj.Activities, aj)
			}
			wj.Days = append(wj.Days, dj)
		}
		out.Weeks = append(out.Weeks, wj)
	}
	return out
}

type clientJSON struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Email      string    `json:"email"`
	Phone      string    `json:"phone"`
	Program    string    `json:"program"`
	CoachID    string    `json:"coach_id"`
	CoachName  string    `json:"coach_name,omitempty"`
	CaseNumber string    `json:"case_number"`
	Status     string    `json:"status"`
	CreatedAt  time.Time `json:"created_at"`
}

func toClientJSON(c client.Client, coachName string) clientJSON {
	return clientJSON{
		ID:         c.ID,
		Name:       c.Name,
		Email:      c.Email,
		Phone:      c.Phone,
		Program:    c.Program,
		CoachID:    c.CoachID,
		CoachName:  coachName,
		CaseNumber: c.CaseNumber,
		Status:     c.Status,
		CreatedAt:  c.CreatedAt,
	}
}
