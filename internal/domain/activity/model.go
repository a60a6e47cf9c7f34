package activity

import (
	"errors"
	"strings"
	"time"

	"activitylog/internal/domain/duration"
	"activitylog/internal/domain/week"
)

// Max length constants for user-editable fields.
const (
	MaxDescriptionLength = 2000
	MaxNotesLength       = 2000
	MaxCommentLength     = 1000
)

// LogType is the category of weekly log an activity belongs to.
type LogType string

// Log type constants. The string form is canonical and drives group ordering.
const (
	LogTypeEducation      LogType = "Education and Training"
	LogTypeEmployment     LogType = "Employment Search"
	LogTypeProgram        LogType = "Program Activity"
	LogTypeWorkExperience LogType = "Work Experience"
)

// logTypes is kept in lexical order.
var logTypes = []LogType{LogTypeEducation, LogTypeEmployment, LogTypeProgram, LogTypeWorkExperience}

// Domain errors
var (
	ErrEmptyOwnerID       = errors.New("owner ID is required")
	ErrInvalidLogType     = errors.New("log type must be one of: Education and Training, Employment Search, Program Activity, Work Experience")
	ErrEmptyDate          = errors.New("activity date is required")
	ErrWeekStartMismatch  = errors.New("week start does not match the activity date")
	ErrNegativeDuration   = errors.New("duration cannot be negative")
	ErrDurationTooLong    = errors.New("duration cannot exceed 24 hours")
	ErrDurationMismatch   = errors.New("duration does not match start and end time")
	ErrDescriptionTooLong = errors.New("description cannot exceed 2000 characters")
	ErrNotesTooLong       = errors.New("notes cannot exceed 2000 characters")
	ErrImmutableField     = errors.New("owner and log type cannot be changed after creation")
	ErrEmptyComment       = errors.New("comment text cannot be empty")
	ErrCommentTooLong     = errors.New("comment cannot exceed 1000 characters")
	ErrEmptyCommentAuthor = errors.New("comment author is required")
)

// LogTypes returns every log type in canonical order.
func LogTypes() []LogType {
	out := make([]LogType, len(logTypes))
	copy(out, logTypes)
	return out
}

// ParseLogType matches s against the known log types, ignoring surrounding whitespace.
// PRE: none
// POST: returns the LogType or ErrInvalidLogType
func ParseLogType(s string) (LogType, error) {
	s = strings.TrimSpace(s)
	for _, lt := range logTypes {
		if string(lt) == s {
			return lt, nil
		}
	}
	return "", ErrInvalidLogType
}

// Valid reports whether lt is one of the known log types.
func (lt LogType) Valid() bool {
	_, err := ParseLogType(string(lt))
	return err == nil
}

// Comment is an entry in an activity's append-only discussion thread.
type Comment struct {
	ID         string
	AuthorID   string
	AuthorName string
	AuthorRole string
	Text       string
	Timestamp  time.Time
}

// Validate checks if the Comment has valid data.
// PRE: Comment struct is populated
// POST: Returns nil if valid, error otherwise
func (c *Comment) Validate() error {
	if c.AuthorID == "" {
		return ErrEmptyCommentAuthor
	}
	if strings.TrimSpace(c.Text) == "" {
		return ErrEmptyComment
	}
	if len(c.Text) > MaxCommentLength {
		return ErrCommentTooLong
	}
	if c.Timestamp.IsZero() {
		return errors.New("comment timestamp must be set")
	}
	return nil
}

// Activity is a single logged activity of a program participant.
// INVARIANT: WeekStart == week.Start(Date)
// INVARIANT: StartTime and EndTime both set implies *Duration == duration.Elapsed(StartTime, EndTime)
type Activity struct {
	ID          string
	OwnerID     string // account ID of the client the activity belongs to
	LogType     LogType
	WeekStart   time.Time
	Date        time.Time
	StartTime   string // HH:MM or empty
	EndTime     string // HH:MM or empty
	Duration    *int   // minutes
	Description string
	Notes       string
	Comments    []Comment
	CreatedBy   string // account ID of whoever created the record (owner or coach)
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// NewInput carries the caller-settable fields of a new activity.
type NewInput struct {
	ID          string
	OwnerID     string
	LogType     string
	Date        time.Time
	StartTime   string
	EndTime     string
	Duration    *int
	Description string
	Notes       string
	CreatedBy   string
	CreatedAt   time.Time
}

// New builds a validated Activity, deriving WeekStart from Date and Duration from the
// start and end times when both are given.
// PRE: none
// POST: returned Activity satisfies Validate, or an error describing the first violation
func New(in NewInput) (Activity, error) {
	lt, err := ParseLogType(in.LogType)
	if err != nil {
		return Activity{}, err
	}
	a := Activity{
		ID:          in.ID,
		OwnerID:     in.OwnerID,
		LogType:     lt,
		Date:        in.Date,
		StartTime:   strings.TrimSpace(in.StartTime),
		EndTime:     strings.TrimSpace(in.EndTime),
		Duration:    copyInt(in.Duration),
		Description: strings.TrimSpace(in.Description),
		Notes:       strings.TrimSpace(in.Notes),
		CreatedBy:   in.CreatedBy,
		CreatedAt:   in.CreatedAt,
	}
	if err := a.derive(); err != nil {
		return Activity{}, err
	}
	if err := a.Validate(); err != nil {
		return Activity{}, err
	}
	return a, nil
}

// Changes lists the mutable fields of an existing activity. Nil fields are left untouched.
// OwnerID and LogType are accepted only so callers can pass them through; any value
// different from the stored one is rejected.
type Changes struct {
	OwnerID     *string
	LogType     *string
	Date        *time.Time
	StartTime   *string
	EndTime     *string
	Duration    *int
	Description *string
	Notes       *string
}

// ApplyChanges updates the activity in place and re-derives WeekStart and Duration.
// PRE: a was loaded from storage
// POST: on success a satisfies Validate; on failure a is unchanged
func (a *Activity) ApplyChanges(c Changes, now time.Time) error {
	if c.OwnerID != nil && *c.OwnerID != a.OwnerID {
		return ErrImmutableField
	}
	if c.LogType != nil && strings.TrimSpace(*c.LogType) != string(a.LogType) {
		return ErrImmutableField
	}

	next := *a
	if c.Date != nil {
		next.Date = *c.Date
	}
	if c.StartTime != nil {
		next.StartTime = strings.TrimSpace(*c.StartTime)
	}
	if c.EndTime != nil {
		next.EndTime = strings.TrimSpace(*c.EndTime)
	}
	if c.Duration != nil {
		next.Duration = copyInt(c.Duration)
	}
	if c.Description != nil {
		next.Description = strings.TrimSpace(*c.Description)
	}
	if c.Notes != nil {
		next.Notes = strings.TrimSpace(*c.Notes)
	}
	if err := next.derive(); err != nil {
		return err
	}
	if err := next.Validate(); err != nil {
		return err
	}
	next.UpdatedAt = now
	*a = next
	return nil
}

// Validate checks the activity invariants.
// PRE: none
// POST: returns nil if valid, error describing the first violation otherwise
func (a *Activity) Validate() error {
	if a.OwnerID == "" {
		return ErrEmptyOwnerID
	}
	if !a.LogType.Valid() {
		return ErrInvalidLogType
	}
	if a.Date.IsZero() {
		return ErrEmptyDate
	}
	if !a.WeekStart.Equal(week.Start(a.Date)) {
		return ErrWeekStartMismatch
	}
	for _, clock := range []string{a.StartTime, a.EndTime} {
		if clock == "" {
			continue
		}
		if _, err := duration.ParseClock(clock); err != nil {
			return err
		}
	}
	elapsed, err := duration.Elapsed(a.StartTime, a.EndTime)
	if err != nil {
		return err
	}
	if a.Duration != nil {
		if *a.Duration < 0 {
			return ErrNegativeDuration
		}
		if *a.Duration > duration.MinutesPerDay {
			return ErrDurationTooLong
		}
		if a.StartTime != "" && a.EndTime != "" && *a.Duration != elapsed {
			return ErrDurationMismatch
		}
	}
	if len(a.Description) > MaxDescriptionLength {
		return ErrDescriptionTooLong
	}
	if len(a.Notes) > MaxNotesLength {
		return ErrNotesTooLong
	}
	return nil
}

// AppendComment adds a comment to the end of the thread. Comments are never edited or removed.
// PRE: c is populated
// POST: c appended to Comments, or validation error with Comments unchanged
func (a *Activity) AppendComment(c Comment) error {
	if err := c.Validate(); err != nil {
		return err
	}
	c.Text = strings.TrimSpace(c.Text)
	a.Comments = append(a.Comments, c)
	return nil
}

// Minutes returns the recorded duration, treating a missing duration as zero.
// INVARIANT: Activity fields are not mutated
func (a *Activity) Minutes() int {
	if a.Duration == nil {
		return 0
	}
	return *a.Duration
}

// derive recomputes the fields that are functions of other fields.
func (a *Activity) derive() error {
	if !a.Date.IsZero() {
		a.WeekStart = week.Start(a.Date)
	}
	if a.StartTime != "" && a.EndTime != "" {
		elapsed, err := duration.Elapsed(a.StartTime, a.EndTime)
		if err != nil {
			return err
		}
		a.Duration = &elapsed
	}
	return nil
}

func copyInt(p *int) *int {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
