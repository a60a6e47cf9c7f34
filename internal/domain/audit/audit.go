package audit

import (
	"time"

	"github.com/google/uuid"
)

// Category represents the type of audit event.
type Category string

const (
	CategoryAccount  Category = "account"
	CategoryClient   Category = "client"
	CategoryActivity Category = "activity"
	CategorySecurity Category = "security"
	CategorySystem   Category = "system"
)

// Action represents the action that occurred.
type Action string

const (
	ActionCreate  Action = "create"
	ActionUpdate  Action = "update"
	ActionDelete  Action = "delete"
	ActionComment Action = "comment"
	ActionArchive Action = "archive"
	ActionLogin   Action = "login"
	ActionLogout  Action = "logout"
	ActionDenied  Action = "denied"
	ActionExport  Action = "export"
)

// Severity represents the severity level of an audit event.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// Resource types recorded on events.
const (
	ResourceActivity = "activity"
	ResourceAccount  = "account"
	ResourceClient   = "client"
)

// Event represents a single audit log entry.
type Event struct {
	ID           string    `json:"id"`
	Timestamp    time.Time `json:"timestamp"`
	Category     Category  `json:"category"`
	Action       Action    `json:"action"`
	Severity     Severity  `json:"severity"`
	ActorID      string    `json:"actor_id"`
	ActorRole    string    `json:"actor_role"`
	ResourceType string    `json:"resource_type"`
	ResourceID   string    `json:"resource_id"`
	SubjectID    string    `json:"subject_id"` // client whose data was touched, if any
	Description  string    `json:"description"`
	IPAddress    string    `json:"ip_address"`
	UserAgent    string    `json:"user_agent"`
}

// NewEvent creates an audit event stamped at at.
// PRE: action is non-empty
// POST: Returns an info-level Event with a fresh ID
func NewEvent(actorID, actorRole string, category Category, action Action, at time.Time) Event {
	return Event{
		ID:        uuid.New().String(),
		Timestamp: at,
		Category:  category,
		Action:    action,
		Severity:  SeverityInfo,
		ActorID:   actorID,
		ActorRole: actorRole,
	}
}

// WithSeverity sets the severity level.
func (e Event) WithSeverity(s Severity) Event {
	e.Severity = s
	return e
}

// WithResource sets resource information.
// PRE: resourceType and resourceID are non-empty
// POST: Event resource fields are populated
func (e Event) WithResource(resourceType, resourceID string) Event {
	e.ResourceType = resourceType
	e.ResourceID = resourceID
	return e
}

// WithSubject records the client the event concerns.
func (e Event) WithSubject(clientID string) Event {
	e.SubjectID = clientID
	return e
}

// WithDescription sets the event description.
func (e Event) WithDescription(desc string) Event {
	e.Description = desc
	return e
}

// WithRequest sets IP address and user agent from HTTP request.
func (e Event) WithRequest(ipAddress, userAgent string) Event {
	e.IPAddress = ipAddress
	e.UserAgent = userAgent
	return e
}
