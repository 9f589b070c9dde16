package main

// Role identifies a party. Statuses use producer/designer/nobody for their
// responsible field; users additionally may be admin or a plain user.
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleProducer Role = "producer"
	RoleDesigner Role = "designer"
	RoleUser     Role = "user"
	RoleNobody   Role = "nobody"
)

// Category classifies a status for archive purposes. It is set when the
// status is created; anything other than active counts as archival.
type Category string

const (
	CategoryActive    Category = "active"
	CategoryPublished Category = "published"
	CategoryBanned    Category = "banned"
)

type Status struct {
	ID          int64    `json:"id"`
	Name        string   `json:"name"`
	Responsible Role     `json:"responsible"`
	Category    Category `json:"category"`
}

func (s Status) IsArchive() bool { return s.Category != CategoryActive }

type Character struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Developer counters are derived from the live project set; they are never
// written directly, only through Stats recomputation.
type Developer struct {
	ID               int64  `json:"id"`
	Name             string `json:"name"`
	Username         string `json:"username"`
	TotalProjects    int    `json:"total_projects"`
	ReleasedProjects int    `json:"released_projects"`
	BannedProjects   int    `json:"banned_projects"`
}

type Project struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	CharacterID int64  `json:"character_id"`
	DeveloperID int64  `json:"developer_id"`
	StatusID    int64  `json:"status_id"`
}

type User struct {
	UserID               int64  `json:"user_id"`
	Username             string `json:"username,omitempty"`
	FirstName            string `json:"first_name,omitempty"`
	Role                 Role   `json:"role"`
	NotificationsEnabled bool   `json:"notifications_enabled"`
	// NotificationInterval is minutes between digests; one of notificationIntervals.
	NotificationInterval int `json:"notification_interval"`
}

type ChecklistItem struct {
	ID      int64  `json:"id"`
	Text    string `json:"text"`
	Checked bool   `json:"checked"`
}

// Checklist is keyed by status, not by project: all projects sitting at the
// same status share one checklist, and a successful gated transition resets
// it for the next project that arrives.
type Checklist struct {
	StatusID int64           `json:"status_id"`
	Items    []ChecklistItem `json:"items"`
}

// IsComplete is vacuously true for an empty checklist.
func (c Checklist) IsComplete() bool {
	for _, it := range c.Items {
		if !it.Checked {
			return false
		}
	}
	return true
}

var notificationIntervals = []int{5, 10, 15, 20, 25, 30, 60}

func validInterval(minutes int) bool {
	for _, v := range notificationIntervals {
		if v == minutes {
			return true
		}
	}
	return false
}
