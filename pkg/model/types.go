package model

import (
	"strings"
	"time"
)

// DateLayout is the storage and form format for sheet and task dates.
const DateLayout = "2006-01-02"

// Status mirrors the publishing state of a sheet.
type Status string

const (
	StatusPublish Status = "publish"
	StatusDraft   Status = "draft"
	StatusTrash   Status = "trash"
)

// RowType distinguishes task rows from section headers in a sheet.
type RowType string

const (
	RowTypeTask   RowType = "task"
	RowTypeHeader RowType = "header"
)

// Sheet is a sign-up sheet (an event) grouping tasks.
type Sheet struct {
	ID        int64             `json:"id"`
	Title     string            `json:"title"`
	Slug      string            `json:"slug"`
	Content   string            `json:"content,omitempty"`
	Date      time.Time         `json:"date,omitempty"`
	IsActive  bool              `json:"isActive"`
	Status    Status            `json:"status"`
	Meta      map[string]string `json:"meta,omitempty"`
	CreatedAt time.Time         `json:"createdAt"`
	UpdatedAt time.Time         `json:"updatedAt"`
}

// Task is a single volunteer job on a sheet with Qty spots.
type Task struct {
	ID       int64             `json:"id"`
	SheetID  int64             `json:"sheetId"`
	Title    string            `json:"title"`
	Qty      int               `json:"qty"`
	Position int               `json:"position"`
	Date     time.Time         `json:"date,omitempty"`
	RowType  RowType           `json:"rowType"`
	IsActive bool              `json:"isActive"`
	Meta     map[string]string `json:"meta,omitempty"`
}

// Signup is one claimed spot on a task.
type Signup struct {
	ID           int64             `json:"id"`
	TaskID       int64             `json:"taskId"`
	FirstName    string            `json:"firstname"`
	LastName     string            `json:"lastname"`
	Email        string            `json:"email,omitempty"`
	Phone        string            `json:"phone,omitempty"`
	Address      string            `json:"address,omitempty"`
	City         string            `json:"city,omitempty"`
	State        string            `json:"state,omitempty"`
	Zip          string            `json:"zip,omitempty"`
	UserID       int64             `json:"userId,omitempty"`
	RemovalToken string            `json:"-"`
	Reminded     bool              `json:"reminded,omitempty"`
	Fields       map[string]string `json:"fields,omitempty"`
	CreatedAt    time.Time         `json:"createdAt"`
}

// User is an authenticated account with one or more roles.
type User struct {
	ID           int64    `json:"id"`
	Login        string   `json:"login"`
	DisplayName  string   `json:"displayName"`
	Email        string   `json:"email"`
	FirstName    string   `json:"firstName,omitempty"`
	LastName     string   `json:"lastName,omitempty"`
	Roles        []string `json:"roles"`
	PasswordHash string   `json:"-"`
}

// HasRole reports whether the user carries role.
func (u *User) HasRole(role string) bool {
	if u == nil {
		return false
	}
	for _, r := range u.Roles {
		if strings.EqualFold(r, role) {
			return true
		}
	}
	return false
}

// MetaValue returns a trimmed meta value, or "" when missing.
func (s *Sheet) MetaValue(key string) string {
	if s == nil || s.Meta == nil {
		return ""
	}
	return strings.TrimSpace(s.Meta[key])
}

// IsPublished reports whether visitors may see and sign up on the sheet.
func (s *Sheet) IsPublished() bool {
	return s.Status != StatusDraft && s.Status != StatusTrash
}

// IsHeader reports whether the row is a section header rather than a task.
func (t Task) IsHeader() bool {
	return t.RowType == RowTypeHeader
}

// FullName joins the first and last name.
func (s Signup) FullName() string {
	return strings.TrimSpace(s.FirstName + " " + s.LastName)
}
