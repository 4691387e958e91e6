package views

import (
	"github.com/goliatone/go-signupsheets/pkg/model"
	"github.com/goliatone/go-signupsheets/pkg/render"
)

// View names, relative to the embedded templates directory.
const (
	ViewSheetList     = "sheet_list"
	ViewSheet         = "sheet"
	ViewSignupForm    = "signup_form"
	ViewUserSignups   = "user_signups"
	ViewLogin         = "login"
	ViewMessage       = "message"
	ViewAdminSheets   = "admin/sheets"
	ViewEditSheet     = "admin/edit_sheet"
	ViewEditSignup    = "admin/edit_signup"
	ViewManageSignups = "admin/manage_signups"
	ViewSettings      = "admin/settings"
	ViewSiteHealth    = "admin/site_health"
)

// Layout carries what base.html needs on every page.
type Layout struct {
	Title   string         `json:"title"`
	Notices render.Notices `json:"notices,omitempty"`
	User    *model.User    `json:"user,omitempty"`
	Admin   bool           `json:"admin,omitempty"`
}

// SheetList is the public list of open sheets.
type SheetList struct {
	Layout
	Sheets []SheetRow `json:"sheets"`
}

type SheetRow struct {
	ID        int64  `json:"id"`
	Title     string `json:"title"`
	URL       string `json:"url"`
	Date      string `json:"date"`
	OpenSpots int    `json:"openSpots"`
}

// SheetPage is a single sheet with its task table.
type SheetPage struct {
	Layout
	SheetID        int64     `json:"sheetId"`
	Anchor         string    `json:"anchor"`
	BackURL        string    `json:"backUrl"`
	Date           string    `json:"date"`
	Content        string    `json:"content,omitempty"`
	Expired        bool      `json:"expired,omitempty"`
	TaskTitleLabel string    `json:"taskTitleLabel"`
	ShowDates      bool      `json:"showDates,omitempty"`
	Tasks          []TaskRow `json:"tasks"`
}

type TaskRow struct {
	ID        int64        `json:"id"`
	Title     string       `json:"title"`
	Header    bool         `json:"header,omitempty"`
	Date      string       `json:"date,omitempty"`
	Expired   bool         `json:"expired,omitempty"`
	SignupURL string       `json:"signupUrl,omitempty"`
	Extra     []FieldValue `json:"extra,omitempty"`
	Spots     []SpotRow    `json:"spots,omitempty"`
}

// SpotRow is one numbered spot of a task; Name is empty while open.
type SpotRow struct {
	Number     int          `json:"number"`
	Name       string       `json:"name,omitempty"`
	RemovalURL string       `json:"removalUrl,omitempty"`
	Fields     []FieldValue `json:"fields,omitempty"`
}

type FieldValue struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// Input is one rendered form control. Repeaters carry their rows, the last
// one blank.
type Input struct {
	Name     string         `json:"name"`
	Label    string         `json:"label"`
	Type     string         `json:"type"`
	Value    string         `json:"value,omitempty"`
	Values   []string       `json:"values,omitempty"`
	Required bool           `json:"required,omitempty"`
	Disabled bool           `json:"disabled,omitempty"`
	Pro      bool           `json:"pro,omitempty"`
	Note     string         `json:"note,omitempty"`
	Href     string         `json:"href,omitempty"`
	Source   string         `json:"source,omitempty"`
	Options  []model.Choice `json:"options,omitempty"`
	Columns  []string       `json:"columns,omitempty"`
	Rows     [][]Input      `json:"rows,omitempty"`
}

// InputGroup is a titled box or settings section.
type InputGroup struct {
	ID     string  `json:"id"`
	Title  string  `json:"title"`
	Pro    bool    `json:"pro,omitempty"`
	Inputs []Input `json:"inputs"`
}

// SignupForm is the front-end sign-up form. Error replaces the form when
// the requested tasks cannot be signed up for.
type SignupForm struct {
	Layout
	Error            string               `json:"error,omitempty"`
	SheetTitle       string               `json:"sheetTitle,omitempty"`
	TaskTitles       string               `json:"taskTitles,omitempty"`
	Action           string               `json:"action,omitempty"`
	GoBackURL        string               `json:"goBackUrl,omitempty"`
	Hidden           []render.HiddenField `json:"hidden,omitempty"`
	Inputs           []Input              `json:"inputs,omitempty"`
	Honeypot         bool                 `json:"honeypot,omitempty"`
	SimpleCaptcha    bool                 `json:"simpleCaptcha,omitempty"`
	CaptchaQuestion  string               `json:"captchaQuestion,omitempty"`
	RecaptchaSiteKey string               `json:"recaptchaSiteKey,omitempty"`
	RecaptchaVersion string               `json:"recaptchaVersion,omitempty"`
	SubmitLabel      string               `json:"submitLabel,omitempty"`
}

// UserSignups lists the spots the logged-in user holds.
type UserSignups struct {
	Layout
	Signups []UserSignupRow `json:"signups"`
}

type UserSignupRow struct {
	Sheet      string `json:"sheet"`
	SheetURL   string `json:"sheetUrl"`
	Task       string `json:"task"`
	Date       string `json:"date,omitempty"`
	RemovalURL string `json:"removalUrl,omitempty"`
}

type Login struct {
	Layout
	Action   string               `json:"action"`
	Redirect string               `json:"redirect,omitempty"`
	Login    string               `json:"login,omitempty"`
	Hidden   []render.HiddenField `json:"hidden,omitempty"`
}

// Message is a plain result page, e.g. after a removal.
type Message struct {
	Layout
	Message string `json:"message"`
	BackURL string `json:"backUrl,omitempty"`
}

// AdminSheets is the admin sheet index.
type AdminSheets struct {
	Layout
	NewURL      string          `json:"newUrl"`
	SettingsURL string          `json:"settingsUrl"`
	HealthURL   string          `json:"healthUrl"`
	Sheets      []AdminSheetRow `json:"sheets"`
}

type AdminSheetRow struct {
	ID        int64  `json:"id"`
	Title     string `json:"title"`
	Status    string `json:"status"`
	Date      string `json:"date"`
	Filled    int    `json:"filled"`
	Total     int    `json:"total"`
	EditURL   string `json:"editUrl"`
	ManageURL string `json:"manageUrl"`
	ViewURL   string `json:"viewUrl"`
}

// EditSheet is the sheet editor with its meta boxes and task rows.
type EditSheet struct {
	Layout
	Action    string               `json:"action"`
	Hidden    []render.HiddenField `json:"hidden,omitempty"`
	SheetID   int64                `json:"sheetId,omitempty"`
	ManageURL string               `json:"manageUrl,omitempty"`
	TrashURL  string               `json:"trashUrl,omitempty"`
	Inputs    []Input              `json:"inputs"`
	Groups    []InputGroup         `json:"groups"`
	TasksName string               `json:"tasksName"`
	ShowDates bool                 `json:"showDates,omitempty"`
	Tasks     []TaskInput          `json:"tasks"`
}

// TaskInput is an editable task row. Signups blocks removal when non-zero.
type TaskInput struct {
	Index   int    `json:"index"`
	ID      int64  `json:"id,omitempty"`
	Title   string `json:"title"`
	Qty     int    `json:"qty"`
	Date    string `json:"date,omitempty"`
	RowType string `json:"rowType"`
	Signups int    `json:"signups,omitempty"`
}

// EditSignup adds or edits one sign-up from the admin.
type EditSignup struct {
	Layout
	Action    string               `json:"action"`
	Hidden    []render.HiddenField `json:"hidden,omitempty"`
	SheetName string               `json:"sheetName"`
	TaskName  string               `json:"taskName"`
	Inputs    []Input              `json:"inputs"`
	BackURL   string               `json:"backUrl"`
}

// ManageSignups lists every spot of a sheet for admins.
type ManageSignups struct {
	Layout
	SheetTitle  string               `json:"sheetTitle"`
	Date        string               `json:"date"`
	Details     string               `json:"details,omitempty"`
	EditURL     string               `json:"editUrl,omitempty"`
	ClearAction string               `json:"clearAction"`
	Hidden      []render.HiddenField `json:"hidden,omitempty"`
	Tasks       []ManageTask         `json:"tasks"`
}

type ManageTask struct {
	ID     int64        `json:"id"`
	Title  string       `json:"title"`
	Header bool         `json:"header,omitempty"`
	Date   string       `json:"date,omitempty"`
	AddURL string       `json:"addUrl,omitempty"`
	Spots  []ManageSpot `json:"spots,omitempty"`
}

type ManageSpot struct {
	Number   int          `json:"number"`
	SignupID int64        `json:"signupId,omitempty"`
	Name     string       `json:"name,omitempty"`
	Email    string       `json:"email,omitempty"`
	Phone    string       `json:"phone,omitempty"`
	Address  string       `json:"address,omitempty"`
	Fields   []FieldValue `json:"fields,omitempty"`
	EditURL  string       `json:"editUrl,omitempty"`
	ClearURL string       `json:"clearUrl,omitempty"`
}

// Settings renders the option sections.
type Settings struct {
	Layout
	Action   string               `json:"action"`
	Hidden   []render.HiddenField `json:"hidden,omitempty"`
	Sections []InputGroup         `json:"sections"`
}
