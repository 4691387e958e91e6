// Package links builds the public and admin URLs of sheets and sign-ups.
package links

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/goliatone/go-signupsheets/pkg/model"
)

// Admin paths, relative to the site URL.
const (
	AdminBasePath   = "/admin"
	APIBasePath     = "/api"
	UserSignupsPath = "/my-signups"
	SheetsPath      = "/"
	RemovePath      = "/signup/remove"
)

// Builder resolves URLs against a site base URL.
type Builder struct {
	SiteURL string
	// SheetSlug returns the current sheet path segment.
	SheetSlug func() string
}

// New returns a Builder for siteURL with a fixed sheet slug.
func New(siteURL, sheetSlug string) Builder {
	return Builder{SiteURL: siteURL, SheetSlug: func() string { return sheetSlug }}
}

func (b Builder) slug() string {
	if b.SheetSlug == nil {
		return "sheet"
	}
	if s := strings.Trim(b.SheetSlug(), "/ "); s != "" {
		return s
	}
	return "sheet"
}

// Path joins the site URL with p.
func (b Builder) Path(p string) string {
	return joinPath(b.SiteURL, p)
}

// SheetPath is the router path of a sheet page.
func (b Builder) SheetPath(sheet *model.Sheet) string {
	return "/" + b.slug() + "/" + sheetKey(sheet) + "/"
}

// Sheet returns the absolute URL of a sheet page.
func (b Builder) Sheet(sheet *model.Sheet) string {
	return b.Path(b.SheetPath(sheet))
}

// SignupForm returns the sign-up form URL for taskIDs on sheet, including
// the optional anchor hash.
func (b Builder) SignupForm(sheet *model.Sheet, hash string, taskIDs ...int64) string {
	q := url.Values{}
	if len(taskIDs) == 1 {
		q.Set("task_id", strconv.FormatInt(taskIDs[0], 10))
	} else {
		for _, id := range taskIDs {
			q.Add("task_ids[]", strconv.FormatInt(id, 10))
		}
	}
	return b.Sheet(sheet) + "?" + q.Encode() + hash
}

// Removal returns the self-removal URL for a sign-up token.
func (b Builder) Removal(token string) string {
	return b.Path(RemovePath) + "?" + url.Values{"token": {token}}.Encode()
}

// ManageSignups returns the admin page listing sign-ups of a sheet.
func (b Builder) ManageSignups(sheetID int64) string {
	return b.Path(AdminBasePath + "/sheets/" + strconv.FormatInt(sheetID, 10) + "/signups")
}

// EditSheet returns the admin edit page of a sheet.
func (b Builder) EditSheet(sheetID int64) string {
	return b.Path(AdminBasePath + "/sheets/" + strconv.FormatInt(sheetID, 10))
}

// Page returns the URL of a plain site page referenced by ID.
func (b Builder) Page(id int64) string {
	return b.Path("/") + "?" + url.Values{"page_id": {strconv.FormatInt(id, 10)}}.Encode()
}

// WithQuery merges values into the query string of raw, keeping any
// fragment at the end.
func WithQuery(raw string, values url.Values) string {
	base, fragment, hasFragment := strings.Cut(raw, "#")
	u, err := url.Parse(base)
	if err != nil {
		return raw
	}
	q := u.Query()
	for k, vs := range values {
		q.Del(k)
		for _, v := range vs {
			q.Add(k, v)
		}
	}
	u.RawQuery = q.Encode()
	out := u.String()
	if hasFragment {
		out += "#" + fragment
	}
	return out
}

func sheetKey(sheet *model.Sheet) string {
	if sheet == nil {
		return ""
	}
	if sheet.Slug != "" {
		return sheet.Slug
	}
	return strconv.FormatInt(sheet.ID, 10)
}

func joinPath(base, p string) string {
	base = strings.TrimRight(strings.TrimSpace(base), "/")
	p = strings.TrimSpace(p)
	if p == "" {
		p = "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return base + p
}
