package links

import (
	"net/url"
	"testing"

	"github.com/goliatone/go-signupsheets/pkg/model"
)

func TestBuilder(t *testing.T) {
	b := New("https://example.org/", "events")
	sheet := &model.Sheet{ID: 4, Slug: "bake-sale"}

	cases := map[string]struct{ got, want string }{
		"sheet":   {b.Sheet(sheet), "https://example.org/events/bake-sale/"},
		"form":    {b.SignupForm(sheet, "#dls-sus-sheet-4", 9), "https://example.org/events/bake-sale/?task_id=9#dls-sus-sheet-4"},
		"multi":   {b.SignupForm(sheet, "", 9, 10), "https://example.org/events/bake-sale/?task_ids%5B%5D=9&task_ids%5B%5D=10"},
		"removal": {b.Removal("abc"), "https://example.org/signup/remove?token=abc"},
		"manage":  {b.ManageSignups(4), "https://example.org/admin/sheets/4/signups"},
		"page":    {b.Page(12), "https://example.org/?page_id=12"},
		"noslug":  {b.Sheet(&model.Sheet{ID: 5}), "https://example.org/events/5/"},
	}
	for name, tc := range cases {
		if tc.got != tc.want {
			t.Errorf("%s: got %q, want %q", name, tc.got, tc.want)
		}
	}

	if got := (Builder{SiteURL: "http://localhost"}).SheetPath(sheet); got != "/sheet/bake-sale/" {
		t.Errorf("default slug: got %q", got)
	}
}

func TestWithQuery(t *testing.T) {
	got := WithQuery("https://example.org/events/x/?task_id=3#dls-sus-sheet-1", url.Values{
		"action": {"signup"},
		"status": {"success"},
	})
	want := "https://example.org/events/x/?action=signup&status=success&task_id=3#dls-sus-sheet-1"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}
