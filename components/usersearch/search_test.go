package usersearch

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-signupsheets/pkg/model"
)

var people = []model.User{
	{ID: 1, Login: "ada", DisplayName: "Ada Lovelace", Email: "ada@example.org"},
	{ID: 2, Login: "grace", DisplayName: "Grace Hopper", Email: "grace@navy.example"},
	{ID: 3, Login: "alan", DisplayName: "Alan Turing", Email: "turing@example.org"},
	{ID: 4, Login: "linus", DisplayName: "", Email: "linus@example.org"},
}

func ids(users []model.User) []int64 {
	out := make([]int64, 0, len(users))
	for _, u := range users {
		out = append(out, u.ID)
	}
	return out
}

func TestSearch_PrefixMatchesFirst(t *testing.T) {
	got := Search(people, "a", 0, DefaultOptions())
	// ada and alan start with "a"; grace and linus only contain it
	want := []int64{1, 3, 2, 4}
	if diff := cmp.Diff(want, ids(got)); diff != "" {
		t.Fatalf("order mismatch (-want +got):\n%s", diff)
	}
}

func TestSearch_MatchesEmailAndDisplayName(t *testing.T) {
	opts := DefaultOptions()
	if diff := cmp.Diff([]int64{2}, ids(Search(people, "NAVY", 0, opts))); diff != "" {
		t.Fatalf("email match (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]int64{3}, ids(Search(people, "turing", 0, opts))); diff != "" {
		t.Fatalf("name match (-want +got):\n%s", diff)
	}
}

func TestSearch_EmptyQuery(t *testing.T) {
	if got := Search(people, "  ", 0, DefaultOptions()); got != nil {
		t.Fatalf("expected no results, got %v", ids(got))
	}
	opts := NewOptions(WithEmptySearchMode(EmptySearchTop))
	if diff := cmp.Diff([]int64{1, 3, 2}, ids(Search(people, "", 3, opts))); diff != "" {
		t.Fatalf("top results (-want +got):\n%s", diff)
	}
}

func TestSearch_LimitClamped(t *testing.T) {
	opts := NewOptions(WithMaxLimit(2))
	if got := Search(people, "example", 10, opts); len(got) != 2 {
		t.Fatalf("expected 2 results, got %d", len(got))
	}
	if got := Search(people, "example", -1, opts); got != nil {
		t.Fatalf("negative limit should return nothing, got %v", ids(got))
	}
}

func TestSearchOptions_Labels(t *testing.T) {
	got := SearchOptions(people, "lin", 0, DefaultOptions())
	want := []Option{{Value: "4", Label: "linus"}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("options mismatch (-want +got):\n%s", diff)
	}
	if got := Label(people[0]); got != "Ada Lovelace (ada)" {
		t.Fatalf("label = %q", got)
	}
}

func TestNewOptionsRestoresClearedDefaults(t *testing.T) {
	got := NewOptions(WithRoutePath(""), WithSearchParam(""), WithDefaultLimit(0), WithMaxLimit(-5))
	want := DefaultOptions()
	if diff := cmp.Diff(want, got, cmp.Comparer(func(a, b GuardFunc) bool { return a == nil && b == nil })); diff != "" {
		t.Fatalf("options mismatch (-want +got):\n%s", diff)
	}
	if got := clampLimit(0, got); got != 10 {
		t.Fatalf("default limit = %d", got)
	}
	if got := clampLimit(500, got); got != 50 {
		t.Fatalf("max limit = %d", got)
	}
}
