package usersearch

import (
	"sort"
	"strconv"
	"strings"

	"github.com/goliatone/go-signupsheets/pkg/model"
)

// Option is one search result: the user ID and a display label.
type Option struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// Label renders user as "Display Name (login)".
func Label(user model.User) string {
	name := strings.TrimSpace(user.DisplayName)
	if name == "" {
		return user.Login
	}
	return name + " (" + user.Login + ")"
}

// Search returns the users whose login, display name or e-mail contain
// query, case-insensitively. Users matching on a prefix come first.
func Search(users []model.User, query string, limit int, opts Options) []model.User {
	limit = clampLimit(limit, opts)
	if limit == 0 {
		return nil
	}

	query = strings.TrimSpace(query)
	if query == "" {
		if opts.EmptySearchMode != EmptySearchTop {
			return nil
		}
		out := append([]model.User{}, users...)
		sort.SliceStable(out, func(i, j int) bool { return lessUser(out[i], out[j]) })
		if len(out) > limit {
			out = out[:limit]
		}
		return out
	}

	q := strings.ToLower(query)
	matches := make([]matchedUser, 0, 16)
	for _, u := range users {
		m, ok := match(u, q)
		if !ok {
			continue
		}
		matches = append(matches, m)
	}

	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].isPrefix != matches[j].isPrefix {
			return matches[i].isPrefix
		}
		return lessUser(matches[i].user, matches[j].user)
	})

	if len(matches) > limit {
		matches = matches[:limit]
	}
	out := make([]model.User, 0, len(matches))
	for _, m := range matches {
		out = append(out, m.user)
	}
	return out
}

// SearchOptions is Search rendered as options.
func SearchOptions(users []model.User, query string, limit int, opts Options) []Option {
	results := Search(users, query, limit, opts)
	if len(results) == 0 {
		return nil
	}
	out := make([]Option, 0, len(results))
	for _, u := range results {
		out = append(out, Option{Value: strconv.FormatInt(u.ID, 10), Label: Label(u)})
	}
	return out
}

type matchedUser struct {
	user     model.User
	isPrefix bool
}

func match(u model.User, q string) (matchedUser, bool) {
	found := false
	prefix := false
	for _, field := range []string{u.Login, u.DisplayName, u.Email} {
		lower := strings.ToLower(field)
		if !strings.Contains(lower, q) {
			continue
		}
		found = true
		if strings.HasPrefix(lower, q) {
			prefix = true
		}
	}
	return matchedUser{user: u, isPrefix: prefix}, found
}

func lessUser(a, b model.User) bool {
	la, lb := strings.ToLower(Label(a)), strings.ToLower(Label(b))
	if la != lb {
		return la < lb
	}
	return a.ID < b.ID
}
