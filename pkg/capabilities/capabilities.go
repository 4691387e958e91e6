package capabilities

import "sort"

// Content types whose capabilities are generated.
const (
	SheetType  = "dlssus_sheet"
	TaskType   = "dlssus_task"
	SignupType = "dlssus_signup"
)

// Generic capability keys. Set.Get translates them into the type specific
// capability strings.
const (
	EditPost   = "edit_post"
	ReadPost   = "read_post"
	DeletePost = "delete_post"

	EditPosts            = "edit_posts"
	EditOthersPosts      = "edit_others_posts"
	DeletePosts          = "delete_posts"
	PublishPosts         = "publish_posts"
	ReadPrivatePosts     = "read_private_posts"
	DeletePrivatePosts   = "delete_private_posts"
	DeletePublishedPosts = "delete_published_posts"
	DeleteOthersPosts    = "delete_others_posts"
	EditPrivatePosts     = "edit_private_posts"
	EditPublishedPosts   = "edit_published_posts"
	CreatePosts          = "create_posts"

	ManageTerms = "manage_terms"
	EditTerms   = "edit_terms"
	DeleteTerms = "delete_terms"
)

// Read and ManageOptions are the built-in capabilities used outside of the
// generated sets.
const (
	Read          = "read"
	ManageOptions = "manage_options"
)

// Set holds the capability strings generated for one content type.
type Set struct {
	singular string
	plural   string

	meta      map[string]string
	primitive map[string]string
	terms     map[string]string
}

// New builds the capability set for a content type. An empty plural defaults
// to singular + "s".
func New(singular, plural string) *Set {
	if plural == "" {
		plural = singular + "s"
	}
	s := &Set{singular: singular, plural: plural}
	s.meta = map[string]string{
		EditPost:   "edit_" + singular,
		ReadPost:   "read_" + singular,
		DeletePost: "delete_" + singular,
	}
	s.primitive = map[string]string{
		EditPosts:            "edit_" + plural,
		EditOthersPosts:      "edit_others_" + plural,
		DeletePosts:          "delete_" + plural,
		PublishPosts:         "publish_" + plural,
		ReadPrivatePosts:     "read_private_" + plural,
		DeletePrivatePosts:   "delete_private_" + plural,
		DeletePublishedPosts: "delete_published_" + plural,
		DeleteOthersPosts:    "delete_others_" + plural,
		EditPrivatePosts:     "edit_private_" + plural,
		EditPublishedPosts:   "edit_published_" + plural,
		CreatePosts:          "create_" + plural,
	}
	s.terms = map[string]string{
		ManageTerms: "manage_" + plural,
		EditTerms:   "edit_" + plural,
		DeleteTerms: "delete_" + plural,
	}
	return s
}

// Singular returns the singular type name.
func (s *Set) Singular() string { return s.singular }

// Plural returns the plural type name.
func (s *Set) Plural() string { return s.plural }

// Get returns the capability for a generic key across meta, primitive and
// term capabilities. Unknown keys return "".
func (s *Set) Get(key string) string {
	if v, ok := s.meta[key]; ok {
		return v
	}
	if v, ok := s.primitive[key]; ok {
		return v
	}
	return s.terms[key]
}

// Primitive returns primitive capabilities, filtered to keys when given.
func (s *Set) Primitive(keys ...string) map[string]string {
	return filter(s.primitive, keys)
}

// Terms returns term capabilities, filtered to keys when given.
func (s *Set) Terms(keys ...string) map[string]string {
	return filter(s.terms, keys)
}

// All returns meta and primitive capabilities, filtered to keys when given.
func (s *Set) All(keys ...string) map[string]string {
	merged := make(map[string]string, len(s.meta)+len(s.primitive))
	for k, v := range s.meta {
		merged[k] = v
	}
	for k, v := range s.primitive {
		merged[k] = v
	}
	return filter(merged, keys)
}

// Values returns the capability strings of m sorted for stable output.
func Values(m map[string]string) []string {
	out := make([]string, 0, len(m))
	for _, v := range m {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

func filter(caps map[string]string, keys []string) map[string]string {
	out := make(map[string]string, len(caps))
	if len(keys) == 0 {
		for k, v := range caps {
			out[k] = v
		}
		return out
	}
	for _, key := range keys {
		if v, ok := caps[key]; ok {
			out[key] = v
		}
	}
	return out
}

// Sheets, Tasks and Signups are the capability sets of the three content
// types.
var (
	Sheets  = New(SheetType, "")
	Tasks   = New(TaskType, "")
	Signups = New(SignupType, "")
)
