package signupsheets

import (
	"io/fs"

	"github.com/goliatone/go-signupsheets/pkg/views"
)

// TemplatesFS exposes the built-in pongo2 templates so callers can copy or
// override them through site.templates_dir.
func TemplatesFS() fs.FS {
	return views.TemplatesFS()
}

// AssetsFS exposes the stylesheet and admin script. Typical mount:
//
//	mux.Handle("/assets/",
//	  http.StripPrefix("/assets/",
//	    http.FileServerFS(signupsheets.AssetsFS()),
//	  ),
//	)
func AssetsFS() fs.FS {
	return views.AssetsFS()
}
