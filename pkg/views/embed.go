package views

import (
	"embed"
	"io/fs"
)

//go:embed templates/*.html templates/admin/*.html
var embeddedTemplates embed.FS

//go:embed assets/*
var embeddedAssets embed.FS

// StylesheetName is the asset key and file name of the bundled stylesheet.
const StylesheetName = "signup-sheets.css"

// ScriptName is the asset key and file name of the admin script.
const ScriptName = "signup-sheets.js"

// TemplatesFS exposes the embedded pongo2 templates rooted at templates/.
func TemplatesFS() fs.FS {
	sub, err := fs.Sub(embeddedTemplates, "templates")
	if err != nil {
		return embeddedTemplates
	}
	return sub
}

// AssetsFS exposes the static assets so the server can mount them.
func AssetsFS() fs.FS {
	sub, err := fs.Sub(embeddedAssets, "assets")
	if err != nil {
		return embeddedAssets
	}
	return sub
}
