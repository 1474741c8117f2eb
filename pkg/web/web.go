// Package web embeds the admin page templates and the editor assets.
package web

import (
	"embed"
	"html/template"
	"io/fs"
)

//go:embed static templates
var files embed.FS

// Static holds sort.js and admin.css, served under the asset prefix.
var Static fs.FS

// Templates holds the admin index and reorder page templates.
var Templates *template.Template

func init() {
	var err error
	if Static, err = fs.Sub(files, "static"); err != nil {
		panic(err)
	}
	Templates = template.Must(template.New("").ParseFS(files, "templates/*.html"))
}
