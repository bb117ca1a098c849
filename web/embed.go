// Package web holds the pathlord browser page: a single index.html with its
// script and stylesheet, compiled into pathlord-d and served at / next to
// the JSON API.
package web

import (
	"embed"
	"io/fs"
)

//go:embed dist/*
var dist embed.FS

// Assets returns the page files rooted at dist/, ready for
// api.Server.SetStaticFS.
func Assets() (fs.FS, error) {
	return fs.Sub(dist, "dist")
}
