// Package web provides the embedded HTML form page served at "/".
//
// The page links the two echo endpoints so the escaping behavior can be
// tried from a browser. It is embedded at compile time, keeping the service
// a single binary.
package web

import "embed"

// IndexPath is the location of the form page inside [Assets].
const IndexPath = "assets/index.html"

// TitlePlaceholder is the marker in the page that is replaced with the
// HTML-escaped page title.
const TitlePlaceholder = "{{.Title}}"

// Assets is an embedded filesystem containing the form page.
//
// The filesystem structure is:
//
//	assets/
//	  index.html    - Form page with one form per echo endpoint
//
//go:embed assets/*
var Assets embed.FS
