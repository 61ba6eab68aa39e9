// Package templates embeds the default test scaffolding templates.
package templates

import "embed"

//go:embed go/*.tmpl
var FS embed.FS
