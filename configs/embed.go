// Package configs provides embedded configuration templates for docsmcp.
//
// Templates are embedded at build time with //go:embed so they ship in
// every distribution, source builds and binary releases alike.
package configs

import _ "embed"

// EnvTemplate is the .env template written by `docsmcp config init`.
// It lists every environment variable of the service with its default.
//
//go:embed env.example
var EnvTemplate string
