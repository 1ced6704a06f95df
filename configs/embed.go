// Package configs embeds the configuration template written by
// `scout config init`.
package configs

import _ "embed"

// ProjectConfigTemplate is written to .scout.yaml in the working directory.
//
//go:embed scout.example.yaml
var ProjectConfigTemplate string
