// Package appfs exposes embedded application assets.
package appfs

import "embed"

//go:embed migrations
var FS embed.FS
