// Package misc keeps build time program identity.
package misc

import (
	"os"
	"path/filepath"
	"strings"
)

// set by linker
var (
	version = "dev"
	githash = "unknown"
)

const appName = "ttsub"

func GetVersion() string {
	return version
}

func GetGitHash() string {
	return githash
}

// GetAppName returns program name without extension, falls back to built-in
// name when executable name is not available.
func GetAppName() string {
	if len(os.Args) == 0 {
		return appName
	}
	name := strings.TrimSuffix(filepath.Base(os.Args[0]), filepath.Ext(os.Args[0]))
	if name == "" || name == "." {
		return appName
	}
	return name
}
