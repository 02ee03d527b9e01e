// Package where implements a cross-platform resolver for application-specific filesystem paths.
package where

import (
	"os"
	"path/filepath"

	"github.com/kara-engine/kara/constant"
	"github.com/kara-engine/kara/filesystem"
	"github.com/samber/lo"
)

// EnvConfigPath is the environment variable identifier used to override the default configuration directory.
const EnvConfigPath = "KARA_CONFIG_PATH"

func ensureDir(path string) string {
	lo.Must0(filesystem.API().MkdirAll(path, os.ModePerm))
	return path
}

// Config resolves the absolute path to the primary application configuration directory.
// The path can be overridden with the KARA_CONFIG_PATH environment variable.
func Config() string {
	if custom, ok := os.LookupEnv(EnvConfigPath); ok {
		return ensureDir(custom)
	}

	base := lo.Must(os.UserConfigDir())
	return ensureDir(filepath.Join(base, constant.Kara))
}

// Data resolves the directory holding relative media, filler and background folders.
func Data() string {
	return ensureDir(filepath.Join(Config(), "data"))
}

// Playlists resolves the directory of the playlist files quiz games draw from.
func Playlists() string {
	return ensureDir(filepath.Join(Data(), "playlists"))
}

// Logs resolves the directory used for application diagnostic logs.
func Logs() string {
	return ensureDir(filepath.Join(Config(), "logs"))
}

// Scores resolves the file-backed quiz store.
func Scores() string {
	return filepath.Join(Config(), "quiz.json")
}

// Sockets resolves a volatile directory for mpv IPC sockets.
func Sockets() string {
	return ensureDir(filepath.Join(os.TempDir(), constant.Kara))
}
