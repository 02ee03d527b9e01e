// Package filesystem provides a virtualized abstraction layer for all filesystem operations.
//
// It utilizes the afero library to allow seamless switching between OS-level and in-memory filesystem backends.
package filesystem

import (
	"os"
	"path/filepath"

	"github.com/spf13/afero"
)

var backend = afero.Afero{Fs: afero.NewOsFs()}

// API returns the active afero.Afero instance for filesystem interaction.
func API() afero.Afero {
	return backend
}

// SetOsFs restores the filesystem backend to the native operating system implementation.
func SetOsFs() {
	backend = afero.Afero{Fs: afero.NewOsFs()}
}

// SetMemMapFs initializes a volatile in-memory filesystem backend for unit testing and CI environments.
func SetMemMapFs() {
	backend = afero.Afero{Fs: afero.NewMemMapFs()}
}

// IsFile reports whether path exists and is a regular file.
func IsFile(path string) bool {
	info, err := API().Stat(path)
	if err != nil {
		return false
	}
	return info.Mode().IsRegular()
}

// Files lists the regular files directly inside dir as absolute paths.
// A missing directory yields an empty list.
func Files(dir string) []string {
	entries, err := API().ReadDir(dir)
	if err != nil {
		return nil
	}

	files := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.Mode()&os.ModeType != 0 {
			continue
		}
		files = append(files, filepath.Join(dir, entry.Name()))
	}
	return files
}
