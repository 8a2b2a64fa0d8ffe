package xdg

import "os"

// Files and directories migrated from ~/.uolaunch into the XDG base
// directories. Reads prefer whichever location already has the entry,
// XDG first; anything created fresh goes under XDG.

// ResolveFile returns xdgPath unless only legacyPath has the file.
func ResolveFile(xdgPath, legacyPath string) string {
	return resolve(xdgPath, legacyPath, fileExists)
}

// ResolveDir returns xdgPath unless only legacyPath has the directory.
func ResolveDir(xdgPath, legacyPath string) string {
	return resolve(xdgPath, legacyPath, dirExists)
}

func resolve(xdgPath, legacyPath string, exists func(string) bool) string {
	if exists(xdgPath) {
		return xdgPath
	}

	if exists(legacyPath) {
		return legacyPath
	}

	return xdgPath
}

func fileExists(path string) bool {
	info, err := os.Stat(path)

	return err == nil && !info.IsDir()
}

func dirExists(path string) bool {
	info, err := os.Stat(path)

	return err == nil && info.IsDir()
}
