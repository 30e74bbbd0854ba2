package jar

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"sort"

	"github.com/hashicorp/go-version"
)

// ErrNotFound is returned by Find when no installed game archive exists.
var ErrNotFound = errors.New("game archive not found")

// GameDir returns the default launcher directory for the current platform.
func GameDir() (string, error) {
	switch runtime.GOOS {
	case "windows":
		if appData := os.Getenv("APPDATA"); appData != "" {
			return filepath.Join(appData, ".minecraft"), nil
		}
		return "", ErrNotFound
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, "Library", "Application Support", "minecraft"), nil
	default:
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, ".minecraft"), nil
	}
}

// Find returns the archive of the newest installed version under dir.
// Release folders are compared as versions, so 1.21.4 beats 1.9.4. Other
// folders (snapshots such as 24w14a, pre-releases, modded profiles) are only
// considered when no release is installed, and then in lexical order.
func Find(dir string) (string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "versions", "*", "*.jar"))
	if err != nil {
		return "", err
	}
	if len(matches) == 0 {
		return "", ErrNotFound
	}
	sort.Strings(matches)

	var (
		best    string
		bestVer *version.Version
	)
	for _, m := range matches {
		v, err := version.NewVersion(filepath.Base(filepath.Dir(m)))
		if err != nil || v.Prerelease() != "" {
			continue
		}
		if bestVer == nil || !v.LessThan(bestVer) {
			best, bestVer = m, v
		}
	}
	if bestVer == nil {
		return matches[len(matches)-1], nil
	}
	return best, nil
}
