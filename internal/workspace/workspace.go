package workspace

import (
	"os"
	"path/filepath"
	"strings"
)

const manifestName = "Cargo.toml"

// ManifestPath joins dir with the manifest file name.
func ManifestPath(dir string) string {
	return filepath.Join(dir, manifestName)
}

func NormalizeRepoPath(path string) (string, error) {
	if path == "" {
		path = "."
	}
	return filepath.Abs(path)
}

// FindRoot walks upward from projectRoot looking for a Cargo.toml that
// declares a [workspace] table. When none is found, projectRoot is returned.
func FindRoot(projectRoot string) (string, error) {
	normalized, err := NormalizeRepoPath(projectRoot)
	if err != nil {
		return "", err
	}

	current := normalized
	for {
		manifestPath := filepath.Join(current, manifestName)
		content, readErr := os.ReadFile(manifestPath)
		if readErr == nil && declaresWorkspace(string(content)) {
			return current, nil
		}
		if readErr != nil && !os.IsNotExist(readErr) {
			return "", readErr
		}

		parent := filepath.Dir(current)
		if parent == current {
			return normalized, nil
		}
		current = parent
	}
}

func declaresWorkspace(content string) bool {
	for _, line := range strings.Split(content, "\n") {
		clean := strings.TrimSpace(stripComment(line))
		if clean == "[workspace]" || strings.HasPrefix(clean, "[workspace.") {
			return true
		}
	}
	return false
}

func stripComment(line string) string {
	inDouble := false
	inSingle := false
	for index, r := range line {
		switch r {
		case '"':
			if !inSingle {
				inDouble = !inDouble
			}
		case '\'':
			if !inDouble {
				inSingle = !inSingle
			}
		case '#':
			if !inDouble && !inSingle {
				return line[:index]
			}
		}
	}
	return line
}
