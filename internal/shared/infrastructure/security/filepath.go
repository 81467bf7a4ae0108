// Package security validates user-supplied paths and store names before
// they reach the filesystem.
package security

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

var (
	// ErrEmptyPath is returned for an empty path or directory.
	ErrEmptyPath = errors.New("path cannot be empty")
	// ErrForbiddenCharacter is returned for paths containing shell metacharacters.
	ErrForbiddenCharacter = errors.New("path contains forbidden character")
	// ErrOutsideDirectory is returned when a path escapes its base directory.
	ErrOutsideDirectory = errors.New("path escapes base directory")
	// ErrInvalidName is returned for store names unusable as a file name or key segment.
	ErrInvalidName = errors.New("invalid store name")
)

var dangerousChars = []string{";", "&", "|", "$", "`", "(", ")", "{", "}", "<", ">", "!", "\n", "\r"}

var namePattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]{0,127}$`)

// ValidateName checks that name can be used as a file name and as a key
// segment without escaping its namespace.
func ValidateName(name string) error {
	if !namePattern.MatchString(name) || strings.Contains(name, "..") {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}

// ValidateFilePath cleans path, makes it absolute and resolves symlinks of
// existing files. Paths that do not exist yet are returned cleaned.
func ValidateFilePath(path string) (string, error) {
	if path == "" {
		return "", ErrEmptyPath
	}
	for _, char := range dangerousChars {
		if strings.Contains(path, char) {
			return "", fmt.Errorf("%w %q: %s", ErrForbiddenCharacter, char, path)
		}
	}
	return resolve(path)
}

// ValidateFilePathInDir is ValidateFilePath plus a check that the result
// stays inside baseDir.
func ValidateFilePathInDir(path, baseDir string) (string, error) {
	if baseDir == "" {
		return "", ErrEmptyPath
	}
	cleanPath, err := ValidateFilePath(path)
	if err != nil {
		return "", err
	}
	base, err := resolve(baseDir)
	if err != nil {
		return "", fmt.Errorf("base directory: %w", err)
	}
	// Trailing separator so /foo does not match /foobar.
	if cleanPath != base && !strings.HasPrefix(cleanPath, base+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s is not within %s", ErrOutsideDirectory, path, baseDir)
	}
	return cleanPath, nil
}

// ReadFile reads a file after validating its path.
func ReadFile(path string) ([]byte, error) {
	cleanPath, err := ValidateFilePath(path)
	if err != nil {
		return nil, err
	}
	// #nosec G304 - path is validated above
	return os.ReadFile(cleanPath)
}

func resolve(path string) (string, error) {
	cleanPath := filepath.Clean(path)
	if !filepath.IsAbs(cleanPath) {
		abs, err := filepath.Abs(cleanPath)
		if err != nil {
			return "", fmt.Errorf("failed to get current directory: %w", err)
		}
		cleanPath = abs
	}
	resolved, err := filepath.EvalSymlinks(cleanPath)
	if err != nil {
		if os.IsNotExist(err) {
			return cleanPath, nil
		}
		return "", fmt.Errorf("failed to resolve file path: %w", err)
	}
	return resolved, nil
}
