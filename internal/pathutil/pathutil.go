// Package pathutil provides shared path validation and resolution helpers.
package pathutil

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// InputPathEnv is the environment variable consulted when no explicit
// source path override is given on the command line.
const InputPathEnv = "INPUT_PATH"

// ValidateFilePath validates a file path for path traversal and invalid characters.
// Uses segment-based detection so that "scripts/../etc/passwd" is rejected before
// cleaning (cleaned path would be "etc/passwd" and could bypass a simple ".." check).
// Returns an error if the path is empty, contains null bytes, or has ".." in any segment.
func ValidateFilePath(filePath string) error {
	if filePath == "" {
		return fmt.Errorf("file path cannot be empty")
	}
	if strings.Contains(filePath, "\x00") {
		return fmt.Errorf("file path contains invalid characters")
	}

	normalized := filepath.ToSlash(filePath)
	segments := strings.Split(normalized, "/")
	for _, segment := range segments {
		if segment == ".." {
			return fmt.Errorf("file path contains path traversal: %q", filePath)
		}
	}
	if strings.HasPrefix(normalized, "../") || normalized == ".." {
		return fmt.Errorf("file path contains path traversal: %q", filePath)
	}
	return nil
}

// ResolveInputPath picks the source table path from, in order of precedence:
// the --input flag value, the INPUT_PATH environment variable, and the path
// configured in the query file. Returns an error when all three are empty.
func ResolveInputPath(flagValue, configured string) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}
	if env := os.Getenv(InputPathEnv); env != "" {
		return env, nil
	}
	if configured != "" {
		return configured, nil
	}
	return "", fmt.Errorf("no input path: set the source path in the query file, the --input flag, or %s", InputPathEnv)
}
