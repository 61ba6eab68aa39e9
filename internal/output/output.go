// Package output places generated test files on disk.
package output

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/kolah/spectest/internal/golang"
)

var ErrExists = errors.New("file already exists")

// Destination is where a generated suite lives.
type Destination struct {
	Path    string
	Package string
	Suite   string
}

// Resolve maps a class name such as "Users", "admin/Users" or
// "Admin\\UsersTest" onto a test file below testsDir/namespace.
func Resolve(testsDir, namespace, className string) (Destination, error) {
	segments := splitClassName(className)
	if len(segments) == 0 {
		return Destination{}, fmt.Errorf("invalid class name %q", className)
	}

	base := segments[len(segments)-1]
	dirs := []string{testsDir}
	for _, ns := range splitClassName(namespace) {
		dirs = append(dirs, strings.ToLower(ns))
	}
	for _, d := range segments[:len(segments)-1] {
		dirs = append(dirs, strings.ToLower(d))
	}

	fileName := golang.SnakeCase(base)
	if !strings.HasSuffix(fileName, "_test") {
		fileName += "_test"
	}

	dir := filepath.Join(dirs...)
	return Destination{
		Path:    filepath.Join(dir, fileName+".go"),
		Package: golang.PackageName(filepath.Base(dir)),
		Suite:   golang.ToGoIdentifier(base),
	}, nil
}

func splitClassName(name string) []string {
	var segments []string
	for _, s := range strings.FieldsFunc(name, func(r rune) bool {
		return r == '/' || r == '\\' || r == '.'
	}) {
		if s = strings.TrimSpace(s); s != "" {
			segments = append(segments, s)
		}
	}
	return segments
}

type Mode struct {
	Force  bool
	Append bool
}

// Exists reports whether path is an existing file.
func Exists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// Write stores content at path, creating parent directories. An existing file
// is only replaced when mode allows it.
func Write(path string, content []byte, mode Mode) error {
	if Exists(path) && !mode.Force && !mode.Append {
		return fmt.Errorf("%w: %s", ErrExists, path)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}

	if err := os.WriteFile(path, content, 0644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}
