// Package scaffold creates the companion MSBuild files that rewritten
// descriptors import. Existing files are never touched.
package scaffold

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/leapstack-labs/sdkproj/internal/descriptor"
)

// DirectoryBuild is the stem of the files MSBuild imports automatically.
const DirectoryBuild = "Directory.Build"

// nullableProperty is seeded into Directory.Build.props.
const nullableProperty = "<Nullable>enable</Nullable>"

// Content returns a minimal MSBuild project with an optional PropertyGroup body.
func Content(propertyGroup string) string {
	var b strings.Builder
	b.WriteString(`<Project xmlns="` + descriptor.MSBuildNamespace + `">` + "\n")
	b.WriteString("    <PropertyGroup>\n")
	if body := strings.TrimRight(propertyGroup, " \t\r\n"); body != "" {
		b.WriteString("        " + strings.ReplaceAll(body, "\n", "\n        ") + "\n")
	}
	b.WriteString("    </PropertyGroup>\n")
	b.WriteString("</Project>\n")
	return b.String()
}

// CreateIfNotExists writes content to path unless the file already exists.
// It reports whether the file was created.
func CreateIfNotExists(path, content string) (bool, error) {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return false, nil
		}
		return false, fmt.Errorf("create %s: %w", path, err)
	}

	if _, err := f.WriteString(content); err != nil {
		_ = f.Close()
		return false, fmt.Errorf("write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return false, fmt.Errorf("close %s: %w", path, err)
	}
	return true, nil
}

// EnsureCompanions creates every companion file of spec inside dir, and the
// Directory.Build pair when directoryBuild is set. It returns the created paths.
func EnsureCompanions(dir string, spec descriptor.ImportSpec, directoryBuild bool) ([]string, error) {
	type file struct {
		name    string
		content string
	}

	var files []file
	if directoryBuild {
		files = append(files,
			file{DirectoryBuild + string(descriptor.GroupProps), Content(nullableProperty)},
			file{DirectoryBuild + string(descriptor.GroupTargets), Content("")},
		)
	}
	for _, name := range spec.Files() {
		files = append(files, file{name, Content("")})
	}

	var created []string
	for _, f := range files {
		path := filepath.Join(dir, f.name)
		ok, err := CreateIfNotExists(path, f.content)
		if err != nil {
			return created, err
		}
		if ok {
			created = append(created, path)
		}
	}
	return created, nil
}
