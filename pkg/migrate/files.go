package migrate

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"go.uber.org/multierr"
)

const versionLayout = "20060102150405"

var (
	migrationFileRe = regexp.MustCompile(`^(\d{14})_([a-z0-9_]+)\.sql$`)
	unsafeNameRe    = regexp.MustCompile(`[^a-z0-9]+`)
)

// File is one goose SQL migration on disk.
type File struct {
	Version string
	Name    string
	Path    string
}

// ListDir returns the .sql migrations in dir ordered by version. Every problem
// found is reported, not just the first.
func ListDir(dir string) ([]File, error) {
	if dir == "" {
		return nil, fmt.Errorf("dir is required")
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read dir %q: %w", dir, err)
	}

	var (
		files []File
		errs  error
		seen  = map[string]string{}
	)
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".sql") {
			continue
		}
		m := migrationFileRe.FindStringSubmatch(e.Name())
		if m == nil {
			errs = multierr.Append(errs, fmt.Errorf("%s: expected YYYYMMDDHHMMSS_name.sql", e.Name()))
			continue
		}
		if prev, ok := seen[m[1]]; ok {
			errs = multierr.Append(errs, fmt.Errorf("%s: version %s already used by %s", e.Name(), m[1], prev))
			continue
		}
		seen[m[1]] = e.Name()
		files = append(files, File{Version: m[1], Name: m[2], Path: filepath.Join(dir, e.Name())})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Version < files[j].Version })
	return files, errs
}

// ValidateDir checks filenames and goose annotations of every migration in dir.
func ValidateDir(dir string) error {
	files, errs := ListDir(dir)
	for _, f := range files {
		body, err := os.ReadFile(f.Path)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("read %s: %w", f.Path, err))
			continue
		}
		for _, marker := range []string{"-- +goose Up", "-- +goose Down"} {
			if !strings.Contains(string(body), marker) {
				errs = multierr.Append(errs, fmt.Errorf("%s: missing %q", filepath.Base(f.Path), marker))
			}
		}
	}
	return errs
}

// ValidatePair checks that the postgres directory and its sqlite companion carry
// the same migrations, so both drivers end at the same schema version.
func ValidatePair(base string) error {
	pg, errs := ListDir(base)
	lite, err := ListDir(filepath.Join(base, sqliteDir))
	errs = multierr.Append(errs, err)

	liteByVersion := make(map[string]File, len(lite))
	for _, f := range lite {
		liteByVersion[f.Version] = f
	}
	for _, f := range pg {
		other, ok := liteByVersion[f.Version]
		switch {
		case !ok:
			errs = multierr.Append(errs, fmt.Errorf("%s_%s.sql has no sqlite counterpart", f.Version, f.Name))
		case other.Name != f.Name:
			errs = multierr.Append(errs, fmt.Errorf("version %s named %q for postgres but %q for sqlite", f.Version, f.Name, other.Name))
		}
		delete(liteByVersion, f.Version)
	}
	for version, f := range liteByVersion {
		errs = multierr.Append(errs, fmt.Errorf("sqlite migration %s_%s.sql has no postgres counterpart", version, f.Name))
	}
	return errs
}

// SanitizeName lowercases name and collapses anything outside [a-z0-9] to "_".
func SanitizeName(name string) string {
	safe := unsafeNameRe.ReplaceAllString(strings.ToLower(name), "_")
	return strings.Trim(safe, "_")
}

// CreatePair writes an empty goose migration under base and its sqlite
// subdirectory with the same version, returning both paths.
func CreatePair(base, name string, now time.Time) ([]string, error) {
	if base == "" {
		return nil, fmt.Errorf("dir is required")
	}
	safe := SanitizeName(name)
	if safe == "" {
		return nil, fmt.Errorf("name %q has no usable characters", name)
	}

	filename := fmt.Sprintf("%s_%s.sql", now.UTC().Format(versionLayout), safe)
	paths := []string{filepath.Join(base, filename), filepath.Join(base, sqliteDir, filename)}
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return nil, fmt.Errorf("migration already exists: %s", p)
		}
	}

	body := []byte(fmt.Sprintf(`-- +goose Up
-- +goose StatementBegin
-- %[1]s
-- +goose StatementEnd

-- +goose Down
-- +goose StatementBegin
-- revert %[1]s
-- +goose StatementEnd
`, safe))
	for _, p := range paths {
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			return nil, fmt.Errorf("mkdir %q: %w", filepath.Dir(p), err)
		}
		if err := os.WriteFile(p, body, 0o644); err != nil {
			return nil, fmt.Errorf("write %q: %w", p, err)
		}
	}
	return paths, nil
}
