package migration

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode"
)

const (
	upSuffix   = ".up.sql"
	downSuffix = ".down.sql"
	// sequential versions are zero padded to six digits, 000001, 000002, ...
	versionDigits = 6
)

// Script is one versioned migration found on disk
type Script struct {
	Version uint
	Name    string
	HasDown bool
}

// Base returns the shared file prefix, e.g. 000001_create_procurement_tables
func (s Script) Base() string {
	return fmt.Sprintf("%0*d_%s", versionDigits, s.Version, s.Name)
}

// Scan reads dir and returns its migrations ordered by version.
// A missing directory yields no scripts. Files that do not follow the
// NNNNNN_name.up.sql layout are skipped.
func Scan(dir string) ([]Script, error) {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read migrations dir %s: %w", dir, err)
	}

	byVersion := make(map[uint]*Script)
	downs := make(map[string]bool)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if base, ok := strings.CutSuffix(name, downSuffix); ok {
			downs[base] = true
			continue
		}
		base, ok := strings.CutSuffix(name, upSuffix)
		if !ok {
			continue
		}
		prefix, slug, ok := strings.Cut(base, "_")
		if !ok || slug == "" {
			continue
		}
		v, err := strconv.ParseUint(prefix, 10, 32)
		if err != nil || v == 0 {
			continue
		}
		if prev, dup := byVersion[uint(v)]; dup {
			return nil, fmt.Errorf("duplicate migration version %d: %s and %s", v, prev.Name, slug)
		}
		byVersion[uint(v)] = &Script{Version: uint(v), Name: slug}
	}

	scripts := make([]Script, 0, len(byVersion))
	for _, s := range byVersion {
		s.HasDown = downs[s.Base()]
		scripts = append(scripts, *s)
	}
	sort.Slice(scripts, func(i, j int) bool { return scripts[i].Version < scripts[j].Version })
	return scripts, nil
}

// Scaffold writes an empty up/down pair after the highest version in dir
func Scaffold(dir, name, note string, now time.Time) (Script, error) {
	slug := slugify(name)
	if slug == "" {
		return Script{}, fmt.Errorf("migration name %q has no usable characters", name)
	}
	scripts, err := Scan(dir)
	if err != nil {
		return Script{}, err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Script{}, fmt.Errorf("create migrations dir: %w", err)
	}

	next := Script{Version: 1, Name: slug, HasDown: true}
	if n := len(scripts); n > 0 {
		next.Version = scripts[n-1].Version + 1
	}

	header := fmt.Sprintf("-- %s\n-- %s\n", name, now.UTC().Format(time.RFC3339))
	if note != "" {
		header += "-- " + note + "\n"
	}
	upPath := filepath.Join(dir, next.Base()+upSuffix)
	if err := writeNew(upPath, header+"\n"); err != nil {
		return Script{}, err
	}
	if err := writeNew(filepath.Join(dir, next.Base()+downSuffix), header+"-- reverts "+next.Base()+upSuffix+"\n\n"); err != nil {
		_ = os.Remove(upPath)
		return Script{}, err
	}
	return next, nil
}

func writeNew(path, content string) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return fmt.Errorf("create %s: %w", filepath.Base(path), err)
	}
	if _, err := f.WriteString(content); err != nil {
		_ = f.Close()
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	return f.Close()
}

// slugify lowercases name and joins its ASCII letter and digit runs with underscores
func slugify(name string) string {
	words := strings.FieldsFunc(strings.ToLower(name), func(r rune) bool {
		return r >= unicode.MaxASCII || !(unicode.IsLetter(r) || unicode.IsDigit(r))
	})
	return strings.Join(words, "_")
}
