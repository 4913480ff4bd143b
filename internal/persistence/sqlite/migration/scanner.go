package migration

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io/fs"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

var migrationFilePattern = regexp.MustCompile(`^(\d+)_([a-zA-Z0-9_-]+)\.sql$`)

type fileScanner struct {
	fsys fs.FS
}

// NewFileScanner returns a FileScanner reading *.sql files from the root of
// fsys. Use fs.Sub to point it at an embedded subdirectory.
func NewFileScanner(fsys fs.FS) FileScanner {
	return &fileScanner{fsys: fsys}
}

// ScanMigrations returns every migration in ascending version order.
func (s *fileScanner) ScanMigrations() ([]Migration, error) {
	entries, err := fs.ReadDir(s.fsys, ".")
	if err != nil {
		return nil, NewFileSystemError(".", "read directory", err)
	}

	var migrations []Migration
	seen := make(map[int]string)
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}

		m, err := s.parse(entry.Name())
		if err != nil {
			return nil, err
		}
		if previous, dup := seen[versionNumber(m.Version)]; dup {
			return nil, NewMigrationError(m.Version, entry.Name(), "check duplicates",
				fmt.Errorf("%w: %s and %s", ErrDuplicateVersion, previous, entry.Name()))
		}
		seen[versionNumber(m.Version)] = entry.Name()
		migrations = append(migrations, m)
	}

	sort.Slice(migrations, func(i, j int) bool {
		return versionNumber(migrations[i].Version) < versionNumber(migrations[j].Version)
	})
	return migrations, nil
}

// ValidateFileName checks the {version}_{description}.sql convention.
func (s *fileScanner) ValidateFileName(filename string) error {
	matches := migrationFilePattern.FindStringSubmatch(filename)
	if matches == nil {
		return fmt.Errorf("%w: %q does not match {version}_{description}.sql", ErrInvalidMigrationFile, filename)
	}
	if _, err := strconv.Atoi(matches[1]); err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidVersion, matches[1])
	}
	return nil
}

func (s *fileScanner) parse(filename string) (Migration, error) {
	if err := s.ValidateFileName(filename); err != nil {
		return Migration{}, NewMigrationError("", filename, "validate filename", err)
	}
	matches := migrationFilePattern.FindStringSubmatch(filename)
	version := matches[1]

	content, err := fs.ReadFile(s.fsys, filename)
	if err != nil {
		return Migration{}, NewFileSystemError(filename, "read file", err)
	}
	sql := string(content)
	if err := checkSQL(sql); err != nil {
		return Migration{}, NewMigrationError(version, filename, "validate SQL", err)
	}

	description := descriptionFromComments(sql)
	if description == "" {
		description = strings.ReplaceAll(matches[2], "_", " ")
	}

	sum := sha256.Sum256(content)
	return Migration{
		Version:     version,
		Description: description,
		SQL:         sql,
		FilePath:    filename,
		Checksum:    hex.EncodeToString(sum[:]),
	}, nil
}

// checkSQL rejects empty files and obviously unbalanced statements.
func checkSQL(sql string) error {
	stripped := stripComments(sql)
	if strings.TrimSpace(stripped) == "" {
		return fmt.Errorf("%w: no SQL statements", ErrInvalidMigrationFile)
	}

	depth := 0
	var quote rune
	for _, r := range stripped {
		switch {
		case quote != 0:
			if r == quote {
				quote = 0
			}
		case r == '\'' || r == '"':
			quote = r
		case r == '(':
			depth++
		case r == ')':
			depth--
			if depth < 0 {
				return fmt.Errorf("%w: unmatched closing parenthesis", ErrInvalidMigrationFile)
			}
		}
	}
	if quote != 0 {
		return fmt.Errorf("%w: unterminated string literal", ErrInvalidMigrationFile)
	}
	if depth != 0 {
		return fmt.Errorf("%w: unmatched opening parenthesis", ErrInvalidMigrationFile)
	}
	return nil
}

func stripComments(sql string) string {
	lines := strings.Split(sql, "\n")
	kept := lines[:0]
	for _, line := range lines {
		if idx := strings.Index(line, "--"); idx >= 0 {
			line = line[:idx]
		}
		if line = strings.TrimSpace(line); line != "" {
			kept = append(kept, line)
		}
	}
	return strings.Join(kept, "\n")
}

// descriptionFromComments reads a leading "-- Description: ..." header.
func descriptionFromComments(sql string) string {
	for _, line := range strings.Split(sql, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if !strings.HasPrefix(line, "--") {
			return ""
		}
		if rest, ok := strings.CutPrefix(line, "-- Description:"); ok {
			return strings.TrimSpace(rest)
		}
	}
	return ""
}

func versionNumber(version string) int {
	n, _ := strconv.Atoi(version)
	return n
}
