package migration

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io/fs"
	"path"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// migrationFilePattern matches {version}_{description}.sql with a numeric version.
var migrationFilePattern = regexp.MustCompile(`^(\d+)_([a-zA-Z0-9_-]+)\.sql$`)

// FSScanner reads migrations from a directory of an fs.FS.
type FSScanner struct {
	files fs.FS
	dir   string
}

// NewFSScanner creates a scanner rooted at dir inside files.
func NewFSScanner(files fs.FS, dir string) *FSScanner {
	if dir == "" {
		dir = "."
	}
	return &FSScanner{files: files, dir: dir}
}

// ScanMigrations scans the migration directory for migration files
func (s *FSScanner) ScanMigrations() ([]Migration, error) {
	entries, err := fs.ReadDir(s.files, s.dir)
	if err != nil {
		return nil, NewMigrationError("", s.dir, "read directory", err)
	}

	var migrations []Migration
	versionMap := make(map[string]string)

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}

		if err := ValidateFileName(entry.Name()); err != nil {
			return nil, NewMigrationError("", entry.Name(), "validate filename", err)
		}

		migration, err := s.parse(entry.Name())
		if err != nil {
			return nil, err
		}

		if existingFile, exists := versionMap[migration.Version]; exists {
			return nil, NewMigrationError(migration.Version, entry.Name(), "check duplicates",
				fmt.Errorf("%w: version %s found in both %s and %s",
					ErrDuplicateVersion, migration.Version, existingFile, entry.Name()))
		}
		versionMap[migration.Version] = entry.Name()

		migrations = append(migrations, migration)
	}

	sort.Slice(migrations, func(i, j int) bool {
		versionI, _ := strconv.Atoi(migrations[i].Version)
		versionJ, _ := strconv.Atoi(migrations[j].Version)
		return versionI < versionJ
	})

	return migrations, nil
}

// ValidateFileName checks if migration file follows naming convention
func ValidateFileName(filename string) error {
	matches := migrationFilePattern.FindStringSubmatch(filename)
	if len(matches) != 3 {
		return fmt.Errorf("%w: filename '%s' does not match pattern '{version}_{description}.sql'",
			ErrInvalidMigrationFile, filename)
	}
	if strings.TrimSpace(matches[2]) == "" {
		return fmt.Errorf("%w: description in filename '%s' cannot be empty",
			ErrInvalidMigrationFile, filename)
	}
	return nil
}

func (s *FSScanner) parse(name string) (Migration, error) {
	filePath := path.Join(s.dir, name)
	content, err := fs.ReadFile(s.files, filePath)
	if err != nil {
		return Migration{}, NewMigrationError("", filePath, "read file", err)
	}

	body := strings.TrimSpace(string(content))
	if body == "" {
		return Migration{}, NewMigrationError("", filePath, "parse file",
			fmt.Errorf("%w: migration file is empty", ErrInvalidMigrationFile))
	}

	matches := migrationFilePattern.FindStringSubmatch(name)
	sum := sha256.Sum256(content)

	return Migration{
		Version:     matches[1],
		Description: strings.ReplaceAll(matches[2], "_", " "),
		SQL:         body,
		FilePath:    filePath,
		Checksum:    hex.EncodeToString(sum[:]),
	}, nil
}
