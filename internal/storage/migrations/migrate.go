package migrations

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"log"
	"path"
	"sort"
	"strings"
	"time"

	"equal-weight-index/internal/observability"
)

// PostgresFS holds the relational schema: raw prices, runs, daily records.
//
//go:embed postgres/*.sql
var PostgresFS embed.FS

// ClickhouseFS holds the analytical index_levels table.
//
//go:embed clickhouse/*.sql
var ClickhouseFS embed.FS

// Migration is one SQL file ready to execute.
type Migration struct {
	Name       string
	Statements []string
}

// execFunc runs a single statement against a backend.
type execFunc func(ctx context.Context, stmt string) error

// Load reads the .sql files under dir in lexical order and skips blank ones.
// With split set every file is cut into single statements, otherwise the
// whole file is one statement.
func Load(fsys fs.FS, dir string, split bool) ([]Migration, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("read migrations %s: %w", dir, err)
	}

	var names []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".sql") {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)

	var out []Migration
	for _, name := range names {
		data, err := fs.ReadFile(fsys, path.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("read migration %s: %w", name, err)
		}
		sql := string(data)
		if strings.TrimSpace(sql) == "" {
			continue
		}

		m := Migration{Name: name}
		if split {
			if err := validateNoSemicolonInStrings(sql); err != nil {
				return nil, fmt.Errorf("validate migration %s: %w", name, err)
			}
			m.Statements = splitStatements(sql)
		} else {
			m.Statements = []string{sql}
		}
		out = append(out, m)
	}
	return out, nil
}

// apply executes migrations in order and stops at the first failure.
// Each file is timed as one "migrate" query for the given database label.
func apply(ctx context.Context, database string, ms []Migration, exec execFunc, logger *log.Logger) error {
	for _, m := range ms {
		start := time.Now()
		err := applyOne(ctx, m, exec)
		observability.RecordDBQuery(database, "migrate", time.Since(start).Seconds(), err)
		if err != nil {
			return fmt.Errorf("apply migration %s: %w", m.Name, err)
		}
		if logger != nil {
			logger.Printf("Applied %s migration %s (%d statements)", database, m.Name, len(m.Statements))
		}
	}
	return nil
}

func applyOne(ctx context.Context, m Migration, exec execFunc) error {
	for _, stmt := range m.Statements {
		if err := exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// splitStatements cuts SQL on semicolons after dropping blank and "--" lines.
// It does not understand quoting, so migrations must keep semicolons out of
// string literals and block comments; validateNoSemicolonInStrings enforces
// the first rule.
func splitStatements(input string) []string {
	var kept []string
	for _, line := range strings.Split(input, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "--") {
			continue
		}
		kept = append(kept, line)
	}

	var stmts []string
	for _, part := range strings.Split(strings.Join(kept, "\n"), ";") {
		if stmt := strings.TrimSpace(part); stmt != "" {
			stmts = append(stmts, stmt)
		}
	}
	return stmts
}

func validateNoSemicolonInStrings(sql string) error {
	quoted := false
	for i := 0; i < len(sql); i++ {
		switch sql[i] {
		case '\'':
			if quoted && i+1 < len(sql) && sql[i+1] == '\'' {
				i++
				continue
			}
			quoted = !quoted
		case ';':
			if quoted {
				return fmt.Errorf("semicolon inside string literal at offset %d", i)
			}
		}
	}
	return nil
}
