// Package export writes the graph index of a compilation to a SQL
// database, so other tools can query schemas, references and diagnostics
// without running the compiler.
//
// # Supported Dialects
//
//   - SQLite: modernc.org/sqlite, registered as "sqlite"
//   - Postgres: github.com/lib/pq, registered as "postgres"
//   - MySQL: github.com/go-sql-driver/mysql, registered as "mysql"
//
// # Usage
//
//	drv, err := export.Open(export.SQLite, "index.db")
//	if err != nil {
//	    return err
//	}
//	defer drv.Close()
//	err = export.Export(ctx, drv, res)
package export

import (
	"strconv"
	"strings"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// Dialect names. Each is also the database/sql driver name.
const (
	MySQL    = "mysql"
	SQLite   = "sqlite"
	Postgres = "postgres"
)

// Dialects returns the supported dialect names.
func Dialects() []string {
	return []string{MySQL, Postgres, SQLite}
}

// rebind rewrites ? placeholders into the dialect's bind syntax.
func rebind(dialect, query string) string {
	if dialect != Postgres || !strings.Contains(query, "?") {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r != '?' {
			b.WriteRune(r)
			continue
		}
		n++
		b.WriteByte('$')
		b.WriteString(strconv.Itoa(n))
	}
	return b.String()
}

// keyType is the column type of indexed text. MySQL cannot index TEXT
// without a prefix length.
func keyType(dialect string) string {
	if dialect == MySQL {
		return "VARCHAR(512)"
	}
	return "TEXT"
}
