package export

import (
	"context"
	"fmt"
	"time"

	slogcontext "github.com/veqryn/slog-context"

	"github.com/syssam/schemac/compiler"
	"github.com/syssam/schemac/compiler/gen"
)

// Table names.
const (
	RunsTable        = "schemac_runs"
	NodesTable       = "schemac_nodes"
	EdgesTable       = "schemac_edges"
	DiagnosticsTable = "schemac_diagnostics"
)

// Tables returns the index tables in creation order.
func Tables() []string {
	return []string{RunsTable, NodesTable, EdgesTable, DiagnosticsTable}
}

// Summary counts the rows of an index.
type Summary struct {
	RunID       string
	Nodes       int
	Edges       int
	Diagnostics int
}

func schema(dialect string) []string {
	key := keyType(dialect)
	return []string{
		`CREATE TABLE IF NOT EXISTS ` + RunsTable + ` (
	run_id ` + key + ` PRIMARY KEY,
	corpus_hash TEXT NOT NULL,
	exported_at TEXT NOT NULL
)`,
		`CREATE TABLE IF NOT EXISTS ` + NodesTable + ` (
	id ` + key + ` PRIMARY KEY,
	path TEXT NOT NULL,
	name TEXT NOT NULL,
	title TEXT NOT NULL,
	kind TEXT NOT NULL,
	type_kind TEXT NOT NULL,
	type_name TEXT NOT NULL,
	strategy TEXT NOT NULL
)`,
		`CREATE TABLE IF NOT EXISTS ` + EdgesTable + ` (
	from_id ` + key + ` NOT NULL,
	to_id ` + key + ` NOT NULL,
	kind TEXT NOT NULL,
	path TEXT NOT NULL,
	field TEXT NOT NULL,
	position INTEGER NOT NULL,
	indirect INTEGER NOT NULL
)`,
		`CREATE TABLE IF NOT EXISTS ` + DiagnosticsTable + ` (
	subject TEXT NOT NULL,
	severity TEXT NOT NULL,
	code TEXT NOT NULL,
	message TEXT NOT NULL,
	rule TEXT NOT NULL
)`,
	}
}

// Migrate creates the index tables if they do not exist.
func Migrate(ctx context.Context, drv *Driver) error {
	for _, stmt := range schema(drv.Dialect()) {
		if err := drv.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// Export replaces the index with the graph of res in one transaction.
func Export(ctx context.Context, drv *Driver, res *compiler.Result) (_ Summary, rerr error) {
	if res == nil || res.Graph == nil {
		return Summary{}, gen.NewConfigError("Result", nil, "compilation did not reach the graph phase")
	}
	if err := Migrate(ctx, drv); err != nil {
		return Summary{}, err
	}
	tx, err := drv.Tx(ctx)
	if err != nil {
		return Summary{}, err
	}
	defer func() {
		if rerr != nil {
			rerr = tx.Rollback(rerr)
		}
	}()
	for _, t := range Tables() {
		if err := tx.Exec(ctx, "DELETE FROM "+t); err != nil {
			return Summary{}, err
		}
	}
	sum := Summary{RunID: res.RunID}
	err = tx.Exec(ctx, "INSERT INTO "+RunsTable+" (run_id, corpus_hash, exported_at) VALUES (?, ?, ?)",
		res.RunID, res.Graph.Hash().String(), time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return Summary{}, err
	}
	for _, n := range res.Graph.Nodes() {
		var typeKind, typeName, strategy string
		if res.Table != nil {
			if c, ok := res.Table.Get(n.ID); ok {
				typeKind, strategy = c.Kind.String(), c.Strategy.String()
			}
		}
		if res.Names != nil {
			if rn, ok := res.Names.Get(n.ID); ok {
				typeName = rn.Name
			}
		}
		err := tx.Exec(ctx, "INSERT INTO "+NodesTable+" (id, path, name, title, kind, type_kind, type_name, strategy) VALUES (?, ?, ?, ?, ?, ?, ?, ?)",
			string(n.ID), n.Path, n.Name, n.Title, n.Kind(), typeKind, typeName, strategy)
		if err != nil {
			return Summary{}, err
		}
		sum.Nodes++
	}
	for _, e := range res.Graph.Edges() {
		indirect := 0
		if res.Cycles != nil && res.Cycles.IsIndirect(e) {
			indirect = 1
		}
		err := tx.Exec(ctx, "INSERT INTO "+EdgesTable+" (from_id, to_id, kind, path, field, position, indirect) VALUES (?, ?, ?, ?, ?, ?, ?)",
			string(e.From), string(e.To), e.Kind.String(), e.Path, e.Field, e.Index, indirect)
		if err != nil {
			return Summary{}, err
		}
		sum.Edges++
	}
	for _, d := range res.Diags.Sorted() {
		err := tx.Exec(ctx, "INSERT INTO "+DiagnosticsTable+" (subject, severity, code, message, rule) VALUES (?, ?, ?, ?, ?)",
			d.Subject, d.Severity.String(), string(d.Code), d.Message, d.Rule)
		if err != nil {
			return Summary{}, err
		}
		sum.Diagnostics++
	}
	if err := tx.Commit(); err != nil {
		return Summary{}, fmt.Errorf("export: commit: %w", err)
	}
	slogcontext.FromCtx(ctx).Info("index exported",
		"dialect", drv.Dialect(), "nodes", sum.Nodes, "edges", sum.Edges,
		"diagnostics", sum.Diagnostics, "stats", drv.QueryStats().Stats().String())
	return sum, nil
}

// Read counts the rows of the index currently in the database.
func Read(ctx context.Context, drv *Driver) (Summary, error) {
	var sum Summary
	if err := lastRun(ctx, drv, &sum.RunID); err != nil {
		return sum, err
	}
	for _, c := range []struct {
		table string
		dst   *int
	}{
		{NodesTable, &sum.Nodes},
		{EdgesTable, &sum.Edges},
		{DiagnosticsTable, &sum.Diagnostics},
	} {
		if err := count(ctx, drv, c.table, c.dst); err != nil {
			return sum, err
		}
	}
	return sum, nil
}

func lastRun(ctx context.Context, drv *Driver, dst *string) error {
	rows, err := drv.Query(ctx, "SELECT run_id FROM "+RunsTable)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		if err := rows.Scan(dst); err != nil {
			return err
		}
	}
	return rows.Err()
}

func count(ctx context.Context, drv *Driver, table string, dst *int) error {
	rows, err := drv.Query(ctx, "SELECT COUNT(*) FROM "+table)
	if err != nil {
		return err
	}
	defer rows.Close()
	if rows.Next() {
		if err := rows.Scan(dst); err != nil {
			return err
		}
	}
	return rows.Err()
}
