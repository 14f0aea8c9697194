// Package graph provides the schema dependency graph used by the compiler.
//
// This package is responsible for indexing loaded schema documents and the
// references between them. It serves as the frozen basis for every later
// pass: shape detection, classification, naming and region projection.
//
// # Graph Structure
//
// The Graph holds one Node per schema document and one Edge per reference:
//
//	type Graph struct {
//	    nodes []*Node  // sorted by SchemaID
//	    edges []*Edge  // sorted by (From, To, Kind, Path, Index)
//	}
//
// Nodes are addressed by SchemaID, never by pointer ownership, so reference
// cycles between schemas need no cyclic structures in memory.
//
// # Edge Kinds
//
// An edge records where the reference appeared:
//
//   - Ref: a $ref at the schema root
//   - AllOf, OneOf, AnyOf: a composition branch
//   - Items: array items
//   - AdditionalProperties: map values
//   - Property: a property value
//
// Multiple edges between the same pair are legal and kept.
//
// # Building
//
//	var diags diag.List
//	g, err := graph.Build(ctx, schemas, &diags)
//
// References resolve by id first, then by path. Dangling references are
// reported as diagnostics and produce no edge.
//
// # Cycles
//
// Strongly connected components are computed at build time. AnalyzeCycles
// marks the edges that need indirection so that every cycle is broken:
//
//	cycles, err := graph.AnalyzeCycles(g)
//	for _, grp := range cycles.Groups() {
//	    fmt.Println(grp.Members, grp.Indirect)
//	}
//
// # Queries
//
//	n, ok := g.Resolve("User")        // id, path, name, case-insensitive name
//	deps := g.Closure(n.ID, 0)        // transitive dependencies
//	_ = g.WriteDOT(os.Stdout, cycles) // Graphviz export
package graph
