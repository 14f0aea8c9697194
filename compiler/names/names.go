// Package names assigns every schema a canonical, collision-free type name.
//
// Names are language-agnostic PascalCase identifiers. Each RenderProfile
// applies its own casing and keyword escaping on top.
package names

import (
	"cmp"
	"fmt"
	"path"
	"slices"
	"strconv"
	"strings"
	"unicode"

	"github.com/syssam/schemac"
	"github.com/syssam/schemac/compiler/casing"
	"github.com/syssam/schemac/compiler/classify"
	"github.com/syssam/schemac/compiler/diag"
	"github.com/syssam/schemac/compiler/load"
	"github.com/syssam/schemac/graph"
)

// Origin tells where a type comes from.
type Origin uint8

// Origins.
const (
	// Generated types are emitted by this run.
	Generated Origin = iota
	// Primitive types are hand-written and imported.
	Primitive
	// External types come from a dependency and are referenced by path.
	External
	// StdlibAlias types are aliases of a scalar named like a standard type.
	// They are never emitted; references use the scalar directly.
	StdlibAlias
)

var originNames = [...]string{"generated", "primitive", "external", "stdlib-alias"}

func (o Origin) String() string {
	if int(o) < len(originNames) {
		return originNames[o]
	}
	return "origin(" + strconv.Itoa(int(o)) + ")"
}

// Collision records why a name was disambiguated.
type Collision struct {
	// Candidate is the name the schema would have had.
	Candidate string
	// Qualifier is the path-derived prefix that was added.
	Qualifier string
	// Peers are the other schemas that shared the candidate.
	Peers []graph.SchemaID
}

// ResolvedName is the naming decision for one schema.
type ResolvedName struct {
	ID     graph.SchemaID
	Name   string
	Origin Origin
	// ExternalPath is the qualified type of an External schema.
	ExternalPath string `json:",omitempty"`
	Path         string
	Directory    string
	Collision    *Collision `json:",omitempty"`
}

// Disambiguated reports whether the name differs from its candidate.
func (r *ResolvedName) Disambiguated() bool { return r.Collision != nil }

// DefaultStdlib lists names that shadow standard types in most targets.
var DefaultStdlib = []string{
	"String", "Integer", "Int", "Number", "Float", "Boolean", "Bool",
	"Object", "Array", "Map", "Any", "Value", "Error",
}

// genericSegments never qualify a name.
var genericSegments = map[string]bool{
	"json-schema": true, "schemas": true, "schema": true, "types": true, "src": true, ".": true,
}

// Config configures a Resolver.
type Config struct {
	External map[graph.SchemaID]string
	Stdlib   []string
}

// Option configures the Resolver.
type Option func(*Config)

// WithExternal maps schema ids to externally provided type paths.
func WithExternal(m map[graph.SchemaID]string) Option {
	return func(c *Config) {
		if c.External == nil {
			c.External = make(map[graph.SchemaID]string, len(m))
		}
		for id, p := range m {
			c.External[id] = p
		}
	}
}

// WithStdlib replaces the names treated as standard types.
func WithStdlib(names ...string) Option {
	return func(c *Config) { c.Stdlib = names }
}

// Names is the frozen result of name resolution.
type Names struct {
	ids  []graph.SchemaID
	byID map[graph.SchemaID]*ResolvedName
}

// Get returns the resolved name of id.
func (n *Names) Get(id graph.SchemaID) (*ResolvedName, bool) {
	r, ok := n.byID[id]
	return r, ok
}

// IDs returns the named ids in sorted order.
func (n *Names) IDs() []graph.SchemaID { return n.ids }

// Lookup returns the schema that owns name.
func (n *Names) Lookup(name string) (graph.SchemaID, bool) {
	for _, id := range n.ids {
		if r := n.byID[id]; r.Name == name && r.Origin != External && r.Origin != StdlibAlias {
			return id, true
		}
	}
	return "", false
}

// Resolve names every node of g. A name that still collides after
// disambiguation fails the run with a NameCollisionError.
func Resolve(g *graph.Graph, table *classify.Table, diags *diag.List, opts ...Option) (*Names, error) {
	cfg := &Config{Stdlib: DefaultStdlib}
	for _, opt := range opts {
		opt(cfg)
	}
	stdlib := make(map[string]bool, len(cfg.Stdlib))
	for _, s := range cfg.Stdlib {
		stdlib[s] = true
	}

	out := &Names{ids: g.IDs(), byID: make(map[graph.SchemaID]*ResolvedName, g.Len())}
	groups := make(map[string][]*ResolvedName)
	for _, id := range out.ids {
		n, _ := g.Node(id)
		r := &ResolvedName{
			ID:        id,
			Name:      Candidate(n.Name),
			Path:      n.Path,
			Directory: path.Dir(n.Path),
		}
		c, _ := table.Get(id)
		switch {
		case cfg.External[id] != "":
			r.Origin = External
			r.ExternalPath = cfg.External[id]
		case c != nil && c.Kind == classify.Primitive:
			r.Origin = Primitive
		case c != nil && stdlib[r.Name] && scalarAlias(c):
			r.Origin = StdlibAlias
		}
		out.byID[id] = r
		if r.Origin == Generated || r.Origin == Primitive {
			groups[r.Name] = append(groups[r.Name], r)
		}
	}

	claimed := make(map[string]*ResolvedName, len(groups))
	candidates := make([]string, 0, len(groups))
	for name, grp := range groups {
		candidates = append(candidates, name)
		if len(grp) == 1 {
			claimed[name] = grp[0]
		}
	}
	slices.Sort(candidates)
	for _, name := range candidates {
		grp := groups[name]
		if len(grp) == 1 {
			continue
		}
		slices.SortFunc(grp, func(a, b *ResolvedName) int { return cmp.Compare(a.Path, b.Path) })
		disambiguate(name, grp)
		for _, r := range grp {
			if prev, ok := claimed[r.Name]; ok {
				err := schemac.NewNameCollisionError(r.Name, prev.Path, r.Path)
				diags.Errorf(diag.TypeNameCollision, string(r.ID), "%s", err.Error())
				return nil, err
			}
			claimed[r.Name] = r
		}
	}
	return out, nil
}

// Candidate returns the undisambiguated type name for a display name.
func Candidate(display string) string {
	name := casing.Pascal(display)
	switch {
	case name == "":
		return "Schema"
	case unicode.IsDigit([]rune(name)[0]):
		return "T" + name
	}
	return name
}

func scalarAlias(c *classify.Classification) bool {
	return c.Kind == classify.Alias && c.Target != nil && c.Target.Kind == classify.FieldScalar
}

// disambiguate prefixes every member of a colliding group with its nearest
// directory segments, using the fewest segments that tell the members
// apart. When the directories are exhausted the file stem is added last.
func disambiguate(candidate string, grp []*ResolvedName) {
	quals := make([]qualifierSource, len(grp))
	depth := 1
	for i, r := range grp {
		quals[i] = newQualifierSource(r.Path)
		depth = max(depth, len(quals[i].dirs)+1)
	}
	var qualifiers []string
	for k := 1; k <= depth; k++ {
		qualifiers = make([]string, len(grp))
		seen := make(map[string]bool, len(grp))
		distinct := true
		for i := range grp {
			qualifiers[i] = quals[i].qualifier(k)
			if seen[qualifiers[i]] {
				distinct = false
			}
			seen[qualifiers[i]] = true
		}
		if distinct {
			break
		}
	}
	for i, r := range grp {
		r.Name = qualifiers[i] + candidate
		c := &Collision{Candidate: candidate, Qualifier: qualifiers[i]}
		for _, peer := range grp {
			if peer != r {
				c.Peers = append(c.Peers, peer.ID)
			}
		}
		r.Collision = c
	}
}

// qualifierSource holds the path parts that may qualify a name.
type qualifierSource struct {
	dirs []string // innermost first, generic segments removed
	stem string
}

func newQualifierSource(p string) qualifierSource {
	parts := strings.Split(path.Dir(p), "/")
	q := qualifierSource{stem: load.FileStem(p)}
	for i := len(parts) - 1; i >= 0; i-- {
		if parts[i] != "" && !genericSegments[parts[i]] {
			q.dirs = append(q.dirs, parts[i])
		}
	}
	return q
}

// qualifier returns the k nearest directories, outermost first, followed
// by the file stem once k exceeds the directory count.
func (q qualifierSource) qualifier(k int) string {
	var b strings.Builder
	for i := min(k, len(q.dirs)) - 1; i >= 0; i-- {
		b.WriteString(casing.Pascal(q.dirs[i]))
	}
	if k > len(q.dirs) {
		b.WriteString(casing.Pascal(q.stem))
	}
	return b.String()
}

// String implements fmt.Stringer.
func (r *ResolvedName) String() string {
	if r.Collision == nil {
		return fmt.Sprintf("%s (%s)", r.Name, r.Origin)
	}
	return fmt.Sprintf("%s (%s, was %s)", r.Name, r.Origin, r.Collision.Candidate)
}
