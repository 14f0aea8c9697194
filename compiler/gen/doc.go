// Package gen turns a compiled schema corpus into source code.
//
// # Architecture
//
// The code generation pipeline follows this flow:
//
//	Graph + Classification + Names
//	        ↓
//	   Context (frozen; one Region per generated schema)
//	        ↓
//	   Emitter + RenderProfile (one per target language)
//	        ↓
//	   Generator (parallel emission, cache, file layout)
//
// # Regions
//
// A Region is the only thing an emitter sees. It carries the classification
// of one schema with every reference already resolved to the target's name,
// origin and kind. Regions never hold the source document, so an emitter
// cannot diverge from the classifier by inspecting undeclared JSON.
//
//	cc, err := gen.Build(ctx, g, table, names)
//	r, ok := cc.RegionFor("user.json")
//
// # Emitters
//
// Emitter is the minimal contract. Optional capabilities are detected by
// type assertion:
//
//	Emitter
//	├── Language() string
//	├── Emit(*Region, *RenderProfile) (string, error)
//	├── Preamble (optional: headers, imports)
//	└── Bundler  (optional: whole-file assembly)
//
// An emitter that cannot render a region returns UnsupportedTypeKindError
// instead of emitting code that would not compile or would decode wrongly.
//
// # Render Profiles
//
// RenderProfile holds the language policy: scalar mappings, optional-field
// strategy, union encoding, wrapping templates, casing and keyword escaping.
// Built-in profiles exist for go, rust, typescript, python and graphql:
//
//	p, _ := gen.Profile("rust")
//	_ = p.Override(map[string]string{"string:date-time": "chrono::DateTime<chrono::Utc>"}, "")
//
// # Error Handling
//
//   - UnsupportedTypeKindError: an emitter refused a region
//   - GenerationError: rendering, bundling or writing failed
//   - ConfigError: invalid options
//
// # Configuration
//
// Configuration is done via the functional options pattern:
//
//	cfg, err := gen.NewConfig(
//	    gen.WithTarget("./generated"),
//	    gen.WithLanguages("go", "rust"),
//	    gen.WithLayout(gen.LayoutBundle),
//	)
package gen
