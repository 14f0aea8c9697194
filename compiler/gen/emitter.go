package gen

// Emitter renders one region as source text. Emit must be a pure function
// of its arguments: no I/O, no graph access. An emitter that cannot render
// a region returns an UnsupportedTypeKindError.
//
// Capabilities beyond Emit are optional and detected by type assertion:
//
//	Emitter
//	├── Preamble (file headers and imports)
//	└── Bundler  (whole-file finishing)
type Emitter interface {
	// Language returns the name of the built-in profile the emitter targets.
	Language() string
	Emit(r *Region, p *RenderProfile) (string, error)
}

// Preamble writes what precedes the declarations of a file: header
// comments, imports and shared declarations the regions need.
type Preamble interface {
	Preamble(p *RenderProfile, regions []*Region) string
}

// Bundler assembles a complete file from the regions it holds and their
// rendered declarations, in order. It replaces the default assembly of
// preamble followed by declarations.
type Bundler interface {
	Bundle(p *RenderProfile, regions []*Region, decls []string) (string, error)
}
