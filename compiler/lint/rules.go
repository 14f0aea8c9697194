package lint

import (
	"context"
	"fmt"
	"slices"

	"github.com/syssam/schemac/compiler/classify"
	"github.com/syssam/schemac/compiler/diag"
	"github.com/syssam/schemac/compiler/shape"
	"github.com/syssam/schemac/graph"
)

func warn(code diag.Code, n *graph.Node, format string, args ...any) diag.Diagnostic {
	return diag.Diagnostic{
		Severity: diag.Warning,
		Code:     code,
		Subject:  string(n.ID),
		Message:  fmt.Sprintf(format, args...),
	}
}

// untaggedUnion reports branches of a discriminated union that declare no
// literal for the discriminator. Their tag falls back to the branch name,
// which the payloads may not carry.
func untaggedUnion(_ context.Context, in *Input, n *graph.Node) []diag.Diagnostic {
	c, ok := in.Table.Get(n.ID)
	if !ok || c.Kind != classify.DiscriminatedUnion || c.Ambiguous {
		return nil
	}
	s := in.Shapes[n.ID]
	var found []diag.Diagnostic
	for i, v := range s.Variants {
		if v.Tag != "" || declares(in, v.Type, s.Discriminator) {
			continue
		}
		tag := v.Name
		if i < len(c.Variants) {
			tag = c.Variants[i].Tag
		}
		found = append(found, warn(diag.AmbiguousUnion, n,
			"variant %s declares no %q literal; tag defaults to %q", v.Name, s.Discriminator, tag))
	}
	return found
}

func declares(in *Input, t shape.Type, disc string) bool {
	if t.Kind != shape.TypeRef {
		return false
	}
	id, ok := in.Graph.ResolveRef(t.Ref)
	if !ok {
		return false
	}
	return slices.ContainsFunc(in.Shapes[id].Properties, func(p shape.Property) bool {
		return p.Name == disc && p.Const != ""
	})
}

// anyOfObjects reports anyOf compositions over two or more object
// branches. A payload may match several of them.
func anyOfObjects(_ context.Context, in *Input, n *graph.Node) []diag.Diagnostic {
	anyOf := in.Graph.Raw(n.ID).Get("anyOf")
	if !anyOf.IsArray() {
		return nil
	}
	objects := 0
	for _, b := range anyOf.Items {
		switch shape.TypeOf(n.Path, b).Kind {
		case shape.TypeRef, shape.TypeInlineObject:
			objects++
		}
	}
	if objects < 2 {
		return nil
	}
	return []diag.Diagnostic{warn(diag.AmbiguousUnion, n,
		"anyOf over %d object branches; use oneOf with a discriminator", objects)}
}

// missingKind reports generated records without an x-familiar-kind tag.
func missingKind(_ context.Context, in *Input, n *graph.Node) []diag.Diagnostic {
	c, ok := in.Table.Get(n.ID)
	if !ok || c.Kind != classify.Record || n.Kind() != "" {
		return nil
	}
	return []diag.Diagnostic{warn(diag.MissingKind, n, "record has no x-familiar-kind")}
}
