package names

import (
	"context"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/schemac"
	"github.com/syssam/schemac/compiler/classify"
	"github.com/syssam/schemac/compiler/diag"
	"github.com/syssam/schemac/compiler/load"
	"github.com/syssam/schemac/compiler/shape"
	"github.com/syssam/schemac/graph"
)

func resolve(t *testing.T, docs map[string]string, prims []graph.SchemaID, opts ...Option) (*Names, *diag.List, error) {
	t.Helper()
	ctx := context.Background()
	fsys := fstest.MapFS{}
	for p, src := range docs {
		fsys[p] = &fstest.MapFile{Data: []byte(src)}
	}
	l, err := load.NewLoader()
	require.NoError(t, err)
	diags := &diag.List{}
	schemas, err := l.LoadFS(ctx, fsys, diags)
	require.NoError(t, err)
	g, err := graph.Build(ctx, schemas, diags)
	require.NoError(t, err)
	cycles, err := graph.AnalyzeCycles(g)
	require.NoError(t, err)
	shapes, err := shape.DetectAll(ctx, g)
	require.NoError(t, err)
	table, err := classify.ClassifyAll(ctx, g, shapes, cycles, classify.NewPrimitives(prims...), diags)
	require.NoError(t, err)
	n, err := Resolve(g, table, diags, opts...)
	return n, diags, err
}

func name(t *testing.T, n *Names, id graph.SchemaID) *ResolvedName {
	t.Helper()
	r, ok := n.Get(id)
	require.True(t, ok, "no name for %s", id)
	return r
}

func TestCandidate(t *testing.T) {
	assert.Equal(t, "UserProfile", Candidate("user profile"))
	assert.Equal(t, "UserProfile", Candidate("user_profile"))
	assert.Equal(t, "Schema", Candidate("--"))
	assert.Equal(t, "T42", Candidate("42"))
}

func TestDisambiguation(t *testing.T) {
	t.Run("Same title in different directories", func(t *testing.T) {
		docs := map[string]string{
			"billing/config.json": `{"title": "Config", "properties": {"a": {"type": "string"}}}`,
			"auth/config.json":    `{"title": "Config", "properties": {"b": {"type": "string"}}}`,
		}
		n, _, err := resolve(t, docs, nil)
		require.NoError(t, err)
		auth, billing := name(t, n, "auth/config.json"), name(t, n, "billing/config.json")
		assert.Equal(t, "AuthConfig", auth.Name)
		assert.Equal(t, "BillingConfig", billing.Name)
		require.True(t, billing.Disambiguated())
		assert.Equal(t, "Config", billing.Collision.Candidate)
		assert.Equal(t, "Billing", billing.Collision.Qualifier)
		assert.Equal(t, []graph.SchemaID{"auth/config.json"}, billing.Collision.Peers)

		for range 3 {
			again, _, err := resolve(t, docs, nil)
			require.NoError(t, err)
			assert.Equal(t, auth.Name, name(t, again, "auth/config.json").Name)
			assert.Equal(t, billing.Name, name(t, again, "billing/config.json").Name)
		}
	})

	t.Run("Generic directories are skipped", func(t *testing.T) {
		n, _, err := resolve(t, map[string]string{
			"json-schema/a/types/config.json": `{"title": "Config", "type": "string"}`,
			"json-schema/b/types/config.json": `{"title": "Config", "type": "string"}`,
		}, nil)
		require.NoError(t, err)
		assert.Equal(t, "AConfig", name(t, n, "json-schema/a/types/config.json").Name)
		assert.Equal(t, "BConfig", name(t, n, "json-schema/b/types/config.json").Name)
	})

	t.Run("Deeper segments and file stems are used when needed", func(t *testing.T) {
		n, _, err := resolve(t, map[string]string{
			"x/shared/config.json": `{"title": "Config", "type": "string"}`,
			"y/shared/config.json": `{"title": "Config", "type": "string"}`,
			"x/shared/other.json":  `{"title": "Config", "type": "string"}`,
		}, nil)
		require.NoError(t, err)
		assert.Equal(t, "XSharedConfigConfig", name(t, n, "x/shared/config.json").Name)
		assert.Equal(t, "XSharedOtherConfig", name(t, n, "x/shared/other.json").Name)
		assert.Equal(t, "YSharedConfigConfig", name(t, n, "y/shared/config.json").Name)
	})

	t.Run("Names are unique", func(t *testing.T) {
		n, _, err := resolve(t, map[string]string{
			"a/user.json": `{"title": "User", "type": "string"}`,
			"b/user.json": `{"title": "User", "type": "string"}`,
			"c/user.json": `{"title": "User", "type": "string"}`,
			"item.json":   `{"type": "string"}`,
		}, nil)
		require.NoError(t, err)
		seen := map[string]graph.SchemaID{}
		for _, id := range n.IDs() {
			r := name(t, n, id)
			prev, dup := seen[r.Name]
			assert.False(t, dup, "%s and %s share %s", prev, id, r.Name)
			seen[r.Name] = id
		}
		id, ok := n.Lookup("BUser")
		require.True(t, ok)
		assert.Equal(t, graph.SchemaID("b/user.json"), id)
	})

	t.Run("Residual collision is fatal", func(t *testing.T) {
		_, diags, err := resolve(t, map[string]string{
			"billing/config.json": `{"title": "Config", "type": "string"}`,
			"auth/config.json":    `{"title": "Config", "type": "string"}`,
			"billing-config.json": `{"type": "string"}`,
		}, nil)
		require.Error(t, err)
		assert.True(t, schemac.IsNameCollision(err))
		var nce *schemac.NameCollisionError
		require.ErrorAs(t, err, &nce)
		assert.Equal(t, "BillingConfig", nce.Name)
		assert.Equal(t, "billing-config.json", nce.PathA)
		assert.Equal(t, "billing/config.json", nce.PathB)
		assert.Len(t, diags.ByCode(diag.TypeNameCollision), 1)
	})
}

func TestOrigins(t *testing.T) {
	n, _, err := resolve(t, map[string]string{
		"timestamp.json": `{"title": "Timestamp", "type": "string", "format": "date-time"}`,
		"uuid.json":      `{"title": "Uuid", "type": "string", "format": "uuid"}`,
		"string.json":    `{"title": "String", "type": "string"}`,
		"user.json":      `{"title": "User", "properties": {"id": {"$ref": "uuid.json"}}}`,
	}, []graph.SchemaID{"timestamp.json"}, WithExternal(map[graph.SchemaID]string{"uuid.json": "github.com/google/uuid.UUID"}))
	require.NoError(t, err)

	assert.Equal(t, Primitive, name(t, n, "timestamp.json").Origin)
	ext := name(t, n, "uuid.json")
	assert.Equal(t, External, ext.Origin)
	assert.Equal(t, "github.com/google/uuid.UUID", ext.ExternalPath)
	assert.Equal(t, StdlibAlias, name(t, n, "string.json").Origin)
	user := name(t, n, "user.json")
	assert.Equal(t, Generated, user.Origin)
	assert.Equal(t, ".", user.Directory)
	assert.Equal(t, "User (generated)", user.String())
}
