package python_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/schemac/compiler/gen"
	"github.com/syssam/schemac/compiler/gen/gentest"
	"github.com/syssam/schemac/compiler/gen/python"
)

func TestRecord(t *testing.T) {
	t.Run("Exactly the declared fields", func(t *testing.T) {
		out, err := gentest.Emit(t, python.New(), gentest.Corpus{
			"x.json": `{"type": "string", "format": "uuid"}`,
			"user.json": `{"title": "User", "description": "A registered user.", "type": "object", "required": ["name"], "properties": {
				"name": {"$ref": "x.json"},
				"tags": {"type": "array", "items": {"type": "string"}}
			}}`,
		}, "user.json", "x.json")
		require.NoError(t, err)
		assert.Equal(t, `class User(TypedDict):
    """A registered user."""

    name: X
    tags: NotRequired[list[str]]
`, out)
	})

	t.Run("Functional syntax for reserved keys", func(t *testing.T) {
		out := gentest.Render(t, python.New(), gentest.Corpus{
			"base.json": `{"title": "Base", "properties": {"id": {"type": "string"}}, "required": ["id"]}`,
			"item.json": `{"title": "Item", "allOf": [{"$ref": "base.json"}], "required": ["class"], "properties": {
				"class": {"type": "string"},
				"content-type": {"type": ["string", "null"]}
			}}`,
		})
		assert.Contains(t, out, "class Base(TypedDict):\n    id: str\n")
		assert.Contains(t, out, `Item = TypedDict("Item", {
    "id": str,
    "class": str,
    "content-type": NotRequired[Optional[str]],
})
`)
	})

	t.Run("Subclassing record bases", func(t *testing.T) {
		out := gentest.Render(t, python.New(), gentest.Corpus{
			"base.json": `{"title": "Base", "properties": {"id": {"type": "string"}}, "required": ["id"]}`,
			"item.json": `{"title": "Item", "allOf": [{"$ref": "base.json"}], "properties": {"label": {"type": "string"}}}`,
		})
		assert.Contains(t, out, "class Item(Base):\n    label: NotRequired[str]\n")
	})
}

func TestTwoNodeCycle(t *testing.T) {
	out := gentest.Render(t, python.New(), gentest.Corpus{
		"a.json": `{"type": "object", "required": ["next"], "properties": {"next": {"$ref": "b.json"}}}`,
		"b.json": `{"type": "object", "required": ["prev"], "properties": {"prev": {"$ref": "a.json"}}}`,
	})
	assert.True(t, strings.HasPrefix(out, "from __future__ import annotations\n"))
	assert.Contains(t, out, "class A(TypedDict):\n    next: B\n")
	assert.Contains(t, out, "class B(TypedDict):\n    prev: A\n")
}

func TestEnumUnionAlias(t *testing.T) {
	out := gentest.Render(t, python.New(), gentest.Corpus{
		"status.json":     `{"title": "Status", "enum": ["active", "on-hold"]}`,
		"circle.json":     `{"title": "Circle", "properties": {"kind": {"const": "circle"}}}`,
		"square.json":     `{"title": "Square", "properties": {"kind": {"const": "square"}}}`,
		"shape.json":      `{"title": "Shape", "discriminator": {"propertyName": "kind"}, "oneOf": [{"$ref": "circle.json"}, {"$ref": "square.json"}]}`,
		"tags.json":       `{"title": "Tags", "type": "array", "items": {"type": "string"}}`,
		"account_id.json": `{"title": "AccountID", "type": "string", "x-familiar-newtype": true}`,
	})
	assert.Contains(t, out, "from enum import Enum\n")
	assert.Contains(t, out, "class Status(str, Enum):\n    ACTIVE = \"active\"\n    ON_HOLD = \"on-hold\"\n")
	assert.Contains(t, out, `Shape = Union["Circle", "Square"]`)
	assert.Contains(t, out, `kind: NotRequired[Literal["circle"]]`)
	assert.Contains(t, out, "Tags = list[str]\n")
	assert.Contains(t, out, `AccountID = NewType("AccountID", str)`)
}

func TestPreambleImports(t *testing.T) {
	cc, _ := gentest.Build(t, gentest.Corpus{
		"user.json":    `{"title": "User", "properties": {"profile": {"$ref": "profile.json"}}}`,
		"profile.json": `{"title": "UserProfile", "properties": {"bio": {"type": "string"}}}`,
	})
	files, err := gen.NewGenerator(cc, t.TempDir()).WithEmitter(python.New()).Render(t.Context())
	require.NoError(t, err)
	got := map[string]string{}
	for _, f := range files {
		got[f.Path] = string(f.Content)
	}
	assert.Contains(t, got["user.py"], "from typing import TYPE_CHECKING, ")
	assert.Contains(t, got["user.py"], "if TYPE_CHECKING:\n    from .user_profile import UserProfile\n")
	assert.NotContains(t, got["user_profile.py"], "TYPE_CHECKING")
}

func TestPreambleBaseImports(t *testing.T) {
	cc, _ := gentest.Build(t, gentest.Corpus{
		"base.json":  `{"title": "Base", "properties": {"id": {"type": "string"}}, "required": ["id"]}`,
		"owner.json": `{"title": "Owner", "properties": {"name": {"type": "string"}}}`,
		"child.json": `{"title": "Child", "allOf": [{"$ref": "base.json"}], "properties": {"owner": {"$ref": "owner.json"}}}`,
	})
	files, err := gen.NewGenerator(cc, t.TempDir()).WithEmitter(python.New()).Render(t.Context())
	require.NoError(t, err)
	got := map[string]string{}
	for _, f := range files {
		got[f.Path] = string(f.Content)
	}
	child := got["child.py"]
	assert.Contains(t, child, "\nfrom .base import Base\n")
	assert.NotContains(t, child, "    from .base import Base\n")
	assert.Contains(t, child, "if TYPE_CHECKING:\n    from .owner import Owner\n")
	assert.Contains(t, child, "class Child(Base):\n")
	assert.Less(t, strings.Index(child, "from .base import Base"), strings.Index(child, "class Child(Base)"))
}
