package gen

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUnsupportedTypeKindError(t *testing.T) {
	t.Run("Error message with all fields", func(t *testing.T) {
		err := NewUnsupportedTypeKindError("go", "Value", "untagged union", "no discriminator")
		assert.Equal(t, "schemac: go cannot render untagged union Value: no discriminator", err.Error())
	})

	t.Run("Error message without language", func(t *testing.T) {
		err := &UnsupportedTypeKindError{Kind: "unsupported"}
		assert.Equal(t, "schemac: cannot render unsupported", err.Error())
	})

	t.Run("Is matches ErrUnsupportedTypeKind", func(t *testing.T) {
		err := fmt.Errorf("emit: %w", NewUnsupportedTypeKindError("go", "X", "primitive", ""))
		assert.True(t, errors.Is(err, ErrUnsupportedTypeKind))
		assert.True(t, IsUnsupportedTypeKind(err))
		assert.False(t, IsUnsupportedTypeKind(errors.New("other")))
	})
}

func TestConfigError(t *testing.T) {
	t.Run("Error message with value", func(t *testing.T) {
		err := NewConfigError("Layout", "tree", "unsupported layout")

		assert.Contains(t, err.Error(), "schemac: config error")
		assert.Contains(t, err.Error(), "Layout")
		assert.Contains(t, err.Error(), "tree")
		assert.Contains(t, err.Error(), "unsupported layout")
	})

	t.Run("Error message without value", func(t *testing.T) {
		err := NewConfigError("Target", nil, "cannot be empty")

		assert.Contains(t, err.Error(), "Target")
		assert.NotContains(t, err.Error(), "value:")
	})

	t.Run("Is matches ErrMissingConfig", func(t *testing.T) {
		err := NewConfigError("Target", nil, "missing")
		assert.True(t, err.Is(ErrMissingConfig))
		assert.True(t, IsConfigError(err))
		assert.False(t, IsConfigError(errors.New("other")))
	})
}

func TestGenerationError(t *testing.T) {
	t.Run("Error message with all fields", func(t *testing.T) {
		cause := errors.New("disk full")
		err := NewGenerationError("write", "go/user.go", "cannot write", cause)

		assert.Equal(t, "schemac: generation error in phase write (file: go/user.go): cannot write: disk full", err.Error())
		assert.Equal(t, cause, err.Unwrap())
		assert.True(t, errors.Is(err, cause))
		assert.True(t, errors.Is(err, ErrGenerationFailed))
		assert.True(t, IsGenerationError(err))
	})

	t.Run("Error message with phase only", func(t *testing.T) {
		err := &GenerationError{Phase: "bundle"}
		assert.Equal(t, "schemac: generation error in phase bundle", err.Error())
	})
}
