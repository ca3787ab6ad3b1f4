package common

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCleanPath(t *testing.T) {
	t.Run("rejects traversal", func(t *testing.T) {
		_, err := CleanPath("../../etc/passwd")
		assert.Error(t, err)
	})

	t.Run("makes relative paths absolute", func(t *testing.T) {
		cleaned, err := CleanPath("models/stg_users.sql")
		require.NoError(t, err)
		assert.True(t, filepath.IsAbs(cleaned))
	})

	t.Run("accepts absolute path", func(t *testing.T) {
		cleaned, err := CleanPath("/tmp/models/stg_users.sql")
		require.NoError(t, err)
		assert.Equal(t, "/tmp/models/stg_users.sql", cleaned)
	})
}

func TestValidatePath(t *testing.T) {
	t.Run("inside base", func(t *testing.T) {
		_, err := ValidatePath("/srv/mart/models/a.sql", "/srv/mart")
		assert.NoError(t, err)
	})

	t.Run("outside base", func(t *testing.T) {
		_, err := ValidatePath("/etc/passwd", "/srv/mart")
		assert.Error(t, err)
	})

	t.Run("sibling prefix does not pass", func(t *testing.T) {
		_, err := ValidatePath("/srv/martbackup/a.sql", "/srv/mart")
		assert.Error(t, err)
	})
}
