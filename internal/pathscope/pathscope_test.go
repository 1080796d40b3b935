package pathscope

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/allisson/warden/internal/errors"
)

func TestResolve(t *testing.T) {
	root := t.TempDir()

	t.Run("simple relative path", func(t *testing.T) {
		resolved, err := Resolve(root, "src/main.py", false)
		require.NoError(t, err)
		assert.Equal(t, "src/main.py", resolved)
	})

	t.Run("normalizes dot segments inside the root", func(t *testing.T) {
		resolved, err := Resolve(root, "a/b/../../c", false)
		require.NoError(t, err)
		assert.Equal(t, "c", resolved)
	})

	t.Run("rejects escape via parent segments", func(t *testing.T) {
		_, err := Resolve(root, "../../etc/passwd", false)
		assert.ErrorIs(t, err, ErrOutsideRoot)
	})

	t.Run("rejects escape hidden behind a prefix", func(t *testing.T) {
		_, err := Resolve(root, "src/../../outside", false)
		assert.ErrorIs(t, err, ErrOutsideRoot)
	})

	t.Run("rejects empty path", func(t *testing.T) {
		_, err := Resolve(root, "", false)
		assert.ErrorIs(t, err, ErrEmptyPath)
	})

	t.Run("rejects absolute path without fs.absolute", func(t *testing.T) {
		_, err := Resolve(root, "/etc/passwd", false)
		assert.ErrorIs(t, err, ErrAbsolutePath)
		assert.True(t, apperrors.Is(err, apperrors.ErrForbidden))
	})

	t.Run("allows absolute path when permitted", func(t *testing.T) {
		resolved, err := Resolve(root, "/tmp/backups/../backups/db.sql", true)
		require.NoError(t, err)
		assert.Equal(t, "/tmp/backups/db.sql", resolved)
	})

	t.Run("symlink escaping the root fails", func(t *testing.T) {
		if runtime.GOOS == "windows" {
			t.Skip("symlink test requires unix")
		}
		outside := t.TempDir()
		link := filepath.Join(root, "sneaky")
		require.NoError(t, os.Symlink(outside, link))
		defer os.Remove(link)

		_, err := Resolve(root, "sneaky/data.txt", false)
		assert.ErrorIs(t, err, ErrOutsideRoot)
	})

	t.Run("symlink staying inside the root succeeds", func(t *testing.T) {
		if runtime.GOOS == "windows" {
			t.Skip("symlink test requires unix")
		}
		target := filepath.Join(root, "real")
		require.NoError(t, os.Mkdir(target, 0o755))
		link := filepath.Join(root, "alias")
		require.NoError(t, os.Symlink(target, link))
		defer func() {
			os.Remove(link)
			os.Remove(target)
		}()

		resolved, err := Resolve(root, "alias/file.txt", false)
		require.NoError(t, err)
		assert.Equal(t, "real/file.txt", resolved)
	})

	t.Run("nonexistent target resolves lexically", func(t *testing.T) {
		resolved, err := Resolve(root, "build/out/app.bin", false)
		require.NoError(t, err)
		assert.Equal(t, "build/out/app.bin", resolved)
	})
}

func TestMatch(t *testing.T) {
	tests := []struct {
		name     string
		path     string
		patterns []string
		want     bool
	}{
		{"empty pattern list never matches", "src/main.py", nil, false},
		{"exact match", "src/main.py", []string{"src/main.py"}, true},
		{"double star matches any depth", "src/pkg/util/io.py", []string{"src/**"}, true},
		{"double star matches direct child", "src/main.py", []string{"src/**"}, true},
		{"double star does not cross roots", "docs/readme.md", []string{"src/**"}, false},
		{"single star matches one segment", "src/main.py", []string{"src/*"}, true},
		{"single star does not descend", "src/pkg/main.py", []string{"src/*"}, false},
		{"in-segment glob", "src/main.py", []string{"src/*.py"}, true},
		{"in-segment glob mismatch", "src/main.go", []string{"src/*.py"}, false},
		{"leading double star", "a/b/c/test_x.py", []string{"**/test_*.py"}, true},
		{"universal pattern", "anything/at/all", []string{"**/*"}, true},
		{"first match wins across patterns", "tmp/x", []string{"docs/**", "tmp/**"}, true},
		{"absolute pattern matches absolute path", "/tmp/backups/db.sql", []string{"/tmp/backups/**"}, true},
		{"absolute pattern does not match relative path", "tmp/backups/db.sql", []string{"/tmp/backups/**"}, false},
		{"relative pattern does not match absolute path", "/src/main.py", []string{"src/**"}, false},
		{"empty path never matches", "", []string{"**"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Match(tt.path, tt.patterns))
		})
	}
}
