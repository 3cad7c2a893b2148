package discovery

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test Plan for Discovery:
// - directory module paths select everything below them (with and without ./ and trailing /)
// - glob module paths are used as-is
// - include patterns restrict file types, "**/" also matches the root
// - ignore patterns exclude files and prune directories
// - the settings directory is never scanned
// - invalid patterns fail at construction

func tree(t *testing.T, files ...string) string {
	t.Helper()
	root := t.TempDir()
	for _, f := range files {
		p := filepath.Join(root, filepath.FromSlash(f))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0755))
		require.NoError(t, os.WriteFile(p, []byte("export {}\n"), 0644))
	}
	return root
}

func TestModulePattern(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in, want string
	}{
		{"./src/orders", "src/orders/**"},
		{"src/orders/", "src/orders/**"},
		{"src/orders", "src/orders/**"},
		{"src/../lib", "lib/**"},
		{".", "**"},
		{"", "**"},
		{"src/*/domain/**", "src/*/domain/**"},
		{"src/{orders,billing}/**", "src/{orders,billing}/**"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ModulePattern(tt.in), tt.in)
	}
}

func TestModuleFiles(t *testing.T) {
	t.Parallel()
	root := tree(t,
		"main.ts",
		"src/orders/orders.controller.ts",
		"src/orders/ui/OrdersPage.tsx",
		"src/orders/types.d.ts",
		"src/orders/README.md",
		"src/orders/node_modules/dep/index.ts",
		"src/billing/billing.service.ts",
		"src/billing/domain/invoice.ts",
		".archextract/cache.ts",
	)

	d, err := New(root, []string{"**/*.ts", "**/*.tsx"}, []string{"**/node_modules/**", "**/*.d.ts"})
	require.NoError(t, err)

	files, err := d.ModuleFiles("./src/orders")
	require.NoError(t, err)
	assert.Equal(t, []string{
		"src/orders/orders.controller.ts",
		"src/orders/ui/OrdersPage.tsx",
	}, files)

	files, err = d.ModuleFiles("src/*/domain/**")
	require.NoError(t, err)
	assert.Equal(t, []string{"src/billing/domain/invoice.ts"}, files)

	files, err = d.ModuleFiles(".")
	require.NoError(t, err)
	assert.Equal(t, []string{
		"main.ts",
		"src/billing/billing.service.ts",
		"src/billing/domain/invoice.ts",
		"src/orders/orders.controller.ts",
		"src/orders/ui/OrdersPage.tsx",
	}, files)

	files, err = d.ModuleFiles("src/shipping")
	require.NoError(t, err)
	assert.Empty(t, files)
	assert.NotNil(t, files)
}

func TestMatch(t *testing.T) {
	t.Parallel()

	d, err := New("/repo", []string{"src/**/*.ts"}, []string{"src/legacy/**"})
	require.NoError(t, err)

	assert.True(t, d.Match("src/a.ts"))
	assert.True(t, d.Match("src/orders/a.ts"))
	assert.False(t, d.Match("src/legacy/a.ts"))
	assert.False(t, d.Match("lib/a.ts"))
	assert.False(t, d.Match("src/a.tsx"))
	assert.False(t, d.Match(".archextract/a.ts"))

	assert.True(t, d.Ignored("src/legacy"))
	assert.True(t, d.Ignored(".archextract"))
	assert.False(t, d.Ignored("src"))
}

func TestNew_InvalidPattern(t *testing.T) {
	t.Parallel()

	_, err := New("/repo", []string{"src/[.ts"}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "src/[.ts")
}
