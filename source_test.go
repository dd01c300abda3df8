package compgraph

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sourceTree writes a small project with files that must be skipped.
func sourceTree(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	for name, content := range map[string]string{
		"src/App.tsx":                 "export const App = () => <div />;\n",
		"src/shared/util.ts":          "export const util = () => 1;\n",
		"src/Legacy.JSX":              "export function Legacy() { return null; }\n",
		"src/index.js":                "import App from './App';\n",
		"src/styles.css":              "div { color: red; }\n",
		"README.md":                   "# app\n",
		"node_modules/react/index.js": "module.exports = {};\n",
		"dist/bundle.js":              "var a = 1;\n",
		"build/out.js":                "var b = 2;\n",
		".cache/tmp.js":               "var c = 3;\n",
	} {
		writeSourceFile(t, root, name, content)
	}
	return root
}

func TestListSourceFiles_WalkSkipsIgnoredDirs(t *testing.T) {
	root := sourceTree(t)

	paths, err := ListSourceFiles(root, SourceOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{
		"src/App.tsx",
		"src/Legacy.JSX",
		"src/index.js",
		"src/shared/util.ts",
	}, paths)
}

func TestListSourceFiles_Extensions(t *testing.T) {
	root := sourceTree(t)

	paths, err := ListSourceFiles(root, SourceOptions{Extensions: []string{"ts", ".TSX"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"src/App.tsx", "src/shared/util.ts"}, paths)
}

func TestListSourceFiles_MaxFiles(t *testing.T) {
	root := sourceTree(t)

	paths, err := ListSourceFiles(root, SourceOptions{MaxFiles: 2})
	require.NoError(t, err)
	assert.Equal(t, []string{"src/App.tsx", "src/Legacy.JSX"}, paths)

	paths, err = ListSourceFiles(root, SourceOptions{MaxFiles: 0})
	require.NoError(t, err)
	assert.Len(t, paths, 4)
}

func TestListSourceFiles_MissingRoot(t *testing.T) {
	_, err := ListSourceFiles(filepath.Join(t.TempDir(), "nope"), SourceOptions{})
	require.Error(t, err)
}

func TestLoadSourceFiles(t *testing.T) {
	root := sourceTree(t)
	writeSourceFile(t, root, "src/empty.js", "")
	writeSourceFile(t, root, "src/blank.ts", "  \n\n")

	files, err := LoadSourceFiles(root, []string{"src/shared/util.ts", "src/empty.js", "src/blank.ts", "src/App.tsx"})
	require.NoError(t, err)
	require.Len(t, files, 2)

	assert.Equal(t, "src/shared/util.ts", files[0].Path)
	assert.Equal(t, "util.ts", files[0].Name)
	assert.Equal(t, "export const util = () => 1;\n", files[0].Content)
	assert.Equal(t, "src/App.tsx", files[1].Path)
	assert.Equal(t, "App.tsx", files[1].Name)
}

func TestLoadSourceFiles_AggregatesReadErrors(t *testing.T) {
	root := sourceTree(t)

	_, err := LoadSourceFiles(root, []string{"src/App.tsx", "src/missing.js", "src/gone.ts"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "had 2 error(s)")
	assert.ErrorIs(t, err, os.ErrNotExist)
}
