package install

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	experrors "github.com/jakenelson/expel/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func TestRunSplitsPluginsAndDependencies(t *testing.T) {
	workDir := t.TempDir()
	layout := NewLayout(workDir, ".expel")

	writeFile(t, filepath.Join(workDir, "Foo", "Foo.csproj"), "<Project />")
	writeFile(t, filepath.Join(layout.BuildDir, "Foo.dll"), "foo")
	writeFile(t, filepath.Join(layout.BuildDir, "Bar.dll"), "bar")
	writeFile(t, filepath.Join(layout.BuildDir, "Foo.pdb"), "symbols")

	var out bytes.Buffer
	result, err := Run(layout, &out)
	require.NoError(t, err)

	assert.Equal(t, []string{filepath.Join(layout.PluginDir, "Foo.dll")}, result.Plugins)
	assert.Equal(t, []string{filepath.Join(layout.DependencyDir, "Bar.dll")}, result.Dependencies)

	got, err := os.ReadFile(filepath.Join(layout.PluginDir, "Foo.dll"))
	require.NoError(t, err)
	assert.Equal(t, "foo", string(got))
	assert.FileExists(t, filepath.Join(layout.DependencyDir, "Bar.dll"))
	assert.NoFileExists(t, filepath.Join(layout.PluginDir, "Bar.dll"))
	assert.NoFileExists(t, filepath.Join(layout.PluginDir, "Foo.pdb"))

	assert.Contains(t, out.String(), "Foo.dll is a plugin")
	assert.Contains(t, out.String(), "Bar.dll is a dependency")
}

func TestRunMissingBuildOutput(t *testing.T) {
	workDir := t.TempDir()
	layout := NewLayout(workDir, ".expel")
	writeFile(t, filepath.Join(workDir, "Foo.csproj"), "<Project />")

	var out bytes.Buffer
	result, err := Run(layout, &out)

	require.Error(t, err)
	assert.Nil(t, result)
	assert.True(t, experrors.Is(err, experrors.KindMissingPrerequisite))
	assert.Empty(t, out.String())
	assert.NoDirExists(t, layout.PluginDir, "nothing may be created before the prerequisite check")
}

func TestRunOverwritesPreviousInstall(t *testing.T) {
	workDir := t.TempDir()
	layout := NewLayout(workDir, ".expel")

	writeFile(t, filepath.Join(workDir, "Foo.csproj"), "<Project />")
	writeFile(t, filepath.Join(layout.BuildDir, "Foo.dll"), "v2")
	writeFile(t, filepath.Join(layout.PluginDir, "Foo.dll"), "v1-with-longer-content")

	_, err := Run(layout, &bytes.Buffer{})
	require.NoError(t, err)

	got, err := os.ReadFile(filepath.Join(layout.PluginDir, "Foo.dll"))
	require.NoError(t, err)
	assert.Equal(t, "v2", string(got))
}

func TestDiscoverProjectsSkipsCache(t *testing.T) {
	workDir := t.TempDir()
	writeFile(t, filepath.Join(workDir, "src", "Alpha", "Alpha.csproj"), "")
	writeFile(t, filepath.Join(workDir, "Beta.csproj"), "")
	writeFile(t, filepath.Join(workDir, "Gamma.CSPROJ"), "")
	writeFile(t, filepath.Join(workDir, ".expel", "build-obj", "Stale.csproj"), "")
	writeFile(t, filepath.Join(workDir, "README.md"), "")

	projects, err := DiscoverProjects(workDir, filepath.Join(workDir, ".expel"))
	require.NoError(t, err)

	assert.Equal(t, map[string]bool{"Alpha": true, "Beta": true}, projects)
}

func TestDiscoverProjectsSkipsUnreadableDirectories(t *testing.T) {
	workDir := t.TempDir()
	writeFile(t, filepath.Join(workDir, "Alpha.csproj"), "")
	locked := filepath.Join(workDir, "locked")
	writeFile(t, filepath.Join(locked, "Hidden.csproj"), "")
	require.NoError(t, os.Chmod(locked, 0))
	t.Cleanup(func() { os.Chmod(locked, 0755) })

	projects, err := DiscoverProjects(workDir, "")
	require.NoError(t, err)
	assert.True(t, projects["Alpha"])
}

func TestDiscoverProjectsMissingRoot(t *testing.T) {
	_, err := DiscoverProjects(filepath.Join(t.TempDir(), "missing"), "")
	assert.Error(t, err)
}

func TestClassify(t *testing.T) {
	plugins, deps := Classify(
		[]string{"/out/Foo.dll", "/out/Bar.dll", "/out/Baz.dll"},
		map[string]bool{"Foo": true, "Baz": true},
	)

	assert.Equal(t, []string{"/out/Foo.dll", "/out/Baz.dll"}, plugins)
	assert.Equal(t, []string{"/out/Bar.dll"}, deps)
}

func TestNewLayout(t *testing.T) {
	l := NewLayout("/work", ".expel")

	assert.Equal(t, filepath.FromSlash("/work/.expel/build-bin/Release"), l.BuildDir)
	assert.Equal(t, filepath.FromSlash("/work/.expel/server-config/EXILED/Plugins"), l.PluginDir)
	assert.Equal(t, filepath.FromSlash("/work/.expel/server-config/EXILED/Plugins/dependencies"), l.DependencyDir)
}
