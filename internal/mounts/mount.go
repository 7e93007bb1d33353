package mounts

import (
	"fmt"
	"os"
	"path"

	"github.com/jakenelson/expel/internal/container"
	"github.com/jakenelson/expel/internal/log"
)

// BindMount is a directory shared between the working directory and a
// container. Source is relative to the working directory.
type BindMount struct {
	Source   string
	Target   string
	ReadOnly bool
}

// EnsureSource creates the local source directory if it does not exist.
// The engine refuses to start a container whose bind source is missing.
func (m BindMount) EnsureSource(c *Context) error {
	local, _ := c.Resolve(m.Source)
	if !IsPathInDirectory(local, c.LocalRoot()) {
		return fmt.Errorf("mount source %q escapes the working directory", m.Source)
	}
	if DirExists(local) {
		return nil
	}
	if err := os.MkdirAll(local, 0755); err != nil {
		return fmt.Errorf("failed to create mount source %s: %w", local, err)
	}
	log.WithField("path", local).Debug("created mount source")
	return nil
}

// Resolve returns the mount as the engine should receive it.
func (m BindMount) Resolve(c *Context) container.Mount {
	_, advertised := c.Resolve(m.Source)
	return container.Mount{Source: advertised, Target: m.Target, ReadOnly: m.ReadOnly}
}

// Arg returns the docker --mount argument for m.
func (m BindMount) Arg(c *Context) string {
	return m.Resolve(c).Arg()
}

// Prepare creates every source directory in set and returns the resolved
// mounts. It stops at the first directory it cannot create.
func Prepare(c *Context, set []BindMount) ([]container.Mount, error) {
	resolved := make([]container.Mount, 0, len(set))
	for _, m := range set {
		if err := m.EnsureSource(c); err != nil {
			return nil, err
		}
		r := m.Resolve(c)
		log.WithFields(map[string]interface{}{
			"src":      r.Source,
			"dst":      r.Target,
			"readonly": r.ReadOnly,
			"context":  c.Exec().String(),
		}).Debug("resolved mount")
		resolved = append(resolved, r)
	}
	return resolved, nil
}

// Container paths inside the expel images
const (
	PluginDir       = "/home/build/plugin"
	PluginObjDir    = "/home/build/plugin/obj"
	PluginBinDir    = "/home/build/plugin/bin"
	NugetDir        = "/home/build/.nuget"
	NugetCacheDir   = "/home/build/.local/share/NuGet/"
	ServerConfigDir = "/home/run/.config"
)

// Cache subdirectories, relative to the cache directory
const (
	BuildObj        = "build-obj"
	BuildNuget      = "build-nuget"
	BuildNugetCache = "build-nuget-cache"
	BuildBin        = "build-bin"
	ServerConfig    = "server-config"
)

// RestoreMounts returns the mounts for restoring packages: the project
// read-only, its obj folder and the NuGet caches.
func RestoreMounts(cacheDir string) []BindMount {
	return []BindMount{
		{Source: ".", Target: PluginDir, ReadOnly: true},
		{Source: path.Join(cacheDir, BuildObj), Target: PluginObjDir},
		{Source: path.Join(cacheDir, BuildNuget), Target: NugetDir},
		{Source: path.Join(cacheDir, BuildNugetCache), Target: NugetCacheDir},
	}
}

// BuildMounts returns the restore mounts plus the bin folder.
func BuildMounts(cacheDir string) []BindMount {
	return append(RestoreMounts(cacheDir), BindMount{
		Source: path.Join(cacheDir, BuildBin),
		Target: PluginBinDir,
	})
}

// RunMounts returns the mount holding the server configuration.
func RunMounts(cacheDir string) []BindMount {
	return []BindMount{
		{Source: path.Join(cacheDir, ServerConfig), Target: ServerConfigDir},
	}
}
