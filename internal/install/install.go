// Package install copies built plugin assemblies into the local server's
// plugin folder.
//
// A compiled assembly is the plugin itself when its base name matches a
// project file (*.csproj) found under the working directory; every other
// assembly in the build output is treated as a dependency.
package install

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	experrors "github.com/jakenelson/expel/internal/errors"
	"github.com/jakenelson/expel/internal/log"
)

const (
	projectExt  = ".csproj"
	assemblyExt = ".dll"
)

// Layout holds the directories the installer reads and writes.
type Layout struct {
	WorkDir       string // searched for project files
	CacheDir      string // skipped while searching
	BuildDir      string // build output, must exist
	PluginDir     string // plugins are copied here
	DependencyDir string // dependencies are copied here
}

// NewLayout returns the standard layout below workDir.
func NewLayout(workDir, cacheDir string) Layout {
	cache := filepath.Join(workDir, filepath.FromSlash(cacheDir))
	plugins := filepath.Join(cache, "server-config", "EXILED", "Plugins")
	return Layout{
		WorkDir:       workDir,
		CacheDir:      cache,
		BuildDir:      filepath.Join(cache, "build-bin", "Release"),
		PluginDir:     plugins,
		DependencyDir: filepath.Join(plugins, "dependencies"),
	}
}

// Result lists the files that were copied.
type Result struct {
	Plugins      []string
	Dependencies []string
}

// DiscoverProjects returns the base names of every project file under root.
// Directories below root that cannot be read are skipped.
func DiscoverProjects(root, skip string) (map[string]bool, error) {
	projects := make(map[string]bool)
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			log.WithError(err).WithField("path", path).Debug("skipping unreadable path")
			return nil
		}
		if d.IsDir() {
			if skip != "" && path == skip {
				return filepath.SkipDir
			}
			return nil
		}
		if filepath.Ext(d.Name()) == projectExt {
			projects[stem(d.Name())] = true
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to search for project files in %s: %w", root, err)
	}
	return projects, nil
}

// Classify splits assembly paths into plugins and dependencies.
func Classify(assemblies []string, projects map[string]bool) (plugins, deps []string) {
	for _, a := range assemblies {
		if projects[stem(filepath.Base(a))] {
			plugins = append(plugins, a)
		} else {
			deps = append(deps, a)
		}
	}
	return plugins, deps
}

// Run copies the build output into the plugin folders and reports each
// decision to out. Nothing is copied when the build output is missing.
func Run(layout Layout, out io.Writer) (*Result, error) {
	info, err := os.Stat(layout.BuildDir)
	if err != nil || !info.IsDir() {
		return nil, experrors.NewMissingPrerequisite(
			fmt.Sprintf("build output %s not found, run 'expel build' first", layout.BuildDir), err)
	}

	projects, err := DiscoverProjects(layout.WorkDir, layout.CacheDir)
	if err != nil {
		return nil, err
	}
	log.WithField("projects", len(projects)).Debug("discovered project files")

	assemblies, err := filepath.Glob(filepath.Join(layout.BuildDir, "*"+assemblyExt))
	if err != nil {
		return nil, fmt.Errorf("failed to list build output: %w", err)
	}
	sort.Strings(assemblies)

	plugins, deps := Classify(assemblies, projects)

	for _, dir := range []string{layout.PluginDir, layout.DependencyDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}

	result := &Result{}
	for _, p := range plugins {
		fmt.Fprintf(out, "%s is a plugin\n", p)
		dst := filepath.Join(layout.PluginDir, filepath.Base(p))
		if err := copyFile(p, dst); err != nil {
			return result, experrors.NewChildProcess(fmt.Sprintf("failed to copy %s", p), err)
		}
		log.Debugf("copied %s to %s", p, dst)
		result.Plugins = append(result.Plugins, dst)
	}
	for _, d := range deps {
		fmt.Fprintf(out, "%s is a dependency\n", d)
		dst := filepath.Join(layout.DependencyDir, filepath.Base(d))
		if err := copyFile(d, dst); err != nil {
			return result, experrors.NewChildProcess(fmt.Sprintf("failed to copy %s", d), err)
		}
		log.Debugf("copied %s to %s", d, dst)
		result.Dependencies = append(result.Dependencies, dst)
	}

	return result, nil
}

// copyFile copies a single file preserving permissions.
func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return err
	}

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

func stem(name string) string {
	return strings.TrimSuffix(name, filepath.Ext(name))
}
