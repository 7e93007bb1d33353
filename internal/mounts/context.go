// Package mounts resolves the bind mounts expel hands to the container engine.
//
// A mount source is declared relative to the working directory. Resolving it
// yields two paths: the local path this process creates, and the advertised
// path the engine mounts. They only differ when expel itself runs inside a
// container: the engine mounts sibling containers from the host filesystem,
// so the advertised path must stay the host path while directories are
// created under the working directory's in-container location.
package mounts

import (
	"fmt"
	"path"
	"path/filepath"
	"runtime"
	"strings"
)

// ExecContext says where this process runs relative to the container engine.
type ExecContext int

const (
	// NativeHost means expel shares a filesystem with the engine host.
	NativeHost ExecContext = iota
	// NestedContainer means expel runs inside a container and launches siblings.
	NestedContainer
)

func (e ExecContext) String() string {
	if e == NestedContainer {
		return "nested-container"
	}
	return "native-host"
}

// ExecContextFor selects the execution context from the inside-container flag.
func ExecContextFor(insideContainer bool) ExecContext {
	if insideContainer {
		return NestedContainer
	}
	return NativeHost
}

// PathStyle selects the separator and root rules of the advertised paths.
type PathStyle int

const (
	Posix PathStyle = iota
	Windows
)

func (s PathStyle) String() string {
	if s == Windows {
		return "windows"
	}
	return "posix"
}

// DetectStyle returns Windows for drive-letter and backslash UNC paths, else
// Posix. "//host/share" is a valid POSIX path and stays Posix.
func DetectStyle(p string) PathStyle {
	if strings.HasPrefix(p, "//") {
		return Posix
	}
	if windowsVolumeLen(p) > 0 {
		return Windows
	}
	return Posix
}

// hostOS is the operating system local paths follow; replaced in tests.
var hostOS = runtime.GOOS

// Context is the working directory as seen by the engine and by this process.
// It is built once at startup and never modified.
type Context struct {
	exec      ExecContext
	style     PathStyle
	workDir   string // advertised working directory, in style notation
	localRoot string // where this process sees the working directory
}

// NewContext validates workDir and builds the resolution context.
// insidePath is the working directory's location inside the expel image and
// is only used for NestedContainer.
func NewContext(workDir string, exec ExecContext, style PathStyle, insidePath string) (*Context, error) {
	if workDir == "" {
		return nil, fmt.Errorf("empty working directory")
	}

	c := &Context{exec: exec, style: style}

	switch style {
	case Windows:
		if windowsVolumeLen(workDir) == 0 {
			return nil, fmt.Errorf("working directory %q is not an absolute Windows path", workDir)
		}
		c.workDir = windowsJoin(workDir)
	default:
		if !path.IsAbs(workDir) {
			return nil, fmt.Errorf("working directory %q is not absolute", workDir)
		}
		c.workDir = path.Clean(workDir)
	}

	switch exec {
	case NestedContainer:
		if insidePath == "" || !filepath.IsAbs(insidePath) {
			return nil, fmt.Errorf("in-container working directory %q is not absolute", insidePath)
		}
		c.localRoot = filepath.Clean(insidePath)
	default:
		if style == Windows && hostOS != "windows" {
			return nil, fmt.Errorf("windows working directory %q can only be used from a container or a Windows host", workDir)
		}
		c.localRoot = c.workDir
	}

	return c, nil
}

// Exec returns the execution context.
func (c *Context) Exec() ExecContext { return c.exec }

// Style returns the path style of advertised paths.
func (c *Context) Style() PathStyle { return c.style }

// WorkDir returns the working directory as the engine host sees it.
func (c *Context) WorkDir() string { return c.workDir }

// LocalRoot returns the working directory as this process sees it.
func (c *Context) LocalRoot() string { return c.localRoot }

// Resolve maps a path relative to the working directory to the local path to
// create and the path to advertise to the engine. For NativeHost both are
// equal; for NestedContainer they differ only in the working-directory prefix.
func (c *Context) Resolve(rel string) (local, advertised string) {
	advertised = c.advertise(rel)
	if c.exec == NestedContainer {
		return filepath.Join(c.localRoot, filepath.FromSlash(rel)), advertised
	}
	return advertised, advertised
}

func (c *Context) advertise(rel string) string {
	if c.style == Windows {
		return windowsJoin(c.workDir, rel)
	}
	return path.Join(c.workDir, filepath.ToSlash(rel))
}

// windowsVolumeLen returns the length of the root of an absolute Windows
// path: "C:\" style drive roots or "\\server\share" UNC roots. It returns 0
// for anything else.
func windowsVolumeLen(p string) int {
	if len(p) >= 3 && isLetter(p[0]) && p[1] == ':' && isWindowsSep(p[2]) {
		return 2
	}
	if len(p) >= 5 && isWindowsSep(p[0]) && isWindowsSep(p[1]) && !isWindowsSep(p[2]) {
		// \\server\share
		rest := p[2:]
		i := strings.IndexAny(rest, `\/`)
		if i <= 0 || i == len(rest)-1 {
			return 0
		}
		j := strings.IndexAny(rest[i+1:], `\/`)
		if j == 0 {
			return 0
		}
		if j < 0 {
			return len(p)
		}
		return 2 + i + 1 + j
	}
	return 0
}

// windowsJoin joins elem onto the absolute Windows path base with `\`,
// cleaning "." and ".." without climbing above the volume root.
func windowsJoin(base string, elem ...string) string {
	n := windowsVolumeLen(base)
	vol := base[:n]
	if strings.HasPrefix(vol, `\\`) || strings.HasPrefix(vol, "//") {
		vol = `\\` + strings.ReplaceAll(vol[2:], "/", `\`)
	} else {
		vol = strings.ToUpper(vol[:1]) + vol[1:]
	}

	var parts []string
	for _, s := range append([]string{base[n:]}, elem...) {
		for _, p := range strings.FieldsFunc(s, func(r rune) bool { return r == '\\' || r == '/' }) {
			switch p {
			case ".":
			case "..":
				if len(parts) > 0 {
					parts = parts[:len(parts)-1]
				}
			default:
				parts = append(parts, p)
			}
		}
	}

	if len(parts) == 0 {
		return vol + `\`
	}
	return vol + `\` + strings.Join(parts, `\`)
}

func isLetter(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}

func isWindowsSep(b byte) bool {
	return b == '\\' || b == '/'
}
