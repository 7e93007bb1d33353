package container

import (
	"context"
	"io"
	"strings"
)

// Mount represents a resolved bind mount
type Mount struct {
	Source   string // Path as the engine host sees it
	Target   string // Container path
	ReadOnly bool
}

// Arg renders the mount in docker's --mount syntax.
func (m Mount) Arg() string {
	var b strings.Builder
	b.WriteString("type=bind,src=")
	b.WriteString(m.Source)
	b.WriteString(",dst=")
	b.WriteString(m.Target)
	if m.ReadOnly {
		b.WriteString(",readonly")
	}
	return b.String()
}

// RunOptions configures container execution
type RunOptions struct {
	Image      string
	Mounts     []Mount
	Args       []string // appended after the image, passed to its entrypoint
	Entrypoint []string // overrides the image entrypoint when set
	Ports      []string // docker publish specs, e.g. "7777:7777/udp"

	MemoryLimit string // e.g., "4g"

	// Interactive attaches stdin and allocates a TTY when stdin is a terminal.
	Interactive bool

	Stdout io.Writer
	Stderr io.Writer
}

// Engine runs containers and reports on the engine for diagnostics.
type Engine interface {
	Run(ctx context.Context, opts RunOptions) error
	SystemInfo(ctx context.Context, w io.Writer) error
	ListImages(ctx context.Context, w io.Writer, reference string) error
	Close() error
}
