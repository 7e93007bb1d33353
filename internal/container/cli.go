package container

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	experrors "github.com/jakenelson/expel/internal/errors"
	"github.com/jakenelson/expel/internal/log"
	"github.com/moby/term"
)

// CLI drives the docker command-line client instead of the Engine API.
type CLI struct {
	Binary string
	Host   string

	// isTerminal reports whether stdin is a terminal; replaced in tests.
	isTerminal func() bool
}

// NewCLI returns a CLI engine talking to host, or to the docker default when
// host is empty.
func NewCLI(host string) *CLI {
	return &CLI{
		Binary:     "docker",
		Host:       host,
		isTerminal: func() bool { return term.IsTerminal(os.Stdin.Fd()) },
	}
}

// RunArgs assembles the docker arguments for opts, without the binary.
func (c *CLI) RunArgs(opts RunOptions) []string {
	args := c.globalArgs()
	args = append(args, "run", "--rm")
	if opts.Interactive {
		args = append(args, "-i")
		if c.isTerminal() {
			args = append(args, "-t")
		}
	}
	for _, m := range opts.Mounts {
		args = append(args, "--mount", m.Arg())
	}
	for _, p := range opts.Ports {
		args = append(args, "--publish", p)
	}
	if opts.MemoryLimit != "" {
		args = append(args, "--memory", opts.MemoryLimit)
	}

	// --entrypoint takes a single executable, the rest becomes the command
	var cmd []string
	if len(opts.Entrypoint) > 0 {
		args = append(args, "--entrypoint", opts.Entrypoint[0])
		cmd = append(cmd, opts.Entrypoint[1:]...)
	}
	cmd = append(cmd, opts.Args...)

	args = append(args, opts.Image)
	return append(args, cmd...)
}

func (c *CLI) globalArgs() []string {
	if c.Host == "" {
		return nil
	}
	return []string{"-H", c.Host}
}

// Run invokes docker run and waits for it to finish.
func (c *CLI) Run(ctx context.Context, opts RunOptions) error {
	stdout, stderr := outputs(opts)
	var stdin io.Reader
	if opts.Interactive {
		stdin = os.Stdin
	}
	return c.exec(ctx, c.RunArgs(opts), stdin, stdout, stderr)
}

// SystemInfo passes docker system info through to w.
func (c *CLI) SystemInfo(ctx context.Context, w io.Writer) error {
	args := append(c.globalArgs(), "system", "info")
	return c.exec(ctx, args, nil, w, w)
}

// ListImages passes docker images through to w.
func (c *CLI) ListImages(ctx context.Context, w io.Writer, reference string) error {
	args := append(c.globalArgs(), "images", reference)
	return c.exec(ctx, args, nil, w, w)
}

// Close is a no-op; the CLI engine holds no connection.
func (c *CLI) Close() error {
	return nil
}

func (c *CLI) exec(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	log.WithField("command", CommandLine(c.Binary, args)).Debug("running docker")

	cmd := exec.CommandContext(ctx, c.Binary, args...)
	cmd.Stdin = stdin
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return experrors.NewChildProcess(fmt.Sprintf("%s %s exited with code %d", c.Binary, firstCommand(args), exitErr.ExitCode()), nil)
		}
		if errors.Is(err, exec.ErrNotFound) {
			return experrors.NewMissingPrerequisite(fmt.Sprintf("%s not found in PATH", c.Binary), err)
		}
		return experrors.NewChildProcess(fmt.Sprintf("failed to run %s", c.Binary), err)
	}
	return nil
}

// firstCommand returns the docker subcommand in args, skipping -H host.
func firstCommand(args []string) string {
	for i := 0; i < len(args); i++ {
		if args[i] == "-H" {
			i++
			continue
		}
		return args[i]
	}
	return ""
}

// DryRun prints the docker commands an engine would run instead of running them.
type DryRun struct {
	CLI *CLI
	Out io.Writer
}

func (d *DryRun) Run(_ context.Context, opts RunOptions) error {
	_, err := fmt.Fprintln(d.Out, CommandLine(d.CLI.Binary, d.CLI.RunArgs(opts)))
	return err
}

func (d *DryRun) SystemInfo(_ context.Context, w io.Writer) error {
	_, err := fmt.Fprintln(w, CommandLine(d.CLI.Binary, append(d.CLI.globalArgs(), "system", "info")))
	return err
}

func (d *DryRun) ListImages(_ context.Context, w io.Writer, reference string) error {
	_, err := fmt.Fprintln(w, CommandLine(d.CLI.Binary, append(d.CLI.globalArgs(), "images", reference)))
	return err
}

func (d *DryRun) Close() error {
	return nil
}

// CommandLine renders a command as a POSIX shell would need it typed.
func CommandLine(binary string, args []string) string {
	parts := make([]string, 0, len(args)+1)
	parts = append(parts, quote(binary))
	for _, a := range args {
		parts = append(parts, quote(a))
	}
	return strings.Join(parts, " ")
}

func quote(s string) string {
	if s == "" {
		return "''"
	}
	safe := true
	for _, r := range s {
		if !isShellSafe(r) {
			safe = false
			break
		}
	}
	if safe {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

func isShellSafe(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return true
	}
	return strings.ContainsRune("-_./:=,@%+", r)
}
