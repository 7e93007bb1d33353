package container

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	containerTypes "github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/filters"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/api/types/mount"
	"github.com/docker/docker/api/types/strslice"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/stdcopy"
	"github.com/docker/go-connections/nat"
	"github.com/docker/go-units"
	experrors "github.com/jakenelson/expel/internal/errors"
	"github.com/jakenelson/expel/internal/log"
	"github.com/moby/term"
)

// Runner manages Docker container operations through the Engine API
type Runner struct {
	client *client.Client
}

// NewRunner creates a new container runner. An empty host falls back to
// DOCKER_HOST and the platform default socket.
func NewRunner(host string) (*Runner, error) {
	opts := []client.Opt{client.FromEnv, client.WithAPIVersionNegotiation()}
	if host != "" {
		opts = append(opts, client.WithHost(host))
	}

	cli, err := client.NewClientWithOpts(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Docker client: %w", err)
	}

	// Verify connection
	if _, err := cli.Ping(context.Background()); err != nil {
		cli.Close()
		return nil, fmt.Errorf("failed to connect to Docker: %w", err)
	}

	return &Runner{client: cli}, nil
}

// Close closes the Docker client
func (r *Runner) Close() error {
	return r.client.Close()
}

// Run creates and runs a container with the given options and removes it
// once it exits. A non-zero exit status is returned as a child-process error.
func (r *Runner) Run(ctx context.Context, opts RunOptions) error {
	stdout, stderr := outputs(opts)

	var mounts []mount.Mount
	for _, m := range opts.Mounts {
		mounts = append(mounts, mount.Mount{
			Type:     mount.TypeBind,
			Source:   m.Source,
			Target:   m.Target,
			ReadOnly: m.ReadOnly,
		})
	}

	exposed, bindings, err := nat.ParsePortSpecs(opts.Ports)
	if err != nil {
		return fmt.Errorf("invalid port specification %v: %w", opts.Ports, err)
	}

	var memoryLimit int64
	if opts.MemoryLimit != "" {
		limit, err := units.RAMInBytes(opts.MemoryLimit)
		if err != nil {
			return fmt.Errorf("invalid memory limit %q: %w", opts.MemoryLimit, err)
		}
		memoryLimit = limit
	}

	isTTY := opts.Interactive && term.IsTerminal(os.Stdin.Fd())

	// For non-TTY mode, don't attach stdout/stderr - use ContainerLogs instead
	containerConfig := &containerTypes.Config{
		Image:        opts.Image,
		Cmd:          strslice.StrSlice(opts.Args),
		ExposedPorts: exposed,
		Tty:          isTTY,
		OpenStdin:    opts.Interactive,
		AttachStdin:  opts.Interactive,
		AttachStdout: isTTY,
		AttachStderr: isTTY,
	}
	if len(opts.Entrypoint) > 0 {
		containerConfig.Entrypoint = strslice.StrSlice(opts.Entrypoint)
	}

	hostConfig := &containerTypes.HostConfig{
		Mounts:       mounts,
		PortBindings: bindings,
		AutoRemove:   false, // removed in the deferred cleanup below
		Resources: containerTypes.Resources{
			Memory: memoryLimit,
		},
	}

	resp, err := r.client.ContainerCreate(ctx, containerConfig, hostConfig, nil, nil, "")
	if err != nil {
		if client.IsErrNotFound(err) || strings.Contains(err.Error(), "No such image") {
			return experrors.NewMissingPrerequisite(fmt.Sprintf("image %q not found; build or pull the expel images first", opts.Image), nil)
		}
		return experrors.NewChildProcess("failed to create container", err)
	}
	containerID := resp.ID
	log.WithFields(map[string]interface{}{
		"container": shortID(containerID),
		"image":     opts.Image,
		"tty":       isTTY,
	}).Debug("container created")

	defer func() {
		_ = r.client.ContainerRemove(context.Background(), containerID, containerTypes.RemoveOptions{
			Force: true,
		})
	}()

	outputDone := make(chan error, 1)
	var attachResp *attachedStreams
	if opts.Interactive {
		hijacked, err := r.client.ContainerAttach(ctx, containerID, containerTypes.AttachOptions{
			Stream: true,
			Stdin:  true,
			Stdout: isTTY,
			Stderr: isTTY,
		})
		if err != nil {
			return experrors.NewChildProcess("failed to attach to container", err)
		}
		defer hijacked.Close()
		attachResp = &attachedStreams{reader: hijacked.Reader, conn: hijacked.Conn, closeWrite: hijacked.CloseWrite}

		if isTTY {
			go func() {
				_, err := io.Copy(stdout, attachResp.reader)
				outputDone <- err
			}()
		}
	}

	if err := r.client.ContainerStart(ctx, containerID, containerTypes.StartOptions{}); err != nil {
		return experrors.NewChildProcess("failed to start container", err)
	}

	// Output goes to Docker's log driver when no TTY is attached
	if !isTTY {
		go func() {
			logs, err := r.client.ContainerLogs(ctx, containerID, containerTypes.LogsOptions{
				ShowStdout: true,
				ShowStderr: true,
				Follow:     true,
			})
			if err != nil {
				outputDone <- err
				return
			}
			defer logs.Close()
			_, err = stdcopy.StdCopy(stdout, stderr, logs)
			outputDone <- err
		}()
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	if isTTY {
		r.resizeTty(runCtx, containerID)

		oldState, err := term.SetRawTerminal(os.Stdin.Fd())
		if err != nil {
			return fmt.Errorf("failed to set raw terminal: %w", err)
		}
		defer term.RestoreTerminal(os.Stdin.Fd(), oldState)

		go r.monitorTtySize(runCtx, containerID)
	}

	if attachResp != nil {
		go attachResp.pumpStdin(isTTY, cancel)
	}

	statusCh, errCh := r.client.ContainerWait(runCtx, containerID, containerTypes.WaitConditionNotRunning)
	select {
	case err := <-errCh:
		if runCtx.Err() != nil {
			r.stop(containerID)
			return runCtx.Err()
		}
		<-outputDone
		return experrors.NewChildProcess("error waiting for container", err)
	case status := <-statusCh:
		<-outputDone
		if status.StatusCode != 0 {
			return experrors.NewChildProcess(fmt.Sprintf("container %s exited with code %d", opts.Image, status.StatusCode), nil)
		}
	case <-runCtx.Done():
		// Ctrl+C or signal, stop the container
		r.stop(containerID)
		return runCtx.Err()
	}

	return nil
}

func (r *Runner) stop(containerID string) {
	timeout := 5
	_ = r.client.ContainerStop(context.Background(), containerID, containerTypes.StopOptions{Timeout: &timeout})
}

// attachedStreams is the writable half of an attached container.
type attachedStreams struct {
	reader     io.Reader
	conn       io.Writer
	closeWrite func() error
}

// pumpStdin copies stdin to the container. In raw mode Ctrl+C arrives as a
// byte instead of a signal, so it cancels the run.
func (a *attachedStreams) pumpStdin(isTTY bool, cancel context.CancelFunc) {
	buf := make([]byte, 32*1024)
	for {
		n, err := os.Stdin.Read(buf)
		if err != nil {
			break
		}
		if isTTY {
			for i := 0; i < n; i++ {
				if buf[i] == 0x03 {
					cancel()
					return
				}
			}
		}
		if _, err := a.conn.Write(buf[:n]); err != nil {
			break
		}
	}
	a.closeWrite()
}

// resizeTty resizes the container TTY to match the current terminal size
func (r *Runner) resizeTty(ctx context.Context, containerID string) {
	winsize, err := term.GetWinsize(os.Stdout.Fd())
	if err != nil {
		return
	}
	r.client.ContainerResize(ctx, containerID, containerTypes.ResizeOptions{
		Height: uint(winsize.Height),
		Width:  uint(winsize.Width),
	})
}

// monitorTtySize monitors terminal size changes and resizes the container TTY
func (r *Runner) monitorTtySize(ctx context.Context, containerID string) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGWINCH)
	defer signal.Stop(sigCh)

	for {
		select {
		case <-sigCh:
			r.resizeTty(ctx, containerID)
		case <-ctx.Done():
			return
		}
	}
}

// SystemInfo writes the engine's system information to w.
func (r *Runner) SystemInfo(ctx context.Context, w io.Writer) error {
	info, err := r.client.Info(ctx)
	if err != nil {
		return experrors.NewChildProcess("failed to query system info", err)
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, " Name:\t%s\n", info.Name)
	fmt.Fprintf(tw, " Server Version:\t%s\n", info.ServerVersion)
	fmt.Fprintf(tw, " Operating System:\t%s\n", info.OperatingSystem)
	fmt.Fprintf(tw, " OSType:\t%s\n", info.OSType)
	fmt.Fprintf(tw, " Architecture:\t%s\n", info.Architecture)
	fmt.Fprintf(tw, " Kernel Version:\t%s\n", info.KernelVersion)
	fmt.Fprintf(tw, " Storage Driver:\t%s\n", info.Driver)
	fmt.Fprintf(tw, " CPUs:\t%d\n", info.NCPU)
	fmt.Fprintf(tw, " Total Memory:\t%s\n", units.BytesSize(float64(info.MemTotal)))
	fmt.Fprintf(tw, " Containers:\t%d (%d running)\n", info.Containers, info.ContainersRunning)
	fmt.Fprintf(tw, " Images:\t%d\n", info.Images)
	fmt.Fprintf(tw, " Docker Root Dir:\t%s\n", info.DockerRootDir)
	return tw.Flush()
}

// ListImages writes the local images matching reference to w.
func (r *Runner) ListImages(ctx context.Context, w io.Writer, reference string) error {
	images, err := r.client.ImageList(ctx, image.ListOptions{
		Filters: filters.NewArgs(filters.Arg("reference", reference)),
	})
	if err != nil {
		return experrors.NewChildProcess("failed to list images", err)
	}

	tw := tabwriter.NewWriter(w, 0, 0, 3, ' ', 0)
	fmt.Fprintln(tw, "REPOSITORY:TAG\tIMAGE ID\tCREATED\tSIZE")
	for _, img := range images {
		created := units.HumanDuration(time.Since(time.Unix(img.Created, 0))) + " ago"
		size := units.HumanSizeWithPrecision(float64(img.Size), 3)
		tags := img.RepoTags
		if len(tags) == 0 {
			tags = []string{"<none>:<none>"}
		}
		for _, tag := range tags {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", tag, shortID(strings.TrimPrefix(img.ID, "sha256:")), created, size)
		}
	}
	return tw.Flush()
}

func outputs(opts RunOptions) (io.Writer, io.Writer) {
	stdout, stderr := opts.Stdout, opts.Stderr
	if stdout == nil {
		stdout = os.Stdout
	}
	if stderr == nil {
		stderr = os.Stderr
	}
	return stdout, stderr
}

func shortID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}
