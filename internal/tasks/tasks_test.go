package tasks

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jakenelson/expel/internal/config"
	"github.com/jakenelson/expel/internal/container"
	experrors "github.com/jakenelson/expel/internal/errors"
	"github.com/jakenelson/expel/internal/mounts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeEngine struct {
	runs    []container.RunOptions
	runErr  error
	infoErr error
	closed  bool
}

func (f *fakeEngine) Run(_ context.Context, opts container.RunOptions) error {
	f.runs = append(f.runs, opts)
	return f.runErr
}

func (f *fakeEngine) SystemInfo(_ context.Context, w io.Writer) error {
	if f.infoErr != nil {
		return f.infoErr
	}
	_, err := fmt.Fprintln(w, "Server Version: test")
	return err
}

func (f *fakeEngine) ListImages(_ context.Context, w io.Writer, reference string) error {
	_, err := fmt.Fprintf(w, "images %s\n", reference)
	return err
}

func (f *fakeEngine) Close() error {
	f.closed = true
	return nil
}

type harness struct {
	env     *Env
	engine  *fakeEngine
	opened  int
	out     *bytes.Buffer
	workDir string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	workDir := t.TempDir()
	mctx, err := mounts.NewContext(filepath.ToSlash(workDir), mounts.NativeHost, mounts.Posix, config.DefaultInsidePath)
	require.NoError(t, err)

	h := &harness{engine: &fakeEngine{}, out: &bytes.Buffer{}, workDir: workDir}
	h.env = &Env{
		Config:  config.Default(),
		Context: mctx,
		Out:     h.out,
		Version: "test",
		NewEngine: func() (container.Engine, error) {
			h.opened++
			return h.engine, nil
		},
	}
	return h
}

func TestLookupIsExactMatch(t *testing.T) {
	for _, name := range []string{"build", "doctor", "install", "list_tasks", "restore", "run"} {
		task, ok := Lookup(name)
		assert.True(t, ok, name)
		assert.Equal(t, name, task.Name)
	}

	for _, name := range []string{"", "Build", "buil", "build ", "list", "run_server"} {
		_, ok := Lookup(name)
		assert.False(t, ok, "%q must not match", name)
	}
}

func TestRegistryOrder(t *testing.T) {
	assert.Equal(t, []string{"build", "doctor", "install", "list_tasks", "restore", "run"}, Names())
	for i, task := range registry {
		assert.Equal(t, ID(i), task.ID)
	}
}

func TestDispatchUnknownTask(t *testing.T) {
	h := newHarness(t)

	err := Dispatch(context.Background(), h.env, "deploy")

	require.Error(t, err)
	assert.True(t, experrors.Is(err, experrors.KindUnknownTask))
	assert.NotZero(t, experrors.GetExitCode(err))
	assert.Zero(t, h.opened, "no engine may be opened for an unknown task")

	out := h.out.String()
	assert.True(t, strings.HasPrefix(out, "Could not find a task with that name. Try one of the following:\n"))
	for _, task := range registry {
		assert.Contains(t, out, task.Name+": "+task.Description)
	}
}

func TestDispatchListTasks(t *testing.T) {
	h := newHarness(t)

	require.NoError(t, Dispatch(context.Background(), h.env, "list_tasks"))

	lines := strings.Split(strings.TrimRight(h.out.String(), "\n"), "\n")
	require.Len(t, lines, 2+len(registry))
	assert.Equal(t, "EXPEL Tasks:", lines[0])
	assert.Equal(t, "", lines[1])
	assert.Equal(t, "build: Build the plugin", lines[2])
	assert.Zero(t, h.opened)
}

func TestDispatchBuild(t *testing.T) {
	h := newHarness(t)

	require.NoError(t, Dispatch(context.Background(), h.env, "build"))

	require.Len(t, h.engine.runs, 1)
	run := h.engine.runs[0]
	assert.Equal(t, "expel-plugin-build", run.Image)
	assert.Equal(t, BuildArgs, run.Args)
	assert.True(t, run.Interactive)
	require.Len(t, run.Mounts, 5)
	assert.Equal(t, "type=bind,src="+filepath.ToSlash(h.workDir)+",dst=/home/build/plugin,readonly", run.Mounts[0].Arg())
	assert.True(t, h.engine.closed)

	for _, sub := range []string{"build-obj", "build-nuget", "build-nuget-cache", "build-bin"} {
		assert.DirExists(t, filepath.Join(h.workDir, ".expel", sub))
	}
}

func TestDispatchRestore(t *testing.T) {
	h := newHarness(t)

	require.NoError(t, Dispatch(context.Background(), h.env, "restore"))

	require.Len(t, h.engine.runs, 1)
	run := h.engine.runs[0]
	assert.Equal(t, []string{"-t:restore"}, run.Args)
	assert.Len(t, run.Mounts, 4)
	assert.NoDirExists(t, filepath.Join(h.workDir, ".expel", "build-bin"))
}

func TestDispatchRun(t *testing.T) {
	h := newHarness(t)

	require.NoError(t, Dispatch(context.Background(), h.env, "run"))

	require.Len(t, h.engine.runs, 1)
	run := h.engine.runs[0]
	assert.Equal(t, "expel-server-run", run.Image)
	assert.Equal(t, []string{"7777:7777/udp"}, run.Ports)
	require.Len(t, run.Mounts, 1)
	assert.Equal(t, "/home/run/.config", run.Mounts[0].Target)
	assert.DirExists(t, filepath.Join(h.workDir, ".expel", "server-config"))
}

func TestDispatchPropagatesEngineFailure(t *testing.T) {
	h := newHarness(t)
	h.engine.runErr = experrors.NewChildProcess("container exited with code 1", nil)

	err := Dispatch(context.Background(), h.env, "build")

	require.Error(t, err)
	assert.True(t, experrors.Is(err, experrors.KindChildProcess))
	assert.Len(t, h.engine.runs, 1, "failures are not retried")
}

func TestDispatchMountCreationFailureSkipsEngine(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, os.WriteFile(filepath.Join(h.workDir, ".expel"), []byte("file"), 0644))

	err := Dispatch(context.Background(), h.env, "run")

	require.Error(t, err)
	assert.Zero(t, h.opened)
}

func TestDispatchEngineUnavailable(t *testing.T) {
	h := newHarness(t)
	h.env.NewEngine = func() (container.Engine, error) {
		return nil, errors.New("cannot connect to the Docker daemon")
	}

	err := Dispatch(context.Background(), h.env, "restore")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cannot connect to the Docker daemon")
}

func TestDispatchInstall(t *testing.T) {
	h := newHarness(t)
	bin := filepath.Join(h.workDir, ".expel", "build-bin", "Release")
	require.NoError(t, os.MkdirAll(bin, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(h.workDir, "Foo.csproj"), nil, 0644))
	require.NoError(t, os.WriteFile(filepath.Join(bin, "Foo.dll"), []byte("foo"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(bin, "Bar.dll"), []byte("bar"), 0644))

	require.NoError(t, Dispatch(context.Background(), h.env, "install"))

	plugins := filepath.Join(h.workDir, ".expel", "server-config", "EXILED", "Plugins")
	assert.FileExists(t, filepath.Join(plugins, "Foo.dll"))
	assert.FileExists(t, filepath.Join(plugins, "dependencies", "Bar.dll"))
	assert.Zero(t, h.opened)
}

func TestDispatchInstallWithoutBuildOutput(t *testing.T) {
	h := newHarness(t)

	err := Dispatch(context.Background(), h.env, "install")

	require.Error(t, err)
	assert.True(t, experrors.Is(err, experrors.KindMissingPrerequisite))
	assert.NoDirExists(t, filepath.Join(h.workDir, ".expel", "server-config"))
}

func TestDispatchInstallDisabled(t *testing.T) {
	h := newHarness(t)
	h.env.Config.Install.Enabled = false

	err := Dispatch(context.Background(), h.env, "install")

	require.Error(t, err)
	assert.True(t, experrors.Is(err, experrors.KindNotImplemented))
}

func TestDispatchDoctor(t *testing.T) {
	h := newHarness(t)

	require.NoError(t, Dispatch(context.Background(), h.env, "doctor"))

	out := h.out.String()
	assert.Contains(t, out, "Running in container: false")
	assert.Contains(t, out, "Go version: go")
	assert.Contains(t, out, "Server Version: test")
	assert.Contains(t, out, "images expel-*")

	require.Len(t, h.engine.runs, 1)
	run := h.engine.runs[0]
	assert.Equal(t, []string{"ikdasm"}, run.Entrypoint)
	assert.Equal(t, []string{"-assembly", "/home/build/Managed/Exiled.API.dll"}, run.Args)
	assert.False(t, run.Interactive)
	assert.Empty(t, run.Mounts)
}

func TestDoctorContinuesAfterFailedProbe(t *testing.T) {
	h := newHarness(t)
	h.engine.infoErr = errors.New("permission denied")

	require.NoError(t, Dispatch(context.Background(), h.env, "doctor"))

	assert.Contains(t, h.out.String(), "images expel-*")
	assert.Len(t, h.engine.runs, 1)
}

func TestDoctorWithoutEngine(t *testing.T) {
	h := newHarness(t)
	h.env.NewEngine = func() (container.Engine, error) {
		return nil, errors.New("no docker")
	}

	require.NoError(t, Dispatch(context.Background(), h.env, "doctor"))
	assert.Contains(t, h.out.String(), "Running in container: false")
}
