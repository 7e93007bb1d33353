package tasks

import (
	"context"
	"fmt"
	"runtime"

	"github.com/jakenelson/expel/internal/config"
	"github.com/jakenelson/expel/internal/container"
	"github.com/jakenelson/expel/internal/mounts"
	"github.com/jakenelson/expel/internal/ui"
)

// ExiledAPIAssembly is the assembly whose version the doctor task dumps.
const ExiledAPIAssembly = "/home/build/Managed/Exiled.API.dll"

// runDoctor prints what a bug report needs. Engine output is passed through
// untouched and a failing probe does not stop the next one.
func runDoctor(ctx context.Context, env *Env) error {
	out := env.Out
	fmt.Fprintf(out, "Running in container: %t\n", env.Context.Exec() == mounts.NestedContainer)
	fmt.Fprintf(out, "Go version: %s %s/%s\n", runtime.Version(), runtime.GOOS, runtime.GOARCH)
	fmt.Fprintf(out, "expel version: %s\n", env.Version)
	fmt.Fprintf(out, "Working directory: %s (%s)\n", env.Context.WorkDir(), env.Context.Style())

	engine, err := env.NewEngine()
	if err != nil {
		ui.Warning("Could not reach the container engine: %v\n", err)
		return nil
	}
	defer engine.Close()

	fmt.Fprintln(out, "Docker system info:")
	if err := engine.SystemInfo(ctx, out); err != nil {
		ui.Warning("docker system info failed: %v\n", err)
	}

	fmt.Fprintln(out, "Docker images:")
	if err := engine.ListImages(ctx, out, config.DefaultImageFilter); err != nil {
		ui.Warning("docker images failed: %v\n", err)
	}

	fmt.Fprintln(out, "Build env EXILED version:")
	err = engine.Run(ctx, container.RunOptions{
		Image:      env.Config.Images.Build,
		Entrypoint: []string{"ikdasm"},
		Args:       []string{"-assembly", ExiledAPIAssembly},
		Stdout:     out,
		Stderr:     out,
	})
	if err != nil {
		ui.Warning("ikdasm failed: %v\n", err)
	}

	return nil
}
