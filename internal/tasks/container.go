package tasks

import (
	"context"
	"fmt"

	"github.com/jakenelson/expel/internal/container"
	"github.com/jakenelson/expel/internal/log"
	"github.com/jakenelson/expel/internal/mounts"
)

// BuildArgs are passed to the build tool by the build task.
var BuildArgs = []string{
	// EXILED's references go to the back of the default AssemblySearchPaths.
	// Prepending them makes MSBuild copy System.*.dll into the output.
	`-p:AssemblySearchPaths="{CandidateAssemblyFiles};{HintPathFromItem};{TargetFrameworkDirectory};{RawFileName};/home/build/Managed"`,
	"-p:Configuration=Release",
}

// RestoreArgs are passed to the build tool by the restore task.
var RestoreArgs = []string{"-t:restore"}

func runBuild(ctx context.Context, env *Env) error {
	return runContainer(ctx, env, container.RunOptions{
		Image:       env.Config.Images.Build,
		Args:        BuildArgs,
		MemoryLimit: env.Config.Container.MemoryLimit,
		Interactive: true,
	}, mounts.BuildMounts(env.Config.Cache.Dir))
}

func runRestore(ctx context.Context, env *Env) error {
	return runContainer(ctx, env, container.RunOptions{
		Image:       env.Config.Images.Build,
		Args:        RestoreArgs,
		MemoryLimit: env.Config.Container.MemoryLimit,
		Interactive: true,
	}, mounts.RestoreMounts(env.Config.Cache.Dir))
}

func runServer(ctx context.Context, env *Env) error {
	var ports []string
	if env.Config.Server.Port != "" {
		ports = []string{env.Config.Server.Port}
	}
	return runContainer(ctx, env, container.RunOptions{
		Image:       env.Config.Images.Run,
		Ports:       ports,
		MemoryLimit: env.Config.Container.MemoryLimit,
		Interactive: true,
	}, mounts.RunMounts(env.Config.Cache.Dir))
}

// runContainer creates every mount source, then runs opts with the resolved
// mounts. Any failure is returned as is; nothing is retried.
func runContainer(ctx context.Context, env *Env, opts container.RunOptions, set []mounts.BindMount) error {
	resolved, err := mounts.Prepare(env.Context, set)
	if err != nil {
		return err
	}
	opts.Mounts = resolved
	opts.Stdout = env.Out

	engine, err := env.NewEngine()
	if err != nil {
		return fmt.Errorf("failed to create container engine: %w", err)
	}
	defer engine.Close()

	log.WithField("image", opts.Image).Debug("starting container")
	return engine.Run(ctx, opts)
}
