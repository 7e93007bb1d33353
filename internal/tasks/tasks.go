// Package tasks holds the registry of expel tasks and their handlers.
package tasks

import (
	"context"
	"fmt"
	"io"

	"github.com/jakenelson/expel/internal/config"
	"github.com/jakenelson/expel/internal/container"
	experrors "github.com/jakenelson/expel/internal/errors"
	"github.com/jakenelson/expel/internal/mounts"
)

// ID identifies a task.
type ID int

const (
	Build ID = iota
	Doctor
	Install
	ListTasks
	Restore
	Run
)

// Task is a registry entry.
type Task struct {
	ID          ID
	Name        string
	Description string
}

// registry is ordered as `list_tasks` prints it.
var registry = [...]Task{
	{ID: Build, Name: "build", Description: "Build the plugin"},
	{ID: Doctor, Name: "doctor", Description: "Print system information. Use this when creating a bug report"},
	{ID: Install, Name: "install", Description: "Install the plugin to the local server"},
	{ID: ListTasks, Name: "list_tasks", Description: "List all commands and a short descriptions of them"},
	{ID: Restore, Name: "restore", Description: "Install NuGet dependencies for the plugin"},
	{ID: Run, Name: "run", Description: "Run an EXILED server to test your plugin"},
}

// Names returns every task name in registry order.
func Names() []string {
	names := make([]string, 0, len(registry))
	for _, t := range registry {
		names = append(names, t.Name)
	}
	return names
}

// Lookup finds a task by exact name.
func Lookup(name string) (Task, bool) {
	for _, t := range registry {
		if t.Name == name {
			return t, true
		}
	}
	return Task{}, false
}

// EngineFactory opens the container engine a task talks to.
type EngineFactory func() (container.Engine, error)

// Env is everything a task needs. It is built once per invocation.
type Env struct {
	Config    *config.Config
	Context   *mounts.Context
	NewEngine EngineFactory
	Out       io.Writer
	Version   string
}

// Dispatch runs the task called name. An unknown name prints the registry
// and returns an unknown-task error without touching the engine.
func Dispatch(ctx context.Context, env *Env, name string) error {
	t, ok := Lookup(name)
	if !ok {
		return NotFound(env.Out, name)
	}

	switch t.ID {
	case Build:
		return runBuild(ctx, env)
	case Doctor:
		return runDoctor(ctx, env)
	case Install:
		return runInstall(env)
	case ListTasks:
		PrintList(env.Out, true)
		return nil
	case Restore:
		return runRestore(ctx, env)
	case Run:
		return runServer(ctx, env)
	}
	return experrors.NewUnknownTask(name)
}

// NotFound prints the registry for a task name that is not in it and returns
// the unknown-task error. It needs no Env so callers can reject a name before
// configuration or the working directory are resolved.
func NotFound(w io.Writer, name string) error {
	fmt.Fprintln(w, "Could not find a task with that name. Try one of the following:")
	PrintList(w, false)
	return experrors.NewUnknownTask(name)
}

// PrintList writes every task with its description.
func PrintList(w io.Writer, header bool) {
	if header {
		fmt.Fprintln(w, "EXPEL Tasks:")
	}
	fmt.Fprintln(w)
	for _, t := range registry {
		fmt.Fprintf(w, "%s: %s\n", t.Name, t.Description)
	}
}
