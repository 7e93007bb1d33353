package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/jakenelson/expel/internal/config"
	"github.com/jakenelson/expel/internal/container"
	experrors "github.com/jakenelson/expel/internal/errors"
	"github.com/jakenelson/expel/internal/log"
	"github.com/jakenelson/expel/internal/mounts"
	"github.com/jakenelson/expel/internal/tasks"
	"github.com/jakenelson/expel/internal/ui"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile string
	cfg     *config.Config
	cfgErr  error
)

var rootCmd = &cobra.Command{
	Use:   "expel <task> [flags]",
	Short: "EXILED Plugin-development Environment Launcher",
	Long: `Expel builds, restores and runs an EXILED plugin inside Docker containers.
Your working directory is mounted into the build image and build caches are
kept in .expel/ next to your project.

Tasks:
  build       Build the plugin
  doctor      Print system information for bug reports
  install     Copy the built plugin into the local server
  list_tasks  List all tasks
  restore     Install NuGet dependencies for the plugin
  run         Run an EXILED server to test your plugin

Examples:
  expel build                               # Build the plugin in the current directory
  expel run                                 # Start a test server on UDP 7777
  expel build -w ~/projects/MyPlugin        # Use another working directory
  expel build --windows -w 'C:\dev\Plugin'  # Launcher runs in a container on Windows
  expel build --dry-run                     # Print the docker command instead`,
	Args:          cobra.ExactArgs(1),
	RunE:          runTask,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command and reports a failure on stderr.
func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		ui.Error("Error: %v\n", err)
	}
	return err
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.ValidArgs = tasks.Names()

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.config/expel/config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "log level: debug, info, warn, error (overrides config)")

	rootCmd.Flags().StringP("working-directory", "w", "", "use a different directory than the current directory")
	rootCmd.Flags().String("docker-host", "", "Docker daemon to use (default: DOCKER_HOST or the local socket)")
	rootCmd.Flags().Bool("windows", false, "treat the working directory as a Windows path")
	rootCmd.Flags().String("engine", "", "how to talk to Docker: api, cli (overrides config)")
	rootCmd.Flags().Bool("dry-run", false, "print the docker commands instead of running them")

	viper.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag("container.docker_host", rootCmd.Flags().Lookup("docker-host"))
	viper.BindPFlag("container.engine", rootCmd.Flags().Lookup("engine"))
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			log.Warnf("could not find home directory: %v", err)
		} else {
			viper.AddConfigPath(filepath.Join(home, ".config", "expel"))
		}
		viper.AddConfigPath(".")
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	// EXPEL_CONTAINER_ENGINE=cli sets container.engine
	viper.SetEnvPrefix("EXPEL")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// Read config file (ignore if not found)
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.Warnf("error reading config file: %v", err)
		}
	}

	cfg, cfgErr = config.Load(viper.GetViper())
	if cfgErr != nil {
		return
	}
	if err := log.Init(log.Config{Level: cfg.Log.Level, Format: cfg.Log.Format}); err != nil {
		log.Warnf("invalid log configuration: %v", err)
	}
}

func runTask(cmd *cobra.Command, args []string) error {
	if _, ok := tasks.Lookup(args[0]); !ok {
		return tasks.NotFound(cmd.OutOrStdout(), args[0])
	}
	if cfgErr != nil {
		return cfgErr
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-sigCh:
			cancel()
		case <-ctx.Done():
		}
	}()

	workDir, _ := cmd.Flags().GetString("working-directory")
	forceWindows, _ := cmd.Flags().GetBool("windows")
	dryRun, _ := cmd.Flags().GetBool("dry-run")

	mctx, err := resolveContext(workDir, forceWindows, cfg)
	if err != nil {
		return experrors.NewConfig("invalid working directory", err)
	}
	log.WithFields(map[string]interface{}{
		"workdir": mctx.WorkDir(),
		"local":   mctx.LocalRoot(),
		"context": mctx.Exec().String(),
		"style":   mctx.Style().String(),
	}).Debug("resolved working directory")

	env := &tasks.Env{
		Config:    cfg,
		Context:   mctx,
		NewEngine: engineFactory(cfg, dryRun, cmd),
		Out:       cmd.OutOrStdout(),
		Version:   Version,
	}
	return tasks.Dispatch(ctx, env, args[0])
}

// resolveContext builds the working-directory context once per invocation.
func resolveContext(workDir string, forceWindows bool, cfg *config.Config) (*mounts.Context, error) {
	exec := mounts.ExecContextFor(cfg.InsideContainer)

	if workDir == "" {
		if exec == mounts.NestedContainer {
			log.Warnf("running in a container without --working-directory; mounts will use the container path")
		}
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
		workDir = cwd
	}

	style := mounts.DetectStyle(workDir)
	if forceWindows {
		style = mounts.Windows
	}

	// Host paths seen from a container cannot be expanded locally
	if exec == mounts.NativeHost && style == mounts.Posix {
		expanded, err := mounts.ExpandPath(workDir)
		if err != nil {
			return nil, err
		}
		workDir = filepath.ToSlash(expanded)
	}

	return mounts.NewContext(workDir, exec, style, cfg.Container.InsidePath)
}

// engineFactory defers connecting to Docker until a task needs it.
func engineFactory(cfg *config.Config, dryRun bool, cmd *cobra.Command) tasks.EngineFactory {
	return func() (container.Engine, error) {
		if dryRun {
			return &container.DryRun{CLI: container.NewCLI(cfg.Container.DockerHost), Out: cmd.OutOrStdout()}, nil
		}
		if cfg.Container.Engine == config.EngineCLI {
			return container.NewCLI(cfg.Container.DockerHost), nil
		}
		runner, err := container.NewRunner(cfg.Container.DockerHost)
		if err != nil {
			return nil, err
		}
		return runner, nil
	}
}
