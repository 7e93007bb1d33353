package tasks

import (
	experrors "github.com/jakenelson/expel/internal/errors"
	"github.com/jakenelson/expel/internal/install"
	"github.com/jakenelson/expel/internal/ui"
)

// runInstall copies the build output of the local working directory into
// the server-config plugin folders. Inside a container that is the mounted
// working directory, not the host path.
func runInstall(env *Env) error {
	if !env.Config.Install.Enabled {
		return experrors.NewNotImplemented("the install task is disabled (install.enabled is false)")
	}

	layout := install.NewLayout(env.Context.LocalRoot(), env.Config.Cache.Dir)
	ui.Info("Installing from %s\n", layout.BuildDir)
	result, err := install.Run(layout, env.Out)
	if err != nil {
		return err
	}

	ui.Success("Installed %d plugin(s) and %d dependency(ies) to %s\n",
		len(result.Plugins), len(result.Dependencies), layout.PluginDir)
	return nil
}
