package config

// InsideContainerEnv is set to "1" in the expel images so the launcher knows
// it is running inside a container and talks to a sibling engine.
const InsideContainerEnv = "EXPEL_INSIDE_CONTAINER"

// Engine modes
const (
	EngineAPI = "api"
	EngineCLI = "cli"
)

// Log formats
const (
	LogFormatText = "text"
	LogFormatJSON = "json"
)

// Images and paths baked into the expel images
const (
	DefaultBuildImage  = "expel-plugin-build"
	DefaultRunImage    = "expel-server-run"
	DefaultCacheDir    = ".expel"
	DefaultInsidePath  = "/work"
	DefaultServerPort  = "7777:7777/udp"
	DefaultImageFilter = "expel-*"
)
