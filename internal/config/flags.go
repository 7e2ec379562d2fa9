package config

import "flag"

var (
	flagConfig      = flag.String("config", "", "Path to config file (.yaml or .toml)")
	flagDebug       = flag.Bool("debug", false, "Enable debug logging")
	flagSync        = flag.Bool("sync", false, "Create all GPU resources in the first frame")
	flagBudget      = flag.Int("budget", -1, "Total GPU-creation jobs per frame (0 = unlimited)")
	flagNoStreaming = flag.Bool("no-streaming", false, "Wait for every texture before rendering")
	flagBackend     = flag.String("backend", "", "Render backend: gl or headless")
	flagWidth       = flag.Int("width", 0, "Window width")
	flagHeight      = flag.Int("height", 0, "Window height")
)

// ParseFlags parses command-line flags. Call this early in main().
func ParseFlags() {
	flag.Parse()
}

// ConfigPath returns the explicit config path if provided via --config flag.
func ConfigPath() string {
	return *flagConfig
}

// Args returns the positional arguments left after flag parsing.
func Args() []string {
	return flag.Args()
}

// applyFlags applies CLI flag overrides to the config.
func applyFlags(cfg *Config) {
	if *flagDebug {
		cfg.Logging.Level = "debug"
	}
	if *flagSync {
		cfg.Loader.Asynchronous = false
	}
	if *flagBudget >= 0 {
		cfg.Scheduler.Total = *flagBudget
	}
	if *flagNoStreaming {
		cfg.Loader.IncrementalTextures = false
	}
	if *flagBackend != "" {
		cfg.Render.Backend = *flagBackend
	}
	if *flagWidth > 0 {
		cfg.Window.Width = *flagWidth
	}
	if *flagHeight > 0 {
		cfg.Window.Height = *flagHeight
	}
}
