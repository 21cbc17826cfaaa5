package internal

// Option is a functional option for configuring the application.
type Option func(*application)

type application struct {
	config   *Config
	openPath string
	mcpMode  bool
}

// WithConfig sets the application configuration.
func WithConfig(cfg *Config) Option {
	return func(a *application) {
		a.config = cfg
	}
}

// WithOpenPath opens the given project directory at startup.
func WithOpenPath(path string) Option {
	return func(a *application) {
		a.openPath = path
	}
}

// WithMCPMode serves the Model Context Protocol on stdio instead of HTTP.
func WithMCPMode(enabled bool) Option {
	return func(a *application) {
		a.mcpMode = enabled
	}
}
