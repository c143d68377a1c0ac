package logging

type Config struct {
	EnabledSinks    []string
	BufferSize      int
	MinimumSeverity Severity
	Console         ConsoleConfig
}

type ConsoleConfig struct {
	UseColor bool
}

func DefaultConfig() Config {
	return Config{
		EnabledSinks:    []string{"console"},
		BufferSize:      256,
		MinimumSeverity: SeverityInfo,
	}
}

func (c Config) HasSink(name string) bool {
	for _, s := range c.EnabledSinks {
		if s == name {
			return true
		}
	}
	return false
}
