package config

const (
	defaultStateDir          = "~/.local/share/picker"
	defaultLogDir            = "~/.local/share/picker/logs"
	defaultAPIBind           = "127.0.0.1:5000"
	defaultSocketName        = "picker.sock"
	defaultInitialSize       = 1_000_000
	defaultPageLimit         = 20
	defaultMaxPageLimit      = 0
	defaultTimeUnitMillis    = 1000
	defaultFastWindowUnits   = 1
	defaultSlowWindowUnits   = 10
	defaultJournalMaxBatches = 1000
	defaultLogFormat         = "console"
	defaultLogLevel          = "info"
	defaultLogRetentionDays  = 14
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			StateDir: defaultStateDir,
			LogDir:   defaultLogDir,
			APIBind:  defaultAPIBind,
		},
		Items: Items{
			InitialSize:  defaultInitialSize,
			DefaultLimit: defaultPageLimit,
			MaxLimit:     defaultMaxPageLimit,
		},
		Queue: Queue{
			TimeUnitMillis:  defaultTimeUnitMillis,
			FastWindowUnits: defaultFastWindowUnits,
			SlowWindowUnits: defaultSlowWindowUnits,
		},
		API: API{
			CORSOrigins: []string{"*"},
		},
		Journal: Journal{
			Enabled:    true,
			MaxBatches: defaultJournalMaxBatches,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
