package config

const (
	defaultOutputDir          = "~/.local/share/ripple/results"
	defaultLogDir             = "~/.local/share/ripple/logs"
	defaultServerURL          = "https://data.lsst.cloud/api/butler"
	defaultAuthMethod         = "token"
	defaultInstrument         = "LSSTCam-imSim"
	defaultCollection         = "2.2i/runs/DP0.2"
	defaultFetchMaxAttempts   = 4
	defaultFetchBaseDelayMS   = 500
	defaultFetchMaxDelayMS    = 10000
	defaultFetchTimeoutSecs   = 30
	defaultCacheTTLMinutes    = 60
	defaultCacheMaxEntries    = 1000
	defaultNormalization      = "asinh"
	defaultAsinhSoftening     = 0.1
	defaultCutoutSize         = 64
	defaultModelTimeoutSecs   = 60
	defaultPipelineName       = "ripple"
	defaultPipelineBatchSize  = 32
	defaultPipelineNumWorkers = 4
	defaultOutputFormat       = "csv"
	defaultLogFormat          = "console"
	defaultLogLevel           = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			OutputDir: defaultOutputDir,
			LogDir:    defaultLogDir,
			CacheDir:  defaultCacheDir(),
		},
		Data: Data{
			ServerURL:   defaultServerURL,
			AuthMethod:  defaultAuthMethod,
			Collections: []string{defaultCollection},
			Instrument:  defaultInstrument,
		},
		Fetch: Fetch{
			MaxAttempts:    defaultFetchMaxAttempts,
			BaseDelayMS:    defaultFetchBaseDelayMS,
			MaxDelayMS:     defaultFetchMaxDelayMS,
			TimeoutSeconds: defaultFetchTimeoutSecs,
		},
		Cache: Cache{
			TTLMinutes: defaultCacheTTLMinutes,
			MaxEntries: defaultCacheMaxEntries,
		},
		Preprocessing: Preprocessing{
			Normalization:  defaultNormalization,
			AsinhSoftening: defaultAsinhSoftening,
			CutoutSize:     defaultCutoutSize,
		},
		Model: Model{
			TimeoutSeconds: defaultModelTimeoutSecs,
		},
		Pipeline: Pipeline{
			Name:       defaultPipelineName,
			BatchSize:  defaultPipelineBatchSize,
			NumWorkers: defaultPipelineNumWorkers,
		},
		Output: Output{
			Format: defaultOutputFormat,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
