package config

const (
	defaultConfigPath          = "~/.config/swingcoach/config.toml"
	defaultDataDir             = "~/.local/share/swingcoach"
	defaultMediaDir            = "~/.local/share/swingcoach/media"
	defaultLogDir              = "~/.local/share/swingcoach/logs"
	defaultAPIBind             = "127.0.0.1:7390"
	defaultFFmpegBinary        = "ffmpeg"
	defaultFFprobeBinary       = "ffprobe"
	defaultMaxSizeMB           = 25
	defaultMaxHeight           = 1080
	defaultAudioBitrateKbps    = 128
	defaultMinVideoBitrateKbps = 500
	defaultCRF                 = 23
	defaultPreset              = "medium"
	defaultMediaTimeoutSeconds = 600
	defaultInferenceBaseURL    = "https://generativelanguage.googleapis.com"
	defaultInferenceModel      = "gemini-2.5-flash"
	defaultInferenceTimeout    = 120
	defaultPollInterval        = 3
	defaultMaxWait             = 120
	defaultRetryAttempts       = 3
	defaultExtractorCommand    = "python3"
	defaultExtractorScript     = "pose_analysis.py"
	defaultExtractorTimeout    = 300
	defaultMaxConcurrentRuns   = 2
	defaultRunTimeoutSeconds   = 900
	defaultNotifyTimeout       = 10
	defaultLogFormat           = "console"
	defaultLogLevel            = "info"

	// AnalysisModeRemote sends the video to the inference service.
	AnalysisModeRemote = "remote"
	// AnalysisModeLocal measures frames locally and asks the service for estimates only.
	AnalysisModeLocal = "local"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir:  defaultDataDir,
			MediaDir: defaultMediaDir,
			LogDir:   defaultLogDir,
			APIBind:  defaultAPIBind,
		},
		Media: Media{
			FFmpegBinary:        defaultFFmpegBinary,
			FFprobeBinary:       defaultFFprobeBinary,
			MaxSizeMB:           defaultMaxSizeMB,
			MaxHeight:           defaultMaxHeight,
			AudioBitrateKbps:    defaultAudioBitrateKbps,
			MinVideoBitrateKbps: defaultMinVideoBitrateKbps,
			CRF:                 defaultCRF,
			Preset:              defaultPreset,
			TimeoutSeconds:      defaultMediaTimeoutSeconds,
		},
		Inference: Inference{
			BaseURL:             defaultInferenceBaseURL,
			Model:               defaultInferenceModel,
			TimeoutSeconds:      defaultInferenceTimeout,
			PollIntervalSeconds: defaultPollInterval,
			MaxWaitSeconds:      defaultMaxWait,
			RetryAttempts:       defaultRetryAttempts,
		},
		Extractor: Extractor{
			Enabled:        true,
			Command:        defaultExtractorCommand,
			Args:           []string{defaultExtractorScript},
			TimeoutSeconds: defaultExtractorTimeout,
		},
		Analysis: Analysis{
			Mode: AnalysisModeRemote,
		},
		Workflow: Workflow{
			MaxConcurrentRuns: defaultMaxConcurrentRuns,
			RunTimeoutSeconds: defaultRunTimeoutSeconds,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyTimeout,
			Analysis:       true,
			Errors:         true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
		Metrics: Metrics{
			Enabled: true,
		},
	}
}
