package config

const (
	defaultBackendURL             = "http://127.0.0.1:8188"
	defaultSubmitTimeoutSeconds   = 30
	defaultStatusTimeoutSeconds   = 10
	defaultArtifactTimeoutSeconds = 120
	defaultReadyTimeoutSeconds    = 5
	defaultReadyAttempts          = 90
	defaultReadyDelaySeconds      = 2
	defaultOutputFormat           = "JPEG"
	defaultOutputQuality          = 82
	defaultPipeline               = "image"
	defaultImageMaxWaitSeconds    = 300
	defaultAudioMaxWaitSeconds    = 600
	defaultImagePollMillis        = 1500
	defaultAudioPollMillis        = 2000
	defaultImageOutputNode        = "9"
	defaultAudioOutputNode        = "8"
	defaultExtraPathsFile         = "/comfyui/extra_model_paths.yaml"
	defaultLogDir                 = "~/.local/share/easel/logs"
	defaultBind                   = "127.0.0.1:8299"
	defaultLogFormat              = "console"
	defaultLogLevel               = "info"
)

func defaultModelBasePaths() []string {
	return []string{
		"/runpod-volume/models",
		"/workspace/models",
		"/comfyui/models",
	}
}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Backend: Backend{
			URL:                    defaultBackendURL,
			SubmitTimeoutSeconds:   defaultSubmitTimeoutSeconds,
			StatusTimeoutSeconds:   defaultStatusTimeoutSeconds,
			ArtifactTimeoutSeconds: defaultArtifactTimeoutSeconds,
			ReadyTimeoutSeconds:    defaultReadyTimeoutSeconds,
			ReadyAttempts:          defaultReadyAttempts,
			ReadyDelaySeconds:      defaultReadyDelaySeconds,
		},
		Output: Output{
			Format:  defaultOutputFormat,
			Quality: defaultOutputQuality,
		},
		Job: Job{
			Pipeline: defaultPipeline,
		},
		Models: Models{
			BasePaths:      defaultModelBasePaths(),
			ExtraPathsFile: defaultExtraPathsFile,
		},
		Paths: Paths{
			LogDir: defaultLogDir,
			Bind:   defaultBind,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
