package config

import "time"

// DefaultConfig returns the full default configuration.
func DefaultConfig() *Config {
	return &Config{
		Server:       DefaultServerConfig(),
		Agent:        DefaultAgentConfig(),
		Redis:        DefaultRedisConfig(),
		Database:     DefaultDatabaseConfig(),
		LLM:          DefaultLLMConfig(),
		Memory:       DefaultMemoryConfig(),
		Scheduler:    DefaultSchedulerConfig(),
		Integrations: IntegrationsConfig{Slack: SlackIntegration{Channel: "#general"}},
		Auth:         DefaultAuthConfig(),
		Log:          DefaultLogConfig(),
		Telemetry:    DefaultTelemetryConfig(),
	}
}

// DefaultServerConfig returns default HTTP settings.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		HTTPPort:        8080,
		MetricsPort:     9091,
		ReadTimeout:     30 * time.Second,
		WriteTimeout:    120 * time.Second,
		ShutdownTimeout: 15 * time.Second,
		RateLimit:       100,
		RateBurst:       200,
	}
}

// DefaultAgentConfig returns default request-processing settings.
func DefaultAgentConfig() AgentConfig {
	return AgentConfig{
		Parallel:       false,
		RequestTimeout: 2 * time.Minute,
	}
}

// DefaultRedisConfig returns default queue settings.
func DefaultRedisConfig() RedisConfig {
	return RedisConfig{
		Addr:       "localhost:6379",
		DB:         0,
		ResultTTL:  time.Hour,
		PopTimeout: time.Second,
	}
}

// DefaultDatabaseConfig returns an embedded sqlite database, usable
// without any external service.
func DefaultDatabaseConfig() DatabaseConfig {
	return DatabaseConfig{
		Driver: "sqlite",
		Name:   "taskforge.db",
	}
}

// DefaultLLMConfig returns default chat-completion settings.
func DefaultLLMConfig() LLMConfig {
	return LLMConfig{
		BaseURL:         "https://api.groq.com/openai/v1",
		Model:           "llama-3.1-70b-versatile",
		Temperature:     0.7,
		MaxTokens:       2000,
		MaxPromptTokens: 6000,
		Timeout:         60 * time.Second,
	}
}

// DefaultMemoryConfig returns default memory settings.
func DefaultMemoryConfig() MemoryConfig {
	return MemoryConfig{
		Enabled:       true,
		MaxCandidates: 500,
	}
}

// DefaultSchedulerConfig returns default scheduling settings.
func DefaultSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		Enabled:    true,
		RunTimeout: 10 * time.Minute,
	}
}

// DefaultAuthConfig returns auth disabled; deployments enable it by
// supplying a secret.
func DefaultAuthConfig() AuthConfig {
	return AuthConfig{Enabled: false}
}

// DefaultLogConfig returns default logging settings.
func DefaultLogConfig() LogConfig {
	return LogConfig{
		Level:  "info",
		Format: "json",
	}
}

// DefaultTelemetryConfig returns telemetry disabled by default.
func DefaultTelemetryConfig() TelemetryConfig {
	return TelemetryConfig{
		Enabled:      false,
		OTLPEndpoint: "localhost:4317",
		ServiceName:  "taskforge",
		SampleRate:   1.0,
	}
}
