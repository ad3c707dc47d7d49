package operations

import (
	"time"
)

// Config represents the operation execution configuration
type Config struct {
	// Step-specific timeouts
	StepTimeouts map[string]time.Duration `json:"step_timeouts"`

	// Retry configuration for steps
	RetryConfig RetryConfig `json:"retry_config"`

	// Whether to continue when a step fails
	ContinueOnError bool `json:"continue_on_error"`

	// Custom step configurations
	StepConfigs map[string]interface{} `json:"step_configs"`
}

// NewConfig returns the default operation configuration
func NewConfig() *Config {
	return &Config{
		StepTimeouts: map[string]time.Duration{
			StepIDClean:    DefaultCleanTimeout,
			StepIDRoster:   DefaultRosterTimeout,
			StepIDAwards:   DefaultAwardsTimeout,
			StepIDSchedule: DefaultScheduleTimeout,
			StepIDImport:   DefaultImportTimeout,
		},
		RetryConfig:     NewRetryConfig(),
		ContinueOnError: false,
		StepConfigs:     make(map[string]interface{}),
	}
}

// GetStepTimeout returns the timeout for a specific step
func (c *Config) GetStepTimeout(stepID string) time.Duration {
	if timeout, ok := c.StepTimeouts[stepID]; ok {
		return timeout
	}
	return DefaultStepTimeout
}

// SetStepTimeout sets the timeout for a specific step
func (c *Config) SetStepTimeout(stepID string, timeout time.Duration) {
	if c.StepTimeouts == nil {
		c.StepTimeouts = make(map[string]time.Duration)
	}
	c.StepTimeouts[stepID] = timeout
}

// GetStepConfig returns the configuration for a specific step
func (c *Config) GetStepConfig(stepID string) (interface{}, bool) {
	if c.StepConfigs == nil {
		return nil, false
	}
	config, ok := c.StepConfigs[stepID]
	return config, ok
}

// SetStepConfig sets the configuration for a specific step
func (c *Config) SetStepConfig(stepID string, config interface{}) {
	if c.StepConfigs == nil {
		c.StepConfigs = make(map[string]interface{})
	}
	c.StepConfigs[stepID] = config
}

// ConfigBuilder provides a fluent interface for building operation configurations
type ConfigBuilder struct {
	config *Config
}

// NewConfigBuilder creates a new configuration builder
func NewConfigBuilder() *ConfigBuilder {
	return &ConfigBuilder{
		config: NewConfig(),
	}
}

// WithStepTimeout sets the timeout for a step
func (b *ConfigBuilder) WithStepTimeout(stepID string, timeout time.Duration) *ConfigBuilder {
	b.config.SetStepTimeout(stepID, timeout)
	return b
}

// WithRetryConfig sets the retry configuration
func (b *ConfigBuilder) WithRetryConfig(config RetryConfig) *ConfigBuilder {
	b.config.RetryConfig = config
	return b
}

// WithContinueOnError sets whether to continue on errors
func (b *ConfigBuilder) WithContinueOnError(continueOnError bool) *ConfigBuilder {
	b.config.ContinueOnError = continueOnError
	return b
}

// WithStepConfig sets the configuration for a step
func (b *ConfigBuilder) WithStepConfig(stepID string, config interface{}) *ConfigBuilder {
	b.config.SetStepConfig(stepID, config)
	return b
}

// Build returns the built configuration
func (b *ConfigBuilder) Build() *Config {
	return b.config
}
