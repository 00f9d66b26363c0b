package bedrock

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

// Config holds AWS connection settings for the Bedrock runtime. It is
// resolved once from the environment and passed explicitly to the client;
// nothing reads ambient process state after construction.
type Config struct {
	Region          string `envconfig:"AWS_REGION" default:"us-east-1"`
	AccessKeyID     string `envconfig:"AWS_ACCESS_KEY_ID"`
	SecretAccessKey string `envconfig:"AWS_SECRET_ACCESS_KEY"`
	SessionToken    string `envconfig:"AWS_SESSION_TOKEN"`

	// Endpoint overrides the regional Bedrock runtime URL. Used by tests.
	Endpoint string `envconfig:"BEDROCK_ENDPOINT"`
}

// FromEnv resolves a Config from environment variables.
func FromEnv() (Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, fmt.Errorf("read aws config: %w", err)
	}
	return cfg, nil
}

// BaseURL returns the endpoint override or the regional runtime URL.
func (c Config) BaseURL() string {
	if c.Endpoint != "" {
		return c.Endpoint
	}
	return fmt.Sprintf("https://bedrock-runtime.%s.amazonaws.com", c.Region)
}
