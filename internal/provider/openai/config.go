package openai

// Config contains OpenAI provider configuration.
// All fields map to OpenAI SDK options:
//   - BaseURL: Maps to option.WithBaseURL()
//   - Timeout: Maps to option.WithRequestTimeout() (in seconds)
//   - MaxRetries: Maps to option.WithMaxRetries()
//   - MaxOutputTokens: Sent as max_output_tokens on transformations
//
// The API key is not part of this config; it is read per request from the
// secret provider so a rotated key takes effect without a restart.
type Config struct {
	BaseURL         string `env:"OPENAI_BASE_URL"          envDefault:"https://api.openai.com/v1"`
	Timeout         int    `env:"OPENAI_TIMEOUT"           envDefault:"60"`
	MaxRetries      int    `env:"OPENAI_MAX_RETRIES"       envDefault:"3"`
	MaxOutputTokens int    `env:"OPENAI_MAX_OUTPUT_TOKENS" envDefault:"800"`
}
