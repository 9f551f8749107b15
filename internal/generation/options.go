// Package generation holds the generation provider adapters.
package generation

import (
	"net/http"

	"go.uber.org/zap"
)

// Instructions is sent ahead of the retrieved context.
const Instructions = `You answer questions about a document collection.
Use only the context passages and the conversation below. Passages are tagged
with [source p.N]; mention the tags you relied on. If the context does not
contain the answer, say that you don't know.`

// Option configures a generator.
type Option func(*Options)

// Options is the resolved generator configuration.
type Options struct {
	APIKey       string
	BaseURL      string
	Model        string
	MaxTokens    int
	Temperature  float32
	Instructions string
	HTTPClient   *http.Client
	Logger       *zap.Logger
}

// WithAPIKey sets the provider credential.
func WithAPIKey(key string) Option {
	return func(o *Options) {
		o.APIKey = key
	}
}

// WithBaseURL points the client at an alternative endpoint.
func WithBaseURL(url string) Option {
	return func(o *Options) {
		o.BaseURL = url
	}
}

// WithModel sets the model name.
func WithModel(model string) Option {
	return func(o *Options) {
		o.Model = model
	}
}

// WithMaxTokens caps the answer length. Non-positive values keep the default.
func WithMaxTokens(n int) Option {
	return func(o *Options) {
		if n > 0 {
			o.MaxTokens = n
		}
	}
}

// WithTemperature sets the sampling temperature.
func WithTemperature(t float32) Option {
	return func(o *Options) {
		o.Temperature = t
	}
}

// WithInstructions replaces the system instructions.
func WithInstructions(s string) Option {
	return func(o *Options) {
		o.Instructions = s
	}
}

// WithHTTPClient sets the HTTP client used by the SDK.
func WithHTTPClient(c *http.Client) Option {
	return func(o *Options) {
		o.HTTPClient = c
	}
}

// WithLogger sets the logger. A nil logger is ignored.
func WithLogger(l *zap.Logger) Option {
	return func(o *Options) {
		if l != nil {
			o.Logger = l
		}
	}
}

// NewOptions applies opts over the defaults.
func NewOptions(opts ...Option) Options {
	options := Options{
		MaxTokens:    1024,
		Instructions: Instructions,
		Logger:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(&options)
	}
	return options
}
