package testserver

import (
	"net/http"
	"os"

	"github.com/mohae/deepcopy"
	"github.com/rs/zerolog"
)

// HTTPClient is the client capability Request delegates to.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Options configures a Server.
type Options struct {
	// Host is used to build Address. The listener itself is always loopback.
	Host string
	// Network is one of tcp, tcp4 or tcp6.
	Network string
	// Headers are sent with every request unless replaced by WithHeaders.
	Headers    map[string]string
	DebugMode  bool
	HTTPClient HTTPClient
	Logger     zerolog.Logger
}

// Option configures a Server.
type Option interface {
	Apply(o *Options)
}

// OptionFunc adapts a function to Option.
type OptionFunc func(*Options)

func (f OptionFunc) Apply(o *Options) { f(o) }

var defaultOptions = &Options{
	Host:    "localhost",
	Network: "tcp",
	Headers: map[string]string{},
}

// NewOptions applies opts over a copy of the defaults: localhost, tcp, no
// headers, a discarding logger and a client with its own transport.
func NewOptions(opts ...Option) *Options {
	options := deepcopy.Copy(defaultOptions).(*Options)
	options.Logger = zerolog.Nop()
	options.init(opts...)
	return options
}

func (o *Options) init(opts ...Option) {
	for _, opt := range opts {
		if opt != nil {
			opt.Apply(o)
		}
	}

	if o.HTTPClient == nil {
		o.HTTPClient = &http.Client{Transport: http.DefaultTransport.(*http.Transport).Clone()}
	}

	// an explicit logger wins over debug mode
	if o.DebugMode && o.Logger.GetLevel() == zerolog.Disabled {
		o.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
			Level(zerolog.DebugLevel).
			With().Timestamp().Str("component", "testserver").
			Logger()
	}
}

// WithHost sets the host Address reports. The listener stays on loopback.
func WithHost(host string) Option {
	return OptionFunc(func(o *Options) {
		o.Host = host
	})
}

// WithNetwork sets the listen network: tcp, tcp4 or tcp6.
func WithNetwork(network string) Option {
	return OptionFunc(func(o *Options) {
		o.Network = network
	})
}

// WithHeader adds a header sent with every request.
func WithHeader(key, value string) Option {
	return OptionFunc(func(o *Options) {
		if o.Headers == nil {
			o.Headers = make(map[string]string)
		}
		o.Headers[key] = value
	})
}

// WithHeaders replaces the headers sent with every request.
func WithHeaders(headers map[string]string) Option {
	return OptionFunc(func(o *Options) {
		o.Headers = headers
	})
}

// WithDebugMode traces to stderr unless WithLogger set a logger.
func WithDebugMode() Option {
	return OptionFunc(func(o *Options) {
		o.DebugMode = true
	})
}

// WithHTTPClient sets the client requests are sent with.
func WithHTTPClient(client HTTPClient) Option {
	return OptionFunc(func(o *Options) {
		o.HTTPClient = client
	})
}

// WithLogger sets the logger bind, close and requests are traced to.
func WithLogger(logger zerolog.Logger) Option {
	return OptionFunc(func(o *Options) {
		o.Logger = logger
	})
}
