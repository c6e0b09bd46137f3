package market

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"cointrack/pkg/confkit"
)

// ErrBadConfig wraps every rejection of etc/upstream.yaml.
var ErrBadConfig = errors.New("upstream.yaml")

// Config is the parsed etc/upstream.yaml: named price sources and which one
// the proxy reads from.
type Config struct {
	Default   string                     `yaml:"default"`
	Providers map[string]*ProviderConfig `yaml:"providers"`
}

// ProviderConfig is one entry under providers. String fields accept ${ENV}
// references; durations are Go duration strings.
type ProviderConfig struct {
	Type string `yaml:"type"`

	BaseURL      string `yaml:"base_url"`
	APIKey       string `yaml:"api_key"`
	APIKeyHeader string `yaml:"api_key_header"`

	TimeoutRaw     string        `yaml:"timeout"`
	Timeout        time.Duration `yaml:"-"`
	HTTPTimeoutRaw string        `yaml:"http_timeout"`
	HTTPTimeout    time.Duration `yaml:"-"`
	MaxRetries     int           `yaml:"max_retries"`
}

// ProviderBuilder turns a ProviderConfig into a live Provider.
type ProviderBuilder func(name string, cfg *ProviderConfig) (Provider, error)

var builders = struct {
	sync.RWMutex
	byType map[string]ProviderBuilder
}{byType: map[string]ProviderBuilder{}}

func typeKey(t string) string { return strings.ToLower(strings.TrimSpace(t)) }

// RegisterProvider makes builder available as `type: <typeName>`. Provider
// packages call it from init.
func RegisterProvider(typeName string, builder ProviderBuilder) {
	builders.Lock()
	builders.byType[typeKey(typeName)] = builder
	builders.Unlock()
}

func builderFor(typeName string) (ProviderBuilder, bool) {
	builders.RLock()
	defer builders.RUnlock()
	b, ok := builders.byType[typeKey(typeName)]
	return b, ok
}

// LoadConfig parses the file at path.
func LoadConfig(path string) (*Config, error) {
	confkit.LoadDotenvOnce()
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadConfig, err)
	}
	defer f.Close()
	return LoadConfigFromReader(f)
}

// MustLoad parses <project>/etc/upstream.yaml or panics.
func MustLoad() *Config {
	cfg, err := LoadConfig(confkit.MustProjectPath("etc/upstream.yaml"))
	if err != nil {
		panic(err)
	}
	return cfg
}

// LoadConfigFromReader parses, expands and checks a document.
func LoadConfigFromReader(r io.Reader) (*Config, error) {
	confkit.LoadDotenvOnce()
	var cfg Config
	if err := yaml.NewDecoder(r).Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: %v", ErrBadConfig, err)
	}
	if cfg.Providers == nil {
		cfg.Providers = map[string]*ProviderConfig{}
	}
	for name, p := range cfg.Providers {
		if p == nil {
			p = &ProviderConfig{}
			cfg.Providers[name] = p
		}
		if err := p.resolve(name); err != nil {
			return nil, err
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// resolve expands env references and parses durations in place.
func (p *ProviderConfig) resolve(name string) error {
	for _, field := range []*string{&p.Type, &p.BaseURL, &p.APIKey, &p.APIKeyHeader, &p.TimeoutRaw, &p.HTTPTimeoutRaw} {
		*field = strings.TrimSpace(os.ExpandEnv(*field))
	}
	var err error
	if p.Timeout, err = positiveDuration(name, "timeout", p.TimeoutRaw); err != nil {
		return err
	}
	p.HTTPTimeout, err = positiveDuration(name, "http_timeout", p.HTTPTimeoutRaw)
	return err
}

// positiveDuration returns 0 for an empty value.
func positiveDuration(name, field, raw string) (time.Duration, error) {
	if raw == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %s.%s %q is not a duration", ErrBadConfig, name, field, raw)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%w: %s.%s must be positive, got %s", ErrBadConfig, name, field, d)
	}
	return d, nil
}

// Validate checks that at least one provider exists, that default names one
// of them and that every entry has a registered type.
func (c *Config) Validate() error {
	if len(c.Providers) == 0 {
		return fmt.Errorf("%w: no providers configured", ErrBadConfig)
	}
	if c.Default != "" && c.Providers[c.Default] == nil {
		return fmt.Errorf("%w: default %q is not a configured provider", ErrBadConfig, c.Default)
	}
	for name, p := range c.Providers {
		switch {
		case strings.TrimSpace(name) == "":
			return fmt.Errorf("%w: provider with blank name", ErrBadConfig)
		case p == nil:
			return fmt.Errorf("%w: %s has no settings", ErrBadConfig, name)
		case p.Type == "":
			return fmt.Errorf("%w: %s.type is required", ErrBadConfig, name)
		case p.MaxRetries < 0:
			return fmt.Errorf("%w: %s.max_retries is below zero", ErrBadConfig, name)
		}
		if _, ok := builderFor(p.Type); !ok {
			return fmt.Errorf("%w: %s.type %q is not a known provider", ErrBadConfig, name, p.Type)
		}
	}
	return nil
}

// DefaultProvider returns the provider the proxy should use: the one named
// by default, or the only one when default is blank.
func (c *Config) DefaultProvider() (Provider, error) {
	name := c.Default
	if name == "" && len(c.Providers) == 1 {
		for only := range c.Providers {
			name = only
		}
	}
	p := c.Providers[name]
	if p == nil {
		return nil, fmt.Errorf("%w: cannot pick a default among %d providers", ErrBadConfig, len(c.Providers))
	}
	return build(name, p)
}

// BuildProviders constructs every configured provider, keyed by name.
func (c *Config) BuildProviders() (map[string]Provider, error) {
	out := make(map[string]Provider, len(c.Providers))
	for name, p := range c.Providers {
		provider, err := build(name, p)
		if err != nil {
			return nil, err
		}
		out[name] = provider
	}
	return out, nil
}

func build(name string, p *ProviderConfig) (Provider, error) {
	b, ok := builderFor(p.Type)
	if !ok {
		return nil, fmt.Errorf("%w: %s.type %q is not a known provider", ErrBadConfig, name, p.Type)
	}
	provider, err := b(name, p)
	if err != nil {
		return nil, fmt.Errorf("build provider %s: %w", name, err)
	}
	return provider, nil
}
