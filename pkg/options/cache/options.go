// Package cache provides query cache configuration options.
package cache

import (
	"time"

	"github.com/spf13/pflag"

	"github.com/coursechat-io/coursechat/pkg/options"
	redisopts "github.com/coursechat-io/coursechat/pkg/options/redis"
)

var _ options.IOptions = (*Options)(nil)

// Options configures the Redis-backed query cache.
type Options struct {
	// Enabled toggles the cache.
	Enabled bool `json:"enabled" mapstructure:"enabled"`

	// TTL is how long cached answers stay valid.
	TTL time.Duration `json:"ttl" mapstructure:"ttl"`

	// KeyPrefix namespaces cache keys.
	KeyPrefix string `json:"key-prefix" mapstructure:"key-prefix"`

	// Redis holds the connection configuration.
	Redis *redisopts.Options `json:"redis" mapstructure:"redis"`
}

// NewOptions creates default cache options.
func NewOptions() *Options {
	return &Options{
		Enabled:   true,
		TTL:       1 * time.Hour,
		KeyPrefix: "coursechat:query:",
		Redis:     redisopts.NewOptions(),
	}
}

// AddFlags adds flags for cache options to the specified FlagSet.
func (o *Options) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.BoolVar(&o.Enabled, options.Join(prefixes...)+"cache.enabled", o.Enabled, "Enable the query cache.")
	fs.DurationVar(&o.TTL, options.Join(prefixes...)+"cache.ttl", o.TTL, "Cache TTL duration.")
	fs.StringVar(&o.KeyPrefix, options.Join(prefixes...)+"cache.key-prefix", o.KeyPrefix, "Cache key prefix.")

	if o.Redis == nil {
		o.Redis = redisopts.NewOptions()
	}
	o.Redis.AddFlags(fs, prefixes...)
}

// Validate validates the cache options.
func (o *Options) Validate() []error {
	if o == nil {
		return nil
	}

	var errs []error
	if o.Enabled && o.Redis != nil {
		errs = append(errs, o.Redis.Validate()...)
	}
	return errs
}

// Complete completes the cache options with defaults.
func (o *Options) Complete() error {
	if o.Redis == nil {
		o.Redis = redisopts.NewOptions()
	}
	return o.Redis.Complete()
}
