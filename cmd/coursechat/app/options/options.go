// Package options contains flags and options for initializing the course
// assistant server.
package options

import (
	"fmt"

	utilerrors "k8s.io/apimachinery/pkg/util/errors"

	coursechatsvc "github.com/coursechat-io/coursechat/internal/coursechat"
	cliflag "github.com/coursechat-io/coursechat/pkg/app/cliflag"
	cacheopts "github.com/coursechat-io/coursechat/pkg/options/cache"
	ccopts "github.com/coursechat-io/coursechat/pkg/options/coursechat"
	httpopts "github.com/coursechat-io/coursechat/pkg/options/http"
	llmopts "github.com/coursechat-io/coursechat/pkg/options/llm"
	logopts "github.com/coursechat-io/coursechat/pkg/options/logger"
	milvusopts "github.com/coursechat-io/coursechat/pkg/options/milvus"
)

// ServerOptions contains the configuration options for the server.
type ServerOptions struct {
	// HTTPOptions contains HTTP server configuration.
	HTTPOptions *httpopts.Options `json:"http" mapstructure:"http"`

	// LogOptions contains logger configuration.
	LogOptions *logopts.Options `json:"log" mapstructure:"log"`

	// MilvusOptions contains Milvus database configuration.
	MilvusOptions *milvusopts.Options `json:"milvus" mapstructure:"milvus"`

	// EmbeddingOptions contains embedding provider configuration.
	EmbeddingOptions *llmopts.ProviderOptions `json:"embedding" mapstructure:"embedding"`

	// ChatOptions contains chat provider configuration.
	ChatOptions *llmopts.ProviderOptions `json:"chat" mapstructure:"chat"`

	// CourseChatOptions contains retrieval and ingestion configuration.
	CourseChatOptions *ccopts.Options `json:"coursechat" mapstructure:"coursechat"`

	// CacheOptions contains query and embedding cache configuration.
	CacheOptions *cacheopts.Options `json:"cache" mapstructure:"cache"`
}

// NewServerOptions creates a ServerOptions instance with default values.
func NewServerOptions() *ServerOptions {
	httpOpts := httpopts.NewOptions()
	httpOpts.Addr = ":8000"

	return &ServerOptions{
		HTTPOptions:       httpOpts,
		LogOptions:        logopts.NewOptions(),
		MilvusOptions:     milvusopts.NewOptions(),
		EmbeddingOptions:  llmopts.NewEmbeddingOptions(),
		ChatOptions:       llmopts.NewChatOptions(),
		CourseChatOptions: ccopts.NewOptions(),
		CacheOptions:      cacheopts.NewOptions(),
	}
}

// Flags returns flags for a specific server by section name.
func (o *ServerOptions) Flags() (fss cliflag.NamedFlagSets) {
	o.HTTPOptions.AddFlags(fss.FlagSet("http"))
	o.LogOptions.AddFlags(fss.FlagSet("log"))
	o.MilvusOptions.AddFlags(fss.FlagSet("milvus"), "milvus.")
	o.EmbeddingOptions.AddFlags(fss.FlagSet("embedding"), "embedding.")
	o.ChatOptions.AddFlags(fss.FlagSet("chat"), "chat.")
	o.CourseChatOptions.AddFlags(fss.FlagSet("coursechat"))
	o.CacheOptions.AddFlags(fss.FlagSet("cache"), "cache.")

	return fss
}

// Complete completes all the required options.
func (o *ServerOptions) Complete() error {
	if err := o.HTTPOptions.Complete(); err != nil {
		return err
	}
	if err := o.EmbeddingOptions.Complete(); err != nil {
		return fmt.Errorf("embedding: %w", err)
	}
	if err := o.ChatOptions.Complete(); err != nil {
		return fmt.Errorf("chat: %w", err)
	}
	if err := o.CourseChatOptions.Complete(); err != nil {
		return fmt.Errorf("coursechat: %w", err)
	}
	if err := o.CacheOptions.Complete(); err != nil {
		return fmt.Errorf("cache: %w", err)
	}
	return nil
}

// Validate checks whether the options in ServerOptions are valid.
func (o *ServerOptions) Validate() error {
	errs := []error{}

	if err := o.HTTPOptions.Validate(); err != nil {
		errs = append(errs, err)
	}
	if err := o.LogOptions.Validate(); err != nil {
		errs = append(errs, err)
	}
	errs = append(errs, o.MilvusOptions.Validate()...)
	errs = append(errs, o.EmbeddingOptions.Validate()...)
	errs = append(errs, o.ChatOptions.Validate()...)
	errs = append(errs, o.CourseChatOptions.Validate()...)
	errs = append(errs, o.CacheOptions.Validate()...)

	return utilerrors.NewAggregate(errs)
}

// Config builds a coursechatsvc.Config based on ServerOptions.
func (o *ServerOptions) Config() (*coursechatsvc.Config, error) {
	return &coursechatsvc.Config{
		HTTPOptions:       o.HTTPOptions,
		LogOptions:        o.LogOptions,
		MilvusOptions:     o.MilvusOptions,
		EmbeddingOptions:  o.EmbeddingOptions,
		ChatOptions:       o.ChatOptions,
		CourseChatOptions: o.CourseChatOptions,
		CacheOptions:      o.CacheOptions,
	}, nil
}
