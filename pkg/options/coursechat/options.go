// Package coursechat provides configuration options for the course
// materials assistant: chunking, retrieval, session and ingestion settings.
package coursechat

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"

	"github.com/coursechat-io/coursechat/pkg/options"
)

var _ options.IOptions = (*Options)(nil)

// Options contains the retrieval and ingestion configuration.
type Options struct {
	// ChunkSize is the maximum size of text chunks in characters.
	ChunkSize int `json:"chunk-size" mapstructure:"chunk-size"`

	// ChunkOverlap is the overlap between consecutive chunks in characters.
	ChunkOverlap int `json:"chunk-overlap" mapstructure:"chunk-overlap"`

	// MaxResults is the number of chunks returned from similarity search.
	MaxResults int `json:"max-results" mapstructure:"max-results"`

	// MaxHistory is the number of conversation exchanges kept per session.
	MaxHistory int `json:"max-history" mapstructure:"max-history"`

	// CatalogCollection is the Milvus collection holding course metadata.
	CatalogCollection string `json:"catalog-collection" mapstructure:"catalog-collection"`

	// ContentCollection is the Milvus collection holding course chunks.
	ContentCollection string `json:"content-collection" mapstructure:"content-collection"`

	// EmbeddingDim is the dimension of embedding vectors.
	EmbeddingDim int `json:"embedding-dim" mapstructure:"embedding-dim"`

	// DocsDir is the folder of course documents loaded on startup.
	DocsDir string `json:"docs-dir" mapstructure:"docs-dir"`

	// WatchDocs re-ingests documents when DocsDir changes.
	WatchDocs bool `json:"watch-docs" mapstructure:"watch-docs"`

	// SessionIdleTimeout is how long an idle session is kept in memory.
	SessionIdleTimeout time.Duration `json:"session-idle-timeout" mapstructure:"session-idle-timeout"`

	// MaxSessions caps the number of concurrent in-memory sessions.
	MaxSessions int `json:"max-sessions" mapstructure:"max-sessions"`

	// QueryTimeout bounds a single /api/query round trip.
	QueryTimeout time.Duration `json:"query-timeout" mapstructure:"query-timeout"`
}

// NewOptions creates new Options with defaults.
func NewOptions() *Options {
	return &Options{
		ChunkSize:          800,
		ChunkOverlap:       100,
		MaxResults:         5,
		MaxHistory:         2,
		CatalogCollection:  "course_catalog",
		ContentCollection:  "course_content",
		EmbeddingDim:       768,
		DocsDir:            "./docs",
		WatchDocs:          false,
		SessionIdleTimeout: 30 * time.Minute,
		MaxSessions:        1000,
		QueryTimeout:       60 * time.Second,
	}
}

// AddFlags adds flags for the options to the specified FlagSet.
func (o *Options) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.IntVar(&o.ChunkSize, options.Join(prefixes...)+"coursechat.chunk-size", o.ChunkSize, "Maximum size of text chunks in characters.")
	fs.IntVar(&o.ChunkOverlap, options.Join(prefixes...)+"coursechat.chunk-overlap", o.ChunkOverlap, "Overlap between consecutive chunks in characters.")
	fs.IntVar(&o.MaxResults, options.Join(prefixes...)+"coursechat.max-results", o.MaxResults, "Number of chunks returned from similarity search.")
	fs.IntVar(&o.MaxHistory, options.Join(prefixes...)+"coursechat.max-history", o.MaxHistory, "Number of conversation exchanges kept per session.")
	fs.StringVar(&o.CatalogCollection, options.Join(prefixes...)+"coursechat.catalog-collection", o.CatalogCollection, "Milvus collection for course metadata.")
	fs.StringVar(&o.ContentCollection, options.Join(prefixes...)+"coursechat.content-collection", o.ContentCollection, "Milvus collection for course chunks.")
	fs.IntVar(&o.EmbeddingDim, options.Join(prefixes...)+"coursechat.embedding-dim", o.EmbeddingDim, "Embedding vector dimension.")
	fs.StringVar(&o.DocsDir, options.Join(prefixes...)+"coursechat.docs-dir", o.DocsDir, "Folder of course documents loaded on startup.")
	fs.BoolVar(&o.WatchDocs, options.Join(prefixes...)+"coursechat.watch-docs", o.WatchDocs, "Re-ingest documents when the docs folder changes.")
	fs.DurationVar(&o.SessionIdleTimeout, options.Join(prefixes...)+"coursechat.session-idle-timeout", o.SessionIdleTimeout, "How long an idle session is kept in memory.")
	fs.IntVar(&o.MaxSessions, options.Join(prefixes...)+"coursechat.max-sessions", o.MaxSessions, "Maximum number of concurrent in-memory sessions.")
	fs.DurationVar(&o.QueryTimeout, options.Join(prefixes...)+"coursechat.query-timeout", o.QueryTimeout, "Timeout for a single query round trip.")
}

// Validate validates the options.
func (o *Options) Validate() []error {
	if o == nil {
		return nil
	}

	var errs []error
	if o.ChunkSize <= 0 {
		errs = append(errs, fmt.Errorf("chunk-size must be positive"))
	}
	if o.ChunkOverlap < 0 || o.ChunkOverlap >= o.ChunkSize {
		errs = append(errs, fmt.Errorf("chunk-overlap must be non-negative and smaller than chunk-size"))
	}
	if o.MaxResults <= 0 {
		errs = append(errs, fmt.Errorf("max-results must be positive"))
	}
	if o.MaxHistory < 0 {
		errs = append(errs, fmt.Errorf("max-history must be non-negative"))
	}
	if o.EmbeddingDim <= 0 {
		errs = append(errs, fmt.Errorf("embedding-dim must be positive"))
	}
	if o.CatalogCollection == "" || o.ContentCollection == "" {
		errs = append(errs, fmt.Errorf("collection names are required"))
	}
	if o.MaxSessions <= 0 {
		errs = append(errs, fmt.Errorf("max-sessions must be positive"))
	}
	return errs
}

// Complete completes the options with defaults.
func (o *Options) Complete() error {
	if o.QueryTimeout <= 0 {
		o.QueryTimeout = 60 * time.Second
	}
	if o.SessionIdleTimeout <= 0 {
		o.SessionIdleTimeout = 30 * time.Minute
	}
	return nil
}
