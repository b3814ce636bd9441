package challengeq

import (
	"errors"
	"regexp"

	"go.uber.org/zap"

	"github.com/authkit-dev/challengeq/claim"
)

// Builder assembles a [Manager] from a Config and its collaborators.
//
// Builder instances are intended to be configured during initialization and
// then treated as immutable unless documented otherwise.
type Builder struct {
	config Config

	catalog CatalogStore
	attrs   UserAttributeStore
	events  EventSink
	logger  *zap.Logger

	built bool
}

// New returns a Builder carrying the default configuration.
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig replaces the builder's configuration. Zero-valued claim URIs
// are derived from the dialect at Build time.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithCatalogStore sets the question-catalog backend. Required.
func (b *Builder) WithCatalogStore(store CatalogStore) *Builder {
	b.catalog = store
	return b
}

// WithAttributeStore sets the user-attribute backend. Required.
func (b *Builder) WithAttributeStore(store UserAttributeStore) *Builder {
	b.attrs = store
	return b
}

// WithEventSink sets the sink notified around answer writes. Optional;
// defaults to [NoOpSink].
func (b *Builder) WithEventSink(sink EventSink) *Builder {
	b.events = sink
	return b
}

// WithLogger sets the structured logger. Optional; defaults to a no-op
// logger.
func (b *Builder) WithLogger(logger *zap.Logger) *Builder {
	b.logger = logger
	return b
}

// Build validates the configuration and returns a ready [Manager]. A Builder
// can be used once.
func (b *Builder) Build() (*Manager, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)

	if cfg.Claims.AnswersClaim == "" {
		cfg.Claims.AnswersClaim = cfg.Claims.Dialect + "/challengeQuestionUris"
	}
	if cfg.Claims.LocaleClaim == "" {
		cfg.Claims.LocaleClaim = cfg.Claims.Dialect + "/locality"
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if b.catalog == nil {
		return nil, errors.New("catalog store required")
	}
	if b.attrs == nil {
		return nil, errors.New("attribute store required")
	}

	var invalidLocale *regexp.Regexp
	if cfg.Locale.InvalidPattern != "" {
		re, err := regexp.Compile(cfg.Locale.InvalidPattern)
		if err != nil {
			return nil, err
		}
		invalidLocale = re
	}

	events := b.events
	if events == nil {
		events = NoOpSink{}
	}
	logger := b.logger
	if logger == nil {
		logger = zap.NewNop()
	}

	m := &Manager{
		config:        cfg,
		catalog:       b.catalog,
		attrs:         b.attrs,
		events:        events,
		logger:        logger,
		codec:         claim.NewCodec(cfg.Claims.Separator),
		invalidLocale: invalidLocale,
	}

	b.built = true

	return m, nil
}
