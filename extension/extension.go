// Package extension provides the Forge extension adapter for FundMe.
//
// It implements the forge.Extension interface to integrate FundMe
// into a Forge application with automatic dependency discovery,
// DI registration, and lifecycle management.
//
// Configuration can be provided programmatically via Option functions
// or via YAML configuration files under "extensions.fundme" or "fundme" keys.
package extension

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/xraph/forge"
	"github.com/xraph/vessel"

	"github.com/xraph/fundme"
	"github.com/xraph/fundme/api"
	"github.com/xraph/fundme/network"
	"github.com/xraph/fundme/observability"
	"github.com/xraph/fundme/oracle/chainlink"
	"github.com/xraph/fundme/publisher"
	"github.com/xraph/fundme/store"
	"github.com/xraph/fundme/store/memory"
)

// ExtensionName is the name registered with Forge.
const ExtensionName = "fundme"

// ExtensionDescription is the human-readable description.
const ExtensionDescription = "Time-boxed crowdfunding ledger with an owner sweep"

// ExtensionVersion is the semantic version.
const ExtensionVersion = "0.1.0"

// Ensure Extension implements forge.Extension at compile time.
var _ forge.Extension = (*Extension)(nil)

// Extension adapts FundMe as a Forge extension.
type Extension struct {
	*forge.BaseExtension

	config      Config
	engine      *fundme.Engine
	store       store.Store
	engineOpts  []fundme.Option
	api         *api.Handler
	handler     http.Handler
	closeOracle func()
}

// New creates a new FundMe Forge extension with the given options.
func New(opts ...Option) *Extension {
	e := &Extension{
		BaseExtension: forge.NewBaseExtension(ExtensionName, ExtensionVersion, ExtensionDescription),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Engine returns the underlying FundMe engine.
// This is nil until Register is called.
func (e *Extension) Engine() *fundme.Engine { return e.engine }

// API returns the campaign API handler, or nil when routes are disabled.
// It is the instance provided to the container and mounted by Handler.
func (e *Extension) API() *api.Handler { return e.api }

// Handler returns the campaign API mounted under the base path, or nil when
// routes are disabled.
func (e *Extension) Handler() http.Handler { return e.handler }

// Register implements [forge.Extension]. It loads configuration,
// initializes the fundme engine, and registers it in the DI container.
func (e *Extension) Register(fapp forge.App) error {
	if err := e.BaseExtension.Register(fapp); err != nil {
		return err
	}

	if err := e.loadConfiguration(); err != nil {
		return err
	}

	// Use memory store if no store was provided programmatically.
	if e.store == nil {
		e.store = memory.New()
	}

	opts, err := e.buildEngineOpts(context.Background())
	if err != nil {
		return err
	}

	e.engine = fundme.New(e.store, opts...)

	if err := vessel.Provide(fapp.Container(), func() (*fundme.Engine, error) {
		return e.engine, nil
	}); err != nil {
		return err
	}

	if e.config.DisableRoutes {
		return nil
	}

	e.mountRoutes()

	return vessel.Provide(fapp.Container(), func() (*api.Handler, error) {
		return e.api, nil
	})
}

// mountRoutes builds the API handler once and mounts it under BasePath.
func (e *Extension) mountRoutes() {
	var opts []api.Option
	if e.config.EnableWrites {
		opts = append(opts, api.WithWrites())
	}
	e.api = api.New(e.engine, opts...)

	r := chi.NewRouter()
	r.Mount(e.config.BasePath, e.api)
	e.handler = r
}

// Start implements [forge.Extension].
func (e *Extension) Start(ctx context.Context) error {
	if e.engine == nil {
		return errors.New("fundme: extension not initialized")
	}

	if !e.config.DisableMigrate {
		if err := e.engine.Start(ctx); err != nil {
			return err
		}
	}

	e.MarkStarted()
	return nil
}

// Stop implements [forge.Extension].
func (e *Extension) Stop(_ context.Context) error {
	if e.closeOracle != nil {
		e.closeOracle()
	}
	if e.engine != nil {
		if err := e.engine.Stop(); err != nil {
			e.MarkStopped()
			return err
		}
	}
	e.MarkStopped()
	return nil
}

// Health implements [forge.Extension].
func (e *Extension) Health(ctx context.Context) error {
	if e.store == nil {
		return errors.New("fundme: store not initialized")
	}
	return e.store.Ping(ctx)
}

// buildEngineOpts resolves the price feed, publisher and metrics plugins
// from the config.
func (e *Extension) buildEngineOpts(ctx context.Context) ([]fundme.Option, error) {
	opts := make([]fundme.Option, 0, len(e.engineOpts)+3)

	n, err := network.Lookup(e.config.Network)
	if err != nil {
		return nil, err
	}
	feed, closeFeed, err := network.ResolveOracle(ctx, n, e.config.Oracle)
	if err != nil {
		return nil, fmt.Errorf("fundme: resolve oracle for %s: %w", n.Name, err)
	}
	e.closeOracle = closeFeed
	opts = append(opts, fundme.WithOracle(feed))

	if e.config.Publisher.URL != "" {
		pub, err := publisher.DialAMQP(e.config.Publisher)
		if err != nil {
			return nil, err
		}
		opts = append(opts, fundme.WithPlugin(publisher.New(pub)))
	}

	if e.config.Metrics {
		factory := observability.NewPrometheusFactory(nil)
		opts = append(opts, fundme.WithPlugin(observability.NewMetricsExtension(factory)))
	}

	// Pass-through options last so they can override the above.
	opts = append(opts, e.engineOpts...)

	return opts, nil
}

// --- Config Loading (mirrors grove/shield extension pattern) ---

// loadConfiguration loads config from YAML files or programmatic sources.
func (e *Extension) loadConfiguration() error {
	programmaticConfig := e.config

	// Try loading from config file.
	fileConfig, configLoaded := e.tryLoadFromConfigFile()

	if !configLoaded {
		if programmaticConfig.RequireConfig {
			return errors.New("fundme: configuration is required but not found in config files; " +
				"ensure 'extensions.fundme' or 'fundme' key exists in your config")
		}

		// Use programmatic config merged with defaults.
		e.config = mergeWithDefaults(programmaticConfig)
	} else {
		// Config loaded from YAML -- merge with programmatic options.
		e.config = mergeConfigurations(fileConfig, programmaticConfig)
	}

	e.Logger().Debug("fundme: configuration loaded",
		forge.F("disable_routes", e.config.DisableRoutes),
		forge.F("enable_writes", e.config.EnableWrites),
		forge.F("disable_migrate", e.config.DisableMigrate),
		forge.F("base_path", e.config.BasePath),
		forge.F("network", e.config.Network),
		forge.F("feed_address", e.config.Oracle.FeedAddress),
		forge.F("publisher", e.config.Publisher.URL != ""),
		forge.F("metrics", e.config.Metrics),
	)

	return nil
}

// tryLoadFromConfigFile attempts to load config from YAML files.
func (e *Extension) tryLoadFromConfigFile() (Config, bool) {
	cm := e.App().Config()
	var cfg Config

	// Try "extensions.fundme" first (namespaced pattern).
	if cm.IsSet("extensions.fundme") {
		if err := cm.Bind("extensions.fundme", &cfg); err == nil {
			e.Logger().Debug("fundme: loaded config from file",
				forge.F("key", "extensions.fundme"),
			)
			return cfg, true
		}
		e.Logger().Warn("fundme: failed to bind extensions.fundme config",
			forge.F("error", "bind failed"),
		)
	}

	// Try legacy "fundme" key.
	if cm.IsSet("fundme") {
		if err := cm.Bind("fundme", &cfg); err == nil {
			e.Logger().Debug("fundme: loaded config from file",
				forge.F("key", "fundme"),
			)
			return cfg, true
		}
		e.Logger().Warn("fundme: failed to bind fundme config",
			forge.F("error", "bind failed"),
		)
	}

	return Config{}, false
}

// mergeWithDefaults fills zero-valued fields with defaults.
func mergeWithDefaults(cfg Config) Config {
	defaults := DefaultConfig()
	if cfg.BasePath == "" {
		cfg.BasePath = defaults.BasePath
	}
	if cfg.Network == "" {
		cfg.Network = defaults.Network
	}
	cfg.Oracle = mergeOracle(cfg.Oracle, defaults.Oracle)
	if cfg.Publisher.URL != "" && cfg.Publisher.Exchange == "" {
		cfg.Publisher.Exchange = publisher.DefaultAMQPConfig().Exchange
	}
	return cfg
}

// mergeConfigurations merges YAML config with programmatic options.
// YAML config takes precedence for most fields; programmatic values fill gaps.
func mergeConfigurations(yamlConfig, programmaticConfig Config) Config {
	// Programmatic bool flags override when true.
	if programmaticConfig.DisableRoutes {
		yamlConfig.DisableRoutes = true
	}
	if programmaticConfig.DisableMigrate {
		yamlConfig.DisableMigrate = true
	}
	if programmaticConfig.Metrics {
		yamlConfig.Metrics = true
	}
	if programmaticConfig.EnableWrites {
		yamlConfig.EnableWrites = true
	}

	// String fields: YAML takes precedence.
	if yamlConfig.BasePath == "" {
		yamlConfig.BasePath = programmaticConfig.BasePath
	}
	if yamlConfig.Network == "" {
		yamlConfig.Network = programmaticConfig.Network
	}
	if yamlConfig.Publisher.URL == "" {
		yamlConfig.Publisher = programmaticConfig.Publisher
	}

	yamlConfig.Oracle = mergeOracle(yamlConfig.Oracle, programmaticConfig.Oracle)

	// Fill remaining zeros with defaults.
	return mergeWithDefaults(yamlConfig)
}

// mergeOracle fills zero fields of primary from fallback.
func mergeOracle(primary, fallback chainlink.Config) chainlink.Config {
	if primary.RPCURL == "" {
		primary.RPCURL = fallback.RPCURL
	}
	if primary.FeedAddress == "" {
		primary.FeedAddress = fallback.FeedAddress
	}
	if primary.Timeout == 0 {
		primary.Timeout = fallback.Timeout
	}
	if primary.MaxRetryTimes == 0 {
		primary.MaxRetryTimes = fallback.MaxRetryTimes
	}
	if primary.RetryInterval == 0 {
		primary.RetryInterval = fallback.RetryInterval
	}
	if primary.MaxAge == 0 {
		primary.MaxAge = fallback.MaxAge
	}
	if primary.BreakerFailures == 0 {
		primary.BreakerFailures = fallback.BreakerFailures
	}
	if primary.BreakerTimeout == 0 {
		primary.BreakerTimeout = fallback.BreakerTimeout
	}
	return primary
}
