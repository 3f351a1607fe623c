// Command fundmed serves FundMe campaigns over HTTP.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	"github.com/xraph/fundme"
	"github.com/xraph/fundme/api"
	"github.com/xraph/fundme/network"
	"github.com/xraph/fundme/observability"
	"github.com/xraph/fundme/oracle"
	"github.com/xraph/fundme/oracle/chainlink"
	"github.com/xraph/fundme/publisher"
	"github.com/xraph/fundme/store/memory"
	"github.com/xraph/fundme/types"
)

const (
	readTimeout  = 5 * time.Second
	writeTimeout = 10 * time.Second
	idleTimeout  = 60 * time.Second
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:          "fundmed",
		Short:        "FundMe crowdfunding ledger daemon",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to YAML config")

	root.AddCommand(serveCmd(&configPath))
	root.AddCommand(networksCmd())
	root.AddCommand(quoteCmd(&configPath))
	return root
}

func serveCmd(configPath *string) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Deploy configured campaigns and serve the API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := LoadConfig(*configPath)
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Addr = addr
			}
			return serve(cmd.Context(), cfg)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides config)")
	return cmd
}

func networksCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "networks",
		Short: "List known networks",
		RunE: func(cmd *cobra.Command, _ []string) error {
			for _, name := range network.Names() {
				n, _ := network.Lookup(name)
				feed := n.FeedAddress
				if n.Development {
					feed = "mock"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%-10s chain=%-9d feed=%s\n", n.Name, n.ChainID, feed)
			}
			return nil
		},
	}
}

func quoteCmd(configPath *string) *cobra.Command {
	var amount string

	cmd := &cobra.Command{
		Use:   "quote",
		Short: "Convert an ether amount to USD at the network's feed price",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := LoadConfig(*configPath)
			if err != nil {
				return err
			}
			wei, err := types.ParseEther(amount)
			if err != nil {
				return err
			}

			n, err := network.Lookup(cfg.Network)
			if err != nil {
				return err
			}
			feed, closeFeed, err := network.ResolveOracle(cmd.Context(), n, cfg.Oracle)
			if err != nil {
				return err
			}
			defer closeFeed()

			q, err := feed.Quote(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s ETH = %s USD (price %s)\n",
				wei.FormatEther(), oracle.ToUSD(wei, q).StringFixed(2), q.Price().String())
			return nil
		},
	}
	cmd.Flags().StringVar(&amount, "amount", "1", "amount in ether")
	return cmd
}

func serve(ctx context.Context, cfg Config) error {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.Level()}))

	n, err := network.Lookup(cfg.Network)
	if err != nil {
		return err
	}
	feed, closeFeed, err := network.ResolveOracle(ctx, n, cfg.Oracle, chainlink.WithLogger(logger))
	if err != nil {
		return err
	}
	defer closeFeed()

	reg := prometheus.NewRegistry()
	opts := []fundme.Option{
		fundme.WithLogger(logger),
		fundme.WithOracle(feed),
	}
	if cfg.Metrics {
		opts = append(opts, fundme.WithPlugin(
			observability.NewMetricsExtension(observability.NewPrometheusFactory(reg)),
		))
	}
	if cfg.Publisher.URL != "" {
		pub, err := publisher.DialAMQP(cfg.Publisher)
		if err != nil {
			return err
		}
		opts = append(opts, fundme.WithPlugin(publisher.New(pub, publisher.WithLogger(logger))))
	}

	engine := fundme.New(memory.New(), opts...)
	if err := engine.Start(ctx); err != nil {
		return err
	}
	defer engine.Stop()

	for _, cc := range cfg.Campaigns {
		p, _ := cc.Params()
		p.Network = n.Name
		if _, err := engine.Deploy(ctx, p); err != nil {
			return fmt.Errorf("deploy %q: %w", cc.Name, err)
		}
	}

	apiOpts := []api.Option{api.WithLogger(logger)}
	if cfg.Metrics {
		apiOpts = append(apiOpts, api.WithMetricsHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))
	}
	if cfg.RateLimit > 0 {
		apiOpts = append(apiOpts, api.WithRateLimit(rate.Limit(cfg.RateLimit), cfg.RateBurst))
	}
	if !cfg.ReadOnly {
		apiOpts = append(apiOpts, api.WithWrites())
	}

	server := &http.Server{
		Addr:         cfg.Addr,
		Handler:      api.New(engine, apiOpts...),
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
		IdleTimeout:  idleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("fundmed listening", "addr", cfg.Addr, "network", n.Name, "chain_id", n.ChainID)
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()
	logger.Info("fundmed shutting down")
	return server.Shutdown(shutdownCtx)
}
