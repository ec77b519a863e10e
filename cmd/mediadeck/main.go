package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/avelinn/mediadeck/internal/config"
	"github.com/avelinn/mediadeck/internal/connector"
	"github.com/avelinn/mediadeck/internal/domain"
	"github.com/avelinn/mediadeck/internal/health"
	"github.com/avelinn/mediadeck/internal/logger"
	"github.com/avelinn/mediadeck/internal/metrics"
	"github.com/avelinn/mediadeck/internal/registry"
	"github.com/avelinn/mediadeck/internal/rollup"
	"github.com/avelinn/mediadeck/internal/server"
	"github.com/avelinn/mediadeck/internal/store"
)

var (
	// Version is set at build time
	Version = "dev"

	// Global flags
	configPath string
	cfg        *config.Config
	st         *store.Store
	log        logger.Logger
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "mediadeck",
		Short: "MediaDeck - Unified status dashboard for self-hosted media services",
		Long: `MediaDeck connects to self-hosted media backends (Sonarr, Radarr,
qBittorrent) through a common connector layer and aggregates their
health, library, and download-queue state into one view.`,
		Version: Version,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			cfg, err = config.Load(configPath)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid config: %w", err)
			}

			log = logger.New(cfg.LogLevel, cfg.LogPretty)

			// Auto-generate config file if it doesn't exist
			if _, err := os.Stat(configPath); os.IsNotExist(err) {
				log.Info("config file not found, creating default", logger.String("path", configPath))
				if err := cfg.Save(configPath); err != nil {
					log.Warn("failed to save default config", logger.Error(err))
				}
			}

			st, err = store.NewWithConfig(cfg.DatabasePath, store.Config{
				MaxOpenConns:    cfg.DBMaxOpenConns,
				MaxIdleConns:    cfg.DBMaxIdleConns,
				ConnMaxLifetime: cfg.DBConnMaxLifetime,
			})
			if err != nil {
				return fmt.Errorf("failed to open database: %w", err)
			}

			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if log != nil {
				_ = log.Sync()
			}
			if st != nil {
				return st.Close()
			}
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "/appdata/config/mediadeck.yaml", "Path to configuration file")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		RunE:  runServe,
	}

	servicesCmd := &cobra.Command{
		Use:   "services",
		Short: "Manage configured services",
	}

	servicesListCmd := &cobra.Command{
		Use:   "list",
		Short: "List configured services",
		RunE:  runServicesList,
	}

	servicesAddCmd := &cobra.Command{
		Use:   "add",
		Short: "Add a service",
		RunE:  runServicesAdd,
	}
	servicesAddCmd.Flags().StringP("kind", "k", "", "Service kind (sonarr, radarr, qbittorrent)")
	servicesAddCmd.Flags().StringP("name", "n", "", "Display name")
	servicesAddCmd.Flags().StringP("url", "u", "", "Base URL, e.g. http://localhost:8989")
	servicesAddCmd.Flags().String("api-key", "", "API key (Sonarr/Radarr)")
	servicesAddCmd.Flags().String("username", "", "Username (qBittorrent)")
	servicesAddCmd.Flags().String("password", "", "Password (qBittorrent)")
	servicesAddCmd.Flags().Int64("timeout-ms", 0, "Per-request timeout in milliseconds")
	servicesAddCmd.Flags().Bool("disabled", false, "Add the service in a disabled state")

	servicesRemoveCmd := &cobra.Command{
		Use:   "remove <id>",
		Short: "Remove a service",
		Args:  cobra.ExactArgs(1),
		RunE:  runServicesRemove,
	}

	servicesTestCmd := &cobra.Command{
		Use:   "test <id>",
		Short: "Test connectivity to a service",
		Args:  cobra.ExactArgs(1),
		RunE:  runServicesTest,
	}

	servicesCmd.AddCommand(servicesListCmd, servicesAddCmd, servicesRemoveCmd, servicesTestCmd)

	healthCmd := &cobra.Command{
		Use:   "health",
		Short: "Probe all enabled services and print the health overview",
		RunE:  runHealth,
	}

	downloadsCmd := &cobra.Command{
		Use:   "downloads",
		Short: "Summarize download queues across all clients",
		RunE:  runDownloads,
	}

	libraryCmd := &cobra.Command{
		Use:   "library",
		Short: "Summarize library contents across all media managers",
		RunE:  runLibrary,
	}

	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
	}

	configValidateCmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate configuration",
		RunE:  runConfigValidate,
	}

	configShowCmd := &cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		RunE:  runConfigShow,
	}

	configCmd.AddCommand(configValidateCmd, configShowCmd)

	rootCmd.AddCommand(serveCmd, servicesCmd, healthCmd, downloadsCmd, libraryCmd, configCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// buildRegistry creates the connector registry and reconciles it against the
// persisted configurations.
func buildRegistry(ctx context.Context) (*registry.Registry, *connector.Factory, error) {
	factory := connector.NewFactory()
	reg := registry.New(factory)
	if err := reg.Load(ctx, st); err != nil {
		return nil, nil, fmt.Errorf("failed to load connectors: %w", err)
	}
	return reg, factory, nil
}

func buildAggregator(reg *registry.Registry, m *metrics.Metrics) *health.Aggregator {
	return health.NewAggregator(st, reg, m, log, health.Options{
		ProbeTimeout:     cfg.ProbeTimeout,
		LatencyThreshold: cfg.LatencyThreshold,
		CacheTTL:         cfg.StatusCacheTTL,
	})
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg, factory, err := buildRegistry(ctx)
	if err != nil {
		return err
	}

	m := metrics.New()
	agg := buildAggregator(reg, m)
	srv := server.New(cfg, st, reg, factory, agg, m, log, Version)

	log.Info("starting mediadeck", logger.String("version", Version))

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Run(ctx)
	})
	g.Go(func() error {
		// Periodic reconcile picks up configuration changes made outside
		// the API, e.g. by the CLI against the same database.
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
				if err := reg.Load(ctx, st); err != nil {
					log.Warn("registry reconcile failed", logger.Error(err))
				}
			}
		}
	})

	return g.Wait()
}

func runServicesList(cmd *cobra.Command, args []string) error {
	configs, err := st.ListConfigs(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to list services: %w", err)
	}

	if len(configs) == 0 {
		fmt.Println("No services configured.")
		return nil
	}

	fmt.Printf("%-36s  %-12s  %-20s  %-8s  %s\n", "ID", "KIND", "NAME", "ENABLED", "URL")
	for _, sc := range configs {
		fmt.Printf("%-36s  %-12s  %-20s  %-8t  %s\n", sc.ID, sc.Kind, sc.Name, sc.Enabled, sc.BaseURL)
	}
	return nil
}

func runServicesAdd(cmd *cobra.Command, args []string) error {
	kindStr, _ := cmd.Flags().GetString("kind")
	name, _ := cmd.Flags().GetString("name")
	baseURL, _ := cmd.Flags().GetString("url")
	apiKey, _ := cmd.Flags().GetString("api-key")
	username, _ := cmd.Flags().GetString("username")
	password, _ := cmd.Flags().GetString("password")
	timeoutMs, _ := cmd.Flags().GetInt64("timeout-ms")
	disabled, _ := cmd.Flags().GetBool("disabled")

	kind, err := domain.ParseKind(kindStr)
	if err != nil {
		return err
	}

	sc := domain.ServiceConfig{
		Kind:    kind,
		Name:    name,
		BaseURL: baseURL,
		Credential: domain.Credential{
			APIKey:   apiKey,
			Username: username,
			Password: password,
		},
		Enabled: !disabled,
	}
	if timeoutMs > 0 {
		sc.Timeout = time.Duration(timeoutMs) * time.Millisecond
	}

	saved, err := st.SaveConfig(cmd.Context(), sc)
	if err != nil {
		return fmt.Errorf("failed to save service: %w", err)
	}

	fmt.Printf("Added %s service %q with id %s\n", saved.Kind, saved.Name, saved.ID)
	return nil
}

func runServicesRemove(cmd *cobra.Command, args []string) error {
	id := args[0]
	if err := st.DeleteConfig(cmd.Context(), id); err != nil {
		return fmt.Errorf("failed to remove service: %w", err)
	}

	fmt.Printf("Removed service %s\n", id)
	return nil
}

func runServicesTest(cmd *cobra.Command, args []string) error {
	sc, err := st.GetConfig(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("failed to load service: %w", err)
	}

	factory := connector.NewFactory()
	conn, err := factory.Create(sc)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), cfg.ProbeTimeout)
	defer cancel()

	result := conn.TestConnection(ctx)
	if result.Success {
		fmt.Printf("Connection OK: %s %s", sc.Kind, sc.Name)
		if result.Latency != nil {
			fmt.Printf(" (%dms)", *result.Latency)
		}
		if result.Version != "" {
			fmt.Printf(" version %s", result.Version)
		}
		fmt.Println()
		return nil
	}

	return fmt.Errorf("connection test failed: %s", result.Message)
}

func runHealth(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	reg, _, err := buildRegistry(ctx)
	if err != nil {
		return err
	}

	agg := buildAggregator(reg, nil)
	overview, records, err := agg.ComputeOverview(ctx)
	if err != nil {
		return fmt.Errorf("failed to compute overview: %w", err)
	}

	fmt.Printf("%-36s  %-10s  %s\n", "SERVICE", "STATUS", "DESCRIPTION")
	for _, rec := range records {
		fmt.Printf("%-36s  %-10s  %s\n", rec.ServiceID, rec.Status, rec.StatusDescription)
	}

	fmt.Printf("\nTotal: %d  Online: %d  Degraded: %d  Offline: %d  Disabled: %d  Pending: %d\n",
		overview.Total, overview.Online, overview.Degraded, overview.Offline,
		overview.Disabled, overview.PendingConfigs)
	return nil
}

func runDownloads(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	reg, _, err := buildRegistry(ctx)
	if err != nil {
		return err
	}

	summary := rollup.Downloads(ctx, reg, log)
	out, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

func runLibrary(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	reg, _, err := buildRegistry(ctx)
	if err != nil {
		return err
	}

	summary := rollup.Library(ctx, reg, log)
	out, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration is invalid: %w", err)
	}

	fmt.Println("Configuration is valid.")
	return nil
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	out, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	fmt.Print(string(out))
	return nil
}
