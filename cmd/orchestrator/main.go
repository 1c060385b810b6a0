// File: cmd/orchestrator/main.go
package main

import (
	"context"
	"fmt"
	"log"
	"math/big"
	"os"
	"os/signal"
	"syscall"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/smartdevs17/rsk-readiness-orchestrator/internal/alert"
	"github.com/smartdevs17/rsk-readiness-orchestrator/internal/config"
	"github.com/smartdevs17/rsk-readiness-orchestrator/internal/connection"
	"github.com/smartdevs17/rsk-readiness-orchestrator/internal/emergency"
	"github.com/smartdevs17/rsk-readiness-orchestrator/internal/metrics"
	"github.com/smartdevs17/rsk-readiness-orchestrator/internal/models"
	"github.com/smartdevs17/rsk-readiness-orchestrator/internal/monitor"
	"github.com/smartdevs17/rsk-readiness-orchestrator/internal/orchestrator"
	"github.com/smartdevs17/rsk-readiness-orchestrator/internal/phases"
	"github.com/smartdevs17/rsk-readiness-orchestrator/internal/registry"
	"github.com/smartdevs17/rsk-readiness-orchestrator/internal/server"
	"github.com/smartdevs17/rsk-readiness-orchestrator/internal/storage"
	"github.com/smartdevs17/rsk-readiness-orchestrator/pkg/utils"
)

// AppVersion contains the application version
const AppVersion = "1.0.0"

// Application wires the orchestrator's components together
type Application struct {
	config       *config.Config
	logger       *logrus.Logger
	connection   *connection.ConnectionManager
	storage      storage.Storage
	registry     *registry.Registry
	monitor      *monitor.HealthMonitor
	scheduler    *monitor.Scheduler
	dispatcher   *alert.Dispatcher
	controller   *emergency.Controller
	orchestrator *orchestrator.Orchestrator
	server       *server.HTTPServer
	metrics      *metrics.Manager
	ctx          context.Context
	cancel       context.CancelFunc
}

// NewApplication creates a new application instance
func NewApplication(cfg *config.Config) (*Application, error) {
	ctx, cancel := context.WithCancel(context.Background())

	app := &Application{
		config: cfg,
		ctx:    ctx,
		cancel: cancel,
	}

	if err := app.initializeLogger(); err != nil {
		cancel()
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	if err := app.initializeComponents(); err != nil {
		cancel()
		return nil, fmt.Errorf("failed to initialize components: %w", err)
	}

	return app, nil
}

// initializeLogger initializes the application logger
func (app *Application) initializeLogger() error {
	logCfg := app.config.Logging

	if err := utils.InitLogger(logCfg.Level, logCfg.Format, logCfg.Output, logCfg.File); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	app.logger = utils.GetLogger()
	app.logger.WithFields(logrus.Fields{
		"level":  logCfg.Level,
		"format": logCfg.Format,
	}).Info("Logger initialized")

	return nil
}

// initializeComponents initializes all application components
func (app *Application) initializeComponents() error {
	app.logger.Info("Initializing application components")

	if err := app.initializeConnection(); err != nil {
		return fmt.Errorf("failed to initialize connection: %w", err)
	}

	if err := app.initializeStorage(); err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}

	if err := app.initializeRegistry(); err != nil {
		return fmt.Errorf("failed to initialize registry: %w", err)
	}

	app.metrics = metrics.NewManager()
	app.connection.SetMetricsManager(app.metrics)

	if err := app.initializeAlerts(); err != nil {
		return fmt.Errorf("failed to initialize alerts: %w", err)
	}

	if err := app.initializeMonitoring(); err != nil {
		return fmt.Errorf("failed to initialize monitoring: %w", err)
	}

	if err := app.initializeOrchestrator(); err != nil {
		return fmt.Errorf("failed to initialize orchestrator: %w", err)
	}

	if err := app.initializeServer(); err != nil {
		return fmt.Errorf("failed to initialize server: %w", err)
	}

	app.logger.Info("All components initialized successfully")
	return nil
}

// initializeConnection initializes the connection manager and the
// optional privileged signer
func (app *Application) initializeConnection() error {
	app.logger.Info("Initializing connection manager")

	var signer *connection.Signer
	if app.config.RSK.SignerKeyFile != "" {
		var err error
		signer, err = connection.LoadSigner(app.config.RSK.SignerKeyFile, app.config.RSK.NetworkID)
		if err != nil {
			return fmt.Errorf("failed to load signer key: %w", err)
		}
		app.logger.WithField("address", signer.Address().Hex()).Info("Privileged signer loaded")
	} else {
		app.logger.Warn("No signer key configured; running read-only")
	}

	app.connection = connection.NewConnectionManager(&app.config.RSK, signer)
	return nil
}

// initializeStorage initializes the storage layer
func (app *Application) initializeStorage() error {
	app.logger.Info("Initializing storage layer")

	store, err := storage.NewStorage(&app.config.Storage)
	if err != nil {
		return fmt.Errorf("failed to create storage: %w", err)
	}

	if err := store.Connect(); err != nil {
		return fmt.Errorf("failed to connect to storage: %w", err)
	}

	if err := store.Migrate(); err != nil {
		return fmt.Errorf("failed to run storage migrations: %w", err)
	}

	app.storage = store
	app.logger.Info("Storage layer initialized successfully")
	return nil
}

// initializeRegistry loads the contract registry
func (app *Application) initializeRegistry() error {
	reg, err := registry.Load(app.config.Registry.Path)
	if err != nil {
		return err
	}

	app.registry = reg
	return nil
}

// initializeAlerts initializes the alert dispatcher and its channels
func (app *Application) initializeAlerts() error {
	app.logger.Info("Initializing alert dispatcher")

	app.dispatcher = alert.NewDispatcher(&alert.DispatcherConfig{
		Cooldown: app.config.Alerts.Cooldown,
		Network:  app.config.RSK.NetworkName,
	}, app.storage)
	app.dispatcher.SetMetricsManager(app.metrics)

	if app.config.Alerts.EnableWebhook && app.config.Alerts.WebhookURL != "" {
		app.dispatcher.AddChannel(alert.NewWebhookChannel(&alert.WebhookChannelConfig{
			URL:           app.config.Alerts.WebhookURL,
			Timeout:       app.config.Alerts.WebhookTimeout,
			RetryAttempts: app.config.Alerts.RetryAttempts,
			RetryDelay:    app.config.Alerts.RetryDelay,
		}))
	}

	if app.config.Alerts.EnableEmail && app.config.Alerts.SMTPHost != "" {
		app.dispatcher.AddChannel(alert.NewEmailChannel(&alert.EmailChannelConfig{
			SMTPHost: app.config.Alerts.SMTPHost,
			SMTPPort: app.config.Alerts.SMTPPort,
			Username: app.config.Alerts.SMTPUsername,
			Password: app.config.Alerts.SMTPPassword,
			From:     app.config.Alerts.EmailFrom,
			To:       app.config.Alerts.EmailTo,
		}))
	}

	return nil
}

// initializeMonitoring initializes the health monitor, the emergency
// controller and the poll scheduler
func (app *Application) initializeMonitoring() error {
	app.logger.Info("Initializing health monitoring")

	balanceThreshold, ok := new(big.Int).SetString(app.config.Monitor.BalanceThreshold, 10)
	if !ok {
		return fmt.Errorf("invalid balance threshold: %s", app.config.Monitor.BalanceThreshold)
	}
	gasPriceThreshold, ok := new(big.Int).SetString(app.config.Monitor.GasPriceThreshold, 10)
	if !ok {
		return fmt.Errorf("invalid gas price threshold: %s", app.config.Monitor.GasPriceThreshold)
	}

	app.monitor = monitor.NewHealthMonitor(app.connection, app.registry, &monitor.MonitorConfig{
		BalanceThreshold:  balanceThreshold,
		GasPriceThreshold: gasPriceThreshold,
		CheckTimeout:      app.config.Monitor.CheckTimeout,
	})
	app.monitor.SetMetricsManager(app.metrics)

	app.controller = emergency.NewController(app.connection, app.registry, app.dispatcher, app.storage, &emergency.ControllerConfig{
		MaxAutomatedActions: app.config.Emergency.MaxAutomatedActions,
		RetryBackoff:        app.config.Emergency.RetryBackoff,
		ActionTimeout:       app.config.Emergency.ActionTimeout,
	})
	app.controller.SetMetricsManager(app.metrics)

	app.scheduler = monitor.NewScheduler(&monitor.SchedulerConfig{
		PollInterval:        app.config.Monitor.PollInterval,
		SnapshotRetain:      app.config.Storage.SnapshotRetain,
		BudgetResetInterval: app.config.Emergency.BudgetResetInterval,
	}, app.monitor, app.dispatcher, app.controller, app.storage)

	return nil
}

// initializeOrchestrator assembles the readiness phases in their fixed
// execution order
func (app *Application) initializeOrchestrator() error {
	app.logger.Info("Initializing orchestrator")

	verifier := phases.NewExplorerVerifier(
		app.config.Phases.VerifierURL,
		app.config.Phases.VerifierAPIKey,
		app.config.Phases.VerifierTimeout,
	)

	phaseList := []phases.Phase{
		phases.NewVerificationPhase(app.registry, verifier),
		phases.NewOwnershipPhase(app.registry, app.connection, common.HexToAddress(app.config.Phases.MultisigAddress)),
		orchestrator.NewMonitoringActivationPhase(app.monitor, app.dispatcher, app.storage),
		orchestrator.NewEmergencyConfigurationPhase(app.registry, app.connection, app.dispatcher),
	}

	app.orchestrator = orchestrator.NewOrchestrator(&orchestrator.OrchestratorConfig{
		Network:             app.config.RSK.NetworkName,
		PhaseTimeout:        app.config.Phases.PhaseTimeout,
		FailedPhaseFraction: app.config.Phases.FailedPhaseFraction,
	}, phaseList, app.storage, orchestrator.NewReportWriter(app.config.Report.OutputDir))
	app.orchestrator.SetMetricsManager(app.metrics)

	return nil
}

// initializeServer initializes the HTTP server
func (app *Application) initializeServer() error {
	app.logger.Info("Initializing HTTP server")

	serverCfg := &server.ServerConfig{
		Port:          app.config.Server.Port,
		Host:          app.config.Server.Host,
		ReadTimeout:   app.config.Server.ReadTimeout,
		WriteTimeout:  app.config.Server.WriteTimeout,
		EnableMetrics: app.config.Server.EnableMetrics,
		EnableHealth:  app.config.Server.EnableHealth,
	}

	var err error
	app.server, err = server.NewHTTPServer(serverCfg, app.storage, app.registry, app.connection, app.controller, app.metrics)
	if err != nil {
		return fmt.Errorf("failed to create HTTP server: %w", err)
	}

	return nil
}

// RunOrchestration executes one readiness run and returns the report
func (app *Application) RunOrchestration() *models.OperationReport {
	return app.orchestrator.Run(app.ctx)
}

// StartMonitoring starts the HTTP server and the poll loop
func (app *Application) StartMonitoring() error {
	if err := app.server.Start(); err != nil {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}

	if err := app.scheduler.Start(app.ctx); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}

	app.logger.WithFields(logrus.Fields{
		"server_address": fmt.Sprintf("%s:%d", app.config.Server.Host, app.config.Server.Port),
		"rsk_endpoint":   app.config.RSK.NodeURL,
		"contracts":      app.registry.Len(),
	}).Info("Readiness orchestrator started")

	return nil
}

// Stop stops the application gracefully
func (app *Application) Stop() error {
	app.logger.Info("Stopping readiness orchestrator")

	app.cancel()

	if app.server != nil {
		if err := app.server.Stop(); err != nil {
			app.logger.WithError(err).Error("Failed to stop HTTP server")
		}
	}

	if app.scheduler != nil {
		if err := app.scheduler.Stop(); err != nil {
			app.logger.WithError(err).Error("Failed to stop scheduler")
		}
	}

	if app.storage != nil {
		if err := app.storage.Close(); err != nil {
			app.logger.WithError(err).Error("Failed to close storage")
		}
	}

	if app.connection != nil {
		if err := app.connection.Close(); err != nil {
			app.logger.WithError(err).Error("Failed to close connection")
		}
	}

	app.logger.Info("Readiness orchestrator stopped")
	return nil
}

// CLI Commands

// rootCmd runs the full readiness flow: one orchestration run followed
// by continuous monitoring
var rootCmd = &cobra.Command{
	Use:     "rsk-readiness-orchestrator",
	Short:   "RSK Production Readiness Orchestrator",
	Long:    `Coordinates the production launch of deployed Rootstock (RSK) smart contracts: source verification, ownership transfer, monitoring activation and emergency response configuration.`,
	Version: AppVersion,
	RunE:    runService,
}

// runService runs the orchestration and then stays up monitoring
func runService(cmd *cobra.Command, args []string) error {
	app, err := buildApplication()
	if err != nil {
		return err
	}

	report := app.RunOrchestration()
	printReportSummary(report)

	if err := app.StartMonitoring(); err != nil {
		return fmt.Errorf("failed to start monitoring: %w", err)
	}

	waitForSignal()

	return app.Stop()
}

// runCmd executes a single orchestration run and exits
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Execute one readiness orchestration run and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := buildApplication()
		if err != nil {
			return err
		}
		defer app.Stop()

		report := app.RunOrchestration()
		printReportSummary(report)

		strict, _ := cmd.Flags().GetBool("strict")
		return verdictError(strict, report)
	},
}

// verdictError maps the run verdict to the exit policy: a run that
// produced a report exits zero, phase failures and all. Strict mode
// opts in to a non-zero exit on a failed verdict.
func verdictError(strict bool, report *models.OperationReport) error {
	if strict && report.OverallStatus == models.OverallFailed {
		return fmt.Errorf("readiness run failed")
	}
	return nil
}

// monitorCmd runs the monitoring loop without a readiness run
var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Run continuous health monitoring without an orchestration run",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := buildApplication()
		if err != nil {
			return err
		}

		if err := app.StartMonitoring(); err != nil {
			return fmt.Errorf("failed to start monitoring: %w", err)
		}

		waitForSignal()

		return app.Stop()
	},
}

// pauseAllCmd triggers an operator-initiated pause of every pauseable
// contract
var pauseAllCmd = &cobra.Command{
	Use:   "pause-all",
	Short: "Pause every registered contract that supports pausing",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := buildApplication()
		if err != nil {
			return err
		}
		defer app.Stop()

		actions := app.controller.PauseAll(app.ctx)
		for _, action := range actions {
			fmt.Printf("%-30s %-10s %s", action.Target.Name, action.Outcome, action.Reason)
			if action.TxHash != "" {
				fmt.Printf(" tx=%s", action.TxHash)
			}
			fmt.Println()
		}
		return nil
	},
}

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("RSK Readiness Orchestrator %s\n", AppVersion)
	},
}

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Configuration management commands",
}

// validateConfigCmd validates the configuration
var validateConfigCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration file",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return fmt.Errorf("configuration validation failed: %w", err)
		}

		fmt.Printf("Configuration is valid!\n")
		fmt.Printf("Environment: %s\n", cfg.App.Environment)
		fmt.Printf("RSK Node: %s\n", cfg.RSK.NodeURL)
		fmt.Printf("Network: %s\n", cfg.RSK.NetworkName)
		fmt.Printf("Database: %s\n", cfg.Storage.Type)
		fmt.Printf("Registry: %s\n", cfg.Registry.Path)

		return nil
	},
}

// buildApplication loads config and wires the application
func buildApplication() (*Application, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	app, err := NewApplication(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create application: %w", err)
	}
	return app, nil
}

// loadConfig loads and validates configuration
func loadConfig() (*config.Config, error) {
	configPath := viper.GetString("config")
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// printReportSummary prints a run summary to stdout
func printReportSummary(report *models.OperationReport) {
	fmt.Printf("\nReadiness run finished: %s\n", report.OverallStatus)
	for _, phase := range report.PhaseResults {
		fmt.Printf("  %-25s completed=%-5t %d/%d\n",
			phase.PhaseName, phase.Completed, phase.SucceededCount, phase.TotalCount)
	}
	for _, rec := range report.Recommendations {
		fmt.Printf("  recommendation: %s\n", rec)
	}
	fmt.Println()
}

// waitForSignal blocks until an interrupt or terminate signal arrives
func waitForSignal() {
	signalChan := make(chan os.Signal, 1)
	signal.Notify(signalChan, os.Interrupt, syscall.SIGTERM)
	<-signalChan
	fmt.Println("\nReceived shutdown signal, stopping application...")
}

// init initializes the CLI commands
func init() {
	rootCmd.PersistentFlags().StringP("config", "c", "", "config file path")
	rootCmd.PersistentFlags().StringP("log-level", "l", "info", "log level (debug, info, warn, error)")

	viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
	viper.BindPFlag("log-level", rootCmd.PersistentFlags().Lookup("log-level"))

	runCmd.Flags().Bool("strict", false, "exit non-zero when the run verdict is failed")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(monitorCmd)
	rootCmd.AddCommand(pauseAllCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(validateConfigCmd)
}

// main is the entry point
func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
