package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/scriptwalk/api/schemas"
	"github.com/xkilldash9x/scriptwalk/internal/browser"
	"github.com/xkilldash9x/scriptwalk/internal/config"
	"github.com/xkilldash9x/scriptwalk/internal/interpreter"
	"github.com/xkilldash9x/scriptwalk/internal/observability"
	"github.com/xkilldash9x/scriptwalk/internal/reporting"
	"github.com/xkilldash9x/scriptwalk/internal/script"
	"github.com/xkilldash9x/scriptwalk/internal/store"
)

// session is the browser surface a run needs: the interpreter's capability
// plus initial navigation.
type session interface {
	schemas.Browser
	Navigate(ctx context.Context, url string) error
}

// sessionFactory opens a browser session. The returned cleanup releases it.
type sessionFactory func(ctx context.Context, cfg config.Interface, logger *zap.Logger) (session, func(), error)

func defaultSessionFactory(ctx context.Context, cfg config.Interface, logger *zap.Logger) (session, func(), error) {
	manager := browser.NewManager(cfg, logger)
	cleanup := func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := manager.Shutdown(shutdownCtx); err != nil {
			logger.Warn("Error during browser manager shutdown", zap.Error(err))
		}
	}

	page, err := manager.NewPage(ctx)
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("failed to open browser page: %w", err)
	}
	return page, cleanup, nil
}

// runStore is the persistence surface used after a run.
type runStore interface {
	EnsureSchema(ctx context.Context) error
	PersistRun(ctx context.Context, run *schemas.RunRecord) error
}

// storeProvider creates a runStore. It exists so tests can inject a fake
// instead of a live database connection.
type storeProvider interface {
	Create(ctx context.Context, cfg config.Interface) (runStore, func(), error)
}

type defaultStoreProvider struct{}

// NewStoreProvider returns the PostgreSQL-backed provider.
func NewStoreProvider() storeProvider {
	return &defaultStoreProvider{}
}

func (p *defaultStoreProvider) Create(ctx context.Context, cfg config.Interface) (runStore, func(), error) {
	logger := observability.GetLogger()
	s, closePool, err := store.Connect(ctx, cfg.Database().URL, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	cleanup := func() {
		closePool()
		logger.Debug("Database connection pool closed.")
	}
	return s, cleanup, nil
}

// newRunCmd creates and configures the `run` command.
func newRunCmd(factory sessionFactory, provider storeProvider) *cobra.Command {
	runCmd := &cobra.Command{
		Use:   "run <url> <script>",
		Short: "Open a page and execute a script against it",
		Long: `Launches Chrome, navigates to the URL and walks the script's top-level
operations in order. Captures and snapshots are written to the output
directory even when the run fails, and persisted to PostgreSQL when
database.url (SCRIPTWALK_DATABASE_URL) is set.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := observability.GetLogger()

			cfg, err := getConfigFromContext(ctx)
			if err != nil {
				return err
			}
			applyRunFlagOverrides(cmd, cfg)

			return runScript(ctx, logger, cfg, args[0], args[1], factory, provider, cmd)
		},
	}

	runCmd.Flags().Bool("headless", true, "Run Chrome without a visible window. (Overrides config/env)")
	runCmd.Flags().String("proxy", "", "Proxy server for the browser, e.g. http://127.0.0.1:8080. (Overrides config/env)")
	runCmd.Flags().StringP("output", "o", "", "Directory for run results. (Overrides config/env)")
	runCmd.Flags().StringP("format", "f", "", "Captures file format: json, yaml or xml. (Overrides config/env)")
	return runCmd
}

// applyRunFlagOverrides copies explicitly set flags onto cfg.
func applyRunFlagOverrides(cmd *cobra.Command, cfg config.Interface) {
	if cmd.Flags().Changed("headless") {
		headless, _ := cmd.Flags().GetBool("headless")
		cfg.SetBrowserHeadless(headless)
	}
	if cmd.Flags().Changed("proxy") {
		proxy, _ := cmd.Flags().GetString("proxy")
		cfg.SetBrowserProxy(proxy)
	}
	if cmd.Flags().Changed("output") {
		dir, _ := cmd.Flags().GetString("output")
		cfg.SetOutputDir(dir)
	}
	if cmd.Flags().Changed("format") {
		format, _ := cmd.Flags().GetString("format")
		cfg.SetOutputFormat(strings.ToLower(format))
	}
}

// runScript executes one script run end to end. Results are always written
// out; the returned error is the run's first fatal error, if any.
func runScript(
	ctx context.Context,
	logger *zap.Logger,
	cfg config.Interface,
	url, scriptPath string,
	factory sessionFactory,
	provider storeProvider,
	cmd *cobra.Command,
) error {
	reporter, err := reporting.New(cfg.Output(), logger)
	if err != nil {
		return err
	}
	master, err := script.Load(scriptPath)
	if err != nil {
		return err
	}
	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") && !strings.HasPrefix(url, "file://") {
		url = "https://" + url
	}

	record := &schemas.RunRecord{
		ID:         uuid.NewString(),
		URL:        url,
		ScriptPath: scriptPath,
		StartedAt:  time.Now(),
	}
	logger.Info("Starting run",
		zap.String("run_id", record.ID),
		zap.String("url", url),
		zap.String("script", scriptPath))

	runErr := execute(ctx, logger, cfg, url, master, record, factory)
	record.FinishedAt = time.Now()
	if runErr != nil {
		record.Error = runErr.Error()
	}

	// Results are written even when the run was canceled.
	outCtx := context.WithoutCancel(ctx)
	runDir, err := reporter.Write(outCtx, record)
	if err != nil {
		return errors.Join(runErr, fmt.Errorf("failed to write results: %w", err))
	}

	if cfg.Database().URL != "" {
		if err := persist(outCtx, cfg, provider, record); err != nil {
			logger.Error("Failed to persist run", zap.Error(err), zap.String("run_id", record.ID))
			return errors.Join(runErr, err)
		}
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Run ID: %s\nResults: %s\n", record.ID, runDir)
	if runErr != nil {
		return fmt.Errorf("run %s failed: %w", record.ID, runErr)
	}
	return nil
}

func execute(
	ctx context.Context,
	logger *zap.Logger,
	cfg config.Interface,
	url string,
	master *script.Node,
	record *schemas.RunRecord,
	factory sessionFactory,
) error {
	sess, cleanup, err := factory(ctx, cfg, logger)
	if err != nil {
		return err
	}
	if cleanup != nil {
		defer cleanup()
	}

	if err := sess.Navigate(ctx, url); err != nil {
		return err
	}

	in := interpreter.New(sess, logger, interpreter.OptionsFromConfig(cfg.Interpreter()))
	result, err := in.Run(ctx, master)
	record.Result = result
	return err
}

func persist(ctx context.Context, cfg config.Interface, provider storeProvider, record *schemas.RunRecord) error {
	s, cleanup, err := provider.Create(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize store: %w", err)
	}
	if cleanup != nil {
		defer cleanup()
	}
	if err := s.EnsureSchema(ctx); err != nil {
		return err
	}
	return s.PersistRun(ctx, record)
}
