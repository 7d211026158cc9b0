package cli

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/m-mizutani/goerr/v2"

	"github.com/support-lab/kotae/pkg/cli/config"
	httpctrl "github.com/support-lab/kotae/pkg/controller/http"
	"github.com/support-lab/kotae/pkg/service/extraction"
	"github.com/support-lab/kotae/pkg/service/organization"
	"github.com/support-lab/kotae/pkg/service/retrieval"
	"github.com/support-lab/kotae/pkg/usecase"
	"github.com/support-lab/kotae/pkg/utils/logging"
	"github.com/support-lab/kotae/pkg/utils/safe"
	"github.com/urfave/cli/v3"
)

func cmdServe() *cli.Command {
	var addr string
	var configPath string
	var repoCfg config.Repository
	var geminiCfg config.Gemini

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "addr",
			Usage:       "HTTP server address",
			Value:       ":8080",
			Sources:     cli.EnvVars("KOTAE_ADDR"),
			Destination: &addr,
		},
		&cli.StringFlag{
			Name:        "config",
			Usage:       "Path to the application config file (TOML)",
			Sources:     cli.EnvVars("KOTAE_CONFIG"),
			Destination: &configPath,
		},
	}
	flags = append(flags, repoCfg.Flags()...)
	flags = append(flags, geminiCfg.Flags()...)

	return &cli.Command{
		Name:    "serve",
		Aliases: []string{"s"},
		Usage:   "Start HTTP server",
		Flags:   flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			uc, cleanup, err := buildUseCases(ctx, configPath, &repoCfg, &geminiCfg)
			if err != nil {
				return err
			}
			defer cleanup()

			server := &http.Server{
				Addr:              addr,
				Handler:           httpctrl.New(uc),
				ReadHeaderTimeout: 30 * time.Second,
			}

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

			errCh := make(chan error, 1)
			go func() {
				logging.Default().Info("Starting HTTP server", "addr", addr)
				if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					errCh <- goerr.Wrap(err, "failed to start server")
				}
			}()

			select {
			case err := <-errCh:
				return err
			case sig := <-sigCh:
				logging.Default().Info("Received shutdown signal", "signal", sig)

				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()

				if err := server.Shutdown(shutdownCtx); err != nil {
					return goerr.Wrap(err, "failed to shutdown server gracefully")
				}

				logging.Default().Info("Server shutdown completed")
				return nil
			}
		},
	}
}

// buildUseCases wires the repository, Gemini backends, and services into the
// use case layer. The returned cleanup closes the repository.
func buildUseCases(ctx context.Context, configPath string, repoCfg *config.Repository, geminiCfg *config.Gemini) (*usecase.UseCases, func(), error) {
	var appCfg *config.AppConfig
	if configPath != "" {
		cfg, err := config.LoadAppConfiguration(configPath)
		if err != nil {
			return nil, nil, goerr.Wrap(err, "failed to load application config")
		}
		appCfg = cfg
		logging.Default().Info("Loaded application config",
			"path", configPath, "categories", len(appCfg.Categories))
	} else {
		appCfg = &config.AppConfig{}
	}

	repo, err := repoCfg.Configure(ctx)
	if err != nil {
		return nil, nil, goerr.Wrap(err, "failed to initialize repository")
	}
	cleanup := func() {
		safe.Close(ctx, repo)
	}

	gateway, err := geminiCfg.ConfigureEmbedding(ctx)
	if err != nil {
		cleanup()
		return nil, nil, goerr.Wrap(err, "failed to configure embedding gateway")
	}

	providers, err := geminiCfg.ConfigureProviders(ctx)
	if err != nil {
		cleanup()
		return nil, nil, goerr.Wrap(err, "failed to configure generation providers")
	}

	analysisClient, err := geminiCfg.ConfigureAnalysisClient(ctx)
	if err != nil {
		cleanup()
		return nil, nil, goerr.Wrap(err, "failed to configure analysis client")
	}

	engine := retrieval.New(repo, gateway)
	categories := appCfg.CategoryNames()

	extractor, err := extraction.New(analysisClient, extraction.WithCategories(categories))
	if err != nil {
		cleanup()
		return nil, nil, goerr.Wrap(err, "failed to configure extraction service")
	}

	organizer, err := organization.New(analysisClient, engine, organization.WithCategories(categories))
	if err != nil {
		cleanup()
		return nil, nil, goerr.Wrap(err, "failed to configure organization service")
	}

	uc := usecase.New(repo,
		usecase.WithConfig(appCfg.ToEngineConfig()),
		usecase.WithRouter(appCfg.ConfigureRouter()),
		usecase.WithEmbeddingGateway(gateway),
		usecase.WithRetrievalEngine(engine),
		usecase.WithProviders(providers),
		usecase.WithExtractionService(extractor),
		usecase.WithOrganizationService(organizer),
	)

	return uc, cleanup, nil
}
