package cli

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/support-lab/kotae/pkg/cli/config"
	"github.com/support-lab/kotae/pkg/domain/model"
	"github.com/support-lab/kotae/pkg/usecase"
	"github.com/support-lab/kotae/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

func cmdOrganize() *cli.Command {
	var configPath string
	var all bool
	var repoCfg config.Repository
	var geminiCfg config.Gemini

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "config",
			Usage:       "Path to the application config file (TOML)",
			Sources:     cli.EnvVars("KOTAE_CONFIG"),
			Destination: &configPath,
		},
		&cli.BoolFlag{
			Name:        "all",
			Usage:       "Organize every knowledge item in the store",
			Destination: &all,
		},
	}
	flags = append(flags, repoCfg.Flags()...)
	flags = append(flags, geminiCfg.Flags()...)

	return &cli.Command{
		Name:      "organize",
		Usage:     "Assign categories, tags, and relations to knowledge items",
		ArgsUsage: "[<knowledge-id> ...]",
		Flags:     flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			args := c.Args().Slice()
			if len(args) == 0 && !all {
				return goerr.New("knowledge IDs or --all is required")
			}

			uc, cleanup, err := buildUseCases(ctx, configPath, &repoCfg, &geminiCfg)
			if err != nil {
				return err
			}
			defer cleanup()

			var result *usecase.BatchResult
			if all {
				result, err = uc.Organize.BatchAll(ctx)
				if err != nil {
					return err
				}
			} else {
				ids := make([]model.KnowledgeID, 0, len(args))
				for _, arg := range args {
					ids = append(ids, model.KnowledgeID(arg))
				}
				result = uc.Organize.Batch(ctx, ids)
			}

			logging.Default().Info("Organization finished",
				"processed", result.Processed,
				"success", result.Success,
				"failed", result.Failed)

			if result.Failed > 0 {
				return goerr.New("some items failed to organize",
					goerr.V("failed", result.Failed))
			}
			return nil
		},
	}
}
