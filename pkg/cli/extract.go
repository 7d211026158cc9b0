package cli

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/support-lab/kotae/pkg/cli/config"
	"github.com/support-lab/kotae/pkg/domain/model"
	"github.com/support-lab/kotae/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

func cmdExtract() *cli.Command {
	var configPath string
	var repoCfg config.Repository
	var geminiCfg config.Gemini

	flags := []cli.Flag{
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
		Name:      "extract",
		Usage:     "Extract knowledge from stored conversations",
		ArgsUsage: "<conversation-id> [<conversation-id> ...]",
		Flags:     flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			args := c.Args().Slice()
			if len(args) == 0 {
				return goerr.New("at least one conversation ID is required")
			}

			uc, cleanup, err := buildUseCases(ctx, configPath, &repoCfg, &geminiCfg)
			if err != nil {
				return err
			}
			defer cleanup()

			ids := make([]model.ConversationID, 0, len(args))
			for _, arg := range args {
				ids = append(ids, model.ConversationID(arg))
			}

			result := uc.Extract.BatchFromConversations(ctx, ids)

			logging.Default().Info("Extraction finished",
				"processed", result.Processed,
				"success", result.Success,
				"failed", result.Failed)

			if result.Failed > 0 {
				return goerr.New("some conversations failed to extract",
					goerr.V("failed", result.Failed))
			}
			return nil
		},
	}
}
