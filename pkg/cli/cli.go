package cli

import (
	"context"
	"os"

	"github.com/joho/godotenv"
	"github.com/k-fujimoto/careerchat/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

type Error struct {
	Code    int
	Message string
}

func Run(ctx context.Context, argv []string) *Error {
	// Optional .env for local development
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		logging.Default().Warn("failed to load .env file", "error", err)
	}

	cmd := &cli.Command{
		Name:  "careerchat",
		Usage: "Career advisor chat with a persisted transcript",
		Commands: []*cli.Command{
			chatCommand(),
			serveCommand(),
		},
	}

	if err := cmd.Run(ctx, argv); err != nil {
		logging.Default().Error("command failed", "error", err)
		return &Error{
			Code:    1,
			Message: err.Error(),
		}
	}

	return nil
}
