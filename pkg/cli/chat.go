package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/chzyer/readline"
	"github.com/k-fujimoto/careerchat/pkg/usecase/sync"
	"github.com/k-fujimoto/careerchat/pkg/usecase/turn"
	"github.com/k-fujimoto/careerchat/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

func chatCommand() *cli.Command {
	var cfg config

	flags := globalFlags(&cfg)
	flags = append(flags, llmFlags(&cfg)...)

	return &cli.Command{
		Name:  "chat",
		Usage: "Interactive career chat in the terminal",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			logger := logging.New(cfg.logLevel, c.Root().ErrWriter)
			logging.SetDefault(logger)
			ctx = logging.With(ctx, logger)

			repo, err := cfg.newRepository(ctx)
			if err != nil {
				return err
			}
			defer repo.Close()

			gemini, err := cfg.newGemini(ctx)
			if err != nil {
				return err
			}

			session, err := cfg.signIn(ctx)
			if err != nil {
				return goerr.Wrap(err, "session is not ready, cannot send messages")
			}

			rl, err := readline.New("> ")
			if err != nil {
				return goerr.Wrap(err, "failed to open terminal input")
			}
			defer rl.Close()

			view := newTerminalView(c.Root().Writer, rl)
			orchestrator := turn.New(turn.NewInput{
				Repo:     repo,
				Gemini:   gemini,
				Session:  session,
				Notifier: view,
				Feedback: view,
			})

			// Standing subscription re-renders independently of turns
			syncCtx, stopSync := context.WithCancel(ctx)
			defer stopSync()
			synchronizer := sync.New(repo, view, view)
			go func() {
				if err := synchronizer.Run(syncCtx, session.UserID()); err != nil {
					logger.Warn("live view sync stopped", "error", err)
				}
			}()

			fmt.Fprintf(c.Root().Writer, "Chat session started. Type 'exit' to quit.\n")

			for {
				line, err := rl.Readline()
				if errors.Is(err, readline.ErrInterrupt) {
					continue
				}
				if errors.Is(err, io.EOF) {
					break
				}
				if err != nil {
					return goerr.Wrap(err, "failed to read input")
				}

				if line == "exit" {
					break
				}
				if strings.TrimSpace(line) == "" {
					view.dismiss()
					continue
				}

				// Synchronous: input is not offered again until the turn ends
				if err := orchestrator.Submit(ctx, line); err != nil {
					logger.Debug("turn ended with error", "error", err)
				}
			}

			fmt.Fprintf(c.Root().Writer, "\nChat session completed\n")
			return nil
		},
	}
}
