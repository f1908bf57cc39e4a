package cli

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/k-fujimoto/careerchat/pkg/model"
	"github.com/k-fujimoto/careerchat/pkg/server"
	"github.com/k-fujimoto/careerchat/pkg/usecase/sync"
	"github.com/k-fujimoto/careerchat/pkg/usecase/turn"
	"github.com/k-fujimoto/careerchat/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

func serveCommand() *cli.Command {
	var (
		cfg  config
		addr string
	)

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "addr",
			Usage:       "Listen address",
			Value:       "127.0.0.1:8080",
			Sources:     cli.EnvVars("CAREERCHAT_ADDR"),
			Destination: &addr,
		},
	}
	flags = append(flags, globalFlags(&cfg)...)
	flags = append(flags, llmFlags(&cfg)...)

	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the chat over HTTP with a live SSE transcript stream",
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

			hub := server.NewHub()

			// Identity failure leaves the surface up but non-functional:
			// submissions no-op until a restart resolves a session
			session, err := cfg.signIn(ctx)
			if err != nil {
				logger.Error("anonymous sign-in failed", "error", err)
				hub.Notify("Could not sign you in. Sending is disabled.")
				session = model.NewSession("")
			}

			orchestrator := turn.New(turn.NewInput{
				Repo:     repo,
				Gemini:   gemini,
				Session:  session,
				Notifier: hub,
				Feedback: hub,
			})

			syncCtx, stopSync := context.WithCancel(ctx)
			defer stopSync()
			if session.Ready() {
				synchronizer := sync.New(repo, hub, hub)
				go func() {
					if err := synchronizer.Run(syncCtx, session.UserID()); err != nil {
						logger.Warn("live view sync stopped", "error", err)
					}
				}()
			}

			srv := &http.Server{
				Addr:              addr,
				Handler:           server.New(orchestrator, hub, session).Router(),
				ReadHeaderTimeout: 5 * time.Second,
				IdleTimeout:       120 * time.Second,
			}

			logger.Info("careerchat listening", "addr", addr, "user_id", session.UserID())
			return runServer(ctx, srv)
		},
	}
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
