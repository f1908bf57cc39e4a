package cli

import (
	"context"

	"github.com/k-fujimoto/careerchat/pkg/adapter"
	"github.com/k-fujimoto/careerchat/pkg/model"
	"github.com/k-fujimoto/careerchat/pkg/repository"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

// config holds configuration values
type config struct {
	// Repository
	project     string
	database    string
	memoryStore bool

	// Adapters
	geminiAPIKey   string
	geminiModel    string
	identityAPIKey string

	logLevel string
}

// globalFlags returns common flags used across commands with destination config
func globalFlags(cfg *config) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "project",
			Aliases:     []string{"p"},
			Usage:       "Google Cloud project ID",
			Sources:     cli.EnvVars("GOOGLE_CLOUD_PROJECT"),
			Destination: &cfg.project,
		},
		&cli.StringFlag{
			Name:        "database",
			Aliases:     []string{"d"},
			Usage:       "Firestore database ID",
			Value:       "(default)",
			Sources:     cli.EnvVars("FIRESTORE_DATABASE_ID"),
			Destination: &cfg.database,
		},
		&cli.BoolFlag{
			Name:        "memory-store",
			Usage:       "Use an in-memory message store instead of Firestore (development only)",
			Sources:     cli.EnvVars("CAREERCHAT_MEMORY_STORE"),
			Destination: &cfg.memoryStore,
		},
		&cli.StringFlag{
			Name:        "identity-api-key",
			Usage:       "API key for the anonymous sign-in endpoint",
			Sources:     cli.EnvVars("IDENTITY_API_KEY"),
			Destination: &cfg.identityAPIKey,
		},
		&cli.StringFlag{
			Name:        "log-level",
			Usage:       "Log level (debug, info, warn, error)",
			Value:       "info",
			Sources:     cli.EnvVars("CAREERCHAT_LOG_LEVEL"),
			Destination: &cfg.logLevel,
		},
	}
}

// llmFlags returns flags for generation-related configuration
func llmFlags(cfg *config) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "gemini-api-key",
			Usage:       "Gemini API key",
			Sources:     cli.EnvVars("GEMINI_API_KEY"),
			Destination: &cfg.geminiAPIKey,
		},
		&cli.StringFlag{
			Name:        "gemini-model",
			Usage:       "Gemini model for reply generation",
			Value:       "gemini-2.5-flash",
			Sources:     cli.EnvVars("GEMINI_MODEL"),
			Destination: &cfg.geminiModel,
		},
	}
}

// newRepository creates a new repository instance
func (cfg *config) newRepository(ctx context.Context) (repository.Repository, error) {
	if cfg.memoryStore {
		return repository.NewMemory(), nil
	}

	if cfg.project == "" {
		return nil, goerr.New("project is required")
	}
	if cfg.database == "" {
		return nil, goerr.New("database is required")
	}

	repo, err := repository.NewFirestore(ctx, cfg.project, cfg.database)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create repository")
	}
	return repo, nil
}

// newGemini creates a new Gemini adapter instance
func (cfg *config) newGemini(ctx context.Context) (adapter.Gemini, error) {
	if cfg.geminiAPIKey == "" {
		return nil, goerr.New("gemini-api-key is required")
	}
	return adapter.NewGemini(ctx, cfg.geminiAPIKey, adapter.WithGenerativeModel(cfg.geminiModel))
}

// signIn resolves an anonymous identity and binds the session. The session
// stays unready on failure; no retry is attempted.
func (cfg *config) signIn(ctx context.Context) (*model.Session, error) {
	if cfg.memoryStore && cfg.identityAPIKey == "" {
		// Development shortcut: a fixed local identity
		return model.NewSession("local-user"), nil
	}

	if cfg.identityAPIKey == "" {
		return nil, goerr.New("identity-api-key is required")
	}

	identity := adapter.NewIdentity(cfg.identityAPIKey)
	userID, err := identity.SignInAnonymously(ctx)
	if err != nil {
		return nil, goerr.Wrap(err, "anonymous sign-in failed")
	}
	return model.NewSession(userID), nil
}
