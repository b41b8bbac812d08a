package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-profile-admin/internal/auth"
	authrepo "github.com/ovaphlow/pitchfork/service-profile-admin/internal/auth/repo"
	"github.com/ovaphlow/pitchfork/service-profile-admin/internal/profile"
	"github.com/ovaphlow/pitchfork/service-profile-admin/internal/profile/entity"
	profilerepo "github.com/ovaphlow/pitchfork/service-profile-admin/internal/profile/repo"
	"github.com/ovaphlow/pitchfork/service-profile-admin/internal/router"
	"github.com/ovaphlow/pitchfork/service-profile-admin/internal/user"
	userrepo "github.com/ovaphlow/pitchfork/service-profile-admin/internal/user/repo"
	"github.com/ovaphlow/pitchfork/service-profile-admin/pkg/database"
	"github.com/ovaphlow/pitchfork/service-profile-admin/pkg/utilities"
)

func main() {
	// best-effort: real env wins when no .env exists
	_ = godotenv.Load()

	lg, err := utilities.Init(utilities.ConfigFromEnv())
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer lg.Sync()

	sugar := lg.Sugar()
	sugar.Info("starting service-profile-admin")

	db, err := database.Open(database.ConfigFromEnv())
	if err != nil {
		sugar.Fatalf("db connect: %v", err)
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	users := userrepo.NewUserRepo(db)
	profiles := profilerepo.NewProfileRepo(db)
	refresh := authrepo.NewRefreshRepo(db)
	if err := ensureSchema(ctx, users, profiles, refresh); err != nil {
		sugar.Fatalf("ensure schema: %v", err)
	}

	profileSvc := profile.NewService(db, profiles)
	userSvc := user.NewUserService(db, users, nil, profileSvc)
	authCfg := auth.ConfigFromEnv()
	tokens, err := auth.NewTokenService(db, refresh, authCfg)
	if err != nil {
		sugar.Fatalf("token service: %v", err)
	}
	userSvc.Sessions = tokens
	if authCfg.KeyFile == "" {
		sugar.Warn("AUTH_SIGNING_KEY_FILE not set; using an ephemeral signing key")
	}

	if email := os.Getenv("BOOTSTRAP_SUPER_USER"); email != "" {
		if err := bootstrapSuperUser(ctx, userSvc, profileSvc, email); err != nil {
			sugar.Warnw("super user bootstrap failed", "identifier", email, "err", err)
		} else {
			sugar.Infow("super user bootstrapped", "identifier", email)
		}
	}

	go pruneRefreshSessions(ctx, tokens, sugar)

	addr := os.Getenv("HTTP_ADDR")
	if addr == "" {
		addr = "0.0.0.0:8431"
	}
	handler := router.RegisterRoutes(sugar, router.Deps{
		Users:    userSvc,
		Profiles: profileSvc,
		Tokens:   tokens,
		Auth:     authCfg,
		Origins:  router.OriginsFromEnv(),
	})
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			sugar.Fatalf("http server failed: %v", err)
		}
	}()
	sugar.Infow("service is running; press Ctrl+C to stop", "addr", addr)

	<-ctx.Done()
	sugar.Info("shutting down")

	doneCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(doneCtx); err != nil {
		sugar.Warnf("http server shutdown failed: %v", err)
	}
	sugar.Info("goodbye")
}

type tableEnsurer interface {
	EnsureTable(ctx context.Context) error
}

// ensureSchema creates tables in dependency order: profiles and refresh
// sessions reference users.
func ensureSchema(ctx context.Context, tables ...tableEnsurer) error {
	for _, t := range tables {
		if err := t.EnsureTable(ctx); err != nil {
			return err
		}
	}
	return nil
}

// bootstrapSuperUser marks an existing account as a verified super user.
func bootstrapSuperUser(ctx context.Context, users *user.UserService, profiles *profile.Service, identifier string) error {
	id, err := users.FindID(ctx, identifier)
	if err != nil {
		return err
	}
	if err := profiles.Seed(ctx, id); err != nil {
		return err
	}
	return profiles.Classify(ctx, id, entity.UserTypeSuperUser, entity.StatusVerified)
}

func pruneRefreshSessions(ctx context.Context, tokens *auth.TokenService, sugar *zap.SugaredLogger) {
	t := time.NewTicker(time.Hour)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			n, err := tokens.PruneExpired(ctx)
			if err != nil {
				sugar.Warnw("prune refresh sessions failed", "err", err)
				continue
			}
			if n > 0 {
				sugar.Debugw("pruned refresh sessions", "count", n)
			}
		}
	}
}
