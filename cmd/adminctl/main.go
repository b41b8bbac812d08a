// Command adminctl is the operator console for the profile admin API.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-profile-admin/internal/directory"
	"github.com/ovaphlow/pitchfork/service-profile-admin/internal/session"
	"github.com/ovaphlow/pitchfork/service-profile-admin/pkg/utilities"
)

// app is the state shared by every command. It is filled in by the root
// command's PersistentPreRunE.
type app struct {
	in  io.Reader
	out io.Writer

	apiURL      string
	sessionFile string
	verbose     bool

	cfg      directory.Config
	logger   *zap.SugaredLogger
	client   *directory.Client
	sessions *session.Provider
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "adminctl",
		Short:         "adminctl manages the user directory and your own profile",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}
	root.SetIn(a.in)
	root.SetOut(a.out)

	root.PersistentFlags().StringVar(&a.apiURL, "api-url", "", "base URL of the API (default $ADMIN_API_URL)")
	root.PersistentFlags().StringVar(&a.sessionFile, "session-file", "", "where the sign-in is kept")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "log requests to stderr")

	root.AddCommand(newLoginCmd(a), newLogoutCmd(a), newWhoamiCmd(a), newUsersCmd(a), newProfileCmd(a))
	return root
}

func (a *app) setup() error {
	logCfg := utilities.ConfigFromEnv()
	logCfg.Console = a.verbose
	if a.verbose {
		logCfg.Dev = true
		logCfg.Level = "debug"
		logCfg.File = ""
	}
	logger, err := utilities.Init(logCfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	a.logger = logger.Sugar()

	a.cfg = directory.ConfigFromEnv()
	if a.apiURL != "" {
		a.cfg.BaseURL = a.apiURL
	}
	a.client = directory.NewClient(a.cfg)

	path := a.sessionFile
	if path == "" {
		if path, err = session.DefaultPath(); err != nil {
			return err
		}
	}
	a.sessions = session.NewProvider(session.NewStore(path), a.client)
	a.logger.Debugw("adminctl ready", "api", a.cfg.BaseURL, "session_file", path)
	return nil
}

func main() {
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := newRootCmd(&app{in: os.Stdin, out: os.Stdout})
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		stop()
		os.Exit(1)
	}
}
