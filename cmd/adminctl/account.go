package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/ovaphlow/pitchfork/service-profile-admin/internal/directory"
	"github.com/ovaphlow/pitchfork/service-profile-admin/internal/profile/entity"
	"github.com/ovaphlow/pitchfork/service-profile-admin/internal/session"
)

func newLoginCmd(a *app) *cobra.Command {
	var identifier, password string
	var passwordStdin bool
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in with an email or username",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if identifier == "" {
				return errors.New("--identifier is required")
			}
			switch {
			case passwordStdin:
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && line == "" {
					return fmt.Errorf("read password: %w", err)
				}
				password = strings.TrimRight(line, "\r\n")
			case password == "":
				password = os.Getenv("ADMIN_PASSWORD")
			}
			if password == "" {
				var err error
				if password, err = promptPassword(cmd); err != nil {
					return err
				}
			}

			toks, err := a.client.Login(cmd.Context(), identifier, password)
			if err != nil {
				return err
			}
			if err := a.sessions.SignIn(cmd.Context(), toks); err != nil {
				return err
			}
			s, err := a.sessions.Current()
			if err != nil {
				return err
			}
			a.logger.Debugw("signed in", "account", accountLabel(s))
			fmt.Fprintf(cmd.OutOrStdout(), "Signed in as %s\n", accountLabel(s))
			return nil
		},
	}
	cmd.Flags().StringVarP(&identifier, "identifier", "u", "", "email or username")
	cmd.Flags().StringVarP(&password, "password", "p", "", "password (prefer --password-stdin)")
	cmd.Flags().BoolVar(&passwordStdin, "password-stdin", false, "read the password from stdin")
	return cmd
}

func newLogoutCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Revoke the stored sign-in",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.sessions.Close(cmd.Context()); err != nil {
				a.logger.Warnw("revoke refresh token", "err", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Signed out")
			return nil
		},
	}
}

func newWhoamiCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.sessions.Init(cmd.Context()); err != nil {
				return err
			}
			s, err := a.sessions.Current()
			if err != nil {
				return err
			}
			if s.User == nil {
				return session.ErrNoSession
			}
			var p entity.Profile
			if s.Profile != nil {
				p = *s.Profile
			}
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "Account:    %s\n", accountLabel(s))
			fmt.Fprintf(w, "ID:         %s\n", s.User.ID)
			fmt.Fprintf(w, "Name:       %s\n", entity.OrPlaceholder(p.FullName()))
			fmt.Fprintf(w, "Initials:   %s\n", p.Initials())
			fmt.Fprintf(w, "User type:  %s\n", p.Display("user_type"))
			fmt.Fprintf(w, "Super user: %t\n", a.sessions.IsSuperUser())
			return nil
		},
	}
}

// promptPassword reads the password with echo disabled when stdin is a terminal.
func promptPassword(cmd *cobra.Command) (string, error) {
	f, ok := cmd.InOrStdin().(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return "", errors.New("no password given; use --password-stdin or ADMIN_PASSWORD")
	}
	fmt.Fprint(cmd.ErrOrStderr(), "Password: ")
	raw, err := term.ReadPassword(int(f.Fd()))
	fmt.Fprintln(cmd.ErrOrStderr())
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	return string(raw), nil
}

// accountLabel prefers the email, then the username, then the id.
func accountLabel(s *directory.Session) string {
	if s.User == nil {
		return entity.Placeholder
	}
	if s.User.Email != nil && *s.User.Email != "" {
		return *s.User.Email
	}
	if s.User.Username != nil && *s.User.Username != "" {
		return *s.User.Username
	}
	return s.User.ID
}
