package main

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/spf13/cobra"

	"github.com/ovaphlow/pitchfork/service-profile-admin/internal/listing"
	"github.com/ovaphlow/pitchfork/service-profile-admin/internal/profile/entity"
	"github.com/ovaphlow/pitchfork/service-profile-admin/internal/session"
)

func newProfileCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Show or edit your own profile",
	}
	cmd.AddCommand(newProfileGetCmd(a), newProfileSetCmd(a))
	return cmd
}

func newProfileGetCmd(a *app) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "get",
		Short: "Print your profile",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.sessions.Init(cmd.Context()); err != nil {
				return err
			}
			p, err := a.client.GetProfile(cmd.Context())
			if err != nil {
				return err
			}
			return a.printProfile(cmd, *p, asJSON)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the profile as JSON")
	return cmd
}

func newProfileSetCmd(a *app) *cobra.Command {
	var firstName, lastName, avatarURL string
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "set",
		Short: "Change your name or avatar",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var patch entity.Patch
			if cmd.Flags().Changed("first-name") {
				patch.FirstName = &firstName
			}
			if cmd.Flags().Changed("last-name") {
				patch.LastName = &lastName
			}
			if cmd.Flags().Changed("avatar-url") {
				patch.AvatarURL = &avatarURL
			}
			if patch.Empty() {
				return errors.New("nothing to change; pass --first-name, --last-name or --avatar-url")
			}

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
			p, err := a.client.UpdateProfile(cmd.Context(), s.User.ID, patch)
			if err != nil {
				return err
			}
			a.logger.Debugw("profile updated", "user_id", s.User.ID)
			return a.printProfile(cmd, *p, asJSON)
		},
	}
	cmd.Flags().StringVar(&firstName, "first-name", "", "new first name")
	cmd.Flags().StringVar(&lastName, "last-name", "", "new last name")
	cmd.Flags().StringVar(&avatarURL, "avatar-url", "", "new avatar URL")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the result as JSON")
	return cmd
}

func (a *app) printProfile(cmd *cobra.Command, p entity.Profile, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(p)
	}
	d := listing.BuildDetail(p, time.Local)
	d.Title = "Your Profile"
	printDetail(cmd.OutOrStdout(), d)
	return nil
}
