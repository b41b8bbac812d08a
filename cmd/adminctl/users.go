package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/ovaphlow/pitchfork/service-profile-admin/internal/console"
	"github.com/ovaphlow/pitchfork/service-profile-admin/internal/listing"
)

var errNotSuperUser = errors.New("forbidden: the user directory is limited to verified super users")

// viewFlags selects the columns and drawer sections of a listing view.
type viewFlags struct {
	columns   string
	allFields bool
	qr        bool
	qrPrefix  string
}

func (f *viewFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.columns, "columns", "", "YAML file with the columns to show")
	cmd.Flags().BoolVar(&f.allFields, "all-fields", false, "also search the status column")
	cmd.Flags().BoolVar(&f.qr, "qr", false, "add a QR code of the profile id to the details")
	cmd.Flags().StringVar(&f.qrPrefix, "qr-prefix", "", "text put in front of the id in the QR code")
}

func (f *viewFlags) view() (*listing.View, error) {
	var opts []listing.Option
	switch {
	case f.columns != "":
		fields, err := listing.LoadFieldsFile(f.columns)
		if err != nil {
			return nil, err
		}
		opts = append(opts, listing.WithFields(fields))
	case f.allFields:
		opts = append(opts, listing.WithFields(listing.ExtendedFields()))
	}
	if f.qr {
		opts = append(opts, listing.WithDecorators(listing.QRDecorator{Prefix: f.qrPrefix}))
	}
	return listing.NewView(opts...), nil
}

func (a *app) requireSuperUser(cmd *cobra.Command) error {
	if err := a.sessions.Init(cmd.Context()); err != nil {
		return err
	}
	if !a.sessions.IsSuperUser() {
		return errNotSuperUser
	}
	return nil
}

func newUsersCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "users",
		Short: "Browse registered users",
	}
	cmd.AddCommand(newUsersListCmd(a), newUsersShowCmd(a), newUsersBrowseCmd(a))
	return cmd
}

func newUsersListCmd(a *app) *cobra.Command {
	var vf viewFlags
	var filter, sortKey string
	var desc, asJSON bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "Print the user directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			view, err := vf.view()
			if err != nil {
				return err
			}
			if sortKey != "" {
				f, ok := view.Fields().Lookup(listing.FieldKey(sortKey))
				if !ok || !f.Sortable {
					return fmt.Errorf("cannot sort by %q", sortKey)
				}
			}
			if err := a.requireSuperUser(cmd); err != nil {
				return err
			}
			if err := view.Load(cmd.Context(), a.client); err != nil {
				return err
			}

			view.OnFilterTextChange(filter)
			if sortKey != "" {
				view.OnSortHeaderClick(listing.FieldKey(sortKey))
				if desc {
					view.OnSortHeaderClick(listing.FieldKey(sortKey))
				}
			}
			a.logger.Debugw("listed users", "shown", len(view.DisplayedRows()), "filter", filter, "sort", sortKey)

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(view.DisplayedRows())
			}
			printTable(cmd.OutOrStdout(), view)
			return nil
		},
	}
	vf.register(cmd)
	cmd.Flags().StringVarP(&filter, "filter", "f", "", "only rows containing this text in a searchable column")
	cmd.Flags().StringVarP(&sortKey, "sort", "s", "", "column key to sort by")
	cmd.Flags().BoolVar(&desc, "desc", false, "sort in descending order")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the rows as JSON")
	return cmd
}

func printTable(w io.Writer, view *listing.View) {
	fields := view.Fields()
	headers := make([]string, len(fields))
	for i, f := range fields {
		headers[i] = f.Label
		if f.Sortable {
			headers[i] += " " + view.SortIndicator(f.Key)
		}
	}
	t := table.New().Border(lipgloss.NormalBorder()).Headers(headers...)
	for _, p := range view.DisplayedRows() {
		row := make([]string, len(fields))
		for i, f := range fields {
			row[i] = p.Display(string(f.Key))
		}
		t.Row(row...)
	}
	fmt.Fprintln(w, t.String())
	fmt.Fprintln(w, view.Summary())
}

func newUsersShowCmd(a *app) *cobra.Command {
	var vf viewFlags
	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Print the details of one user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			view, err := vf.view()
			if err != nil {
				return err
			}
			if err := a.requireSuperUser(cmd); err != nil {
				return err
			}
			if err := view.Load(cmd.Context(), a.client); err != nil {
				return err
			}
			view.OnRowClick(args[0])
			detail, ok := view.Detail()
			if !ok {
				return fmt.Errorf("no user with id %q", args[0])
			}
			printDetail(cmd.OutOrStdout(), detail)
			return nil
		},
	}
	vf.register(cmd)
	return cmd
}

func printDetail(w io.Writer, d listing.Detail) {
	fmt.Fprintln(w, d.Title)
	for _, line := range d.Lines {
		fmt.Fprintf(w, "  %-13s %s\n", line.Label+":", line.Value)
	}
	for _, s := range d.Sections {
		fmt.Fprintf(w, "\n%s\n%s\n", s.Title, strings.TrimRight(s.Body, "\n"))
	}
}

func newUsersBrowseCmd(a *app) *cobra.Command {
	var vf viewFlags
	cmd := &cobra.Command{
		Use:   "browse",
		Short: "Browse the user directory interactively",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			view, err := vf.view()
			if err != nil {
				return err
			}
			if err := a.requireSuperUser(cmd); err != nil {
				return err
			}
			model := console.New(view, a.client, a.cfg.Timeout)
			p := tea.NewProgram(model,
				tea.WithContext(cmd.Context()),
				tea.WithAltScreen(),
				tea.WithMouseCellMotion(),
			)
			_, err = p.Run()
			return err
		},
	}
	vf.register(cmd)
	return cmd
}
