package cli

import (
	"bufio"
	"clinicadmin/internal/admin"
	"clinicadmin/internal/client"
	"clinicadmin/internal/render"
	"clinicadmin/internal/screens"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

func screenNames() string {
	return "commissions, forms, medicines, suppliers, taxes, tax_groups"
}

// mountScreen configures the client and loads the named screen.
func (a *app) mountScreen(cmd *cobra.Command, name string) (screens.Screen, *client.Client, error) {
	if err := a.configure(cmd, nil); err != nil {
		return nil, nil, err
	}
	c, err := client.New(a.cfg.Client, client.WithLogger(a.log.With("component", "client")))
	if err != nil {
		return nil, nil, err
	}
	notifier := admin.NotifierFunc(func(n admin.Notification) {
		a.printf("%s\n", render.Toast(n))
	})
	screen, err := screens.Find(screens.All(screens.Deps{Client: c, Notifier: notifier, Log: a.log}), name)
	if err != nil {
		return nil, nil, fmt.Errorf("%w (choose one of: %s)", err, screenNames())
	}
	if err := screen.Load(cmd.Context()); err != nil {
		return nil, nil, fmt.Errorf("load %s: %w", name, err)
	}
	return screen, c, nil
}

func parseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", raw)
	}
	return id, nil
}

func parseAssignments(sets []string) (map[string]string, error) {
	out := make(map[string]string, len(sets))
	for _, s := range sets {
		k, v, ok := strings.Cut(s, "=")
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid --set %q, expected field=value", s)
		}
		out[k] = v
	}
	return out, nil
}

func newListCommand(a *app) *cobra.Command {
	var (
		search string
		narrow bool
		expand int64
	)
	cmd := &cobra.Command{
		Use:   "list <screen>",
		Short: "Show a screen's records, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			screen, _, err := a.mountScreen(cmd, args[0])
			if err != nil {
				return err
			}
			if expand > 0 {
				screen.ToggleExpand(expand)
			}
			a.printf("%s", render.Screen(screen.Table(search), render.Options{Narrow: narrow}))
			return nil
		},
	}
	cmd.Flags().StringVarP(&search, "search", "s", "", "case-insensitive search")
	cmd.Flags().BoolVar(&narrow, "narrow", false, "render cards instead of a table")
	cmd.Flags().Int64Var(&expand, "expand", 0, "expand the card of this record id")
	return cmd
}

func newAddCommand(a *app) *cobra.Command {
	var sets []string
	cmd := &cobra.Command{
		Use:   "add <screen>",
		Short: "Create a record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			values, err := parseAssignments(sets)
			if err != nil {
				return err
			}
			screen, _, err := a.mountScreen(cmd, args[0])
			if err != nil {
				return err
			}
			return screen.Add(cmd.Context(), values)
		},
	}
	cmd.Flags().StringArrayVar(&sets, "set", nil, "field=value, repeatable")
	return cmd
}

func newEditCommand(a *app) *cobra.Command {
	var sets []string
	cmd := &cobra.Command{
		Use:   "edit <screen> <id>",
		Short: "Replace fields of a record",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[1])
			if err != nil {
				return err
			}
			values, err := parseAssignments(sets)
			if err != nil {
				return err
			}
			screen, _, err := a.mountScreen(cmd, args[0])
			if err != nil {
				return err
			}
			return screen.Edit(cmd.Context(), id, values)
		},
	}
	cmd.Flags().StringArrayVar(&sets, "set", nil, "field=value, repeatable")
	return cmd
}

func newDeleteCommand(a *app) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "delete <screen> <id>",
		Short: "Delete a record after confirmation",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[1])
			if err != nil {
				return err
			}
			screen, _, err := a.mountScreen(cmd, args[0])
			if err != nil {
				return err
			}
			screen.RequestDelete(id)
			if !yes && !a.confirm(fmt.Sprintf("Delete %s #%d? [y/N] ", screen.Title(), id)) {
				screen.CancelDelete()
				a.printf("Delete cancelled\n")
				return nil
			}
			return screen.ConfirmDelete(cmd.Context())
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip the confirmation prompt")
	return cmd
}

func (a *app) confirm(prompt string) bool {
	a.printf("%s", prompt)
	line, err := bufio.NewReader(a.streams.In).ReadString('\n')
	if err != nil && line == "" {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	default:
		return false
	}
}

