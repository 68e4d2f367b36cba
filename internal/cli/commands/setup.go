package commands

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/aiokaizen/bear-vision/internal/lava/auth"
	"github.com/aiokaizen/bear-vision/internal/storage"
)

// SetupOptions holds options for the setup command.
type SetupOptions struct {
	ResetUsers bool
	NoLogs     bool
}

// setupAccount is a user created by the setup command.
type setupAccount struct {
	username  string
	email     string
	firstName string
	lastName  string
	superuser bool
}

var setupAccounts = []setupAccount{
	{username: "superuser", email: "mouadkommir@gmail.com", firstName: "Super", lastName: "User", superuser: true},
	{username: "admin", email: "mouadkommir@gmail.com", firstName: "System", lastName: "Administrator"},
}

// NewSetupCommand creates the setup command.
func NewSetupCommand() *cobra.Command {
	opts := &SetupOptions{}

	cmd := &cobra.Command{
		Use:   "setup",
		Short: "Create the administrator group and accounts",
		Long: `Prepare a new installation: create the ADMINISTRATOR group and the
superuser and admin accounts.

Accounts get a generated temporary password, printed once. Existing
accounts are left untouched, except that admin is added to the group.`,
		Example: `  bearvision setup

  # Remove every user first (irreversible)
  bearvision setup --reset-users`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSetup(cmd, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.ResetUsers, "reset-users", false, "Remove all users before creating the accounts (irreversible)")
	cmd.Flags().BoolVar(&opts.NoLogs, "no-logs", false, "Do not log progress")

	return cmd
}

func runSetup(cmd *cobra.Command, opts *SetupOptions) error {
	cc, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	ctx := cmd.Context()
	logger := cc.Logger
	if opts.NoLogs {
		logger = slog.New(slog.DiscardHandler)
	}
	svc := auth.NewService(auth.Config{Store: cc.Store, Logger: logger})

	group, created, err := svc.EnsureGroup(ctx, auth.AdministratorGroup)
	if err != nil {
		return err
	}
	if created {
		logger.Info("group created", "name", group.Name)
	}

	if opts.ResetUsers {
		n, err := svc.DeleteAllUsers(ctx)
		if err != nil {
			return err
		}
		logger.Warn("users deleted", "count", n)
	}

	var createdUsers []*auth.User
	for _, acc := range setupAccounts {
		existing, err := svc.FindUser(ctx, acc.username)
		switch {
		case err == nil:
			if !acc.superuser {
				if err := svc.AddGroup(ctx, existing.ID, group); err != nil {
					return err
				}
			}
			logger.Warn("user already exists", "username", acc.username)
			continue
		case !errors.Is(err, storage.ErrNotFound):
			return fmt.Errorf("failed to look up user %s: %w", acc.username, err)
		}

		u := &auth.User{
			Username:    acc.username,
			Email:       acc.email,
			FirstName:   acc.firstName,
			LastName:    acc.lastName,
			IsSuperuser: acc.superuser,
		}
		res := svc.CreateUser(ctx, u, auth.CreateOptions{
			GeneratePassword: true,
			ForceActive:      true,
			Groups:           []*auth.Group{group},
		})
		if !res.IsSuccess() {
			return fmt.Errorf("failed to create user %s: %s", acc.username, res.Message())
		}
		createdUsers = append(createdUsers, u)
	}

	if len(createdUsers) == 0 {
		return nil
	}

	// credentials are printed even with --no-logs
	t := table.NewWriter()
	t.SetOutputMirror(cmd.OutOrStdout())
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Username", "Email", "Temporary password"})
	for _, u := range createdUsers {
		t.AppendRow(table.Row{u.Username, u.Email, u.TmpPassword})
	}
	t.Render()
	return nil
}
