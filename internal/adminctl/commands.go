package adminctl

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/dmitrijs2005/pandachat/internal/common"
	"github.com/spf13/cobra"
)

func (r *runner) newCreateAdminCommand() *cobra.Command {
	var name, email string
	var passwordStdin bool

	cmd := &cobra.Command{
		Use:   "create-admin",
		Short: "Create a user holding the admin flag",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var (
				password []byte
				err      error
			)
			if passwordStdin {
				password, err = passwordFromReader(cmd.InOrStdin())
			} else {
				password, err = promptPassword(cmd.ErrOrStderr())
			}
			if err != nil {
				return err
			}
			defer common.WipeByteArray(password)

			return r.withBackend(cmd, func(ctx context.Context, b Backend) error {
				if _, err := b.CreateAdmin(ctx, name, email, string(password)); err != nil {
					return fmt.Errorf("create admin %s: %w", email, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "admin %s created\n", email)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "display name")
	cmd.Flags().StringVar(&email, "email", "", "login email")
	cmd.Flags().BoolVar(&passwordStdin, "password-stdin", false, "read the password from the first line of stdin")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func (r *runner) newRoleCommand(use, short string, isAdmin bool) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <email>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			email := args[0]
			return r.withBackend(cmd, func(ctx context.Context, b Backend) error {
				if err := b.SetAdmin(ctx, email, isAdmin); err != nil {
					return fmt.Errorf("%s %s: %w", use, email, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s: is_admin=%t\n", email, isAdmin)
				return nil
			})
		},
	}
}

func (r *runner) newStatsCommand() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Print user, admin and chat totals",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return r.withBackend(cmd, func(ctx context.Context, b Backend) error {
				st, err := b.Stats(ctx)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if asJSON {
					return json.NewEncoder(out).Encode(st)
				}
				fmt.Fprintf(out, "users:  %d\nadmins: %d\nchats:  %d\n", st.Users, st.Admins, st.Chats)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print as JSON")
	return cmd
}

// newMigrateCommand relies on Connect applying migrations on open.
func (r *runner) newMigrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return r.withBackend(cmd, func(context.Context, Backend) error {
				fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
				return nil
			})
		},
	}
}
