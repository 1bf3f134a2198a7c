package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/yigit/noteverse/internal/app/models"
	"github.com/yigit/noteverse/internal/app/repositories"
	"github.com/yigit/noteverse/internal/pkg/auth"
	"github.com/yigit/noteverse/internal/pkg/export"
	"github.com/yigit/noteverse/internal/pkg/validation"
	"github.com/yigit/noteverse/internal/seed"
)

// readPassword is swapped in tests
var readPassword = term.ReadPassword

var errPasswordMismatch = errors.New("passwords do not match")

type userStore interface {
	Create(ctx context.Context, user *models.User) error
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	UpdateRole(ctx context.Context, userID int64, role models.RoleType) error
	UpdatePassword(ctx context.Context, userID int64, passwordHash string) error
	Search(ctx context.Context, query string, offset uint64, limit int) ([]models.UserSummary, int64, error)
}

type resourceLister interface {
	List(ctx context.Context, filter repositories.ResourceFilter) ([]models.Resource, int64, error)
}

type tokenRevoker interface {
	RevokeAllForUser(ctx context.Context, userID int64) error
}

// cli carries what the commands operate on
type cli struct {
	users     userStore
	resources resourceLister
	tokens    tokenRevoker
	migrate   func(ctx context.Context) error
	adminName string
	logger    zerolog.Logger
}

type connector func(ctx context.Context) (*cli, func(), error)

func newRootCmd(open connector) *cobra.Command {
	root := &cobra.Command{
		Use:          "noteverse-admin",
		Short:        "Noteverse maintenance commands",
		SilenceUsage: true,
	}

	// run opens a connection for the duration of one command
	run := func(fn func(cmd *cobra.Command, c *cli, args []string) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			c, closeFn, err := open(cmd.Context())
			if err != nil {
				return err
			}
			defer closeFn()
			return fn(cmd, c, args)
		}
	}

	root.AddCommand(
		newMigrateCmd(run),
		newCreateAdminCmd(run),
		newSetRoleCmd(run),
		newResetPasswordCmd(run),
		newExportCmd(run),
	)
	return root
}

type runner func(fn func(cmd *cobra.Command, c *cli, args []string) error) func(*cobra.Command, []string) error

func newMigrateCmd(run runner) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		Args:  cobra.NoArgs,
		RunE: run(func(cmd *cobra.Command, c *cli, _ []string) error {
			if err := c.migrate(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Migrations applied")
			return nil
		}),
	}
}

func newCreateAdminCmd(run runner) *cobra.Command {
	var emailAddr, name string
	cmd := &cobra.Command{
		Use:   "create-admin",
		Short: "Create an administrator, or promote an existing account",
		Args:  cobra.NoArgs,
		RunE: run(func(cmd *cobra.Command, c *cli, _ []string) error {
			password, err := promptNewPassword(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			if name == "" {
				name = c.adminName
			}
			created, err := seed.EnsureAdmin(cmd.Context(), c.users, seed.Admin{Name: name, Email: emailAddr, Password: password}, c.logger)
			if err != nil {
				return err
			}
			if created {
				fmt.Fprintf(cmd.OutOrStdout(), "Administrator %s created\n", validation.NormalizeEmail(emailAddr))
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "%s is an administrator\n", validation.NormalizeEmail(emailAddr))
			}
			return nil
		}),
	}
	cmd.Flags().StringVar(&emailAddr, "email", "", "administrator email")
	cmd.Flags().StringVar(&name, "name", "", "display name")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func newSetRoleCmd(run runner) *cobra.Command {
	var emailAddr, role string
	cmd := &cobra.Command{
		Use:   "set-role",
		Short: "Change a user's role (user, operator, admin)",
		Args:  cobra.NoArgs,
		RunE: run(func(cmd *cobra.Command, c *cli, _ []string) error {
			r := models.RoleType(strings.ToLower(role))
			if !r.Valid() {
				return fmt.Errorf("unknown role %q", role)
			}
			user, err := c.users.GetByEmail(cmd.Context(), validation.NormalizeEmail(emailAddr))
			if err != nil {
				return err
			}
			if err := c.users.UpdateRole(cmd.Context(), user.ID, r); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s is now %s\n", user.Email, r)
			return nil
		}),
	}
	cmd.Flags().StringVar(&emailAddr, "email", "", "user email")
	cmd.Flags().StringVar(&role, "role", "", "new role")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("role")
	return cmd
}

func newResetPasswordCmd(run runner) *cobra.Command {
	var emailAddr string
	cmd := &cobra.Command{
		Use:   "reset-password",
		Short: "Set a user's password and end their sessions",
		Args:  cobra.NoArgs,
		RunE: run(func(cmd *cobra.Command, c *cli, _ []string) error {
			user, err := c.users.GetByEmail(cmd.Context(), validation.NormalizeEmail(emailAddr))
			if err != nil {
				return err
			}
			password, err := promptNewPassword(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			if !validation.IsValidPassword(password) {
				return errors.New("password must be at least 6 characters")
			}
			hash, err := auth.HashPassword(password)
			if err != nil {
				return err
			}
			if err := c.users.UpdatePassword(cmd.Context(), user.ID, hash); err != nil {
				return err
			}
			if err := c.tokens.RevokeAllForUser(cmd.Context(), user.ID); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Password updated for %s\n", user.Email)
			return nil
		}),
	}
	cmd.Flags().StringVar(&emailAddr, "email", "", "user email")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func newExportCmd(run runner) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:       "export users|resources",
		Short:     "Write users or resources as CSV",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"users", "resources"},
		RunE: run(func(cmd *cobra.Command, c *cli, args []string) error {
			w := cmd.OutOrStdout()
			if out != "" && out != "-" {
				f, err := os.Create(out)
				if err != nil {
					return err
				}
				defer f.Close()
				w = f
			}
			return c.export(cmd.Context(), args[0], w)
		}),
	}
	cmd.Flags().StringVarP(&out, "output", "o", "", "output file (default stdout)")
	return cmd
}

func (c *cli) export(ctx context.Context, what string, w io.Writer) error {
	switch what {
	case "users":
		users, _, err := c.users.Search(ctx, "", 0, 0)
		if err != nil {
			return err
		}
		return export.WriteUsersCSV(w, users)
	case "resources":
		resources, _, err := c.resources.List(ctx, repositories.ResourceFilter{})
		if err != nil {
			return err
		}
		return export.WriteResourcesCSV(w, resources)
	}
	return fmt.Errorf("unknown export %q", what)
}

// promptNewPassword reads a password twice from the terminal without echo
func promptNewPassword(w io.Writer) (string, error) {
	fmt.Fprint(w, "New password: ")
	first, err := readPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(w)
	if err != nil {
		return "", err
	}
	fmt.Fprint(w, "Repeat password: ")
	second, err := readPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(w)
	if err != nil {
		return "", err
	}
	if string(first) != string(second) {
		return "", errPasswordMismatch
	}
	return string(first), nil
}
