package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/642studio/bachejoa/internal/model"
	"github.com/642studio/bachejoa/internal/service"
)

func newUserCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage user accounts",
		Long:  "Create accounts, grant or revoke the admin role, and list registered users.",
	}

	cmd.AddCommand(newUserCreateCmd())
	cmd.AddCommand(newUserPromoteCmd())
	cmd.AddCommand(newUserListCmd())

	return cmd
}

// withUsers opens the store and runs fn against a UserService.
func withUsers(ctx context.Context, fn func(*service.UserService) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg.Logging, false)
	store, err := openStore(ctx, cfg.Store, logger)
	if err != nil {
		return err
	}
	defer store.Close()
	return fn(service.NewUserService(store, service.NewPasswordHasher(), logger))
}

// ---------- user create ----------

func newUserCreateCmd() *cobra.Command {
	var (
		username string
		email    string
		password string
		admin    bool
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a new account",
		Example: `  bachejoa user create --username vecina --email vecina@example.com
  bachejoa user create --username admin --email admin@example.com --admin`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if password == "" {
				pw, err := promptPassword()
				if err != nil {
					return err
				}
				password = pw
			}
			return withUsers(cmd.Context(), func(users *service.UserService) error {
				user, err := users.Register(cmd.Context(), service.RegisterInput{
					Username: username,
					Email:    email,
					Password: password,
				})
				if err != nil {
					return err
				}
				if admin {
					if user, err = users.SetRole(cmd.Context(), user.Username, model.RoleAdmin); err != nil {
						return err
					}
				}
				fmt.Printf("Created %s %q (%s)\n", user.Role, user.Username, user.ID)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&username, "username", "", "Username (required)")
	cmd.Flags().StringVar(&email, "email", "", "Email address (required)")
	cmd.Flags().StringVar(&password, "password", "", "Password (prompted if omitted)")
	cmd.Flags().BoolVar(&admin, "admin", false, "Grant the admin role")
	cmd.MarkFlagRequired("username")
	cmd.MarkFlagRequired("email")

	return cmd
}

func promptPassword() (string, error) {
	fmt.Print("Password: ")
	pwBytes, err := term.ReadPassword(int(os.Stdin.Fd()))
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	fmt.Println()

	fmt.Print("Confirm password: ")
	confirmBytes, err := term.ReadPassword(int(os.Stdin.Fd()))
	if err != nil {
		return "", fmt.Errorf("failed to read confirmation: %w", err)
	}
	fmt.Println()

	if string(pwBytes) != string(confirmBytes) {
		return "", fmt.Errorf("passwords do not match")
	}
	return string(pwBytes), nil
}

// ---------- user promote ----------

func newUserPromoteCmd() *cobra.Command {
	var revoke bool

	cmd := &cobra.Command{
		Use:   "promote <email|username>",
		Short: "Grant or revoke the admin role",
		Example: `  bachejoa user promote admin@example.com
  bachejoa user promote vecina --revoke`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			role := model.RoleAdmin
			if revoke {
				role = model.RoleCitizen
			}
			return withUsers(cmd.Context(), func(users *service.UserService) error {
				user, err := users.SetRole(cmd.Context(), args[0], role)
				if err != nil {
					return err
				}
				fmt.Printf("%s is now %s\n", user.Username, user.Role)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&revoke, "revoke", false, "Demote back to citizen")

	return cmd
}

// ---------- user list ----------

func newUserListCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List all accounts",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withUsers(cmd.Context(), func(users *service.UserService) error {
				list, err := users.List(cmd.Context())
				if err != nil {
					return err
				}
				return printUsers(list, jsonOutput)
			})
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	return cmd
}

func printUsers(users []model.User, jsonOutput bool) error {
	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(users)
	}

	if len(users) == 0 {
		fmt.Println("No accounts yet. Use 'bachejoa user create' to create one.")
		return nil
	}

	fmt.Printf("%-24s %-32s %-8s %-20s\n", "USERNAME", "EMAIL", "ROLE", "CREATED")
	fmt.Printf("%-24s %-32s %-8s %-20s\n", "--------", "-----", "----", "-------")
	for _, u := range users {
		fmt.Printf("%-24s %-32s %-8s %-20s\n", u.Username, u.Email, u.Role, u.CreatedAt.Format("2006-01-02 15:04"))
	}
	return nil
}
