package commands

import (
	"fmt"
	"strings"
	"time"

	"corpsite/internal/config"
	"corpsite/internal/observability"
	"corpsite/internal/serviceinterfaces"
	contextutils "corpsite/internal/utils"

	"github.com/spf13/cobra"
)

// AdminCommands returns the admin account commands
func AdminCommands(admins serviceinterfaces.AdminServiceInterface, readPassword PasswordReader, loc *time.Location, logger *observability.Logger) *cobra.Command {
	adminCmd := &cobra.Command{
		Use:   "admin",
		Short: "Admin account commands",
		Long: `Admin account commands.

Available commands:
  create    - Create an admin account
  list      - List admin accounts`,
	}

	var name, role string
	create := &cobra.Command{
		Use:   "create <email>",
		Short: "Create an admin account",
		Long:  `Create an admin account. The password is read from the terminal twice.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			email := strings.TrimSpace(args[0])
			if name == "" {
				name = email
			}

			password, err := readPassword("Password: ")
			if err != nil {
				return err
			}
			if len(password) < config.AdminPasswordMinLen {
				return contextutils.ErrorWithContextf("password must be at least %d characters", config.AdminPasswordMinLen)
			}
			confirm, err := readPassword("Confirm password: ")
			if err != nil {
				return err
			}
			if password != confirm {
				return contextutils.ErrorWithContextf("passwords do not match")
			}

			admin, err := admins.CreateAdmin(ctx, name, email, password, role)
			if err != nil {
				logger.Error(ctx, "Failed to create admin", err, map[string]interface{}{
					"email": contextutils.MaskEmail(email),
				})
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created admin #%d %s <%s> (%s)\n", admin.ID, admin.Name, admin.Email, nullString(admin.RoleName))
			return nil
		},
	}
	create.Flags().StringVar(&name, "name", "", "display name, defaults to the email")
	create.Flags().StringVar(&role, "role", config.DefaultAdminRole, "role name")

	list := &cobra.Command{
		Use:   "list",
		Short: "List admin accounts",
		RunE: func(cmd *cobra.Command, _ []string) error {
			items, err := admins.ListAdmins(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%-5s %-20s %-32s %-14s %-10s %s\n", "ID", "Name", "Email", "Role", "Status", "Last login")
			for _, a := range items {
				fmt.Fprintf(out, "%-5d %-20s %-32s %-14s %-10s %s\n",
					a.ID, a.Name, a.Email, nullString(a.RoleName), a.Status, nullTime(a.LastLogin, loc))
			}
			return nil
		},
	}

	adminCmd.AddCommand(create, list)
	return adminCmd
}
