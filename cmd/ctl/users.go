package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"installment_app_echo/internal/models"
	"installment_app_echo/internal/services"
)

var createUserCmd = &cobra.Command{
	Use:   "create-user",
	Short: "Create an account, or update the role of an existing one",
	Example: `  # First administrator of a fresh installation
  ctl create-user --email boss@example.com --name "Boss" --role admin --password s3cret!`,
	RunE: runCreateUser,
}

var assignRoleCmd = &cobra.Command{
	Use:   "assign-role",
	Short: "Set the role of an existing account",
	RunE:  runAssignRole,
}

func init() {
	rootCmd.AddCommand(createUserCmd, assignRoleCmd)

	createUserCmd.Flags().String("email", "", "Account e-mail (required)")
	createUserCmd.Flags().String("name", "", "Full name")
	createUserCmd.Flags().String("role", string(models.RoleEmployee), "Role: admin or employee")
	createUserCmd.Flags().String("password", "", "Initial password (default "+services.DefaultPassword+")")
	_ = createUserCmd.MarkFlagRequired("email")

	assignRoleCmd.Flags().String("email", "", "Account e-mail (required)")
	assignRoleCmd.Flags().String("role", "", "Role: admin or employee (required)")
	_ = assignRoleCmd.MarkFlagRequired("email")
	_ = assignRoleCmd.MarkFlagRequired("role")
}

func runCreateUser(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	app, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer app.Close()

	email, _ := cmd.Flags().GetString("email")
	name, _ := cmd.Flags().GetString("name")
	role, _ := cmd.Flags().GetString("role")
	password, _ := cmd.Flags().GetString("password")

	result, err := app.Users.Upsert(ctx, systemSession(), services.UpsertUserRequest{
		Email:    email,
		Password: password,
		FullName: name,
		Role:     models.Role(role),
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%s: %s (%s) role=%s\n", result.Message, result.User.Email, result.User.ID, result.User.Role)
	return nil
}

func runAssignRole(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	app, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer app.Close()

	email, _ := cmd.Flags().GetString("email")
	role, _ := cmd.Flags().GetString("role")

	account, err := app.Accounts.GetByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("account %s: %w", email, err)
	}
	if err := app.Users.SetRole(ctx, systemSession(), account.UID, models.Role(role)); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%s is now %s\n", email, role)
	return nil
}
