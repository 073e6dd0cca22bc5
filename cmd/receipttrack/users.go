package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/receipttrack/receipttrack-go/api"
	"github.com/receipttrack/receipttrack-go/internal/utils"
)

func usersCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "users",
		Short: "Administer user accounts",
	}

	var (
		username    string
		skip, limit int
	)
	list := &cobra.Command{
		Use:   "list",
		Short: "List accounts (admin only)",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := a.ensureSession(ctx); err != nil {
				return err
			}
			users, err := a.backend.ListUsers(ctx, username, skip, limit)
			if err != nil {
				return err
			}
			return printJSON(users)
		},
	}
	list.Flags().StringVarP(&username, "username", "u", "", "filter by username substring")
	list.Flags().IntVar(&skip, "skip", 0, "number of accounts to skip")
	list.Flags().IntVar(&limit, "limit", 20, "page size")

	var (
		email    string
		fullname string
		disabled bool
		roles    []string
	)
	set := &cobra.Command{
		Use:   "set <user-id>",
		Short: "Update an account (admin only)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := a.ensureSession(ctx); err != nil {
				return err
			}
			userID, err := intArg(args[0], "user-id")
			if err != nil {
				return err
			}

			var update api.UserUpdate
			if cmd.Flags().Changed("email") {
				update.Email = utils.Ptr(email)
			}
			if cmd.Flags().Changed("fullname") {
				update.Fullname = utils.Ptr(fullname)
			}
			if cmd.Flags().Changed("disabled") {
				update.Disabled = utils.Ptr(disabled)
			}
			if cmd.Flags().Changed("roles") {
				update.Roles = roles
			}

			user, err := a.backend.UpdateUser(ctx, userID, update)
			if err != nil {
				return err
			}
			return printJSON(user)
		},
	}
	set.Flags().StringVar(&email, "email", "", "contact email")
	set.Flags().StringVar(&fullname, "fullname", "", "display name")
	set.Flags().BoolVar(&disabled, "disabled", false, "disable or enable the account")
	set.Flags().StringSliceVar(&roles, "roles", nil, "replace the account's roles")

	var (
		newUsername string
		newEmail    string
		newFullname string
		newRoles    []string
	)
	create := &cobra.Command{
		Use:   "create",
		Short: "Create an account with explicit roles (admin only)",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := a.ensureSession(ctx); err != nil {
				return err
			}
			password, err := promptPassword("Password for new account: ")
			if err != nil {
				return err
			}

			reg := api.AdminRegistration{Username: newUsername, Password: password, Roles: newRoles}
			if newEmail != "" {
				reg.Email = utils.Ptr(newEmail)
			}
			if newFullname != "" {
				reg.Fullname = utils.Ptr(newFullname)
			}

			user, err := a.backend.Register(ctx, reg)
			if err != nil {
				return err
			}
			return printJSON(user)
		},
	}
	create.Flags().StringVarP(&newUsername, "username", "u", "", "account username")
	create.Flags().StringVar(&newEmail, "email", "", "contact email")
	create.Flags().StringVar(&newFullname, "fullname", "", "display name")
	create.Flags().StringSliceVar(&newRoles, "roles", nil, "roles to assign (defaults to \"user\")")
	_ = create.MarkFlagRequired("username")

	del := &cobra.Command{
		Use:   "delete <user-id>",
		Short: "Delete an account (admin only)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := a.ensureSession(ctx); err != nil {
				return err
			}
			userID, err := intArg(args[0], "user-id")
			if err != nil {
				return err
			}
			if err := a.backend.DeleteUser(ctx, userID); err != nil {
				return err
			}
			fmt.Printf("User %d deleted.\n", userID)
			return nil
		},
	}

	cmd.AddCommand(list, create, set, del)
	return cmd
}
