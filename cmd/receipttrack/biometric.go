package main

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

func biometricCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "biometric",
		Short: "Manage biometric unlock",
	}

	var (
		username string
		password string
	)
	enable := &cobra.Command{
		Use:   "enable",
		Short: "Store credentials for biometric unlock",
		RunE: func(cmd *cobra.Command, args []string) error {
			if username == "" {
				return errors.New("--username is required")
			}
			if password == "" {
				var err error
				if password, err = promptPassword("Password: "); err != nil {
					return err
				}
			}
			if err := a.bio.Enroll(username, password); err != nil {
				return err
			}
			fmt.Println("Biometric unlock enabled.")
			return nil
		},
	}
	enable.Flags().StringVarP(&username, "username", "u", "", "account username")
	enable.Flags().StringVarP(&password, "password", "p", "", "account password (prompted when omitted)")

	disable := &cobra.Command{
		Use:   "disable",
		Short: "Remove stored biometric credentials",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.bio.Delete(); err != nil {
				return err
			}
			fmt.Println("Biometric unlock disabled.")
			return nil
		},
	}

	login := &cobra.Command{
		Use:   "login",
		Short: "Sign in using stored biometric credentials",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.session.BiometricLogin(cmd.Context()); err != nil {
				return err
			}
			fmt.Println("Logged in with biometrics.")
			return nil
		},
	}

	status := &cobra.Command{
		Use:   "status",
		Short: "Show biometric availability and enrollment",
		RunE: func(cmd *cobra.Command, args []string) error {
			available, modality, err := a.bio.Available(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(map[string]any{
				"available": available,
				"modality":  modality.String(),
				"enrolled":  a.bio.Enrolled(),
			})
		},
	}

	cmd.AddCommand(enable, disable, login, status)
	return cmd
}
