package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/receipttrack/receipttrack-go/api"
	"github.com/receipttrack/receipttrack-go/internal/utils"
)

func loginCmd(a *app) *cobra.Command {
	var (
		username     string
		password     string
		useBiometric bool
		enroll       bool
	)

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and store the session",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			if useBiometric {
				if err := a.session.BiometricLogin(ctx); err != nil {
					return err
				}
				fmt.Println("Logged in with biometrics.")
				return nil
			}

			if username == "" {
				return errors.New("--username is required")
			}
			if password == "" {
				var err error
				if password, err = promptPassword("Password: "); err != nil {
					return err
				}
			}

			if err := a.session.Login(ctx, username, password); err != nil {
				return err
			}
			if enroll {
				if err := a.bio.Enroll(username, password); err != nil {
					return errors.Wrap(err, "session established but biometric enrollment failed")
				}
				fmt.Println("Biometric unlock enabled.")
			}

			fmt.Printf("Logged in as %s.\n", username)
			return nil
		},
	}
	cmd.Flags().StringVarP(&username, "username", "u", "", "account username")
	cmd.Flags().StringVarP(&password, "password", "p", "", "account password (prompted when omitted)")
	cmd.Flags().BoolVar(&useBiometric, "biometric", false, "sign in with enrolled biometric credentials")
	cmd.Flags().BoolVar(&enroll, "enroll-biometric", false, "enable biometric unlock after signing in")
	return cmd
}

func logoutCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and discard stored session credentials",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.session.Logout(cmd.Context()); err != nil {
				return err
			}
			fmt.Println("Logged out.")
			return nil
		},
	}
}

func whoamiCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user's profile",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := a.ensureSession(ctx); err != nil {
				return err
			}
			user, err := a.backend.Me(ctx)
			if err != nil {
				return err
			}
			return printJSON(user)
		},
	}
}

func registerCmd(a *app) *cobra.Command {
	var (
		username string
		email    string
		fullname string
	)

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create a new account",
		RunE: func(cmd *cobra.Command, args []string) error {
			if username == "" {
				return errors.New("--username is required")
			}
			password, err := promptPassword("Password: ")
			if err != nil {
				return err
			}
			confirm, err := promptPassword("Confirm password: ")
			if err != nil {
				return err
			}
			if password != confirm {
				return errors.New("passwords do not match")
			}

			reg := api.PublicRegistration{Username: username, Password: password}
			if email != "" {
				reg.Email = utils.Ptr(email)
			}
			if fullname != "" {
				reg.Fullname = utils.Ptr(fullname)
			}

			user, err := a.backend.RegisterPublic(cmd.Context(), reg)
			if err != nil {
				return err
			}
			fmt.Printf("Account %q created, run \"receipttrack login\" to sign in.\n", user.Username)
			return nil
		},
	}
	cmd.Flags().StringVarP(&username, "username", "u", "", "desired username")
	cmd.Flags().StringVar(&email, "email", "", "contact email")
	cmd.Flags().StringVar(&fullname, "fullname", "", "display name")
	return cmd
}

func refreshCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Force an immediate session refresh",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := a.ensureSession(ctx); err != nil {
				return err
			}
			if err := a.session.Refresh(ctx); err != nil {
				return err
			}
			fmt.Println("Session refreshed.")
			return nil
		},
	}
}

func profilePictureCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "profile-picture <image-file>",
		Short: "Upload a new profile picture",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := a.ensureSession(ctx); err != nil {
				return err
			}
			content, err := os.ReadFile(args[0])
			if err != nil {
				return errors.Wrap(err, "read image")
			}
			pic, err := a.backend.UploadProfilePicture(ctx, filepath.Base(args[0]), content)
			if err != nil {
				return err
			}
			fmt.Printf("Profile picture updated: %s\n", pic.ProfilePicture)
			return nil
		},
	}
}

func promptPassword(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	raw, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", errors.Wrap(err, "read password")
	}
	return string(raw), nil
}
