package main

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/receipttrack/receipttrack-go/api"
	"github.com/receipttrack/receipttrack-go/authorizer"
	"github.com/receipttrack/receipttrack-go/biometric"
	"github.com/receipttrack/receipttrack-go/credstore"
	"github.com/receipttrack/receipttrack-go/internal/config"
	apperrors "github.com/receipttrack/receipttrack-go/internal/errors"
	"github.com/receipttrack/receipttrack-go/session"
)

const credentialFile = "credentials.dat"

// app carries the wired-up client stack shared by all subcommands.
type app struct {
	cfg     config.Config
	log     zerolog.Logger
	store   *credstore.FileStore
	bio     *biometric.Adapter
	session *session.Manager
	backend *api.Client
}

func rootCmd() *cobra.Command {
	var verbose bool

	a := &app{}

	cmd := &cobra.Command{
		Use:           "receipttrack",
		Short:         "Track grocery receipts from the command line",
		Long:          "Receipttrack captures, lists and analyses grocery receipts against a ReceiptTracker backend.\nCredentials are kept in an encrypted store and sessions are refreshed automatically.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init(verbose)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.session != nil {
				a.session.Close()
			}
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			displayAppname(a.cfg.GetAppName())
			return cmd.Help()
		},
	}
	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	cmd.AddCommand(
		loginCmd(a),
		logoutCmd(a),
		whoamiCmd(a),
		registerCmd(a),
		refreshCmd(a),
		profilePictureCmd(a),
		biometricCmd(a),
		receiptsCmd(a),
		recognizeCmd(a),
		marketsCmd(a),
		statsCmd(a),
		usersCmd(a),
	)
	return cmd
}

func (a *app) init(verbose bool) error {
	a.cfg = config.New()

	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	a.log = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(level).With().Timestamp().Logger()

	if err := os.MkdirAll(a.cfg.GetDataFolder(), 0o700); err != nil {
		return errors.Wrap(err, "[app.init] create data folder")
	}

	store, err := credstore.NewFileStore(filepath.Join(a.cfg.GetDataFolder(), credentialFile), a.cfg.GetStorePassphrase())
	if err != nil {
		return errors.Wrap(err, "[app.init] open credential store")
	}
	a.store = store

	verifier := &biometric.ConfirmVerifier{In: os.Stdin, Out: os.Stderr}
	a.bio, err = biometric.NewAdapter(store, verifier, a.cfg.GetBiometricServer(), biometric.WithLogger(a.log))
	if err != nil {
		return errors.Wrap(err, "[app.init] biometric adapter")
	}

	gateway, err := api.New(a.cfg.GetBaseURL(), api.WithLogger(a.log))
	if err != nil {
		return errors.Wrap(err, "[app.init] api gateway")
	}

	a.session, err = session.NewManager(gateway, store,
		session.WithUnlocker(a.bio),
		session.WithLogger(a.log),
		session.WithSafetyMargin(a.cfg.GetSafetyMargin()),
		session.WithFallbackLifetime(a.cfg.GetDefaultTokenLifetime()),
	)
	if err != nil {
		return errors.Wrap(err, "[app.init] session manager")
	}

	transport := authorizer.New(a.session,
		authorizer.WithRateLimit(a.cfg.GetRateLimit(), a.cfg.GetRateBurst()),
		authorizer.WithLogger(a.log),
	)
	a.backend, err = api.New(a.cfg.GetBaseURL(),
		api.WithHTTPClient(&http.Client{Transport: transport, Timeout: a.cfg.GetRequestTimeout()}),
		api.WithLogger(a.log),
	)
	if err != nil {
		return errors.Wrap(err, "[app.init] api client")
	}
	return nil
}

// ensureSession restores a stored session before an authenticated command
// runs. A missing or unusable stored credential is a user-facing error, not a
// crash.
func (a *app) ensureSession(ctx context.Context) error {
	if a.session.Snapshot().Authenticated() {
		return nil
	}
	if err := a.session.AutoLogin(ctx); err != nil {
		if apperrors.Is(err, apperrors.ErrNoStoredCredentials) {
			return errors.New("not logged in, run \"receipttrack login\" first")
		}
		return err
	}
	return nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
