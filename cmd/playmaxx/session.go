package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/playmaxx/playmaxx/internal/auth"
	"github.com/playmaxx/playmaxx/internal/gateway"
	"github.com/playmaxx/playmaxx/internal/guard"
	"github.com/playmaxx/playmaxx/internal/infra"
	"github.com/playmaxx/playmaxx/internal/session"
)

const passwordEnvVar = "PLAYMAXX_PASSWORD"

// withController opens the configured store, restores the session and runs
// fn against it. The restore is synchronous here; there is no screen to
// hold while it runs.
func (a *app) withController(cmd *cobra.Command, fn func(ctx context.Context, ctrl *auth.Controller) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	backends, err := infra.Open(ctx, a.cfg)
	if err != nil {
		return fmt.Errorf("open session store: %w", err)
	}
	defer backends.Close()

	api := gateway.NewClient(a.cfg.APIBaseURL, a.cfg.AdminID, a.cfg.RequestTimeout, a.logger)
	ctrl := auth.New(session.NewStore(backends.KV), api, a.logger)
	if err := ctrl.Initialize(ctx); err != nil {
		return err
	}
	return fn(ctx, ctrl)
}

func newStatusCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the persisted session stage",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withController(cmd, func(_ context.Context, ctrl *auth.Controller) error {
				printState(cmd.OutOrStdout(), ctrl.Snapshot())
				return nil
			})
		},
	}
}

func newLoginCmd(a *app) *cobra.Command {
	var mobile, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in with mobile number and password",
		Long: `Sign in with mobile number and password.

The password is read from --password or, when the flag is empty, from
the ` + passwordEnvVar + ` environment variable.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if password == "" {
				password = os.Getenv(passwordEnvVar)
			}
			if err := auth.ValidateMobile(mobile); err != nil {
				return err
			}
			if err := auth.ValidatePassword(password); err != nil {
				return err
			}
			return a.withController(cmd, func(ctx context.Context, ctrl *auth.Controller) error {
				if d := guard.Allow(guard.Login, ctrl.Stage()); !d.Allowed {
					return fmt.Errorf("already signed in, continue at %s", d.RedirectTo)
				}
				primary, err := ctrl.Login(ctx, mobile, password)
				if err != nil {
					return describe(ctrl, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "signed in as %s, next: %s\n", primary.Name, guard.Landing(ctrl.Stage()))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&mobile, "mobile", "", "10 digit mobile number")
	cmd.Flags().StringVar(&password, "password", "", "account password")
	cmd.MarkFlagRequired("mobile")
	return cmd
}

func newMpinCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "mpin <pin>",
		Short: "Verify the 4 digit PIN",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := auth.ValidatePin(args[0]); err != nil {
				return err
			}
			return a.withController(cmd, func(ctx context.Context, ctrl *auth.Controller) error {
				if d := guard.Allow(guard.Mpin, ctrl.Stage()); !d.Allowed {
					return fmt.Errorf("PIN step not available, continue at %s", d.RedirectTo)
				}
				elevated, err := ctrl.ValidateMpin(ctx, args[0])
				if err != nil {
					return describe(ctrl, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "verified, %d banners, next: %s\n", len(elevated.Banners), guard.Landing(ctrl.Stage()))
				return nil
			})
		},
	}
}

func newLockCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "lock",
		Short: "Drop the PIN session and keep the login",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withController(cmd, func(ctx context.Context, ctrl *auth.Controller) error {
				if err := ctrl.ClearMpinSession(ctx); err != nil {
					return describe(ctrl, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "locked, next: %s\n", guard.Landing(ctrl.Stage()))
				return nil
			})
		},
	}
}

func newLogoutCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "End the session",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withController(cmd, func(ctx context.Context, ctrl *auth.Controller) error {
				if err := ctrl.Logout(ctx); err != nil {
					return describe(ctrl, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "signed out, next: %s\n", guard.Landing(ctrl.Stage()))
				return nil
			})
		},
	}
}

func printState(w io.Writer, s auth.State) {
	fmt.Fprintf(w, "stage: %s\n", s.Stage)
	if s.Primary.Present() {
		fmt.Fprintf(w, "name: %s\nmobile: %s\n", s.Primary.Name, s.Primary.Mobile)
	}
	if s.Elevated.Present() {
		fmt.Fprintf(w, "banners: %d\n", len(s.Elevated.Banners))
	}
	fmt.Fprintf(w, "next: %s\n", guard.Landing(s.Stage))
}

// describe turns controller errors into the message a user would see, with
// the screen to continue at when the session was downgraded.
func describe(ctrl *auth.Controller, err error) error {
	var ae *auth.Error
	if !errors.As(err, &ae) {
		return err
	}
	if ae.SessionExpired() {
		return fmt.Errorf("%s (continue at %s)", ae.Message, guard.Landing(ctrl.Stage()))
	}
	return errors.New(auth.MessageOf(err))
}
