package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/megacloud/megacloud-cli/internal/api"
	"github.com/megacloud/megacloud-cli/internal/notify"
)

// newLoginCmd creates the 'login' command.
func newLoginCmd() *cobra.Command {
	var email string
	var otp string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in with a one-time code sent by email",
		Long: `Sign in to MegaCloud.

A one-time code is emailed to you; enter it when prompted. The session
is saved and reused by later commands until 'megacloud logout'.

Examples:
  megacloud login
  megacloud login --email me@example.com`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, client, err := getAPIClient()
			if err != nil {
				return err
			}
			n := notify.NewNotifier(notify.Config{Out: os.Stderr}, GetLogger())
			ctx := GetContext()

			if email == "" {
				email, err = readLine(stdin(), os.Stderr, "Email: ")
				if err != nil {
					return fmt.Errorf("failed to read email: %w", err)
				}
			}
			msg, err := client.RequestOTP(ctx, email)
			if err != nil {
				n.Failure(api.UserMessage(err, "Failed to send OTP."))
				return errReported
			}
			if msg == "" {
				msg = "OTP sent to " + email
			}
			n.Success(msg)

			if otp == "" {
				otp, err = readSecret("OTP: ")
				if err != nil {
					return fmt.Errorf("failed to read OTP: %w", err)
				}
			}
			res, err := client.VerifyOTP(ctx, otp)
			if err != nil {
				n.Failure(api.UserMessage(err, "Verification failed."))
				return errReported
			}

			msg = res.Message
			if msg == "" {
				msg = "Logged in"
			}
			n.Success(msg)
			GetLogger().Debug().Str("redirect", res.Redirect).Msg("login complete")
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Account email (prompted when omitted)")
	cmd.Flags().StringVar(&otp, "otp", "", "One-time code (prompted when omitted)")

	return cmd
}

// newLogoutCmd creates the 'logout' command.
func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and forget the saved session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, client, err := getAPIClient()
			if err != nil {
				return err
			}
			n := notify.NewNotifier(notify.Config{Out: os.Stderr}, GetLogger())

			msg, err := client.Logout(GetContext())
			if err != nil {
				GetLogger().Warn().Err(err).Msg("server logout failed")
				n.Success("Local session cleared")
				return nil
			}
			if msg == "" {
				msg = "Logged out"
			}
			n.Success(msg)
			return nil
		},
	}
}
