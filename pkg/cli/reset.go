package cli

import (
	"context"
	"flag"
	"fmt"
)

func newResetPasswordCommand() *Command {
	cmd := &Command{
		Name:        "reset-password",
		Description: "Recover an account password via emailed OTP",
		Flags:       flag.NewFlagSet("reset-password", flag.ExitOnError),
		Run:         runResetPassword,
	}

	cmd.Flags.String("email", "", "Account email")
	cmd.Flags.String("otp", "", "One-time code from the recovery email")
	cmd.Flags.String("new-password", "", "New password (with -otp)")

	return cmd
}

func runResetPassword(args []string) error {
	cmd := newResetPasswordCommand()
	if err := cmd.Flags.Parse(args); err != nil {
		return err
	}

	email := cmd.Flags.Lookup("email").Value.String()
	otp := cmd.Flags.Lookup("otp").Value.String()
	newPassword := cmd.Flags.Lookup("new-password").Value.String()

	if email == "" {
		return fmt.Errorf("email is required")
	}

	env, err := newAppEnv()
	if err != nil {
		return err
	}
	defer env.Close()

	ctx := context.Background()

	// no OTP yet: kick off the flow
	if otp == "" {
		if err := env.client.RequestPasswordReset(ctx, email); err != nil {
			return err
		}
		fmt.Println("If the account exists, a one-time code was sent to its email")
		fmt.Println("Finish with: pagegate reset-password -email <email> -otp <code> -new-password <password>")
		return nil
	}

	if newPassword == "" {
		if err := env.client.VerifyPasswordResetOTP(ctx, email, otp); err != nil {
			return err
		}
		fmt.Println("Code accepted, set the password with -new-password")
		return nil
	}

	if err := env.client.ConfirmPasswordReset(ctx, email, otp, newPassword); err != nil {
		return err
	}
	fmt.Println("Password updated, log in with the new password")
	return nil
}
