package cli

import (
	"github.com/spf13/cobra"

	"github.com/rcliao/unotes/internal/authclient"
)

func addCredentialFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("username", "u", "", "Username (required)")
	cmd.Flags().StringP("password", "p", "", "Password (required)")
	cmd.MarkFlagRequired("username")
	cmd.MarkFlagRequired("password")
}

func credentials(cmd *cobra.Command) authclient.Credentials {
	u, _ := cmd.Flags().GetString("username")
	p, _ := cmd.Flags().GetString("password")
	return authclient.Credentials{Username: u, Password: p}
}

func newSignUpCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "signup",
		Short: "Create an account",
		Long:  "Create an account. Username must be 4-32 characters, password 8-64.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cred := credentials(cmd)
			if err := a.auth.SignUp(cmd.Context(), cred); err != nil {
				return fail("signup", err)
			}
			signIn, _ := cmd.Flags().GetBool("signin")
			status := "signed_up"
			if signIn {
				if err := a.resolver.SignIn(cmd.Context(), cred.Username, cred.Password); err != nil {
					return fail("signin", err)
				}
				status = "signed_in"
			}
			a.printFields(cmd.OutOrStdout(), []string{"status", "username"}, map[string]any{
				"status":   status,
				"username": cred.Username,
			})
			return nil
		},
	}
	addCredentialFlags(cmd)
	cmd.Flags().Bool("signin", false, "Sign in after creating the account")
	return cmd
}

func newSignInCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "signin",
		Short: "Sign in and store the session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cred := credentials(cmd)
			if err := a.resolver.SignIn(cmd.Context(), cred.Username, cred.Password); err != nil {
				return fail("signin", err)
			}
			a.printFields(cmd.OutOrStdout(), []string{"status", "username"}, map[string]any{
				"status":   "signed_in",
				"username": cred.Username,
			})
			return nil
		},
	}
	addCredentialFlags(cmd)
	return cmd
}

func newSignOutCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "signout",
		Short: "Sign out and forget the stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.resolver.SignOut(cmd.Context()); err != nil {
				// Local tokens are already gone; report the remote failure.
				return fail("signout", err)
			}
			a.printFields(cmd.OutOrStdout(), []string{"status"}, map[string]any{"status": "signed_out"})
			return nil
		},
	}
}
