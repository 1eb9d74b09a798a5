package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	email    string
	password string
)

// signup: create an account and store the session.
func signupCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "signup",
		Short: "Create an account",
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := sb.Auth().SignUp(cmd.Context(), email, password)
			if err != nil {
				return err
			}
			if resp.User == nil || resp.AccessToken == "" {
				// email confirmation flows return a user without a session
				fmt.Println("account created. confirm your email, then run: laundryctl signin")
				return nil
			}

			if err := saveSession(storedSession{
				UserID:       resp.User.ID,
				Email:        resp.User.Email,
				AccessToken:  resp.AccessToken,
				RefreshToken: resp.RefreshToken,
			}); err != nil {
				return err
			}
			fmt.Printf("signed up as %s\n", resp.User.Email)
			return nil
		},
	}
	addCredentialFlags(cmd)
	return cmd
}

// signin: password grant, stores the session for later commands.
func signinCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "signin",
		Short: "Sign in with email and password",
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := sb.Auth().SignIn(cmd.Context(), email, password)
			if err != nil {
				return err
			}
			if resp.User == nil {
				return fmt.Errorf("sign-in response carried no user")
			}

			if err := saveSession(storedSession{
				UserID:       resp.User.ID,
				Email:        resp.User.Email,
				AccessToken:  resp.AccessToken,
				RefreshToken: resp.RefreshToken,
			}); err != nil {
				return err
			}
			fmt.Printf("signed in as %s\n", resp.User.Email)
			return nil
		},
	}
	addCredentialFlags(cmd)
	return cmd
}

// signout: revoke the token server-side and drop the local session.
func signoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "signout",
		Short: "Sign out and forget the local session",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := loadSession()
			if err == nil {
				if err := sb.Auth().SignOut(cmd.Context(), sess.AccessToken); err != nil {
					log.WithError(err).Warn("server-side sign-out failed")
				}
			}
			if err := clearSession(); err != nil {
				return err
			}
			fmt.Println("signed out")
			return nil
		},
	}
}

func addCredentialFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&password, "password", "", "account password")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
}
