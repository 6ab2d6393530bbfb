package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/feedback-coach/internal/authflow"
	"github.com/ziadkadry99/feedback-coach/internal/backend"
)

var (
	loginEmail    string
	loginRemember bool
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in to the Feedback Coach server",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		ctrl := authflow.NewController(a.client, a.session, a.notes)

		email := loginEmail
		if email == "" {
			email, err = ask("Email", ctrl.RememberedEmail(), fieldValidator(authflow.FieldEmail))
			if err != nil {
				return err
			}
		}
		password, err := askSecret("Password", fieldValidator(authflow.FieldPassword))
		if err != nil {
			return err
		}
		// A remembered email keeps the box ticked.
		remember := loginRemember || ctrl.RememberedEmail() != ""

		if _, err := ctrl.Login(cmd.Context(), authflow.LoginForm{
			Email:    email,
			Password: password,
			Remember: remember,
		}); err != nil {
			return errors.New("login failed")
		}

		user, err := a.client.UserData(cmd.Context())
		if err == nil {
			fmt.Printf("Signed in as %s %s <%s>\n", user.FirstName, user.LastName, user.Email)
		}
		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forget the stored session token",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.session.Clear(); err != nil {
			return fmt.Errorf("clearing session: %w", err)
		}
		fmt.Println("Signed out.")
		return nil
	},
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the signed-in user",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.requireLogin(); err != nil {
			return err
		}
		user, err := a.client.UserData(cmd.Context())
		if err != nil {
			if errors.Is(err, backend.ErrUnauthorized) {
				return errNotSignedIn
			}
			return fmt.Errorf("fetching user: %w", err)
		}
		fmt.Printf("%s %s <%s> (user %d) on %s\n", user.FirstName, user.LastName, user.Email, user.UserID, a.client.BaseURL())
		return nil
	},
}

// fieldValidator checks an input as the user types it.
func fieldValidator(field string) func(string) error {
	return func(value string) error {
		if msg := authflow.ValidateField(field, value); msg != "" {
			return errors.New(msg)
		}
		return nil
	}
}

func init() {
	loginCmd.Flags().StringVar(&loginEmail, "email", "", "account email (prompted when empty)")
	loginCmd.Flags().BoolVar(&loginRemember, "remember", false, "remember the email for next time")
	rootCmd.AddCommand(loginCmd, logoutCmd, whoamiCmd)
}
