package cli

import (
	"errors"
	"fmt"

	"reciclo/internal/api"
	"reciclo/internal/models"
	"reciclo/internal/session"

	"github.com/spf13/cobra"
)

// sessionFailure shows why a login or registration failed.
func (r *runner) sessionFailure(err error, fallback string) error {
	n := r.app.Notifier
	switch {
	case errors.Is(err, session.ErrMissingCredentials):
		n.Error("Enter your email and password.")
	case errors.Is(err, session.ErrPasswordMismatch):
		n.Error("The passwords do not match.")
	default:
		n.Error(api.FormatError(err, fallback))
	}
	return ErrFailed
}

func (r *runner) loginCommand() *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in with email and password",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p := newPrompter(cmd.InOrStdin(), cmd.ErrOrStderr())
			var err error
			if email, err = p.orAsk(email, "Email"); err != nil {
				return err
			}
			if password, err = p.orAskSecret(password, "Password"); err != nil {
				return err
			}

			if err := r.app.Session.Login(cmd.Context(), models.Credentials{Email: email, Password: password}); err != nil {
				return r.sessionFailure(err, "Invalid email or password.")
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s\n", r.app.Session.User().Username)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&password, "password", "", "account password; prompted when omitted")
	return cmd
}

func (r *runner) registerCommand() *cobra.Command {
	var reg models.Registration
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account and sign in to it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p := newPrompter(cmd.InOrStdin(), cmd.ErrOrStderr())
			var err error
			if reg.Username, err = p.orAsk(reg.Username, "Username"); err != nil {
				return err
			}
			if reg.Email, err = p.orAsk(reg.Email, "Email"); err != nil {
				return err
			}
			if reg.Password1 == "" {
				if reg.Password1, err = p.password("Password"); err != nil {
					return err
				}
				if reg.Password2, err = p.password("Repeat password"); err != nil {
					return err
				}
			} else if reg.Password2 == "" {
				reg.Password2 = reg.Password1
			}

			if err := r.app.Session.Register(cmd.Context(), reg); err != nil {
				return r.sessionFailure(err, "Registration failed.")
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Welcome, %s!\n", r.app.Session.User().Username)
			return nil
		},
	}
	cmd.Flags().StringVar(&reg.Username, "username", "", "user name")
	cmd.Flags().StringVar(&reg.Email, "email", "", "account email")
	cmd.Flags().StringVar(&reg.Password1, "password", "", "password; prompted twice when omitted")
	cmd.Flags().StringVar(&reg.Password2, "password-confirm", "", "password confirmation; defaults to --password")
	return cmd
}

func (r *runner) logoutCommand() *cobra.Command {
	return &cobra.Command{
		Use:         "logout",
		Short:       "Forget the stored session",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{skipRestore: "true"},
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := r.app.Session.Logout(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Logged out.")
			return nil
		},
	}
}

func (r *runner) whoamiCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			u := r.app.Session.User()
			if u == nil {
				fmt.Fprintln(cmd.OutOrStdout(), "Not logged in.")
				return nil
			}
			printUser(cmd.OutOrStdout(), u)
			return nil
		},
	}
}

func (r *runner) profileCommand() *cobra.Command {
	profile := &cobra.Command{Use: "profile", Short: "Manage your profile"}

	var edit models.ProfileEdit
	editCmd := &cobra.Command{
		Use:   "edit",
		Short: "Change the user name, email or profile image",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if edit == (models.ProfileEdit{}) {
				return errors.New("nothing to change: pass --username, --email or --image")
			}
			if err := result(r.app.Session.UpdateProfile(cmd.Context(), edit)); err != nil {
				return err
			}
			if u := r.app.Session.User(); u != nil {
				printUser(cmd.OutOrStdout(), u)
			}
			return nil
		},
	}
	editCmd.Flags().StringVar(&edit.Username, "username", "", "new user name")
	editCmd.Flags().StringVar(&edit.Email, "email", "", "new email")
	editCmd.Flags().StringVar(&edit.ImagePath, "image", "", "path of a new profile image")
	profile.AddCommand(editCmd)
	return profile
}
