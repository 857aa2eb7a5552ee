package main

import (
	"errors"
	"fmt"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"

	"github.com/sagarc03/shelf/clientcli"
	"github.com/sagarc03/shelf/identity"
)

var signupEmail string

var signupCmd = &cobra.Command{
	Use:   "signup <username>",
	Short: "Register a new user with the profile's Cognito app client",
	Long: `Register a new user. Cognito usually sends a confirmation code by
email; pass it to "shelf-cli confirm" before logging in.`,
	Args: cobra.ExactArgs(1),
	RunE: runSignup,
}

var confirmCmd = &cobra.Command{
	Use:   "confirm <username> <code>",
	Short: "Confirm a registration with the emailed code",
	Args:  cobra.ExactArgs(2),
	RunE:  runConfirm,
}

var loginCmd = &cobra.Command{
	Use:   "login <username>",
	Short: "Sign in and store tokens for the profile",
	Args:  cobra.ExactArgs(1),
	RunE:  runLogin,
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Sign out and forget the profile's tokens",
	Args:  cobra.NoArgs,
	RunE:  runLogout,
}

func init() {
	signupCmd.Flags().StringVar(&signupEmail, "email", "", "email address (required)")
	_ = signupCmd.MarkFlagRequired("email")
}

func promptPassword(label string) (string, error) {
	p := promptui.Prompt{
		Label: label,
		Mask:  '*',
		Validate: func(s string) error {
			if s == "" {
				return errors.New("password is required")
			}
			return nil
		},
	}
	return p.Run()
}

func runSignup(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, _, err := buildConfig()
	if err != nil {
		return err
	}
	idp, err := newIdentity(ctx, cfg)
	if err != nil {
		return err
	}

	password, err := promptPassword("Password")
	if err != nil {
		return handlePromptError(err)
	}

	res, err := idp.SignUp(ctx, args[0], password, signupEmail)
	if err != nil {
		return err
	}

	if res.Confirmed {
		fmt.Printf("User '%s' registered and confirmed.\n", args[0])
		return nil
	}
	fmt.Printf("User '%s' registered. Check %s for a confirmation code, then run:\n", args[0], signupEmail)
	fmt.Printf("  shelf-cli confirm %s <code>\n", args[0])
	return nil
}

func runConfirm(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, _, err := buildConfig()
	if err != nil {
		return err
	}
	idp, err := newIdentity(ctx, cfg)
	if err != nil {
		return err
	}

	if err := idp.ConfirmSignUp(ctx, args[0], args[1]); err != nil {
		return err
	}

	fmt.Printf("User '%s' confirmed.\n", args[0])
	return nil
}

func runLogin(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	username := args[0]

	cfg, p, err := buildConfig()
	if err != nil {
		return err
	}
	idp, err := newIdentity(ctx, cfg)
	if err != nil {
		return err
	}

	password, err := promptPassword("Password")
	if err != nil {
		return handlePromptError(err)
	}

	res, err := idp.SignIn(ctx, username, password)
	if err != nil {
		return err
	}

	tokens := res.Tokens
	if res.NewPasswordRequired != nil {
		fmt.Println("A new password is required.")
		newPassword, err := promptPassword("New password")
		if err != nil {
			return handlePromptError(err)
		}

		t, err := idp.CompleteNewPassword(ctx, username, newPassword, res.NewPasswordRequired.Session)
		if err != nil {
			return err
		}
		tokens = &t
	}
	if tokens == nil {
		return identity.ErrUnexpectedOutcome
	}

	path := clientcli.DefaultCredentialsPath()
	creds, err := clientcli.LoadCredentialsFile(path)
	if err != nil {
		return err
	}
	creds.Set(credentialsProfile(p), clientcli.Credentials{Username: username, Tokens: *tokens})
	if err := creds.Save(path); err != nil {
		return err
	}

	if !quiet {
		fmt.Printf("Signed in as '%s' (profile %s).\n", username, credentialsProfile(p))
	}
	return nil
}

func runLogout(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	cfg, p, err := buildConfig()
	if err != nil {
		return err
	}

	path := clientcli.DefaultCredentialsPath()
	creds, err := clientcli.LoadCredentialsFile(path)
	if err != nil {
		return err
	}

	name := credentialsProfile(p)
	stored, ok := creds.Get(name)
	if !ok {
		fmt.Println("Not signed in.")
		return nil
	}

	if stored.AccessToken != "" && cfg.ClientID != "" {
		idp, err := newIdentity(ctx, cfg)
		if err == nil {
			err = idp.SignOut(ctx, stored.AccessToken)
		}
		if err != nil && !quiet {
			fmt.Printf("Warning: remote sign-out failed: %v\n", err)
		}
	}

	creds.Remove(name)
	if err := creds.Save(path); err != nil {
		return err
	}

	if !quiet {
		fmt.Printf("Signed out of profile %s.\n", name)
	}
	return nil
}
