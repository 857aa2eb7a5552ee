package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"

	"github.com/sagarc03/shelf/clientcli"
)

var configureCmd = &cobra.Command{
	Use:   "configure",
	Short: "Manage server profiles",
	Long: `Profiles live in ~/.shelf/config.yaml. Each one names a server
endpoint and, for servers behind Cognito, the region and app client id
used by signup and login. Pick one with --profile or SHELF_PROFILE.`,
}

func init() {
	configureCmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List profiles, marking the default with *",
			Args:  cobra.NoArgs,
			RunE:  runConfigureList,
		},
		&cobra.Command{
			Use:   "add <name>",
			Short: "Create or edit a profile interactively",
			Long: `Prompts for the endpoint, Cognito region and app client id, then
calls the endpoint's health check before writing the profile.`,
			Args: cobra.ExactArgs(1),
			RunE: runConfigureAdd,
		},
		&cobra.Command{
			Use:     "remove <name>",
			Aliases: []string{"rm"},
			Short:   "Delete a profile and its stored tokens",
			Args:    cobra.ExactArgs(1),
			RunE:    runConfigureRemove,
		},
		&cobra.Command{
			Use:   "set-default <name>",
			Short: "Make a profile the default",
			Args:  cobra.ExactArgs(1),
			RunE:  runConfigureSetDefault,
		},
		&cobra.Command{
			Use:   "show [name]",
			Short: "Print a profile and the user signed in with it",
			Args:  cobra.MaximumNArgs(1),
			RunE:  runConfigureShow,
		},
	)
}

// openProfiles loads the config file. With allowMissing a missing file
// reads as empty.
func openProfiles(allowMissing bool) (*clientcli.ConfigFile, string, error) {
	path := getConfigPath()

	f, err := clientcli.LoadConfigFile(path)
	switch {
	case err == nil:
		return f, path, nil
	case allowMissing && errors.Is(err, fs.ErrNotExist):
		return &clientcli.ConfigFile{}, path, nil
	default:
		return nil, path, fmt.Errorf("load config: %w", err)
	}
}

// confirm asks a yes/no question; anything but yes is no.
func confirm(label string) bool {
	_, err := (&promptui.Prompt{Label: label, IsConfirm: true}).Run()
	return err == nil
}

func ask(label, def string, validate promptui.ValidateFunc) (string, error) {
	p := promptui.Prompt{Label: label, Default: def, Validate: validate}
	v, err := p.Run()
	return strings.TrimSpace(v), err
}

func runConfigureList(_ *cobra.Command, _ []string) error {
	f, _, err := openProfiles(true)
	if err != nil {
		return err
	}

	if len(f.Profiles) == 0 && !jsonOutput {
		fmt.Println("No profiles configured. Create one with 'shelf-cli configure add <name>'.")
		return nil
	}

	var defaultName string
	if p, err := f.GetDefaultProfile(); err == nil {
		defaultName = p.Name
	}
	return getFormatter().FormatProfileList(os.Stdout, f.Profiles, defaultName)
}

func runConfigureAdd(cmd *cobra.Command, args []string) error {
	name := args[0]

	f, path, err := openProfiles(true)
	if err != nil {
		return err
	}

	current := clientcli.Profile{Name: name, Endpoint: clientcli.DefaultEndpoint}
	existing, _ := f.GetProfile(name)
	if existing != nil {
		if !confirm(fmt.Sprintf("Profile '%s' exists. Edit it", name)) {
			fmt.Println("Cancelled.")
			return nil
		}
		current = *existing
	}

	next := clientcli.Profile{Name: name}
	if next.Endpoint, err = ask("Endpoint URL", current.Endpoint, func(s string) error {
		return (&clientcli.Config{Endpoint: strings.TrimSpace(s)}).Validate()
	}); err != nil {
		return handlePromptError(err)
	}
	next.Endpoint = strings.TrimSuffix(next.Endpoint, "/")

	if next.Region, err = ask("Cognito region (blank without Cognito)", current.Region, nil); err != nil {
		return handlePromptError(err)
	}
	if next.ClientID, err = ask("Cognito app client id", current.ClientID, nil); err != nil {
		return handlePromptError(err)
	}

	makeDefault := len(f.Profiles) == 0 || current.Default
	if !makeDefault {
		makeDefault = confirm("Make this the default profile")
	}

	fmt.Print("Checking ", next.Endpoint, "/health... ")
	if err := checkHealth(cmd.Context(), next.Endpoint); err != nil {
		fmt.Println("unreachable")
		fmt.Printf("  %v\n", err)
		if !confirm("Save the profile anyway") {
			fmt.Println("Cancelled.")
			return nil
		}
	} else {
		fmt.Println("ok")
	}

	if existing != nil {
		err = f.UpdateProfile(next)
	} else {
		err = f.AddProfile(next)
	}
	if err == nil && makeDefault {
		err = f.SetDefault(name)
	}
	if err != nil {
		return err
	}

	if err := f.Save(path); err != nil {
		return fmt.Errorf("save config: %w", err)
	}

	verb := "added"
	if existing != nil {
		verb = "updated"
	}
	fmt.Printf("Profile '%s' %s", name, verb)
	if makeDefault {
		fmt.Print(" (default)")
	}
	fmt.Println(".")
	return nil
}

func runConfigureRemove(_ *cobra.Command, args []string) error {
	name := args[0]

	f, path, err := openProfiles(false)
	if err != nil {
		return err
	}
	if _, err := f.GetProfile(name); err != nil {
		return err
	}

	if !confirm(fmt.Sprintf("Remove profile '%s'", name)) {
		fmt.Println("Cancelled.")
		return nil
	}

	if err := f.RemoveProfile(name); err != nil {
		return err
	}
	if err := f.Save(path); err != nil {
		return fmt.Errorf("save config: %w", err)
	}

	credsPath := clientcli.DefaultCredentialsPath()
	creds, err := clientcli.LoadCredentialsFile(credsPath)
	if err != nil {
		return err
	}
	if _, ok := creds.Get(name); ok {
		creds.Remove(name)
		if err := creds.Save(credsPath); err != nil {
			return err
		}
	}

	fmt.Printf("Profile '%s' removed.\n", name)
	return nil
}

func runConfigureSetDefault(_ *cobra.Command, args []string) error {
	f, path, err := openProfiles(false)
	if err != nil {
		return err
	}

	if err := f.SetDefault(args[0]); err != nil {
		return err
	}
	if err := f.Save(path); err != nil {
		return fmt.Errorf("save config: %w", err)
	}

	fmt.Printf("'%s' is now the default profile.\n", args[0])
	return nil
}

func runConfigureShow(_ *cobra.Command, args []string) error {
	f, _, err := openProfiles(false)
	if err != nil {
		return err
	}

	var name string
	if len(args) > 0 {
		name = args[0]
	}

	p, err := f.GetProfile(name)
	if err != nil {
		return err
	}

	var signedInAs string
	if creds, err := clientcli.LoadCredentialsFile(clientcli.DefaultCredentialsPath()); err == nil {
		if c, ok := creds.Get(p.Name); ok {
			signedInAs = c.Username
		}
	}

	return getFormatter().FormatProfileShow(os.Stdout, *p, p.Default || name == "", signedInAs)
}

func checkHealth(ctx context.Context, endpointURL string) error {
	client, err := clientcli.New(&clientcli.Config{Endpoint: endpointURL}, clientcli.WithTimeout(5*time.Second))
	if err != nil {
		return err
	}

	_, err = client.Health(ctx)
	return err
}

// handlePromptError turns an aborted prompt into a clean exit.
func handlePromptError(err error) error {
	switch {
	case errors.Is(err, promptui.ErrInterrupt):
		fmt.Println("\nCancelled.")
		os.Exit(0)
	case errors.Is(err, promptui.ErrAbort):
		fmt.Println("Cancelled.")
		return nil
	}
	return err
}
