package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/spf13/cobra"

	"github.com/sagarc03/shelf/clientcli"
	"github.com/sagarc03/shelf/identity"
	"github.com/sagarc03/shelf/internal/awsconfig"
)

// anonymousProfile names the credentials entry used when no profile is
// configured.
const anonymousProfile = "default"

var (
	version = "dev"

	cfgFile     string
	profileName string
	endpoint    string
	bearerToken string
	jsonOutput  bool
	quiet       bool
)

var rootCmd = &cobra.Command{
	Use:     "shelf-cli",
	Version: version,
	Short:   "Client for the shelf item API",
	Long: `shelf-cli manages your items on a shelf server.

Sign in once with "shelf-cli login"; tokens are stored per profile in
~/.shelf/credentials.yaml and refreshed automatically when they expire.
Set SHELF_TOKEN or --token to send a token of your own instead.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&cfgFile, "config", "c", "", "config file (default: ~/.shelf/config.yaml, env: SHELF_CONFIG)")
	flags.StringVarP(&profileName, "profile", "p", "", "profile to use (env: SHELF_PROFILE)")
	flags.StringVarP(&endpoint, "endpoint", "e", "", "server URL (default: http://localhost:5708, env: SHELF_ENDPOINT)")
	flags.StringVar(&bearerToken, "token", "", "bearer token, overrides stored credentials (env: SHELF_TOKEN)")
	flags.BoolVar(&jsonOutput, "json", false, "output as JSON")
	flags.BoolVarP(&quiet, "quiet", "q", false, "suppress non-essential output")

	rootCmd.AddCommand(configureCmd)
	rootCmd.AddCommand(signupCmd)
	rootCmd.AddCommand(confirmCmd)
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)
	rootCmd.AddCommand(healthCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(getCmd)
	rootCmd.AddCommand(createCmd)
	rootCmd.AddCommand(updateCmd)
	rootCmd.AddCommand(deleteCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		var exitErr *exitError
		if !errors.As(err, &exitErr) {
			_ = getFormatter().FormatError(os.Stderr, err)
		}
		os.Exit(1)
	}
}

// exitError is returned when the command already reported the failure and
// only the exit code is left.
type exitError struct {
	code int
}

func (e *exitError) Error() string {
	return fmt.Sprintf("exit status %d", e.code)
}

func getConfigPath() string {
	if cfgFile != "" {
		return cfgFile
	}
	if p := clientcli.ConfigPathFromEnv(); p != "" {
		return p
	}
	return clientcli.DefaultConfigPath()
}

// resolveProfile returns the selected profile, or nil when the config file
// has none and no profile was asked for by name.
func resolveProfile() (*clientcli.Profile, error) {
	name := profileName
	if name == "" {
		name = clientcli.ProfileFromEnv()
	}

	cfgFileData, err := clientcli.LoadConfigFile(getConfigPath())
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) && name == "" && cfgFile == "" {
			return nil, nil
		}
		return nil, err
	}

	if len(cfgFileData.Profiles) == 0 && name == "" {
		return nil, nil
	}
	return cfgFileData.GetProfile(name)
}

// credentialsProfile is the key under which tokens for p are stored.
func credentialsProfile(p *clientcli.Profile) string {
	if p == nil {
		return anonymousProfile
	}
	return p.Name
}

// buildConfig merges the profile, environment and flags, later sources
// taking precedence.
func buildConfig() (*clientcli.Config, *clientcli.Profile, error) {
	p, err := resolveProfile()
	if err != nil {
		return nil, nil, err
	}

	cfg := clientcli.MergeConfig(
		clientcli.ConfigFromProfile(p),
		clientcli.ConfigFromEnv(),
		&clientcli.Config{Endpoint: endpoint, Token: bearerToken},
	).WithDefaults()

	return cfg, p, nil
}

func getFormatter() clientcli.Formatter {
	return clientcli.NewFormatter(jsonOutput, quiet)
}

// newIdentity returns the Cognito client for cfg.
func newIdentity(ctx context.Context, cfg *clientcli.Config) (*identity.Client, error) {
	if err := cfg.ValidateIdentity(); err != nil {
		return nil, err
	}

	awsCfg, err := awsconfig.Load(ctx, awsconfig.Options{Region: cfg.Region})
	if err != nil {
		return nil, err
	}

	return identity.NewFromConfig(awsCfg, identity.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: os.Getenv("SHELF_CLIENT_SECRET"),
	})
}

// getClient returns a client that authenticates with the explicit token
// when one is set, and with the stored credentials otherwise.
func getClient(ctx context.Context) (*clientcli.Client, error) {
	cfg, p, err := buildConfig()
	if err != nil {
		return nil, err
	}

	if cfg.Token != "" {
		return clientcli.New(cfg)
	}

	source := &clientcli.FileTokenSource{
		Path:    clientcli.DefaultCredentialsPath(),
		Profile: credentialsProfile(p),
	}
	if cfg.ClientID != "" {
		idp, err := newIdentity(ctx, cfg)
		if err != nil {
			return nil, err
		}
		source.Refresher = idp
	}

	return clientcli.New(cfg, clientcli.WithTokenSource(optionalToken{source}))
}

// optionalToken sends requests unauthenticated when the user never signed
// in, so servers running without authentication still work.
type optionalToken struct {
	clientcli.TokenSource
}

func (o optionalToken) Token(ctx context.Context) (string, error) {
	tok, err := o.TokenSource.Token(ctx)
	if errors.Is(err, clientcli.ErrNotSignedIn) {
		return "", nil
	}
	return tok, err
}
