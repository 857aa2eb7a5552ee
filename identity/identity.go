// Package identity signs users up and in against a Cognito user pool.
//
// It is used by shelf-cli to obtain the bearer tokens the server verifies.
// Every call is synchronous and returns either a result or an error;
// a pool that demands a new password answers SignIn with a
// NewPasswordRequired result instead of tokens.
package identity

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	cip "github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider/types"
)

var (
	ErrNotAuthorized     = errors.New("incorrect username or password")
	ErrUserNotConfirmed  = errors.New("user is not confirmed")
	ErrUsernameExists    = errors.New("username already exists")
	ErrCodeMismatch      = errors.New("invalid verification code")
	ErrUserNotFound      = errors.New("user not found")
	ErrInvalidPassword   = errors.New("password does not satisfy the pool policy")
	ErrUnexpectedOutcome = errors.New("unexpected authentication outcome")
)

// API is the subset of the Cognito identity provider client used here.
type API interface {
	SignUp(ctx context.Context, in *cip.SignUpInput, optFns ...func(*cip.Options)) (*cip.SignUpOutput, error)
	ConfirmSignUp(ctx context.Context, in *cip.ConfirmSignUpInput, optFns ...func(*cip.Options)) (*cip.ConfirmSignUpOutput, error)
	InitiateAuth(ctx context.Context, in *cip.InitiateAuthInput, optFns ...func(*cip.Options)) (*cip.InitiateAuthOutput, error)
	RespondToAuthChallenge(ctx context.Context, in *cip.RespondToAuthChallengeInput, optFns ...func(*cip.Options)) (*cip.RespondToAuthChallengeOutput, error)
	GlobalSignOut(ctx context.Context, in *cip.GlobalSignOutInput, optFns ...func(*cip.Options)) (*cip.GlobalSignOutOutput, error)
}

// Tokens are the credentials returned by a successful sign-in.
type Tokens struct {
	IDToken      string    `yaml:"id_token" json:"idToken"`
	AccessToken  string    `yaml:"access_token" json:"accessToken"`
	RefreshToken string    `yaml:"refresh_token,omitempty" json:"refreshToken,omitempty"`
	ExpiresAt    time.Time `yaml:"expires_at" json:"expiresAt"`
}

// SignUpResult describes a newly registered user.
type SignUpResult struct {
	UserSub   string
	Confirmed bool
}

// SignInResult is the outcome of SignIn. Exactly one of Tokens and
// NewPasswordRequired is set.
type SignInResult struct {
	Tokens              *Tokens
	NewPasswordRequired *NewPasswordChallenge
}

// NewPasswordChallenge carries the session needed by CompleteNewPassword.
type NewPasswordChallenge struct {
	Session string
}

// Config identifies the app client.
type Config struct {
	ClientID string
	// ClientSecret is set for app clients created with a secret.
	ClientSecret string
	Clock        func() time.Time
}

// Client performs identity operations for one app client.
type Client struct {
	api API
	cfg Config
	now func() time.Time
}

// New creates a Client.
func New(api API, cfg Config) (*Client, error) {
	if api == nil {
		return nil, errors.New("new identity client: api is required")
	}
	if cfg.ClientID == "" {
		return nil, errors.New("new identity client: client id is required")
	}

	now := cfg.Clock
	if now == nil {
		now = time.Now
	}
	return &Client{api: api, cfg: cfg, now: now}, nil
}

// NewFromConfig creates a Client backed by the SDK client for awsCfg.
func NewFromConfig(awsCfg aws.Config, cfg Config) (*Client, error) {
	return New(cip.NewFromConfig(awsCfg), cfg)
}

// SignUp registers username with password and email.
func (c *Client) SignUp(ctx context.Context, username, password, email string) (SignUpResult, error) {
	out, err := c.api.SignUp(ctx, &cip.SignUpInput{
		ClientId:   aws.String(c.cfg.ClientID),
		SecretHash: c.secretHash(username),
		Username:   aws.String(username),
		Password:   aws.String(password),
		UserAttributes: []types.AttributeType{
			{Name: aws.String("email"), Value: aws.String(email)},
		},
	})
	if err != nil {
		return SignUpResult{}, fmt.Errorf("sign up: %w", mapError(err))
	}

	return SignUpResult{
		UserSub:   aws.ToString(out.UserSub),
		Confirmed: out.UserConfirmed,
	}, nil
}

// ConfirmSignUp confirms a registration with the emailed code.
func (c *Client) ConfirmSignUp(ctx context.Context, username, code string) error {
	_, err := c.api.ConfirmSignUp(ctx, &cip.ConfirmSignUpInput{
		ClientId:         aws.String(c.cfg.ClientID),
		SecretHash:       c.secretHash(username),
		Username:         aws.String(username),
		ConfirmationCode: aws.String(code),
	})
	if err != nil {
		return fmt.Errorf("confirm sign up: %w", mapError(err))
	}
	return nil
}

// SignIn authenticates with username and password.
func (c *Client) SignIn(ctx context.Context, username, password string) (SignInResult, error) {
	params := map[string]string{
		"USERNAME": username,
		"PASSWORD": password,
	}
	c.addSecretHash(params, username)

	out, err := c.api.InitiateAuth(ctx, &cip.InitiateAuthInput{
		AuthFlow:       types.AuthFlowTypeUserPasswordAuth,
		ClientId:       aws.String(c.cfg.ClientID),
		AuthParameters: params,
	})
	if err != nil {
		return SignInResult{}, fmt.Errorf("sign in: %w", mapError(err))
	}

	if out.ChallengeName == types.ChallengeNameTypeNewPasswordRequired {
		return SignInResult{
			NewPasswordRequired: &NewPasswordChallenge{Session: aws.ToString(out.Session)},
		}, nil
	}

	tokens, err := c.tokens(out.AuthenticationResult, "")
	if err != nil {
		return SignInResult{}, fmt.Errorf("sign in: %w", err)
	}
	return SignInResult{Tokens: &tokens}, nil
}

// CompleteNewPassword answers a NewPasswordRequired challenge.
func (c *Client) CompleteNewPassword(ctx context.Context, username, newPassword, session string) (Tokens, error) {
	responses := map[string]string{
		"USERNAME":     username,
		"NEW_PASSWORD": newPassword,
	}
	c.addSecretHash(responses, username)

	out, err := c.api.RespondToAuthChallenge(ctx, &cip.RespondToAuthChallengeInput{
		ChallengeName:      types.ChallengeNameTypeNewPasswordRequired,
		ClientId:           aws.String(c.cfg.ClientID),
		Session:            aws.String(session),
		ChallengeResponses: responses,
	})
	if err != nil {
		return Tokens{}, fmt.Errorf("complete new password: %w", mapError(err))
	}

	tokens, err := c.tokens(out.AuthenticationResult, "")
	if err != nil {
		return Tokens{}, fmt.Errorf("complete new password: %w", err)
	}
	return tokens, nil
}

// Refresh exchanges a refresh token for new id and access tokens. The
// refresh token itself is kept.
func (c *Client) Refresh(ctx context.Context, username, refreshToken string) (Tokens, error) {
	params := map[string]string{"REFRESH_TOKEN": refreshToken}
	c.addSecretHash(params, username)

	out, err := c.api.InitiateAuth(ctx, &cip.InitiateAuthInput{
		AuthFlow:       types.AuthFlowTypeRefreshTokenAuth,
		ClientId:       aws.String(c.cfg.ClientID),
		AuthParameters: params,
	})
	if err != nil {
		return Tokens{}, fmt.Errorf("refresh: %w", mapError(err))
	}

	tokens, err := c.tokens(out.AuthenticationResult, refreshToken)
	if err != nil {
		return Tokens{}, fmt.Errorf("refresh: %w", err)
	}
	return tokens, nil
}

// SignOut revokes every token issued to the user of accessToken.
func (c *Client) SignOut(ctx context.Context, accessToken string) error {
	if _, err := c.api.GlobalSignOut(ctx, &cip.GlobalSignOutInput{
		AccessToken: aws.String(accessToken),
	}); err != nil {
		return fmt.Errorf("sign out: %w", mapError(err))
	}
	return nil
}

func (c *Client) tokens(res *types.AuthenticationResultType, refreshToken string) (Tokens, error) {
	if res == nil {
		return Tokens{}, ErrUnexpectedOutcome
	}

	if rt := aws.ToString(res.RefreshToken); rt != "" {
		refreshToken = rt
	}

	return Tokens{
		IDToken:      aws.ToString(res.IdToken),
		AccessToken:  aws.ToString(res.AccessToken),
		RefreshToken: refreshToken,
		ExpiresAt:    c.now().Add(time.Duration(res.ExpiresIn) * time.Second).UTC(),
	}, nil
}

func (c *Client) secretHash(username string) *string {
	if c.cfg.ClientSecret == "" {
		return nil
	}
	mac := hmac.New(sha256.New, []byte(c.cfg.ClientSecret))
	mac.Write([]byte(username + c.cfg.ClientID))
	return aws.String(base64.StdEncoding.EncodeToString(mac.Sum(nil)))
}

func (c *Client) addSecretHash(params map[string]string, username string) {
	if h := c.secretHash(username); h != nil {
		params["SECRET_HASH"] = *h
	}
}

func mapError(err error) error {
	var (
		notAuthorized *types.NotAuthorizedException
		notConfirmed  *types.UserNotConfirmedException
		exists        *types.UsernameExistsException
		mismatch      *types.CodeMismatchException
		expired       *types.ExpiredCodeException
		notFound      *types.UserNotFoundException
		badPassword   *types.InvalidPasswordException
	)

	switch {
	case errors.As(err, &notAuthorized):
		return fmt.Errorf("%w: %w", ErrNotAuthorized, err)
	case errors.As(err, &notConfirmed):
		return fmt.Errorf("%w: %w", ErrUserNotConfirmed, err)
	case errors.As(err, &exists):
		return fmt.Errorf("%w: %w", ErrUsernameExists, err)
	case errors.As(err, &mismatch), errors.As(err, &expired):
		return fmt.Errorf("%w: %w", ErrCodeMismatch, err)
	case errors.As(err, &notFound):
		return fmt.Errorf("%w: %w", ErrUserNotFound, err)
	case errors.As(err, &badPassword):
		return fmt.Errorf("%w: %w", ErrInvalidPassword, err)
	default:
		return err
	}
}
