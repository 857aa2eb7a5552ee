package identity_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	cip "github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider/types"
	"github.com/sagarc03/shelf/identity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockAPI struct {
	mock.Mock
}

func (m *MockAPI) SignUp(ctx context.Context, in *cip.SignUpInput, _ ...func(*cip.Options)) (*cip.SignUpOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*cip.SignUpOutput)
	return out, args.Error(1)
}

func (m *MockAPI) ConfirmSignUp(ctx context.Context, in *cip.ConfirmSignUpInput, _ ...func(*cip.Options)) (*cip.ConfirmSignUpOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*cip.ConfirmSignUpOutput)
	return out, args.Error(1)
}

func (m *MockAPI) InitiateAuth(ctx context.Context, in *cip.InitiateAuthInput, _ ...func(*cip.Options)) (*cip.InitiateAuthOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*cip.InitiateAuthOutput)
	return out, args.Error(1)
}

func (m *MockAPI) RespondToAuthChallenge(ctx context.Context, in *cip.RespondToAuthChallengeInput, _ ...func(*cip.Options)) (*cip.RespondToAuthChallengeOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*cip.RespondToAuthChallengeOutput)
	return out, args.Error(1)
}

func (m *MockAPI) GlobalSignOut(ctx context.Context, in *cip.GlobalSignOutInput, _ ...func(*cip.Options)) (*cip.GlobalSignOutOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*cip.GlobalSignOutOutput)
	return out, args.Error(1)
}

var fixedNow = time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)

func newClient(t *testing.T, secret string) (*identity.Client, *MockAPI) {
	t.Helper()
	api := new(MockAPI)
	t.Cleanup(func() { api.AssertExpectations(t) })

	c, err := identity.New(api, identity.Config{
		ClientID:     "client-1",
		ClientSecret: secret,
		Clock:        func() time.Time { return fixedNow },
	})
	require.NoError(t, err)
	return c, api
}

func authResult() *types.AuthenticationResultType {
	return &types.AuthenticationResultType{
		IdToken:      aws.String("id-token"),
		AccessToken:  aws.String("access-token"),
		RefreshToken: aws.String("refresh-token"),
		ExpiresIn:    3600,
	}
}

func TestNew_Validation(t *testing.T) {
	t.Parallel()

	_, err := identity.New(nil, identity.Config{ClientID: "c"})
	assert.Error(t, err)

	_, err = identity.New(new(MockAPI), identity.Config{})
	assert.Error(t, err)
}

func TestSignUp(t *testing.T) {
	t.Parallel()
	c, api := newClient(t, "")

	api.On("SignUp", mock.Anything, mock.MatchedBy(func(in *cip.SignUpInput) bool {
		return aws.ToString(in.ClientId) == "client-1" &&
			aws.ToString(in.Username) == "alice" &&
			aws.ToString(in.Password) == "Secret#123" &&
			in.SecretHash == nil &&
			len(in.UserAttributes) == 1 &&
			aws.ToString(in.UserAttributes[0].Name) == "email" &&
			aws.ToString(in.UserAttributes[0].Value) == "alice@example.com"
	})).Return(&cip.SignUpOutput{UserSub: aws.String("sub-1"), UserConfirmed: false}, nil)

	res, err := c.SignUp(context.Background(), "alice", "Secret#123", "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, identity.SignUpResult{UserSub: "sub-1"}, res)
}

func TestSignUp_UsernameExists(t *testing.T) {
	t.Parallel()
	c, api := newClient(t, "")

	api.On("SignUp", mock.Anything, mock.Anything).
		Return(nil, &types.UsernameExistsException{Message: aws.String("exists")})

	_, err := c.SignUp(context.Background(), "alice", "pw", "a@example.com")
	assert.ErrorIs(t, err, identity.ErrUsernameExists)
}

func TestConfirmSignUp(t *testing.T) {
	t.Parallel()
	c, api := newClient(t, "")

	api.On("ConfirmSignUp", mock.Anything, mock.MatchedBy(func(in *cip.ConfirmSignUpInput) bool {
		return aws.ToString(in.ConfirmationCode) == "123456" && aws.ToString(in.Username) == "alice"
	})).Return(&cip.ConfirmSignUpOutput{}, nil).Once()
	api.On("ConfirmSignUp", mock.Anything, mock.Anything).
		Return(nil, &types.CodeMismatchException{Message: aws.String("bad code")}).Once()

	require.NoError(t, c.ConfirmSignUp(context.Background(), "alice", "123456"))

	err := c.ConfirmSignUp(context.Background(), "alice", "000000")
	assert.ErrorIs(t, err, identity.ErrCodeMismatch)
}

func TestSignIn_Success(t *testing.T) {
	t.Parallel()
	c, api := newClient(t, "")

	api.On("InitiateAuth", mock.Anything, mock.MatchedBy(func(in *cip.InitiateAuthInput) bool {
		return in.AuthFlow == types.AuthFlowTypeUserPasswordAuth &&
			in.AuthParameters["USERNAME"] == "alice" &&
			in.AuthParameters["PASSWORD"] == "pw"
	})).Return(&cip.InitiateAuthOutput{AuthenticationResult: authResult()}, nil)

	res, err := c.SignIn(context.Background(), "alice", "pw")
	require.NoError(t, err)
	require.NotNil(t, res.Tokens)
	assert.Nil(t, res.NewPasswordRequired)
	assert.Equal(t, identity.Tokens{
		IDToken:      "id-token",
		AccessToken:  "access-token",
		RefreshToken: "refresh-token",
		ExpiresAt:    fixedNow.Add(time.Hour),
	}, *res.Tokens)
}

func TestSignIn_NewPasswordRequired(t *testing.T) {
	t.Parallel()
	c, api := newClient(t, "")

	api.On("InitiateAuth", mock.Anything, mock.Anything).Return(&cip.InitiateAuthOutput{
		ChallengeName: types.ChallengeNameTypeNewPasswordRequired,
		Session:       aws.String("session-1"),
	}, nil)

	res, err := c.SignIn(context.Background(), "alice", "temp")
	require.NoError(t, err)
	assert.Nil(t, res.Tokens)
	require.NotNil(t, res.NewPasswordRequired)
	assert.Equal(t, "session-1", res.NewPasswordRequired.Session)
}

func TestSignIn_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		apiErr  error
		wantErr error
	}{
		{name: "wrong password", apiErr: &types.NotAuthorizedException{}, wantErr: identity.ErrNotAuthorized},
		{name: "unconfirmed", apiErr: &types.UserNotConfirmedException{}, wantErr: identity.ErrUserNotConfirmed},
		{name: "unknown user", apiErr: &types.UserNotFoundException{}, wantErr: identity.ErrUserNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			c, api := newClient(t, "")
			api.On("InitiateAuth", mock.Anything, mock.Anything).Return(nil, tt.apiErr)

			_, err := c.SignIn(context.Background(), "alice", "pw")
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestSignIn_UnhandledChallenge(t *testing.T) {
	t.Parallel()
	c, api := newClient(t, "")

	api.On("InitiateAuth", mock.Anything, mock.Anything).Return(&cip.InitiateAuthOutput{
		ChallengeName: types.ChallengeNameTypeSmsMfa,
		Session:       aws.String("s"),
	}, nil)

	_, err := c.SignIn(context.Background(), "alice", "pw")
	assert.ErrorIs(t, err, identity.ErrUnexpectedOutcome)
}

func TestSignIn_SecretHash(t *testing.T) {
	t.Parallel()
	c, api := newClient(t, "app-secret")

	api.On("InitiateAuth", mock.Anything, mock.MatchedBy(func(in *cip.InitiateAuthInput) bool {
		return in.AuthParameters["SECRET_HASH"] != ""
	})).Return(&cip.InitiateAuthOutput{AuthenticationResult: authResult()}, nil)

	_, err := c.SignIn(context.Background(), "alice", "pw")
	require.NoError(t, err)
}

func TestCompleteNewPassword(t *testing.T) {
	t.Parallel()
	c, api := newClient(t, "")

	api.On("RespondToAuthChallenge", mock.Anything, mock.MatchedBy(func(in *cip.RespondToAuthChallengeInput) bool {
		return in.ChallengeName == types.ChallengeNameTypeNewPasswordRequired &&
			aws.ToString(in.Session) == "session-1" &&
			in.ChallengeResponses["USERNAME"] == "alice" &&
			in.ChallengeResponses["NEW_PASSWORD"] == "N3w#password"
	})).Return(&cip.RespondToAuthChallengeOutput{AuthenticationResult: authResult()}, nil)

	tokens, err := c.CompleteNewPassword(context.Background(), "alice", "N3w#password", "session-1")
	require.NoError(t, err)
	assert.Equal(t, "id-token", tokens.IDToken)
}

func TestRefresh_KeepsRefreshToken(t *testing.T) {
	t.Parallel()
	c, api := newClient(t, "")

	res := authResult()
	res.RefreshToken = nil
	api.On("InitiateAuth", mock.Anything, mock.MatchedBy(func(in *cip.InitiateAuthInput) bool {
		return in.AuthFlow == types.AuthFlowTypeRefreshTokenAuth &&
			in.AuthParameters["REFRESH_TOKEN"] == "old-refresh"
	})).Return(&cip.InitiateAuthOutput{AuthenticationResult: res}, nil)

	tokens, err := c.Refresh(context.Background(), "alice", "old-refresh")
	require.NoError(t, err)
	assert.Equal(t, "old-refresh", tokens.RefreshToken)
	assert.Equal(t, "access-token", tokens.AccessToken)
}

func TestSignOut(t *testing.T) {
	t.Parallel()
	c, api := newClient(t, "")

	api.On("GlobalSignOut", mock.Anything, mock.MatchedBy(func(in *cip.GlobalSignOutInput) bool {
		return aws.ToString(in.AccessToken) == "access-token"
	})).Return(&cip.GlobalSignOutOutput{}, nil).Once()
	api.On("GlobalSignOut", mock.Anything, mock.Anything).Return(nil, errors.New("network down")).Once()

	require.NoError(t, c.SignOut(context.Background(), "access-token"))

	err := c.SignOut(context.Background(), "other")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "network down")
}
