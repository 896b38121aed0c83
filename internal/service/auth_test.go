package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vibecoders/vibecoders/internal/apperror"
	"github.com/vibecoders/vibecoders/internal/auth"
	"github.com/vibecoders/vibecoders/internal/model"
	"golang.org/x/crypto/bcrypt"
)

type authFixture struct {
	svc     *AuthService
	users   *fakeUserRepo
	revoked *fakeRevocationStore
	tokens  *auth.TokenService
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()
	tokens, err := auth.NewTokenService("test-secret-at-least-16-chars!!", time.Hour)
	require.NoError(t, err)

	f := &authFixture{
		users:   newFakeUserRepo(),
		revoked: newFakeRevocationStore(),
		tokens:  tokens,
	}
	f.svc = NewAuthService(f.users, f.revoked, tokens, auth.NewPasswordService(bcrypt.MinCost), discardLogger())
	return f
}

func (f *authFixture) register(t *testing.T, username, password string) *model.User {
	t.Helper()
	u, err := f.svc.Register(context.Background(), RegisterInput{Username: username, Password: password})
	require.NoError(t, err)
	return u
}

// =========================================================================
// Register TESTS
// =========================================================================

func TestRegister_Success(t *testing.T) {
	f := newAuthFixture(t)

	user, err := f.svc.Register(context.Background(), RegisterInput{
		Username: "  abc ",
		Password: "pw",
		Profile:  model.Profile{Bio: " hello ", GithubURL: "https://github.com/abc"},
	})
	require.NoError(t, err)

	assert.NotEmpty(t, user.ID)
	assert.Equal(t, "abc", user.Username)
	assert.Equal(t, "hello", user.Bio)
	assert.NotEqual(t, "pw", user.PasswordHash, "password must be stored hashed")
	assert.Empty(t, f.revoked.revoked)
}

func TestRegister_Validation(t *testing.T) {
	f := newAuthFixture(t)

	cases := []struct {
		name string
		in   RegisterInput
		msg  string
	}{
		{"missing username", RegisterInput{Password: "pw"}, "Username and password are required"},
		{"blank username", RegisterInput{Username: "   ", Password: "pw"}, "Username and password are required"},
		{"missing password", RegisterInput{Username: "abc"}, "Username and password are required"},
		{"bad link", RegisterInput{Username: "abc", Password: "pw", Profile: model.Profile{LinkedinURL: "javascript:alert(1)"}}, "linkedin_url must be an http(s) URL"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.Register(context.Background(), tc.in)
			require.ErrorIs(t, err, apperror.ErrValidation)
			assert.Equal(t, tc.msg, err.Error())
		})
	}
	assert.Empty(t, f.users.users, "no user may be created on validation failure")
}

func TestRegister_DuplicateUsername(t *testing.T) {
	f := newAuthFixture(t)
	f.register(t, "abc", "pw")

	_, err := f.svc.Register(context.Background(), RegisterInput{Username: "abc", Password: "other"})
	require.ErrorIs(t, err, apperror.ErrConflict)
	assert.Equal(t, "username already exists", err.Error())
}

// =========================================================================
// Login TESTS
// =========================================================================

func TestLogin_Success(t *testing.T) {
	f := newAuthFixture(t)
	registered := f.register(t, "abc", "secret")

	res, err := f.svc.Login(context.Background(), "abc", "secret")
	require.NoError(t, err)
	assert.Equal(t, registered.ID, res.User.ID)

	claims, err := f.tokens.Validate(res.Token)
	require.NoError(t, err)
	assert.Equal(t, registered.ID, claims.UserID)
	assert.Equal(t, res.Claims.TokenID, claims.TokenID)
}

func TestLogin_InvalidCredentials(t *testing.T) {
	f := newAuthFixture(t)
	f.register(t, "abc", "secret")

	for name, creds := range map[string][2]string{
		"wrong password": {"abc", "nope"},
		"unknown user":   {"nobody", "secret"},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := f.svc.Login(context.Background(), creds[0], creds[1])
			require.ErrorIs(t, err, apperror.ErrUnauthorized)
			assert.Equal(t, "Invalid credentials", err.Error())
		})
	}
}

func TestLogin_GitHubOnlyAccountHasNoPassword(t *testing.T) {
	f := newAuthFixture(t)
	_, err := f.svc.LoginWithGitHub(context.Background(), &auth.GitHubUser{ID: 1, Login: "octocat"})
	require.NoError(t, err)

	_, err = f.svc.Login(context.Background(), "octocat", "")
	assert.ErrorIs(t, err, apperror.ErrValidation)
	_, err = f.svc.Login(context.Background(), "octocat", "anything")
	assert.ErrorIs(t, err, apperror.ErrUnauthorized)
}

func TestLogin_RepositoryFailure(t *testing.T) {
	f := newAuthFixture(t)
	f.users.err = errors.New("disk I/O error")

	_, err := f.svc.Login(context.Background(), "abc", "secret")
	require.Error(t, err)
	assert.False(t, errors.Is(err, apperror.ErrUnauthorized), "a DB failure is not bad credentials")
}

// =========================================================================
// GitHub TESTS
// =========================================================================

func TestLoginWithGitHub_CreatesThenReuses(t *testing.T) {
	f := newAuthFixture(t)
	gh := &auth.GitHubUser{ID: 7, Login: "octocat", Bio: "meow", HTMLURL: "https://github.com/octocat", AvatarURL: "https://a.example/o.png"}

	first, err := f.svc.LoginWithGitHub(context.Background(), gh)
	require.NoError(t, err)
	assert.Equal(t, "octocat", first.User.Username)
	assert.Equal(t, "https://a.example/o.png", first.User.PhotoURL)

	second, err := f.svc.LoginWithGitHub(context.Background(), gh)
	require.NoError(t, err)
	assert.Equal(t, first.User.ID, second.User.ID)
	assert.Len(t, f.users.users, 1)
}

func TestLoginWithGitHub_UsernameTakenByPasswordAccount(t *testing.T) {
	f := newAuthFixture(t)
	f.register(t, "octocat", "pw")

	res, err := f.svc.LoginWithGitHub(context.Background(), &auth.GitHubUser{ID: 7, Login: "octocat"})
	require.NoError(t, err)
	assert.Equal(t, "octocat-github", res.User.Username)
}

func TestLoginWithGitHub_FallbackNameAlsoTaken(t *testing.T) {
	f := newAuthFixture(t)
	f.register(t, "octocat", "pw")
	f.register(t, "octocat-github", "pw")

	res, err := f.svc.LoginWithGitHub(context.Background(), &auth.GitHubUser{ID: 7, Login: "octocat"})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(res.User.Username, "octocat-"), res.User.Username)
	assert.NotEqual(t, "octocat-github", res.User.Username)
	assert.Len(t, res.User.Username, len("octocat-")+8)

	again, err := f.svc.LoginWithGitHub(context.Background(), &auth.GitHubUser{ID: 7, Login: "octocat"})
	require.NoError(t, err)
	assert.Equal(t, res.User.ID, again.User.ID, "linked by GitHub login, not username")
}

func TestGitHubUsernames_FitLengthLimit(t *testing.T) {
	long := strings.Repeat("a", MaxUsernameLength)
	for _, name := range githubUsernames(long) {
		assert.LessOrEqual(t, len(name), MaxUsernameLength, name)
	}
}

// =========================================================================
// Logout / revocation TESTS
// =========================================================================

func TestLogout_RevokesToken(t *testing.T) {
	f := newAuthFixture(t)
	f.register(t, "abc", "secret")
	res, err := f.svc.Login(context.Background(), "abc", "secret")
	require.NoError(t, err)

	require.NoError(t, f.svc.Logout(context.Background(), res.Claims))

	revoked, _ := f.revoked.IsRevoked(context.Background(), res.Claims.TokenID)
	assert.True(t, revoked)
}

func TestLogout_WithoutClaims(t *testing.T) {
	f := newAuthFixture(t)

	err := f.svc.Logout(context.Background(), nil)
	assert.ErrorIs(t, err, apperror.ErrUnauthorized)
}

func TestPurgeRevocations(t *testing.T) {
	f := newAuthFixture(t)
	now := time.Now()
	f.revoked.revoked["old"] = now.Add(-time.Hour)
	f.revoked.revoked["live"] = now.Add(time.Hour)

	n, err := f.svc.PurgeRevocations(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.Contains(t, f.revoked.revoked, "live")
}

func TestCurrentUser(t *testing.T) {
	f := newAuthFixture(t)
	u := f.register(t, "abc", "secret")

	got, err := f.svc.CurrentUser(context.Background(), u.ID)
	require.NoError(t, err)
	assert.Equal(t, "abc", got.Username)

	_, err = f.svc.CurrentUser(context.Background(), "")
	assert.ErrorIs(t, err, apperror.ErrUnauthorized)

	_, err = f.svc.CurrentUser(context.Background(), "deleted-user")
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}
