package authflow

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vibecoders/vibecoders/internal/client/api"
	"github.com/vibecoders/vibecoders/internal/client/session"
	"github.com/vibecoders/vibecoders/internal/client/view"
	"github.com/vibecoders/vibecoders/internal/config"
	"github.com/vibecoders/vibecoders/internal/server"
)

func startServer(t *testing.T) string {
	t.Helper()
	srv, err := server.New(config.ServerConfig{
		Addr:          ":0",
		DBPath:        ":memory:",
		JWTSecret:     "e2e-secret-at-least-16-chars",
		TokenTTL:      time.Hour,
		PasswordCost:  4,
		LoginRate:     100,
		LoginBurst:    100,
		PurgeSchedule: "@every 1h",
	}, discardLogger())
	require.NoError(t, err)
	t.Cleanup(func() { srv.Close() })

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts.URL
}

func TestEndToEnd_AgainstServer(t *testing.T) {
	ctx := context.Background()
	client, err := api.New(startServer(t), 5*time.Second, discardLogger())
	require.NoError(t, err)
	store, err := session.OpenSQLite(ctx, ":memory:", discardLogger())
	require.NoError(t, err)
	defer store.Close()

	ctrl := NewController(client, store, discardLogger())
	var snaps []Snapshot
	ctrl.Subscribe(func(s Snapshot) { snaps = append(snaps, s) })

	require.NoError(t, ctrl.Register(ctx, RegisterInput{
		Username:        "abc",
		Password:        "secret-pw",
		ConfirmPassword: "secret-pw",
		Profile:         api.Profile{Bio: "hello"},
	}))
	assert.Equal(t, view.RouteLogin, snaps[len(snaps)-1].Navigate)

	err = ctrl.Register(ctx, RegisterInput{Username: "abc", Password: "x", ConfirmPassword: "x"})
	require.Error(t, err)
	assert.Equal(t, "username already exists", snaps[len(snaps)-1].Flash.Text)

	err = ctrl.Login(ctx, "abc", "wrong")
	require.Error(t, err)
	assert.Equal(t, "Invalid credentials", snaps[len(snaps)-1].Flash.Text)
	sess, err := store.Read(ctx)
	require.NoError(t, err)
	assert.Nil(t, sess)

	require.NoError(t, ctrl.Login(ctx, "abc", "secret-pw"))
	sess, err = ctrl.CheckSession(ctx)
	require.NoError(t, err)
	require.NotNil(t, sess)
	assert.Equal(t, "abc", sess.User.Username)
	assert.Equal(t, "hello", sess.User.Bio)

	require.NoError(t, ctrl.UpdateProfile(ctx, api.Profile{Bio: "edited", GithubURL: "https://github.com/abc"}))
	sess, err = store.Read(ctx)
	require.NoError(t, err)
	assert.Equal(t, "edited", sess.User.Bio)
	token := sess.Token

	require.NoError(t, ctrl.Logout(ctx))
	sess, err = store.Read(ctx)
	require.NoError(t, err)
	assert.Nil(t, sess)

	// The revoked token is refused even if a stale copy is replayed.
	who, err := client.Session(ctx, token)
	require.NoError(t, err)
	assert.False(t, who.Authenticated)

	require.NoError(t, store.Save(ctx, session.Session{User: session.UserSummary{ID: "x", Username: "abc"}, Token: token}))
	sess, err = ctrl.CheckSession(ctx)
	require.NoError(t, err)
	assert.Nil(t, sess)
	sess, err = store.Read(ctx)
	require.NoError(t, err)
	assert.Nil(t, sess, "check discarded the revoked copy")
}
