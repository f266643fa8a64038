package client

import (
	"context"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loggedInBody(userID string) map[string]any {
	return map[string]any{
		"loggedIn": true,
		"account":  map[string]any{"id": userID, "username": "alice"},
	}
}

func TestCommunityView_LoadAuthenticatesFirst(t *testing.T) {
	api, srv := newFakeAPI(t)
	events := &eventLog{}
	api.record(events)
	api.reply("/auth/account", http.StatusOK, loggedInBody("u1"))
	api.reply("/communities/community", http.StatusOK, communityBody(testCommunity(1, "u1")))
	view := NewCommunityView(New(srv.URL, NewMemorySessionStore(TokenPair{AccessToken: "at-1", RefreshToken: "rt-1"})))

	require.NoError(t, view.Load(context.Background(), "go lang"))

	select {
	case <-view.Ready():
	default:
		t.Fatal("expected ready to be closed after load")
	}
	assert.Equal(t, []string{
		"request /auth/account rt-1",
		"request /communities/community ",
	}, events.list())

	account, ok := view.Account()
	require.True(t, ok)
	assert.Equal(t, "u1", account.ID)
	assert.True(t, view.IsMember())
	assert.False(t, view.Invalid())
	assert.Empty(t, view.Redirect())
}

func TestCommunityView_ReadyBeforeCommunityFetch(t *testing.T) {
	api, srv := newFakeAPI(t)
	view := NewCommunityView(New(srv.URL, NewMemorySessionStore(TokenPair{AccessToken: "at-1", RefreshToken: "rt-1"})))
	api.reply("/auth/account", http.StatusOK, loggedInBody("u1"))

	var readyAtFetch atomic.Bool
	api.on("/communities/community", func(map[string]any) (int, any) {
		select {
		case <-view.Ready():
			readyAtFetch.Store(true)
		default:
		}
		return http.StatusOK, communityBody(testCommunity(1, "u1"))
	})

	require.NoError(t, view.Load(context.Background(), "go lang"))
	assert.True(t, readyAtFetch.Load(), "ready must be signalled before the community is requested")
}

func TestCommunityView_LoadRotatesSession(t *testing.T) {
	api, srv := newFakeAPI(t)
	body := loggedInBody("u1")
	body["generateNewTokens"] = true
	body["newAccessToken"] = "at-2"
	body["newRefreshToken"] = "rt-2"
	api.reply("/auth/account", http.StatusOK, body)
	api.reply("/communities/community", http.StatusOK, communityBody(testCommunity(1)))
	store := NewMemorySessionStore(TokenPair{AccessToken: "expired", RefreshToken: "rt-1"})
	view := NewCommunityView(New(srv.URL, store))

	require.NoError(t, view.Load(context.Background(), "go lang"))

	pair, _ := store.Get()
	assert.Equal(t, TokenPair{AccessToken: "at-2", RefreshToken: "rt-2"}, pair)
	assert.False(t, view.IsMember())
}

func TestCommunityView_LoadSignedOut(t *testing.T) {
	api, srv := newFakeAPI(t)
	api.reply("/auth/account", http.StatusOK, map[string]any{"loggedIn": false, "redirect": "/login"})
	api.reply("/communities/community", http.StatusOK, communityBody(testCommunity(1, "u1")))
	view := NewCommunityView(New(srv.URL, NewMemorySessionStore(TokenPair{})))

	require.NoError(t, view.Load(context.Background(), "go lang"))

	_, ok := view.Account()
	assert.False(t, ok)
	assert.Equal(t, "/login", view.Redirect())
	_, loaded := view.Community()
	assert.True(t, loaded, "signed-out visitors still see the community")
}

func TestCommunityView_LoadUnknownCommunity(t *testing.T) {
	api, srv := newFakeAPI(t)
	api.reply("/auth/account", http.StatusOK, loggedInBody("u1"))
	api.reply("/communities/community", http.StatusNotFound, map[string]any{
		"success": false,
		"error":   "Community not found",
	})
	view := NewCommunityView(New(srv.URL, NewMemorySessionStore(TokenPair{})))

	require.NoError(t, view.Load(context.Background(), "missing"))

	assert.True(t, view.Invalid())
	_, loaded := view.Community()
	assert.False(t, loaded)
}

func TestCommunityView_RotationStoredBeforeNextRequest(t *testing.T) {
	api, srv := newFakeAPI(t)
	events := &eventLog{}
	api.record(events)
	api.reply("/auth/account", http.StatusOK, loggedInBody("u2"))
	api.reply("/communities/community", http.StatusOK, communityBody(testCommunity(1, "u1")))

	joined := communityBody(testCommunity(2, "u1", "u2"))
	joined["generateNewTokens"] = true
	joined["newAccessToken"] = "at-2"
	joined["newRefreshToken"] = "rt-2"
	api.reply("/communities/join", http.StatusOK, joined)
	api.reply("/communities/leave", http.StatusOK, communityBody(testCommunity(3, "u1")))

	store := &recordingStore{
		MemorySessionStore: NewMemorySessionStore(TokenPair{AccessToken: "expired", RefreshToken: "rt-1"}),
		events:             events,
	}
	view := NewCommunityView(New(srv.URL, store))
	require.NoError(t, view.Load(context.Background(), "go lang"))

	require.True(t, view.Join(context.Background()))
	assert.True(t, view.IsMember())
	require.True(t, view.Leave(context.Background()))
	assert.False(t, view.IsMember())

	assert.Equal(t, []string{
		"request /auth/account rt-1",
		"request /communities/community ",
		"request /communities/join rt-1",
		"set rt-2",
		"request /communities/leave rt-2",
	}, events.list())
}

func TestCommunityView_MutationFailureRedirects(t *testing.T) {
	api, srv := newFakeAPI(t)
	api.reply("/auth/account", http.StatusOK, map[string]any{"loggedIn": false, "redirect": "/login"})
	api.reply("/communities/community", http.StatusOK, communityBody(testCommunity(1, "u1")))
	api.reply("/communities/join", http.StatusUnauthorized, map[string]any{
		"success":  false,
		"error":    "You must be logged in",
		"redirect": "/login",
	})
	view := NewCommunityView(New(srv.URL, NewMemorySessionStore(TokenPair{})))
	require.NoError(t, view.Load(context.Background(), "go lang"))

	assert.False(t, view.Join(context.Background()))

	community, _ := view.Community()
	assert.Equal(t, int64(1), community.Version)
	assert.Equal(t, "/login", view.Redirect())
	items := view.Notifications().List()
	require.Len(t, items, 1)
	assert.Equal(t, "You must be logged in", items[0].Message)
}

func TestCommunityView_SubmitPost(t *testing.T) {
	api, srv := newFakeAPI(t)
	api.reply("/auth/account", http.StatusOK, loggedInBody("u1"))
	api.reply("/communities/community", http.StatusOK, communityBody(testCommunity(1, "u1")))

	withPost := testCommunity(2, "u1")
	withPost.Posts = []Post{{ID: "p1", CommunityID: "c1", Body: "Hello"}}
	api.reply("/posts", http.StatusCreated, communityBody(withPost))

	view := NewCommunityView(New(srv.URL, NewMemorySessionStore(TokenPair{})))
	require.NoError(t, view.Load(context.Background(), "go lang"))

	var composer Composer
	composer.Focus()
	composer.Input("Hello")

	assert.True(t, view.SubmitPost(context.Background(), &composer, nil))

	assert.Equal(t, ComposerClosed, composer.State())
	assert.Empty(t, composer.Text())
	community, _ := view.Community()
	require.Len(t, community.Posts, 1)
	assert.Equal(t, "Hello", community.Posts[0].Body)
	items := view.Notifications().List()
	require.Len(t, items, 1)
	assert.Equal(t, "Successfully created post", items[0].Message)
}

func TestCommunityView_SubmitPostFailureKeepsDraft(t *testing.T) {
	api, srv := newFakeAPI(t)
	api.reply("/auth/account", http.StatusOK, loggedInBody("u3"))
	api.reply("/communities/community", http.StatusOK, communityBody(testCommunity(1, "u1")))
	api.reply("/posts", http.StatusConflict, map[string]any{
		"success": false,
		"error":   "You are not a member of this community",
	})
	view := NewCommunityView(New(srv.URL, NewMemorySessionStore(TokenPair{})))
	require.NoError(t, view.Load(context.Background(), "go lang"))

	var composer Composer
	composer.Focus()
	composer.Input("Hello")

	assert.False(t, view.SubmitPost(context.Background(), &composer, nil))

	assert.Equal(t, "Hello", composer.Text())
	community, _ := view.Community()
	assert.Empty(t, community.Posts)
}

func TestCommunityView_CloseDropsLateResponses(t *testing.T) {
	api, srv := newFakeAPI(t)
	api.reply("/auth/account", http.StatusOK, loggedInBody("u2"))
	api.reply("/communities/community", http.StatusOK, communityBody(testCommunity(1, "u1")))

	started := make(chan struct{})
	release := make(chan struct{})
	api.on("/communities/join", func(map[string]any) (int, any) {
		close(started)
		<-release
		body := communityBody(testCommunity(2, "u1", "u2"))
		body["generateNewTokens"] = true
		body["newAccessToken"] = "at-2"
		body["newRefreshToken"] = "rt-2"
		return http.StatusOK, body
	})

	store := NewMemorySessionStore(TokenPair{AccessToken: "expired", RefreshToken: "rt-1"})
	view := NewCommunityView(New(srv.URL, store))
	require.NoError(t, view.Load(context.Background(), "go lang"))

	result := make(chan bool, 1)
	go func() { result <- view.Join(context.Background()) }()

	select {
	case <-started:
	case <-time.After(2 * time.Second):
		t.Fatal("join request never reached the server")
	}
	view.Close()
	close(release)

	assert.False(t, <-result)
	community, _ := view.Community()
	assert.Equal(t, int64(1), community.Version)
	assert.Empty(t, view.Notifications().List())

	pair, _ := store.Get()
	assert.Equal(t, "rt-2", pair.RefreshToken, "the consumed refresh token is still replaced")
}

func TestCommunityView_CloseBeforeLoad(t *testing.T) {
	api, srv := newFakeAPI(t)
	api.reply("/auth/account", http.StatusOK, loggedInBody("u1"))
	view := NewCommunityView(New(srv.URL, NewMemorySessionStore(TokenPair{})))

	view.Close()
	err := view.Load(context.Background(), "go lang")

	assert.ErrorIs(t, err, ErrViewClosed)
	assert.Empty(t, api.callsTo("/communities/community"))
	_, ok := view.Account()
	assert.False(t, ok)
}
