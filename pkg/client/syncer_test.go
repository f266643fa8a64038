package client

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSyncer(store SessionStore) (*Syncer, *Notifications, *CommunityState) {
	notifications := NewNotifications()
	state := &CommunityState{}
	return NewSyncer(store, notifications, state), notifications, state
}

func TestSyncer_Success(t *testing.T) {
	store := NewMemorySessionStore(TokenPair{AccessToken: "at-1", RefreshToken: "rt-1"})
	syncer, notifications, state := newTestSyncer(store)
	state.Replace(testCommunity(1, "u1"))

	ok := syncer.Apply(Response{
		Success:           true,
		Community:         ptr(testCommunity(2, "u1", "u2")),
		GenerateNewTokens: true,
		NewAccessToken:    "at-2",
		NewRefreshToken:   "rt-2",
	}, "Successfully joined")

	assert.True(t, ok)
	pair, _ := store.Get()
	assert.Equal(t, TokenPair{AccessToken: "at-2", RefreshToken: "rt-2"}, pair)

	community, _ := state.Get()
	assert.Equal(t, int64(2), community.Version)
	assert.True(t, community.HasMember("u2"))

	items := notifications.List()
	require.Len(t, items, 1)
	assert.Equal(t, NotificationSuccess, items[0].Kind)
	assert.Equal(t, "Successfully joined", items[0].Message)
}

func TestSyncer_FailureKeepsEntityButStoresRotation(t *testing.T) {
	store := NewMemorySessionStore(TokenPair{AccessToken: "at-1", RefreshToken: "rt-1"})
	syncer, notifications, state := newTestSyncer(store)
	state.Replace(testCommunity(1, "u1"))

	ok := syncer.Apply(Response{
		Success:           false,
		Error:             "You are not a member of this community",
		Code:              "NOT_A_MEMBER",
		GenerateNewTokens: true,
		NewAccessToken:    "at-2",
		NewRefreshToken:   "rt-2",
	}, "")

	assert.False(t, ok)
	pair, _ := store.Get()
	assert.Equal(t, "rt-2", pair.RefreshToken)

	community, _ := state.Get()
	assert.Equal(t, int64(1), community.Version)

	items := notifications.List()
	require.Len(t, items, 1)
	assert.Equal(t, NotificationError, items[0].Kind)
	assert.Equal(t, "You are not a member of this community", items[0].Message)
}

func TestSyncer_DefaultMessage(t *testing.T) {
	syncer, notifications, _ := newTestSyncer(NewMemorySessionStore(TokenPair{}))

	assert.False(t, syncer.Apply(Response{Success: false}, ""))
	syncer.Fail(errors.New("connection refused"))

	items := notifications.List()
	require.Len(t, items, 2)
	for _, item := range items {
		assert.Equal(t, DefaultErrorMessage, item.Message)
	}
}

func TestSyncer_StoreFailure(t *testing.T) {
	store := &recordingStore{
		MemorySessionStore: NewMemorySessionStore(TokenPair{RefreshToken: "rt-1"}),
		events:             &eventLog{},
		setErr:             errors.New("disk full"),
	}
	syncer, notifications, state := newTestSyncer(store)

	ok := syncer.Apply(Response{
		Success:           true,
		Community:         ptr(testCommunity(2, "u1")),
		GenerateNewTokens: true,
		NewAccessToken:    "at-2",
		NewRefreshToken:   "rt-2",
	}, "")

	assert.False(t, ok)
	_, held := state.Get()
	assert.False(t, held)
	require.Len(t, notifications.List(), 1)
	assert.Equal(t, DefaultErrorMessage, notifications.List()[0].Message)
}

func TestCommunityState_IgnoresOlderSnapshot(t *testing.T) {
	var state CommunityState

	assert.True(t, state.Replace(testCommunity(3, "u1")))
	assert.False(t, state.Replace(testCommunity(2)))
	assert.True(t, state.Replace(testCommunity(3, "u1", "u2")))

	community, ok := state.Get()
	require.True(t, ok)
	assert.Equal(t, []string{"u1", "u2"}, community.Members)

	other := testCommunity(1)
	other.ID = "c2"
	assert.True(t, state.Replace(other), "a different community always replaces")
}

func TestNotifications_Dismiss(t *testing.T) {
	n := NewNotifications()
	first := n.Push(NotificationSuccess, "one")
	second := n.Push(NotificationError, "two")

	assert.True(t, n.Dismiss(first.ID))
	assert.False(t, n.Dismiss(first.ID))

	items := n.List()
	require.Len(t, items, 1)
	assert.Equal(t, second.ID, items[0].ID)
}

func ptr[T any](v T) *T {
	return &v
}

func TestSyncer_RotationStoredBeforeNextRequest(t *testing.T) {
	api, srv := newFakeAPI(t)
	events := &eventLog{}
	api.record(events)

	rotated := communityBody(testCommunity(2, "u1", "u2"))
	rotated["generateNewTokens"] = true
	rotated["newAccessToken"] = "at-2"
	rotated["newRefreshToken"] = "rt-2"
	api.reply("/communities/join", http.StatusOK, rotated)
	api.reply("/posts", http.StatusCreated, communityBody(testCommunity(3, "u1", "u2")))

	store := &recordingStore{
		MemorySessionStore: NewMemorySessionStore(TokenPair{AccessToken: "expired", RefreshToken: "rt-1"}),
		events:             events,
	}
	client := New(srv.URL, store)
	syncer, _, state := newTestSyncer(store)

	resp, err := client.JoinCommunity(context.Background(), "c1")
	require.NoError(t, err)
	require.True(t, syncer.Apply(resp, ""))

	resp, err = client.CreatePost(context.Background(), "c1", "hello", nil)
	require.NoError(t, err)
	require.True(t, syncer.Apply(resp, "Successfully created post"))

	assert.Equal(t, []string{
		"request /communities/join rt-1",
		"set rt-2",
		"request /posts rt-2",
	}, events.list())
	community, _ := state.Get()
	assert.Equal(t, int64(3), community.Version)
}
