package client

import (
	"context"
	"errors"
	"sync"
)

var (
	ErrViewClosed = errors.New("view is closed")
	ErrNotLoaded  = errors.New("community not loaded")
)

// CommunityView is the state behind a community page: the signed-in account, the community
// snapshot and the notification queue.
type CommunityView struct {
	client        *Client
	syncer        *Syncer
	notifications *Notifications
	community     *CommunityState

	mu        sync.Mutex
	account   *Account
	redirect  string
	invalid   bool
	closed    bool
	ready     chan struct{}
	readyOnce sync.Once
}

func NewCommunityView(c *Client) *CommunityView {
	notifications := NewNotifications()
	community := &CommunityState{}
	return &CommunityView{
		client:        c,
		syncer:        NewSyncer(c.Store(), notifications, community),
		notifications: notifications,
		community:     community,
		ready:         make(chan struct{}),
	}
}

// Ready is closed once authentication has resolved, signed in or not.
func (v *CommunityView) Ready() <-chan struct{} {
	return v.ready
}

// Load resolves the session and then fetches the community by title. An unknown community
// marks the view invalid rather than returning an error.
func (v *CommunityView) Load(ctx context.Context, title string) error {
	resp, err := v.client.Account(ctx)
	if err != nil {
		v.markReady()
		v.syncer.Fail(err)
		return err
	}
	if err := v.resolveSession(resp); err != nil {
		v.markReady()
		return err
	}
	v.markReady()

	resp, err = v.client.Community(ctx, title)
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return ErrViewClosed
	}
	if err != nil || !resp.Success || resp.Community == nil {
		v.invalid = true
		return err
	}
	v.community.Replace(*resp.Community)
	return nil
}

func (v *CommunityView) resolveSession(resp Response) error {
	if pair, ok := resp.Rotated(); ok {
		if err := v.client.Store().Set(pair); err != nil {
			v.syncer.Fail(err)
			return err
		}
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return ErrViewClosed
	}
	if resp.LoggedIn && resp.Account != nil {
		account := *resp.Account
		v.account = &account
		v.redirect = ""
		return nil
	}
	v.account = nil
	v.redirect = resp.Redirect
	return nil
}

func (v *CommunityView) markReady() {
	v.readyOnce.Do(func() { close(v.ready) })
}

// Close unmounts the view. Responses that land afterwards only persist rotated tokens.
func (v *CommunityView) Close() {
	v.mu.Lock()
	v.closed = true
	v.mu.Unlock()
	v.markReady()
}

func (v *CommunityView) Join(ctx context.Context) bool {
	return v.mutate(ctx, "", func(id string) (Response, error) {
		return v.client.JoinCommunity(ctx, id)
	})
}

func (v *CommunityView) Leave(ctx context.Context) bool {
	return v.mutate(ctx, "", func(id string) (Response, error) {
		return v.client.LeaveCommunity(ctx, id)
	})
}

// SubmitPost publishes the composer's draft and resolves the composer with the outcome.
func (v *CommunityView) SubmitPost(ctx context.Context, composer *Composer, images []string) bool {
	content, ok := composer.Submit()
	if !ok {
		return false
	}
	ok = v.mutate(ctx, "Successfully created post", func(id string) (Response, error) {
		return v.client.CreatePost(ctx, id, content, images)
	})
	composer.Resolve(ok)
	return ok
}

func (v *CommunityView) LikePost(ctx context.Context, postID string) bool {
	return v.mutate(ctx, "", func(string) (Response, error) {
		return v.client.LikePost(ctx, postID)
	})
}

func (v *CommunityView) UnlikePost(ctx context.Context, postID string) bool {
	return v.mutate(ctx, "", func(string) (Response, error) {
		return v.client.UnlikePost(ctx, postID)
	})
}

func (v *CommunityView) Comment(ctx context.Context, postID, content string) bool {
	return v.mutate(ctx, "Successfully added comment", func(string) (Response, error) {
		return v.client.CommentOnPost(ctx, postID, content)
	})
}

func (v *CommunityView) mutate(ctx context.Context, successMessage string, call func(communityID string) (Response, error)) bool {
	community, ok := v.community.Get()
	if !ok {
		v.syncer.Fail(nil)
		return false
	}

	resp, err := call(community.ID)

	v.mu.Lock()
	closed := v.closed
	v.mu.Unlock()

	if closed {
		if pair, rotated := resp.Rotated(); err == nil && rotated {
			_ = v.client.Store().Set(pair)
		}
		return false
	}
	if err != nil {
		v.syncer.Fail(err)
		return false
	}
	if !resp.Success && resp.Redirect != "" {
		v.mu.Lock()
		v.redirect = resp.Redirect
		v.mu.Unlock()
	}
	return v.syncer.Apply(resp, successMessage)
}

// Watch follows the live feed until ctx ends, replacing the snapshot on every frame.
func (v *CommunityView) Watch(ctx context.Context) error {
	community, ok := v.community.Get()
	if !ok {
		return ErrNotLoaded
	}
	return v.client.Follow(ctx, community.ID, func(c Community) {
		v.mu.Lock()
		closed := v.closed
		v.mu.Unlock()
		if !closed {
			v.community.Replace(c)
		}
	})
}

func (v *CommunityView) Account() (Account, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.account == nil {
		return Account{}, false
	}
	return *v.account, true
}

func (v *CommunityView) Community() (Community, bool) {
	return v.community.Get()
}

func (v *CommunityView) IsMember() bool {
	account, ok := v.Account()
	if !ok {
		return false
	}
	community, ok := v.community.Get()
	return ok && community.HasMember(account.ID)
}

// Redirect is where the page should navigate, or "" to stay.
func (v *CommunityView) Redirect() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.redirect
}

func (v *CommunityView) Invalid() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.invalid
}

func (v *CommunityView) Notifications() *Notifications {
	return v.notifications
}
