package client

import "sync"

const DefaultErrorMessage = "An error occurred. Please refresh the page and try again"

// CommunityState holds the latest community snapshot. Snapshots are replaced whole and
// never merged; one older than the held version is ignored.
type CommunityState struct {
	mu        sync.RWMutex
	community *Community
}

func (s *CommunityState) Get() (Community, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.community == nil {
		return Community{}, false
	}
	return *s.community, true
}

func (s *CommunityState) Replace(c Community) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.community != nil && s.community.ID == c.ID && c.Version < s.community.Version {
		return false
	}
	s.community = &c
	return true
}

// Syncer reconciles local state with a mutation response.
type Syncer struct {
	store         SessionStore
	notifications *Notifications
	community     *CommunityState
}

func NewSyncer(store SessionStore, notifications *Notifications, community *CommunityState) *Syncer {
	return &Syncer{store: store, notifications: notifications, community: community}
}

// Apply stores any rotated pair before returning, so the next request always carries it.
// On failure the entity is left alone and the server's message, or the default one, is
// queued. successMessage may be empty.
func (s *Syncer) Apply(resp Response, successMessage string) bool {
	if pair, ok := resp.Rotated(); ok {
		if err := s.store.Set(pair); err != nil {
			s.notifications.Push(NotificationError, DefaultErrorMessage)
			return false
		}
	}

	if !resp.Success {
		message := resp.Error
		if message == "" {
			message = DefaultErrorMessage
		}
		s.notifications.Push(NotificationError, message)
		return false
	}

	if resp.Community != nil && s.community != nil {
		s.community.Replace(*resp.Community)
	}
	if successMessage != "" {
		s.notifications.Push(NotificationSuccess, successMessage)
	}
	return true
}

// Fail turns a transport or decoding failure into the generic notification.
func (s *Syncer) Fail(error) {
	s.notifications.Push(NotificationError, DefaultErrorMessage)
}
