package client

import "sync"

type NotificationKind string

const (
	NotificationSuccess NotificationKind = "success"
	NotificationError   NotificationKind = "error"
)

type Notification struct {
	ID      int
	Kind    NotificationKind
	Message string
}

// Notifications is the dismissible popup queue shown above the page.
type Notifications struct {
	mu     sync.Mutex
	nextID int
	items  []Notification
}

func NewNotifications() *Notifications {
	return &Notifications{}
}

func (n *Notifications) Push(kind NotificationKind, message string) Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.nextID++
	item := Notification{ID: n.nextID, Kind: kind, Message: message}
	n.items = append(n.items, item)
	return item
}

func (n *Notifications) Dismiss(id int) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	for i, item := range n.items {
		if item.ID == id {
			n.items = append(n.items[:i:i], n.items[i+1:]...)
			return true
		}
	}
	return false
}

func (n *Notifications) List() []Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]Notification(nil), n.items...)
}
