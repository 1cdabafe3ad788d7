// Package presence tracks which listeners are in which voice channel.
package presence

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/poettig/TS3AB-KDF-Plugins-sub000/internal/jukebox"
)

type Listener struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	Channel    string     `json:"channel"`
	Muted      bool       `json:"muted"`
	LastActive *time.Time `json:"lastActive,omitempty"`
}

// Directory is an in-memory listener table. self is the identity the
// service itself is connected as.
type Directory struct {
	mu        sync.RWMutex
	listeners map[string]*Listener
	self      string
	now       func() time.Time
}

var _ jukebox.Presence = (*Directory)(nil)

func NewDirectory(self, selfChannel string) *Directory {
	d := &Directory{
		listeners: make(map[string]*Listener),
		self:      self,
		now:       time.Now,
	}
	if self != "" {
		d.listeners[self] = &Listener{ID: self, Name: self, Channel: selfChannel}
	}
	return d
}

// Join adds or moves a listener. An empty name keeps the previous one.
func (d *Directory) Join(id, name, channel string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	l, ok := d.listeners[id]
	if !ok {
		l = &Listener{ID: id, Name: id}
		d.listeners[id] = l
	}
	if name != "" {
		l.Name = name
	}
	l.Channel = channel
}

func (d *Directory) Leave(id string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.listeners[id]; !ok || id == d.self {
		return false
	}
	delete(d.listeners, id)
	return true
}

func (d *Directory) SetMuted(id string, muted bool) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	l, ok := d.listeners[id]
	if ok {
		l.Muted = muted
	}
	return ok
}

// Touch records activity for a listener.
func (d *Directory) Touch(id string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	l, ok := d.listeners[id]
	if ok {
		t := d.now()
		l.LastActive = &t
	}
	return ok
}

// ChannelOf returns the channel a listener is in.
func (d *Directory) ChannelOf(id string) (string, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	l, ok := d.listeners[id]
	if !ok {
		return "", false
	}
	return l.Channel, true
}

func (d *Directory) List() []Listener {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]Listener, 0, len(d.listeners))
	for _, l := range d.listeners {
		out = append(out, *l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (d *Directory) MembersOf(ctx context.Context, channel string, keep func(id string) bool) int {
	d.mu.RLock()
	var ids []string
	for id, l := range d.listeners {
		if l.Channel == channel {
			ids = append(ids, id)
		}
	}
	d.mu.RUnlock()

	// keep may call back into the directory
	n := 0
	for _, id := range ids {
		if keep == nil || keep(id) {
			n++
		}
	}
	return n
}

func (d *Directory) IsMuted(ctx context.Context, id string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	l, ok := d.listeners[id]
	return ok && l.Muted
}

func (d *Directory) IdleTime(ctx context.Context, id string) (time.Duration, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	l, ok := d.listeners[id]
	if !ok || l.LastActive == nil {
		return 0, false
	}
	return d.now().Sub(*l.LastActive), true
}

func (d *Directory) DisplayName(ctx context.Context, id string) (string, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	l, ok := d.listeners[id]
	if !ok {
		return "", jukebox.ErrNotFound
	}
	return l.Name, nil
}

// IsChannelDefinitelyEmpty is true only when the service's channel is known
// and nobody else is in it.
func (d *Directory) IsChannelDefinitelyEmpty(ctx context.Context) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	me, ok := d.listeners[d.self]
	if !ok || me.Channel == "" {
		return false
	}
	for id, l := range d.listeners {
		if id != d.self && l.Channel == me.Channel {
			return false
		}
	}
	return true
}

// Self returns the service identity and its channel.
func (d *Directory) Self() (string, string) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if me, ok := d.listeners[d.self]; ok {
		return d.self, me.Channel
	}
	return d.self, ""
}
