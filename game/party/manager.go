package party

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/hellasmmo/server/cache"
	"go.uber.org/zap"
)

// ChannelGroup is the PubSub channel group changes are published on.
const ChannelGroup = "group"

const inviteTimeout = 30 * time.Second

var (
	ErrNotInGroup     = errors.New("party: player is not in a group")
	ErrAlreadyInGroup = errors.New("party: player is already in a group")
	ErrGroupFull      = errors.New("party: group is full")
	ErrNoInvitation   = errors.New("party: no valid invitation")
)

// Update is published to ChannelGroup whenever a group's makeup changes.
// Members is empty once the group is disbanded.
type Update struct {
	GroupID int64    `json:"group_id"`
	Event   string   `json:"event"`
	Members []string `json:"members"`

	seq uint64 // order the update was taken in, under Manager.mu
}

// Update events.
const (
	EventCreated   = "created"
	EventJoined    = "joined"
	EventLeft      = "left"
	EventDisbanded = "disbanded"
)

// Group is an active group of players.
type Group struct {
	ID      int64
	Members []string // sorted
}

func (g *Group) add(name string) {
	i := sort.SearchStrings(g.Members, name)
	g.Members = append(g.Members, "")
	copy(g.Members[i+1:], g.Members[i:])
	g.Members[i] = name
}

func (g *Group) remove(name string) {
	i := sort.SearchStrings(g.Members, name)
	if i < len(g.Members) && g.Members[i] == name {
		g.Members = append(g.Members[:i], g.Members[i+1:]...)
	}
}

type pendingInvite struct {
	Inviter   string
	ExpiresAt time.Time
}

// Manager manages all active groups and pending invitations.
// No method calls another exported method while holding the lock.
type Manager struct {
	mu      sync.RWMutex
	groups  map[int64]*Group          // groupID → Group
	byName  map[string]int64          // player → groupID
	invites map[string]*pendingInvite // invitee → invite
	nextID  int64
	maxSize int // 0 = unlimited
	seq     uint64

	// notifyMu orders snapshot writes; written holds the last seq mirrored
	// per group, disbanded groups included.
	notifyMu sync.Mutex
	written  map[int64]uint64

	cache  cache.Cache
	pubsub cache.PubSub
	now    func() time.Time
	logger *zap.Logger
}

// NewManager creates a new group Manager. c and ps may be nil.
func NewManager(maxSize int, c cache.Cache, ps cache.PubSub, logger *zap.Logger) *Manager {
	return &Manager{
		groups:  make(map[int64]*Group),
		byName:  make(map[string]int64),
		invites: make(map[string]*pendingInvite),
		written: make(map[int64]uint64),
		maxSize: maxSize,
		cache:   c,
		pubsub:  ps,
		now:     time.Now,
		logger:  logger,
	}
}

// CreateGroup starts a group with founder as its only member.
func (m *Manager) CreateGroup(founder string) error {
	m.mu.Lock()
	if _, ok := m.byName[founder]; ok {
		m.mu.Unlock()
		return ErrAlreadyInGroup
	}
	g := m.createLocked(founder)
	u := m.snapshot(g, EventCreated)
	m.mu.Unlock()

	m.logger.Info("group created", zap.Int64("group_id", g.ID), zap.String("founder", founder))
	m.notify(u)
	return nil
}

// AddToGroup adds newMember to the group existingMember belongs to.
func (m *Manager) AddToGroup(newMember, existingMember string) error {
	m.mu.Lock()
	g, err := m.addLocked(newMember, existingMember)
	if err != nil {
		m.mu.Unlock()
		return err
	}
	u := m.snapshot(g, EventJoined)
	m.mu.Unlock()

	m.logger.Info("group joined", zap.Int64("group_id", g.ID), zap.String("member", newMember))
	m.notify(u)
	return nil
}

// RegisterInvitation records that existing invited invitee. A newer invitation
// replaces an older one.
func (m *Manager) RegisterInvitation(existing, invitee string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byName[invitee]; ok {
		return ErrAlreadyInGroup
	}
	m.invites[invitee] = &pendingInvite{Inviter: existing, ExpiresAt: m.now().Add(inviteTimeout)}
	return nil
}

// HasInvitation reports whether invitee holds an unexpired invitation.
func (m *Manager) HasInvitation(invitee string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	inv, ok := m.invites[invitee]
	return ok && m.now().Before(inv.ExpiresAt)
}

// AcceptInvitation joins invitee to the inviter's group, creating the group
// if the inviter has none yet.
func (m *Manager) AcceptInvitation(invitee string) error {
	m.mu.Lock()
	inv, ok := m.invites[invitee]
	delete(m.invites, invitee)
	if !ok || !m.now().Before(inv.ExpiresAt) {
		m.mu.Unlock()
		return ErrNoInvitation
	}

	var updates []Update
	if _, grouped := m.byName[inv.Inviter]; !grouped {
		if _, busy := m.byName[invitee]; busy {
			m.mu.Unlock()
			return ErrAlreadyInGroup
		}
		g := m.createLocked(inv.Inviter)
		updates = append(updates, m.snapshot(g, EventCreated))
	}
	g, err := m.addLocked(invitee, inv.Inviter)
	if err != nil {
		m.mu.Unlock()
		return err
	}
	updates = append(updates, m.snapshot(g, EventJoined))
	m.mu.Unlock()

	m.logger.Info("group invitation accepted",
		zap.Int64("group_id", g.ID),
		zap.String("inviter", inv.Inviter),
		zap.String("invitee", invitee))
	for _, u := range updates {
		m.notify(u)
	}
	return nil
}

// DeclineInvitation drops a pending invitation.
func (m *Manager) DeclineInvitation(invitee string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.invites, invitee)
}

// Leave removes user from their group. A group left with a single member is
// disbanded.
func (m *Manager) Leave(user string) error {
	m.mu.Lock()
	id, ok := m.byName[user]
	if !ok {
		m.mu.Unlock()
		return ErrNotInGroup
	}
	g := m.groups[id]
	delete(m.byName, user)
	g.remove(user)

	var u Update
	if len(g.Members) <= 1 {
		for _, rest := range g.Members {
			delete(m.byName, rest)
		}
		delete(m.groups, id)
		m.seq++
		u = Update{GroupID: id, Event: EventDisbanded, Members: []string{}, seq: m.seq}
	} else {
		u = m.snapshot(g, EventLeft)
	}
	m.mu.Unlock()

	m.logger.Info("group left", zap.Int64("group_id", id), zap.String("member", user), zap.String("event", u.Event))
	m.notify(u)
	return nil
}

// CleanupInvites removes every invitation sent to or by user.
func (m *Manager) CleanupInvites(user string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.invites, user)
	for invitee, inv := range m.invites {
		if inv.Inviter == user {
			delete(m.invites, invitee)
		}
	}
}

// GroupOf returns the sorted members of user's group, or just user when ungrouped.
func (m *Manager) GroupOf(user string) []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.byName[user]
	if !ok {
		return []string{user}
	}
	out := make([]string, len(m.groups[id].Members))
	copy(out, m.groups[id].Members)
	return out
}

// GroupID returns the id of user's group.
func (m *Manager) GroupID(user string) (int64, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.byName[user]
	return id, ok
}

// GroupSize returns the size of user's group; 1 when ungrouped.
func (m *Manager) GroupSize(user string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.byName[user]
	if !ok {
		return 1
	}
	return len(m.groups[id].Members)
}

// IsInGroup reports whether user belongs to a group.
func (m *Manager) IsInGroup(user string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.byName[user]
	return ok
}

// InSameGroup reports whether two distinct users share a group.
func (m *Manager) InSameGroup(a, b string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ga, okA := m.byName[a]
	gb, okB := m.byName[b]
	return okA && okB && ga == gb
}

// NumGroups returns the number of active groups.
func (m *Manager) NumGroups() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.groups)
}

func (m *Manager) createLocked(founder string) *Group {
	m.nextID++
	g := &Group{ID: m.nextID, Members: []string{founder}}
	m.groups[g.ID] = g
	m.byName[founder] = g.ID
	return g
}

func (m *Manager) addLocked(newMember, existingMember string) (*Group, error) {
	id, ok := m.byName[existingMember]
	if !ok {
		return nil, ErrNotInGroup
	}
	if _, ok := m.byName[newMember]; ok {
		return nil, ErrAlreadyInGroup
	}
	g := m.groups[id]
	if m.maxSize > 0 && len(g.Members) >= m.maxSize {
		return nil, ErrGroupFull
	}
	g.add(newMember)
	m.byName[newMember] = id
	delete(m.invites, newMember)
	return g, nil
}

// snapshot copies g for notify. m.mu must be held.
func (m *Manager) snapshot(g *Group, event string) Update {
	members := make([]string, len(g.Members))
	copy(members, g.Members)
	m.seq++
	return Update{GroupID: g.ID, Event: event, Members: members, seq: m.seq}
}

// SnapshotKey is the cache set holding a group's members.
func SnapshotKey(groupID int64) string {
	return "group:" + strconv.FormatInt(groupID, 10) + ":members"
}

// notify mirrors the group into the cache and publishes the change. Called
// without m.mu held. An update older than one already mirrored leaves the
// cache alone.
func (m *Manager) notify(u Update) {
	ctx := context.Background()
	m.notifyMu.Lock()
	defer m.notifyMu.Unlock()
	stale := u.seq < m.written[u.GroupID]
	if !stale {
		m.written[u.GroupID] = u.seq
	}
	if m.cache != nil && !stale {
		key := SnapshotKey(u.GroupID)
		if err := m.cache.Del(ctx, key); err != nil {
			m.logger.Warn("group snapshot clear failed", zap.Int64("group_id", u.GroupID), zap.Error(err))
		}
		if len(u.Members) > 0 {
			if err := m.cache.SAdd(ctx, key, u.Members...); err != nil {
				m.logger.Warn("group snapshot failed", zap.Int64("group_id", u.GroupID), zap.Error(err))
			}
		}
	}
	if m.pubsub == nil {
		return
	}
	payload, err := json.Marshal(u)
	if err != nil {
		m.logger.Error("marshal group update", zap.Error(err))
		return
	}
	if err := m.pubsub.Publish(ctx, ChannelGroup, string(payload)); err != nil {
		m.logger.Warn("publish group update failed", zap.Int64("group_id", u.GroupID), zap.Error(err))
	}
}
