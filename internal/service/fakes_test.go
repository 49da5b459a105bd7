package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/rosterhq/huddle/internal/domain"
	"github.com/rosterhq/huddle/internal/repository"
)

// memStore backs the service tests. It implements the channel, message and
// unread repositories over one shared state so cross-service flows (post a
// message, then count it unread) see the same world. All methods lock, so
// concurrent service calls behave like they would against postgres.
type memStore struct {
	mu       sync.Mutex
	channels map[uuid.UUID]*domain.Channel
	members  map[uuid.UUID]map[uuid.UUID]*domain.Membership
	messages []*domain.Message
	pairKeys map[string]uuid.UUID
}

func newMemStore() *memStore {
	return &memStore{
		channels: make(map[uuid.UUID]*domain.Channel),
		members:  make(map[uuid.UUID]map[uuid.UUID]*domain.Membership),
		pairKeys: make(map[string]uuid.UUID),
	}
}

func (s *memStore) CreateWithMembers(_ context.Context, ch *domain.Channel, members []domain.Membership) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ch.DMPairKey != nil {
		if _, exists := s.pairKeys[*ch.DMPairKey]; exists {
			return repository.ErrDuplicatePair
		}
		s.pairKeys[*ch.DMPairKey] = ch.ID
	}
	chCopy := *ch
	s.channels[ch.ID] = &chCopy
	s.members[ch.ID] = make(map[uuid.UUID]*domain.Membership)
	for _, m := range members {
		mCopy := m
		s.members[ch.ID][m.UserID] = &mCopy
	}
	return nil
}

func (s *memStore) GetByID(_ context.Context, id uuid.UUID) (*domain.Channel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ch, ok := s.channels[id]
	if !ok {
		return nil, nil
	}
	chCopy := *ch
	return &chCopy, nil
}

func (s *memStore) FindDirect(_ context.Context, userA, userB, seasonID uuid.UUID) (*domain.Channel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, ch := range s.channels {
		if ch.Type != domain.ChannelTypeDM || ch.SeasonID != seasonID {
			continue
		}
		active := 0
		matched := 0
		for _, m := range s.members[id] {
			if !m.Active() {
				continue
			}
			active++
			if m.UserID == userA || m.UserID == userB {
				matched++
			}
		}
		if active == 2 && matched == 2 {
			chCopy := *ch
			return &chCopy, nil
		}
	}
	return nil, nil
}

func (s *memStore) ListForUser(_ context.Context, userID uuid.UUID) ([]domain.Channel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Channel
	for id, ch := range s.channels {
		if m, ok := s.members[id][userID]; ok && m.Active() {
			out = append(out, *ch)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *memStore) UpsertMember(_ context.Context, m *domain.Membership) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	set, ok := s.members[m.ChannelID]
	if !ok {
		set = make(map[uuid.UUID]*domain.Membership)
		s.members[m.ChannelID] = set
	}
	if existing, ok := set[m.UserID]; ok {
		existing.LeftAt = nil
		existing.DisplayName = m.DisplayName
		existing.Role = m.Role
		existing.CanPost = m.CanPost
		existing.CanModerate = m.CanModerate
		return nil
	}
	mCopy := *m
	set[m.UserID] = &mCopy
	return nil
}

func (s *memStore) MarkLeft(_ context.Context, channelID, userID uuid.UUID, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.members[channelID][userID]
	if !ok || !m.Active() {
		return false, nil
	}
	left := at
	m.LeftAt = &left
	return true, nil
}

func (s *memStore) GetMember(_ context.Context, channelID, userID uuid.UUID) (*domain.Membership, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.members[channelID][userID]
	if !ok {
		return nil, nil
	}
	mCopy := *m
	return &mCopy, nil
}

func (s *memStore) ListMembers(_ context.Context, channelID uuid.UUID, includeLeft bool) ([]domain.Membership, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Membership
	for _, m := range s.members[channelID] {
		if !includeLeft && !m.Active() {
			continue
		}
		out = append(out, *m)
	}
	return out, nil
}

func (s *memStore) SetCapabilities(_ context.Context, channelID, userID uuid.UUID, canPost, canModerate bool) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.members[channelID][userID]
	if !ok || !m.Active() {
		return false, nil
	}
	m.CanPost = canPost
	m.CanModerate = canModerate
	return true, nil
}

func (s *memStore) Create(_ context.Context, msg *domain.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	msgCopy := *msg
	s.messages = append(s.messages, &msgCopy)
	return nil
}

func (s *memStore) GetByIDMessage(_ context.Context, id uuid.UUID) (*domain.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range s.messages {
		if m.ID == id {
			mCopy := *m
			return &mCopy, nil
		}
	}
	return nil, nil
}

func (s *memStore) ListRecent(_ context.Context, channelID uuid.UUID, before *uuid.UUID, limit int, includeDeleted bool) ([]domain.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var cursor *domain.Message
	if before != nil {
		for _, m := range s.messages {
			if m.ID == *before {
				cursor = m
				break
			}
		}
	}

	var out []domain.Message
	for _, m := range s.messages {
		if m.ChannelID != channelID {
			continue
		}
		if m.IsDeleted && !includeDeleted {
			continue
		}
		if cursor != nil && !tupleBefore(m, cursor) {
			continue
		}
		out = append(out, *m)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID.String() > out[j].ID.String()
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func tupleBefore(m, cursor *domain.Message) bool {
	if !m.CreatedAt.Equal(cursor.CreatedAt) {
		return m.CreatedAt.Before(cursor.CreatedAt)
	}
	return m.ID.String() < cursor.ID.String()
}

func (s *memStore) SoftDelete(_ context.Context, id uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range s.messages {
		if m.ID == id {
			m.IsDeleted = true
			return true, nil
		}
	}
	return false, nil
}

func (s *memStore) ChannelUnread(_ context.Context, channelID, userID uuid.UUID) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.members[channelID][userID]
	if !ok || !m.Active() {
		return 0, nil
	}
	return s.countUnread(channelID, m.LastReadAt), nil
}

func (s *memStore) UnreadByChannel(_ context.Context, userID uuid.UUID) ([]domain.ChannelUnread, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.ChannelUnread
	for channelID, set := range s.members {
		m, ok := set[userID]
		if !ok || !m.Active() {
			continue
		}
		out = append(out, domain.ChannelUnread{
			ChannelID: channelID,
			Count:     s.countUnread(channelID, m.LastReadAt),
		})
	}
	return out, nil
}

func (s *memStore) countUnread(channelID uuid.UUID, lastRead *time.Time) int {
	count := 0
	for _, msg := range s.messages {
		if msg.ChannelID != channelID || msg.IsDeleted {
			continue
		}
		if lastRead == nil || msg.CreatedAt.After(*lastRead) {
			count++
		}
	}
	return count
}

func (s *memStore) MarkRead(_ context.Context, channelID, userID uuid.UUID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.members[channelID][userID]
	if !ok {
		return nil
	}
	if m.LastReadAt == nil || m.LastReadAt.Before(at) {
		read := at
		m.LastReadAt = &read
	}
	return nil
}

// messageRepo adapts memStore to the message repository interface, whose
// GetByID collides with the channel repository's.
type messageRepo struct{ *memStore }

func (r messageRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Message, error) {
	return r.GetByIDMessage(ctx, id)
}

type memDirectory struct {
	profiles map[uuid.UUID]domain.Profile
	err      error
}

func (d *memDirectory) Lookup(_ context.Context, ids []uuid.UUID) (map[uuid.UUID]domain.Profile, error) {
	if d.err != nil {
		return nil, d.err
	}
	out := make(map[uuid.UUID]domain.Profile, len(ids))
	for _, id := range ids {
		if p, ok := d.profiles[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}

func (d *memDirectory) add(id uuid.UUID, name string) {
	if d.profiles == nil {
		d.profiles = make(map[uuid.UUID]domain.Profile)
	}
	d.profiles[id] = domain.Profile{ID: id, DisplayName: name}
}

type memAlerts struct {
	mu     sync.Mutex
	counts map[uuid.UUID]int
	err    error
}

func (a *memAlerts) UnacknowledgedCount(_ context.Context, profileID uuid.UUID) (int, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.err != nil {
		return 0, a.err
	}
	return a.counts[profileID], nil
}

func (a *memAlerts) set(profileID uuid.UUID, count int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.counts == nil {
		a.counts = make(map[uuid.UUID]int)
	}
	a.counts[profileID] = count
}

func (a *memAlerts) fail(err error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.err = err
}

// memEvents records published notifications for assertions.
type memEvents struct {
	mu                sync.Mutex
	messageInserted   []uuid.UUID
	membershipUpdated []uuid.UUID
}

func (e *memEvents) MessageInserted(channelID uuid.UUID) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.messageInserted = append(e.messageInserted, channelID)
}

func (e *memEvents) MembershipUpdated(channelID uuid.UUID) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.membershipUpdated = append(e.membershipUpdated, channelID)
}

func (e *memEvents) messageInsertedCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.messageInserted)
}

func (e *memEvents) membershipUpdatedCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.membershipUpdated)
}

// memTyping is an in-memory stand-in for the redis typing store.
type memTyping struct {
	mu      sync.Mutex
	entries map[uuid.UUID]map[uuid.UUID]time.Time
	err     error
}

func newMemTyping() *memTyping {
	return &memTyping{entries: make(map[uuid.UUID]map[uuid.UUID]time.Time)}
}

func (t *memTyping) Start(_ context.Context, channelID, userID uuid.UUID, at time.Time) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.err != nil {
		return t.err
	}
	if t.entries[channelID] == nil {
		t.entries[channelID] = make(map[uuid.UUID]time.Time)
	}
	t.entries[channelID][userID] = at
	return nil
}

func (t *memTyping) List(_ context.Context, channelID uuid.UUID) ([]domain.TypingIndicator, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.err != nil {
		return nil, t.err
	}
	return t.indicators(channelID), nil
}

func (t *memTyping) ListBatch(_ context.Context, channelIDs []uuid.UUID) (map[uuid.UUID][]domain.TypingIndicator, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.err != nil {
		return nil, t.err
	}
	out := make(map[uuid.UUID][]domain.TypingIndicator, len(channelIDs))
	for _, id := range channelIDs {
		out[id] = t.indicators(id)
	}
	return out, nil
}

func (t *memTyping) indicators(channelID uuid.UUID) []domain.TypingIndicator {
	var out []domain.TypingIndicator
	for userID, at := range t.entries[channelID] {
		out = append(out, domain.TypingIndicator{ChannelID: channelID, UserID: userID, StartedAt: at})
	}
	return out
}

var errStoreDown = errors.New("store unavailable")
