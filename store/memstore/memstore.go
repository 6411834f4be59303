// Package memstore is the in-memory implementation of chat.Store. It backs
// demo mode (seeded with canned fixtures) and the package tests; the live
// deployment uses gormstore instead. A single mutex serializes transactions,
// which trivially gives every access check the same snapshot as the mutation
// it guards.
package memstore

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"gorm.io/gorm"

	"tripchat/apperror"
	"tripchat/chat"
	"tripchat/models"
)

type state struct {
	nextID uint

	trips        map[uint]*models.Trip
	roles        map[uint]*models.Role
	assignments  map[uint]*models.RoleAssignment
	grants       map[[2]uint]*models.AdminGrant // (tripID, userID)
	channels     map[uint]*models.Channel
	channelRoles map[uint][]uint
	snapshots    map[uint]map[uint]struct{}
	messages     map[uint]*models.Message
	byChannel    map[uint][]uint // message ids in seq order
	markers      map[[2]uint]*models.ChannelReadMarker // (channelID, userID)
}

func newState() *state {
	return &state{
		trips:        make(map[uint]*models.Trip),
		roles:        make(map[uint]*models.Role),
		assignments:  make(map[uint]*models.RoleAssignment),
		grants:       make(map[[2]uint]*models.AdminGrant),
		channels:     make(map[uint]*models.Channel),
		channelRoles: make(map[uint][]uint),
		snapshots:    make(map[uint]map[uint]struct{}),
		messages:     make(map[uint]*models.Message),
		byChannel:    make(map[uint][]uint),
		markers:      make(map[[2]uint]*models.ChannelReadMarker),
	}
}

// clone copies the maps shallowly. Mutations always replace entries instead
// of editing stored structs in place, so a shallow copy is a valid rollback
// point.
func (s *state) clone() *state {
	c := &state{
		nextID:       s.nextID,
		trips:        make(map[uint]*models.Trip, len(s.trips)),
		roles:        make(map[uint]*models.Role, len(s.roles)),
		assignments:  make(map[uint]*models.RoleAssignment, len(s.assignments)),
		grants:       make(map[[2]uint]*models.AdminGrant, len(s.grants)),
		channels:     make(map[uint]*models.Channel, len(s.channels)),
		channelRoles: make(map[uint][]uint, len(s.channelRoles)),
		snapshots:    make(map[uint]map[uint]struct{}, len(s.snapshots)),
		messages:     make(map[uint]*models.Message, len(s.messages)),
		byChannel:    make(map[uint][]uint, len(s.byChannel)),
		markers:      make(map[[2]uint]*models.ChannelReadMarker, len(s.markers)),
	}
	for k, v := range s.trips {
		c.trips[k] = v
	}
	for k, v := range s.roles {
		c.roles[k] = v
	}
	for k, v := range s.assignments {
		c.assignments[k] = v
	}
	for k, v := range s.grants {
		c.grants[k] = v
	}
	for k, v := range s.channels {
		c.channels[k] = v
	}
	for k, v := range s.channelRoles {
		c.channelRoles[k] = append([]uint(nil), v...)
	}
	for k, v := range s.snapshots {
		inner := make(map[uint]struct{}, len(v))
		for u := range v {
			inner[u] = struct{}{}
		}
		c.snapshots[k] = inner
	}
	for k, v := range s.messages {
		c.messages[k] = v
	}
	for k, v := range s.byChannel {
		c.byChannel[k] = append([]uint(nil), v...)
	}
	for k, v := range s.markers {
		c.markers[k] = v
	}
	return c
}

// Memstore is the lock-holding entry point. Each call takes the store lock;
// Tx holds it across the whole closure and rolls back to a clone on error.
type Memstore struct {
	mu sync.Mutex
	s  *state
}

func New() *Memstore {
	return &Memstore{s: newState()}
}

var _ chat.Store = (*Memstore)(nil)

func (m *Memstore) Tx(ctx context.Context, fn func(tx chat.Store) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	before := m.s.clone()
	if err := fn(&txView{s: m.s}); err != nil {
		m.s = before
		return err
	}
	return nil
}

// CreateTrip exists for seeding and tests; in production the roster service
// owns the trips table.
func (m *Memstore) CreateTrip(trip *models.Trip) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.s.nextID++
	trip.ID = m.s.nextID
	trip.CreatedAt = time.Now()
	trip.UpdatedAt = trip.CreatedAt
	m.s.trips[trip.ID] = trip
}

// txView runs against the state with the lock already held. Nested Tx calls
// join the outer transaction.
type txView struct {
	s *state
}

var _ chat.Store = (*txView)(nil)

func (v *txView) Tx(ctx context.Context, fn func(tx chat.Store) error) error {
	return fn(v)
}

func (v *txView) nextID() uint {
	v.s.nextID++
	return v.s.nextID
}

func (v *txView) GetTrip(ctx context.Context, tripID uint) (*models.Trip, error) {
	trip, ok := v.s.trips[tripID]
	if !ok {
		return nil, chatNotFound("trip")
	}
	cp := *trip
	return &cp, nil
}

// Roles

// CreateRole rejects a case-insensitive name duplicate itself, mirroring the
// functional unique index that backs name uniqueness in Postgres: the store
// is the authority even when a caller skips the FindRoleByName check.
func (v *txView) CreateRole(ctx context.Context, role *models.Role) error {
	for _, r := range v.s.roles {
		if r.TripID == role.TripID && strings.EqualFold(r.Name, role.Name) {
			return apperror.DuplicateName("a role with this name already exists in the trip")
		}
	}
	cp := *role
	cp.ID = v.nextID()
	cp.CreatedAt = time.Now()
	cp.UpdatedAt = cp.CreatedAt
	v.s.roles[cp.ID] = &cp
	*role = cp
	return nil
}

func (v *txView) GetRole(ctx context.Context, roleID uint) (*models.Role, error) {
	role, ok := v.s.roles[roleID]
	if !ok {
		return nil, nil
	}
	cp := *role
	return &cp, nil
}

func (v *txView) FindRoleByName(ctx context.Context, tripID uint, name string) (*models.Role, error) {
	for _, r := range v.s.roles {
		if r.TripID == tripID && strings.EqualFold(r.Name, name) {
			cp := *r
			return &cp, nil
		}
	}
	return nil, nil
}

func (v *txView) ListRoles(ctx context.Context, tripID uint) ([]models.Role, error) {
	var out []models.Role
	for _, r := range v.s.roles {
		if r.TripID == tripID {
			out = append(out, *r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (v *txView) DeleteRole(ctx context.Context, roleID uint) error {
	delete(v.s.roles, roleID)
	return nil
}

// Assignments

func (v *txView) CreateAssignment(ctx context.Context, a *models.RoleAssignment) error {
	cp := *a
	cp.ID = v.nextID()
	cp.CreatedAt = time.Now()
	cp.UpdatedAt = cp.CreatedAt
	v.s.assignments[cp.ID] = &cp
	*a = cp
	return nil
}

func (v *txView) GetUserAssignment(ctx context.Context, tripID, userID uint) (*models.RoleAssignment, error) {
	for _, a := range v.s.assignments {
		if a.TripID == tripID && a.UserID == userID {
			cp := *a
			return &cp, nil
		}
	}
	return nil, nil
}

func (v *txView) ListAssignments(ctx context.Context, tripID uint) ([]models.RoleAssignment, error) {
	var out []models.RoleAssignment
	for _, a := range v.s.assignments {
		if a.TripID == tripID {
			out = append(out, *a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (v *txView) ListAssignmentsByRole(ctx context.Context, roleID uint) ([]models.RoleAssignment, error) {
	var out []models.RoleAssignment
	for _, a := range v.s.assignments {
		if a.RoleID == roleID {
			out = append(out, *a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (v *txView) DeleteAssignment(ctx context.Context, tripID, userID, roleID uint) (bool, error) {
	for id, a := range v.s.assignments {
		if a.TripID == tripID && a.UserID == userID && a.RoleID == roleID {
			delete(v.s.assignments, id)
			return true, nil
		}
	}
	return false, nil
}

func (v *txView) DeleteAssignmentsByRole(ctx context.Context, roleID uint) error {
	for id, a := range v.s.assignments {
		if a.RoleID == roleID {
			delete(v.s.assignments, id)
		}
	}
	return nil
}

// Admin grants

func (v *txView) UpsertAdminGrant(ctx context.Context, g *models.AdminGrant) error {
	key := [2]uint{g.TripID, g.UserID}
	cp := *g
	now := time.Now()
	if existing, ok := v.s.grants[key]; ok {
		cp.ID = existing.ID
		cp.CreatedAt = existing.CreatedAt
	} else {
		cp.ID = v.nextID()
		cp.CreatedAt = now
	}
	cp.UpdatedAt = now
	v.s.grants[key] = &cp
	*g = cp
	return nil
}

func (v *txView) GetAdminGrant(ctx context.Context, tripID, userID uint) (*models.AdminGrant, error) {
	g := v.s.grants[[2]uint{tripID, userID}]
	if g == nil {
		return nil, nil
	}
	cp := *g
	return &cp, nil
}

func (v *txView) ListAdminGrants(ctx context.Context, tripID uint) ([]models.AdminGrant, error) {
	var out []models.AdminGrant
	for key, g := range v.s.grants {
		if key[0] == tripID {
			out = append(out, *g)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (v *txView) DeleteAdminGrant(ctx context.Context, tripID, userID uint) (bool, error) {
	key := [2]uint{tripID, userID}
	if _, ok := v.s.grants[key]; !ok {
		return false, nil
	}
	delete(v.s.grants, key)
	return true, nil
}

// Channels

func (v *txView) CreateChannel(ctx context.Context, ch *models.Channel, roleIDs []uint) error {
	cp := *ch
	cp.ID = v.nextID()
	cp.CreatedAt = time.Now()
	cp.UpdatedAt = cp.CreatedAt
	v.s.channels[cp.ID] = &cp
	v.s.channelRoles[cp.ID] = append([]uint(nil), roleIDs...)
	*ch = cp
	return nil
}

func (v *txView) GetChannel(ctx context.Context, channelID uint) (*models.Channel, error) {
	ch := v.s.channels[channelID]
	if ch == nil {
		return nil, nil
	}
	cp := *ch
	return &cp, nil
}

func (v *txView) FindChannelBySlug(ctx context.Context, tripID uint, slug string) (*models.Channel, error) {
	for _, ch := range v.s.channels {
		if ch.TripID == tripID && ch.Slug == slug {
			cp := *ch
			return &cp, nil
		}
	}
	return nil, nil
}

func (v *txView) ListChannels(ctx context.Context, tripID uint) ([]models.Channel, error) {
	var out []models.Channel
	for _, ch := range v.s.channels {
		if ch.TripID == tripID {
			out = append(out, *ch)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (v *txView) UpdateChannel(ctx context.Context, ch *models.Channel) error {
	if _, ok := v.s.channels[ch.ID]; !ok {
		return chatNotFound("channel")
	}
	cp := *ch
	cp.UpdatedAt = time.Now()
	v.s.channels[cp.ID] = &cp
	*ch = cp
	return nil
}

func (v *txView) SetChannelRoles(ctx context.Context, channelID uint, roleIDs []uint) error {
	v.s.channelRoles[channelID] = append([]uint(nil), roleIDs...)
	return nil
}

func (v *txView) ChannelRoleIDs(ctx context.Context, channelID uint) ([]uint, error) {
	return append([]uint(nil), v.s.channelRoles[channelID]...), nil
}

func (v *txView) ChannelsRequiringRole(ctx context.Context, roleID uint) ([]uint, error) {
	var out []uint
	for channelID, roleIDs := range v.s.channelRoles {
		for _, id := range roleIDs {
			if id == roleID {
				out = append(out, channelID)
				break
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

func (v *txView) ArchiveChannel(ctx context.Context, channelID uint) error {
	ch, ok := v.s.channels[channelID]
	if !ok {
		return chatNotFound("channel")
	}
	cp := *ch
	cp.IsArchived = true
	cp.UpdatedAt = time.Now()
	v.s.channels[channelID] = &cp
	return nil
}

func (v *txView) AddAccessSnapshot(ctx context.Context, channelID uint, userIDs []uint) error {
	snap, ok := v.s.snapshots[channelID]
	if !ok {
		snap = make(map[uint]struct{})
	} else {
		inner := make(map[uint]struct{}, len(snap))
		for u := range snap {
			inner[u] = struct{}{}
		}
		snap = inner
	}
	for _, u := range userIDs {
		snap[u] = struct{}{}
	}
	v.s.snapshots[channelID] = snap
	return nil
}

func (v *txView) InAccessSnapshot(ctx context.Context, channelID, userID uint) (bool, error) {
	_, ok := v.s.snapshots[channelID][userID]
	return ok, nil
}

// Messages

func (v *txView) AppendMessage(ctx context.Context, msg *models.Message) error {
	ch, ok := v.s.channels[msg.ChannelID]
	if !ok {
		return chatNotFound("channel")
	}
	chCopy := *ch
	chCopy.LastSeq++
	v.s.channels[ch.ID] = &chCopy

	cp := *msg
	cp.ID = v.nextID()
	cp.Seq = chCopy.LastSeq
	cp.CreatedAt = time.Now()
	cp.UpdatedAt = cp.CreatedAt
	v.s.messages[cp.ID] = &cp
	v.s.byChannel[cp.ChannelID] = append(v.s.byChannel[cp.ChannelID], cp.ID)
	*msg = cp
	return nil
}

func (v *txView) GetMessage(ctx context.Context, messageID uint) (*models.Message, error) {
	msg := v.s.messages[messageID]
	if msg == nil {
		return nil, nil
	}
	cp := *msg
	return &cp, nil
}

func (v *txView) UpdateMessageContent(ctx context.Context, messageID uint, content string, editedAt time.Time) error {
	msg, ok := v.s.messages[messageID]
	if !ok {
		return chatNotFound("message")
	}
	cp := *msg
	cp.Content = content
	cp.EditedAt = &editedAt
	cp.UpdatedAt = editedAt
	v.s.messages[messageID] = &cp
	return nil
}

func (v *txView) SoftDeleteMessage(ctx context.Context, messageID uint) error {
	msg, ok := v.s.messages[messageID]
	if !ok {
		return chatNotFound("message")
	}
	cp := *msg
	cp.DeletedAt = gorm.DeletedAt{Time: time.Now(), Valid: true}
	v.s.messages[messageID] = &cp
	return nil
}

func (v *txView) ListMessagesBefore(ctx context.Context, channelID uint, beforeSeq int64, limit int) ([]models.Message, error) {
	ids := v.s.byChannel[channelID]
	out := make([]models.Message, 0, limit)
	for i := len(ids) - 1; i >= 0 && len(out) < limit; i-- {
		msg := v.s.messages[ids[i]]
		if beforeSeq > 0 && msg.Seq >= beforeSeq {
			continue
		}
		out = append(out, *msg)
	}
	return out, nil
}

func (v *txView) ListMessagesAfter(ctx context.Context, channelID uint, afterSeq int64, limit int) ([]models.Message, error) {
	ids := v.s.byChannel[channelID]
	out := make([]models.Message, 0, limit)
	for _, id := range ids {
		if len(out) >= limit {
			break
		}
		msg := v.s.messages[id]
		if msg.Seq > afterSeq {
			out = append(out, *msg)
		}
	}
	return out, nil
}

func (v *txView) CountUnread(ctx context.Context, channelID uint, afterSeq int64, excludeSender uint) (int64, error) {
	var n int64
	for _, id := range v.s.byChannel[channelID] {
		msg := v.s.messages[id]
		if msg.Seq > afterSeq && msg.SenderID != excludeSender && !msg.IsDeleted() {
			n++
		}
	}
	return n, nil
}

func (v *txView) PurgeDeletedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	var purged int64
	for id, msg := range v.s.messages {
		if msg.IsDeleted() && msg.DeletedAt.Time.Before(cutoff) {
			delete(v.s.messages, id)
			ids := v.s.byChannel[msg.ChannelID]
			kept := make([]uint, 0, len(ids))
			for _, mid := range ids {
				if mid != id {
					kept = append(kept, mid)
				}
			}
			v.s.byChannel[msg.ChannelID] = kept
			purged++
		}
	}
	return purged, nil
}

// Read markers

func (v *txView) GetReadMarker(ctx context.Context, channelID, userID uint) (*models.ChannelReadMarker, error) {
	m := v.s.markers[[2]uint{channelID, userID}]
	if m == nil {
		return nil, nil
	}
	cp := *m
	return &cp, nil
}

func (v *txView) AdvanceReadMarker(ctx context.Context, channelID, userID uint, seq int64) error {
	key := [2]uint{channelID, userID}
	now := time.Now()
	existing := v.s.markers[key]
	if existing == nil {
		v.s.markers[key] = &models.ChannelReadMarker{
			ChannelID:   channelID,
			UserID:      userID,
			LastReadSeq: seq,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		return nil
	}
	if seq <= existing.LastReadSeq {
		return nil
	}
	cp := *existing
	cp.LastReadSeq = seq
	cp.UpdatedAt = now
	v.s.markers[key] = &cp
	return nil
}
