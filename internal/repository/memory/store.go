// Package memory is a process-local implementation of the repository
// interfaces.  It keeps the same uniqueness and conditional-update rules
// as the MySQL repositories and is meant for local runs and tests.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/iliyamo/matrimony-api/internal/model"
	"github.com/iliyamo/matrimony-api/internal/repository"
)

// Store holds every table behind one mutex.
type Store struct {
	mu sync.Mutex

	users      map[uint64]*model.User
	emails     map[string]uint64
	tokens     map[string]*model.RefreshToken
	conns      map[uint64]*model.Connection
	pairs      map[[2]uint64]uint64
	profiles   map[uint64]*model.Profile
	activities []model.Activity

	nextUser  uint64
	nextToken uint64
	nextConn  uint64

	now func() time.Time
}

func New() *Store {
	return &Store{
		users:    make(map[uint64]*model.User),
		emails:   make(map[string]uint64),
		tokens:   make(map[string]*model.RefreshToken),
		conns:    make(map[uint64]*model.Connection),
		pairs:    make(map[[2]uint64]uint64),
		profiles: make(map[uint64]*model.Profile),
		now:      time.Now,
	}
}

func (s *Store) Users() *Users             { return &Users{s} }
func (s *Store) Tokens() *Tokens           { return &Tokens{s} }
func (s *Store) Connections() *Connections { return &Connections{s} }
func (s *Store) Profiles() *Profiles       { return &Profiles{s} }
func (s *Store) Activities() *Activities   { return &Activities{s} }

// Ping always succeeds.
func (s *Store) Ping(context.Context) error { return nil }

func pairKey(a, b uint64) [2]uint64 {
	if a > b {
		a, b = b, a
	}
	return [2]uint64{a, b}
}

// ----- users -----

type Users struct{ s *Store }

func (r *Users) Create(_ context.Context, u *model.User) (uint64, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.emails[u.Email]; ok {
		return 0, repository.ErrEmailExists
	}
	s.nextUser++
	cp := *u
	cp.ID = s.nextUser
	if cp.Role == model.RoleUnknown {
		cp.Role = model.RoleUser
	}
	if cp.Status == "" {
		cp.Status = model.StatusActive
	}
	now := s.now().UTC()
	cp.CreatedAt, cp.UpdatedAt = now, now
	s.users[cp.ID] = &cp
	s.emails[cp.Email] = cp.ID
	return cp.ID, nil
}

func (r *Users) EmailExists(_ context.Context, email string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	_, ok := r.s.emails[email]
	return ok, nil
}

func (r *Users) GetByEmail(_ context.Context, email string) (*model.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	id, ok := r.s.emails[email]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return r.s.userCopy(id)
}

func (r *Users) GetByID(_ context.Context, id uint64) (*model.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.s.userCopy(id)
}

// GetByMobile matches the last 10 digits of the stored number.  The lowest
// id wins when several accounts share a number.
func (r *Users) GetByMobile(_ context.Context, mobile10 string) (*model.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if id, ok := r.s.findMobile(mobile10, func(*model.User) bool { return true }); ok {
		return r.s.userCopy(id)
	}
	return nil, repository.ErrNotFound
}

func (r *Users) GetByMobileAndCode(_ context.Context, mobile10, code string, now time.Time) (*model.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	id, ok := r.s.findMobile(mobile10, func(u *model.User) bool {
		return u.LoginCode != nil && *u.LoginCode == code &&
			u.LoginCodeExpiresAt != nil && u.LoginCodeExpiresAt.After(now)
	})
	if !ok {
		return nil, repository.ErrNotFound
	}
	return r.s.userCopy(id)
}

func (r *Users) SetLoginCode(_ context.Context, id uint64, code string, expiresAt time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	c, exp := code, expiresAt
	u.LoginCode, u.LoginCodeExpiresAt = &c, &exp
	return nil
}

// ConsumeLoginCode clears the code only if it is still the given one.
func (r *Users) ConsumeLoginCode(_ context.Context, id uint64, code string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok || u.LoginCode == nil || *u.LoginCode != code {
		return false, nil
	}
	u.LoginCode, u.LoginCodeExpiresAt = nil, nil
	return true, nil
}

func (r *Users) UpdatePassword(_ context.Context, id uint64, hash string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	u.PasswordHash = hash
	u.UpdatedAt = r.s.now().UTC()
	return nil
}

func (r *Users) UpdateStatus(_ context.Context, id uint64, status model.UserStatus) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	u.Status = status
	u.UpdatedAt = r.s.now().UTC()
	return nil
}

func (s *Store) userCopy(id uint64) (*model.User, error) {
	u, ok := s.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (s *Store) findMobile(mobile10 string, match func(*model.User) bool) (uint64, bool) {
	var best uint64
	for id, u := range s.users {
		m := u.Mobile
		if len(m) < len(mobile10) || m[len(m)-len(mobile10):] != mobile10 || !match(u) {
			continue
		}
		if best == 0 || id < best {
			best = id
		}
	}
	return best, best != 0
}

// ----- refresh tokens -----

type Tokens struct{ s *Store }

func (r *Tokens) StoreRefresh(_ context.Context, userID uint64, tokenHash string, exp time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.tokens[tokenHash]; ok {
		return repository.ErrDuplicate
	}
	r.s.nextToken++
	r.s.tokens[tokenHash] = &model.RefreshToken{
		ID: r.s.nextToken, UserID: userID, TokenHash: tokenHash,
		ExpiresAt: exp.UTC(), CreatedAt: r.s.now().UTC(),
	}
	return nil
}

func (r *Tokens) ValidateRefresh(_ context.Context, tokenHash string) (uint64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t, ok := r.s.tokens[tokenHash]
	if !ok || t.RevokedAt != nil || !t.ExpiresAt.After(r.s.now()) {
		return 0, repository.ErrNotFound
	}
	return t.UserID, nil
}

func (r *Tokens) RevokeByHash(_ context.Context, tokenHash string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t, ok := r.s.tokens[tokenHash]
	if !ok || t.RevokedAt != nil {
		return false, nil
	}
	now := r.s.now().UTC()
	t.RevokedAt = &now
	return true, nil
}

func (r *Tokens) RevokeAllForUser(_ context.Context, userID uint64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	now := r.s.now().UTC()
	for _, t := range r.s.tokens {
		if t.UserID == userID && t.RevokedAt == nil {
			at := now
			t.RevokedAt = &at
		}
	}
	return nil
}

// ----- connections -----

type Connections struct{ s *Store }

func (r *Connections) ExistsBetween(_ context.Context, a, b uint64) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	_, ok := r.s.pairs[pairKey(a, b)]
	return ok, nil
}

func (r *Connections) Create(_ context.Context, senderID, receiverID uint64) (uint64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	key := pairKey(senderID, receiverID)
	if _, ok := r.s.pairs[key]; ok {
		return 0, repository.ErrDuplicate
	}
	r.s.nextConn++
	now := r.s.now().UTC()
	c := &model.Connection{
		ID: r.s.nextConn, SenderID: senderID, ReceiverID: receiverID,
		Status: model.ConnectionPending, CreatedAt: now, UpdatedAt: now,
	}
	r.s.conns[c.ID] = c
	r.s.pairs[key] = c.ID
	return c.ID, nil
}

func (r *Connections) GetByID(_ context.Context, id uint64) (*model.Connection, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.conns[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

// TransitionFromPending changes status only for a pending row addressed to
// receiverID; anything else is ErrNotFound.
func (r *Connections) TransitionFromPending(_ context.Context, id, receiverID uint64, to model.ConnectionStatus) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.conns[id]
	if !ok || c.ReceiverID != receiverID || c.Status != model.ConnectionPending {
		return repository.ErrNotFound
	}
	c.Status = to
	c.UpdatedAt = r.s.now().UTC()
	return nil
}

func (r *Connections) ListForUser(_ context.Context, userID uint64, status model.ConnectionStatus) ([]model.Connection, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []model.Connection{}
	for _, c := range r.s.conns {
		if c.SenderID != userID && c.ReceiverID != userID {
			continue
		}
		if status != "" && c.Status != status {
			continue
		}
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

// ----- profiles -----

type Profiles struct{ s *Store }

func (r *Profiles) Get(_ context.Context, userID uint64) (*model.Profile, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[userID]
	if !ok || u.Status == model.StatusBlocked {
		return nil, repository.ErrNotFound
	}
	p := model.Profile{UserID: u.ID, UpdatedAt: u.UpdatedAt}
	if stored, ok := r.s.profiles[userID]; ok {
		p = *stored
	}
	p.UserID, p.FirstName, p.LastName = u.ID, u.FirstName, u.LastName
	return &p, nil
}

// Update applies allow-listed column changes.  Values have the types the
// service produces: string, time.Time, int or nil.
func (r *Profiles) Update(_ context.Context, userID uint64, changes map[string]interface{}) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[userID]
	if !ok {
		return repository.ErrNotFound
	}
	p := &model.Profile{UserID: userID}
	if stored, ok := r.s.profiles[userID]; ok {
		cp := *stored
		p = &cp
	}
	first, last := u.FirstName, u.LastName
	for col, v := range changes {
		switch col {
		case "first_name":
			first, _ = v.(string)
		case "last_name":
			last, _ = v.(string)
		case "gender":
			p.Gender = strPtr(v)
		case "religion":
			p.Religion = strPtr(v)
		case "mother_tongue":
			p.MotherTongue = strPtr(v)
		case "city":
			p.City = strPtr(v)
		case "occupation":
			p.Occupation = strPtr(v)
		case "about":
			p.About = strPtr(v)
		case "date_of_birth":
			p.DateOfBirth = nil
			if t, ok := v.(time.Time); ok {
				p.DateOfBirth = &t
			}
		case "height_cm":
			p.HeightCM = nil
			if h, ok := v.(int); ok {
				p.HeightCM = &h
			}
		default:
			return repository.ErrUnknownColumn
		}
	}
	now := r.s.now().UTC()
	u.FirstName, u.LastName = first, last
	u.UpdatedAt = now
	p.UpdatedAt = now
	r.s.profiles[userID] = p
	return nil
}

func strPtr(v interface{}) *string {
	s, ok := v.(string)
	if !ok {
		return nil
	}
	return &s
}

// ----- activity -----

type Activities struct{ s *Store }

func (r *Activities) Record(_ context.Context, a model.Activity) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.activities = append(r.s.activities, a)
	return nil
}

// List returns a copy of every recorded activity in insertion order.
func (r *Activities) List() []model.Activity {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return append([]model.Activity(nil), r.s.activities...)
}
