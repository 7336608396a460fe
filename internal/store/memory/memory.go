// Package memory implementa store.DataAccessLayer en memoria.
// Se usa en desarrollo y en tests; no persiste nada entre reinicios.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/dropDatabas3/aliceid/internal/domain/repository"
	"github.com/dropDatabas3/aliceid/internal/store"
)

type DAL struct {
	mu             sync.RWMutex
	users          map[string]repository.User          // por ID
	clients        map[string]repository.Client        // por client_id
	scopes         map[string]repository.Scope         // por nombre
	authorizations map[string]repository.Authorization // por ID
}

func New() *DAL {
	return &DAL{
		users:          map[string]repository.User{},
		clients:        map[string]repository.Client{},
		scopes:         map[string]repository.Scope{},
		authorizations: map[string]repository.Authorization{},
	}
}

var _ store.DataAccessLayer = (*DAL)(nil)

func (d *DAL) Users() repository.UserRepository                   { return (*userRepo)(d) }
func (d *DAL) Clients() repository.ClientRepository               { return (*clientRepo)(d) }
func (d *DAL) Scopes() repository.ScopeRepository                 { return (*scopeRepo)(d) }
func (d *DAL) Authorizations() repository.AuthorizationRepository { return (*authzRepo)(d) }

func (d *DAL) Ping(context.Context) error { return nil }
func (d *DAL) Close()                     {}

// ─── Users ───

type userRepo DAL

func (r *userRepo) GetByID(_ context.Context, userID string) (*repository.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.users[userID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	out := u
	return &out, nil
}

func (r *userRepo) GetByEmail(_ context.Context, email string) (*repository.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, u := range r.users {
		if strings.EqualFold(u.Email, email) {
			out := u
			return &out, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *userRepo) Create(_ context.Context, in repository.CreateUserInput) (*repository.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if strings.EqualFold(u.Email, in.Email) {
			return nil, repository.ErrConflict
		}
	}
	u := repository.User{
		ID:           uuid.NewString(),
		Email:        in.Email,
		Name:         in.Name,
		GivenName:    in.GivenName,
		FamilyName:   in.FamilyName,
		ScreenName:   in.ScreenName,
		PasswordHash: in.PasswordHash,
		CreatedAt:    time.Now().UTC(),
	}
	r.users[u.ID] = u
	out := u
	return &out, nil
}

func (r *userRepo) List(_ context.Context, limit, offset int) ([]repository.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	all := make([]repository.User, 0, len(r.users))
	for _, u := range r.users {
		all = append(all, u)
	}
	sortByCreatedAt(all, func(u repository.User) time.Time { return u.CreatedAt })
	return paginate(all, limit, offset), nil
}

func (r *userRepo) Delete(_ context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[userID]; !ok {
		return repository.ErrNotFound
	}
	delete(r.users, userID)
	return nil
}

func (r *userRepo) Disable(_ context.Context, userID string, until *time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[userID]
	if !ok {
		return repository.ErrNotFound
	}
	now := time.Now().UTC()
	u.DisabledAt = &now
	u.DisabledUntil = until
	r.users[userID] = u
	return nil
}

// ─── Clients ───

type clientRepo DAL

func (r *clientRepo) Get(_ context.Context, clientID string) (*repository.Client, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.clients[clientID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	out := c
	return &out, nil
}

func (r *clientRepo) List(_ context.Context) ([]repository.Client, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]repository.Client, 0, len(r.clients))
	for _, c := range r.clients {
		out = append(out, c)
	}
	return out, nil
}

func (r *clientRepo) Create(_ context.Context, in repository.ClientInput) (*repository.Client, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.clients[in.ClientID]; ok {
		return nil, repository.ErrConflict
	}
	c := repository.Client{
		ID:           uuid.NewString(),
		ClientID:     in.ClientID,
		Name:         in.Name,
		Type:         in.Type,
		ConsentType:  in.ConsentType,
		RedirectURIs: append([]string(nil), in.RedirectURIs...),
		Scopes:       append([]string(nil), in.Scopes...),
	}
	if in.Secret != "" {
		h, err := bcrypt.GenerateFromPassword([]byte(in.Secret), bcrypt.DefaultCost)
		if err != nil {
			return nil, err
		}
		c.SecretHash = string(h)
	}
	r.clients[c.ClientID] = c
	out := c
	return &out, nil
}

func (r *clientRepo) Delete(_ context.Context, clientID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.clients[clientID]; !ok {
		return repository.ErrNotFound
	}
	delete(r.clients, clientID)
	return nil
}

func (r *clientRepo) IsRedirectURIAllowed(client *repository.Client, uri string) bool {
	if client == nil {
		return false
	}
	for _, u := range client.RedirectURIs {
		if u == uri {
			return true
		}
	}
	return false
}

func (r *clientRepo) IsScopeAllowed(client *repository.Client, scope string) bool {
	if client == nil {
		return false
	}
	for _, s := range client.Scopes {
		if s == scope {
			return true
		}
	}
	return false
}

// ─── Scopes ───

type scopeRepo DAL

func (r *scopeRepo) GetByName(_ context.Context, name string) (*repository.Scope, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.scopes[name]
	if !ok {
		return nil, repository.ErrNotFound
	}
	out := s
	return &out, nil
}

func (r *scopeRepo) List(_ context.Context) ([]repository.Scope, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]repository.Scope, 0, len(r.scopes))
	for _, s := range r.scopes {
		out = append(out, s)
	}
	return out, nil
}

func (r *scopeRepo) Upsert(_ context.Context, in repository.ScopeInput) (*repository.Scope, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.scopes[in.Name]
	if !ok {
		s = repository.Scope{
			ID:        uuid.NewString(),
			Name:      in.Name,
			CreatedAt: time.Now().UTC(),
		}
	}
	s.DisplayName = in.DisplayName
	s.Claims = append([]string(nil), in.Claims...)
	s.Resources = append([]string(nil), in.Resources...)
	s.System = in.System
	r.scopes[in.Name] = s
	out := s
	return &out, nil
}

func (r *scopeRepo) Delete(_ context.Context, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.scopes[name]; !ok {
		return repository.ErrNotFound
	}
	delete(r.scopes, name)
	return nil
}

// ─── Authorizations ───

type authzRepo DAL

func (r *authzRepo) List(_ context.Context, subject, clientID string, status repository.AuthorizationStatus,
	typ repository.AuthorizationType, scopes []string) ([]repository.Authorization, error) {

	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []repository.Authorization
	for _, a := range r.authorizations {
		if a.Subject != subject || a.ClientID != clientID {
			continue
		}
		if a.Status != status || a.Type != typ {
			continue
		}
		if !scopesCover(a.Scopes, scopes) {
			continue
		}
		out = append(out, a)
	}
	return out, nil
}

func (r *authzRepo) ListBySubject(_ context.Context, subject string) ([]repository.Authorization, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []repository.Authorization
	for _, a := range r.authorizations {
		if a.Subject == subject {
			out = append(out, a)
		}
	}
	return out, nil
}

func (r *authzRepo) Create(_ context.Context, in repository.CreateAuthorizationInput) (*repository.Authorization, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a := repository.Authorization{
		ID:        uuid.NewString(),
		Subject:   in.Subject,
		ClientID:  in.ClientID,
		Type:      in.Type,
		Status:    in.Status,
		Scopes:    append([]string(nil), in.Scopes...),
		CreatedAt: time.Now().UTC(),
	}
	r.authorizations[a.ID] = a
	out := a
	return &out, nil
}

func (r *authzRepo) Revoke(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.authorizations[id]
	if !ok {
		return repository.ErrNotFound
	}
	now := time.Now().UTC()
	a.Status = repository.AuthorizationRevoked
	a.RevokedAt = &now
	r.authorizations[id] = a
	return nil
}

// scopesCover reporta si granted cubre todos los scopes pedidos.
func scopesCover(granted, requested []string) bool {
	set := make(map[string]struct{}, len(granted))
	for _, s := range granted {
		set[s] = struct{}{}
	}
	for _, s := range requested {
		if _, ok := set[s]; !ok {
			return false
		}
	}
	return true
}

// ─── helpers ───

func sortByCreatedAt[T any](items []T, at func(T) time.Time) {
	sort.Slice(items, func(i, j int) bool { return at(items[i]).Before(at(items[j])) })
}

func paginate[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return nil
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	out := make([]T, len(items))
	copy(out, items)
	return out
}
