package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/AnshRaj112/skillswap-backend/internal/models"
)

// memUsers is an in-memory UserRepository with the same uniqueness rules as
// the Mongo indexes.
type memUsers struct {
	mu    sync.Mutex
	users map[primitive.ObjectID]*models.User

	findByIDCalls int
	createErr     error
	// missLookups makes the next provider id / email lookups miss
	missLookups int
}

func newMemUsers(users ...*models.User) *memUsers {
	m := &memUsers{users: map[primitive.ObjectID]*models.User{}}
	for _, u := range users {
		if u.ID.IsZero() {
			u.ID = primitive.NewObjectID()
		}
		m.users[u.ID] = u
	}
	return m
}

func (m *memUsers) copyOf(u *models.User) *models.User {
	c := *u
	return &c
}

func (m *memUsers) FindByID(_ context.Context, id string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.findByIDCalls++
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid user id", ErrInvalidInput)
	}
	if u, ok := m.users[oid]; ok {
		return m.copyOf(u), nil
	}
	return nil, ErrNotFound
}

func (m *memUsers) find(match func(*models.User) bool) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.missLookups > 0 {
		m.missLookups--
		return nil, ErrNotFound
	}
	for _, u := range m.users {
		if match(u) {
			return m.copyOf(u), nil
		}
	}
	return nil, ErrNotFound
}

func (m *memUsers) FindByProviderID(_ context.Context, pid string) (*models.User, error) {
	return m.find(func(u *models.User) bool { return u.ProviderID == pid || u.GoogleID == pid })
}

func (m *memUsers) FindByEmail(_ context.Context, email string) (*models.User, error) {
	return m.find(func(u *models.User) bool { return u.Email == email })
}

func (m *memUsers) conflicts(u *models.User) bool {
	for _, other := range m.users {
		if other.ID == u.ID {
			continue
		}
		if other.Email == u.Email || (u.ProviderID != "" && other.ProviderID == u.ProviderID) {
			return true
		}
	}
	return false
}

func (m *memUsers) Create(_ context.Context, u *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	if m.conflicts(u) {
		return ErrConflict
	}
	u.ID = primitive.NewObjectID()
	u.CreatedAt = time.Now().UTC()
	m.users[u.ID] = m.copyOf(u)
	return nil
}

func (m *memUsers) UpdateFields(_ context.Context, id primitive.ObjectID, fields map[string]interface{}) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	next := m.copyOf(u)
	for k, v := range fields {
		switch k {
		case "name":
			next.Name = v.(string)
		case "email":
			next.Email = v.(string)
		case "password":
			next.Password = v.(string)
		case "provider_id":
			next.ProviderID = v.(string)
		case "photo":
			next.Photo = v.(string)
		case "bio":
			next.Bio = v.(string)
		case "teach_skills":
			next.TeachSkills = v.([]string)
		case "learn_skills":
			next.LearnSkills = v.([]string)
		default:
			return nil, fmt.Errorf("unexpected field %q", k)
		}
	}
	if m.conflicts(next) {
		return nil, ErrConflict
	}
	m.users[id] = next
	return m.copyOf(next), nil
}

func (m *memUsers) List(_ context.Context, f UserFilter) ([]*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	q := strings.ToLower(f.Query)
	contains := func(list []string) bool {
		for _, s := range list {
			if strings.Contains(strings.ToLower(s), q) {
				return true
			}
		}
		return false
	}
	out := []*models.User{}
	for _, u := range m.users {
		match := q == ""
		switch {
		case match:
		case f.Mode == SearchTeach:
			match = contains(u.TeachSkills)
		case f.Mode == SearchLearn:
			match = contains(u.LearnSkills)
		default:
			match = strings.Contains(strings.ToLower(u.Name), q) || contains(u.TeachSkills) || contains(u.LearnSkills)
		}
		if match {
			out = append(out, m.copyOf(u))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}
