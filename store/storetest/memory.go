// Package storetest provides an in-memory stand-in for store.DB with the
// same uniqueness rules, for service and handler tests.
package storetest

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/MohitSaini10/dan-aliph/models"
	"github.com/MohitSaini10/dan-aliph/store"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Memory struct {
	mu          sync.Mutex
	users       map[primitive.ObjectID]models.User
	books       map[primitive.ObjectID]models.Book
	subscribers map[primitive.ObjectID]models.Subscriber
	contacts    map[primitive.ObjectID]models.Contact
	emailLogs   []models.EmailLog

	// BeforeInsertBook runs without the lock held, right before a book is
	// inserted. Tests use it to simulate a concurrent writer.
	BeforeInsertBook func(b *models.Book)
}

func NewMemory() *Memory {
	return &Memory{
		users:       map[primitive.ObjectID]models.User{},
		books:       map[primitive.ObjectID]models.Book{},
		subscribers: map[primitive.ObjectID]models.Subscriber{},
		contacts:    map[primitive.ObjectID]models.Contact{},
	}
}

// applySet mirrors a Mongo $set by round-tripping doc through BSON.
func applySet[T any](doc *T, set bson.M) error {
	raw, err := bson.Marshal(doc)
	if err != nil {
		return err
	}
	var m bson.M
	if err := bson.Unmarshal(raw, &m); err != nil {
		return err
	}
	for k, v := range set {
		m[k] = v
	}
	raw, err = bson.Marshal(m)
	if err != nil {
		return err
	}
	var out T
	if err := bson.Unmarshal(raw, &out); err != nil {
		return err
	}
	*doc = out
	return nil
}

func dup(what string) error {
	return fmt.Errorf("%w: %s", store.ErrDuplicate, what)
}

// Users

func (m *Memory) CreateUser(_ context.Context, u *models.User) (primitive.ObjectID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.users {
		if existing.Email == u.Email {
			return primitive.NilObjectID, dup("users.email")
		}
	}
	c := *u
	if c.ID.IsZero() {
		c.ID = primitive.NewObjectID()
	}
	m.users[c.ID] = c
	return c.ID, nil
}

func (m *Memory) UserByEmail(_ context.Context, email string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			c := u
			return &c, nil
		}
	}
	return nil, nil
}

func (m *Memory) UserByID(_ context.Context, id primitive.ObjectID) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

func (m *Memory) ListUsers(_ context.Context, f store.UserFilter) ([]models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.User{}
	for _, u := range m.users {
		if f.ExcludeAdmins && u.Role == models.RoleAdmin {
			continue
		}
		if f.AuthorRequested && !u.AuthorRequest {
			continue
		}
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *Memory) UpdateUser(_ context.Context, id primitive.ObjectID, set bson.M) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, nil
	}
	if email, ok := set["email"].(string); ok {
		for oid, other := range m.users {
			if oid != id && other.Email == email {
				return nil, dup("users.email")
			}
		}
	}
	if err := applySet(&u, withUpdatedAt(set)); err != nil {
		return nil, err
	}
	m.users[id] = u
	return &u, nil
}

func (m *Memory) DeleteUser(_ context.Context, id primitive.ObjectID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.users[id]
	delete(m.users, id)
	return ok, nil
}

func (m *Memory) CountUsers(_ context.Context, role string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, u := range m.users {
		if role == "" || u.Role == role {
			n++
		}
	}
	return n, nil
}

func (m *Memory) SetResetToken(_ context.Context, id primitive.ObjectID, tokenHash string, expires time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil
	}
	u.ResetPasswordToken = tokenHash
	u.ResetPasswordExpires = &expires
	m.users[id] = u
	return nil
}

func (m *Memory) ConsumeResetToken(_ context.Context, tokenHash string, now time.Time, passwordHash string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, u := range m.users {
		if u.ResetPasswordToken == "" || u.ResetPasswordToken != tokenHash {
			continue
		}
		if u.ResetPasswordExpires == nil || !u.ResetPasswordExpires.After(now) {
			return false, nil
		}
		u.PasswordHash = passwordHash
		u.ResetPasswordToken = ""
		u.ResetPasswordExpires = nil
		m.users[id] = u
		return true, nil
	}
	return false, nil
}

// Books

func (m *Memory) InsertBook(_ context.Context, b *models.Book) (primitive.ObjectID, error) {
	if m.BeforeInsertBook != nil {
		m.BeforeInsertBook(b)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.books {
		if existing.Slug == b.Slug {
			return primitive.NilObjectID, dup("books.slug")
		}
	}
	c := *b
	if c.ID.IsZero() {
		c.ID = primitive.NewObjectID()
	}
	m.books[c.ID] = c
	return c.ID, nil
}

func (m *Memory) SlugExists(_ context.Context, slug string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, b := range m.books {
		if b.Slug == slug {
			return true, nil
		}
	}
	return false, nil
}

func (m *Memory) BookByID(_ context.Context, id primitive.ObjectID) (*models.Book, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.books[id]
	if !ok {
		return nil, nil
	}
	return &b, nil
}

func (m *Memory) ListBooks(_ context.Context, f models.BookFilter, skip, limit int64) ([]models.Book, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	matched := []models.Book{}
	for _, b := range m.books {
		if matchBook(f, &b) {
			matched = append(matched, b)
		}
	}
	sort.SliceStable(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		if f.Featured && a.FeaturedOrder != b.FeaturedOrder {
			return a.FeaturedOrder < b.FeaturedOrder
		}
		return a.CreatedAt.After(b.CreatedAt)
	})
	total := int64(len(matched))
	if skip >= total {
		return []models.Book{}, total, nil
	}
	end := total
	if limit > 0 && skip+limit < total {
		end = skip + limit
	}
	return matched[skip:end], total, nil
}

func (m *Memory) CountBooks(_ context.Context, f models.BookFilter) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, b := range m.books {
		if matchBook(f, &b) {
			n++
		}
	}
	return n, nil
}

func (m *Memory) UpdateBook(_ context.Context, id primitive.ObjectID, set bson.M) (*models.Book, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.books[id]
	if !ok {
		return nil, nil
	}
	if err := applySet(&b, withUpdatedAt(set)); err != nil {
		return nil, err
	}
	m.books[id] = b
	return &b, nil
}

func (m *Memory) DeleteBook(_ context.Context, id primitive.ObjectID) (*models.Book, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.books[id]
	if !ok {
		return nil, nil
	}
	delete(m.books, id)
	return &b, nil
}

func (m *Memory) ListAuthors(_ context.Context) ([]models.AuthorSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	counts := map[primitive.ObjectID]int64{}
	for _, b := range m.books {
		if b.Status == models.StatusApproved && b.IsPublished {
			counts[b.AuthorID]++
		}
	}
	out := []models.AuthorSummary{}
	for id, n := range counts {
		u, ok := m.users[id]
		if !ok {
			continue
		}
		out = append(out, models.AuthorSummary{ID: id, Name: u.Name, ProfileImage: u.ProfileImage, BookCount: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].BookCount != out[j].BookCount {
			return out[i].BookCount > out[j].BookCount
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

func matchBook(f models.BookFilter, b *models.Book) bool {
	if !f.AuthorID.IsZero() && b.AuthorID != f.AuthorID {
		return false
	}
	if f.Status != "" && b.Status != f.Status {
		return false
	}
	if f.PublicOnly && (b.Status != models.StatusApproved || !b.IsPublished) {
		return false
	}
	if f.Featured && !b.IsFeatured {
		return false
	}
	if term := strings.ToLower(strings.TrimSpace(f.Query)); term != "" {
		hit := false
		for _, field := range []string{b.Title, b.Category, b.Description, b.AuthorName} {
			if strings.Contains(strings.ToLower(field), term) {
				hit = true
				break
			}
		}
		if !hit {
			return false
		}
	}
	return true
}

// Subscribers

func (m *Memory) SubscriberByEmail(_ context.Context, email string) (*models.Subscriber, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.subscribers {
		if s.Email == email {
			c := s
			return &c, nil
		}
	}
	return nil, nil
}

func (m *Memory) InsertSubscriber(_ context.Context, s *models.Subscriber) (primitive.ObjectID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.subscribers {
		if existing.Email == s.Email || existing.UnsubscribeToken == s.UnsubscribeToken {
			return primitive.NilObjectID, dup("subscribers")
		}
	}
	c := *s
	if c.ID.IsZero() {
		c.ID = primitive.NewObjectID()
	}
	m.subscribers[c.ID] = c
	return c.ID, nil
}

func (m *Memory) SetSubscriberActive(_ context.Context, id primitive.ObjectID, active bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.subscribers[id]; ok {
		s.IsActive = active
		m.subscribers[id] = s
	}
	return nil
}

func (m *Memory) DeactivateByToken(_ context.Context, token string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, s := range m.subscribers {
		if s.UnsubscribeToken == token {
			s.IsActive = false
			m.subscribers[id] = s
			return true, nil
		}
	}
	return false, nil
}

func (m *Memory) ListSubscribers(_ context.Context, activeOnly bool) ([]models.Subscriber, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.Subscriber{}
	for _, s := range m.subscribers {
		if activeOnly && !s.IsActive {
			continue
		}
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SubscribedAt.After(out[j].SubscribedAt) })
	return out, nil
}

// Contacts

func (m *Memory) InsertContact(_ context.Context, c *models.Contact) (primitive.ObjectID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *c
	if cp.ID.IsZero() {
		cp.ID = primitive.NewObjectID()
	}
	m.contacts[cp.ID] = cp
	return cp.ID, nil
}

func (m *Memory) ContactByID(_ context.Context, id primitive.ObjectID) (*models.Contact, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.contacts[id]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

func (m *Memory) ListContacts(_ context.Context) ([]models.Contact, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.Contact{}
	for _, c := range m.contacts {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *Memory) UpdateContact(_ context.Context, id primitive.ObjectID, set bson.M) (*models.Contact, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.contacts[id]
	if !ok {
		return nil, nil
	}
	if err := applySet(&c, set); err != nil {
		return nil, err
	}
	m.contacts[id] = c
	return &c, nil
}

func (m *Memory) DeleteContact(_ context.Context, id primitive.ObjectID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.contacts[id]
	delete(m.contacts, id)
	return ok, nil
}

// Email logs

func (m *Memory) InsertEmailLog(_ context.Context, l *models.EmailLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.emailLogs = append(m.emailLogs, *l)
	return nil
}

func (m *Memory) RecentEmailLogs(_ context.Context, limit int64) ([]models.EmailLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.EmailLog, 0, len(m.emailLogs))
	for i := len(m.emailLogs) - 1; i >= 0 && int64(len(out)) < limit; i-- {
		out = append(out, m.emailLogs[i])
	}
	return out, nil
}

// EmailLogs returns every recorded delivery attempt in insertion order.
func (m *Memory) EmailLogs() []models.EmailLog {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.EmailLog(nil), m.emailLogs...)
}

func withUpdatedAt(set bson.M) bson.M {
	out := make(bson.M, len(set)+1)
	for k, v := range set {
		out[k] = v
	}
	out["updatedAt"] = time.Now().UTC()
	return out
}
