package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/MohitSaini10/dan-aliph/apperr"
	"github.com/MohitSaini10/dan-aliph/models"
	"github.com/MohitSaini10/dan-aliph/store"
	"github.com/MohitSaini10/dan-aliph/utils"
	"github.com/MohitSaini10/dan-aliph/validate"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"
)

const (
	minPasswordLen = 6
	resetTokenTTL  = 15 * time.Minute
)

// UserService is the user registry: registration, credentials, password
// reset, role transitions and administration.
type UserService struct {
	users    UserStore
	books    BookStore
	sessions *SessionService
	notify   *Dispatcher
	metrics  *Metrics
	siteURL  string
	log      *slog.Logger
	now      func() time.Time
}

func NewUserService(users UserStore, books BookStore, sessions *SessionService, notify *Dispatcher, metrics *Metrics, siteURL string, log *slog.Logger) *UserService {
	return &UserService{
		users:    users,
		books:    books,
		sessions: sessions,
		notify:   notify,
		metrics:  metrics,
		siteURL:  siteURL,
		log:      log,
		now:      time.Now,
	}
}

type RegisterInput struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Password string `json:"password"`
}

// LoginResult carries the session token and its expiry for the cookie.
type LoginResult struct {
	User      *models.User
	Token     string
	ExpiresAt time.Time
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *UserService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = normalizeEmail(in.Email)
	in.Phone = strings.TrimSpace(in.Phone)

	if err := validate.New().
		Required("name", in.Name).
		Required("email", in.Email).
		Email("email", in.Email).
		Phone10("phone", in.Phone).
		MinLen("password", in.Password, minPasswordLen).
		Err(); err != nil {
		return nil, err
	}

	existing, err := s.users.UserByEmail(ctx, in.Email)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if existing != nil {
		return nil, apperr.Conflict("Email already registered")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	now := s.now().UTC()
	user := &models.User{
		Name:         in.Name,
		Email:        in.Email,
		Phone:        in.Phone,
		PasswordHash: string(hash),
		Role:         models.RoleUser,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	id, err := s.users.CreateUser(ctx, user)
	if errors.Is(err, store.ErrDuplicate) {
		return nil, apperr.Conflict("Email already registered")
	}
	if err != nil {
		return nil, apperr.Internal(err)
	}
	user.ID = id
	return user, nil
}

// Login checks the block flag before the password so a blocked account
// always gets the explicit blocked response.
func (s *UserService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, apperr.Validation("Email and password are required")
	}
	user, err := s.users.UserByEmail(ctx, email)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if user == nil {
		return nil, apperr.InvalidCredentials()
	}
	if user.IsBlocked {
		return nil, apperr.AccountBlocked()
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, apperr.InvalidCredentials()
	}
	token, exp, err := s.sessions.Issue(user)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return &LoginResult{User: user, Token: token, ExpiresAt: exp}, nil
}

func (s *UserService) Me(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	return s.mustUser(ctx, id)
}

func (s *UserService) RequestAuthorRole(ctx context.Context, id primitive.ObjectID) error {
	user, err := s.mustUser(ctx, id)
	if err != nil {
		return err
	}
	if user.Role == models.RoleAuthor {
		return apperr.AlreadyAuthor()
	}
	if user.AuthorRequest {
		return apperr.RequestPending()
	}
	_, err = s.update(ctx, id, bson.M{"authorRequest": true})
	return err
}

// ApproveAuthor is idempotent.
func (s *UserService) ApproveAuthor(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	u, err := s.update(ctx, id, bson.M{"role": models.RoleAuthor, "authorRequest": false})
	if err == nil {
		s.count("approve_author")
	}
	return u, err
}

// RejectAuthorRequest clears a pending request without touching the role.
func (s *UserService) RejectAuthorRequest(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	u, err := s.update(ctx, id, bson.M{"authorRequest": false})
	if err == nil {
		s.count("reject_author")
	}
	return u, err
}

func (s *UserService) ListAuthorRequests(ctx context.Context) ([]models.User, error) {
	users, err := s.users.ListUsers(ctx, store.UserFilter{AuthorRequested: true})
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return users, nil
}

// ListUsers returns every non-admin account.
func (s *UserService) ListUsers(ctx context.Context) ([]models.User, error) {
	users, err := s.users.ListUsers(ctx, store.UserFilter{ExcludeAdmins: true})
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return users, nil
}

func (s *UserService) SetRole(ctx context.Context, actor, target primitive.ObjectID, role string) (*models.User, error) {
	if err := forbidSelf(actor, target, "change your own role"); err != nil {
		return nil, err
	}
	role = strings.TrimSpace(role)
	if err := validate.New().OneOf("role", role, models.ValidRoles...).Err(); err != nil {
		return nil, err
	}
	set := bson.M{"role": role}
	if role == models.RoleAuthor {
		set["authorRequest"] = false
	}
	return s.update(ctx, target, set)
}

func (s *UserService) SetBlocked(ctx context.Context, actor, target primitive.ObjectID, blocked bool) (*models.User, error) {
	if err := forbidSelf(actor, target, "block yourself"); err != nil {
		return nil, err
	}
	return s.update(ctx, target, bson.M{"isBlocked": blocked})
}

// EditProfile changes name and email of another account. The new email is
// normalized and must stay unique.
func (s *UserService) EditProfile(ctx context.Context, actor, target primitive.ObjectID, name, email string) (*models.User, error) {
	name = strings.TrimSpace(name)
	email = normalizeEmail(email)
	if err := validate.New().
		Required("name", name).
		Required("email", email).
		Email("email", email).
		Err(); err != nil {
		return nil, err
	}
	other, err := s.users.UserByEmail(ctx, email)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if other != nil && other.ID != target {
		return nil, apperr.Conflict("Email already in use")
	}
	return s.update(ctx, target, bson.M{"name": name, "email": email})
}

func (s *UserService) DeleteUser(ctx context.Context, actor, target primitive.ObjectID) error {
	if err := forbidSelf(actor, target, "delete your own account"); err != nil {
		return err
	}
	ok, err := s.users.DeleteUser(ctx, target)
	if err != nil {
		return apperr.Internal(err)
	}
	if !ok {
		return apperr.NotFound("User")
	}
	return nil
}

// SetProfileImage is limited to accounts whose stored role is author.
func (s *UserService) SetProfileImage(ctx context.Context, id primitive.ObjectID, imageURL string) (*models.User, error) {
	imageURL = strings.TrimSpace(imageURL)
	if err := validate.New().Required("imageUrl", imageURL).URL("imageUrl", imageURL).Err(); err != nil {
		return nil, err
	}
	user, err := s.mustUser(ctx, id)
	if err != nil {
		return nil, err
	}
	if user.Role != models.RoleAuthor {
		return nil, apperr.Forbidden("Only authors can set a profile image")
	}
	return s.update(ctx, id, bson.M{"profileImage": imageURL})
}

// InitiatePasswordReset never reveals whether the email is registered.
func (s *UserService) InitiatePasswordReset(ctx context.Context, email string) error {
	email = normalizeEmail(email)
	if email == "" {
		return apperr.Validation("Email is required")
	}
	user, err := s.users.UserByEmail(ctx, email)
	if err != nil {
		return apperr.Internal(err)
	}
	if user == nil {
		return nil
	}
	token, err := utils.RandomToken(32)
	if err != nil {
		return apperr.Internal(err)
	}
	if err := s.users.SetResetToken(ctx, user.ID, utils.HashToken(token), s.now().UTC().Add(resetTokenTTL)); err != nil {
		return apperr.Internal(err)
	}
	s.notify.Dispatch(models.EventPasswordReset, user.ID.Hex(), passwordResetEmail(s.siteURL, user, token))
	return nil
}

func (s *UserService) CompletePasswordReset(ctx context.Context, token, newPassword string) error {
	if err := validate.New().
		Required("token", token).
		MinLen("newPassword", newPassword, minPasswordLen).
		Err(); err != nil {
		return err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return apperr.Internal(err)
	}
	ok, err := s.users.ConsumeResetToken(ctx, utils.HashToken(token), s.now().UTC(), string(hash))
	if err != nil {
		return apperr.Internal(err)
	}
	if !ok {
		return apperr.InvalidOrExpiredToken()
	}
	return nil
}

func (s *UserService) Stats(ctx context.Context) (*models.SiteStats, error) {
	users, err := s.users.CountUsers(ctx, "")
	if err != nil {
		return nil, apperr.Internal(err)
	}
	authors, err := s.users.CountUsers(ctx, models.RoleAuthor)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	books, err := s.books.CountBooks(ctx, models.BookFilter{})
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return &models.SiteStats{TotalUsers: users, TotalAuthors: authors, TotalBooks: books}, nil
}

// EnsureAdmin creates an admin account unless the email is already
// registered. It reports whether a user was created.
func (s *UserService) EnsureAdmin(ctx context.Context, name, email, password string) (*models.User, bool, error) {
	email = normalizeEmail(email)
	if err := validate.New().
		Required("email", email).
		Email("email", email).
		MinLen("password", password, minPasswordLen).
		Err(); err != nil {
		return nil, false, err
	}
	existing, err := s.users.UserByEmail(ctx, email)
	if err != nil {
		return nil, false, err
	}
	if existing != nil {
		return existing, false, nil
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, false, err
	}
	if strings.TrimSpace(name) == "" {
		name = "Admin"
	}
	now := s.now().UTC()
	u := &models.User{
		Name:         strings.TrimSpace(name),
		Email:        email,
		PasswordHash: string(hash),
		Role:         models.RoleAdmin,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	id, err := s.users.CreateUser(ctx, u)
	if err != nil {
		return nil, false, fmt.Errorf("create admin: %w", err)
	}
	u.ID = id
	return u, true, nil
}

func (s *UserService) mustUser(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	user, err := s.users.UserByID(ctx, id)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if user == nil {
		return nil, apperr.NotFound("User")
	}
	return user, nil
}

func (s *UserService) update(ctx context.Context, id primitive.ObjectID, set bson.M) (*models.User, error) {
	user, err := s.users.UpdateUser(ctx, id, set)
	if errors.Is(err, store.ErrDuplicate) {
		return nil, apperr.Conflict("Email already in use")
	}
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if user == nil {
		return nil, apperr.NotFound("User")
	}
	return user, nil
}

func (s *UserService) count(transition string) {
	if s.metrics != nil {
		s.metrics.Transitions.WithLabelValues(transition).Inc()
	}
}

// forbidSelf rejects destructive admin actions aimed at the acting account.
func forbidSelf(actor, target primitive.ObjectID, action string) error {
	if actor == target {
		return apperr.Forbidden("You cannot " + action)
	}
	return nil
}
