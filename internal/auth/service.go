package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/in-nis/classdash/internal/db"
	"github.com/in-nis/classdash/internal/models"
)

type UserStore interface {
	CreateUser(ctx context.Context, u *models.User) error
	UpdateUser(ctx context.Context, u *models.User) error
	// UserByEmail fails with db.ErrNotFound when no row matches.
	UserByEmail(ctx context.Context, email string) (*models.User, error)
	// RevokeToken reports whether this call revoked the jti.
	RevokeToken(ctx context.Context, tokenID string, expiresAt time.Time) (bool, error)
	IsTokenRevoked(ctx context.Context, tokenID string) (bool, error)
}

type Profile struct {
	FirstName string
	LastName  string
	// Role may be empty, in which case it is derived from the email domain.
	Role string
}

type Service struct {
	users          UserStore
	tokens         *Tokens
	holder         *Holder
	log            *zap.Logger
	teacherDomains []string
}

func NewService(users UserStore, tokens *Tokens, holder *Holder, log *zap.Logger, teacherDomains []string) *Service {
	return &Service{
		users:          users,
		tokens:         tokens,
		holder:         holder,
		log:            log,
		teacherDomains: teacherDomains,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// RoleForEmail returns teacher for addresses under a configured teacher domain.
func (s *Service) RoleForEmail(email string) string {
	at := strings.LastIndexByte(email, '@')
	if at < 0 {
		return models.RoleStudent
	}
	domain := strings.ToLower(email[at+1:])
	for _, d := range s.teacherDomains {
		if domain == d || strings.HasSuffix(domain, "."+d) {
			return models.RoleTeacher
		}
	}
	return models.RoleStudent
}

func (s *Service) newSession(u *models.User) (*Session, error) {
	pair, err := s.tokens.Issue(u)
	if err != nil {
		return nil, err
	}
	return &Session{
		UserID:       u.ID,
		Email:        u.Email,
		Role:         u.Role,
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		ExpiresAt:    pair.AccessExpiresAt,
		tokenID:      pair.accessID,
	}, nil
}

func (s *Service) SignUp(ctx context.Context, email, password string, p Profile) (*Session, error) {
	const op = "sign up"
	email = normalizeEmail(email)

	role := p.Role
	if role == "" {
		role = s.RoleForEmail(email)
	}
	if role != models.RoleStudent && role != models.RoleTeacher {
		return nil, authErr(op, ErrInvalidRole)
	}

	hash, err := HashPassword(password)
	if err != nil {
		return nil, authErr(op, err)
	}

	u := &models.User{
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		FirstName:    strings.TrimSpace(p.FirstName),
		LastName:     strings.TrimSpace(p.LastName),
	}
	if err := s.users.CreateUser(ctx, u); err != nil {
		if errors.Is(err, db.ErrUniqueViolation) {
			return nil, authErr(op, ErrEmailTaken)
		}
		return nil, authErr(op, err)
	}

	sess, err := s.newSession(u)
	if err != nil {
		return nil, authErr(op, err)
	}
	s.log.Info("user signed up", zap.Uint("user_id", u.ID), zap.String("role", u.Role))
	s.holder.Publish(EventSignedIn, sess)
	return sess, nil
}

func (s *Service) SignIn(ctx context.Context, email, password string) (*Session, error) {
	const op = "sign in"

	u, err := s.users.UserByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, authErr(op, ErrInvalidCredentials)
		}
		return nil, authErr(op, err)
	}
	if u.PasswordHash == "" || !CheckPassword(u.PasswordHash, password) {
		return nil, authErr(op, ErrInvalidCredentials)
	}

	sess, err := s.newSession(u)
	if err != nil {
		return nil, authErr(op, err)
	}
	s.holder.Publish(EventSignedIn, sess)
	return sess, nil
}

// SignOut revokes the session's access token and, when given, its refresh token.
func (s *Service) SignOut(ctx context.Context, sess *Session, refreshToken string) error {
	const op = "sign out"

	if sess == nil || sess.tokenID == "" {
		return authErr(op, ErrInvalidToken)
	}
	if _, err := s.users.RevokeToken(ctx, sess.tokenID, sess.ExpiresAt); err != nil {
		return authErr(op, err)
	}
	if refreshToken != "" {
		claims, err := s.tokens.Parse(refreshToken, TokenRefresh)
		if err != nil {
			return authErr(op, err)
		}
		if _, err := s.users.RevokeToken(ctx, claims.ID, claims.ExpiresAt.Time); err != nil {
			return authErr(op, err)
		}
	}

	s.log.Info("user signed out", zap.Uint("user_id", sess.UserID))
	s.holder.Publish(EventSignedOut, nil)
	return nil
}

// Refresh exchanges a refresh token for a new token pair. The old refresh
// token is revoked so it cannot be replayed.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*Session, error) {
	const op = "refresh"

	claims, err := s.tokens.Parse(refreshToken, TokenRefresh)
	if err != nil {
		return nil, authErr(op, err)
	}
	// Revoking first makes the refresh token single use: a concurrent
	// refresh with the same token finds the jti taken and fails.
	inserted, err := s.users.RevokeToken(ctx, claims.ID, claims.ExpiresAt.Time)
	if err != nil {
		return nil, authErr(op, err)
	}
	if !inserted {
		return nil, authErr(op, ErrTokenRevoked)
	}

	u, err := s.users.UserByEmail(ctx, claims.Email)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, authErr(op, ErrInvalidToken)
		}
		return nil, authErr(op, err)
	}

	sess, err := s.newSession(u)
	if err != nil {
		return nil, authErr(op, err)
	}
	s.holder.Publish(EventTokenRefreshed, sess)
	return sess, nil
}

// ResolveSession verifies an access token and returns who is calling.
func (s *Service) ResolveSession(ctx context.Context, accessToken string) (*Session, error) {
	const op = "resolve session"

	claims, err := s.tokens.Parse(accessToken, TokenAccess)
	if err != nil {
		return nil, authErr(op, err)
	}
	userID, err := claims.UserID()
	if err != nil {
		return nil, authErr(op, err)
	}
	revoked, err := s.users.IsTokenRevoked(ctx, claims.ID)
	if err != nil {
		return nil, authErr(op, err)
	}
	if revoked {
		return nil, authErr(op, ErrTokenRevoked)
	}

	return &Session{
		UserID:    userID,
		Email:     claims.Email,
		Role:      claims.Role,
		ExpiresAt: claims.ExpiresAt.Time,
		tokenID:   claims.ID,
	}, nil
}

// SignInWithGoogle creates the user on first login and refreshes the stored
// name on later logins.
func (s *Service) SignInWithGoogle(ctx context.Context, gu *GoogleUser) (*Session, error) {
	const op = "google sign in"

	email := normalizeEmail(gu.Email)
	if email == "" {
		return nil, authErr(op, ErrNoEmail)
	}
	first, last := gu.names()

	u, err := s.users.UserByEmail(ctx, email)
	updated := false
	switch {
	case errors.Is(err, db.ErrNotFound):
		u = &models.User{
			Email:     email,
			Role:      s.RoleForEmail(email),
			FirstName: first,
			LastName:  last,
			GoogleID:  gu.ID,
		}
		if err := s.users.CreateUser(ctx, u); err != nil {
			return nil, authErr(op, err)
		}
		s.log.Info("user created from google", zap.Uint("user_id", u.ID), zap.String("role", u.Role))
	case err != nil:
		return nil, authErr(op, err)
	default:
		if first != "" && first != u.FirstName {
			u.FirstName, updated = first, true
		}
		if last != "" && last != u.LastName {
			u.LastName, updated = last, true
		}
		if gu.ID != "" && gu.ID != u.GoogleID {
			u.GoogleID, updated = gu.ID, true
		}
		if updated {
			if err := s.users.UpdateUser(ctx, u); err != nil {
				return nil, authErr(op, err)
			}
		}
	}

	sess, err := s.newSession(u)
	if err != nil {
		return nil, authErr(op, err)
	}
	s.holder.Publish(EventSignedIn, sess)
	if updated {
		s.holder.Publish(EventUserUpdated, sess)
	}
	return sess, nil
}
