// Package identity implements signup, login and credential management.
package identity

import (
	"context"
	stderrors "errors"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/egov-platform/citizen-services/internal/app/auth"
	"github.com/egov-platform/citizen-services/internal/app/domain/identity"
	"github.com/egov-platform/citizen-services/internal/app/storage"
	"github.com/egov-platform/citizen-services/internal/errors"
	"github.com/egov-platform/citizen-services/pkg/logger"
)

// Service manages portal accounts and token issuance.
type Service struct {
	users  storage.UserStore
	tokens *auth.Manager
	log    *logger.Logger
}

// New constructs the identity service.
func New(users storage.UserStore, tokens *auth.Manager, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("identity")
	}
	return &Service{users: users, tokens: tokens, log: log}
}

// Signup registers a user and issues the first token pair.
func (s *Service) Signup(ctx context.Context, username, email, password string) (identity.User, identity.TokenPair, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return identity.User{}, identity.TokenPair{}, errors.Validation("username and password are required")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return identity.User{}, identity.TokenPair{}, errors.Internal("failed to hash password", err)
	}

	user, err := s.users.CreateUser(ctx, identity.User{
		Username:     username,
		Email:        strings.TrimSpace(email),
		PasswordHash: string(hash),
	})
	if err != nil {
		if stderrors.Is(err, storage.ErrDuplicate) {
			return identity.User{}, identity.TokenPair{}, errors.Conflict("username already taken")
		}
		return identity.User{}, identity.TokenPair{}, errors.Internal("failed to create user", err)
	}

	pair, err := s.tokens.IssuePair(user)
	if err != nil {
		return identity.User{}, identity.TokenPair{}, err
	}

	s.log.WithField("user_id", user.ID).Info("user registered")
	return user, pair, nil
}

// Login verifies credentials and issues a token pair.
func (s *Service) Login(ctx context.Context, username, password string) (identity.User, identity.TokenPair, error) {
	user, err := s.users.GetUserByUsername(ctx, username)
	if err != nil {
		if stderrors.Is(err, storage.ErrNotFound) {
			return identity.User{}, identity.TokenPair{}, errors.Unauthorized("invalid credentials")
		}
		return identity.User{}, identity.TokenPair{}, errors.Internal("failed to load user", err)
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return identity.User{}, identity.TokenPair{}, errors.Unauthorized("invalid credentials")
	}

	pair, err := s.tokens.IssuePair(user)
	if err != nil {
		return identity.User{}, identity.TokenPair{}, err
	}
	return user, pair, nil
}

// Refresh reissues a token pair for an already-authenticated caller.
func (s *Service) Refresh(ctx context.Context, userID string) (identity.User, identity.TokenPair, error) {
	user, err := s.users.GetUser(ctx, userID)
	if err != nil {
		if stderrors.Is(err, storage.ErrNotFound) {
			return identity.User{}, identity.TokenPair{}, errors.Unauthorized("account no longer exists")
		}
		return identity.User{}, identity.TokenPair{}, errors.Internal("failed to load user", err)
	}

	pair, err := s.tokens.IssuePair(user)
	if err != nil {
		return identity.User{}, identity.TokenPair{}, err
	}
	return user, pair, nil
}

// ChangePassword swaps the credential after verifying the old one, then
// revokes every previously issued token.
func (s *Service) ChangePassword(ctx context.Context, userID, oldPassword, newPassword string) error {
	if newPassword == "" {
		return errors.Validation("new password is required")
	}

	user, err := s.users.GetUser(ctx, userID)
	if err != nil {
		if stderrors.Is(err, storage.ErrNotFound) {
			return errors.Unauthorized("account no longer exists")
		}
		return errors.Internal("failed to load user", err)
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(oldPassword)) != nil {
		return errors.Validation("old password does not match")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return errors.Internal("failed to hash password", err)
	}
	user.PasswordHash = string(hash)

	if _, err := s.users.UpdateUser(ctx, user); err != nil {
		return errors.Internal("failed to update user", err)
	}

	if err := s.tokens.Revoke(ctx, userID); err != nil {
		return err
	}

	s.log.WithField("user_id", userID).Info("password changed, prior tokens revoked")
	return nil
}

// Delete removes the account. The store cascades to the user's requests,
// appointments, fines, documents and payment instrument.
func (s *Service) Delete(ctx context.Context, userID string) error {
	if err := s.users.DeleteUser(ctx, userID); err != nil {
		if stderrors.Is(err, storage.ErrNotFound) {
			return errors.NotFound("user")
		}
		return errors.Internal("failed to delete user", err)
	}
	s.log.WithField("user_id", userID).Info("user deleted")
	return nil
}
