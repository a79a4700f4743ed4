package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"live-trivia-service/internal/domain"
	"live-trivia-service/internal/logger"
)

const ensureAttempts = 3

// Identities provisions user records for externally authenticated identities.
type Identities struct {
	users UserStore
	log   *logger.Logger
	now   func() time.Time
}

func NewIdentities(users UserStore, log *logger.Logger) *Identities {
	return &Identities{users: users, log: logger.OrNop(log).With("component", "identities"), now: time.Now}
}

// Ensure makes sure a user row exists for id. An existing row under the same
// email but a different id is treated as stale and migrated onto id. Losing a
// race to a concurrent Ensure is not an error.
func (s *Identities) Ensure(ctx context.Context, id domain.Identity) (domain.User, error) {
	if strings.TrimSpace(id.UserID) == "" {
		return domain.User{}, fmt.Errorf("user id required: %w", domain.ErrInvalidInput)
	}

	var lastErr error
	for attempt := 0; attempt < ensureAttempts; attempt++ {
		user, err := s.users.GetUser(ctx, id.UserID)
		if err == nil {
			return user, nil
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return domain.User{}, err
		}

		canonical := domain.User{
			ID:         id.UserID,
			Email:      strings.TrimSpace(id.Email),
			InGameName: strings.TrimSpace(id.DisplayName),
			CreatedAt:  s.now(),
		}

		created, err := s.create(ctx, canonical)
		if err == nil {
			return created, nil
		}
		if !errors.Is(err, domain.ErrDuplicateKey) {
			return domain.User{}, err
		}
		s.log.Debug("user provisioning raced, re-reading", "user_id", id.UserID, "attempt", attempt+1)
		lastErr = err
	}
	return domain.User{}, fmt.Errorf("ensure user %s: %w", id.UserID, lastErr)
}

func (s *Identities) create(ctx context.Context, canonical domain.User) (domain.User, error) {
	if canonical.Email != "" {
		stale, err := s.users.GetUserByEmail(ctx, canonical.Email)
		switch {
		case err == nil && stale.ID != canonical.ID:
			s.log.Info("migrating user with colliding email", "stale_id", stale.ID, "user_id", canonical.ID)
			if canonical.InGameName == "" {
				canonical.InGameName = stale.InGameName
			}
			if canonical.FullName == "" {
				canonical.FullName = stale.FullName
			}
			return canonical, s.users.MigrateUser(ctx, stale.ID, canonical)
		case err != nil && !errors.Is(err, domain.ErrNotFound):
			return domain.User{}, err
		}
	}
	return canonical, s.users.CreateUser(ctx, canonical)
}
