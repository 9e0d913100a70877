/*
users.go - User lifecycle and the login counters

PURPOSE:
  Registration with email uniqueness, profile updates, soft delete, and
  the per-user failed-login counter the auth collaborator drives. Email
  uniqueness is enforced by a secondary-index lookup plus a conditional
  create, not by any store-level constraint: the index is keyed
  EMAIL#{email} so one query answers "is this address taken".

LOCKOUT:
  Failed logins increment failed_login_attempts with the same additive
  discipline as balances. Crossing FailedLoginThreshold deactivates the
  user. A successful login resets the counter and stamps last_login_at.

SEE ALSO:
  - entity/codec.go: user key layout
  - auth/: hashes passwords and verifies them; never touches the store
*/
package ledger

import (
	"context"
	"errors"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/warp/finance-ledger/entity"
	"github.com/warp/finance-ledger/kv"
)

// =============================================================================
// INPUTS
// =============================================================================

type RegisterUserInput struct {
	Email        string
	Name         string
	Currency     string
	PasswordHash string
}

// UpdateUserInput carries partial profile edits; nil means leave unchanged.
type UpdateUserInput struct {
	Name     *string
	Currency *string
}

// =============================================================================
// OPERATIONS
// =============================================================================

// RegisterUser creates a new active user. The email is normalized to
// lowercase and must not already be registered.
func (l *Ledger) RegisterUser(ctx context.Context, in RegisterUserInput) (entity.User, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))

	// Index check first for a clean error; the conditional create below
	// still guards the id itself.
	existing, err := l.store.QueryIndex(ctx, kv.GSI1, entity.EmailKey(email))
	if err != nil {
		return entity.User{}, storeErr("user", email, err)
	}
	if len(existing) > 0 {
		return entity.User{}, &AlreadyExistsError{Kind: "user", Key: email}
	}

	now := l.now()
	u := entity.User{
		UserID:       entity.NewUserID(),
		Email:        email,
		Name:         in.Name,
		Currency:     in.Currency,
		PasswordHash: in.PasswordHash,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := l.store.Put(ctx, entity.UserToItem(u), kv.MustNotExist()); err != nil {
		if errors.Is(err, kv.ErrConditionFailed) {
			return entity.User{}, &AlreadyExistsError{Kind: "user", Key: u.UserID}
		}
		return entity.User{}, storeErr("user", u.UserID, err)
	}
	return u, nil
}

func (l *Ledger) GetUser(ctx context.Context, userID string) (entity.User, error) {
	item, err := l.store.Get(ctx, entity.UserPK(userID), entity.SortKeyMetadata)
	if err != nil {
		return entity.User{}, storeErr("user", userID, err)
	}
	u, err := entity.UserFromItem(item)
	if err != nil {
		return entity.User{}, storeErr("user", userID, err)
	}
	return u, nil
}

// GetUserByEmail resolves a user through the email index.
func (l *Ledger) GetUserByEmail(ctx context.Context, email string) (entity.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	items, err := l.store.QueryIndex(ctx, kv.GSI1, entity.EmailKey(email))
	if err != nil {
		return entity.User{}, storeErr("user", email, err)
	}
	for _, item := range items {
		if item.EntityType != entity.TypeUser {
			continue
		}
		if u, err := entity.UserFromItem(item); err == nil {
			return u, nil
		}
	}
	return entity.User{}, &NotFoundError{Kind: "user", ID: email}
}

// UpdateUser applies partial profile edits. Email and password are not
// editable through this path.
func (l *Ledger) UpdateUser(ctx context.Context, userID string, in UpdateUserInput) (entity.User, error) {
	set := map[string]any{"updated_at": l.now()}
	if in.Name != nil {
		set["name"] = *in.Name
	}
	if in.Currency != nil {
		set["currency"] = *in.Currency
	}

	item, err := l.store.Update(ctx, entity.UserPK(userID), entity.SortKeyMetadata,
		kv.Update{Set: set}, kv.MustExist())
	if err != nil {
		if errors.Is(err, kv.ErrConditionFailed) || errors.Is(err, kv.ErrItemNotFound) {
			return entity.User{}, &NotFoundError{Kind: "user", ID: userID}
		}
		return entity.User{}, storeErr("user", userID, err)
	}
	u, err := entity.UserFromItem(item)
	if err != nil {
		return entity.User{}, storeErr("user", userID, err)
	}
	return u, nil
}

// DeactivateUser soft-deletes a user. The record stays; is_active flips.
func (l *Ledger) DeactivateUser(ctx context.Context, userID string) error {
	_, err := l.store.Update(ctx, entity.UserPK(userID), entity.SortKeyMetadata,
		kv.Update{Set: map[string]any{"is_active": false, "updated_at": l.now()}},
		kv.MustExist())
	if err != nil {
		if errors.Is(err, kv.ErrConditionFailed) || errors.Is(err, kv.ErrItemNotFound) {
			return &NotFoundError{Kind: "user", ID: userID}
		}
		return storeErr("user", userID, err)
	}
	return nil
}

// =============================================================================
// LOGIN COUNTERS (driven by the auth collaborator)
// =============================================================================

// RecordFailedLogin increments the failed-login counter additively and
// deactivates the user once the threshold is reached. Returns the new
// attempt count.
func (l *Ledger) RecordFailedLogin(ctx context.Context, userID string) (int, error) {
	item, err := l.store.Update(ctx, entity.UserPK(userID), entity.SortKeyMetadata,
		kv.Update{
			Add: map[string]decimal.Decimal{"failed_login_attempts": decimal.NewFromInt(1)},
			Set: map[string]any{"updated_at": l.now()},
		},
		kv.MustExist())
	if err != nil {
		if errors.Is(err, kv.ErrConditionFailed) || errors.Is(err, kv.ErrItemNotFound) {
			return 0, &NotFoundError{Kind: "user", ID: userID}
		}
		return 0, storeErr("user", userID, err)
	}

	attempts := 0
	if n, ok := kv.AsDecimal(item.Attrs["failed_login_attempts"]); ok {
		attempts = int(n.IntPart())
	}
	if attempts >= FailedLoginThreshold {
		if _, err := l.store.Update(ctx, entity.UserPK(userID), entity.SortKeyMetadata,
			kv.Update{Set: map[string]any{"is_active": false, "updated_at": l.now()}},
			kv.MustExist()); err != nil {
			return attempts, storeErr("user", userID, err)
		}
	}
	return attempts, nil
}

// RecordSuccessfulLogin resets the failed-login counter and stamps
// last_login_at.
func (l *Ledger) RecordSuccessfulLogin(ctx context.Context, userID string) error {
	now := l.now()
	_, err := l.store.Update(ctx, entity.UserPK(userID), entity.SortKeyMetadata,
		kv.Update{Set: map[string]any{
			"failed_login_attempts": decimal.Zero,
			"last_login_at":         now,
			"updated_at":            now,
		}},
		kv.MustExist())
	if err != nil {
		if errors.Is(err, kv.ErrConditionFailed) || errors.Is(err, kv.ErrItemNotFound) {
			return &NotFoundError{Kind: "user", ID: userID}
		}
		return storeErr("user", userID, err)
	}
	return nil
}
