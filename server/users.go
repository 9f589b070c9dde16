package main

import (
	"context"
	"fmt"
)

// Users manages the recipients of notifications. Users arrive through the
// transport already identified by id; there is no password surface here.
type Users struct {
	store Storage
}

func NewUsers(store Storage) *Users { return &Users{store: store} }

// GetOrCreate returns the user, creating one with defaults on first
// contact and refreshing the display fields when they changed upstream.
func (u *Users) GetOrCreate(ctx context.Context, userID int64, username, firstName string) (User, error) {
	users, err := u.store.Users(ctx)
	if err != nil {
		return User{}, err
	}
	for i, usr := range users {
		if usr.UserID != userID {
			continue
		}
		changed := false
		if username != "" && usr.Username != username {
			users[i].Username = username
			changed = true
		}
		if firstName != "" && usr.FirstName != firstName {
			users[i].FirstName = firstName
			changed = true
		}
		if changed {
			if err := u.store.SaveUsers(ctx, users); err != nil {
				return User{}, err
			}
		}
		return users[i], nil
	}
	usr := User{
		UserID:               userID,
		Username:             username,
		FirstName:            firstName,
		Role:                 RoleUser,
		NotificationsEnabled: true,
		NotificationInterval: 30,
	}
	users = append(users, usr)
	if err := u.store.SaveUsers(ctx, users); err != nil {
		return User{}, err
	}
	return usr, nil
}

func (u *Users) ByID(ctx context.Context, userID int64) (User, error) {
	users, err := u.store.Users(ctx)
	if err != nil {
		return User{}, err
	}
	for _, usr := range users {
		if usr.UserID == userID {
			return usr, nil
		}
	}
	return User{}, fmt.Errorf("user %d: %w", userID, ErrNotFound)
}

func (u *Users) All(ctx context.Context) ([]User, error) {
	return u.store.Users(ctx)
}

func (u *Users) SetRole(ctx context.Context, userID int64, role Role) (User, error) {
	switch role {
	case RoleAdmin, RoleProducer, RoleDesigner, RoleUser:
	default:
		return User{}, fmt.Errorf("role %q: %w", role, ErrValidation)
	}
	return u.update(ctx, userID, func(usr *User) { usr.Role = role })
}

// SetNotifications updates the delivery preferences. Nil fields are left
// untouched; the interval must come from the allowed set.
func (u *Users) SetNotifications(ctx context.Context, userID int64, enabled *bool, interval *int) (User, error) {
	if interval != nil && !validInterval(*interval) {
		return User{}, fmt.Errorf("notification interval %d: %w", *interval, ErrValidation)
	}
	return u.update(ctx, userID, func(usr *User) {
		if enabled != nil {
			usr.NotificationsEnabled = *enabled
		}
		if interval != nil {
			usr.NotificationInterval = *interval
		}
	})
}

func (u *Users) update(ctx context.Context, userID int64, apply func(*User)) (User, error) {
	users, err := u.store.Users(ctx)
	if err != nil {
		return User{}, err
	}
	for i := range users {
		if users[i].UserID == userID {
			apply(&users[i])
			if err := u.store.SaveUsers(ctx, users); err != nil {
				return User{}, err
			}
			return users[i], nil
		}
	}
	return User{}, fmt.Errorf("user %d: %w", userID, ErrNotFound)
}
