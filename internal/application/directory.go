package application

import (
	"context"
	"errors"
	"fmt"
)

// UserLookup is the subset of UserRepository the directory reads from.
type UserLookup interface {
	GetUser(ctx context.Context, id string) (User, error)
	GetUsers(ctx context.Context, ids []string) ([]User, error)
}

// Directory implements UserDirectory over the user repository.
type Directory struct {
	users UserLookup
}

// NewDirectory constructs a Directory.
func NewDirectory(users UserLookup) *Directory {
	return &Directory{users: users}
}

// DisplayName returns the display name of userID.
func (d *Directory) DisplayName(ctx context.Context, userID string) (string, error) {
	if d == nil || d.users == nil {
		return "", fmt.Errorf("user directory not configured")
	}
	user, err := d.users.GetUser(ctx, userID)
	if err != nil {
		return "", err
	}
	return user.DisplayName, nil
}

// DisplayNames resolves several users at once. Unknown IDs are absent from the result.
func (d *Directory) DisplayNames(ctx context.Context, userIDs []string) (map[string]string, error) {
	if d == nil || d.users == nil {
		return nil, fmt.Errorf("user directory not configured")
	}

	seen := make(map[string]struct{}, len(userIDs))
	unique := make([]string, 0, len(userIDs))
	for _, id := range userIDs {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		unique = append(unique, id)
	}

	names := make(map[string]string, len(unique))
	if len(unique) == 0 {
		return names, nil
	}
	users, err := d.users.GetUsers(ctx, unique)
	if err != nil {
		return nil, err
	}
	for _, user := range users {
		names[user.ID] = user.DisplayName
	}
	return names, nil
}

// Consultant returns the user with consultantID when it has the consultant role.
func (d *Directory) Consultant(ctx context.Context, consultantID string) (User, error) {
	if d == nil || d.users == nil {
		return User{}, fmt.Errorf("user directory not configured")
	}
	if consultantID == "" {
		return User{}, describe(ErrNotFound, "consultant not found")
	}
	user, err := d.users.GetUser(ctx, consultantID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return User{}, describe(ErrNotFound, "consultant not found")
		}
		return User{}, err
	}
	if user.Role != RoleConsultant {
		return User{}, describe(ErrNotFound, "consultant not found")
	}
	return user, nil
}
