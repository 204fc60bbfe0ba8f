package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"sort"
	"strings"
	"time"
)

// MinPasswordLength is the shortest password accepted for new accounts.
const MinPasswordLength = 8

// UserRepository captures the persistence operations needed by the user service.
// CreateUser and UpdateUser report ErrAlreadyExists for a taken email and
// DeleteUser reports ErrConflict while the user still owns scheduling data.
type UserRepository interface {
	CreateUser(ctx context.Context, creds UserCredentials) (User, error)
	GetUser(ctx context.Context, id string) (User, error)
	GetUsers(ctx context.Context, ids []string) ([]User, error)
	GetUserByEmail(ctx context.Context, email string) (User, error)
	GetUserCredentials(ctx context.Context, id string) (UserCredentials, error)
	UpdateUser(ctx context.Context, creds UserCredentials) (User, error)
	DeleteUser(ctx context.Context, id string) error
	ListUsers(ctx context.Context) ([]User, error)
}

// PasswordHasher derives a storable hash from a plain password.
type PasswordHasher func(password string) (string, error)

// UserService orchestrates validation, authorization, and persistence for users.
type UserService struct {
	users        UserRepository
	hashPassword PasswordHasher
	idGenerator  func() string
	now          func() time.Time
	logger       *slog.Logger
}

// NewUserService wires dependencies for the user service.
func NewUserService(users UserRepository, hasher PasswordHasher, idGenerator func() string, now func() time.Time) *UserService {
	return NewUserServiceWithLogger(users, hasher, idGenerator, now, nil)
}

// NewUserServiceWithLogger wires dependencies for the user service with a specific logger.
func NewUserServiceWithLogger(users UserRepository, hasher PasswordHasher, idGenerator func() string, now func() time.Time, logger *slog.Logger) *UserService {
	if hasher == nil {
		hasher = Argon2idHasher(DefaultArgon2idParams)
	}
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &UserService{users: users, hashPassword: hasher, idGenerator: idGenerator, now: now, logger: defaultLogger(logger)}
}

func (s *UserService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "UserService", operation, attrs...)
}

// CreateUser validates input and persists a new user for administrators.
func (s *UserService) CreateUser(ctx context.Context, params CreateUserParams) (user User, err error) {
	if s == nil {
		err = fmt.Errorf("UserService is nil")
		return
	}

	logger := s.loggerWith(ctx, "CreateUser", "principal_id", params.Principal.UserID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "user creation failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("user_id", user.ID, "role", user.Role).InfoContext(ctx, "user created")
	}()

	if !params.Principal.IsAdmin() {
		err = ErrUnauthorized
		return
	}
	user, err = s.create(ctx, params.Input)
	return
}

// EnsureUser creates the account described by input unless its email is
// already registered. It is used to bootstrap the first administrator and
// bypasses authorization.
func (s *UserService) EnsureUser(ctx context.Context, input UserInput) (user User, created bool, err error) {
	if s == nil {
		err = fmt.Errorf("UserService is nil")
		return
	}
	if s.users == nil {
		err = fmt.Errorf("user repository not configured")
		return
	}

	normalized := normalizeUserInput(input)
	logger := s.loggerWith(ctx, "EnsureUser", "email", normalized.Email)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "user bootstrap failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("user_id", user.ID, "created", created).InfoContext(ctx, "user bootstrap completed")
	}()

	user, err = s.users.GetUserByEmail(ctx, normalized.Email)
	if err == nil {
		return
	}
	if !errors.Is(err, ErrNotFound) {
		return
	}

	user, err = s.create(ctx, normalized)
	created = err == nil
	return
}

func (s *UserService) create(ctx context.Context, input UserInput) (User, error) {
	normalized := normalizeUserInput(input)
	vErr := validateUserInput(normalized)
	if len(normalized.Password) < MinPasswordLength {
		vErr.add("password", fmt.Sprintf("password must be at least %d characters", MinPasswordLength))
	}
	if vErr.HasErrors() {
		return User{}, vErr
	}

	hash, err := s.hashPassword(normalized.Password)
	if err != nil {
		return User{}, fmt.Errorf("hash password: %w", err)
	}

	user := User{
		ID:          s.idGenerator(),
		Email:       normalized.Email,
		DisplayName: normalized.DisplayName,
		Role:        normalized.Role,
		Disabled:    normalized.Disabled,
		CreatedAt:   s.now(),
	}
	user.UpdatedAt = user.CreatedAt

	if s.users == nil {
		return user, nil
	}

	persisted, err := s.users.CreateUser(ctx, UserCredentials{User: user, PasswordHash: hash, Disabled: user.Disabled})
	if err != nil {
		if errors.Is(err, ErrAlreadyExists) {
			return User{}, describe(ErrAlreadyExists, "a user with this email already exists")
		}
		return User{}, err
	}
	return persisted, nil
}

// GetUser returns a single user for administrators.
func (s *UserService) GetUser(ctx context.Context, principal Principal, userID string) (User, error) {
	if s == nil {
		return User{}, fmt.Errorf("UserService is nil")
	}
	if !principal.IsAdmin() {
		return User{}, ErrUnauthorized
	}
	if s.users == nil {
		return User{}, fmt.Errorf("user repository not configured")
	}
	user, err := s.users.GetUser(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return User{}, describe(ErrNotFound, "user not found")
		}
		return User{}, err
	}
	return user, nil
}

// UpdateUser validates input and updates an existing user for administrators.
func (s *UserService) UpdateUser(ctx context.Context, params UpdateUserParams) (user User, err error) {
	if s == nil {
		err = fmt.Errorf("UserService is nil")
		return
	}

	logger := s.loggerWith(ctx, "UpdateUser", "principal_id", params.Principal.UserID, "user_id", params.UserID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "user update failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "user updated")
	}()

	if !params.Principal.IsAdmin() {
		err = ErrUnauthorized
		return
	}
	if s.users == nil {
		err = fmt.Errorf("user repository not configured")
		return
	}

	var existing UserCredentials
	existing, err = s.users.GetUserCredentials(ctx, params.UserID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			err = describe(ErrNotFound, "user not found")
		}
		return
	}

	normalized := normalizeUserInput(params.Input)
	vErr := validateUserInput(normalized)
	if normalized.Password != "" && len(normalized.Password) < MinPasswordLength {
		vErr.add("password", fmt.Sprintf("password must be at least %d characters", MinPasswordLength))
	}
	if vErr.HasErrors() {
		err = vErr
		return
	}

	updated := existing
	updated.User.Email = normalized.Email
	updated.User.DisplayName = normalized.DisplayName
	updated.User.Role = normalized.Role
	updated.User.Disabled = normalized.Disabled
	updated.User.UpdatedAt = s.now()
	updated.Disabled = normalized.Disabled
	if normalized.Password != "" {
		if updated.PasswordHash, err = s.hashPassword(normalized.Password); err != nil {
			err = fmt.Errorf("hash password: %w", err)
			return
		}
	}

	user, err = s.users.UpdateUser(ctx, updated)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			err = describe(ErrNotFound, "user not found")
		case errors.Is(err, ErrAlreadyExists):
			err = describe(ErrAlreadyExists, "a user with this email already exists")
		}
		return
	}
	return
}

// DeleteUser removes a user when requested by an administrator.
func (s *UserService) DeleteUser(ctx context.Context, principal Principal, userID string) (err error) {
	if s == nil {
		return fmt.Errorf("UserService is nil")
	}

	logger := s.loggerWith(ctx, "DeleteUser", "principal_id", principal.UserID, "user_id", userID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "user deletion failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "user deleted")
	}()

	if !principal.IsAdmin() {
		return ErrUnauthorized
	}
	if principal.UserID == userID {
		return describe(ErrConflict, "administrators cannot delete their own account")
	}
	if s.users == nil {
		return fmt.Errorf("user repository not configured")
	}

	if err = s.users.DeleteUser(ctx, userID); err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			return describe(ErrNotFound, "user not found")
		case errors.Is(err, ErrConflict):
			return describe(ErrConflict, "user still owns schedules, overrides or appointments")
		}
		return err
	}
	return nil
}

// ListUsers returns all users for administrators ordered by email.
func (s *UserService) ListUsers(ctx context.Context, principal Principal) ([]User, error) {
	if s == nil {
		return nil, fmt.Errorf("UserService is nil")
	}
	if !principal.IsAdmin() {
		return nil, ErrUnauthorized
	}
	if s.users == nil {
		return nil, nil
	}

	users, err := s.users.ListUsers(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]User, len(users))
	copy(out, users)

	sort.Slice(out, func(i, j int) bool {
		if strings.EqualFold(out[i].Email, out[j].Email) {
			return out[i].ID < out[j].ID
		}
		return strings.ToLower(out[i].Email) < strings.ToLower(out[j].Email)
	})

	return out, nil
}

func normalizeUserInput(input UserInput) UserInput {
	email := strings.TrimSpace(input.Email)
	email = strings.ToLower(email)

	displayName := strings.TrimSpace(input.DisplayName)
	role := Role(strings.ToLower(strings.TrimSpace(string(input.Role))))
	if role == "" {
		role = RoleCustomer
	}

	return UserInput{
		Email:       email,
		DisplayName: displayName,
		Role:        role,
		Password:    input.Password,
		Disabled:    input.Disabled,
	}
}

func validateUserInput(input UserInput) *ValidationError {
	vErr := &ValidationError{}

	if input.Email == "" {
		vErr.add("email", "email is required")
	} else if _, err := mail.ParseAddress(input.Email); err != nil {
		vErr.add("email", "email is invalid")
	}

	if input.DisplayName == "" {
		vErr.add("display_name", "display name is required")
	}

	if !input.Role.Valid() {
		vErr.add("role", "role must be one of customer, consultant, staff or admin")
	}

	return vErr
}
