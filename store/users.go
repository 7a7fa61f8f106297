package store

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"Bt1QSocial/model"
)

// GetAllUsers returns every user with derived counters.
func (s *Store) GetAllUsers(ctx context.Context) []model.User {
	var out []model.User
	s.read(ctx, func(db *model.Snapshot) {
		out = userViews(db, db.Users)
	})
	return out
}

// conflictingUser returns the first user other than exceptID whose email
// or username equals the given ones, ignoring case.
func conflictingUser(db *model.Snapshot, email, username, exceptID string) (model.User, string, bool) {
	for _, u := range db.Users {
		if u.ID == exceptID {
			continue
		}
		if email != "" && strings.EqualFold(u.Email, email) {
			return u, "email", true
		}
		if username != "" && strings.EqualFold(u.Username, username) {
			return u, "username", true
		}
	}
	return model.User{}, "", false
}

// CreateUser adds a user. Email and username must be unique ignoring case;
// a collision returns ErrDuplicateEntity and leaves the collection untouched.
func (s *Store) CreateUser(ctx context.Context, in model.UserInput) (*model.User, error) {
	email := strings.TrimSpace(in.Email)
	username := strings.TrimSpace(in.Username)
	if email == "" || username == "" {
		return nil, fmt.Errorf("%w: user requires email and username", ErrValidation)
	}

	var created model.User
	err := s.mutate(ctx, func(db *model.Snapshot, now time.Time) (bool, error) {
		if _, field, dup := conflictingUser(db, email, username, ""); dup {
			return false, fmt.Errorf("%w: user with this %s already exists", ErrDuplicateEntity, field)
		}

		u := model.User{
			ID:             newID(idPrefixUser, now),
			Username:       username,
			Email:          email,
			DisplayName:    in.DisplayName,
			Bio:            in.Bio,
			Website:        in.Website,
			Avatar:         in.Avatar,
			PaymentMethods: slices.Clone(in.PaymentMethods),
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		if u.PaymentMethods == nil {
			u.PaymentMethods = []model.PaymentMethod{}
		}
		db.Users = append(db.Users, u)
		created = userView(db, u)
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	return &created, nil
}

// UpdateUser merges patch into the user. It returns nil, nil when id is unknown.
func (s *Store) UpdateUser(ctx context.Context, id string, patch model.UserPatch) (*model.User, error) {
	var updated *model.User
	err := s.mutate(ctx, func(db *model.Snapshot, now time.Time) (bool, error) {
		i := slices.IndexFunc(db.Users, func(u model.User) bool { return u.ID == id })
		if i < 0 {
			return false, nil
		}

		next := db.Users[i].Clone()
		patch.Apply(&next)
		next.Email = strings.TrimSpace(next.Email)
		next.Username = strings.TrimSpace(next.Username)
		if next.Email == "" || next.Username == "" {
			return false, fmt.Errorf("%w: user requires email and username", ErrValidation)
		}
		if _, field, dup := conflictingUser(db, next.Email, next.Username, id); dup {
			return false, fmt.Errorf("%w: user with this %s already exists", ErrDuplicateEntity, field)
		}

		next.UpdatedAt = now
		db.Users[i] = next
		v := userView(db, next)
		updated = &v
		return true, nil
	})
	return updated, err
}

func (s *Store) findUser(ctx context.Context, match func(model.User) bool) *model.User {
	var out *model.User
	s.read(ctx, func(db *model.Snapshot) {
		if i := slices.IndexFunc(db.Users, match); i >= 0 {
			v := userView(db, db.Users[i])
			out = &v
		}
	})
	return out
}

// GetUserByEmail 按邮箱查找（忽略大小写），不存在返回 nil
func (s *Store) GetUserByEmail(ctx context.Context, email string) *model.User {
	email = strings.TrimSpace(email)
	return s.findUser(ctx, func(u model.User) bool { return strings.EqualFold(u.Email, email) })
}

func (s *Store) GetUserByID(ctx context.Context, id string) *model.User {
	return s.findUser(ctx, func(u model.User) bool { return u.ID == id })
}

// GetUserByUsername 按用户名查找（忽略大小写）
func (s *Store) GetUserByUsername(ctx context.Context, username string) *model.User {
	username = strings.TrimSpace(username)
	return s.findUser(ctx, func(u model.User) bool { return strings.EqualFold(u.Username, username) })
}

// SearchUsers matches q as a case-insensitive substring of username,
// display name, email or bio. An empty query returns every user.
func (s *Store) SearchUsers(ctx context.Context, q string) []model.User {
	q = strings.ToLower(strings.TrimSpace(q))
	var out []model.User
	s.read(ctx, func(db *model.Snapshot) {
		var hits []model.User
		for _, u := range db.Users {
			if q == "" ||
				strings.Contains(strings.ToLower(u.Username), q) ||
				strings.Contains(strings.ToLower(u.DisplayName), q) ||
				strings.Contains(strings.ToLower(u.Email), q) ||
				strings.Contains(strings.ToLower(u.Bio), q) {
				hits = append(hits, u)
			}
		}
		out = userViews(db, hits)
	})
	return out
}
