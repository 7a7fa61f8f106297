package model

import (
	"slices"
	"time"
)

// PaymentMethod 用户收款方式（打赏、合作结算用）
type PaymentMethod struct {
	Type      string `json:"type"` // paypal, venmo, cashapp, bank
	Handle    string `json:"handle"`
	IsDefault bool   `json:"isDefault,omitempty"`
}

// User represents a user in the system.
// FollowersCount, FollowingCount and TracksCount are derived by the store
// from the follows and tracks collections whenever a User is read.
type User struct {
	ID             string          `json:"id"`
	Username       string          `json:"username"`
	Email          string          `json:"email"`
	DisplayName    string          `json:"displayName,omitempty"`
	Bio            string          `json:"bio"`
	Website        string          `json:"website"`
	Avatar         string          `json:"avatar,omitempty"`
	PaymentMethods []PaymentMethod `json:"paymentMethods"`
	FollowersCount int             `json:"followersCount"`
	FollowingCount int             `json:"followingCount"`
	TracksCount    int             `json:"tracksCount"`
	CreatedAt      time.Time       `json:"createdAt"`
	UpdatedAt      time.Time       `json:"updatedAt"`
}

// UserInput carries the caller-supplied fields of a new User.
type UserInput struct {
	Username       string          `json:"username"`
	Email          string          `json:"email"`
	DisplayName    string          `json:"displayName,omitempty"`
	Bio            string          `json:"bio"`
	Website        string          `json:"website"`
	Avatar         string          `json:"avatar,omitempty"`
	PaymentMethods []PaymentMethod `json:"paymentMethods,omitempty"`
}

// UserPatch 部分更新；nil 字段保持不变
type UserPatch struct {
	Username       *string          `json:"username,omitempty"`
	Email          *string          `json:"email,omitempty"`
	DisplayName    *string          `json:"displayName,omitempty"`
	Bio            *string          `json:"bio,omitempty"`
	Website        *string          `json:"website,omitempty"`
	Avatar         *string          `json:"avatar,omitempty"`
	PaymentMethods *[]PaymentMethod `json:"paymentMethods,omitempty"`
}

// Apply merges the non-nil fields of p into u.
func (p UserPatch) Apply(u *User) {
	if p.Username != nil {
		u.Username = *p.Username
	}
	if p.Email != nil {
		u.Email = *p.Email
	}
	if p.DisplayName != nil {
		u.DisplayName = *p.DisplayName
	}
	if p.Bio != nil {
		u.Bio = *p.Bio
	}
	if p.Website != nil {
		u.Website = *p.Website
	}
	if p.Avatar != nil {
		u.Avatar = *p.Avatar
	}
	if p.PaymentMethods != nil {
		u.PaymentMethods = slices.Clone(*p.PaymentMethods)
	}
}

// Clone returns a copy that shares no slices with u.
func (u User) Clone() User {
	u.PaymentMethods = slices.Clone(u.PaymentMethods)
	return u
}
