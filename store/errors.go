package store

import "errors"

var (
	// ErrDuplicateEntity 唯一性冲突（用户邮箱/用户名）
	ErrDuplicateEntity = errors.New("duplicate entity")
	// ErrValidation 输入不合法
	ErrValidation = errors.New("validation failed")
	// ErrNotFound is returned when an operation depends on a record that
	// does not exist. Plain lookups and updates report absence as nil instead.
	ErrNotFound = errors.New("not found")
)
