package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"Community_Feed/internal/repository/store"

	"gorm.io/gorm"
)

var (
	ErrAlreadyLiked       = errors.New("already liked")
	ErrNotLiked           = errors.New("not liked")
	ErrNotFound           = errors.New("not found")
	ErrUnauthenticated    = errors.New("authentication required")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrForbidden          = errors.New("permission denied")
	ErrLockTimeout        = errors.New("target is busy, retry later")
)

// ValidationError 字段级错误，field -> messages
type ValidationError struct {
	Fields map[string][]string
}

func (e *ValidationError) Add(field, msg string) {
	if e.Fields == nil {
		e.Fields = make(map[string][]string)
	}
	e.Fields[field] = append(e.Fields[field], msg)
}

// Err 没有字段错误时返回 nil
func (e *ValidationError) Err() error {
	if len(e.Fields) == 0 {
		return nil
	}
	return e
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+strings.Join(e.Fields[k], " "))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func fieldError(field, msg string) *ValidationError {
	v := &ValidationError{}
	v.Add(field, msg)
	return v
}

// translate 把存储层错误映射为业务错误，其他错误原样向上
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, store.ErrLikeExists):
		return ErrAlreadyLiked
	case errors.Is(err, store.ErrLikeMissing):
		return ErrNotLiked
	case errors.Is(err, store.ErrTargetNotFound), errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, context.DeadlineExceeded), store.IsLockTimeout(err):
		return ErrLockTimeout
	}
	return err
}

func wrap(op string, err error) error {
	err = translate(err)
	if err == nil {
		return nil
	}
	var ve *ValidationError
	if errors.As(err, &ve) || isDomainError(err) {
		return err
	}
	return fmt.Errorf("%s: %w", op, err)
}

func isDomainError(err error) bool {
	for _, target := range []error{
		ErrAlreadyLiked, ErrNotLiked, ErrNotFound, ErrUnauthenticated,
		ErrInvalidCredentials, ErrForbidden, ErrLockTimeout,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
