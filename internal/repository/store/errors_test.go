package store

import (
	"context"
	"errors"
	"fmt"
	"testing"

	mysqldrv "github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func TestIsUniqueViolation(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"gorm translated", fmt.Errorf("insert: %w", gorm.ErrDuplicatedKey), true},
		{"mysql 1062", &mysqldrv.MySQLError{Number: 1062, Message: "Duplicate entry"}, true},
		{"mysql other", &mysqldrv.MySQLError{Number: 1452}, false},
		{"postgres 23505", &pgconn.PgError{Code: "23505"}, true},
		{"postgres fk", &pgconn.PgError{Code: "23503"}, false},
		{"sqlite message", errors.New("constraint failed: UNIQUE constraint failed: post_likes.user_id, post_likes.post_id (2067)"), true},
		{"other", errors.New("connection reset"), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, IsUniqueViolation(tc.err))
		})
	}
}

func TestIsLockTimeout(t *testing.T) {
	assert.True(t, IsLockTimeout(&mysqldrv.MySQLError{Number: 1205}))
	assert.True(t, IsLockTimeout(fmt.Errorf("tx: %w", &pgconn.PgError{Code: "55P03"})))
	assert.False(t, IsLockTimeout(context.Canceled))
	assert.False(t, IsLockTimeout(nil))
}

func TestDialectorFor(t *testing.T) {
	for _, url := range []string{
		"mysql://user:pw@tcp(127.0.0.1:3306)/feed",
		"postgres://user:pw@localhost:5432/feed",
		"postgresql://user:pw@localhost:5432/feed",
		"sqlite://feed.db",
	} {
		d, err := dialectorFor(url)
		assert.NoError(t, err, url)
		assert.NotNil(t, d, url)
	}

	_, err := dialectorFor("oracle://scott:tiger@db")
	assert.ErrorIs(t, err, ErrUnsupportedURL)
}
