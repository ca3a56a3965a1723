package sqlxrepos

import (
	"database/sql"
	"errors"
	"testing"

	"github.com/lib/pq"
	pkgerrors "github.com/pkg/errors"
	"github.com/stretchr/testify/assert"

	"github.com/proft/portfolio/core/assignment"
	"github.com/proft/portfolio/core/user"
)

func TestTrapErr(t *testing.T) {
	other := errors.New("boom")
	tests := []struct {
		name     string
		err      error
		notFound error
		want     error
	}{
		{name: "nil", err: nil, want: nil},
		{name: "no rows", err: sql.ErrNoRows, notFound: assignment.ErrAssignmentNotFound, want: assignment.ErrAssignmentNotFound},
		{name: "wrapped no rows", err: pkgerrors.Wrap(sql.ErrNoRows, "get"), notFound: user.ErrNotFound, want: user.ErrNotFound},
		{name: "serialization failure", err: &pq.Error{Code: "40001"}, want: assignment.ErrConflict},
		{name: "deadlock", err: &pq.Error{Code: "40P01"}, want: assignment.ErrConflict},
		{name: "lock not available", err: &pq.Error{Code: "55P03"}, want: assignment.ErrConflict},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, trapErr(tt.err, tt.notFound, "doing"))
		})
	}

	err := trapErr(other, assignment.ErrAssignmentNotFound, "doing")
	assert.Equal(t, other, pkgerrors.Cause(err))
	assert.EqualError(t, err, "doing: boom")
}

func TestIsUniqueViolation(t *testing.T) {
	err := pkgerrors.Wrap(&pq.Error{Code: "23505", Constraint: "users_email_key"}, "insert")

	assert.True(t, isUniqueViolation(err, "users_email_key"))
	assert.True(t, isUniqueViolation(err, ""))
	assert.False(t, isUniqueViolation(err, "users_username_key"))
	assert.False(t, isUniqueViolation(errors.New("x"), ""))

	repo := userRepository{}
	assert.Equal(t, user.ErrEmailExists, repo.trapUniqueErr(err, "insert"))
}

func TestIsForeignKeyViolation(t *testing.T) {
	assert.True(t, isForeignKeyViolation(pkgerrors.Wrap(&pq.Error{Code: "23503"}, "delete")))
	assert.False(t, isForeignKeyViolation(&pq.Error{Code: "23505"}))
	assert.False(t, isForeignKeyViolation(errors.New("x")))
}

func TestValidUUIDs(t *testing.T) {
	ids := []string{"5f1e7c1a-3d55-4c0e-8f11-6a1d3bc4c0aa", "nope", ""}
	assert.Equal(t, []string{"5f1e7c1a-3d55-4c0e-8f11-6a1d3bc4c0aa"}, validUUIDs(ids))
}
