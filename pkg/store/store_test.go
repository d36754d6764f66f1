package store

import (
	"context"
	"errors"
	"net"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"

	"github.com/nightwatch/monitor/pkg/monitorerr"
)

type timeoutError struct{}

func (timeoutError) Error() string   { return "i/o timeout" }
func (timeoutError) Timeout() bool   { return true }
func (timeoutError) Temporary() bool { return true }

var _ net.Error = timeoutError{}

func TestClassifyError_NetworkTimeoutIsConnError(t *testing.T) {
	err := classifyError(timeoutError{})
	assert.True(t, monitorerr.IsConnError(err))
}

func TestClassifyError_PgConnectionExceptionIsConnError(t *testing.T) {
	err := classifyError(&pgconn.PgError{Code: "08006", Message: "connection failure"})
	assert.True(t, monitorerr.IsConnError(err))
}

func TestClassifyError_PgNonConnectionErrorIsNotConnError(t *testing.T) {
	err := classifyError(&pgconn.PgError{Code: "23505", Message: "unique violation"})
	assert.False(t, monitorerr.IsConnError(err))
}

func TestClassifyError_DeadlineExceededIsConnError(t *testing.T) {
	err := classifyError(context.DeadlineExceeded)
	assert.True(t, monitorerr.IsConnError(err))
}

func TestClassifyError_NilIsNil(t *testing.T) {
	assert.Nil(t, classifyError(nil))
}

func TestClassifyError_OrdinaryErrorIsUnchanged(t *testing.T) {
	base := errors.New("boom")
	err := classifyError(base)
	assert.Equal(t, base, err)
	assert.False(t, monitorerr.IsConnError(err))
}

func TestSQLStore_CreateWithoutConnectReturnsErrNotConnected(t *testing.T) {
	s := New("postgres://unused/unused")
	err := s.Create(t.Context(), nil)
	assert.ErrorIs(t, err, monitorerr.ErrNotConnected)
}

func TestSQLStore_DisconnectWithoutConnectIsSafe(t *testing.T) {
	s := New("postgres://unused/unused")
	assert.NoError(t, s.Disconnect())
}
