package netutil

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/url"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
)

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return false }

func TestShouldRetry(t *testing.T) {
	dial := &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("no route")}
	reset := &net.OpError{Op: "read", Net: "tcp", Err: syscall.ECONNRESET}

	assert.True(t, ShouldRetry(&url.Error{Op: "Post", URL: "https://api.telegram.org", Err: timeoutErr{}}))
	assert.True(t, ShouldRetry(dial))
	assert.True(t, ShouldRetry(reset))
	assert.True(t, ShouldRetry(fmt.Errorf("read body: %w", io.ErrUnexpectedEOF)))
	assert.True(t, ShouldRetry(context.DeadlineExceeded))

	assert.False(t, ShouldRetry(nil))
	assert.False(t, ShouldRetry(context.Canceled))
	assert.False(t, ShouldRetry(&url.Error{Op: "Post", URL: "x", Err: context.Canceled}))
	assert.False(t, ShouldRetry(errors.New("telegram: bad request")))
}
