package main

import (
	"errors"
	"fmt"
	"testing"

	"github.com/barazo-forum/barazo-api-sub002/internal/database/types"
	"github.com/stretchr/testify/assert"
)

func TestExitCode(t *testing.T) {
	t.Parallel()

	assert.Equal(t, exitValidation, exitCode(fmt.Errorf("%w: bad", types.ErrInvalidDID)))
	assert.Equal(t, exitNotFound, exitCode(types.ErrClusterNotFound))
	assert.Equal(t, exitConflict, exitCode(types.ErrAlreadyReviewed))
	assert.Equal(t, exitRateLimited, exitCode(types.ErrRateLimited))
	assert.Equal(t, exitFatal, exitCode(errors.New("connection refused")))
}
