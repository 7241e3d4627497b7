package database

import (
	"errors"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
)

func TestIsUniqueViolation(t *testing.T) {
	assert.True(t, IsUniqueViolation(&pq.Error{Code: "23505"}))
	assert.False(t, IsUniqueViolation(&pq.Error{Code: "23503"}))
	assert.True(t, IsUniqueViolation(errors.New(`duplicate key value violates unique constraint "carts_user_id_key"`)))
	assert.False(t, IsUniqueViolation(errors.New("connection refused")))
	assert.False(t, IsUniqueViolation(nil))
}

func TestFirstLine(t *testing.T) {
	assert.Equal(t, "CREATE TABLE IF NOT EXISTS carts (", firstLine("\n\tCREATE TABLE IF NOT EXISTS carts (\n\tid UUID\n)"))
	assert.Equal(t, "SELECT 1", firstLine("SELECT 1"))
}
