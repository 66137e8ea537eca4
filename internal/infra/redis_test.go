package infra

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRedis_Errores(t *testing.T) {
	_, err := NewRedis("http://localhost:6379")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "url inválida")

	// nothing listens on port 1
	_, err = NewRedis("redis://127.0.0.1:1/0")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ping 127.0.0.1:1")
}
