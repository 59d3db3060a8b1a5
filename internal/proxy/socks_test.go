package proxy

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClientDirect(t *testing.T) {
	client, err := NewClient("", 5*time.Second)
	require.NoError(t, err)
	assert.Equal(t, 5*time.Second, client.Timeout)
	assert.Nil(t, client.Transport)
}

func TestNewClientSocks(t *testing.T) {
	client, err := NewClient("127.0.0.1:1080", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, time.Minute, client.Timeout)

	_, ok := client.Transport.(*http.Transport)
	assert.True(t, ok)
}
