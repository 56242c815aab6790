package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServiceDirectory(t *testing.T) {
	d, err := NewServiceDirectory(map[string]string{
		"images":   "http://images:5005/",
		"clan-api": "https://clan-proxy.internal",
	})
	require.NoError(t, err)

	base, ok := d.Lookup("images")
	assert.True(t, ok)
	assert.Equal(t, "http://images:5005", base)

	u, err := d.URL("clan-api", "/api/products")
	require.NoError(t, err)
	assert.Equal(t, "https://clan-proxy.internal/api/products", u)

	_, err = d.URL("launchpad", "/")
	assert.Error(t, err)

	eps := d.Endpoints()
	require.Len(t, eps, 2)
	assert.Equal(t, "clan-api", eps[0].Name)
	assert.Equal(t, "images", eps[1].Name)
}

func TestServiceDirectory_RejectsRelativeURL(t *testing.T) {
	_, err := NewServiceDirectory(map[string]string{"sections": "localhost:5003"})
	assert.Error(t, err)

	_, err = NewServiceDirectory(map[string]string{"sections": "/sections"})
	assert.Error(t, err)
}
