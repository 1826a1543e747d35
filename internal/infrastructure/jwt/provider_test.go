package jwtinfra

import (
	"testing"

	"github.com/go-quicknotif/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignAndVerify(t *testing.T) {
	p := NewProvider(&config.Config{AuthSecret: "test-secret", TokenExpiryDays: 1})

	token, err := p.Sign("device-1")
	require.NoError(t, err)

	claims, err := p.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "device-1", claims.DeviceID)
}

func TestVerify_WrongSecretRejected(t *testing.T) {
	signer := NewProvider(&config.Config{AuthSecret: "secret-a", TokenExpiryDays: 1})
	verifier := NewProvider(&config.Config{AuthSecret: "secret-b", TokenExpiryDays: 1})

	token, err := signer.Sign("device-1")
	require.NoError(t, err)

	_, err = verifier.Verify(token)
	assert.Error(t, err)
}
