package auth_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sparelink/gig-engine/auth"
)

func TestSignAndVerify_RoundTrip(t *testing.T) {
	signer := auth.NewSigner("secret")
	token, err := signer.SignFor("spare-1", auth.RoleSpare)
	require.NoError(t, err)

	id, err := auth.NewVerifier("secret").Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "spare-1", id.UserID)
	assert.Equal(t, auth.RoleSpare, id.Role)
}

func TestVerify_WrongSecretRejected(t *testing.T) {
	token, err := auth.NewSigner("secret").SignFor("spare-1", auth.RoleSpare)
	require.NoError(t, err)

	_, err = auth.NewVerifier("other").Verify(token)
	assert.ErrorIs(t, err, auth.ErrInvalidToken)
}

func TestVerify_GarbageRejected(t *testing.T) {
	_, err := auth.NewVerifier("secret").Verify("not-a-token")
	assert.ErrorIs(t, err, auth.ErrInvalidToken)
}
