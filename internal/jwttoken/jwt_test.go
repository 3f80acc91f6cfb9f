package jwttoken

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "roamly/pkg/domain"
	domerrors "roamly/pkg/domain-errors"
)

func TestAccessTokenRoundTrip(t *testing.T) {
	svc := New("signing-key", "roamly", "roamly-api")
	userID := id.NewUserID()
	sessionID := id.NewSessionID()

	token, err := svc.GenerateAccessToken(userID, sessionID, id.RoleAdmin, time.Minute)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := svc.ValidateAccessToken(token)
	require.NoError(t, err)
	assert.Equal(t, userID, claims.UserID)
	assert.Equal(t, sessionID, claims.SessionID)
	assert.Equal(t, id.RoleAdmin, claims.Role)
}

func TestValidateRejectsWrongKey(t *testing.T) {
	issued, err := New("key-one", "roamly", "roamly-api").
		GenerateAccessToken(id.NewUserID(), id.NewSessionID(), id.RoleUser, time.Minute)
	require.NoError(t, err)

	_, err = New("key-two", "roamly", "roamly-api").ValidateAccessToken(issued)
	assert.True(t, domerrors.HasCode(err, domerrors.CodeUnauthorized))
}

func TestValidateRejectsExpiredToken(t *testing.T) {
	svc := New("signing-key", "roamly", "roamly-api")
	token, err := svc.GenerateAccessToken(id.NewUserID(), id.NewSessionID(), id.RoleUser, -time.Minute)
	require.NoError(t, err)

	_, err = svc.ValidateAccessToken(token)
	assert.True(t, domerrors.HasCode(err, domerrors.CodeUnauthorized))
}

func TestValidateRejectsGarbage(t *testing.T) {
	svc := New("signing-key", "roamly", "roamly-api")
	_, err := svc.ValidateAccessToken("not.a.jwt")
	assert.True(t, domerrors.HasCode(err, domerrors.CodeUnauthorized))
}
