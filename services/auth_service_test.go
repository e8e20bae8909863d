package services

import (
	"testing"

	"github.com/davidrecordon/dawnward-sub002/config"
	"github.com/davidrecordon/dawnward-sub002/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterAndAuthenticate(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	config.DB = testDB(t)

	require.NoError(t, RegisterUser("ada@example.com", "correct horse battery", "Ada"))

	// stored password is hashed, never plaintext
	var user models.User
	require.NoError(t, config.DB.Where("email = ?", "ada@example.com").First(&user).Error)
	assert.NotEqual(t, "correct horse battery", user.Password)

	token, err := AuthenticateUser("ada@example.com", "correct horse battery")
	require.NoError(t, err)

	parsed, err := jwt.Parse(token, func(tok *jwt.Token) (interface{}, error) {
		return []byte("test-secret"), nil
	})
	require.NoError(t, err)
	claims := parsed.Claims.(jwt.MapClaims)
	assert.Equal(t, "ada@example.com", claims["email"])
	assert.EqualValues(t, user.ID, claims["userId"])

	_, err = AuthenticateUser("ada@example.com", "wrong")
	assert.EqualError(t, err, "incorrect password")

	_, err = AuthenticateUser("nobody@example.com", "whatever")
	assert.EqualError(t, err, "user not found or disabled")
}

func TestAuthenticateRejectsGoogleOnlyAccount(t *testing.T) {
	config.DB = testDB(t)

	// Google sign-ins create users without a password hash
	u, err := FindOrCreateGoogleUser("g@example.com", "Google User")
	require.NoError(t, err)
	assert.Empty(t, u.Password)

	_, err = AuthenticateUser("g@example.com", "anything")
	assert.EqualError(t, err, "account uses Google sign-in")
}

func TestFindOrCreateGoogleUser(t *testing.T) {
	config.DB = testDB(t)

	created, err := FindOrCreateGoogleUser("g@example.com", "Google User")
	require.NoError(t, err)

	again, err := FindOrCreateGoogleUser("g@example.com", "Renamed")
	require.NoError(t, err)
	assert.Equal(t, created.ID, again.ID)
	assert.Equal(t, "Google User", again.FullName)

	require.NoError(t, config.DB.Model(created).Update("disabled", true).Error)
	_, err = FindOrCreateGoogleUser("g@example.com", "Google User")
	assert.EqualError(t, err, "user disabled")
}

func TestDeleteUserDisablesAccount(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	config.DB = testDB(t)

	require.NoError(t, RegisterUser("ada@example.com", "correct horse battery", "Ada"))
	require.NoError(t, DeleteUser("ada@example.com"))

	_, err := AuthenticateUser("ada@example.com", "correct horse battery")
	assert.EqualError(t, err, "user not found or disabled")

	_, err = GetUserProfile("ada@example.com")
	assert.Error(t, err)
}
