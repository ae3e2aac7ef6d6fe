package auth

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type memUserStore struct {
	users map[string]User // email → user
}

func (m *memUserStore) GetByEmail(_ context.Context, email string) (*User, error) {
	if u, ok := m.users[email]; ok {
		return &u, nil
	}
	return nil, nil
}

var testSecret = []byte("test-secret")

func newTestAuthService(t *testing.T) (*Service, *memUserStore) {
	t.Helper()
	store := &memUserStore{users: make(map[string]User)}
	svc := &Service{store: store, secret: testSecret, now: time.Now}
	return svc, store
}

func (m *memUserStore) addUser(t *testing.T, id, name, email, password, role string) {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	m.users[email] = User{ID: id, Name: name, Email: email, PasswordHash: string(hash), Role: role}
}

func TestLogin_UnknownUser(t *testing.T) {
	svc, _ := newTestAuthService(t)

	_, _, err := svc.Login(context.Background(), "nobody@parlour.local", "whatever")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestLogin_WrongPassword(t *testing.T) {
	svc, store := newTestAuthService(t)
	store.addUser(t, "U1", "Aiko", "aiko@parlour.local", "correct", RoleAdmin)

	_, _, err := svc.Login(context.Background(), "aiko@parlour.local", "wrong")
	assert.ErrorIs(t, err, ErrBadCredentials)
}

func TestLogin_TokenRoundTrip(t *testing.T) {
	svc, store := newTestAuthService(t)
	store.addUser(t, "U1", "Aiko", "aiko@parlour.local", "s3cret", RoleSuperAdmin)

	token, user, err := svc.Login(context.Background(), "aiko@parlour.local", "s3cret")
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.Equal(t, "U1", user.ID)
	assert.Equal(t, RoleSuperAdmin, user.Role)

	id, err := ParseToken(testSecret, token)
	require.NoError(t, err)
	assert.Equal(t, "U1", id.UserID)
	assert.Equal(t, RoleSuperAdmin, id.Role)
	assert.Equal(t, "Aiko", id.Name)
}

func TestParseToken_WrongSecret(t *testing.T) {
	svc, store := newTestAuthService(t)
	store.addUser(t, "U1", "Aiko", "aiko@parlour.local", "s3cret", RoleAdmin)

	token, _, err := svc.Login(context.Background(), "aiko@parlour.local", "s3cret")
	require.NoError(t, err)

	_, err = ParseToken([]byte("other-secret"), token)
	assert.Error(t, err)
}

func TestParseToken_RejectsUnsignedToken(t *testing.T) {
	// alg=none は署名検証を素通りさせない
	unsigned := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"sub": "U1"})
	raw, err := unsigned.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = ParseToken(testSecret, raw)
	assert.Error(t, err)
}

func TestParseToken_RequiresSubject(t *testing.T) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"role": RoleAdmin,
		"exp":  time.Now().Add(time.Hour).Unix(),
	})
	raw, err := token.SignedString(testSecret)
	require.NoError(t, err)

	_, err = ParseToken(testSecret, raw)
	assert.Error(t, err)
}
