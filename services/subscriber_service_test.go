package services

import (
	"context"
	"database/sql"
	"strconv"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeEmail(t *testing.T) {
	assert.Equal(t, "user@example.com", normalizeEmail("  User@Example.COM "))
	assert.Equal(t, "", normalizeEmail("   "))
}

func TestMaskEmail(t *testing.T) {
	assert.Equal(t, "use***", maskEmail("user@example.com"))
	assert.Equal(t, "***", maskEmail("ab"))
}

func TestGenerateVerificationCodeRange(t *testing.T) {
	for i := 0; i < 200; i++ {
		code, err := generateVerificationCode()
		require.NoError(t, err)
		require.Len(t, code, 6)

		value, err := strconv.Atoi(code)
		require.NoError(t, err)
		require.GreaterOrEqual(t, value, 100000)
		require.LessOrEqual(t, value, 999999)
	}
}

// seedSubscriber inserts a row directly, bypassing the mail send that
// RequestVerification would trigger.
func seedSubscriber(t *testing.T, db *sql.DB, email, code string, expiresAt time.Time, verified bool) string {
	t.Helper()
	token := uuid.NewString()
	_, err := db.Exec(`
		INSERT INTO subscribers (email, is_active, is_verified, verification_code, code_expires_at, unsubscribe_token)
		VALUES ($1, TRUE, $2, $3, $4, $5)`,
		email, verified, code, expiresAt, token)
	require.NoError(t, err)
	t.Cleanup(func() {
		_, _ = db.Exec(`DELETE FROM subscribers WHERE email = $1`, email)
	})
	return token
}

func testEmail() string {
	return "test-" + uuid.NewString()[:8] + "@example.com"
}

func TestVerifyCodeLifecycle(t *testing.T) {
	db := openTestDatabase(t)
	service := NewSubscriberService(db, nil)
	ctx := context.Background()

	email := testEmail()
	seedSubscriber(t, db, email, "123456", time.Now().Add(10*time.Minute), false)

	require.Error(t, service.VerifyCode(ctx, email, "654321"), "wrong code must be rejected")
	require.Error(t, service.VerifyCode(ctx, "unknown-"+email, "123456"), "unknown email must be rejected")
	require.NoError(t, service.VerifyCode(ctx, email, "123456"))

	var isVerified bool
	var storedCode sql.NullString
	require.NoError(t, db.QueryRow(
		`SELECT is_verified, verification_code FROM subscribers WHERE email = $1`, email,
	).Scan(&isVerified, &storedCode))
	assert.True(t, isVerified)
	assert.False(t, storedCode.Valid, "code must be cleared after use")
}

func TestVerifyCodeExpired(t *testing.T) {
	db := openTestDatabase(t)
	service := NewSubscriberService(db, nil)

	email := testEmail()
	seedSubscriber(t, db, email, "123456", time.Now().Add(-time.Minute), false)

	err := service.VerifyCode(context.Background(), email, "123456")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expired")
}

func TestUnsubscribeByToken(t *testing.T) {
	db := openTestDatabase(t)
	service := NewSubscriberService(db, nil)
	ctx := context.Background()

	email := testEmail()
	token := seedSubscriber(t, db, email, "123456", time.Now().Add(10*time.Minute), true)

	require.Error(t, service.Unsubscribe(ctx, uuid.NewString()), "foreign token must not deactivate anyone")
	require.Error(t, service.Unsubscribe(ctx, ""))
	require.NoError(t, service.Unsubscribe(ctx, token))

	var isActive bool
	require.NoError(t, db.QueryRow(`SELECT is_active FROM subscribers WHERE email = $1`, email).Scan(&isActive))
	assert.False(t, isActive)
}

func TestActiveVerifiedSubscribers(t *testing.T) {
	db := openTestDatabase(t)
	service := NewSubscriberService(db, nil)
	ctx := context.Background()

	verified := testEmail()
	pending := testEmail()
	seedSubscriber(t, db, verified, "123456", time.Now().Add(10*time.Minute), true)
	seedSubscriber(t, db, pending, "123456", time.Now().Add(10*time.Minute), false)

	subscribers, err := service.ActiveVerifiedSubscribers(ctx)
	require.NoError(t, err)

	emails := make(map[string]bool, len(subscribers))
	for _, subscriber := range subscribers {
		emails[subscriber.Email] = true
		assert.True(t, subscriber.IsActive)
		assert.True(t, subscriber.IsVerified)
	}
	assert.True(t, emails[verified])
	assert.False(t, emails[pending], "unverified subscribers must never receive the digest")
}
