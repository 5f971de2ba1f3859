package services

import (
	"context"
	"crypto/rand"
	"database/sql"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/gongmoju-info/gongmoju-backend/models"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const verificationCodeTTL = 10 * time.Minute

// SubscriberService owns the weekly-report subscription lifecycle:
// request a code, verify it, unsubscribe by token.
type SubscriberService struct {
	DB          *sql.DB
	MailService *MailService
}

func NewSubscriberService(db *sql.DB, mailService *MailService) *SubscriberService {
	return &SubscriberService{DB: db, MailService: mailService}
}

// RequestVerification upserts the subscriber with a fresh 6-digit code and
// mails it. A re-request keeps the existing unsubscribe token so previously
// sent unsubscribe links stay valid.
func (s *SubscriberService) RequestVerification(ctx context.Context, email string) error {
	email = normalizeEmail(email)
	if email == "" || !strings.Contains(email, "@") {
		return fmt.Errorf("invalid email address")
	}

	code, err := generateVerificationCode()
	if err != nil {
		return fmt.Errorf("failed to generate verification code: %w", err)
	}
	expiresAt := time.Now().Add(verificationCodeTTL)

	query := `
		INSERT INTO subscribers (email, is_active, verification_code, code_expires_at, unsubscribe_token)
		VALUES ($1, TRUE, $2, $3, $4)
		ON CONFLICT (email) DO UPDATE SET
			verification_code = EXCLUDED.verification_code,
			code_expires_at = EXCLUDED.code_expires_at,
			is_active = TRUE,
			updated_at = CURRENT_TIMESTAMP;
	`
	if _, err := s.DB.ExecContext(ctx, query, email, code, expiresAt, uuid.NewString()); err != nil {
		return fmt.Errorf("failed to upsert subscriber: %w", err)
	}

	if err := s.MailService.SendVerificationCode(email, code); err != nil {
		return fmt.Errorf("failed to send verification code: %w", err)
	}

	logrus.WithField("email", maskEmail(email)).Info("Verification code sent")
	return nil
}

// VerifyCode activates the subscription when the code matches and has not
// expired. The code is cleared on success.
func (s *SubscriberService) VerifyCode(ctx context.Context, email, code string) error {
	email = normalizeEmail(email)

	var storedCode sql.NullString
	var expiresAt sql.NullTime
	err := s.DB.QueryRowContext(ctx,
		`SELECT verification_code, code_expires_at FROM subscribers WHERE email = $1`,
		email,
	).Scan(&storedCode, &expiresAt)
	if err == sql.ErrNoRows {
		return fmt.Errorf("unknown email address")
	}
	if err != nil {
		return fmt.Errorf("failed to look up subscriber: %w", err)
	}

	if expiresAt.Valid && expiresAt.Time.Before(time.Now()) {
		return fmt.Errorf("verification code expired, request a new one")
	}
	if !storedCode.Valid || storedCode.String != code {
		return fmt.Errorf("verification code does not match")
	}

	_, err = s.DB.ExecContext(ctx, `
		UPDATE subscribers
		SET is_verified = TRUE, verification_code = NULL, code_expires_at = NULL,
		    updated_at = CURRENT_TIMESTAMP
		WHERE email = $1`, email)
	if err != nil {
		return fmt.Errorf("failed to mark subscriber verified: %w", err)
	}

	logrus.WithField("email", maskEmail(email)).Info("Subscription verified")
	return nil
}

// Unsubscribe deactivates the subscriber owning the token.
func (s *SubscriberService) Unsubscribe(ctx context.Context, token string) error {
	if token == "" {
		return fmt.Errorf("invalid unsubscribe token")
	}

	result, err := s.DB.ExecContext(ctx, `
		UPDATE subscribers SET is_active = FALSE, updated_at = CURRENT_TIMESTAMP
		WHERE unsubscribe_token = $1`, token)
	if err != nil {
		return fmt.Errorf("failed to unsubscribe: %w", err)
	}
	affected, _ := result.RowsAffected()
	if affected == 0 {
		return fmt.Errorf("invalid unsubscribe token")
	}

	logrus.Info("Subscriber unsubscribed")
	return nil
}

// ActiveVerifiedSubscribers returns the digest recipients.
func (s *SubscriberService) ActiveVerifiedSubscribers(ctx context.Context) ([]models.Subscriber, error) {
	rows, err := s.DB.QueryContext(ctx, `
		SELECT email, is_active, is_verified, unsubscribe_token, created_at, updated_at
		FROM subscribers
		WHERE is_active = TRUE AND is_verified = TRUE
		ORDER BY email`)
	if err != nil {
		return nil, fmt.Errorf("failed to query subscribers: %w", err)
	}
	defer rows.Close()

	var subscribers []models.Subscriber
	for rows.Next() {
		var sub models.Subscriber
		err := rows.Scan(&sub.Email, &sub.IsActive, &sub.IsVerified, &sub.UnsubscribeToken, &sub.CreatedAt, &sub.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan subscriber row: %w", err)
		}
		subscribers = append(subscribers, sub)
	}
	return subscribers, rows.Err()
}

func normalizeEmail(email string) string {
	return strings.TrimSpace(strings.ToLower(email))
}

func maskEmail(email string) string {
	if len(email) <= 3 {
		return "***"
	}
	return email[:3] + "***"
}

func generateVerificationCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}
