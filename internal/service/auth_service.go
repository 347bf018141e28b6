package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"persona-board/internal/domain"
	"persona-board/internal/email"
	"persona-board/internal/repository"
)

const (
	confirmationTTL   = 10 * time.Minute
	minPasswordLength = 8
)

// AuthService implementa el colaborador de identidad: alta, login, logout y
// confirmacion de correo con codigo.
type AuthService struct {
	logger              *zap.Logger
	users               repository.UserRepository
	emailSender         email.Sender
	limiter             RateLimiter
	requireConfirmation bool
}

func NewAuthService(logger *zap.Logger, users repository.UserRepository, emailSender email.Sender, limiter RateLimiter, requireConfirmation bool) *AuthService {
	return &AuthService{
		logger:              logger,
		users:               users,
		emailSender:         emailSender,
		limiter:             limiter,
		requireConfirmation: requireConfirmation,
	}
}

// SignUp crea la cuenta. Con confirmacion requerida la cuenta nace sin
// verificar y se envia un codigo; si no, queda verificada de inmediato.
func (s *AuthService) SignUp(ctx context.Context, emailAddr, password, displayName string) (domain.User, error) {
	emailAddr = normalizeEmail(emailAddr)
	if !isPlausibleEmail(emailAddr) {
		return domain.User{}, ErrInvalidEmail
	}
	password = strings.TrimSpace(password)
	if len(password) < minPasswordLength {
		return domain.User{}, ErrWeakPassword
	}

	if _, err := s.users.GetByEmail(ctx, emailAddr); err == nil {
		return domain.User{}, ErrEmailInUse
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return domain.User{}, err
	}

	hashBytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return domain.User{}, err
	}

	user := domain.User{
		ID:           uuid.NewString(),
		Email:        emailAddr,
		DisplayName:  strings.TrimSpace(displayName),
		PasswordHash: string(hashBytes),
		CreatedAt:    time.Now().UTC(),
	}

	var code string
	if s.requireConfirmation {
		var hash string
		var expiresAt time.Time
		code, hash, expiresAt, err = generateConfirmationCode()
		if err != nil {
			return domain.User{}, err
		}
		user.OtpCodeHash = hash
		user.OtpExpiresAt = &expiresAt
	} else {
		now := time.Now().UTC()
		user.EmailVerifiedAt = &now
	}

	if err := s.users.Create(ctx, user); err != nil {
		if isUniqueViolation(err) {
			return domain.User{}, ErrEmailInUse
		}
		return domain.User{}, err
	}

	if s.requireConfirmation && s.emailSender != nil {
		if err := s.emailSender.SendConfirmationCode(ctx, emailAddr, code, *user.OtpExpiresAt); err != nil {
			// La cuenta ya existe; el cliente puede pedir reenvio.
			s.logger.Warn("confirmation code send failed", zap.Error(err), zap.String("email", emailAddr))
		}
	}
	return user, nil
}

// SignIn valida credenciales. Una cuenta sin confirmar falla con
// ErrEmailUnconfirmed cuando la confirmacion es obligatoria.
func (s *AuthService) SignIn(ctx context.Context, emailAddr, password string) (domain.User, error) {
	emailAddr = normalizeEmail(emailAddr)
	password = strings.TrimSpace(password)
	if emailAddr == "" || password == "" {
		return domain.User{}, ErrInvalidCredentials
	}

	user, err := s.users.GetByEmail(ctx, emailAddr)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.User{}, ErrInvalidCredentials
		}
		return domain.User{}, err
	}
	if user.PasswordHash == "" {
		return domain.User{}, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return domain.User{}, ErrInvalidCredentials
	}
	if s.requireConfirmation && user.EmailVerifiedAt == nil {
		return domain.User{}, ErrEmailUnconfirmed
	}
	return user, nil
}

// ResendCode genera un codigo de confirmacion nuevo y lo envia por correo.
// El codigo anterior queda invalidado. Para una cuenta ya verificada es no-op.
func (s *AuthService) ResendCode(ctx context.Context, emailAddr string) error {
	emailAddr = normalizeEmail(emailAddr)
	if !isPlausibleEmail(emailAddr) {
		return ErrInvalidEmail
	}
	if s.limiter != nil && !s.limiter.Allow(emailAddr) {
		return ErrTooManyRequests
	}

	user, err := s.users.GetByEmail(ctx, emailAddr)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrUserNotFound
		}
		return err
	}
	if user.EmailVerifiedAt != nil {
		return nil
	}

	code, hash, expiresAt, err := generateConfirmationCode()
	if err != nil {
		return err
	}
	if err := s.users.UpdateOTP(ctx, user.ID, hash, expiresAt); err != nil {
		return err
	}
	if s.emailSender == nil {
		return errors.New("email sender not configured")
	}
	return s.emailSender.SendConfirmationCode(ctx, emailAddr, code, expiresAt)
}

// ConfirmEmail canjea el codigo enviado en SignUp.
func (s *AuthService) ConfirmEmail(ctx context.Context, emailAddr, code string) (domain.User, error) {
	emailAddr = normalizeEmail(emailAddr)
	if emailAddr == "" {
		return domain.User{}, ErrInvalidEmail
	}
	code = strings.TrimSpace(code)
	if !isValidCodeFormat(code) {
		return domain.User{}, ErrCodeInvalid
	}

	user, err := s.users.GetByEmail(ctx, emailAddr)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.User{}, ErrUserNotFound
		}
		return domain.User{}, err
	}

	if user.OtpCodeHash == "" || user.OtpExpiresAt == nil {
		return domain.User{}, ErrCodeNotRequested
	}
	if time.Now().UTC().After(*user.OtpExpiresAt) {
		return domain.User{}, ErrCodeExpired
	}
	if !verifyConfirmationCode(code, user.OtpCodeHash) {
		return domain.User{}, ErrCodeInvalid
	}

	verifiedAt := time.Now().UTC()
	if err := s.users.VerifyEmail(ctx, user.ID, verifiedAt); err != nil {
		return domain.User{}, err
	}

	user.EmailVerifiedAt = &verifiedAt
	user.OtpCodeHash = ""
	user.OtpExpiresAt = nil
	return user, nil
}

// generateConfirmationCode produce un codigo de 6 digitos y su hash salteado.
func generateConfirmationCode() (code, stored string, expiresAt time.Time, err error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", "", time.Time{}, err
	}
	code = fmt.Sprintf("%06d", n.Int64())

	salt := make([]byte, 16)
	if _, err := rand.Read(salt); err != nil {
		return "", "", time.Time{}, err
	}
	saltStr := base64.StdEncoding.EncodeToString(salt)
	sum := sha256.Sum256([]byte(saltStr + ":" + code))

	stored = saltStr + ":" + base64.StdEncoding.EncodeToString(sum[:])
	expiresAt = time.Now().UTC().Add(confirmationTTL)
	return code, stored, expiresAt, nil
}

func verifyConfirmationCode(code, stored string) bool {
	saltStr, expected, ok := strings.Cut(stored, ":")
	if !ok {
		return false
	}
	sum := sha256.Sum256([]byte(saltStr + ":" + code))
	got := base64.StdEncoding.EncodeToString(sum[:])
	return subtle.ConstantTimeCompare([]byte(got), []byte(expected)) == 1
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func isPlausibleEmail(email string) bool {
	at := strings.Index(email, "@")
	return at > 0 && at < len(email)-1 && !strings.ContainsAny(email, " \t")
}

func isValidCodeFormat(code string) bool {
	if len(code) != 6 {
		return false
	}
	for _, r := range code {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}
