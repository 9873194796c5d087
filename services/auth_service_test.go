package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"dietica/logger"
	"dietica/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/idtoken"
)

type captureMailer struct {
	mu    sync.Mutex
	codes map[string]string // purpose:email -> last code
}

func (m *captureMailer) put(purpose, to, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.codes == nil {
		m.codes = map[string]string{}
	}
	m.codes[purpose+":"+to] = code
	return nil
}

func (m *captureMailer) SendSignupOTP(_ context.Context, to, code string) error {
	return m.put(OTPPurposeSignup, to, code)
}

func (m *captureMailer) SendResetOTP(_ context.Context, to, code string) error {
	return m.put(OTPPurposeReset, to, code)
}

func (m *captureMailer) code(purpose, to string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.codes[purpose+":"+to]
}

func wrongCode(code string) string {
	if code == "0000" {
		return "1111"
	}
	return "0000"
}

func newAuth(t *testing.T, google IDTokenValidator) (*AuthService, *captureMailer) {
	t.Helper()
	m := &captureMailer{}
	return NewAuthService(newTestDB(t), m, google, "client-id", "test-secret", logger.Discard()), m
}

func TestSignupFlow(t *testing.T) {
	svc, mailer := newAuth(t, nil)
	ctx := context.Background()
	email := "ayu@example.com"

	require.NoError(t, svc.RequestOTP(ctx, " AYU@example.com ", OTPPurposeSignup))
	code := mailer.code(OTPPurposeSignup, email)
	require.Len(t, code, 4)

	req := FinalizeSignupReq{Email: email, Password: "s3cret-pass", ConfirmPassword: "s3cret-pass", FirstName: "Ayu"}
	_, err := svc.FinalizeSignup(ctx, req)
	assert.ErrorIs(t, err, ErrUnauthorized, "finalize needs a verified code")

	require.NoError(t, svc.VerifyOTP(ctx, email, OTPPurposeSignup, code))
	assert.ErrorIs(t, svc.VerifyOTP(ctx, email, OTPPurposeSignup, code), ErrInvalidInput, "codes are single use")

	res, err := svc.FinalizeSignup(ctx, req)
	require.NoError(t, err)
	assert.NotEmpty(t, res.Token)
	assert.Equal(t, email, res.User.Email)

	uid, gotEmail, err := utils.ParseJWT("test-secret", res.Token)
	require.NoError(t, err)
	assert.Equal(t, res.User.ID, uid)
	assert.Equal(t, email, gotEmail)

	_, err = svc.FinalizeSignup(ctx, req)
	assert.ErrorIs(t, err, ErrConflict)

	in, err := svc.SignIn(ctx, email, "s3cret-pass")
	require.NoError(t, err)
	assert.Equal(t, res.User.ID, in.User.ID)

	_, err = svc.SignIn(ctx, email, "wrong-pass")
	assert.ErrorIs(t, err, ErrUnauthorized)
	_, err = svc.SignIn(ctx, "nobody@example.com", "s3cret-pass")
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestVerifyOTPLocksAfterMaxAttempts(t *testing.T) {
	svc, mailer := newAuth(t, nil)
	ctx := context.Background()
	email := "ayu@example.com"

	require.NoError(t, svc.RequestOTP(ctx, email, OTPPurposeSignup))
	code := mailer.code(OTPPurposeSignup, email)

	for i := 0; i < maxOTPAttempts; i++ {
		err := svc.VerifyOTP(ctx, email, OTPPurposeSignup, wrongCode(code))
		require.ErrorIs(t, err, ErrInvalidInput, "attempt %d", i+1)
	}
	assert.ErrorIs(t, svc.VerifyOTP(ctx, email, OTPPurposeSignup, code), ErrTooManyAttempts)

	// a fresh code resets the counter
	require.NoError(t, svc.RequestOTP(ctx, email, OTPPurposeSignup))
	assert.NoError(t, svc.VerifyOTP(ctx, email, OTPPurposeSignup, mailer.code(OTPPurposeSignup, email)))
}

func TestVerifyOTPUnknownEmail(t *testing.T) {
	svc, _ := newAuth(t, nil)
	err := svc.VerifyOTP(context.Background(), "ghost@example.com", OTPPurposeSignup, "1234")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRequestOTPValidates(t *testing.T) {
	svc, _ := newAuth(t, nil)
	assert.ErrorIs(t, svc.RequestOTP(context.Background(), "not-an-email", OTPPurposeSignup), ErrInvalidInput)
	assert.ErrorIs(t, svc.RequestOTP(context.Background(), "a@example.com", "login"), ErrInvalidInput)
}

func TestResetPassword(t *testing.T) {
	svc, mailer := newAuth(t, nil)
	ctx := context.Background()
	email := "ayu@example.com"

	hash, err := utils.HashPassword("old-password")
	require.NoError(t, err)
	u := seedUser(t, svc.db, email)
	require.NoError(t, svc.db.Model(u).Update("password", hash).Error)

	req := ResetPasswordReq{Email: email, Password: "new-password", ConfirmPassword: "new-password"}
	assert.ErrorIs(t, svc.ResetPassword(ctx, req), ErrUnauthorized)

	require.NoError(t, svc.RequestOTP(ctx, email, OTPPurposeReset))
	require.NoError(t, svc.VerifyOTP(ctx, email, OTPPurposeReset, mailer.code(OTPPurposeReset, email)))
	require.NoError(t, svc.ResetPassword(ctx, req))

	_, err = svc.SignIn(ctx, email, "old-password")
	assert.ErrorIs(t, err, ErrUnauthorized)
	_, err = svc.SignIn(ctx, email, "new-password")
	assert.NoError(t, err)
}

type fakeValidator struct {
	payload *idtoken.Payload
	err     error
}

func (v fakeValidator) Validate(context.Context, string, string) (*idtoken.Payload, error) {
	return v.payload, v.err
}

func TestGoogleSignIn(t *testing.T) {
	ctx := context.Background()

	t.Run("creates then links by email", func(t *testing.T) {
		svc, _ := newAuth(t, fakeValidator{payload: &idtoken.Payload{
			Subject: "g-1",
			Claims:  map[string]any{"email": "Ayu@Example.com", "email_verified": true, "given_name": "Ayu"},
		}})

		first, err := svc.GoogleSignIn(ctx, "token")
		require.NoError(t, err)
		assert.Equal(t, "ayu@example.com", first.User.Email)
		assert.Equal(t, "Ayu", first.User.FirstName)

		again, err := svc.GoogleSignIn(ctx, "token")
		require.NoError(t, err)
		assert.Equal(t, first.User.ID, again.User.ID)
	})

	t.Run("unverified email", func(t *testing.T) {
		svc, _ := newAuth(t, fakeValidator{payload: &idtoken.Payload{
			Claims: map[string]any{"email": "a@example.com", "email_verified": false},
		}})
		_, err := svc.GoogleSignIn(ctx, "token")
		assert.ErrorIs(t, err, ErrUnauthorized)
	})

	t.Run("invalid token", func(t *testing.T) {
		svc, _ := newAuth(t, fakeValidator{err: errors.New("bad signature")})
		_, err := svc.GoogleSignIn(ctx, "token")
		assert.ErrorIs(t, err, ErrUnauthorized)
	})
}
