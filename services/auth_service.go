package services

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"time"

	"dietica/models"
	"dietica/utils"

	"github.com/charmbracelet/log"
	"google.golang.org/api/idtoken"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	OTPPurposeSignup = "signup"
	OTPPurposeReset  = "reset"

	otpLength      = 4
	otpTTL         = time.Minute
	maxOTPAttempts = 4
)

type Mailer interface {
	SendSignupOTP(ctx context.Context, to, code string) error
	SendResetOTP(ctx context.Context, to, code string) error
}

// IDTokenValidator checks a Google ID token; *idtoken.Validator satisfies it.
type IDTokenValidator interface {
	Validate(ctx context.Context, idToken, audience string) (*idtoken.Payload, error)
}

type AuthService struct {
	db             *gorm.DB
	mailer         Mailer
	google         IDTokenValidator
	googleClientID string
	jwtSecret      string
	log            *log.Logger
	now            func() time.Time
}

func NewAuthService(db *gorm.DB, mailer Mailer, google IDTokenValidator, googleClientID, jwtSecret string, logger *log.Logger) *AuthService {
	return &AuthService{
		db:             db,
		mailer:         mailer,
		google:         google,
		googleClientID: googleClientID,
		jwtSecret:      jwtSecret,
		log:            logger,
		now:            time.Now,
	}
}

type AuthResult struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

func normalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if _, err := mail.ParseAddress(email); err != nil {
		return "", invalidf("invalid email format")
	}
	return email, nil
}

// RequestOTP stores a fresh code for (email, purpose) and mails it. Requesting
// again replaces the previous code and resets the attempt counter.
func (s *AuthService) RequestOTP(ctx context.Context, email, purpose string) error {
	email, err := normalizeEmail(email)
	if err != nil {
		return err
	}
	if purpose != OTPPurposeSignup && purpose != OTPPurposeReset {
		return invalidf("unknown otp purpose %q", purpose)
	}

	code, err := utils.GenerateOTP(otpLength)
	if err != nil {
		return err
	}
	row := models.OtpCode{Email: email, Purpose: purpose, Code: code, ExpiresAt: s.now().Add(otpTTL)}
	err = s.db.WithContext(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(&row).Error
	if err != nil {
		return dbErr("store otp", err)
	}

	send := s.mailer.SendSignupOTP
	if purpose == OTPPurposeReset {
		send = s.mailer.SendResetOTP
	}
	if err := send(ctx, email, code); err != nil {
		return transport("send otp", err)
	}
	s.log.Info("otp sent", "email", email, "purpose", purpose)
	return nil
}

// VerifyOTP checks a code. At most maxOTPAttempts are allowed per TTL window;
// a verified code cannot be verified again.
func (s *AuthService) VerifyOTP(ctx context.Context, email, purpose, code string) error {
	email, err := normalizeEmail(email)
	if err != nil {
		return err
	}

	db := s.db.WithContext(ctx)
	var row models.OtpCode
	if err := db.Where("email = ? AND purpose = ?", email, purpose).First(&row).Error; err != nil {
		return dbErr("find otp", err)
	}

	now := s.now()
	if now.Sub(row.LastAttemptAt) > otpTTL {
		row.Attempts = 0
	}
	if row.Attempts >= maxOTPAttempts {
		return ErrTooManyAttempts
	}
	// The attempt is recorded before the code is compared.
	err = db.Model(&row).Updates(map[string]any{"attempts": row.Attempts + 1, "last_attempt_at": now}).Error
	if err != nil {
		return dbErr("track otp attempt", err)
	}

	switch {
	case row.Verified:
		return invalidf("code already used, request a new one")
	case now.After(row.ExpiresAt):
		return invalidf("otp has expired")
	case strings.TrimSpace(code) != row.Code:
		return invalidf("invalid otp")
	}
	return dbErr("mark otp verified", db.Model(&row).Update("verified", true).Error)
}

// consumeVerifiedOTP deletes a verified code so it authorises one action only.
func consumeVerifiedOTP(tx *gorm.DB, email, purpose string) error {
	res := tx.Where("email = ? AND purpose = ? AND verified = ?", email, purpose, true).Delete(&models.OtpCode{})
	if res.Error != nil {
		return dbErr("consume otp", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrUnauthorized
	}
	return nil
}

type FinalizeSignupReq struct {
	Email           string `json:"email" binding:"required"`
	Password        string `json:"password" binding:"required,min=8"`
	ConfirmPassword string `json:"confirm_password" binding:"required"`
	FirstName       string `json:"first_name" binding:"required"`
	LastName        string `json:"last_name"`
}

func (s *AuthService) FinalizeSignup(ctx context.Context, req FinalizeSignupReq) (*AuthResult, error) {
	email, err := normalizeEmail(req.Email)
	if err != nil {
		return nil, err
	}
	if req.Password != req.ConfirmPassword {
		return nil, invalidf("passwords do not match")
	}
	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	user := &models.User{Email: email, Password: hash, FirstName: req.FirstName, LastName: req.LastName}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&models.User{}).Where("email = ?", email).Count(&n).Error; err != nil {
			return dbErr("check user", err)
		}
		if n > 0 {
			return ErrConflict
		}
		if err := consumeVerifiedOTP(tx, email, OTPPurposeSignup); err != nil {
			return err
		}
		return dbErr("create user", tx.Create(user).Error)
	})
	if err != nil {
		return nil, err
	}
	return s.issue(user)
}

func (s *AuthService) SignIn(ctx context.Context, email, password string) (*AuthResult, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return nil, err
	}
	var user models.User
	err = s.db.WithContext(ctx).Where("email = ? AND disabled = ?", email, false).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUnauthorized
		}
		return nil, dbErr("find user", err)
	}
	if user.Password == "" || !utils.CheckPassword(user.Password, password) {
		return nil, ErrUnauthorized
	}
	return s.issue(&user)
}

type ResetPasswordReq struct {
	Email           string `json:"email" binding:"required"`
	Password        string `json:"password" binding:"required,min=8"`
	ConfirmPassword string `json:"confirm_password" binding:"required"`
}

func (s *AuthService) ResetPassword(ctx context.Context, req ResetPasswordReq) error {
	email, err := normalizeEmail(req.Email)
	if err != nil {
		return err
	}
	if req.Password != req.ConfirmPassword {
		return invalidf("passwords do not match")
	}
	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		return err
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := consumeVerifiedOTP(tx, email, OTPPurposeReset); err != nil {
			return err
		}
		res := tx.Model(&models.User{}).Where("email = ?", email).Update("password", hash)
		if res.Error != nil {
			return dbErr("reset password", res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// GoogleSignIn verifies a Google ID token and signs in the matching user,
// creating or linking an account by email.
func (s *AuthService) GoogleSignIn(ctx context.Context, idToken string) (*AuthResult, error) {
	if s.google == nil || s.googleClientID == "" {
		return nil, transport("google sign-in", errors.New("GOOGLE_CLIENT_ID not set"))
	}
	payload, err := s.google.Validate(ctx, idToken, s.googleClientID)
	if err != nil {
		return nil, ErrUnauthorized
	}
	email, _ := payload.Claims["email"].(string)
	if verified, _ := payload.Claims["email_verified"].(bool); !verified || email == "" {
		return nil, ErrUnauthorized
	}
	email = strings.ToLower(email)

	var user models.User
	err = s.db.WithContext(ctx).Where("email = ?", email).First(&user).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		first, _ := payload.Claims["given_name"].(string)
		last, _ := payload.Claims["family_name"].(string)
		user = models.User{Email: email, GoogleSub: payload.Subject, FirstName: first, LastName: last}
		if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
			return nil, dbErr("create user", err)
		}
	case err != nil:
		return nil, dbErr("find user", err)
	case user.Disabled:
		return nil, ErrUnauthorized
	case user.GoogleSub == "":
		user.GoogleSub = payload.Subject
		if err := s.db.WithContext(ctx).Model(&user).Update("google_sub", payload.Subject).Error; err != nil {
			return nil, dbErr("link google account", err)
		}
	}
	return s.issue(&user)
}

func (s *AuthService) issue(user *models.User) (*AuthResult, error) {
	token, err := utils.GenerateJWT(s.jwtSecret, user.ID, user.Email)
	if err != nil {
		return nil, err
	}
	return &AuthResult{Token: token, User: user}, nil
}
