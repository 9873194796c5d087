package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"dietica/models"

	"github.com/aws/aws-sdk-go-v2/aws"
	awssns "github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/charmbracelet/log"
	"gorm.io/gorm"
)

// Notifier delivers a push notification to one endpoint.
type Notifier interface {
	Send(ctx context.Context, token, title, body string) error
}

type SNSAPI interface {
	CreatePlatformEndpoint(ctx context.Context, in *awssns.CreatePlatformEndpointInput, optFns ...func(*awssns.Options)) (*awssns.CreatePlatformEndpointOutput, error)
	Publish(ctx context.Context, in *awssns.PublishInput, optFns ...func(*awssns.Options)) (*awssns.PublishOutput, error)
}

type PushService struct {
	db             *gorm.DB
	sns            SNSAPI
	fcmPlatformArn string
	log            *log.Logger
}

func NewPushService(db *gorm.DB, client SNSAPI, fcmPlatformArn string, logger *log.Logger) *PushService {
	return &PushService{db: db, sns: client, fcmPlatformArn: fcmPlatformArn, log: logger}
}

type RegisterDeviceReq struct {
	Platform string `json:"platform" binding:"required"` // "android" | "ios"
	Token    string `json:"token" binding:"required"`
}

func tokenHash(tok string) string {
	h := sha256.Sum256([]byte(tok))
	return hex.EncodeToString(h[:])
}

func (p *PushService) platformArn(platform string) (string, error) {
	switch strings.ToLower(platform) {
	case "android", "ios":
		if p.fcmPlatformArn == "" {
			return "", transport("push", fmt.Errorf("SNS_FCM_ARN not set"))
		}
		return p.fcmPlatformArn, nil
	default:
		return "", invalidf("unknown platform %q", platform)
	}
}

// RegisterDevice creates (or refreshes) the SNS endpoint for a device token.
// Refreshing bumps UpdatedAt, which marks the user as active.
func (p *PushService) RegisterDevice(ctx context.Context, userID uint, req RegisterDeviceReq) (*models.UserDevice, error) {
	appArn, err := p.platformArn(req.Platform)
	if err != nil {
		return nil, err
	}

	out, err := p.sns.CreatePlatformEndpoint(ctx, &awssns.CreatePlatformEndpointInput{
		PlatformApplicationArn: aws.String(appArn),
		Token:                  aws.String(req.Token),
	})
	if err != nil {
		return nil, transport("create platform endpoint", err)
	}

	hash := tokenHash(req.Token)
	db := p.db.WithContext(ctx)
	var dev models.UserDevice
	err = db.Where("user_id = ? AND token_hash = ?", userID, hash).First(&dev).Error
	switch {
	case err == nil:
		dev.EndpointARN = aws.ToString(out.EndpointArn)
		dev.Platform = strings.ToLower(req.Platform)
		dev.UpdatedAt = time.Now().UTC()
		if err := db.Save(&dev).Error; err != nil {
			return nil, dbErr("update device", err)
		}
	case errors.Is(err, gorm.ErrRecordNotFound):
		dev = models.UserDevice{
			UserID:      userID,
			Platform:    strings.ToLower(req.Platform),
			TokenHash:   hash,
			EndpointARN: aws.ToString(out.EndpointArn),
			Enabled:     p.notificationsEnabled(ctx, userID),
		}
		if err := db.Create(&dev).Error; err != nil {
			return nil, dbErr("create device", err)
		}
	default:
		return nil, dbErr("find device", err)
	}
	return &dev, nil
}

// notificationsEnabled carries a user's previous opt-out over to new devices.
func (p *PushService) notificationsEnabled(ctx context.Context, userID uint) bool {
	var disabled int64
	p.db.WithContext(ctx).Model(&models.UserDevice{}).
		Where("user_id = ? AND enabled = ?", userID, false).Count(&disabled)
	return disabled == 0
}

// SetNotifications turns push delivery on or off for all of a user's devices.
func (p *PushService) SetNotifications(ctx context.Context, userID uint, enabled bool) error {
	err := p.db.WithContext(ctx).Model(&models.UserDevice{}).
		Where("user_id = ?", userID).
		Update("enabled", enabled).Error
	return dbErr("set notifications", err)
}

func gcmMessage(title, body string, data map[string]string) (string, error) {
	gcm, err := json.Marshal(map[string]any{
		"notification": map[string]string{"title": title, "body": body},
		"data":         data,
	})
	if err != nil {
		return "", err
	}
	raw, err := json.Marshal(map[string]string{"default": body, "GCM": string(gcm)})
	return string(raw), err
}

// Send publishes to one SNS endpoint ARN.
func (p *PushService) Send(ctx context.Context, token, title, body string) error {
	msg, err := gcmMessage(title, body, nil)
	if err != nil {
		return err
	}
	_, err = p.sns.Publish(ctx, &awssns.PublishInput{
		MessageStructure: aws.String("json"),
		Message:          aws.String(msg),
		TargetArn:        aws.String(token),
	})
	if err != nil {
		return transport("sns publish", err)
	}
	return nil
}

// PushToUser sends to every enabled device of a user. Delivery failures are
// logged, not returned.
func (p *PushService) PushToUser(ctx context.Context, userID uint, title, body string, data map[string]string) {
	var devices []models.UserDevice
	if err := p.db.WithContext(ctx).Where("user_id = ? AND enabled = ?", userID, true).Find(&devices).Error; err != nil {
		p.log.Warn("push: list devices", "user", userID, "err", err)
		return
	}
	msg, err := gcmMessage(title, body, data)
	if err != nil {
		p.log.Warn("push: encode message", "err", err)
		return
	}
	for _, d := range devices {
		_, err := p.sns.Publish(ctx, &awssns.PublishInput{
			MessageStructure: aws.String("json"),
			Message:          aws.String(msg),
			TargetArn:        aws.String(d.EndpointARN),
		})
		if err != nil {
			p.log.Warn("push: publish", "user", userID, "device", d.ID, "err", err)
		}
	}
}
