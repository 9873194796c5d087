package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"dietica/models"
	"dietica/utils"

	"github.com/charmbracelet/log"
	"gorm.io/gorm"
)

type ImageStore interface {
	UploadImage(ctx context.Context, prefix string, img *utils.DataURI) (key, url string, err error)
	DeleteImage(ctx context.Context, key string) error
}

// ProfileInput is a partial update; nil fields are left unchanged.
type ProfileInput struct {
	FirstName         *string  `json:"first_name"`
	LastName          *string  `json:"last_name"`
	Birthdate         *string  `json:"birthdate"` // YYYY-MM-DD
	Weight            *float64 `json:"weight"`
	Height            *float64 `json:"height"`
	Gender            *string  `json:"gender"`
	ActivityLevel     *string  `json:"activity_level"`
	Medicine          *string  `json:"medicine"`
	Illnesses         *string  `json:"illnesses"`
	SoftDrinkFastFood *int     `json:"soft_drink_fast_food"`
}

type ProfileView struct {
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Age       int    `json:"age"`
	*models.UserProfile
	BMI *utils.BMIReading `json:"bmi,omitempty"`
}

type TargetInput struct {
	CurrentWeight float64 `json:"current_weight" binding:"required,gt=0"`
	TargetWeight  float64 `json:"target_weight" binding:"required,gt=0"`
	DurationWeeks int     `json:"duration_weeks" binding:"required,gt=0"`
}

type ProfileService struct {
	db     *gorm.DB
	images ImageStore
	log    *log.Logger
	now    func() time.Time
}

func NewProfileService(db *gorm.DB, images ImageStore, logger *log.Logger) *ProfileService {
	return &ProfileService{db: db, images: images, log: logger, now: time.Now}
}

func (s *ProfileService) user(ctx context.Context, userID uint) (*models.User, error) {
	var u models.User
	if err := s.db.WithContext(ctx).Where("disabled = ?", false).First(&u, userID).Error; err != nil {
		return nil, dbErr("find user", err)
	}
	return &u, nil
}

// profileRow returns the stored profile or an unsaved empty one.
func (s *ProfileService) profileRow(ctx context.Context, userID uint) (*models.UserProfile, error) {
	var p models.UserProfile
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &models.UserProfile{UserID: userID}, nil
	}
	if err != nil {
		return nil, dbErr("find profile", err)
	}
	return &p, nil
}

func (s *ProfileService) Get(ctx context.Context, userID uint) (*ProfileView, error) {
	u, err := s.user(ctx, userID)
	if err != nil {
		return nil, err
	}
	p, err := s.profileRow(ctx, userID)
	if err != nil {
		return nil, err
	}
	view := &ProfileView{
		Email:       u.Email,
		FirstName:   u.FirstName,
		LastName:    u.LastName,
		Age:         utils.AgeOn(p.Birthdate, s.now()),
		UserProfile: p,
	}
	if bmi, err := utils.ReadBMI(p.Height, p.Weight); err == nil {
		view.BMI = &bmi
	}
	return view, nil
}

func (s *ProfileService) Update(ctx context.Context, userID uint, in ProfileInput) (*ProfileView, error) {
	u, err := s.user(ctx, userID)
	if err != nil {
		return nil, err
	}
	p, err := s.profileRow(ctx, userID)
	if err != nil {
		return nil, err
	}

	if in.FirstName != nil {
		u.FirstName = *in.FirstName
	}
	if in.LastName != nil {
		u.LastName = *in.LastName
	}
	if in.Birthdate != nil {
		b, err := time.Parse(time.DateOnly, *in.Birthdate)
		if err != nil || b.After(s.now()) {
			return nil, invalidf("birthdate must be a past date in YYYY-MM-DD")
		}
		p.Birthdate = &b
	}
	if in.Weight != nil {
		if *in.Weight <= 0 {
			return nil, invalidf("weight must be positive")
		}
		p.Weight = *in.Weight
	}
	if in.Height != nil {
		if *in.Height <= 0 {
			return nil, invalidf("height must be positive")
		}
		p.Height = *in.Height
	}
	if in.Gender != nil {
		p.Gender = *in.Gender
	}
	if in.ActivityLevel != nil {
		p.ActivityLevel = *in.ActivityLevel
	}
	if in.Medicine != nil {
		p.Medicine = *in.Medicine
	}
	if in.Illnesses != nil {
		p.Illnesses = *in.Illnesses
	}
	if in.SoftDrinkFastFood != nil {
		if *in.SoftDrinkFastFood < 0 {
			return nil, invalidf("soft_drink_fast_food must not be negative")
		}
		p.SoftDrinkFastFood = *in.SoftDrinkFastFood
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(u).Error; err != nil {
			return err
		}
		return tx.Save(p).Error
	})
	if err != nil {
		return nil, dbErr("update profile", err)
	}
	return s.Get(ctx, userID)
}

// UploadPhoto stores a base64 data-URI image and replaces the previous photo.
func (s *ProfileService) UploadPhoto(ctx context.Context, userID uint, dataURI string) (string, error) {
	img, err := utils.ParseDataURI(dataURI)
	if err != nil {
		return "", invalidf("%v", err)
	}
	p, err := s.profileRow(ctx, userID)
	if err != nil {
		return "", err
	}

	key, url, err := s.images.UploadImage(ctx, fmt.Sprintf("profile-pictures/%d", userID), img)
	if err != nil {
		return "", transport("upload photo", err)
	}
	oldKey := p.PhotoKey
	p.PhotoKey, p.PhotoURL = key, url
	if err := s.db.WithContext(ctx).Save(p).Error; err != nil {
		return "", dbErr("save photo", err)
	}

	if oldKey != "" {
		if err := s.images.DeleteImage(ctx, oldKey); err != nil {
			s.log.Warn("old profile photo not deleted", "user", userID, "key", oldKey, "err", err)
		}
	}
	return url, nil
}

func (s *ProfileService) DeletePhoto(ctx context.Context, userID uint) error {
	p, err := s.profileRow(ctx, userID)
	if err != nil {
		return err
	}
	if p.PhotoKey == "" {
		return fmt.Errorf("profile photo: %w", ErrNotFound)
	}
	if err := s.images.DeleteImage(ctx, p.PhotoKey); err != nil {
		return transport("delete photo", err)
	}
	err = s.db.WithContext(ctx).Model(p).Updates(map[string]any{"photo_key": "", "photo_url": ""}).Error
	return dbErr("clear photo", err)
}

func (s *ProfileService) GetTarget(ctx context.Context, userID uint) (*models.UserTarget, error) {
	var t models.UserTarget
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&t).Error; err != nil {
		return nil, dbErr("get target", err)
	}
	return &t, nil
}

// SetTarget creates the user's target or overwrites the existing one.
func (s *ProfileService) SetTarget(ctx context.Context, userID uint, in TargetInput) (*models.UserTarget, error) {
	var t models.UserTarget
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&t).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, dbErr("find target", err)
	}
	t.UserID = userID
	t.CurrentWeight = in.CurrentWeight
	t.TargetWeight = in.TargetWeight
	t.DurationWeeks = in.DurationWeeks
	if err := s.db.WithContext(ctx).Save(&t).Error; err != nil {
		return nil, dbErr("save target", err)
	}
	return &t, nil
}
