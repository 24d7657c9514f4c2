package services

import (
	"context"
	"errors"
	"log"
	"regexp"

	"surf-leaderboard/models"
	"surf-leaderboard/utils"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_.-]{2,32}$`)

const (
	minPasswordLen = 8
	maxPasswordLen = 256
	maxBioLen      = 512
)

// UserService owns accounts and profile updates.
type UserService struct {
	DB       *gorm.DB
	SiteRoot string
}

func NewUserService(db *gorm.DB, siteRoot string) *UserService {
	return &UserService{DB: db, SiteRoot: siteRoot}
}

func validPassword(password string) bool {
	return len(password) >= minPasswordLen && len(password) <= maxPasswordLen
}

// Register creates an account with the default permission set.
func (s *UserService) Register(ctx context.Context, name, password, confirm string) (*models.User, error) {
	if !usernamePattern.MatchString(name) {
		return nil, utils.NewError(utils.KindInvalidCredentials)
	}
	if !validPassword(password) || password != confirm {
		return nil, utils.NewError(utils.KindInvalidCredentials)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, utils.ServerError("failed to hash password")
	}

	user := models.User{
		Name:         name,
		PasswordHash: string(hash),
		Permissions:  models.DefaultPermissions,
	}
	if err := s.DB.WithContext(ctx).Create(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, utils.NewError(utils.KindAlreadyExists)
		}
		return nil, utils.ServerError("failed to create user")
	}
	return &user, nil
}

// Login verifies credentials and returns the account.
func (s *UserService) Login(ctx context.Context, name, password string) (*models.User, error) {
	var user models.User
	err := s.DB.WithContext(ctx).Where("name = ?", name).First(&user).Error
	if err == gorm.ErrRecordNotFound {
		return nil, utils.NewError(utils.KindInvalidCredentials)
	}
	if err != nil {
		return nil, utils.ServerError("failed to load user")
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, utils.NewError(utils.KindInvalidCredentials)
	}
	return &user, nil
}

// GetUser loads a user with their attached rank entries.
func (s *UserService) GetUser(ctx context.Context, id int64) (*models.User, error) {
	var user models.User
	err := s.DB.WithContext(ctx).Preload("Ranks").First(&user, id).Error
	if err == gorm.ErrRecordNotFound {
		return nil, utils.NewError(utils.KindNotFound)
	}
	if err != nil {
		return nil, utils.ServerError("failed to load user")
	}
	return &user, nil
}

// GetRandomShowcaseUser picks a random user that wrote a bio.
func (s *UserService) GetRandomShowcaseUser(ctx context.Context) (*models.User, error) {
	var user models.User
	err := s.DB.WithContext(ctx).
		Where("bio IS NOT NULL AND bio <> ''").
		Order("RANDOM()").
		Preload("Ranks").
		First(&user).Error
	if err == gorm.ErrRecordNotFound {
		return nil, utils.NewError(utils.KindNotFound)
	}
	if err != nil {
		return nil, utils.ServerError("failed to load showcase user")
	}
	return &user, nil
}

// UpdateUsername renames the account.
func (s *UserService) UpdateUsername(ctx context.Context, user *models.User, name string) error {
	if !usernamePattern.MatchString(name) {
		return utils.NewError(utils.KindInvalidCredentials)
	}
	err := s.DB.WithContext(ctx).Model(user).Update("name", name).Error
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return utils.NewError(utils.KindAlreadyExists)
		}
		return utils.ServerError("failed to update username")
	}
	return nil
}

// UpdatePassword verifies the old password and stores a new hash.
func (s *UserService) UpdatePassword(ctx context.Context, user *models.User, oldPassword, newPassword string) error {
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(oldPassword)) != nil {
		return utils.NewError(utils.KindInvalidCredentials)
	}
	if !validPassword(newPassword) {
		return utils.NewError(utils.KindInvalidCredentials)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return utils.ServerError("failed to hash password")
	}
	if err := s.DB.WithContext(ctx).Model(user).Update("password_hash", string(hash)).Error; err != nil {
		return utils.ServerError("failed to update password")
	}
	return nil
}

// UpdateBio replaces the profile bio.
func (s *UserService) UpdateBio(ctx context.Context, user *models.User, bio string) error {
	if len(bio) > maxBioLen {
		return utils.NewError(utils.KindInvalidInput)
	}
	if err := s.DB.WithContext(ctx).Model(user).Update("bio", bio).Error; err != nil {
		return utils.ServerError("failed to update bio")
	}
	return nil
}

// UpdateAvatar enforces the JPEG policy and swaps the avatar file. The old
// file is removed only after the database points at the new one; the new
// file is rolled back when the database update fails.
func (s *UserService) UpdateAvatar(ctx context.Context, user *models.User, data []byte) error {
	if len(data) > utils.MaxAvatarSize || !utils.IsJPEG(data) {
		return utils.NewError(utils.KindInvalidInput)
	}

	token, err := utils.RandomFileToken()
	if err != nil {
		return utils.ServerError("failed to generate avatar name")
	}
	if err := utils.SaveAvatar(s.SiteRoot, token, data); err != nil {
		return utils.ServerError("failed to store avatar")
	}

	oldToken := user.Pfp
	if err := s.DB.WithContext(ctx).Model(user).Update("pfp", token).Error; err != nil {
		if rmErr := utils.RemoveAvatar(s.SiteRoot, token); rmErr != nil {
			log.Printf("⚠️ failed to roll back avatar %s: %v", token, rmErr)
		}
		return utils.ServerError("failed to update avatar")
	}

	if mErr := utils.MirrorToR2(ctx, "users/"+token+".jpg", data, "image/jpeg"); mErr != nil {
		log.Printf("⚠️ avatar mirror failed: %v", mErr)
	}

	if oldToken != nil {
		if rmErr := utils.RemoveAvatar(s.SiteRoot, *oldToken); rmErr != nil {
			log.Printf("⚠️ failed to remove old avatar %s: %v", *oldToken, rmErr)
		}
	}
	return nil
}
