package services

import (
    "errors"

    "github.com/davidrecordon/dawnward-sub002/config"
    "github.com/davidrecordon/dawnward-sub002/models"
    "github.com/davidrecordon/dawnward-sub002/utils"
)

func RegisterUser(email, password, fullName string) error {
	hashedPassword, err := utils.HashPassword(password)
	if err != nil {
		return err
	}

	user := models.User{
		Email:    email,
		Password: hashedPassword,
		FullName: fullName,
		Disabled: false,
	}

	result := config.DB.Create(&user)
	return result.Error
}

func AuthenticateUser(email, password string) (string, error) {
    var user models.User
    result := config.DB.Where("email = ? AND disabled = ?", email, false).First(&user)
    if result.Error != nil {
        return "", errors.New("user not found or disabled")
    }

    if user.Password == "" {
        return "", errors.New("account uses Google sign-in")
    }

    if !utils.CheckPasswordHash(password, user.Password) {
        return "", errors.New("incorrect password")
    }

    token, err := utils.GenerateJWT(user.ID, user.Email)
    if err != nil {
        return "", err
    }

    return token, nil
}

// FindOrCreateGoogleUser resolves the local user for a Google identity,
// creating one on first sign-in.
func FindOrCreateGoogleUser(email, fullName string) (*models.User, error) {
	var user models.User
	err := config.DB.Where("email = ?", email).First(&user).Error
	if err == nil {
		if user.Disabled {
			return nil, errors.New("user disabled")
		}
		return &user, nil
	}

	user = models.User{
		Email:    email,
		FullName: fullName,
	}
	if err := config.DB.Create(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}
