package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"ajosave/internal/domain"
	"ajosave/internal/realtime"
	"ajosave/internal/store"
	"ajosave/internal/utils"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

// Password length bounds
const (
	MinPasswordLen = 8
	MaxPasswordLen = 64
)

// Accounts covers registration, login, profile, KYC submission and
// notifications.
type Accounts struct {
	base
	jwtSecret  string
	bcryptCost int
}

// NewAccounts creates an Accounts service.
func NewAccounts(o Options, jwtSecret string) *Accounts {
	return &Accounts{base: newBase(o), jwtSecret: jwtSecret, bcryptCost: bcrypt.DefaultCost}
}

// WithBcryptCost overrides the hashing cost, for tests.
func (a *Accounts) WithBcryptCost(cost int) *Accounts {
	a.bcryptCost = cost
	return a
}

// Registration is the input to Register.
type Registration struct {
	Email    string
	FullName string
	Phone    string
	Password string
}

// Register creates a user account.
func (a *Accounts) Register(ctx context.Context, r Registration) (domain.User, error) {
	email := strings.ToLower(strings.TrimSpace(r.Email))
	if email == "" || !strings.Contains(email, "@") {
		return domain.User{}, fmt.Errorf("%w: email", ErrInvalidInput)
	}
	if len(r.Password) < MinPasswordLen || len(r.Password) > MaxPasswordLen {
		return domain.User{}, fmt.Errorf("%w: password must be %d-%d characters", ErrInvalidInput, MinPasswordLen, MaxPasswordLen)
	}
	if _, err := a.repo.UserByEmail(ctx, email); err == nil {
		return domain.User{}, ErrEmailTaken
	} else if !errors.Is(err, store.ErrNotFound) {
		return domain.User{}, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(r.Password), a.bcryptCost)
	if err != nil {
		return domain.User{}, fmt.Errorf("hashing password: %w", err)
	}
	u := domain.User{
		Email:     email,
		FullName:  strings.TrimSpace(r.FullName),
		Phone:     strings.TrimSpace(r.Phone),
		Password:  string(hash),
		Role:      domain.RoleUser,
		KYCStatus: domain.KYCNone,
	}
	if err := a.repo.CreateUser(ctx, &u); err != nil {
		if errors.Is(err, store.ErrConflict) {
			return domain.User{}, ErrEmailTaken
		}
		return domain.User{}, fmt.Errorf("creating user: %w", err)
	}
	logrus.WithFields(logrus.Fields{"user_id": u.ID}).Info("User registered")
	a.changed(ctx, "users", realtime.OpInsert, u.ID, u.ID)
	return u, nil
}

// Login checks credentials and issues a token.
func (a *Accounts) Login(ctx context.Context, email, password string) (string, domain.User, error) {
	u, err := a.repo.UserByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", domain.User{}, ErrInvalidCredential
		}
		return "", domain.User{}, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(password)); err != nil {
		return "", domain.User{}, ErrInvalidCredential
	}
	if u.Suspended {
		return "", domain.User{}, ErrSuspended
	}
	token, err := utils.GenerateJWT(u.ID, u.Role, a.jwtSecret, a.now())
	if err != nil {
		return "", domain.User{}, fmt.Errorf("issuing token: %w", err)
	}
	return token, u, nil
}

// Me returns the user's profile.
func (a *Accounts) Me(ctx context.Context, userID uint) (domain.User, error) {
	return a.repo.UserByID(ctx, userID)
}

// UpdateProfile changes the editable profile fields. Empty values are left alone.
func (a *Accounts) UpdateProfile(ctx context.Context, userID uint, fullName, phone string) (domain.User, error) {
	fields := map[string]any{}
	if v := strings.TrimSpace(fullName); v != "" {
		fields["full_name"] = v
	}
	if v := strings.TrimSpace(phone); v != "" {
		fields["phone"] = v
	}
	if len(fields) > 0 {
		if err := a.repo.UpdateUser(ctx, userID, fields); err != nil {
			return domain.User{}, err
		}
		a.changed(ctx, "users", realtime.OpUpdate, userID, userID)
	}
	return a.repo.UserByID(ctx, userID)
}

// SubmitKYC records identity details for admin review.
func (a *Accounts) SubmitKYC(ctx context.Context, userID uint, idType, idNumber string) (domain.User, error) {
	idType, idNumber = strings.TrimSpace(idType), strings.TrimSpace(idNumber)
	if idType == "" || idNumber == "" {
		return domain.User{}, fmt.Errorf("%w: id_type and id_number are required", ErrInvalidInput)
	}
	u, err := a.repo.UserByID(ctx, userID)
	if err != nil {
		return domain.User{}, err
	}
	if u.KYCStatus == domain.KYCApproved {
		return domain.User{}, ErrKYCApproved
	}
	err = a.repo.UpdateUser(ctx, userID, map[string]any{
		"kyc_status":    domain.KYCSubmitted,
		"kyc_id_type":   idType,
		"kyc_id_number": idNumber,
	})
	if err != nil {
		return domain.User{}, err
	}
	logrus.WithFields(logrus.Fields{"user_id": userID, "id_type": idType}).Info("KYC submitted")
	a.changed(ctx, "users", realtime.OpUpdate, userID, userID)
	return a.repo.UserByID(ctx, userID)
}

// NotificationLimit caps how many notifications are returned.
const NotificationLimit = 50

// Notifications lists a user's most recent notifications.
func (a *Accounts) Notifications(ctx context.Context, userID uint) ([]domain.Notification, error) {
	return a.repo.NotificationsForUser(ctx, userID, NotificationLimit)
}

// MarkRead marks one of the user's notifications as read.
func (a *Accounts) MarkRead(ctx context.Context, userID, notificationID uint) error {
	return a.repo.MarkNotificationRead(ctx, notificationID, userID)
}
