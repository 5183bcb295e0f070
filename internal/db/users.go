package db

import (
	"context"
	"time"

	"gorm.io/gorm/clause"

	"github.com/in-nis/classdash/internal/models"
)

func (s *Store) CreateUser(ctx context.Context, u *models.User) error {
	return translateError(s.DB.WithContext(ctx).Create(u).Error)
}

func (s *Store) UpdateUser(ctx context.Context, u *models.User) error {
	return translateError(s.DB.WithContext(ctx).Save(u).Error)
}

func (s *Store) UserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := s.DB.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		return nil, translateError(err)
	}
	return &user, nil
}

// RevokeToken records the jti as revoked. It reports false when the jti was
// already revoked, so exactly one caller wins a race on the same token.
func (s *Store) RevokeToken(ctx context.Context, tokenID string, expiresAt time.Time) (bool, error) {
	res := s.DB.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "token_id"}}, DoNothing: true}).
		Create(&models.RevokedToken{TokenID: tokenID, ExpiresAt: expiresAt})
	if res.Error != nil {
		return false, translateError(res.Error)
	}
	return res.RowsAffected == 1, nil
}

func (s *Store) IsTokenRevoked(ctx context.Context, tokenID string) (bool, error) {
	var n int64
	err := s.DB.WithContext(ctx).Model(&models.RevokedToken{}).Where("token_id = ?", tokenID).Count(&n).Error
	if err != nil {
		return false, translateError(err)
	}
	return n > 0, nil
}

// DeleteRevokedTokens removes revoked-token rows that expired before the cutoff.
func (s *Store) DeleteRevokedTokens(ctx context.Context, expiredBefore time.Time) (int64, error) {
	res := s.DB.WithContext(ctx).Where("expires_at < ?", expiredBefore).Delete(&models.RevokedToken{})
	if res.Error != nil {
		return 0, translateError(res.Error)
	}
	return res.RowsAffected, nil
}
