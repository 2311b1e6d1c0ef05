package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CredentialRow is the MySQL shape of a stored credential.
type CredentialRow struct {
	CompanyID    string    `gorm:"primaryKey;size:64"`
	AccessToken  string    `gorm:"type:text"`
	RefreshToken string    `gorm:"type:text"`
	RealmID      string    `gorm:"size:64"`
	ExpiresAt    time.Time
	UserID       *string   `gorm:"size:64"`
	UpdatedAt    time.Time
}

func (CredentialRow) TableName() string { return "quickbooks_credentials" }

// GormStore keeps credentials in a MySQL table, one row per tenant.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore opens the pool and ensures the table exists.
func NewGormStore(dsn string, maxConnection int) (*GormStore, error) {
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to open pool: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get pool: %w", err)
	}
	sqlDB.SetMaxOpenConns(maxConnection)
	sqlDB.SetMaxIdleConns(maxConnection)
	sqlDB.SetConnMaxLifetime(5 * time.Minute)

	if err := db.AutoMigrate(&CredentialRow{}); err != nil {
		return nil, fmt.Errorf("failed to migrate credentials table: %w", err)
	}

	return &GormStore{db: db}, nil
}

func (s *GormStore) Load(ctx context.Context, tenant string) (*Credential, error) {
	var row CredentialRow
	result := s.db.WithContext(ctx).First(&row, "company_id = ?", tenant)
	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if result.Error != nil {
		return nil, fmt.Errorf("load credential: %w", result.Error)
	}

	cred := &Credential{
		AccessToken:  row.AccessToken,
		RefreshToken: row.RefreshToken,
		RealmID:      row.RealmID,
		ExpiresAt:    row.ExpiresAt,
	}
	if row.UserID != nil {
		cred.UserID = *row.UserID
	}
	return cred, nil
}

func (s *GormStore) Save(ctx context.Context, tenant string, cred *Credential) error {
	row := CredentialRow{
		CompanyID:    tenant,
		AccessToken:  cred.AccessToken,
		RefreshToken: cred.RefreshToken,
		RealmID:      cred.RealmID,
		ExpiresAt:    cred.ExpiresAt,
	}
	if cred.UserID != "" {
		row.UserID = &cred.UserID
	}

	// full replace on conflict, a credential row is never merged
	if err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "company_id"}},
		UpdateAll: true,
	}).Create(&row).Error; err != nil {
		return fmt.Errorf("save credential: %w", err)
	}
	return nil
}

func (s *GormStore) Delete(ctx context.Context, tenant string) error {
	if err := s.db.WithContext(ctx).Delete(&CredentialRow{}, "company_id = ?", tenant).Error; err != nil {
		return fmt.Errorf("delete credential: %w", err)
	}
	return nil
}
