package services

import (
	"fmt"
	"strings"
	"testing"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"karigar-market/internal/models"
	"karigar-market/internal/repository"
)

// setupTestDB opens an in-memory sqlite database scoped to the test.
// cache=shared keeps the schema alive across pooled connections; the
// single-connection cap keeps transactions on one handle.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("failed to connect database: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to get sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	err = db.AutoMigrate(
		&models.User{},
		&models.Posting{},
		&models.Submission{},
		&models.Conversation{},
		&models.Message{},
	)
	if err != nil {
		t.Fatalf("failed to migrate database: %v", err)
	}

	t.Cleanup(func() { _ = sqlDB.Close() })

	return db
}

func newTestRepo(t *testing.T) (*gorm.DB, *repository.Repository) {
	t.Helper()
	db := setupTestDB(t)
	return db, repository.NewRepository(db)
}

func createTestUser(t *testing.T, db *gorm.DB, name string, role models.UserRole) *models.User {
	t.Helper()
	user := &models.User{
		Phone:        fmt.Sprintf("+91%s%d", name, len(name)),
		PasswordHash: "x",
		Name:         name,
		Role:         role,
		PhotoURL:     "https://cdn.example/" + name + ".jpg",
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed to create user %s: %v", name, err)
	}
	return user
}
