package integration

import (
	"context"
	"log"
	"os"
	"testing"

	"deepresearch-be/internal/repository/implementation"
	"deepresearch-be/internal/repository/specification"
	"deepresearch-be/pkg/database"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/stretchr/testify/assert"
)

func TestGormConnection(t *testing.T) {
	// Load .env from root
	err := godotenv.Load("../../.env")
	if err != nil {
		log.Println("No .env file found, using system env")
	}

	dsn := os.Getenv("DB_CONNECTION_STRING")
	if dsn == "" {
		t.Skip("Skipping integration test: DB_CONNECTION_STRING not set")
	}

	gormDB, err := database.NewGormDBFromDSN(dsn)
	if err != nil {
		t.Fatalf("Failed to connect to DB: %v", err)
	}

	sqlDB, _ := gormDB.DB()
	err = sqlDB.Ping()
	assert.NoError(t, err)

	sessionRepo := implementation.NewResearchSessionRepository(gormDB)
	fileRepo := implementation.NewGeneratedFileRepository(gormDB)

	// Count implies the tables exist with expected columns.
	t.Run("Check Research Session Repository", func(t *testing.T) {
		count, err := sessionRepo.Count(context.Background())
		assert.NoError(t, err)
		t.Logf("Research session count: %d", count)
	})

	t.Run("Check Generated File Repository", func(t *testing.T) {
		files, err := fileRepo.FindAll(context.Background(), specification.BySessionID{SessionID: uuid.New()})
		assert.NoError(t, err)
		assert.Empty(t, files)
	})
}
