package tasks

import (
	"testing"

	"github.com/alicebob/miniredis/v2"
	"gorm.io/gorm"

	"installment_app_echo/internal/models"
	"installment_app_echo/internal/services"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := services.InitDB("sqlite::memory:")
	if err != nil {
		t.Fatalf("InitDB: %v", err)
	}
	if err := services.AutoMigrate(db); err != nil {
		t.Fatalf("AutoMigrate: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

func reloadTask(t *testing.T, db *gorm.DB, id uint) models.ScheduledTask {
	t.Helper()
	var task models.ScheduledTask
	if err := db.First(&task, id).Error; err != nil {
		t.Fatalf("reload task %d: %v", id, err)
	}
	return task
}

func newTestCache(t *testing.T) (*services.RedisCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	cache, err := services.NewRedisCache("redis://" + mr.Addr())
	if err != nil {
		t.Fatalf("NewRedisCache: %v", err)
	}
	t.Cleanup(func() { cache.Close() })
	return cache, mr
}
