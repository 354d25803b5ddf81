package repo

import (
	"fmt"
	"time"

	gormMysql "gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/ianjiteshan/ShareSYNC/model"
)

// DialMySQL opens the metadata repository's backing MySQL connection
// and migrates the schema, mirroring the teacher's InitMysql shape
// but taking the DSN as a parameter instead of a package global.
func DialMySQL(host, port, user, pass, name string) (*gorm.DB, error) {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		user, pass, host, port, name,
	)
	db, err := gorm.Open(gormMysql.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("open mysql: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("get sql db: %w", err)
	}
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := autoMigrateAll(db); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return db, nil
}

func autoMigrateAll(db *gorm.DB) error {
	return db.AutoMigrate(&model.User{}, &model.Share{}, &model.DownloadEvent{})
}
