package db

import (
	"fmt"
	"log"
	"strings"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"studyroom-backend/config"
	"studyroom-backend/internal/model"
)

// Init opens the configured database and runs migrations.
func Init(cfg *config.DatabaseConfig) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case "postgres":
		dialector = postgres.Open(cfg.DSN)
	case "mysql":
		dialector = mysql.Open(cfg.DSN)
	case "sqlite":
		dialector = sqlite.Open(cfg.DSN)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         logger.Default.LogMode(logLevel(cfg.LogLevel)),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}

	if cfg.Driver == "sqlite" {
		// One writer keeps the row-lock emulation honest.
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
		sqlDB.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetimeMinutes) * time.Minute)
	}

	if err := Migrate(db, cfg.EnableExclusionConstraint); err != nil {
		return nil, err
	}

	log.Println("Database initialization complete.")
	return db, nil
}

// Migrate creates the schema and the dialect-specific constraints.
func Migrate(db *gorm.DB, exclusion bool) error {
	log.Println("Running database migrations...")
	if err := db.AutoMigrate(
		&model.Building{},
		&model.Room{},
		&model.Reservation{},
		&model.SignIn{},
		&model.PushSubscription{},
	); err != nil {
		return fmt.Errorf("automigrate failed: %w", err)
	}

	switch db.Dialector.Name() {
	case "postgres":
		if err := applyDDL(db, postgresDDL(exclusion)); err != nil {
			return err
		}
	case "sqlite":
		if err := applyDDL(db, sqliteDDL); err != nil {
			return err
		}
	default:
		// MySQL has no partial indexes; the row locks taken by the
		// booking service are the only guard there.
		log.Printf("No extra DDL for dialect %q", db.Dialector.Name())
	}
	return nil
}

var sqliteDDL = []string{
	"CREATE UNIQUE INDEX IF NOT EXISTS uniq_active_sign_in ON sign_ins (reservation_id) WHERE status = 'active';",
}

func postgresDDL(exclusion bool) []string {
	ddls := []string{
		// 1) one active sign-in per reservation
		"CREATE UNIQUE INDEX IF NOT EXISTS uniq_active_sign_in ON sign_ins (reservation_id) WHERE status = 'active';",

		// 2) basic sanity on the stored window and headcounts
		guarded("ALTER TABLE reservations ADD CONSTRAINT reservations_window_valid " +
			"CHECK (start_minute >= 0 AND start_minute < end_minute AND end_minute <= 1440);"),
		guarded("ALTER TABLE reservations ADD CONSTRAINT reservations_people_positive CHECK (number_of_people >= 1);"),
		guarded("ALTER TABLE rooms ADD CONSTRAINT rooms_occupancy_non_negative CHECK (current_occupancy >= 0);"),
	}

	if exclusion {
		log.Println("Exclusion constraint is enabled, installing btree_gist overlap guard...")
		ddls = append(ddls,
			"CREATE EXTENSION IF NOT EXISTS btree_gist;",
			// 3) no two slot-holding reservations of a room may overlap on a date ('[)' = half-open)
			guarded("ALTER TABLE reservations ADD CONSTRAINT reservations_no_overlap EXCLUDE USING gist ("+
				"room_id WITH =, date WITH =, int4range(start_minute, end_minute, '[)') WITH &&"+
				") WHERE (status IN ('pending', 'confirmed'));"),
		)
	}
	return ddls
}

// guarded makes an ADD CONSTRAINT statement a no-op when the constraint exists.
func guarded(stmt string) string {
	return "DO $$ BEGIN " + strings.TrimSuffix(stmt, ";") +
		"; EXCEPTION WHEN duplicate_object OR duplicate_table THEN NULL; END $$;"
}

func applyDDL(db *gorm.DB, ddls []string) error {
	for _, ddl := range ddls {
		if err := db.Exec(ddl).Error; err != nil {
			return fmt.Errorf("DDL failed on %q: %w", ddl, err)
		}
	}
	return nil
}

func logLevel(level string) logger.LogLevel {
	switch strings.ToLower(level) {
	case "silent":
		return logger.Silent
	case "error":
		return logger.Error
	case "info":
		return logger.Info
	default:
		return logger.Warn
	}
}
