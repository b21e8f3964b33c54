package db

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"studyroom-backend/config"
	"studyroom-backend/internal/model"
)

func TestInit_Sqlite(t *testing.T) {
	gdb, err := Init(&config.DatabaseConfig{Driver: "sqlite", DSN: "file::memory:", LogLevel: "silent"})
	require.NoError(t, err)

	for _, table := range []string{"buildings", "rooms", "reservations", "sign_ins", "push_subscriptions", "subscription_room_mapping"} {
		assert.True(t, gdb.Migrator().HasTable(table), "table %s should exist", table)
	}
}

func TestInit_UnknownDriver(t *testing.T) {
	_, err := Init(&config.DatabaseConfig{Driver: "oracle", DSN: "x"})
	assert.Error(t, err)
}

func TestMigrate_IdempotentAndActiveSignInUnique(t *testing.T) {
	gdb, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, Migrate(gdb, false))
	require.NoError(t, Migrate(gdb, false))

	reservationID := uuid.New()
	first := model.SignIn{ReservationID: reservationID, UserID: 1, RoomID: 1, BuildingID: 1, SignInTime: time.Now(), Status: model.SignInActive}
	require.NoError(t, gdb.Create(&first).Error)

	second := model.SignIn{ReservationID: reservationID, UserID: 1, RoomID: 1, BuildingID: 1, SignInTime: time.Now(), Status: model.SignInActive}
	err = gdb.Create(&second).Error
	assert.ErrorIs(t, err, gorm.ErrDuplicatedKey)

	// a closed sign-in does not count against the index
	closed := model.SignIn{ReservationID: reservationID, UserID: 1, RoomID: 1, BuildingID: 1, SignInTime: time.Now(), Status: model.SignInCompleted}
	assert.NoError(t, gdb.Create(&closed).Error)
}

func TestPostgresDDL(t *testing.T) {
	without := postgresDDL(false)
	with := postgresDDL(true)

	assert.Len(t, with, len(without)+2)
	assert.Contains(t, with[len(with)-1], "EXCLUDE USING gist")
	assert.Contains(t, with[len(with)-1], "int4range(start_minute, end_minute, '[)')")
	for _, ddl := range without {
		assert.NotContains(t, ddl, "EXCLUDE")
	}
}

func TestGuarded(t *testing.T) {
	got := guarded("ALTER TABLE rooms ADD CONSTRAINT c CHECK (x > 0);")
	assert.Equal(t,
		"DO $$ BEGIN ALTER TABLE rooms ADD CONSTRAINT c CHECK (x > 0); EXCEPTION WHEN duplicate_object OR duplicate_table THEN NULL; END $$;",
		got)
}
