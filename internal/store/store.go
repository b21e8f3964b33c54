package store

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"studyroom-backend/internal/model"
)

var (
	// ErrNotFound is returned when a lookup matches no row.
	ErrNotFound = errors.New("record not found")
	// ErrOverlap is returned when the database rejects overlapping reservations.
	ErrOverlap = errors.New("reservation overlaps an existing one")
	// ErrDuplicate is returned on a unique constraint violation.
	ErrDuplicate = errors.New("duplicate record")
)

const (
	pgExclusionViolation = "23P01"
	pgUniqueViolation    = "23505"
)

// Store defines the interface for all database operations.
type Store interface {
	DB() *gorm.DB
	// InTx runs fn against a Store bound to a single transaction.
	InTx(ctx context.Context, fn func(Store) error) error

	UpsertCatalog(ctx context.Context, buildings []CatalogBuilding) error

	ListBuildings(ctx context.Context) ([]BuildingSummary, error)
	GetBuilding(ctx context.Context, id int64) (*model.Building, error)
	ListRooms(ctx context.Context, buildingID int64) ([]model.Room, error)
	GetRoom(ctx context.Context, id int64) (*model.Room, error)
	LockRoom(ctx context.Context, id int64) (*model.Room, error)
	AdjustOccupancy(ctx context.Context, roomID int64, delta int) (*model.Room, error)
	SetMaintenance(ctx context.Context, roomID int64, on bool) (*model.Room, error)

	ActiveReservations(ctx context.Context, roomID int64, date string) ([]model.Reservation, error)
	GetReservation(ctx context.Context, id uuid.UUID) (*model.Reservation, error)
	LockReservation(ctx context.Context, id uuid.UUID) (*model.Reservation, error)
	ListReservations(ctx context.Context, f ReservationFilter) ([]model.Reservation, int64, error)
	CreateReservation(ctx context.Context, r *model.Reservation) error
	SaveReservation(ctx context.Context, r *model.Reservation) error

	GetSignIn(ctx context.Context, id uuid.UUID) (*model.SignIn, error)
	LockSignIn(ctx context.Context, id uuid.UUID) (*model.SignIn, error)
	ActiveSignIn(ctx context.Context, reservationID uuid.UUID) (*model.SignIn, error)
	ListSignIns(ctx context.Context, f SignInFilter) ([]model.SignIn, error)
	CreateSignIn(ctx context.Context, s *model.SignIn) error
	SaveSignIn(ctx context.Context, s *model.SignIn) error
}

// gormStore implements the Store interface using GORM.
type gormStore struct {
	db *gorm.DB
}

// NewGormStore creates a new GORM-backed store.
func NewGormStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

func (s *gormStore) DB() *gorm.DB {
	return s.db
}

func (s *gormStore) InTx(ctx context.Context, fn func(Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormStore{db: tx})
	})
}

// UpsertCatalog creates or refreshes the configured buildings and rooms.
// Occupancy and maintenance state of existing rooms is left untouched.
func (s *gormStore) UpsertCatalog(ctx context.Context, buildings []CatalogBuilding) error {
	if len(buildings) == 0 {
		return nil
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		buildingList := make([]model.Building, 0, len(buildings))
		for _, b := range buildings {
			buildingList = append(buildingList, model.Building{Name: b.Name, Code: b.Code})
		}

		log.Printf("Batch upserting %d buildings...", len(buildingList))
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "name"}},
			DoUpdates: clause.AssignmentColumns([]string{"code", "updated_at"}),
		}).Create(&buildingList).Error; err != nil {
			return fmt.Errorf("batch upsert buildings failed: %w", err)
		}

		var allBuildings []model.Building
		if err := tx.Find(&allBuildings).Error; err != nil {
			return fmt.Errorf("failed to retrieve buildings after upsert: %w", err)
		}
		byName := make(map[string]int64, len(allBuildings))
		for _, b := range allBuildings {
			byName[b.Name] = b.ID
		}

		var rooms []model.Room
		for _, b := range buildings {
			buildingID, ok := byName[b.Name]
			if !ok {
				log.Printf("Error: could not find building %q after upserting. Skipping its rooms.", b.Name)
				continue
			}
			for _, r := range b.Rooms {
				rooms = append(rooms, model.Room{
					BuildingID: buildingID,
					Name:       r.Name,
					Floor:      r.Floor,
					Capacity:   r.Capacity,
				})
			}
		}
		if len(rooms) == 0 {
			return nil
		}

		log.Printf("Batch upserting %d rooms...", len(rooms))
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "building_id"}, {Name: "name"}},
			DoUpdates: clause.AssignmentColumns([]string{"floor", "capacity", "updated_at"}),
		}).Create(&rooms).Error; err != nil {
			return fmt.Errorf("batch upsert rooms failed: %w", err)
		}
		return nil
	})
}

func (s *gormStore) ListBuildings(ctx context.Context) ([]BuildingSummary, error) {
	var out []BuildingSummary
	err := s.db.WithContext(ctx).
		Table("buildings b").
		Select(`b.id, b.name, b.code,
			COUNT(r.id) AS total_rooms,
			COALESCE(SUM(r.capacity), 0) AS total_capacity,
			COALESCE(SUM(r.current_occupancy), 0) AS current_occupancy`).
		Joins("LEFT JOIN rooms r ON r.building_id = b.id").
		Group("b.id, b.name, b.code").
		Order("b.name").
		Scan(&out).Error
	if err != nil {
		return nil, fmt.Errorf("list buildings: %w", err)
	}
	return out, nil
}

func (s *gormStore) GetBuilding(ctx context.Context, id int64) (*model.Building, error) {
	var b model.Building
	if err := s.db.WithContext(ctx).First(&b, "id = ?", id).Error; err != nil {
		return nil, translateReadErr(err)
	}
	return &b, nil
}

func (s *gormStore) ListRooms(ctx context.Context, buildingID int64) ([]model.Room, error) {
	var rooms []model.Room
	if err := s.db.WithContext(ctx).
		Where("building_id = ?", buildingID).
		Order("floor, name").
		Find(&rooms).Error; err != nil {
		return nil, fmt.Errorf("list rooms: %w", err)
	}
	return rooms, nil
}

func (s *gormStore) GetRoom(ctx context.Context, id int64) (*model.Room, error) {
	var r model.Room
	if err := s.db.WithContext(ctx).First(&r, "id = ?", id).Error; err != nil {
		return nil, translateReadErr(err)
	}
	return &r, nil
}

// LockRoom reads a room with a row lock. It serializes writers that check
// and insert reservations for the same room.
func (s *gormStore) LockRoom(ctx context.Context, id int64) (*model.Room, error) {
	var r model.Room
	if err := s.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&r, "id = ?", id).Error; err != nil {
		return nil, translateReadErr(err)
	}
	return &r, nil
}

// AdjustOccupancy applies delta to current_occupancy in a single statement and
// returns the refreshed room. The result never drops below zero.
func (s *gormStore) AdjustOccupancy(ctx context.Context, roomID int64, delta int) (*model.Room, error) {
	var expr clause.Expr
	if delta >= 0 {
		expr = gorm.Expr("current_occupancy + ?", delta)
	} else {
		expr = gorm.Expr("CASE WHEN current_occupancy + ? < 0 THEN 0 ELSE current_occupancy + ? END", delta, delta)
	}

	res := s.db.WithContext(ctx).
		Model(&model.Room{}).
		Where("id = ?", roomID).
		Update("current_occupancy", expr)
	if res.Error != nil {
		return nil, fmt.Errorf("adjust occupancy of room %d: %w", roomID, res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, ErrNotFound
	}
	return s.GetRoom(ctx, roomID)
}

func (s *gormStore) SetMaintenance(ctx context.Context, roomID int64, on bool) (*model.Room, error) {
	res := s.db.WithContext(ctx).
		Model(&model.Room{}).
		Where("id = ?", roomID).
		Update("under_maintenance", on)
	if res.Error != nil {
		return nil, fmt.Errorf("set maintenance on room %d: %w", roomID, res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, ErrNotFound
	}
	return s.GetRoom(ctx, roomID)
}

// ActiveReservations returns the slot-holding reservations of a room on a date.
func (s *gormStore) ActiveReservations(ctx context.Context, roomID int64, date string) ([]model.Reservation, error) {
	var out []model.Reservation
	if err := s.db.WithContext(ctx).
		Where("room_id = ? AND date = ? AND status IN ?", roomID, date, model.BlockingStatuses).
		Order("start_minute").
		Find(&out).Error; err != nil {
		return nil, fmt.Errorf("active reservations: %w", err)
	}
	return out, nil
}

func (s *gormStore) GetReservation(ctx context.Context, id uuid.UUID) (*model.Reservation, error) {
	var r model.Reservation
	if err := s.db.WithContext(ctx).First(&r, "id = ?", id.String()).Error; err != nil {
		return nil, translateReadErr(err)
	}
	return &r, nil
}

func (s *gormStore) LockReservation(ctx context.Context, id uuid.UUID) (*model.Reservation, error) {
	var r model.Reservation
	if err := s.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&r, "id = ?", id.String()).Error; err != nil {
		return nil, translateReadErr(err)
	}
	return &r, nil
}

func (s *gormStore) ListReservations(ctx context.Context, f ReservationFilter) ([]model.Reservation, int64, error) {
	q := s.db.WithContext(ctx).Model(&model.Reservation{})
	if f.UserID != 0 {
		q = q.Where("user_id = ?", f.UserID)
	}
	if f.RoomID != 0 {
		q = q.Where("room_id = ?", f.RoomID)
	}
	if f.Date != "" {
		q = q.Where("date = ?", f.Date)
	}
	if len(f.Statuses) > 0 {
		q = q.Where("status IN ?", f.Statuses)
	}

	var total int64
	if err := q.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count reservations: %w", err)
	}

	page, size := f.Page, f.PageSize
	if page < 1 {
		page = 1
	}
	if size < 1 || size > 100 {
		size = 20
	}

	var out []model.Reservation
	if err := q.Session(&gorm.Session{}).
		Order("date DESC, start_minute DESC").
		Offset((page - 1) * size).
		Limit(size).
		Find(&out).Error; err != nil {
		return nil, 0, fmt.Errorf("list reservations: %w", err)
	}
	return out, total, nil
}

func (s *gormStore) CreateReservation(ctx context.Context, r *model.Reservation) error {
	if err := s.db.WithContext(ctx).Create(r).Error; err != nil {
		return translateWriteErr(err)
	}
	return nil
}

func (s *gormStore) SaveReservation(ctx context.Context, r *model.Reservation) error {
	if err := s.db.WithContext(ctx).Save(r).Error; err != nil {
		return translateWriteErr(err)
	}
	return nil
}

func (s *gormStore) GetSignIn(ctx context.Context, id uuid.UUID) (*model.SignIn, error) {
	var si model.SignIn
	if err := s.db.WithContext(ctx).First(&si, "id = ?", id.String()).Error; err != nil {
		return nil, translateReadErr(err)
	}
	return &si, nil
}

func (s *gormStore) LockSignIn(ctx context.Context, id uuid.UUID) (*model.SignIn, error) {
	var si model.SignIn
	if err := s.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&si, "id = ?", id.String()).Error; err != nil {
		return nil, translateReadErr(err)
	}
	return &si, nil
}

// ActiveSignIn returns the active sign-in of a reservation, or nil if there is none.
func (s *gormStore) ActiveSignIn(ctx context.Context, reservationID uuid.UUID) (*model.SignIn, error) {
	var list []model.SignIn
	if err := s.db.WithContext(ctx).
		Where("reservation_id = ? AND status = ?", reservationID.String(), model.SignInActive).
		Limit(1).
		Find(&list).Error; err != nil {
		return nil, fmt.Errorf("active sign-in: %w", err)
	}
	if len(list) == 0 {
		return nil, nil
	}
	return &list[0], nil
}

func (s *gormStore) ListSignIns(ctx context.Context, f SignInFilter) ([]model.SignIn, error) {
	q := s.db.WithContext(ctx).Model(&model.SignIn{})
	if f.UserID != 0 {
		q = q.Where("user_id = ?", f.UserID)
	}
	if f.ReservationID != uuid.Nil {
		q = q.Where("reservation_id = ?", f.ReservationID.String())
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}

	var out []model.SignIn
	if err := q.Order("sign_in_time DESC").Find(&out).Error; err != nil {
		return nil, fmt.Errorf("list sign-ins: %w", err)
	}
	return out, nil
}

func (s *gormStore) CreateSignIn(ctx context.Context, si *model.SignIn) error {
	if err := s.db.WithContext(ctx).Create(si).Error; err != nil {
		return translateWriteErr(err)
	}
	return nil
}

func (s *gormStore) SaveSignIn(ctx context.Context, si *model.SignIn) error {
	if err := s.db.WithContext(ctx).Save(si).Error; err != nil {
		return translateWriteErr(err)
	}
	return nil
}

func translateReadErr(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

// translateWriteErr maps constraint violations to store errors.
func translateWriteErr(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgExclusionViolation:
			return fmt.Errorf("%w: %s", ErrOverlap, pgErr.ConstraintName)
		case pgUniqueViolation:
			return fmt.Errorf("%w: %s", ErrDuplicate, pgErr.ConstraintName)
		}
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrDuplicate
	}
	return err
}
