package notification

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/SherClockHolmes/webpush-go"
	"gorm.io/gorm"

	"studyroom-backend/internal/model"
)

// NotificationSender defines the interface for sending a web push notification.
type NotificationSender interface {
	Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error)
}

// WebPushSender is a real implementation of NotificationSender using the webpush library.
type WebPushSender struct{}

// Send sends a notification using the webpush library.
func (s *WebPushSender) Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
	return webpush.SendNotification(payload, sub, options)
}

// WorkerPool sends "room available" pushes to the subscribers of a room.
type WorkerPool struct {
	size    int
	jobs    chan model.Room
	db      *gorm.DB
	webpush *webpush.Options
	sender  NotificationSender
}

// NewWorkerPool creates a new worker pool.
func NewWorkerPool(size int, db *gorm.DB, webpushOptions *webpush.Options) *WorkerPool {
	return &WorkerPool{
		size:    size,
		jobs:    make(chan model.Room, size*16),
		db:      db,
		webpush: webpushOptions,
		sender:  &WebPushSender{},
	}
}

// Start launches the worker goroutines.
func (wp *WorkerPool) Start(ctx context.Context) {
	for i := 0; i < wp.size; i++ {
		go wp.worker(ctx, i)
	}
}

func (wp *WorkerPool) worker(ctx context.Context, id int) {
	log.Printf("Worker %d started", id)
	for {
		select {
		case room := <-wp.jobs:
			log.Printf("Worker %d processing room %d", id, room.ID)
			wp.sendNotificationsForRoom(ctx, room)
		case <-ctx.Done():
			log.Printf("Worker %d shutting down", id)
			return
		}
	}
}

// RoomOccupancyChanged queues a push when a room has just emptied. It never
// blocks; when the queue is full the notification is dropped.
func (wp *WorkerPool) RoomOccupancyChanged(room model.Room) {
	if room.OccupancyStatus() != model.OccupancyAvailable {
		return
	}
	select {
	case wp.jobs <- room:
	default:
		log.Printf("Notification queue full, dropping push for room %d", room.ID)
	}
}

// Jobs returns the jobs channel for testing.
func (wp *WorkerPool) Jobs() chan model.Room {
	return wp.jobs
}

func (wp *WorkerPool) sendNotificationsForRoom(ctx context.Context, room model.Room) {
	var subscriptions []model.PushSubscription
	err := wp.db.WithContext(ctx).
		Joins("JOIN subscription_room_mapping srm ON srm.push_subscription_endpoint = push_subscriptions.endpoint").
		Where("srm.room_id = ?", room.ID).
		Find(&subscriptions).Error
	if err != nil {
		log.Printf("Error fetching subscriptions for room %d: %v", room.ID, err)
		return
	}

	if len(subscriptions) == 0 {
		return
	}

	log.Printf("Sending %d notifications for room %d", len(subscriptions), room.ID)

	label := room.Name
	if label == "" {
		label = fmt.Sprintf("%d", room.ID)
	}
	message := fmt.Sprintf("Room %s is now available!", label)

	var building model.Building
	if err := wp.db.WithContext(ctx).
		Select("name").
		First(&building, room.BuildingID).Error; err != nil {
		log.Printf("Error fetching building %d: %v", room.BuildingID, err)
	} else if building.Name != "" {
		message = fmt.Sprintf("Room %s in %s is now available!", label, building.Name)
	}

	for _, sub := range subscriptions {
		wp.sendNotification(ctx, sub, []byte(message))
	}
}

func (wp *WorkerPool) sendNotification(ctx context.Context, sub model.PushSubscription, payload []byte) {
	wpSub := &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.P256DH,
			Auth:   sub.Auth,
		},
	}

	resp, err := wp.sender.Send(payload, wpSub, wp.webpush)
	if err != nil {
		log.Printf("Error sending notification to %s: %v", sub.Endpoint, err)
		return
	}
	defer resp.Body.Close()

	// Handle expired subscriptions
	if resp.StatusCode == http.StatusGone {
		log.Printf("Subscription for endpoint %s is expired. Deleting.", sub.Endpoint)
		if err := wp.deleteSubscription(ctx, sub); err != nil {
			log.Printf("Failed to delete expired subscription %s: %v", sub.Endpoint, err)
		}
	}
}

// deleteSubscription removes a subscription together with its room mappings.
func (wp *WorkerPool) deleteSubscription(ctx context.Context, sub model.PushSubscription) error {
	return wp.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("DELETE FROM subscription_room_mapping WHERE push_subscription_endpoint = ?", sub.Endpoint).Error; err != nil {
			return err
		}
		return tx.Delete(&sub).Error
	})
}
