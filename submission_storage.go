package main

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"go-ocr-relay/models"

	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Should be safe to use concurrently
type SubmissionStorage interface {
	// Store the submission under its id. Storing an id twice overwrites
	// the earlier payload.
	StoreSubmission(ctx context.Context, submission models.Submission) error
}

// NoopSubmissionStorage accepts every submission and keeps nothing
type NoopSubmissionStorage struct{}

func (NoopSubmissionStorage) StoreSubmission(context.Context, models.Submission) error {
	return nil
}

// ------------------------------------------------------------------------------

type InMemorySubmissionStorage struct {
	Submissions map[string]models.Submission
	mutex       sync.Mutex
}

func NewInMemorySubmissionStorage() *InMemorySubmissionStorage {
	return &InMemorySubmissionStorage{
		Submissions: make(map[string]models.Submission),
	}
}

func (s *InMemorySubmissionStorage) StoreSubmission(_ context.Context, submission models.Submission) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.Submissions[submission.Id] = submission
	return nil
}

func (s *InMemorySubmissionStorage) RetrieveSubmission(id string) (models.Submission, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if submission, ok := s.Submissions[id]; ok {
		return submission, nil
	} else {
		return models.Submission{}, fmt.Errorf("failed to find submission %s", id)
	}
}

func (s *InMemorySubmissionStorage) Count() int {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return len(s.Submissions)
}

// ------------------------------------------------------------------------------

type RedisSubmissionStorage struct {
	client    *redis.Client
	namespace string
}

func NewRedisSubmissionStorage(client *redis.Client, namespace string) *RedisSubmissionStorage {
	return &RedisSubmissionStorage{client: client, namespace: namespace}
}

func createKey(namespace, id string) string {
	return fmt.Sprintf("%s:submission:%s", namespace, id)
}

func (s *RedisSubmissionStorage) StoreSubmission(ctx context.Context, submission models.Submission) error {
	value, err := json.Marshal(submission)
	if err != nil {
		return fmt.Errorf("failed to encode submission: %w", err)
	}
	// no expiry, submissions are kept until removed
	return s.client.Set(ctx, createKey(s.namespace, submission.Id), value, 0).Err()
}

// ------------------------------------------------------------------------------

type submissionRecord struct {
	Id         string    `gorm:"primaryKey;type:uuid"`
	Payload    string    `gorm:"type:jsonb;not null"`
	ReceivedAt time.Time `gorm:"not null;index"`
}

func (submissionRecord) TableName() string {
	return "submissions"
}

type PostgresSubmissionStorage struct {
	db *gorm.DB
}

// NewPostgresSubmissionStorage connects with the given DSN and migrates the
// submissions table.
func NewPostgresSubmissionStorage(dsn string) (*PostgresSubmissionStorage, error) {
	storage, err := openSubmissionStorage(postgres.Open(dsn))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}
	return storage, nil
}

func openSubmissionStorage(dialector gorm.Dialector) (*PostgresSubmissionStorage, error) {
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql db from gorm: %w", err)
	}
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := db.AutoMigrate(&submissionRecord{}); err != nil {
		return nil, fmt.Errorf("failed to migrate submissions table: %w", err)
	}
	return &PostgresSubmissionStorage{db: db}, nil
}

func (s *PostgresSubmissionStorage) StoreSubmission(ctx context.Context, submission models.Submission) error {
	record := submissionRecord{
		Id:         submission.Id,
		Payload:    string(submission.Payload),
		ReceivedAt: submission.ReceivedAt,
	}
	return s.db.WithContext(ctx).Save(&record).Error
}
