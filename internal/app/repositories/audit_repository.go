package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/yigit/noteverse/internal/app/models"
	"github.com/yigit/noteverse/internal/pkg/logger"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Audit collection names.
const (
	UploadDataCollection     = "upload_data"
	ProfilePictureCollection = "profile_pictures"
	defaultAuditListLimit    = 50
)

// IAuditStore keeps the raw upload trail and the current avatar of each user
type IAuditStore interface {
	RecordUpload(ctx context.Context, record *models.UploadRecord) error
	// ListUploads returns the most recent records; userID 0 lists everyone.
	ListUploads(ctx context.Context, userID int64, limit int) ([]models.UploadRecord, error)
	// ReplaceProfilePicture stores pic as the user's avatar and returns the one it replaced, if any.
	ReplaceProfilePicture(ctx context.Context, pic *models.ProfilePicture) (*models.ProfilePicture, error)
	// RemoveProfilePicture drops the user's avatar record and returns it, if any.
	RemoveProfilePicture(ctx context.Context, userID int64) (*models.ProfilePicture, error)
	DeleteByUser(ctx context.Context, userID int64) error
}

// AuditRepository is the MongoDB audit store
type AuditRepository struct {
	uploads  *mongo.Collection
	pictures *mongo.Collection
}

// NewAuditRepository binds the audit collections of database
func NewAuditRepository(database *mongo.Database) *AuditRepository {
	return &AuditRepository{
		uploads:  database.Collection(UploadDataCollection),
		pictures: database.Collection(ProfilePictureCollection),
	}
}

// EnsureIndexes creates the one-avatar-per-user unique index and the upload lookup index
func (r *AuditRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.pictures.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "uploaded_by_user", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("failed to create profile picture index: %w", err)
	}

	_, err = r.uploads.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "uploaded_by_user", Value: 1}, {Key: "uploaded_at", Value: -1}},
	})
	if err != nil {
		return fmt.Errorf("failed to create upload data index: %w", err)
	}
	return nil
}

// RecordUpload appends an upload record
func (r *AuditRepository) RecordUpload(ctx context.Context, record *models.UploadRecord) error {
	if _, err := r.uploads.InsertOne(ctx, record); err != nil {
		logger.Error().Err(err).Int64("userID", record.UploadedByUser).Msg("Error recording upload")
		return fmt.Errorf("error recording upload: %w", err)
	}
	return nil
}

// ListUploads returns upload records, newest first
func (r *AuditRepository) ListUploads(ctx context.Context, userID int64, limit int) ([]models.UploadRecord, error) {
	if limit <= 0 {
		limit = defaultAuditListLimit
	}
	filter := bson.M{}
	if userID > 0 {
		filter["uploaded_by_user"] = userID
	}

	opts := options.Find().SetSort(bson.M{"uploaded_at": -1}).SetLimit(int64(limit))
	cursor, err := r.uploads.Find(ctx, filter, opts)
	if err != nil {
		logger.Error().Err(err).Int64("userID", userID).Msg("Error listing upload records")
		return nil, fmt.Errorf("error listing upload records: %w", err)
	}
	defer cursor.Close(ctx)

	records := []models.UploadRecord{}
	if err := cursor.All(ctx, &records); err != nil {
		return nil, fmt.Errorf("error decoding upload records: %w", err)
	}
	return records, nil
}

// ReplaceProfilePicture upserts the avatar record and returns the previous document
func (r *AuditRepository) ReplaceProfilePicture(ctx context.Context, pic *models.ProfilePicture) (*models.ProfilePicture, error) {
	opts := options.FindOneAndReplace().
		SetUpsert(true).
		SetReturnDocument(options.Before)

	var previous models.ProfilePicture
	err := r.pictures.FindOneAndReplace(ctx, bson.M{"uploaded_by_user": pic.UploadedByUser}, pic, opts).Decode(&previous)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		logger.Error().Err(err).Int64("userID", pic.UploadedByUser).Msg("Error replacing profile picture record")
		return nil, fmt.Errorf("error replacing profile picture: %w", err)
	}
	return &previous, nil
}

// RemoveProfilePicture deletes the avatar record of a user and returns it
func (r *AuditRepository) RemoveProfilePicture(ctx context.Context, userID int64) (*models.ProfilePicture, error) {
	var removed models.ProfilePicture
	err := r.pictures.FindOneAndDelete(ctx, bson.M{"uploaded_by_user": userID}).Decode(&removed)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		logger.Error().Err(err).Int64("userID", userID).Msg("Error removing profile picture record")
		return nil, fmt.Errorf("error removing profile picture: %w", err)
	}
	return &removed, nil
}

// DeleteByUser removes every audit record of a user
func (r *AuditRepository) DeleteByUser(ctx context.Context, userID int64) error {
	filter := bson.M{"uploaded_by_user": userID}
	if _, err := r.uploads.DeleteMany(ctx, filter); err != nil {
		logger.Error().Err(err).Int64("userID", userID).Msg("Error deleting upload records")
		return fmt.Errorf("error deleting upload records: %w", err)
	}
	if _, err := r.pictures.DeleteMany(ctx, filter); err != nil {
		logger.Error().Err(err).Int64("userID", userID).Msg("Error deleting profile picture records")
		return fmt.Errorf("error deleting profile picture records: %w", err)
	}
	return nil
}

// NoopAuditStore discards audit records; used when no Mongo URI is configured
type NoopAuditStore struct{}

func (NoopAuditStore) RecordUpload(context.Context, *models.UploadRecord) error { return nil }

func (NoopAuditStore) ListUploads(context.Context, int64, int) ([]models.UploadRecord, error) {
	return []models.UploadRecord{}, nil
}

func (NoopAuditStore) ReplaceProfilePicture(context.Context, *models.ProfilePicture) (*models.ProfilePicture, error) {
	return nil, nil
}

func (NoopAuditStore) RemoveProfilePicture(context.Context, int64) (*models.ProfilePicture, error) {
	return nil, nil
}

func (NoopAuditStore) DeleteByUser(context.Context, int64) error { return nil }
