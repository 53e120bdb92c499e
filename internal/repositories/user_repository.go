package repositories

import (
	"errors"

	"github.com/anonto42/motorhub/backend/internal/apperrors"
	"github.com/anonto42/motorhub/backend/internal/models"
	"gorm.io/gorm"
)

// UserRepository defines the interface for user profile operations
type UserRepository interface {
	CreateUser(user *models.User) error
	GetUserByFirebaseUID(firebaseUID string) (*models.User, error)
	GetUserByEmail(email string) (*models.User, error)
	UpdateUser(user *models.User) error
	UpsertFromIdentity(firebaseUID, displayName, email, photoURL string) (*models.User, error)
}

// PostgresUserRepository implements UserRepository for PostgreSQL
type PostgresUserRepository struct {
	db *gorm.DB
}

// NewPostgresUserRepository creates a new PostgresUserRepository
func NewPostgresUserRepository(db *gorm.DB) *PostgresUserRepository {
	return &PostgresUserRepository{db: db}
}

// CreateUser creates a new user in PostgreSQL
func (r *PostgresUserRepository) CreateUser(user *models.User) error {
	return r.db.Create(user).Error
}

// GetUserByFirebaseUID retrieves a user by Firebase UID from PostgreSQL
func (r *PostgresUserRepository) GetUserByFirebaseUID(firebaseUID string) (*models.User, error) {
	return r.first("firebase_uid = ?", firebaseUID)
}

// GetUserByEmail retrieves a local account by email
func (r *PostgresUserRepository) GetUserByEmail(email string) (*models.User, error) {
	return r.first("email = ?", email)
}

// UpdateUser updates an existing user in PostgreSQL
func (r *PostgresUserRepository) UpdateUser(user *models.User) error {
	return r.db.Save(user).Error
}

// UpsertFromIdentity keeps the profile mirror in step with the auth provider.
// Existing display names and photos are only overwritten by non-empty values.
func (r *PostgresUserRepository) UpsertFromIdentity(firebaseUID, displayName, email, photoURL string) (*models.User, error) {
	user, err := r.GetUserByFirebaseUID(firebaseUID)
	if errors.Is(err, apperrors.ErrNotFound) {
		user = &models.User{FirebaseUID: firebaseUID, DisplayName: displayName, Email: email, PhotoURL: photoURL}
		if err := r.CreateUser(user); err != nil {
			return nil, err
		}
		return user, nil
	}
	if err != nil {
		return nil, err
	}

	if displayName != "" {
		user.DisplayName = displayName
	}
	if photoURL != "" {
		user.PhotoURL = photoURL
	}
	if email != "" {
		user.Email = email
	}
	if err := r.UpdateUser(user); err != nil {
		return nil, err
	}
	return user, nil
}

func (r *PostgresUserRepository) first(query string, arg any) (*models.User, error) {
	var user models.User
	if err := r.db.Where(query, arg).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}
