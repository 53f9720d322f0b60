package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/syllabus-portal-api/internal/models"
	"github.com/noah-isme/syllabus-portal-api/internal/repository"
	appErrors "github.com/noah-isme/syllabus-portal-api/pkg/errors"
)

type adminRepository interface {
	FindByID(ctx context.Context, id string) (*models.Admin, error)
	ExistsByIdentity(ctx context.Context, username, email string) (bool, error)
	Create(ctx context.Context, admin *models.Admin) error
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// AdminService handles admin account management.
type AdminService struct {
	repo      adminRepository
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewAdminService creates an instance of AdminService.
func NewAdminService(repo adminRepository, validate *validator.Validate, logger *zap.Logger) *AdminService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &AdminService{repo: repo, validator: validate, logger: logger, now: func() time.Time { return time.Now().UTC() }}
}

// Get returns an admin by ID.
func (s *AdminService) Get(ctx context.Context, id string) (*models.Admin, error) {
	admin, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "admin not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load admin")
	}
	return admin, nil
}

// Create adds a new admin account. Only the bcrypt hash of the password is stored.
func (s *AdminService) Create(ctx context.Context, req models.CreateAdminRequest, actorID string, meta models.LoginRequest) (*models.Admin, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid create admin payload")
	}

	username := strings.TrimSpace(req.Username)
	email := strings.ToLower(strings.TrimSpace(req.Email))

	exists, err := s.repo.ExistsByIdentity(ctx, username, email)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check admin uniqueness")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "username or email already exists")
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}

	role := req.Role
	if role == "" {
		role = models.RoleAdmin
	}

	now := s.now()
	admin := &models.Admin{
		ID:              uuid.NewString(),
		Username:        username,
		Email:           email,
		PasswordHash:    string(passwordHash),
		Role:            role,
		AssignedCourses: normalizeCourseCodes(req.AssignedCourses),
		Active:          true,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := s.repo.Create(ctx, admin); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "username or email already exists")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create admin")
	}

	// Accounts bootstrapped from the CLI have no acting admin.
	var actor *string
	if actorID != "" {
		actor = &actorID
	}
	newPayload, _ := json.Marshal(map[string]interface{}{"id": admin.ID, "email": admin.Email, "role": admin.Role, "assignedCourses": admin.AssignedCourses})
	if err := s.repo.CreateAuditLog(ctx, &models.AuditLog{
		AdminID:    actor,
		Action:     models.AuditActionAdminCreate,
		Resource:   "admins",
		ResourceID: &admin.ID,
		NewValues:  newPayload,
		IPAddress:  meta.IP,
		UserAgent:  meta.UserAgent,
	}); err != nil {
		s.logger.Warn("failed to record admin create audit log", zap.Error(err))
	}

	return admin, nil
}

// normalizeCourseCodes upper-cases, trims and de-duplicates codes, keeping order.
func normalizeCourseCodes(codes []string) pq.StringArray {
	out := make(pq.StringArray, 0, len(codes))
	seen := make(map[string]struct{}, len(codes))
	for _, code := range codes {
		code = strings.ToUpper(strings.TrimSpace(code))
		if code == "" {
			continue
		}
		if _, ok := seen[code]; ok {
			continue
		}
		seen[code] = struct{}{}
		out = append(out, code)
	}
	return out
}
