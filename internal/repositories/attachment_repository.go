package repositories

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"chatvault/internal/domain"
	"chatvault/internal/models"
)

// Owner names a join table and its owner column.
type Owner struct {
	Entity string
	Table  string
	Column string
}

var (
	MessageOwner = Owner{Entity: "message", Table: "message_attachments", Column: "message_id"}
	ProjectOwner = Owner{Entity: "project", Table: "project_attachments", Column: "project_id"}
	DraftOwner   = Owner{Entity: "draft", Table: "draft_attachments", Column: "chat_id"}
)

var owners = []Owner{MessageOwner, ProjectOwner, DraftOwner}

type AttachmentRepository interface {
	Create(ctx context.Context, attachment *models.Attachment) error
	Get(ctx context.Context, id string) (*models.Attachment, error)
	FindByPath(ctx context.Context, path string) (*models.Attachment, error)
	SetLoading(ctx context.Context, id string, loading bool) error

	Link(ctx context.Context, owner Owner, ownerID, attachmentID string) error
	Unlink(ctx context.Context, owner Owner, ownerID, attachmentID string) error
	UnlinkAll(ctx context.Context, owner Owner, ownerIDs ...string) error
	ListFor(ctx context.Context, owner Owner, ownerID string) ([]models.Attachment, error)

	ListOrphans(ctx context.Context) ([]models.Attachment, error)
	Delete(ctx context.Context, ids ...string) error
}

type attachmentRepository struct {
	db *gorm.DB
}

func NewAttachmentRepository(db *gorm.DB) AttachmentRepository {
	return &attachmentRepository{db: db}
}

func (r *attachmentRepository) Create(ctx context.Context, attachment *models.Attachment) error {
	return translateError(r.db.WithContext(ctx).Create(attachment).Error, "attachment", attachment.Path)
}

func (r *attachmentRepository) Get(ctx context.Context, id string) (*models.Attachment, error) {
	var attachment models.Attachment
	if err := r.db.WithContext(ctx).Where("id = ?", id).Take(&attachment).Error; err != nil {
		return nil, translateError(err, "attachment", id)
	}
	return &attachment, nil
}

func (r *attachmentRepository) FindByPath(ctx context.Context, path string) (*models.Attachment, error) {
	var attachment models.Attachment
	err := r.db.WithContext(ctx).Where("path = ?", path).Take(&attachment).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &attachment, nil
}

func (r *attachmentRepository) SetLoading(ctx context.Context, id string, loading bool) error {
	res := r.db.WithContext(ctx).Model(&models.Attachment{}).Where("id = ?", id).UpdateColumn("is_loading", loading)
	return requireAffected(res, "attachment", id)
}

func (r *attachmentRepository) Link(ctx context.Context, owner Owner, ownerID, attachmentID string) error {
	err := r.db.WithContext(ctx).Table(owner.Table).Create(map[string]interface{}{
		owner.Column:    ownerID,
		"attachment_id": attachmentID,
	}).Error
	if err != nil {
		err = translateError(err, owner.Entity+" attachment", ownerID+"/"+attachmentID)
		if errors.Is(err, domain.ErrConstraintViolation) {
			return domain.Constraint("duplicate_association", "attachment %q is already associated with %s %q", attachmentID, owner.Entity, ownerID)
		}
		return err
	}
	return nil
}

func (r *attachmentRepository) Unlink(ctx context.Context, owner Owner, ownerID, attachmentID string) error {
	res := r.db.WithContext(ctx).
		Exec("DELETE FROM "+owner.Table+" WHERE "+owner.Column+" = ? AND attachment_id = ?", ownerID, attachmentID)
	return requireAffected(res, owner.Entity+" attachment", ownerID+"/"+attachmentID)
}

func (r *attachmentRepository) UnlinkAll(ctx context.Context, owner Owner, ownerIDs ...string) error {
	if len(ownerIDs) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Exec("DELETE FROM "+owner.Table+" WHERE "+owner.Column+" IN ?", ownerIDs).Error
}

func (r *attachmentRepository) ListFor(ctx context.Context, owner Owner, ownerID string) ([]models.Attachment, error) {
	var list []models.Attachment
	if err := r.db.WithContext(ctx).
		Joins("JOIN "+owner.Table+" j ON j.attachment_id = attachments.id").
		Where("j."+owner.Column+" = ?", ownerID).
		Order("attachments.created_at, attachments.id").
		Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

// ListOrphans returns attachments no owner references.
func (r *attachmentRepository) ListOrphans(ctx context.Context) ([]models.Attachment, error) {
	q := r.db.WithContext(ctx).Model(&models.Attachment{})
	for _, o := range owners {
		q = q.Where("NOT EXISTS (SELECT 1 FROM " + o.Table + " j WHERE j.attachment_id = attachments.id)")
	}
	var list []models.Attachment
	if err := q.Order("created_at, id").Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (r *attachmentRepository) Delete(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Where("id IN ?", ids).Delete(&models.Attachment{}).Error
}
