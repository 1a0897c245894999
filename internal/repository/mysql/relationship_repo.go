package mysql

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"Lee_Social/internal/model"
	"Lee_Social/internal/pkg"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type RelationshipRepository struct {
	DB *gorm.DB
}

func NewRelationshipRepository(db *gorm.DB) *RelationshipRepository {
	return &RelationshipRepository{DB: db}
}

// FindByID 不存在时返回 nil, nil
func (r *RelationshipRepository) FindByID(ctx context.Context, id string) (*model.Relationship, error) {
	var rel model.Relationship
	err := r.DB.WithContext(ctx).Where("id = ?", id).Take(&rel).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, wrapErr(err)
	}
	return &rel, nil
}

func (r *RelationshipRepository) FindByRequesterAddressee(ctx context.Context, requesterID, addresseeID string) (*model.Relationship, error) {
	var rel model.Relationship
	err := r.DB.WithContext(ctx).
		Where("requester_id = ? AND addressee_id = ?", requesterID, addresseeID).
		Take(&rel).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, wrapErr(err)
	}
	return &rel, nil
}

// FindByUserAndStatus 以 userID 为请求方的记录，最新的在前
func (r *RelationshipRepository) FindByUserAndStatus(ctx context.Context, userID string, status model.RelationshipStatus, page Page) ([]model.Relationship, error) {
	var rows []model.Relationship
	if err := r.DB.WithContext(ctx).
		Where("requester_id = ? AND status = ?", userID, status).
		Order("request_date DESC").Order("id DESC").
		Scopes(page.scope).
		Find(&rows).Error; err != nil {
		return nil, wrapErr(err)
	}
	return rows, nil
}

// FriendIDs 所有已接受的好友id
func (r *RelationshipRepository) FriendIDs(ctx context.Context, userID string) ([]string, error) {
	var ids []string
	if err := r.DB.WithContext(ctx).Model(&model.Relationship{}).
		Where("requester_id = ? AND status = ?", userID, model.StatusAccepted).
		Pluck("addressee_id", &ids).Error; err != nil {
		return nil, wrapErr(err)
	}
	return ids, nil
}

// FindAll 管理端全量分页
func (r *RelationshipRepository) FindAll(ctx context.Context, page Page) ([]model.Relationship, error) {
	var rows []model.Relationship
	if err := r.DB.WithContext(ctx).
		Order("request_date DESC").Order("id DESC").
		Scopes(page.scope).
		Find(&rows).Error; err != nil {
		return nil, wrapErr(err)
	}
	return rows, nil
}

// InsertPair 在一个事务里写入 (A->B, sent) 和 (B->A, pending)，任一方向已存在则整体失败
func (r *RelationshipRepository) InsertPair(ctx context.Context, requesterID, addresseeID string) (*model.Relationship, *model.Relationship, error) {
	if requesterID == addresseeID {
		return nil, nil, pkg.ErrConstraintViolation
	}
	now := time.Now().UTC().Truncate(time.Millisecond)
	sent := &model.Relationship{
		ID:          uuid.NewString(),
		RequesterID: requesterID,
		AddresseeID: addresseeID,
		Status:      model.StatusSent,
		RequestDate: now,
	}
	pending := &model.Relationship{
		ID:          uuid.NewString(),
		RequesterID: addresseeID,
		AddresseeID: requesterID,
		Status:      model.StatusPending,
		RequestDate: now,
	}

	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing []model.Relationship
		// 两个方向一起加锁
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("(requester_id = ? AND addressee_id = ?) OR (requester_id = ? AND addressee_id = ?)",
				requesterID, addresseeID, addresseeID, requesterID).
			Find(&existing).Error; err != nil {
			return err
		}
		if len(existing) > 0 {
			return pkg.ErrConstraintViolation
		}
		if err := tx.Create(sent).Error; err != nil {
			return err
		}
		if err := tx.Create(pending).Error; err != nil {
			return err
		}
		return r.insertOutbox(tx, model.EventFriendRequestSent, sent)
	})
	if err != nil {
		return nil, nil, wrapErr(err)
	}
	return sent, pending, nil
}

// AcceptPair 同时把记录和它的镜像置为 accepted，accept_date 相同
func (r *RelationshipRepository) AcceptPair(ctx context.Context, id string, at time.Time) (*model.Relationship, error) {
	at = at.UTC().Truncate(time.Millisecond)
	var rel model.Relationship
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", id).Take(&rel).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkg.ErrRelationshipNotFound
			}
			return err
		}
		var mirror model.Relationship
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("requester_id = ? AND addressee_id = ?", rel.AddresseeID, rel.RequesterID).
			Take(&mirror).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				// 只有半边的关系不允许被接受
				return pkg.ErrConstraintViolation
			}
			return err
		}
		// 状态以加锁后读到的为准，并发的第二次接受在这里失败
		if rel.Status == model.StatusAccepted || mirror.Status == model.StatusAccepted {
			return pkg.ErrAlreadyFriends
		}
		if !complementary(rel.Status, mirror.Status) {
			return pkg.ErrConstraintViolation
		}
		if err := r.updateStatus(tx, rel.ID, model.StatusAccepted, &at); err != nil {
			return err
		}
		if err := r.updateStatus(tx, mirror.ID, model.StatusAccepted, &at); err != nil {
			return err
		}
		sent := &rel
		if mirror.Status == model.StatusSent {
			sent = &mirror
		}
		return r.insertOutbox(tx, model.EventFriendRequestAccepted, sent)
	})
	if err != nil {
		return nil, wrapErr(err)
	}
	rel.Status = model.StatusAccepted
	rel.AcceptDate = &at
	return &rel, nil
}

// complementary 只有一条 sent 一条 pending 的请求才能被接受
func complementary(a, b model.RelationshipStatus) bool {
	return (a == model.StatusSent && b == model.StatusPending) ||
		(a == model.StatusPending && b == model.StatusSent)
}

// updateStatus 单行更新，只能在成对操作的事务里调用
func (r *RelationshipRepository) updateStatus(tx *gorm.DB, id string, status model.RelationshipStatus, acceptDate *time.Time) error {
	res := tx.Model(&model.Relationship{}).Where("id = ?", id).
		Updates(map[string]any{"status": status, "accept_date": acceptDate})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return pkg.ErrConstraintViolation
	}
	return nil
}

// DeleteByID 只删除单行，镜像由调用方处理
func (r *RelationshipRepository) DeleteByID(ctx context.Context, id string) error {
	return wrapErr(r.DB.WithContext(ctx).Where("id = ?", id).Delete(&model.Relationship{}).Error)
}

// 插入outbox事件表
func (r *RelationshipRepository) insertOutbox(tx *gorm.DB, event string, rel *model.Relationship) error {
	payload, _ := json.Marshal(map[string]any{
		"event_time":      time.Now().UTC().Format(time.RFC3339Nano),
		"relationship_id": rel.ID,
		"requester_id":    rel.RequesterID,
		"addressee_id":    rel.AddresseeID,
	})
	ob := &model.SocialOutbox{
		EventType:      event,
		RelationshipID: rel.ID,
		RequesterID:    rel.RequesterID,
		AddresseeID:    rel.AddresseeID,
		Payload:        string(payload),
		Status:         model.OutboxPending,
	}
	return tx.Create(ob).Error
}
