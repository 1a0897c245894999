package service

import (
	"context"
	"log/slog"
	"time"

	"Lee_Social/internal/model"
	"Lee_Social/internal/observability"
	"Lee_Social/internal/pkg"
	"Lee_Social/internal/repository/mysql"
)

type relationshipStore interface {
	FindByID(ctx context.Context, id string) (*model.Relationship, error)
	FindByRequesterAddressee(ctx context.Context, requesterID, addresseeID string) (*model.Relationship, error)
	FindByUserAndStatus(ctx context.Context, userID string, status model.RelationshipStatus, page mysql.Page) ([]model.Relationship, error)
	FriendIDs(ctx context.Context, userID string) ([]string, error)
	FindAll(ctx context.Context, page mysql.Page) ([]model.Relationship, error)
	InsertPair(ctx context.Context, requesterID, addresseeID string) (*model.Relationship, *model.Relationship, error)
	AcceptPair(ctx context.Context, id string, at time.Time) (*model.Relationship, error)
}

type profileResolver interface {
	GetPublicProfile(ctx context.Context, userID string) (*model.PublicProfile, error)
}

// FriendshipService 好友请求状态机，同时充当位置和聊天的鉴权入口
type FriendshipService struct {
	repo    relationshipStore
	users   profileResolver
	metrics *observability.Metrics
	now     func() time.Time
}

func NewFriendshipService(repo relationshipStore, users profileResolver, metrics *observability.Metrics) *FriendshipService {
	return &FriendshipService{
		repo:    repo,
		users:   users,
		metrics: metrics,
		now:     time.Now,
	}
}

// SendRequest 发起好友请求，返回发起方一侧的记录
func (s *FriendshipService) SendRequest(ctx context.Context, userID, friendID string) (*model.RelationshipView, error) {
	if userID == friendID {
		return nil, pkg.ErrSameUser
	}
	profile, err := s.users.GetPublicProfile(ctx, friendID)
	if err != nil {
		return nil, err
	}

	edge, err := s.repo.FindByRequesterAddressee(ctx, userID, friendID)
	if err != nil {
		return nil, err
	}
	if edge != nil {
		switch edge.Status {
		case model.StatusAccepted:
			return nil, pkg.ErrAlreadyFriends
		case model.StatusSent:
			return nil, pkg.ErrAlreadyRequested
		case model.StatusPending:
			return nil, pkg.ErrAlreadyReceived
		default:
			return nil, pkg.ErrConstraintViolation
		}
	}

	sent, _, err := s.repo.InsertPair(ctx, userID, friendID)
	if err != nil {
		return nil, err
	}
	s.metrics.FriendshipTransition("sent")
	return newView(sent, profile), nil
}

// AcceptRequest 只有接收方可以接受：自己的 pending 记录，或者发给自己的 sent 记录
func (s *FriendshipService) AcceptRequest(ctx context.Context, actorID, relationshipID string) (*model.RelationshipView, error) {
	rel, err := s.repo.FindByID(ctx, relationshipID)
	if err != nil {
		return nil, err
	}
	if rel == nil {
		return nil, pkg.ErrRelationshipNotFound
	}
	party := rel.RequesterID == actorID || rel.AddresseeID == actorID
	if party && rel.Status == model.StatusAccepted {
		return nil, pkg.ErrAlreadyFriends
	}
	receiving := (rel.RequesterID == actorID && rel.Status == model.StatusPending) ||
		(rel.AddresseeID == actorID && rel.Status == model.StatusSent)
	if !receiving {
		// 不是接收方时不暴露记录是否存在
		return nil, pkg.ErrRelationshipNotFound
	}

	updated, err := s.repo.AcceptPair(ctx, rel.ID, s.now())
	if err != nil {
		return nil, err
	}
	s.metrics.FriendshipTransition("accepted")

	own := updated
	if updated.RequesterID != actorID {
		own, err = s.repo.FindByRequesterAddressee(ctx, actorID, updated.RequesterID)
		if err != nil {
			return nil, err
		}
		if own == nil {
			return nil, pkg.ErrConstraintViolation
		}
	}
	return s.enrich(ctx, own), nil
}

// Decline 暂不支持
func (s *FriendshipService) Decline(ctx context.Context, actorID, relationshipID string) error {
	return pkg.ErrNotImplemented
}

// Unfriend 暂不支持
func (s *FriendshipService) Unfriend(ctx context.Context, actorID, relationshipID string) error {
	return pkg.ErrNotImplemented
}

func (s *FriendshipService) ListFriends(ctx context.Context, userID string, page mysql.Page) ([]model.RelationshipView, error) {
	return s.list(ctx, userID, model.StatusAccepted, page)
}

func (s *FriendshipService) ListSent(ctx context.Context, userID string, page mysql.Page) ([]model.RelationshipView, error) {
	return s.list(ctx, userID, model.StatusSent, page)
}

func (s *FriendshipService) ListReceived(ctx context.Context, userID string, page mysql.Page) ([]model.RelationshipView, error) {
	return s.list(ctx, userID, model.StatusPending, page)
}

func (s *FriendshipService) list(ctx context.Context, userID string, status model.RelationshipStatus, page mysql.Page) ([]model.RelationshipView, error) {
	rows, err := s.repo.FindByUserAndStatus(ctx, userID, status, page)
	if err != nil {
		return nil, err
	}
	views := make([]model.RelationshipView, 0, len(rows))
	for i := range rows {
		views = append(views, *s.enrich(ctx, &rows[i]))
	}
	return views, nil
}

// AdminList 管理端查看全部关系记录
func (s *FriendshipService) AdminList(ctx context.Context, page mysql.Page) ([]model.Relationship, error) {
	return s.repo.FindAll(ctx, page)
}

// IsFriends 当且仅当 userID->otherID 这条边是 accepted
func (s *FriendshipService) IsFriends(ctx context.Context, userID, otherID string) (bool, error) {
	edge, err := s.repo.FindByRequesterAddressee(ctx, userID, otherID)
	if err != nil {
		return false, err
	}
	return edge != nil && edge.Status == model.StatusAccepted, nil
}

// Authorize 查看他人位置或聊天前的好友校验
func (s *FriendshipService) Authorize(ctx context.Context, viewerID, targetID string) error {
	ok, err := s.IsFriends(ctx, viewerID, targetID)
	if err != nil {
		return err
	}
	if !ok {
		return pkg.ErrUsersNotFriends
	}
	return nil
}

func (s *FriendshipService) FriendIDs(ctx context.Context, userID string) ([]string, error) {
	return s.repo.FriendIDs(ctx, userID)
}

// enrich 资料查不到时只记日志，这一条的 user 为空
func (s *FriendshipService) enrich(ctx context.Context, rel *model.Relationship) *model.RelationshipView {
	profile, err := s.users.GetPublicProfile(ctx, rel.AddresseeID)
	if err != nil {
		slog.WarnContext(ctx, "resolve profile failed",
			"relationship_id", rel.ID, "user_id", rel.AddresseeID, "err", err)
		profile = nil
	}
	return newView(rel, profile)
}

func newView(rel *model.Relationship, profile *model.PublicProfile) *model.RelationshipView {
	return &model.RelationshipView{
		ID:          rel.ID,
		FriendID:    rel.AddresseeID,
		Status:      rel.Status,
		RequestDate: rel.RequestDate,
		AcceptDate:  rel.AcceptDate,
		User:        profile,
	}
}
