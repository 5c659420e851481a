package service

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/ridhamxdev/Docent-sub000/message/dto"
	"github.com/ridhamxdev/Docent-sub000/message/realtime"
	"github.com/ridhamxdev/Docent-sub000/message/reconcile"
	"github.com/ridhamxdev/Docent-sub000/message/repo"
	"github.com/ridhamxdev/Docent-sub000/message/repo/model"
)

// 校验错误，进任何存储调用之前同步拒绝
var (
	ErrMissingParticipant = errors.New("senderId and receiverId are required")
	ErrMissingViewer      = errors.New("userId is required")
	ErrEmptyMessage       = errors.New("message needs content or an attachment")
	ErrBadAttachment      = errors.New("attachmentUrl and attachmentType must be set together")
	ErrBadAttachmentType  = errors.New("attachmentType must be image, video or file")
)

// IsValidationError 判断错误是否该映射为 400
func IsValidationError(err error) bool {
	return errors.Is(err, ErrMissingParticipant) ||
		errors.Is(err, ErrMissingViewer) ||
		errors.Is(err, ErrEmptyMessage) ||
		errors.Is(err, ErrBadAttachment) ||
		errors.Is(err, ErrBadAttachmentType)
}

// Notifier 实时通知出口，由 realtime.Registry 实现
// 投递是尽力而为的，返回值只用于日志
type Notifier interface {
	Emit(userID, event string, payload interface{}) int
}

type MessageService struct {
	repo      repo.MessageRepo
	notifier  Notifier
	directory repo.UserDirectory
	logger    *zap.Logger
}

func NewMessageService(r repo.MessageRepo, n Notifier, d repo.UserDirectory, logger *zap.Logger) *MessageService {
	return &MessageService{
		repo:      r,
		notifier:  n,
		directory: d,
		logger:    logger,
	}
}

func validateSend(in dto.SendMessageInput) error {
	if in.SenderID == "" || in.ReceiverID == "" {
		return ErrMissingParticipant
	}
	if (in.AttachmentURL == "") != (in.AttachmentType == "") {
		return ErrBadAttachment
	}
	if in.AttachmentType != "" && !model.AttachmentType(in.AttachmentType).Valid() {
		return ErrBadAttachmentType
	}
	if in.Content == "" && in.AttachmentURL == "" {
		return ErrEmptyMessage
	}
	return nil
}

// Send 持久化消息后向发送方和接收方的 room 各发一次 newMessage
// 落库先于扇出；扇出不阻塞也不回报失败，错过的客户端靠拉取补齐
// 给发送方自己的 room 也发一份，发送方的其他设备靠这条事件同步
func (s *MessageService) Send(ctx context.Context, in dto.SendMessageInput) (*model.Message, error) {
	if err := validateSend(in); err != nil {
		return nil, err
	}
	m := &model.Message{
		SenderID:       in.SenderID,
		ReceiverID:     in.ReceiverID,
		SenderName:     in.SenderName,
		Content:        in.Content,
		AttachmentURL:  in.AttachmentURL,
		AttachmentType: model.AttachmentType(in.AttachmentType),
		Metadata:       in.Metadata,
	}
	stored, err := s.repo.Append(ctx, m)
	if err != nil {
		return nil, fmt.Errorf("fail to send message:%w", err)
	}
	s.notifier.Emit(stored.SenderID, realtime.EventNewMessage, stored)
	s.notifier.Emit(stored.ReceiverID, realtime.EventNewMessage, stored)
	return stored, nil
}

// ListForUser 返回触及该用户的全部消息，按 createdAt 升序，平局保持存储顺序
func (s *MessageService) ListForUser(ctx context.Context, userID string) ([]*model.Message, error) {
	if userID == "" {
		return nil, ErrMissingViewer
	}
	msgs, err := s.repo.ListTouching(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("fail to list messages:%w", err)
	}
	sort.SliceStable(msgs, func(i, j int) bool {
		return msgs[i].CreatedAt < msgs[j].CreatedAt
	})
	return msgs, nil
}

// MarkRead 把 counterparty 发给 viewer 的未读消息逐条置为已读
// 每条 patch 相互独立且幂等，重复调用或并发调用不会破坏状态，
// 并发时 messagesRead 的计数可能虚高，消费方只把它当提示
func (s *MessageService) MarkRead(ctx context.Context, viewerID, counterpartyID string) (int, error) {
	if viewerID == "" {
		return 0, ErrMissingViewer
	}
	if counterpartyID == "" {
		return 0, ErrMissingParticipant
	}
	msgs, err := s.repo.ListTouching(ctx, viewerID)
	if err != nil {
		return 0, fmt.Errorf("fail to load messages:%w", err)
	}
	count := 0
	for _, m := range msgs {
		if m.SenderID != counterpartyID || m.ReceiverID != viewerID || m.Read {
			continue
		}
		if err := s.repo.Patch(ctx, m.ID, map[string]interface{}{"read": true}); err != nil {
			return 0, fmt.Errorf("fail to mark message %s read:%w", m.ID, err)
		}
		count++
	}
	s.notifier.Emit(counterpartyID, realtime.EventMessagesRead, dto.ReadReceipt{
		UserID: viewerID,
		Count:  count,
	})
	return count, nil
}

// Conversations 冷启动折叠出会话列表，昵称缺失时尽力通过用户目录补全
// 目录故障只降级为占位名，不影响主流程
func (s *MessageService) Conversations(ctx context.Context, viewerID string) ([]*reconcile.Conversation, error) {
	if viewerID == "" {
		return nil, ErrMissingViewer
	}
	msgs, err := s.repo.ListTouching(ctx, viewerID)
	if err != nil {
		return nil, fmt.Errorf("fail to load messages:%w", err)
	}
	convs := reconcile.BuildConversations(viewerID, msgs)
	if s.directory != nil {
		for _, conv := range convs {
			if conv.DisplayName != reconcile.PlaceholderName {
				continue
			}
			info, derr := s.directory.Resolve(ctx, conv.CounterpartyID)
			if derr != nil {
				s.logger.Warn("resolve display name failed",
					zap.String("user", conv.CounterpartyID), zap.Error(derr))
				continue
			}
			if info != nil && info.Name != "" {
				conv.DisplayName = info.Name
			}
		}
	}
	return convs, nil
}
