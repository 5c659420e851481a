package model

import "encoding/json"

// 消息附件类型
type AttachmentType string

const (
	AttachmentImage AttachmentType = "image"
	AttachmentVideo AttachmentType = "video"
	AttachmentFile  AttachmentType = "file"
)

func (t AttachmentType) Valid() bool {
	switch t {
	case AttachmentImage, AttachmentVideo, AttachmentFile:
		return true
	}
	return false
}

// 消息（Message）除 Read 外创建后不可变
// CreatedAt 为服务端分配的毫秒时间戳，会话内按其升序排列
type Message struct {
	ID             string          `gorm:"primaryKey;size:36" json:"id"`
	SenderID       string          `gorm:"not null;index" json:"senderId"`
	ReceiverID     string          `gorm:"not null;index" json:"receiverId"`
	SenderName     string          `json:"senderName,omitempty"`
	Content        string          `gorm:"type:text" json:"content"`
	AttachmentURL  string          `json:"attachmentUrl,omitempty"`
	AttachmentType AttachmentType  `gorm:"size:16" json:"attachmentType,omitempty"`
	Metadata       json.RawMessage `gorm:"type:jsonb" json:"metadata,omitempty"`
	CreatedAt      int64           `gorm:"not null;index" json:"createdAt"`
	Read           bool            `gorm:"not null;default:false" json:"read"`
}

// Touches 判断用户是否是该消息的发送方或接收方
func (m *Message) Touches(userID string) bool {
	return m.SenderID == userID || m.ReceiverID == userID
}

// Counterparty 返回相对于 viewer 的另一方；viewer 不参与该消息时返回空串
func (m *Message) Counterparty(viewerID string) string {
	switch viewerID {
	case m.SenderID:
		return m.ReceiverID
	case m.ReceiverID:
		return m.SenderID
	}
	return ""
}
