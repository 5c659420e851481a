package dto

import "encoding/json"

// 发送消息请求体
// metadata 对消息核心不透明，原样转发（permission_request / meeting_request 等）
type SendMessageInput struct {
	SenderID       string          `json:"senderId"`
	ReceiverID     string          `json:"receiverId"`
	SenderName     string          `json:"senderName"`
	Content        string          `json:"content"`
	AttachmentURL  string          `json:"attachmentUrl"`
	AttachmentType string          `json:"attachmentType"`
	Metadata       json.RawMessage `json:"metadata"`
}

// 批量已读请求体
type MarkReadInput struct {
	UserID string `json:"userId"`
}

// messagesRead 事件负载，count 只作提示用途
type ReadReceipt struct {
	UserID string `json:"userId"`
	Count  int    `json:"count"`
}
