package model

const (
	NotificationNewMessage     = "new_message"
	NotificationNeedsAttention = "needs_attention"
)

// NotificationJob is the queue payload consumed by the notification worker.
type NotificationJob struct {
	Kind      string `json:"kind"`
	SessionID uint   `json:"session_id"`
	MessageID uint   `json:"message_id,omitempty"`
	UserID    uint   `json:"user_id,omitempty"`
}
