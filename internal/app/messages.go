package app

import (
	"context"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"

	"storechat/internal/model"
	"storechat/internal/repository"
	"storechat/internal/roles"
)

type MessageService struct {
	gate        *Gate
	messages    *repository.MessageRepository
	attachments *repository.AttachmentRepository
	events      *MessageEvents
	store       ObjectStore
	policy      *bluemonday.Policy
	now         func() time.Time
}

type SendMessageInput struct {
	SessionID    uint
	Text         string
	AttachmentID uint
}

// MessageView is a message as returned to clients, with its attachment
// resolved to a fetchable URL.
type MessageView struct {
	model.Message
	AttachmentURL   string `json:"attachment_url,omitempty"`
	AttachmentName  string `json:"attachment_name,omitempty"`
	AttachmentMIME  string `json:"attachment_mime,omitempty"`
	AttachmentThumb string `json:"attachment_thumb,omitempty"`
}

func NewMessageService(
	gate *Gate,
	messages *repository.MessageRepository,
	attachments *repository.AttachmentRepository,
	events *MessageEvents,
	store ObjectStore,
) *MessageService {
	return &MessageService{
		gate:        gate,
		messages:    messages,
		attachments: attachments,
		events:      events,
		store:       store,
		policy:      bluemonday.UGCPolicy(),
		now:         time.Now,
	}
}

// Send stores a message from actor and then notifies message handlers.
// Handler failures never fail the send.
func (s *MessageService) Send(ctx context.Context, actor Actor, input SendMessageInput) (*model.Message, error) {
	if _, err := s.gate.MaySend(actor, input.SessionID); err != nil {
		return nil, err
	}

	text := strings.TrimSpace(s.policy.Sanitize(input.Text))
	if text == "" && input.AttachmentID == 0 {
		return nil, ErrEmptyMessage
	}

	msg := &model.Message{SessionID: input.SessionID, SenderID: actor.UserID}
	if text != "" {
		msg.Body = &text
	}

	if input.AttachmentID != 0 {
		att, err := s.attachments.GetByID(input.AttachmentID)
		if err != nil {
			return nil, err
		}
		if att == nil {
			return nil, ErrAttachmentNotFound
		}
		if att.SessionID != input.SessionID {
			return nil, ErrAttachmentMismatch
		}
		if att.UploaderID != actor.UserID && !actor.Can(roles.CapManage) {
			return nil, ErrAttachmentForbidden
		}
		msg.AttachmentID = &att.ID
	}

	if err := s.messages.Create(msg); err != nil {
		return nil, err
	}

	s.events.Dispatch(ctx, NewMessageEvent{
		SessionID: msg.SessionID,
		MessageID: msg.ID,
		SenderID:  msg.SenderID,
	})
	return msg, nil
}

// FetchSince returns messages newer than afterID, oldest first, capped at
// repository.MaxFetchLimit.
func (s *MessageService) FetchSince(ctx context.Context, actor Actor, sessionID, afterID uint) ([]MessageView, error) {
	if _, err := s.gate.MayView(actor, sessionID); err != nil {
		return nil, err
	}

	rows, err := s.messages.ListAfter(sessionID, afterID, repository.MaxFetchLimit)
	if err != nil {
		return nil, err
	}

	var attIDs []uint
	seen := make(map[uint]bool)
	for _, m := range rows {
		if m.AttachmentID != nil && !seen[*m.AttachmentID] {
			seen[*m.AttachmentID] = true
			attIDs = append(attIDs, *m.AttachmentID)
		}
	}
	atts, err := s.attachments.ListByIDs(attIDs)
	if err != nil {
		return nil, err
	}
	byID := make(map[uint]model.Attachment, len(atts))
	for _, a := range atts {
		byID[a.ID] = a
	}

	out := make([]MessageView, 0, len(rows))
	for _, m := range rows {
		view := MessageView{Message: m}
		if m.AttachmentID != nil {
			if a, ok := byID[*m.AttachmentID]; ok {
				view.AttachmentURL = s.store.URL(a.StorageKey)
				view.AttachmentName = a.FileName
				view.AttachmentMIME = a.MimeType
				if a.IsImage() && a.ThumbKey != "" {
					view.AttachmentThumb = s.store.URL(a.ThumbKey)
				}
			}
		}
		out = append(out, view)
	}
	return out, nil
}

// MarkRead marks everything the reader has received in the session as read
// and returns the highest message id in the session.
func (s *MessageService) MarkRead(ctx context.Context, actor Actor, sessionID uint) (uint, error) {
	if _, err := s.gate.MayView(actor, sessionID); err != nil {
		return 0, err
	}
	return s.messages.MarkRead(sessionID, actor.UserID, s.now())
}
