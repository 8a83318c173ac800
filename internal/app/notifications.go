package app

import (
	"bytes"
	"context"
	"fmt"
	"html"
	"html/template"
	"log"
	"net/mail"
	"strings"

	"github.com/microcosm-cc/bluemonday"

	"storechat/internal/model"
	"storechat/internal/repository"
)

// NewMessageNotifier queues a notification job for each new message. The
// emails themselves are sent by the notification worker.
type NewMessageNotifier struct {
	publisher NotificationPublisher
}

func NewNewMessageNotifier(publisher NotificationPublisher) *NewMessageNotifier {
	return &NewMessageNotifier{publisher: publisher}
}

func (n *NewMessageNotifier) Name() string { return "email_notifier" }

func (n *NewMessageNotifier) OnNewMessage(ctx context.Context, event NewMessageEvent) error {
	return n.publisher.Publish(ctx, model.NotificationJob{
		Kind:      model.NotificationNewMessage,
		SessionID: event.SessionID,
		MessageID: event.MessageID,
		UserID:    event.SenderID,
	})
}

type Email struct {
	To      string
	Subject string
	HTML    string
	Text    string
}

type Mailer interface {
	Send(ctx context.Context, email Email) error
}

type Cooldown interface {
	Acquire(ctx context.Context, sessionID, userID uint) (bool, error)
}

type SiteInfo struct {
	Name string
	URL  string
}

// NotificationService turns queued jobs into emails.
type NotificationService struct {
	sessions     *repository.SessionRepository
	participants *repository.ParticipantRepository
	products     *repository.ProductRepository
	users        *repository.UserRepository
	messages     *repository.MessageRepository
	cooldown     Cooldown
	mailer       Mailer
	site         SiteInfo
	strip        *bluemonday.Policy
	ugc          *bluemonday.Policy
}

func NewNotificationService(
	sessions *repository.SessionRepository,
	participants *repository.ParticipantRepository,
	products *repository.ProductRepository,
	users *repository.UserRepository,
	messages *repository.MessageRepository,
	cooldown Cooldown,
	mailer Mailer,
	site SiteInfo,
) *NotificationService {
	return &NotificationService{
		sessions:     sessions,
		participants: participants,
		products:     products,
		users:        users,
		messages:     messages,
		cooldown:     cooldown,
		mailer:       mailer,
		site:         site,
		strip:        bluemonday.StrictPolicy(),
		ugc:          bluemonday.UGCPolicy(),
	}
}

func (s *NotificationService) Handle(ctx context.Context, job model.NotificationJob) error {
	switch job.Kind {
	case model.NotificationNewMessage:
		return s.notifyParticipants(ctx, job.SessionID, job.MessageID)
	case model.NotificationNeedsAttention:
		return s.notifyAgent(ctx, job.SessionID, job.UserID)
	default:
		return fmt.Errorf("unknown notification kind %q", job.Kind)
	}
}

var newMessageTemplate = template.Must(template.New("new_message").Parse(
	`<p>You have a message from <strong>{{.Sender}}</strong> in <em>{{.Context}}</em>.</p>
{{if .Body}}<blockquote style="margin:0;padding:0.5rem 1rem;border-left:3px solid #ddd;">{{.Body}}</blockquote>{{end}}
<p><a href="{{.Link}}" target="_blank">Open chat</a></p>
<hr><small>This is an automated message from {{.Site}}.</small>`))

type newMessageData struct {
	Sender  string
	Context string
	Body    template.HTML
	Link    string
	Site    string
}

// notifyParticipants emails every participant except the sender, at most
// once per cooldown window per recipient and session.
func (s *NotificationService) notifyParticipants(ctx context.Context, sessionID, messageID uint) error {
	msg, err := s.messages.GetByID(messageID)
	if err != nil {
		return err
	}
	if msg == nil || msg.SessionID != sessionID {
		return nil
	}

	title, link, err := s.sessionContext(sessionID)
	if err != nil {
		return err
	}

	senderName := fmt.Sprintf("User #%d", msg.SenderID)
	if sender, err := s.users.GetByID(msg.SenderID); err == nil && sender != nil {
		senderName = sender.Name()
	}

	var body, text string
	if msg.Body != nil {
		body = s.ugc.Sanitize(*msg.Body)
		text = preview(html.UnescapeString(s.strip.Sanitize(*msg.Body)), 25)
	}

	var rendered bytes.Buffer
	if err := newMessageTemplate.Execute(&rendered, newMessageData{
		Sender:  senderName,
		Context: title,
		Body:    template.HTML(body),
		Link:    link,
		Site:    s.site.Name,
	}); err != nil {
		return fmt.Errorf("render notification failed: %w", err)
	}

	subject := fmt.Sprintf("[%s] New chat message: %s", s.site.Name, title)
	plain := fmt.Sprintf("You have a message from %s in %s.\n\n%s\n\nOpen chat: %s\n", senderName, title, text, link)

	ids, err := s.participants.ListUserIDs(sessionID)
	if err != nil {
		return err
	}
	for _, uid := range ids {
		if uid == msg.SenderID {
			continue
		}
		ok, err := s.cooldown.Acquire(ctx, sessionID, uid)
		if err != nil {
			log.Printf("notification cooldown for user %d failed: %v", uid, err)
			continue
		}
		if !ok {
			continue
		}
		user, err := s.users.GetByID(uid)
		if err != nil || user == nil || !validEmail(user.Email) {
			continue
		}
		if err := s.mailer.Send(ctx, Email{To: user.Email, Subject: subject, HTML: rendered.String(), Text: plain}); err != nil {
			log.Printf("send notification to user %d failed: %v", uid, err)
		}
	}
	return nil
}

func (s *NotificationService) notifyAgent(ctx context.Context, sessionID, agentID uint) error {
	agent, err := s.users.GetByID(agentID)
	if err != nil {
		return err
	}
	if agent == nil || !validEmail(agent.Email) {
		return nil
	}
	title, link, err := s.sessionContext(sessionID)
	if err != nil {
		return err
	}
	text := fmt.Sprintf("A customer is waiting in chat (%s).\n\n%s\n", title, link)
	return s.mailer.Send(ctx, Email{
		To:      agent.Email,
		Subject: "New chat needs attention",
		HTML:    "<p>" + template.HTMLEscapeString(text) + "</p>",
		Text:    text,
	})
}

// sessionContext returns the product title and the link recipients should
// follow, falling back to "General" and the site URL.
func (s *NotificationService) sessionContext(sessionID uint) (string, string, error) {
	session, err := s.sessions.GetByID(sessionID)
	if err != nil {
		return "", "", err
	}
	title, link := "General", s.site.URL
	if session == nil || session.ProductID == nil {
		return title, link, nil
	}
	product, err := s.products.GetByID(*session.ProductID)
	if err != nil {
		return "", "", err
	}
	if product != nil {
		title = product.Name
		if product.Permalink != "" {
			link = product.Permalink
		}
	}
	return title, link, nil
}

func preview(text string, words int) string {
	fields := strings.Fields(text)
	if len(fields) <= words {
		return strings.Join(fields, " ")
	}
	return strings.Join(fields[:words], " ") + "..."
}

func validEmail(addr string) bool {
	if addr == "" {
		return false
	}
	_, err := mail.ParseAddress(addr)
	return err == nil
}
