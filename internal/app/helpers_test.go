package app

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	redisv9 "github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"storechat/internal/cache"
	"storechat/internal/model"
	"storechat/internal/platform/sqlite"
	"storechat/internal/repository"
	"storechat/internal/roles"
)

type memStore struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func newMemStore() *memStore {
	return &memStore{objects: make(map[string][]byte)}
}

func (s *memStore) Put(ctx context.Context, key string, body io.Reader, contentType string) error {
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = data
	return nil
}

func (s *memStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, key)
	return nil
}

func (s *memStore) URL(key string) string { return "/uploads/" + key }

func (s *memStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.objects)
}

type recordingPublisher struct {
	mu   sync.Mutex
	jobs []model.NotificationJob
}

func (p *recordingPublisher) Publish(ctx context.Context, job model.NotificationJob) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.jobs = append(p.jobs, job)
	return nil
}

func (p *recordingPublisher) kinds() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.jobs))
	for _, j := range p.jobs {
		out = append(out, j.Kind)
	}
	return out
}

type recordingMailer struct {
	mu   sync.Mutex
	sent []Email
}

func (m *recordingMailer) Send(ctx context.Context, email Email) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, email)
	return nil
}

type fixture struct {
	db           *gorm.DB
	redis        *miniredis.Miniredis
	users        *repository.UserRepository
	products     *repository.ProductRepository
	sessionRepo  *repository.SessionRepository
	participants *repository.ParticipantRepository
	messageRepo  *repository.MessageRepository
	attachments  *repository.AttachmentRepository
	counter      *repository.CounterRepository
	presence     *cache.PresenceTracker
	typing       *cache.TypingTracker
	store        *memStore
	publisher    *recordingPublisher
	mailer       *recordingMailer

	gate          *Gate
	agents        *AgentPicker
	escalation    *Escalation
	sessions      *SessionService
	messages      *MessageService
	realtime      *RealtimeService
	uploads       *UploadService
	notifications *NotificationService
}

func defaultPolicy() ChatPolicy {
	return ChatPolicy{
		AssignAgentMode:    "none",
		AutoAssignMerchant: true,
		AutoAssignDesigner: true,
		DesignerMetaKey:    "designer_user_id",
	}
}

func newFixture(t *testing.T, policy ChatPolicy) *fixture {
	t.Helper()
	ctx := context.Background()

	db, err := sqlite.New(ctx, ":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(model.Tables()...); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	mr := miniredis.RunT(t)
	rdb := redisv9.NewClient(&redisv9.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	f := &fixture{
		db:           db,
		redis:        mr,
		users:        repository.NewUserRepository(db),
		products:     repository.NewProductRepository(db),
		sessionRepo:  repository.NewSessionRepository(db),
		participants: repository.NewParticipantRepository(db),
		messageRepo:  repository.NewMessageRepository(db),
		attachments:  repository.NewAttachmentRepository(db),
		counter:      repository.NewCounterRepository(db, repository.AgentRoundRobinCounter),
		presence:     cache.NewPresenceTracker(rdb, time.Minute),
		typing:       cache.NewTypingTracker(rdb, 8*time.Second),
		store:        newMemStore(),
		publisher:    &recordingPublisher{},
		mailer:       &recordingMailer{},
	}

	f.gate = NewGate(f.sessionRepo, f.participants, f.products, policy)
	f.agents = NewAgentPicker(f.users, f.counter)
	f.escalation = NewEscalation(f.participants, f.presence, f.agents, f.publisher)
	events := NewMessageEvents(f.escalation, NewNewMessageNotifier(f.publisher))

	f.sessions = NewSessionService(f.sessionRepo, f.participants, f.products, f.users, f.agents, f.gate, policy)
	f.messages = NewMessageService(f.gate, f.messageRepo, f.attachments, events, f.store)
	f.realtime = NewRealtimeService(f.gate, f.participants, f.presence, f.typing)
	f.uploads = NewUploadService(f.gate, f.attachments, f.store, UploadPolicy{
		MaxBytes:     5 << 20,
		AllowedMIMEs: []string{"image/png", "image/jpeg", "application/pdf", "text/plain"},
		ThumbSize:    150,
	})
	f.notifications = NewNotificationService(
		f.sessionRepo, f.participants, f.products, f.users, f.messageRepo,
		cache.NewNotifyCooldown(rdb, time.Minute), f.mailer,
		SiteInfo{Name: "Shop", URL: "https://shop.example/"},
	)
	return f
}

// user creates a user holding the given platform roles and returns it as an
// actor.
func (f *fixture) user(t *testing.T, name string, platformRoles ...string) Actor {
	t.Helper()
	u := &model.User{Username: name, Email: name + "@example.com", PasswordHash: "x"}
	for _, r := range platformRoles {
		u.Roles = append(u.Roles, model.UserRole{Role: r})
	}
	if err := f.users.Create(u); err != nil {
		t.Fatalf("create user %s: %v", name, err)
	}
	return Actor{UserID: u.ID, Roles: platformRoles}
}

func (f *fixture) buyer(t *testing.T, name string) Actor {
	return f.user(t, name, roles.Customer)
}

func (f *fixture) product(t *testing.T, name string, authorID uint, meta map[string]any) *model.Product {
	t.Helper()
	p := &model.Product{Name: name, AuthorID: authorID, Permalink: "https://shop.example/p/" + name, Meta: meta}
	if err := f.products.Create(p); err != nil {
		t.Fatalf("create product: %v", err)
	}
	return p
}

func (f *fixture) openSession(t *testing.T, actor Actor, productID uint) uint {
	t.Helper()
	res, err := f.sessions.CreateOrGet(context.Background(), actor, productID)
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	return res.SessionID
}

func (f *fixture) roleOf(t *testing.T, sessionID, userID uint) string {
	t.Helper()
	p, err := f.participants.Get(sessionID, userID)
	if err != nil {
		t.Fatalf("get participant: %v", err)
	}
	if p == nil {
		return ""
	}
	return p.RoleSlug
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, w, h))); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func reader(b []byte) io.Reader { return bytes.NewReader(b) }
