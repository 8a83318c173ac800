package bootstrap

import (
	"context"
	"fmt"
	"log"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"storechat/internal/app"
	"storechat/internal/cache"
	"storechat/internal/config"
	"storechat/internal/model"
	"storechat/internal/platform/mail"
	mysqlClient "storechat/internal/platform/mysql"
	rabbitmqClient "storechat/internal/platform/rabbitmq"
	redisClient "storechat/internal/platform/redis"
	sqliteClient "storechat/internal/platform/sqlite"
	"storechat/internal/repository"
	"storechat/internal/storage"
	"storechat/internal/worker"
)

type App struct {
	Config   *config.Config
	DB       *gorm.DB
	Redis    *redis.Client
	MQConn   *amqp.Connection
	Store    storage.Store
	Services *Services
	Worker   *worker.NotificationWorker

	StartedAt time.Time
}

type Services struct {
	Auth          *app.AuthService
	Sessions      *app.SessionService
	Messages      *app.MessageService
	Realtime      *app.RealtimeService
	Uploads       *app.UploadService
	Notifications *app.NotificationService
}

func New(ctx context.Context) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config failed: %w", err)
	}

	a := &App{Config: cfg, StartedAt: time.Now()}

	a.DB, err = OpenDatabase(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err := Migrate(a.DB); err != nil {
		a.Close()
		return nil, err
	}

	a.Redis, err = redisClient.New(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.Store, err = OpenStore(cfg)
	if err != nil {
		a.Close()
		return nil, err
	}

	var publisher app.NotificationPublisher
	if cfg.RabbitMQ.URL != "" {
		a.MQConn, err = rabbitmqClient.New(ctx, cfg.RabbitMQ.URL)
		if err != nil {
			a.Close()
			return nil, err
		}
		publisher = rabbitmqClient.NewNotificationPublisher(a.MQConn, cfg.RabbitMQ.NotificationQueue)
	} else {
		log.Printf("rabbitmq not configured, notifications are sent inline")
	}

	mailer, err := NewMailer(cfg)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.Services = NewServices(cfg, a.DB, a.Redis, a.Store, mailer, publisher)

	if a.MQConn != nil {
		a.Worker = worker.NewNotificationWorker(a.MQConn, a.Services.Notifications, cfg.RabbitMQ.NotificationQueue)
		if err := a.Worker.Start(ctx); err != nil {
			a.Close()
			return nil, fmt.Errorf("start notification worker failed: %w", err)
		}
	}
	return a, nil
}

func OpenDatabase(ctx context.Context, cfg *config.Config) (*gorm.DB, error) {
	if cfg.Database.Driver == "sqlite" {
		return sqliteClient.New(ctx, cfg.Database.SQLitePath)
	}
	return mysqlClient.New(ctx, cfg.MySQLDSN())
}

func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(model.Tables()...); err != nil {
		return fmt.Errorf("auto migrate tables failed: %w", err)
	}
	return nil
}

func OpenStore(cfg *config.Config) (storage.Store, error) {
	if cfg.Upload.Driver == "oss" {
		return storage.NewOSSStore(cfg.OSS.Endpoint, cfg.OSS.AccessKeyID, cfg.OSS.AccessKeySecret, cfg.OSS.Bucket, cfg.OSS.PublicBaseURL)
	}
	return storage.NewLocalStore(cfg.Upload.LocalDir, cfg.Upload.PublicBaseURL)
}

func NewMailer(cfg *config.Config) (app.Mailer, error) {
	if !cfg.Mail.Enabled {
		return mail.LogMailer{}, nil
	}
	return mail.NewSMTPMailer(mail.Config{
		Host:     cfg.Mail.Host,
		Port:     cfg.Mail.Port,
		Username: cfg.Mail.Username,
		Password: cfg.Mail.Password,
		From:     cfg.Mail.From,
	})
}

// NewServices wires the chat services. A nil publisher makes notification
// jobs run inline.
func NewServices(
	cfg *config.Config,
	db *gorm.DB,
	rdb *redis.Client,
	store storage.Store,
	mailer app.Mailer,
	publisher app.NotificationPublisher,
) *Services {
	userRepo := repository.NewUserRepository(db)
	productRepo := repository.NewProductRepository(db)
	sessionRepo := repository.NewSessionRepository(db)
	participantRepo := repository.NewParticipantRepository(db)
	messageRepo := repository.NewMessageRepository(db)
	attachmentRepo := repository.NewAttachmentRepository(db)
	counterRepo := repository.NewCounterRepository(db, repository.AgentRoundRobinCounter)

	presence := cache.NewPresenceTracker(rdb, seconds(cfg.Chat.PresenceTTLSeconds))
	typing := cache.NewTypingTracker(rdb, seconds(cfg.Chat.TypingTTLSeconds))
	cooldown := cache.NewNotifyCooldown(rdb, seconds(cfg.Chat.NotifyCooldownSeconds))

	policy := app.ChatPolicy{
		AssignAgentMode:    cfg.Chat.AssignAgentMode,
		AutoAssignMerchant: cfg.Chat.AutoAssignMerchant,
		AutoAssignDesigner: cfg.Chat.AutoAssignDesigner,
		DesignerMetaKey:    cfg.Chat.DesignerMetaKey,
		AutoJoinRoles:      cfg.Chat.AutoJoinRoles,
	}

	gate := app.NewGate(sessionRepo, participantRepo, productRepo, policy)
	agents := app.NewAgentPicker(userRepo, counterRepo)

	notifications := app.NewNotificationService(
		sessionRepo,
		participantRepo,
		productRepo,
		userRepo,
		messageRepo,
		cooldown,
		mailer,
		app.SiteInfo{Name: cfg.Mail.SiteName, URL: cfg.App.SiteURL},
	)
	if publisher == nil {
		publisher = worker.Inline{Handler: notifications}
	}

	// Escalation runs before the email notifier so that an agent pulled in
	// by this message is among the recipients.
	events := app.NewMessageEvents(
		app.NewEscalation(participantRepo, presence, agents, publisher),
		app.NewNewMessageNotifier(publisher),
	)

	return &Services{
		Auth: app.NewAuthService(
			userRepo,
			cfg.Auth.JWTSecret,
			time.Duration(cfg.Auth.JWTExpireMinute)*time.Minute,
		),
		Sessions: app.NewSessionService(sessionRepo, participantRepo, productRepo, userRepo, agents, gate, policy),
		Messages: app.NewMessageService(gate, messageRepo, attachmentRepo, events, store),
		Realtime: app.NewRealtimeService(gate, participantRepo, presence, typing),
		Uploads: app.NewUploadService(gate, attachmentRepo, store, app.UploadPolicy{
			MaxBytes:     cfg.MaxUploadBytes(),
			AllowedMIMEs: cfg.Upload.AllowedMIMEs,
			ThumbSize:    cfg.Upload.ThumbSize,
		}),
		Notifications: notifications,
	}
}

func seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}

func (a *App) Close() error {
	var closeErr error
	if a.Worker != nil {
		a.Worker.Close()
	}
	if a.MQConn != nil {
		if err := a.MQConn.Close(); err != nil {
			closeErr = err
		}
	}
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			closeErr = err
		}
	}
	if a.DB != nil {
		sqlDB, err := a.DB.DB()
		if err == nil {
			if err := sqlDB.Close(); err != nil {
				closeErr = err
			}
		}
	}
	return closeErr
}
