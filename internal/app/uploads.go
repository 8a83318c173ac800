package app

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"storechat/internal/model"
	"storechat/internal/pkg/mediainfo"
	"storechat/internal/repository"
)

// ObjectStore persists attachment bytes; see internal/storage.
type ObjectStore interface {
	Put(ctx context.Context, key string, body io.Reader, contentType string) error
	Delete(ctx context.Context, key string) error
	URL(key string) string
}

type UploadPolicy struct {
	MaxBytes     int64
	AllowedMIMEs []string
	ThumbSize    int
}

type UploadInput struct {
	SessionID uint
	FileName  string
	// Size is the size declared by the client, 0 when unknown.
	Size int64
	Body io.Reader
}

type UploadResult struct {
	AttachmentID uint   `json:"attachment_id"`
	URL          string `json:"url"`
}

type UploadService struct {
	gate        *Gate
	attachments *repository.AttachmentRepository
	store       ObjectStore
	maxBytes    int64
	allowed     map[string]bool
	thumbSize   int
}

func NewUploadService(
	gate *Gate,
	attachments *repository.AttachmentRepository,
	store ObjectStore,
	policy UploadPolicy,
) *UploadService {
	allowed := make(map[string]bool, len(policy.AllowedMIMEs))
	for _, m := range policy.AllowedMIMEs {
		allowed[strings.ToLower(strings.TrimSpace(m))] = true
	}
	return &UploadService{
		gate:        gate,
		attachments: attachments,
		store:       store,
		maxBytes:    policy.MaxBytes,
		allowed:     allowed,
		thumbSize:   policy.ThumbSize,
	}
}

// Upload stores a file for a session. The attachment record is written
// last, so a rejected upload leaves no record behind.
func (s *UploadService) Upload(ctx context.Context, actor Actor, input UploadInput) (*UploadResult, error) {
	if input.Body == nil {
		return nil, ErrNoFile
	}
	if _, err := s.gate.MaySend(actor, input.SessionID); err != nil {
		return nil, err
	}
	if input.Size > s.maxBytes {
		return nil, s.SizeError()
	}

	data, err := io.ReadAll(io.LimitReader(input.Body, s.maxBytes+1))
	if err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, ErrUploadPartial
		}
		return nil, fmt.Errorf("read upload failed: %w", err)
	}
	if int64(len(data)) > s.maxBytes {
		return nil, s.SizeError()
	}
	if len(data) == 0 {
		return nil, ErrNoFile.WithMessage("uploaded file is empty")
	}

	info := mediainfo.Inspect(data, s.thumbSize)
	if !s.allowed[info.MIME] {
		return nil, ErrFileTypeDenied.WithMessage("file type %s is not allowed", info.MIME)
	}

	name := cleanFileName(input.FileName)
	ext := info.Extension
	if ext == "" {
		ext = strings.ToLower(filepath.Ext(name))
	}
	id := uuid.NewString()
	key := fmt.Sprintf("chat/%d/%s%s", input.SessionID, id, ext)

	if err := s.store.Put(ctx, key, bytes.NewReader(data), info.MIME); err != nil {
		log.Printf("store upload for session %d failed: %v", input.SessionID, err)
		return nil, ErrUploadFailed
	}

	var thumbKey string
	if len(info.Thumbnail) > 0 {
		thumbKey = fmt.Sprintf("chat/%d/%s-thumb.png", input.SessionID, id)
		if err := s.store.Put(ctx, thumbKey, bytes.NewReader(info.Thumbnail), "image/png"); err != nil {
			log.Printf("store thumbnail for session %d failed: %v", input.SessionID, err)
			thumbKey = ""
		}
	}

	att := &model.Attachment{
		SessionID:  input.SessionID,
		UploaderID: actor.UserID,
		FileName:   name,
		MimeType:   info.MIME,
		SizeBytes:  int64(len(data)),
		StorageKey: key,
		ThumbKey:   thumbKey,
		Width:      info.Width,
		Height:     info.Height,
		PageCount:  info.PageCount,
	}
	if err := s.attachments.Create(att); err != nil {
		s.discard(ctx, key, thumbKey)
		return nil, err
	}
	return &UploadResult{AttachmentID: att.ID, URL: s.store.URL(key)}, nil
}

func (s *UploadService) MaxBytes() int64 { return s.maxBytes }

// SizeError is the error returned for files over the size limit.
func (s *UploadService) SizeError() error {
	return ErrFileTooLarge.WithMessage("File is too large. Maximum size is %s.", formatSize(s.maxBytes))
}

func (s *UploadService) discard(ctx context.Context, keys ...string) {
	for _, k := range keys {
		if k == "" {
			continue
		}
		if err := s.store.Delete(ctx, k); err != nil {
			log.Printf("delete orphaned object %s failed: %v", k, err)
		}
	}
}

func cleanFileName(name string) string {
	name = filepath.Base(strings.ReplaceAll(strings.TrimSpace(name), "\\", "/"))
	if name == "." || name == "/" || name == "" {
		return "file"
	}
	if len(name) > 255 {
		name = name[len(name)-255:]
	}
	return name
}

// formatSize renders a byte count the way storefront admins see it, e.g.
// "5 MB" or "1.5 KB".
func formatSize(n int64) string {
	units := []string{"B", "KB", "MB", "GB"}
	size := float64(n)
	i := 0
	for size >= 1024 && i < len(units)-1 {
		size /= 1024
		i++
	}
	if size == float64(int64(size)) {
		return fmt.Sprintf("%d %s", int64(size), units[i])
	}
	return fmt.Sprintf("%.1f %s", size, units[i])
}
