package worker

import (
	"context"
	"testing"

	"storechat/internal/model"
)

type recordingHandler struct {
	jobs []model.NotificationJob
}

func (h *recordingHandler) Handle(ctx context.Context, job model.NotificationJob) error {
	h.jobs = append(h.jobs, job)
	return nil
}

func TestInlinePublishHandlesImmediately(t *testing.T) {
	h := &recordingHandler{}
	pub := Inline{Handler: h}

	job := model.NotificationJob{Kind: model.NotificationNewMessage, SessionID: 3, MessageID: 9}
	if err := pub.Publish(context.Background(), job); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if len(h.jobs) != 1 || h.jobs[0] != job {
		t.Fatalf("unexpected jobs: %+v", h.jobs)
	}
}

func TestCloseWithoutStart(t *testing.T) {
	w := NewNotificationWorker(nil, &recordingHandler{}, "q")
	w.Close()
}
