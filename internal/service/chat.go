package service

import (
	"context"
	"strings"

	"github.com/MantraGGR/name---level-up-irl-app/internal/advisor"
	"github.com/MantraGGR/name---level-up-irl-app/internal/apperr"
	"github.com/MantraGGR/name---level-up-irl-app/internal/models"
	"github.com/MantraGGR/name---level-up-irl-app/internal/store"
)

const maxChatMessage = 2000

func (s *Service) Chat(ctx context.Context, userID, message string) (advisor.Reply, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return advisor.Reply{}, apperr.Validation("message is required")
	}
	if len([]rune(message)) > maxChatMessage {
		return advisor.Reply{}, apperr.Validation("message is longer than %d characters", maxChatMessage)
	}
	return s.Advisor.Reply(ctx, userID, message)
}

// chatBackend feeds the advisor from the store.
type chatBackend struct{ s *Service }

func (b chatBackend) Snapshot(ctx context.Context, userID string) (advisor.Snapshot, error) {
	u, err := b.s.Store.GetUser(ctx, userID)
	if err != nil {
		return advisor.Snapshot{}, err
	}
	pending := false
	tasks, err := b.s.Store.ListTasks(ctx, userID, store.TaskFilter{Completed: &pending})
	if err != nil {
		return advisor.Snapshot{}, err
	}
	return advisor.Snapshot{FullName: u.FullName, Ledger: u.Ledger, PendingTasks: tasks}, nil
}

func (b chatBackend) CreateTask(ctx context.Context, t models.Task) (models.Task, error) {
	t.CreatedAt = b.s.Now()
	if err := b.s.Store.CreateTask(ctx, &t); err != nil {
		return models.Task{}, err
	}
	return t, nil
}
