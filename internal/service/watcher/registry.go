package watcher

import (
	"context"

	"go.uber.org/zap"

	"tasktracker/internal/model"
)

// Store 显式关注行的存取
type Store interface {
	ListByTask(ctx context.Context, taskID int) ([]int, error)
	Add(ctx context.Context, taskID, userID int) error
	Remove(ctx context.Context, taskID, userID int) error
}

// Registry 计算任务的有效关注者集合。
// 有效集合 = 显式关注行 ∪ {holder, assignee, creator}，按用户 ID 去重。
type Registry struct {
	store  Store
	logger *zap.Logger
}

func NewRegistry(store Store, logger *zap.Logger) *Registry {
	return &Registry{store: store, logger: logger}
}

// ImplicitWatchers holder、assignee、creator，去重并过滤非正 ID
func ImplicitWatchers(t *model.Task) []int {
	return Unique(t.HolderID, t.AssigneeID, t.CreatedBy)
}

// EffectiveWatchers 隐式关注者在前，显式关注者按存储顺序在后
func (r *Registry) EffectiveWatchers(ctx context.Context, t *model.Task) ([]int, error) {
	explicit, err := r.store.ListByTask(ctx, t.ID)
	if err != nil {
		return nil, err
	}

	ids := append([]int{t.HolderID, t.AssigneeID, t.CreatedBy}, explicit...)
	watchers := Unique(ids...)

	r.logger.Debug("Resolved effective watchers",
		zap.Int("task_id", t.ID),
		zap.Int("explicit", len(explicit)),
		zap.Ints("watchers", watchers),
	)
	return watchers, nil
}

// Explicit 只返回显式关注行
func (r *Registry) Explicit(ctx context.Context, taskID int) ([]int, error) {
	return r.store.ListByTask(ctx, taskID)
}

func (r *Registry) Add(ctx context.Context, taskID, userID int) error {
	return r.store.Add(ctx, taskID, userID)
}

func (r *Registry) Remove(ctx context.Context, taskID, userID int) error {
	return r.store.Remove(ctx, taskID, userID)
}

// Unique 保持首次出现的顺序，丢弃 <= 0 的 ID
func Unique(ids ...int) []int {
	seen := make(map[int]struct{}, len(ids))
	out := make([]int, 0, len(ids))
	for _, id := range ids {
		if id <= 0 {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
