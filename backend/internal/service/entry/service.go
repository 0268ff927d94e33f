/*
 * @Author: NEFU AB-IN
 * @Date: 2026-01-27 18:40:22
 * @FilePath: \simple-diary\backend\internal\service\entry\service.go
 * @LastEditTime: 2026-01-28 10:05:41
 */
package entry

import (
	"context"

	domain "github.com/yn01/simple-diary/backend/internal/domain/entry"
)

// Repository 描述业务层依赖的持久化能力，由 repository.EntryRepository 实现。
type Repository interface {
	Create(ctx context.Context, date, content string) (*domain.Entry, error)
	FindAll(ctx context.Context) ([]domain.Entry, error)
	FindByID(ctx context.Context, id int64) (*domain.Entry, error)
	Update(ctx context.Context, id int64, date, content string) (*domain.Entry, error)
	Delete(ctx context.Context, id int64) (bool, error)
	Search(ctx context.Context, keyword *string) ([]domain.Entry, error)
}

// Service 目前只做透传，新的业务规则统一加在这一层。
type Service struct {
	entries Repository
}

// NewService 构造日记服务。
func NewService(entries Repository) *Service {
	return &Service{entries: entries}
}

// CreateEntry 新增一条日记。
func (s *Service) CreateEntry(ctx context.Context, date, content string) (*domain.Entry, error) {
	return s.entries.Create(ctx, date, content)
}

// ListEntries 返回全部日记。
func (s *Service) ListEntries(ctx context.Context) ([]domain.Entry, error) {
	return s.entries.FindAll(ctx)
}

// GetEntry 查询单条日记，不存在时返回 (nil, nil)。
func (s *Service) GetEntry(ctx context.Context, id int64) (*domain.Entry, error) {
	return s.entries.FindByID(ctx, id)
}

// UpdateEntry 覆盖日记的日期与正文，不存在时返回 (nil, nil)。
func (s *Service) UpdateEntry(ctx context.Context, id int64, date, content string) (*domain.Entry, error) {
	return s.entries.Update(ctx, id, date, content)
}

// DeleteEntry 删除日记，返回是否确实删除。
func (s *Service) DeleteEntry(ctx context.Context, id int64) (bool, error) {
	return s.entries.Delete(ctx, id)
}

// SearchEntries 按关键字搜索正文。
func (s *Service) SearchEntries(ctx context.Context, keyword *string) ([]domain.Entry, error) {
	return s.entries.Search(ctx, keyword)
}
