/*
 * @Author: NEFU AB-IN
 * @Date: 2026-01-27 17:12:09
 * @FilePath: \simple-diary\backend\internal\repository\entry_repository.go
 * @LastEditTime: 2026-01-29 09:48:33
 */
package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/yn01/simple-diary/backend/internal/domain/entry"

	"gorm.io/gorm"
)

// likeEscape 是 LIKE 子句使用的转义字符，SQLite 与 MySQL 写法一致。
const likeEscape = "!"

var likeEscaper = strings.NewReplacer(
	likeEscape, likeEscape+likeEscape,
	"%", likeEscape+"%",
	"_", likeEscape+"_",
)

// EntryRepository 提供 entries 表的读写封装，所有写入前都会重新校验输入。
type EntryRepository struct {
	db  *gorm.DB
	now func() time.Time
}

// Option 用于定制仓储行为。
type Option func(*EntryRepository)

// WithClock 替换时间来源，测试中用于构造固定或回拨的时钟。
func WithClock(now func() time.Time) Option {
	return func(r *EntryRepository) {
		if now != nil {
			r.now = now
		}
	}
}

// NewEntryRepository 构造仓储实例。
func NewEntryRepository(db *gorm.DB, opts ...Option) *EntryRepository {
	repo := &EntryRepository{db: db, now: time.Now}
	for _, opt := range opts {
		opt(repo)
	}
	return repo
}

// Create 校验后写入一条日记，created_at 与 updated_at 取同一时刻。
func (r *EntryRepository) Create(ctx context.Context, date, content string) (*entry.Entry, error) {
	if err := entry.ValidateEntry(date, content); err != nil {
		return nil, err
	}

	stamp := entry.FormatTimestamp(r.now())
	record := entry.Entry{
		Date:      date,
		Content:   content,
		CreatedAt: stamp,
		UpdatedAt: stamp,
	}
	if err := r.db.WithContext(ctx).Create(&record).Error; err != nil {
		return nil, fmt.Errorf("insert entry: %w", err)
	}
	return &record, nil
}

// FindAll 按日期倒序返回全部日记，同一天内 id 大的在前。
func (r *EntryRepository) FindAll(ctx context.Context) ([]entry.Entry, error) {
	entries := make([]entry.Entry, 0)
	if err := r.ordered(r.db.WithContext(ctx)).Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	return nonNil(entries), nil
}

// FindByID 根据主键查找日记，非正数或不存在时返回 (nil, nil)。
func (r *EntryRepository) FindByID(ctx context.Context, id int64) (*entry.Entry, error) {
	if id <= 0 {
		return nil, nil
	}
	found, err := findByID(r.db.WithContext(ctx), id)
	if err != nil {
		return nil, fmt.Errorf("find entry %d: %w", id, err)
	}
	return found, nil
}

// Update 在同一事务内读取并覆盖 date/content，保留 id 与 created_at。
// 记录不存在时返回 (nil, nil) 且不产生任何写入。
func (r *EntryRepository) Update(ctx context.Context, id int64, date, content string) (*entry.Entry, error) {
	if err := entry.ValidateEntry(date, content); err != nil {
		return nil, err
	}
	if id <= 0 {
		return nil, nil
	}

	var updated *entry.Entry
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		current, err := findByID(tx, id)
		if err != nil {
			return err
		}
		if current == nil {
			return nil
		}

		stamp := r.stampAfter(current.UpdatedAt)
		if err := tx.Model(&entry.Entry{}).
			Where("id = ?", id).
			Updates(map[string]any{
				"date":       date,
				"content":    content,
				"updated_at": stamp,
			}).Error; err != nil {
			return err
		}

		updated = &entry.Entry{
			ID:        current.ID,
			Date:      date,
			Content:   content,
			CreatedAt: current.CreatedAt,
			UpdatedAt: stamp,
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("update entry %d: %w", id, err)
	}
	return updated, nil
}

// Delete 物理删除指定日记，只有确实删除了一行才返回 true。
func (r *EntryRepository) Delete(ctx context.Context, id int64) (bool, error) {
	if id <= 0 {
		return false, nil
	}
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&entry.Entry{})
	if result.Error != nil {
		return false, fmt.Errorf("delete entry %d: %w", id, result.Error)
	}
	return result.RowsAffected > 0, nil
}

// Search 对正文做不区分大小写的子串匹配，% _ ! 均按字面量处理；空关键字匹配全部。
func (r *EntryRepository) Search(ctx context.Context, keyword *string) ([]entry.Entry, error) {
	if err := entry.ValidateKeyword(keyword); err != nil {
		return nil, err
	}

	pattern := "%" + escapeLike(*keyword) + "%"
	entries := make([]entry.Entry, 0)
	query := r.db.WithContext(ctx).Where("content LIKE ? ESCAPE '"+likeEscape+"'", pattern)
	if err := r.ordered(query).Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("search entries: %w", err)
	}
	return nonNil(entries), nil
}

// Count 返回当前日记总数。
func (r *EntryRepository) Count(ctx context.Context) (int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&entry.Entry{}).Count(&total).Error; err != nil {
		return 0, fmt.Errorf("count entries: %w", err)
	}
	return total, nil
}

// Restore 在一个事务内按原样写入快照中的日记（保留 id 与时间戳），任何一条不合法都会整体放弃。
func (r *EntryRepository) Restore(ctx context.Context, entries []entry.Entry) error {
	if len(entries) == 0 {
		return nil
	}
	if err := validateSnapshot(entries); err != nil {
		return err
	}

	rows := make([]entry.Entry, len(entries))
	copy(rows, entries)

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.CreateInBatches(&rows, 200).Error
	})
	if err != nil {
		return fmt.Errorf("restore entries: %w", err)
	}
	return nil
}

func (r *EntryRepository) ordered(query *gorm.DB) *gorm.DB {
	return query.Model(&entry.Entry{}).Order("date DESC, id DESC")
}

// stampAfter 返回当前时间戳，但不早于 previous，保证 updated_at 单调不减。
func (r *EntryRepository) stampAfter(previous string) string {
	now := r.now().UTC()
	if prev, err := entry.ParseTimestamp(previous); err == nil && now.Before(prev) {
		now = prev
	}
	return entry.FormatTimestamp(now)
}

func findByID(db *gorm.DB, id int64) (*entry.Entry, error) {
	var rows []entry.Entry
	if err := db.Model(&entry.Entry{}).Where("id = ?", id).Limit(1).Find(&rows).Error; err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

func escapeLike(keyword string) string {
	return likeEscaper.Replace(keyword)
}

func nonNil(entries []entry.Entry) []entry.Entry {
	if entries == nil {
		return []entry.Entry{}
	}
	return entries
}

func validateSnapshot(entries []entry.Entry) error {
	verr := &entry.ValidationError{}
	seen := make(map[int64]struct{}, len(entries))
	for i, item := range entries {
		prefix := fmt.Sprintf("entries[%d].", i)
		if item.ID <= 0 || item.ID > entry.MaxID {
			verr.Add(prefix+entry.FieldID, entry.CodeInvalidID, entry.MsgIDNotInteger)
		} else if _, dup := seen[item.ID]; dup {
			verr.Add(prefix+entry.FieldID, entry.CodeInvalidID, "Duplicate ID")
		}
		seen[item.ID] = struct{}{}

		if err := entry.ValidateEntry(item.Date, item.Content); err != nil {
			if inner, ok := err.(*entry.ValidationError); ok {
				for _, v := range inner.Violations {
					verr.Add(prefix+v.Field, v.Code, v.Message)
				}
			}
		}

		created, cerr := entry.ParseTimestamp(item.CreatedAt)
		updated, uerr := entry.ParseTimestamp(item.UpdatedAt)
		if cerr != nil || uerr != nil || updated.Before(created) {
			verr.Add(prefix+"updated_at", entry.CodeInvalidDate, "Timestamps must be ordered ISO-8601 UTC values")
		}
	}
	if verr.Empty() {
		return nil
	}
	return verr
}
