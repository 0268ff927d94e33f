/*
 * @Author: NEFU AB-IN
 * @Date: 2026-01-27 10:12:40
 * @FilePath: \simple-diary\backend\internal\domain\entry\entity.go
 * @LastEditTime: 2026-01-27 10:12:40
 */
package entry

import "time"

// TimestampLayout 是 created_at/updated_at 的存储格式：UTC、毫秒精度的 ISO-8601。
const TimestampLayout = "2006-01-02T15:04:05.000Z"

// Entry 对应一条日记记录。
type Entry struct {
	ID        int64  `gorm:"column:id;primaryKey;autoIncrement" json:"id"`     // 主键，由存储层分配且不复用
	Date      string `gorm:"column:date;type:text;not null" json:"date"`       // 日记日期 YYYY-MM-DD
	Content   string `gorm:"column:content;type:text;not null" json:"content"` // 正文，原样保存
	CreatedAt string `gorm:"column:created_at;type:text;not null" json:"created_at"`
	UpdatedAt string `gorm:"column:updated_at;type:text;not null" json:"updated_at"`
}

// TableName 指定数据库表名。
func (Entry) TableName() string {
	return "entries"
}

// FormatTimestamp 把时间转换为 UTC 毫秒格式的字符串。
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// ParseTimestamp 解析 TimestampLayout 格式的时间戳。
func ParseTimestamp(raw string) (time.Time, error) {
	return time.Parse(TimestampLayout, raw)
}
