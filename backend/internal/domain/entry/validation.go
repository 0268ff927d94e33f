/*
 * @Author: NEFU AB-IN
 * @Date: 2026-01-27 10:31:05
 * @FilePath: \simple-diary\backend\internal\domain\entry\validation.go
 * @LastEditTime: 2026-01-28 21:04:17
 */
package entry

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"
)

// Code 标识校验失败的类别。
type Code string

const (
	CodeInvalidDate    Code = "INVALID_DATE"
	CodeEmptyContent   Code = "EMPTY_CONTENT"
	CodeInvalidID      Code = "INVALID_ID"
	CodeMissingKeyword Code = "MISSING_KEYWORD"
)

// 字段名与 JSON 请求体保持一致，渲染 details 时会用到。
const (
	FieldDate    = "date"
	FieldContent = "content"
	FieldID      = "id"
	FieldKeyword = "q"
)

const (
	MsgDateFormat       = "Date must be in YYYY-MM-DD format"
	MsgDateInvalid      = "Invalid date"
	MsgContentEmpty     = "Content must not be empty"
	MsgContentBlank     = "Content must not be only whitespace"
	MsgIDNotInteger     = "ID must be an integer"
	MsgKeywordRequired  = "Search keyword is required"
	MsgDateRequired     = "Date is required"
	MsgDateNotString    = "Date must be a string"
	MsgContentRequired  = "Content is required"
	MsgContentNotString = "Content must be a string"
)

// MaxID 与 JSON 客户端可以精确表示的最大整数一致（2^53-1）。
const MaxID int64 = 1<<53 - 1

var (
	ErrInvalidDate    = errors.New("invalid date")
	ErrEmptyContent   = errors.New("empty content")
	ErrInvalidID      = errors.New("invalid id")
	ErrMissingKeyword = errors.New("missing keyword")
)

var datePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

var sentinels = map[Code]error{
	CodeInvalidDate:    ErrInvalidDate,
	CodeEmptyContent:   ErrEmptyContent,
	CodeInvalidID:      ErrInvalidID,
	CodeMissingKeyword: ErrMissingKeyword,
}

// Violation 描述单个字段的校验失败。
type Violation struct {
	Field   string
	Code    Code
	Message string
}

// ValidationError 汇总一次校验中出现的全部失败项，保持发现顺序。
type ValidationError struct {
	Violations []Violation
}

// NewValidationError 构造只包含一个失败项的校验错误。
func NewValidationError(field string, code Code, message string) *ValidationError {
	return &ValidationError{Violations: []Violation{{Field: field, Code: code, Message: message}}}
}

// Add 追加一个失败项。
func (e *ValidationError) Add(field string, code Code, message string) {
	e.Violations = append(e.Violations, Violation{Field: field, Code: code, Message: message})
}

// Empty 判断是否没有任何失败项。
func (e *ValidationError) Empty() bool {
	return e == nil || len(e.Violations) == 0
}

func (e *ValidationError) Error() string {
	if e.Empty() {
		return "validation failed"
	}
	return "validation failed: " + strings.Join(e.Details(), "; ")
}

// Is 让 errors.Is 可以用 ErrInvalidDate 等哨兵错误匹配任意一个失败项。
func (e *ValidationError) Is(target error) bool {
	if e == nil {
		return false
	}
	for _, v := range e.Violations {
		if sentinel, ok := sentinels[v.Code]; ok && sentinel == target {
			return true
		}
	}
	return false
}

// Details 以 `'field': message` 的形式渲染所有失败项。
func (e *ValidationError) Details() []string {
	if e.Empty() {
		return nil
	}
	details := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		if v.Field == "" {
			details = append(details, v.Message)
			continue
		}
		details = append(details, fmt.Sprintf("'%s': %s", v.Field, v.Message))
	}
	return details
}

// Join 合并多个校验错误，nil 会被忽略；全部为空时返回 nil。
// 非 ValidationError 的错误会原样返回，优先级高于校验错误。
func Join(errs ...error) error {
	merged := &ValidationError{}
	for _, err := range errs {
		if err == nil {
			continue
		}
		var verr *ValidationError
		if !errors.As(err, &verr) {
			return err
		}
		merged.Violations = append(merged.Violations, verr.Violations...)
	}
	if merged.Empty() {
		return nil
	}
	return merged
}

// ValidateDate 校验日期是否为 YYYY-MM-DD 且对应真实存在的公历日期。
func ValidateDate(date string) error {
	if !datePattern.MatchString(date) {
		return NewValidationError(FieldDate, CodeInvalidDate, MsgDateFormat)
	}
	year, _ := strconv.Atoi(date[0:4])
	month, _ := strconv.Atoi(date[5:7])
	day, _ := strconv.Atoi(date[8:10])

	// time.Date 会把越界的月/日滚动到相邻日期，滚动后与输入不一致即为非法日期。
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if t.Year() != year || int(t.Month()) != month || t.Day() != day {
		return NewValidationError(FieldDate, CodeInvalidDate, MsgDateInvalid)
	}
	return nil
}

// ValidateContent 校验正文非空且不全是空白字符。
func ValidateContent(content string) error {
	if content == "" {
		return NewValidationError(FieldContent, CodeEmptyContent, MsgContentEmpty)
	}
	if trimContent(content) == "" {
		return NewValidationError(FieldContent, CodeEmptyContent, MsgContentBlank)
	}
	return nil
}

// ValidateEntry 依次校验日期与正文，两者的失败项都会被报告。
func ValidateEntry(date, content string) error {
	return Join(ValidateDate(date), ValidateContent(content))
}

// ValidateKeyword 校验搜索关键字存在；空字符串是合法的，匹配全部记录。
func ValidateKeyword(keyword *string) error {
	if keyword == nil {
		return NewValidationError(FieldKeyword, CodeMissingKeyword, MsgKeywordRequired)
	}
	return nil
}

// ParseID 把外部传入的 ID 文本解析为整数，只接受十进制数字。
// 0 可以通过解析，是否存在由存储层判断。
func ParseID(raw string) (int64, error) {
	if raw == "" {
		return 0, NewValidationError(FieldID, CodeInvalidID, MsgIDNotInteger)
	}
	for _, r := range raw {
		if r < '0' || r > '9' {
			return 0, NewValidationError(FieldID, CodeInvalidID, MsgIDNotInteger)
		}
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id > MaxID {
		return 0, NewValidationError(FieldID, CodeInvalidID, MsgIDNotInteger)
	}
	return id, nil
}

func trimContent(s string) string {
	return strings.TrimFunc(s, func(r rune) bool {
		return unicode.IsSpace(r) || r == '\uFEFF'
	})
}
