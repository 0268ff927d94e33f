/*
 * @Author: NEFU AB-IN
 * @Date: 2026-01-27 20:16:38
 * @FilePath: \simple-diary\backend\internal\handler\entry_handler.go
 * @LastEditTime: 2026-01-29 10:02:57
 */
package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/yn01/simple-diary/backend/internal/domain/entry"
	response "github.com/yn01/simple-diary/backend/internal/infra/common"
	appLogger "github.com/yn01/simple-diary/backend/internal/infra/logger"
	"github.com/yn01/simple-diary/backend/internal/infra/metrics"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// MaxBodyBytes 限制单个请求体的大小。
const MaxBodyBytes = 1 << 20

const (
	msgBodyNotObject = "Request body must be a JSON object"
	msgBodyTooLarge  = "Payload Too Large"
	msgQueryRequired = "'q' parameter is required for search."
)

// EntryService 是处理器依赖的业务接口，由 service/entry.Service 实现。
type EntryService interface {
	CreateEntry(ctx context.Context, date, content string) (*entry.Entry, error)
	ListEntries(ctx context.Context) ([]entry.Entry, error)
	GetEntry(ctx context.Context, id int64) (*entry.Entry, error)
	UpdateEntry(ctx context.Context, id int64, date, content string) (*entry.Entry, error)
	DeleteEntry(ctx context.Context, id int64) (bool, error)
	SearchEntries(ctx context.Context, keyword *string) ([]entry.Entry, error)
}

// EntryHandler 提供 /api/entries 的 HTTP 入口。
type EntryHandler struct {
	service EntryService
	logger  *zap.SugaredLogger
}

// NewEntryHandler 构造 handler。
func NewEntryHandler(service EntryService) *EntryHandler {
	baseLogger := appLogger.S().With("component", "entry.handler")
	return &EntryHandler{service: service, logger: baseLogger}
}

// RegisterRoutes 把日记接口挂到给定路由组上，/search 必须先于 /:id 注册。
func (h *EntryHandler) RegisterRoutes(group *gin.RouterGroup) {
	group.GET("/search", h.Search)
	group.POST("", h.Create)
	group.GET("", h.List)
	group.GET("/:id", h.Get)
	group.PUT("/:id", h.Update)
	group.DELETE("/:id", h.Delete)
}

// Create 新增日记，成功返回 201。
func (h *EntryHandler) Create(c *gin.Context) {
	date, content, err := bindEntryBody(c)
	if err != nil {
		h.fail(c, "create", err)
		return
	}

	created, err := h.service.CreateEntry(c.Request.Context(), date, content)
	if err != nil {
		h.fail(c, "create", err)
		return
	}

	metrics.RecordEntryOperation("create", metrics.ResultOK)
	h.logger.Debugw("entry created", "id", created.ID, "date", created.Date)
	response.Created(c, created)
}

// List 返回全部日记，按日期倒序。
func (h *EntryHandler) List(c *gin.Context) {
	entries, err := h.service.ListEntries(c.Request.Context())
	if err != nil {
		h.fail(c, "list", err)
		return
	}

	metrics.RecordEntryOperation("list", metrics.ResultOK)
	response.JSON(c, http.StatusOK, entries)
}

// Get 返回单条日记。
func (h *EntryHandler) Get(c *gin.Context) {
	id, ok := h.pathID(c, "get")
	if !ok {
		return
	}

	found, err := h.service.GetEntry(c.Request.Context(), id)
	if err != nil {
		h.fail(c, "get", err)
		return
	}
	if found == nil {
		h.notFound(c, "get")
		return
	}

	metrics.RecordEntryOperation("get", metrics.ResultOK)
	response.JSON(c, http.StatusOK, found)
}

// Update 覆盖日记的日期与正文。请求体先于路径 ID 校验。
func (h *EntryHandler) Update(c *gin.Context) {
	date, content, err := bindEntryBody(c)
	if err != nil {
		h.fail(c, "update", err)
		return
	}

	id, ok := h.pathID(c, "update")
	if !ok {
		return
	}

	updated, err := h.service.UpdateEntry(c.Request.Context(), id, date, content)
	if err != nil {
		h.fail(c, "update", err)
		return
	}
	if updated == nil {
		h.notFound(c, "update")
		return
	}

	metrics.RecordEntryOperation("update", metrics.ResultOK)
	h.logger.Debugw("entry updated", "id", updated.ID, "updated_at", updated.UpdatedAt)
	response.JSON(c, http.StatusOK, updated)
}

// Delete 物理删除日记，成功返回 204。
func (h *EntryHandler) Delete(c *gin.Context) {
	id, ok := h.pathID(c, "delete")
	if !ok {
		return
	}

	deleted, err := h.service.DeleteEntry(c.Request.Context(), id)
	if err != nil {
		h.fail(c, "delete", err)
		return
	}
	if !deleted {
		h.notFound(c, "delete")
		return
	}

	metrics.RecordEntryOperation("delete", metrics.ResultOK)
	h.logger.Debugw("entry deleted", "id", id)
	response.NoContent(c)
}

// Search 按 q 参数搜索正文，q 缺失时返回 400，q 为空字符串时返回全部。
func (h *EntryHandler) Search(c *gin.Context) {
	q, present := c.GetQuery("q")
	if !present {
		metrics.RecordEntryOperation("search", metrics.ResultInvalid)
		response.Fail(c, http.StatusBadRequest, response.MsgValidation, []string{msgQueryRequired})
		return
	}

	entries, err := h.service.SearchEntries(c.Request.Context(), &q)
	if err != nil {
		h.fail(c, "search", err)
		return
	}

	metrics.RecordEntryOperation("search", metrics.ResultOK)
	response.JSON(c, http.StatusOK, entries)
}

func (h *EntryHandler) pathID(c *gin.Context, operation string) (int64, bool) {
	id, err := entry.ParseID(c.Param("id"))
	if err != nil {
		metrics.RecordEntryOperation(operation, metrics.ResultInvalid)
		response.Fail(c, http.StatusBadRequest, response.MsgInvalidID, nil)
		return 0, false
	}
	return id, true
}

func (h *EntryHandler) notFound(c *gin.Context, operation string) {
	metrics.RecordEntryOperation(operation, metrics.ResultNotFound)
	response.Fail(c, http.StatusNotFound, response.MsgEntryNotFound, nil)
}

func (h *EntryHandler) fail(c *gin.Context, operation string, err error) {
	if response.FailWithError(c, err) {
		metrics.RecordEntryOperation(operation, metrics.ResultError)
		h.logger.Errorw("entry operation failed", "operation", operation, "path", c.FullPath(), "error", err)
		return
	}
	metrics.RecordEntryOperation(operation, metrics.ResultInvalid)
	h.logger.Debugw("entry request rejected", "operation", operation, "error", err)
}

// bindEntryBody 解析 {date, content} 请求体，字段缺失、类型错误与取值错误一并报告。
// 空请求体视为 {}。
func bindEntryBody(c *gin.Context) (string, string, error) {
	raw, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, MaxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return "", "", response.NewAPIError(http.StatusRequestEntityTooLarge, msgBodyTooLarge)
		}
		return "", "", err
	}

	fields := map[string]json.RawMessage{}
	if trimmed := bytes.TrimSpace(raw); len(trimmed) > 0 {
		if trimmed[0] != '{' || json.Unmarshal(trimmed, &fields) != nil {
			return "", "", entry.NewValidationError("", entry.CodeInvalidDate, msgBodyNotObject)
		}
	}

	date, dateErr := stringField(fields, entry.FieldDate, entry.CodeInvalidDate, entry.MsgDateRequired, entry.MsgDateNotString)
	if dateErr == nil {
		dateErr = entry.ValidateDate(date)
	}
	content, contentErr := stringField(fields, entry.FieldContent, entry.CodeEmptyContent, entry.MsgContentRequired, entry.MsgContentNotString)
	if contentErr == nil {
		contentErr = entry.ValidateContent(content)
	}

	if err := entry.Join(dateErr, contentErr); err != nil {
		return "", "", err
	}
	return date, content, nil
}

func stringField(fields map[string]json.RawMessage, name string, code entry.Code, missing, notString string) (string, error) {
	value, ok := fields[name]
	if !ok {
		return "", entry.NewValidationError(name, code, missing)
	}
	var s string
	if bytes.Equal(bytes.TrimSpace(value), []byte("null")) || json.Unmarshal(value, &s) != nil {
		return "", entry.NewValidationError(name, code, notString)
	}
	return s, nil
}
