// File: internal/pkg/response/writer.go
package response

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"tsu-battle/internal/pkg/i18n"
	"tsu-battle/internal/pkg/log"
	"tsu-battle/internal/pkg/trace"
	"tsu-battle/internal/pkg/xerrors"
)

// Writer 统一响应写入接口
type Writer interface {
	WriteSuccess(ctx context.Context, w http.ResponseWriter, data any) error
	WriteError(ctx context.Context, w http.ResponseWriter, err error) error
	WriteJSON(ctx context.Context, w http.ResponseWriter, data any, statusCode int) error
}

type responseHandler struct {
	logger      log.Logger
	environment string
}

// NewResponseHandler 创建响应处理器。
// environment 为 production 时不向客户端透出底层错误详情。
func NewResponseHandler(logger log.Logger, environment string) Writer {
	return &responseHandler{
		logger:      logger,
		environment: environment,
	}
}

// DefaultResponseHandler 默认响应处理器，测试场景用
func DefaultResponseHandler() Writer {
	return NewResponseHandler(log.GetLogger(), "development")
}

// WriteSuccess 写入标准成功响应
func (h *responseHandler) WriteSuccess(ctx context.Context, w http.ResponseWriter, data any) error {
	resp := &ResponseResult[any]{
		Code:      xerrors.CodeSuccess.ToInt(),
		Message:   i18n.GetErrorMessage(xerrors.CodeSuccess, i18n.GetLanguage(ctx)),
		Timestamp: time.Now().Unix(),
		TraceId:   trace.GetTraceID(ctx),
	}
	if data != nil {
		resp.Data = &data
	}
	return h.writeJSON(ctx, w, resp, xerrors.HTTPStatusOK)
}

// WriteError 写入标准错误响应。
// 非 AppError 统一按内部错误处理。
func (h *responseHandler) WriteError(ctx context.Context, w http.ResponseWriter, err error) error {
	appErr, ok := err.(*xerrors.AppError)
	if !ok {
		appErr = xerrors.NewWithError(xerrors.CodeInternalError, "未分类的内部错误", err)
	}

	resp := &ResponseResult[any]{
		Code:      appErr.Code.ToInt(),
		Message:   i18n.GetErrorMessage(appErr.Code, i18n.GetLanguage(ctx)),
		Timestamp: time.Now().Unix(),
		TraceId:   trace.GetTraceID(ctx),
	}
	// 生产环境不透出底层错误链
	if h.environment != "production" && appErr.Err != nil {
		resp.Error = appErr.Err.Error()
	}

	return h.writeJSON(ctx, w, resp, xerrors.GetHTTPStatus(appErr.Code))
}

// WriteJSON 直接写入 JSON 响应，跳过统一包装
func (h *responseHandler) WriteJSON(ctx context.Context, w http.ResponseWriter, data any, statusCode int) error {
	return h.writeJSON(ctx, w, data, statusCode)
}

func (h *responseHandler) writeJSON(ctx context.Context, w http.ResponseWriter, payload any, statusCode int) error {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		// header 已写出，只能记录
		h.logger.ErrorContext(ctx, "写入JSON响应失败", "error", err)
		return err
	}
	return nil
}
