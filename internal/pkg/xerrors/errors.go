// File: internal/pkg/xerrors/errors.go
package xerrors

import (
	"fmt"
	"log/slog"
	"runtime"
	"time"

	"golang.org/x/text/language"
)

// ErrorLevel 错误级别
type ErrorLevel int

const (
	LevelInfo ErrorLevel = iota
	LevelWarn
	LevelError
	LevelCritical
)

func (l ErrorLevel) String() string {
	switch l {
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	case LevelCritical:
		return "CRITICAL"
	default:
		return "UNKNOWN"
	}
}

// ErrorContext 错误上下文信息（精简版，移除HTTP特定字段）
type ErrorContext struct {
	TraceID   string                 `json:"trace_id,omitempty"`
	SpanID    string                 `json:"span_id,omitempty"`
	UserID    string                 `json:"user_id,omitempty"`
	SessionID string                 `json:"session_id,omitempty"`
	RequestID string                 `json:"request_id,omitempty"`
	Service   string                 `json:"service,omitempty"`
	Operation string                 `json:"operation,omitempty"` // 改为operation，更通用
	Metadata  map[string]interface{} `json:"metadata,omitempty"`  // 支持任意类型
}

// AppError 领域错误
type AppError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Err     error     `json:"-"`

	// 错误分类和级别
	Level    ErrorLevel `json:"level,omitempty"`
	Category string     `json:"category,omitempty"`

	// 业务上下文
	Context   *ErrorContext `json:"context,omitempty"`
	Timestamp time.Time     `json:"timestamp,omitempty"`

	// 调试信息
	Stack string `json:"stack,omitempty"`
	File  string `json:"file,omitempty"`
	Line  int    `json:"line,omitempty"`

	// 业务属性
	Retryable   bool `json:"retryable,omitempty"`
	Recoverable bool `json:"recoverable,omitempty"` // 新增：是否可恢复
}

// Error 实现标准 error 接口
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%d] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%d] %s", e.Code, e.Message)
}

// Unwrap 实现 errors.Unwrap 接口
func (e *AppError) Unwrap() error {
	return e.Err
}

// GetLocalizedMessage 获取本地化的错误消息
// 注意: 为避免循环依赖，此方法不直接导入 i18n 包
// 使用者应该通过 i18n.GetErrorMessage(err.Code, lang) 获取本地化消息
func (e *AppError) GetLocalizedMessage(lang language.Tag) string {
	// 此方法预留给未来扩展
	// 目前调用者应使用 i18n.GetErrorMessage(err.Code, lang)
	return e.Message
}

// LogValue 实现 slog.LogValuer 接口，避免重复序列化逻辑
func (e *AppError) LogValue() slog.Value {
	attrs := []slog.Attr{
		slog.Int("code", int(e.Code)),
		slog.String("message", e.Message),
		slog.String("level", e.Level.String()),
		slog.String("category", e.Category),
		slog.Bool("retryable", e.Retryable),
		slog.Bool("recoverable", e.Recoverable),
	}

	if e.Context != nil {
		if e.Context.TraceID != "" {
			attrs = append(attrs, slog.String("trace_id", e.Context.TraceID))
		}
		if e.Context.UserID != "" {
			attrs = append(attrs, slog.String("user_id", e.Context.UserID))
		}
		if e.Context.Service != "" {
			attrs = append(attrs, slog.String("service", e.Context.Service))
		}
		if e.Context.Operation != "" {
			attrs = append(attrs, slog.String("operation", e.Context.Operation))
		}
	}

	if e.Err != nil {
		attrs = append(attrs, slog.Any("underlying_error", e.Err))
	}

	return slog.GroupValue(attrs...)
}

// WithContext 添加上下文信息
func (e *AppError) WithContext(ctx *ErrorContext) *AppError {
	newErr := *e
	newErr.Context = ctx
	return &newErr
}

// WithTraceID 添加 TraceID
func (e *AppError) WithTraceID(traceID string) *AppError {
	if e.Context == nil {
		e.Context = &ErrorContext{}
	}
	e.Context.TraceID = traceID
	return e
}

// WithUser 添加用户相关信息
func (e *AppError) WithUser(userID, sessionID string) *AppError {
	if e.Context == nil {
		e.Context = &ErrorContext{}
	}
	e.Context.UserID = userID
	e.Context.SessionID = sessionID
	return e
}

// WithService 添加服务和操作信息
func (e *AppError) WithService(service, operation string) *AppError {
	if e.Context == nil {
		e.Context = &ErrorContext{}
	}
	e.Context.Service = service
	e.Context.Operation = operation
	return e
}

// WithMetadata 添加自定义元数据（支持任意类型）
func (e *AppError) WithMetadata(key string, value interface{}) *AppError {
	if e.Context == nil {
		e.Context = &ErrorContext{}
	}
	if e.Context.Metadata == nil {
		e.Context.Metadata = make(map[string]interface{})
	}
	e.Context.Metadata[key] = value
	return e
}

// WithMetadataString 添加字符串类型的元数据（便捷方法，向后兼容）
func (e *AppError) WithMetadataString(key, value string) *AppError {
	return e.WithMetadata(key, value)
}

// WithMetadataInt 添加整数类型的元数据（便捷方法）
func (e *AppError) WithMetadataInt(key string, value int) *AppError {
	return e.WithMetadata(key, value)
}

// WithMetadataStruct 添加结构体类型的元数据（便捷方法）
func (e *AppError) WithMetadataStruct(key string, value interface{}) *AppError {
	return e.WithMetadata(key, value)
}

// WithRecoverable 设置错误是否可恢复
func (e *AppError) WithRecoverable(recoverable bool) *AppError {
	e.Recoverable = recoverable
	return e
}

// IsRetryable 判断是否为可重试错误
func (e *AppError) IsRetryable() bool {
	return e.Retryable
}

// IsRecoverable 判断是否为可恢复错误
func (e *AppError) IsRecoverable() bool {
	return e.Recoverable
}

// IsCritical 判断是否为严重错误
func (e *AppError) IsCritical() bool {
	return e.Level == LevelCritical
}

// New 创建新的AppError
func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:      code,
		Message:   message,
		Level:     LevelError,
		Category:  getCategoryByCode(code),
		Timestamp: time.Now(),
		Retryable: isRetryableByCode(code),
	}
}

// NewWithError 创建包含原始错误的 AppError
func NewWithError(code ErrorCode, message string, err error) *AppError {
	appErr := New(code, message)
	appErr.Err = err

	// 添加调试信息
	if pc, file, line, ok := runtime.Caller(1); ok {
		appErr.File = file
		appErr.Line = line
		if fn := runtime.FuncForPC(pc); fn != nil {
			appErr.Stack = fn.Name()
		}
	}

	return appErr
}

// FromCode 根据错误码创建 AppError
func FromCode(code ErrorCode) *AppError {
	msg, ok := codeMessages[code]
	if !ok {
		msg = codeMessages[CodeInternalError]
	}
	return &AppError{
		Code:      code,
		Message:   msg,
		Level:     getLevelByCode(code),
		Category:  getCategoryByCode(code),
		Timestamp: time.Now(),
		Retryable: isRetryableByCode(code),
	}
}

// 快捷构造函数（专注于业务错误，使用你的错误码）
func NewValidationError(field, message string) *AppError {
	return FromCode(CodeInvalidParams).
		WithMetadata("field", field).
		WithMetadata("validation_message", message)
}

func NewInvalidArgumentError(field, message string) *AppError {
	return FromCode(CodeInvalidParams).
		WithMetadata("field", field).
		WithMetadata("validation_message", message)
}

func NewAuthError(message string) *AppError {
	return FromCode(CodeAuthenticationFailed).
		WithMetadata("auth_message", message)
}

func NewPermissionError(resource, action string) *AppError {
	return FromCode(CodePermissionDenied).
		WithMetadata("resource", resource).
		WithMetadata("action", action)
}

func NewNotFoundError(resource, identifier string) *AppError {
	return FromCode(CodeResourceNotFound).
		WithMetadata("resource", resource).
		WithMetadata("identifier", identifier)
}

func NewConflictError(resource, reason string) *AppError {
	return FromCode(CodeDuplicateResource).
		WithMetadata("resource", resource).
		WithMetadata("conflict_reason", reason)
}

func NewExternalServiceError(service string, err error) *AppError {
	appErr := FromCode(CodeExternalServiceError).
		WithMetadata("external_service", service)
	if err != nil {
		appErr.Err = err
	}
	return appErr
}

func NewDatabaseError(operation, table string, err error) *AppError {
	appErr := FromCode(CodeDatabaseError).
		WithMetadata("db_operation", operation).
		WithMetadata("table", table)
	if err != nil {
		appErr.Err = err
	}
	return appErr
}

// 战斗业务错误快捷构造器
func NewSessionNotFoundError(sessionID string) *AppError {
	return FromCode(CodeBattleSessionNotFound).
		WithMetadata("session_id", sessionID)
}

func NewSessionNotActiveError(sessionID, status string) *AppError {
	return FromCode(CodeSessionNotActive).
		WithMetadata("session_id", sessionID).
		WithMetadata("session_status", status)
}

func NewInvalidParticipantError(sessionID, participantID string) *AppError {
	return FromCode(CodeInvalidParticipant).
		WithMetadata("session_id", sessionID).
		WithMetadata("participant_id", participantID)
}

func NewDuplicateSubmissionError(sessionID, participantID string, round int) *AppError {
	return FromCode(CodeDuplicateSubmission).
		WithMetadata("session_id", sessionID).
		WithMetadata("participant_id", participantID).
		WithMetadata("round", round)
}

func NewInvalidActionError(action string) *AppError {
	return FromCode(CodeInvalidAction).
		WithMetadata("action", action)
}

func NewInvalidModeError(mode string) *AppError {
	return FromCode(CodeInvalidBattleMode).
		WithMetadata("mode", mode)
}

func NewRankGateError(accountID string, rank, requiredRank int) *AppError {
	return FromCode(CodeRankGateViolation).
		WithMetadata("account_id", accountID).
		WithMetadata("rank", rank).
		WithMetadata("required_rank", requiredRank)
}

func NewIndexOutOfRangeError(index int) *AppError {
	return FromCode(CodeIndexOutOfRange).
		WithMetadata("index", index)
}

func NewOverflowGuardError(operation string) *AppError {
	return FromCode(CodeArithmeticOverflow).
		WithMetadata("operation", operation)
}

func NewAnomalyError(accountID, resource string, magnitude int64) *AppError {
	return FromCode(CodeAnomalyDetected).
		WithMetadata("account_id", accountID).
		WithMetadata("resource", resource).
		WithMetadata("magnitude", magnitude)
}

// 通用错误包装函数
// Wrap 包装标准错误为 AppError(保留堆栈)
func Wrap(err error, code ErrorCode, message string) *AppError {
	if err == nil {
		return nil
	}

	// 如果已经是 AppError,直接返回
	if appErr, ok := err.(*AppError); ok {
		return appErr
	}

	return NewWithError(code, message, err)
}

// WrapWithContext 包装错误并添加上下文
func WrapWithContext(err error, code ErrorCode, message string, ctx *ErrorContext) *AppError {
	appErr := Wrap(err, code, message)
	if appErr != nil {
		appErr.Context = ctx
	}
	return appErr
}

// Must 如果 err 不为 nil 就 panic (用于配置初始化等必须成功的场景)
func Must(err error) {
	if err != nil {
		panic(err)
	}
}

// ErrorList 错误列表(批量操作时收集多个错误)
type ErrorList struct {
	Errors []*AppError `json:"errors"`
}

func (e *ErrorList) Error() string {
	if len(e.Errors) == 0 {
		return "no errors"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	return fmt.Sprintf("%d errors occurred", len(e.Errors))
}

func (e *ErrorList) Add(err *AppError) {
	if err != nil {
		e.Errors = append(e.Errors, err)
	}
}

func (e *ErrorList) HasErrors() bool {
	return len(e.Errors) > 0
}

func (e *ErrorList) First() *AppError {
	if len(e.Errors) > 0 {
		return e.Errors[0]
	}
	return nil
}

// NewErrorList 创建错误列表
func NewErrorList() *ErrorList {
	return &ErrorList{
		Errors: make([]*AppError, 0),
	}
}
