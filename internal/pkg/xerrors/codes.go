// File: internal/pkg/xerrors/codes.go
package xerrors

import "fmt"

// ErrorCode 错误码类型（类型安全）
type ErrorCode int

// IsValid 检查错误码是否在预定义列表中
func (c ErrorCode) IsValid() bool {
	_, exists := codeMessages[c]
	return exists
}

// String 返回错误码的字符串表示
func (c ErrorCode) String() string {
	if msg, ok := codeMessages[c]; ok {
		return fmt.Sprintf("%d (%s)", c, msg)
	}
	return fmt.Sprintf("%d (未定义的错误码)", c)
}

// Message 返回错误码对应的消息
func (c ErrorCode) Message() string {
	if msg, ok := codeMessages[c]; ok {
		return msg
	}
	return "未知错误"
}

// ToInt 转换为 int（用于 JSON 序列化等场景）
func (c ErrorCode) ToInt() int {
	return int(c)
}

// -----------------------------------------------------------------------------
// 业务错误码统一定义
// 按模块或领域对错误码进行分段，便于管理。
// -----------------------------------------------------------------------------
const (
	// 1xxxxx: 通用错误码
	CodeSuccess           ErrorCode = 100000 // 操作成功
	CodeInternalError     ErrorCode = 100001 // 内部服务错误
	CodeInvalidParams     ErrorCode = 100002 // 参数错误
	CodeInvalidRequest    ErrorCode = 100003 // 请求格式错误
	CodeResourceNotFound  ErrorCode = 100404 // 资源不存在
	CodeDuplicateResource ErrorCode = 100409 // 资源已存在
	CodeRateLimitExceeded ErrorCode = 100429 // 请求频率限制

	// 2xxxxx: 认证相关错误码
	CodeAuthenticationFailed ErrorCode = 200001 // 认证失败
	CodeInvalidToken         ErrorCode = 200002 // 无效令牌
	CodeSessionExpired       ErrorCode = 200007 // 会话过期

	// 3xxxxx: 权限相关错误码
	CodePermissionDenied ErrorCode = 300001 // 权限不足

	// 6xxxxx: 业务逻辑错误码
	CodeBusinessLogicError  ErrorCode = 600001 // 业务逻辑错误
	CodeOperationNotAllowed ErrorCode = 600003 // 操作不被允许
	CodeResourceLocked      ErrorCode = 600004 // 资源被锁定

	// 7xxxxx: 外部服务错误码
	CodeExternalServiceError ErrorCode = 700001 // 外部服务错误
	CodeDatabaseError        ErrorCode = 700003 // 数据库错误
	CodeCacheError           ErrorCode = 700004 // 缓存服务错误
	CodeMessageQueueError    ErrorCode = 700005 // 消息队列错误

	// 8xxxxx: 战斗业务错误码
	// 战斗会话相关 (84xxxx)
	CodeBattleSessionNotFound ErrorCode = 840001 // 战斗会话不存在
	CodeSessionNotActive      ErrorCode = 840002 // 战斗会话未激活
	CodeInvalidParticipant    ErrorCode = 840003 // 非法参战者
	CodeDuplicateSubmission   ErrorCode = 840004 // 重复提交行动
	CodeInvalidBattleMode     ErrorCode = 840005 // 无效战斗模式
	CodeInvalidAction         ErrorCode = 840006 // 无效行动指令
	CodeInvalidRoster         ErrorCode = 840007 // 出战名单非法

	// 进度与奖励相关 (85xxxx)
	CodeIndexOutOfRange      ErrorCode = 850001 // 进度序号越界
	CodeRankGateViolation    ErrorCode = 850002 // 段位不满足挑战条件
	CodeArithmeticOverflow   ErrorCode = 850003 // 数值溢出保护
	CodeInsufficientResource ErrorCode = 850004 // 资源不足

	// 反作弊相关 (86xxxx)
	CodeAnomalyDetected ErrorCode = 860001 // 检测到资源增长异常
	CodeSnapshotMissing ErrorCode = 860002 // 缺少资源快照
)

// -----------------------------------------------------------------------------
// HTTP 状态码常量定义
// -----------------------------------------------------------------------------
const (
	HTTPStatusOK        = 200 // 请求成功
	HTTPStatusCreated   = 201 // 资源已创建
	HTTPStatusAccepted  = 202 // 请求已接受但未处理
	HTTPStatusNoContent = 204 // 请求成功但无内容返回

	HTTPStatusBadRequest          = 400 // 错误请求
	HTTPStatusUnauthorized        = 401 // 未经授权
	HTTPStatusForbidden           = 403 // 禁止访问
	HTTPStatusNotFound            = 404 // 资源未找到
	HTTPStatusMethodNotAllowed    = 405 // 方法不被允许
	HTTPStatusConflict            = 409 // 资源冲突
	HTTPStatusUnprocessableEntity = 422 // 无法处理的实体
	HTTPStatusTooManyRequests     = 429 // 请求过多

	HTTPStatusInternalServerError = 500 // 内部服务器错误
	HTTPStatusNotImplemented      = 501 // 未实现
	HTTPStatusBadGateway          = 502 // 错误网关
	HTTPStatusServiceUnavailable  = 503 // 服务不可用
	HTTPStatusGatewayTimeout      = 504 // 网关超时
)

// -----------------------------------------------------------------------------
// 错误消息映射
// -----------------------------------------------------------------------------
var codeMessages = map[ErrorCode]string{
	CodeSuccess:           "操作成功",
	CodeInternalError:     "内部服务错误",
	CodeInvalidParams:     "参数错误",
	CodeInvalidRequest:    "请求格式错误",
	CodeResourceNotFound:  "资源不存在",
	CodeDuplicateResource: "资源已存在",
	CodeRateLimitExceeded: "请求频率限制",

	CodeAuthenticationFailed: "认证失败",
	CodeInvalidToken:         "无效令牌",
	CodeSessionExpired:       "会话过期",

	CodePermissionDenied: "权限不足",

	CodeBusinessLogicError:  "业务逻辑错误",
	CodeOperationNotAllowed: "操作不被允许",
	CodeResourceLocked:      "资源被锁定",

	CodeExternalServiceError: "外部服务错误",
	CodeDatabaseError:        "数据库错误",
	CodeCacheError:           "缓存服务错误",
	CodeMessageQueueError:    "消息队列错误",

	// 战斗业务错误消息
	CodeBattleSessionNotFound: "战斗会话不存在",
	CodeSessionNotActive:      "战斗会话未激活",
	CodeInvalidParticipant:    "非法参战者",
	CodeDuplicateSubmission:   "重复提交行动",
	CodeInvalidBattleMode:     "无效战斗模式",
	CodeInvalidAction:         "无效行动指令",
	CodeInvalidRoster:         "出战名单非法",
	CodeIndexOutOfRange:       "进度序号越界",
	CodeRankGateViolation:     "段位不满足挑战条件",
	CodeArithmeticOverflow:    "数值溢出保护",
	CodeInsufficientResource:  "资源不足",
	CodeAnomalyDetected:       "检测到资源增长异常",
	CodeSnapshotMissing:       "缺少资源快照",
}

// GetHTTPStatus 根据业务错误码获取HTTP状态码
func GetHTTPStatus(code ErrorCode) int {
	switch {
	case code == CodeSuccess:
		return HTTPStatusOK
	case code >= 200000 && code < 300000:
		return HTTPStatusUnauthorized
	case code >= 300000 && code < 400000:
		return HTTPStatusForbidden
	case code == CodeResourceNotFound:
		return HTTPStatusNotFound
	case code == CodeDuplicateResource:
		return HTTPStatusConflict
	case code == CodeInvalidParams || code == CodeInvalidRequest:
		return HTTPStatusBadRequest
	case code == CodeRateLimitExceeded:
		return HTTPStatusTooManyRequests
	case code >= 600000 && code < 700000:
		return HTTPStatusBadRequest
	case code >= 700000 && code < 800000:
		return HTTPStatusServiceUnavailable
	case code == CodeBattleSessionNotFound:
		return HTTPStatusNotFound
	case code == CodeSessionNotActive || code == CodeDuplicateSubmission:
		return HTTPStatusConflict
	case code >= 840000 && code < 850000:
		return HTTPStatusBadRequest
	case code == CodeRankGateViolation:
		return HTTPStatusForbidden
	case code == CodeArithmeticOverflow:
		return HTTPStatusUnprocessableEntity
	case code >= 850000 && code < 860000:
		return HTTPStatusBadRequest
	case code >= 860000 && code < 870000:
		return HTTPStatusUnprocessableEntity
	default:
		return HTTPStatusInternalServerError
	}
}

// 辅助函数
// getCategoryByCode 根据错误码获取分类
func getCategoryByCode(code ErrorCode) string {
	switch {
	case code >= 100000 && code < 200000:
		return "system"
	case code >= 200000 && code < 300000:
		return "authentication"
	case code >= 300000 && code < 400000:
		return "authorization"
	case code >= 600000 && code < 700000:
		return "business"
	case code >= 700000 && code < 800000:
		return "external"
	case code >= 840000 && code < 850000:
		return "battle"
	case code >= 850000 && code < 860000:
		return "progression"
	case code >= 860000 && code < 870000:
		return "anticheat"
	default:
		return "unknown"
	}
}

// getLevelByCode 根据错误码获取级别
func getLevelByCode(code ErrorCode) ErrorLevel {
	switch {
	case code == CodeSuccess:
		return LevelInfo
	case code >= 100001 && code <= 100003: // 参数错误等
		return LevelWarn
	case code >= 700001 && code < 800000: // 外部服务错误
		return LevelCritical
	case code == CodeAnomalyDetected:
		return LevelWarn
	default:
		return LevelError
	}
}

// isRetryableByCode 根据错误码判断是否可重试
func isRetryableByCode(code ErrorCode) bool {
	retryableCodes := map[ErrorCode]bool{
		CodeInternalError:        true,
		CodeExternalServiceError: true,
		CodeDatabaseError:        true,
		CodeCacheError:           true,
		CodeMessageQueueError:    true,
		CodeRateLimitExceeded:    true,
	}
	return retryableCodes[code]
}
