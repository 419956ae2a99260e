// File: internal/pkg/i18n/error_messages.go
package i18n

import (
	"tsu-battle/internal/pkg/xerrors"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// ErrorMessages 错误消息的多语言映射
var ErrorMessages = map[xerrors.ErrorCode]map[language.Tag]string{
	// 1xxxxx: 通用错误码
	xerrors.CodeSuccess:           {language.Chinese: "操作成功", language.English: "Operation successful"},
	xerrors.CodeInternalError:     {language.Chinese: "内部服务错误", language.English: "Internal server error"},
	xerrors.CodeInvalidParams:     {language.Chinese: "参数错误", language.English: "Invalid parameters"},
	xerrors.CodeInvalidRequest:    {language.Chinese: "请求格式错误", language.English: "Invalid request format"},
	xerrors.CodeResourceNotFound:  {language.Chinese: "资源不存在", language.English: "Resource not found"},
	xerrors.CodeDuplicateResource: {language.Chinese: "资源已存在", language.English: "Resource already exists"},
	xerrors.CodeRateLimitExceeded: {language.Chinese: "请求频率限制", language.English: "Rate limit exceeded"},

	// 2xxxxx: 认证相关错误码
	xerrors.CodeAuthenticationFailed: {language.Chinese: "认证失败", language.English: "Authentication failed"},
	xerrors.CodeInvalidToken:         {language.Chinese: "无效令牌", language.English: "Invalid token"},
	xerrors.CodeSessionExpired:       {language.Chinese: "会话过期", language.English: "Session expired"},

	// 3xxxxx: 权限相关错误码
	xerrors.CodePermissionDenied: {language.Chinese: "权限不足", language.English: "Permission denied"},

	// 6xxxxx: 业务逻辑错误码
	xerrors.CodeBusinessLogicError:  {language.Chinese: "业务逻辑错误", language.English: "Business logic error"},
	xerrors.CodeOperationNotAllowed: {language.Chinese: "操作不被允许", language.English: "Operation not allowed"},
	xerrors.CodeResourceLocked:      {language.Chinese: "资源被锁定", language.English: "Resource locked"},

	// 7xxxxx: 外部服务错误码
	xerrors.CodeExternalServiceError: {language.Chinese: "外部服务错误", language.English: "External service error"},
	xerrors.CodeDatabaseError:        {language.Chinese: "数据库错误", language.English: "Database error"},
	xerrors.CodeCacheError:           {language.Chinese: "缓存服务错误", language.English: "Cache service error"},
	xerrors.CodeMessageQueueError:    {language.Chinese: "消息队列错误", language.English: "Message queue error"},

	// 8xxxxx: 战斗业务错误码
	// 战斗会话相关 (84xxxx)
	xerrors.CodeBattleSessionNotFound: {language.Chinese: "战斗会话不存在", language.English: "Battle session not found"},
	xerrors.CodeSessionNotActive:      {language.Chinese: "战斗会话未激活", language.English: "Battle session is not active"},
	xerrors.CodeInvalidParticipant:    {language.Chinese: "非法参战者", language.English: "Invalid participant"},
	xerrors.CodeDuplicateSubmission:   {language.Chinese: "重复提交行动", language.English: "Duplicate action submission"},
	xerrors.CodeInvalidBattleMode:     {language.Chinese: "无效战斗模式", language.English: "Invalid battle mode"},
	xerrors.CodeInvalidAction:         {language.Chinese: "无效行动指令", language.English: "Invalid action"},
	xerrors.CodeInvalidRoster:         {language.Chinese: "出战名单非法", language.English: "Invalid roster"},

	// 进度与奖励相关 (85xxxx)
	xerrors.CodeIndexOutOfRange:      {language.Chinese: "进度序号越界", language.English: "Progression index out of range"},
	xerrors.CodeRankGateViolation:    {language.Chinese: "段位不满足挑战条件", language.English: "Rank requirement not met"},
	xerrors.CodeArithmeticOverflow:   {language.Chinese: "数值溢出保护", language.English: "Arithmetic overflow guard triggered"},
	xerrors.CodeInsufficientResource: {language.Chinese: "资源不足", language.English: "Insufficient resources"},

	// 反作弊相关 (86xxxx)
	xerrors.CodeAnomalyDetected: {language.Chinese: "检测到资源增长异常", language.English: "Resource growth anomaly detected"},
	xerrors.CodeSnapshotMissing: {language.Chinese: "缺少资源快照", language.English: "Resource snapshot missing"},
}

// GetErrorMessage 获取错误码对应语言的消息
func GetErrorMessage(code xerrors.ErrorCode, lang language.Tag) string {
	if messages, ok := ErrorMessages[code]; ok {
		if msg, ok := messages[lang]; ok {
			return msg
		}
		// 如果指定语言没有翻译，返回中文（默认）
		if msg, ok := messages[language.Chinese]; ok {
			return msg
		}
	}
	// 如果完全没有定义，返回通用错误消息
	if lang == language.English {
		return "Unknown error"
	}
	return "未知错误"
}

// init 初始化消息目录
func init() {
	// 为每个错误码注册翻译
	for code, messages := range ErrorMessages {
		codeInt := code.ToInt()
		for lang, msg := range messages {
			message.SetString(lang, string(rune(codeInt)), msg)
		}
	}
}
