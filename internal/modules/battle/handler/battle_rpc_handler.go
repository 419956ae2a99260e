package handler

import (
	"context"
	"encoding/json"

	"tsu-battle/internal/modules/battle/service"
	"tsu-battle/internal/pkg/xerrors"
)

// BattleRPCHandler 战斗 RPC 处理器
// 提供给 Admin Server 调用的会话管理接口
type BattleRPCHandler struct {
	sessionService *service.SessionService
}

// NewBattleRPCHandler 创建战斗 RPC Handler
func NewBattleRPCHandler(serviceContainer *service.ServiceContainer) *BattleRPCHandler {
	return &BattleRPCHandler{
		sessionService: serviceContainer.SessionService,
	}
}

// ==================== RPC Methods ====================

// GetSessionSummary 获取会话状态摘要
// 供 Admin Server 查看进行中的会话
func (h *BattleRPCHandler) GetSessionSummary(sessionID string) ([]byte, error) {
	view, err := h.sessionService.GetSession(sessionID)
	if err != nil {
		return nil, err
	}

	data, err := json.Marshal(view)
	if err != nil {
		return nil, xerrors.Wrap(err, xerrors.CodeInternalError, "序列化会话视图失败")
	}
	return data, nil
}

// ForceFinishSession 强制终结会话
// 供 Admin Server 处理申诉或清理卡死的会话
func (h *BattleRPCHandler) ForceFinishSession(sessionID, reason string) ([]byte, error) {
	if reason == "" {
		reason = "管理端终结"
	}

	if err := h.sessionService.ForceFinish(context.Background(), sessionID, reason); err != nil {
		return nil, err
	}

	view, err := h.sessionService.GetSession(sessionID)
	if err != nil {
		return nil, err
	}

	data, err := json.Marshal(view)
	if err != nil {
		return nil, xerrors.Wrap(err, xerrors.CodeInternalError, "序列化会话视图失败")
	}
	return data, nil
}
