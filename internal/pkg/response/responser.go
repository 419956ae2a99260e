package response

// ResponseResult 是一个通用的API响应结构体
type ResponseResult[T any] struct {
	Code      int    `json:"code"`               // 业务响应码
	Message   string `json:"message"`            // 响应消息
	Data      *T     `json:"data,omitempty"`     // 响应数据，成功时返回
	Error     string `json:"error,omitempty"`    // 错误详情，失败时返回
	Timestamp int64  `json:"timestamp"`          // Unix时间戳
	TraceId   string `json:"trace_id,omitempty"` // 请求追踪ID
}
