package config

import (
	"os"
)

// GetEnvOrDefault 获取环境变量，如果不存在则返回默认值
// 这是配置加载的核心函数：环境变量 > 默认值
func GetEnvOrDefault(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// GetDatabaseURL 构建数据库连接字符串
// 优先级：环境变量中的完整 URL > 配置文件中的 URL
func GetDatabaseURL(envKey, configValue string) string {
	// 1. 优先从环境变量读取完整的数据库 URL
	if url := os.Getenv(envKey); url != "" {
		return url
	}

	// 2. 如果配置文件中有值，使用配置文件的值
	if configValue != "" {
		return configValue
	}

	// 3. 如果都没有，返回空字符串（让调用者处理错误）
	return ""
}
