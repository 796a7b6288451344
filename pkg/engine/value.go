package engine

import (
	"encoding/json"
	"strings"
)

// ParseValue 尝试把命令行参数当作 JSON 解析，失败时保留原字符串
// forceString 为 true 时始终保留字符串
func ParseValue(raw string, forceString bool) any {
	if forceString {
		return raw
	}

	var v any
	if err := json.Unmarshal([]byte(shellSafe(raw)), &v); err != nil {
		return raw
	}
	return v
}

// shellSafe 兼容 shell 吃掉双引号后留下的单引号 JSON，例如 {'a': 'b'}
func shellSafe(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if (strings.HasPrefix(trimmed, "{") || strings.HasPrefix(trimmed, "[")) && !strings.Contains(trimmed, `"`) {
		return strings.ReplaceAll(trimmed, "'", `"`)
	}
	return raw
}
