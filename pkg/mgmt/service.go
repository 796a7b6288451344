// Package mgmt 提供资源查询和更新服务：Azure Resource Manager 客户端和本地文件存储
package mgmt

import (
	"context"

	"github.com/cockroachdb/errors"

	"github.com/glesirok/armedit/pkg/resourceid"
)

// ErrNotFound 资源不存在
var ErrNotFound = errors.New("resource not found")

// Service 资源管理服务
type Service interface {
	// Exists 按资源组、名称和完整类型判断资源是否存在；子资源名称形如 vnet1/subnet1
	Exists(ctx context.Context, resourceGroup, name, resourceType string) (bool, error)
	Get(ctx context.Context, id resourceid.ID) (map[string]any, error)
	Update(ctx context.Context, id resourceid.ID, body map[string]any) (map[string]any, error)
}

// Clone 深拷贝资源表示
func Clone(body map[string]any) map[string]any {
	if body == nil {
		return nil
	}
	return CloneTree(body).(map[string]any)
}

// CloneTree 深拷贝任意 JSON 树
func CloneTree(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, child := range t {
			out[k] = CloneTree(child)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, child := range t {
			out[i] = CloneTree(child)
		}
		return out
	default:
		return v
	}
}
