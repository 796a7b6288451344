// Package resourceid parses and renders Azure Resource Manager resource IDs of the form
//
//	/subscriptions/{sub}/resourceGroups/{rg}/providers/{ns}/{type}/{name}[/{childType}/{childName}]
package resourceid

import (
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/dlclark/regexp2"
)

const (
	kwSubscriptions  = "subscriptions"
	kwResourceGroups = "resourceGroups"
	kwProviders      = "providers"
)

// idPattern 关键字大小写不敏感；捕获的各段（包括关键字）保留原样
var idPattern = regexp2.MustCompile(
	`^/(?<kwSubscriptions>subscriptions)/(?<subscription>[^/]+)`+
		`(?:/(?<kwResourceGroups>resourceGroups)/(?<group>[^/]+))?`+
		`/(?<kwProviders>providers)/(?<namespace>[^/]+)/(?<type>[^/]+)/(?<name>[^/]+)`+
		`(?:/(?<childType>[^/]+)/(?<childName>[^/]+))?$`,
	regexp2.IgnoreCase)

// ID 是不可变的资源标识
type ID struct {
	Subscription  string
	ResourceGroup string
	Namespace     string
	Type          string
	Name          string
	ChildType     string
	ChildName     string

	spelling keywords
}

// keywords 解析时关键字的原始写法；与规范写法相同的留空
type keywords struct {
	subscriptions  string
	resourceGroups string
	providers      string
}

// Parse 解析资源 ID
func Parse(s string) (ID, error) {
	m, err := idPattern.FindStringMatch(s)
	if err != nil {
		return ID{}, errors.Wrapf(err, "match resource ID %q", s)
	}
	if m == nil {
		return ID{}, errors.Newf("invalid resource ID: %s", s)
	}

	return ID{
		Subscription:  group(m, "subscription"),
		ResourceGroup: group(m, "group"),
		Namespace:     group(m, "namespace"),
		Type:          group(m, "type"),
		Name:          group(m, "name"),
		ChildType:     group(m, "childType"),
		ChildName:     group(m, "childName"),
		spelling: keywords{
			subscriptions:  spelled(m, "kwSubscriptions", kwSubscriptions),
			resourceGroups: spelled(m, "kwResourceGroups", kwResourceGroups),
			providers:      spelled(m, "kwProviders", kwProviders),
		},
	}, nil
}

// IsValid 判断字符串是否符合资源 ID 语法
func IsValid(s string) bool {
	ok, err := idPattern.MatchString(s)
	return err == nil && ok
}

// String 按解析时的关键字写法渲染，String(Parse(s)) == s
func (id ID) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "/%s/%s", or(id.spelling.subscriptions, kwSubscriptions), id.Subscription)
	if id.ResourceGroup != "" {
		fmt.Fprintf(&b, "/%s/%s", or(id.spelling.resourceGroups, kwResourceGroups), id.ResourceGroup)
	}
	fmt.Fprintf(&b, "/%s/%s/%s/%s", or(id.spelling.providers, kwProviders), id.Namespace, id.Type, id.Name)
	if id.IsChild() {
		fmt.Fprintf(&b, "/%s/%s", id.ChildType, id.ChildName)
	}
	return b.String()
}

// Canonical 关键字使用规范写法：subscriptions、resourceGroups、providers
func (id ID) Canonical() string {
	id.spelling = keywords{}
	return id.String()
}

// IsChild 是否带一级子资源
func (id ID) IsChild() bool {
	return id.ChildType != "" && id.ChildName != ""
}

// Parent 返回去掉子资源后的 ID
func (id ID) Parent() ID {
	parent := id
	parent.ChildType = ""
	parent.ChildName = ""
	return parent
}

// FullType 形如 Microsoft.Network/virtualNetworks[/subnets]
func (id ID) FullType() string {
	t := id.Namespace + "/" + id.Type
	if id.IsChild() {
		t += "/" + id.ChildType
	}
	return t
}

// FullName 形如 vnet1[/subnet1]
func (id ID) FullName() string {
	if id.IsChild() {
		return id.Name + "/" + id.ChildName
	}
	return id.Name
}

// Filter 返回按资源组、名称和类型查询资源的 OData 过滤条件
func (id ID) Filter() string {
	return Filter(id.ResourceGroup, id.FullName(), id.FullType())
}

// Filter 构造 resourceGroup eq '..' and name eq '..' and resourceType eq '..'
func Filter(resourceGroup, name, resourceType string) string {
	return fmt.Sprintf("resourceGroup eq '%s' and name eq '%s' and resourceType eq '%s'",
		escape(resourceGroup), escape(name), escape(resourceType))
}

// SplitType 把 Microsoft.Network/virtualNetworks 拆成命名空间和类型
func SplitType(fullType string) (namespace, typ string, err error) {
	namespace, typ, ok := strings.Cut(fullType, "/")
	if !ok || namespace == "" || typ == "" || strings.Contains(typ, "/") {
		return "", "", errors.Newf("invalid resource type %q, expected <namespace>/<type>", fullType)
	}
	return namespace, typ, nil
}

// Equal 资源 ID 大小写不敏感
func (id ID) Equal(other ID) bool {
	return strings.EqualFold(id.String(), other.String())
}

// OData 字符串字面量中的单引号需要写两次
func escape(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}

// spelled 与规范写法相同时返回空串
func spelled(m *regexp2.Match, name, canonical string) string {
	if v := group(m, name); v != canonical {
		return v
	}
	return ""
}

func or(v, fallback string) string {
	if v != "" {
		return v
	}
	return fallback
}

func group(m *regexp2.Match, name string) string {
	g := m.GroupByName(name)
	if g == nil {
		return ""
	}
	return g.String()
}
