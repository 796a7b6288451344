package command

import (
	"strings"

	"github.com/glesirok/armedit/pkg/config"
)

// ArgKind 参数值的类型
type ArgKind int

const (
	KindString ArgKind = iota
	KindBool
	KindGroups // 可重复、每次可跟多个值，如 --set a=1 b=2 --set c=3
)

// 资源 ID 的组成部分，用于 --ids 展开
const (
	IDPartSubscription  = "subscription"
	IDPartResourceGroup = "resource_group"
	IDPartNamespace     = "namespace"
	IDPartType          = "type" // 顶级类型，子资源时为 type/childType
	IDPartName          = "name" // 顶级名称，子资源时为 name/childName
)

// FoldSpec 声明一个 "名称或 ID" 参数如何折叠
type FoldSpec struct {
	ResourceType string // Microsoft.Network/virtualNetworks
	ChildType    string
	ParentDest   string // 父资源名称参数，子资源时必填
	AllowNone    bool
	AllowNew     bool
	DefaultNone  bool
}

// Argument 是不可变的参数配置，通过 Override 合并得到新值
type Argument struct {
	Dest      string
	Flag      string // 为空时由 Dest 推导：resource_group -> resource-group
	Shorthand string
	Kind      ArgKind
	Help      string
	Default   string
	Required  bool
	IDPart    string
	Fold      *FoldSpec
	// DefaultFrom 未指定时从配置读取默认值
	DefaultFrom func(*config.Config) string
}

// FlagName 命令行上的参数名，不含 --
func (a Argument) FlagName() string {
	if a.Flag != "" {
		return a.Flag
	}
	return strings.ReplaceAll(a.Dest, "_", "-")
}

// Option 形如 --resource-group
func (a Argument) Option() string {
	return "--" + a.FlagName()
}

// Override 用 o 中的非零字段覆盖 a，返回新的配置
// Required 只能从 false 改成 true
func (a Argument) Override(o Argument) Argument {
	out := a
	if o.Flag != "" {
		out.Flag = o.Flag
	}
	if o.Shorthand != "" {
		out.Shorthand = o.Shorthand
	}
	if o.Kind != KindString {
		out.Kind = o.Kind
	}
	if o.Help != "" {
		out.Help = o.Help
	}
	if o.Default != "" {
		out.Default = o.Default
	}
	if o.Required {
		out.Required = true
	}
	if o.IDPart != "" {
		out.IDPart = o.IDPart
	}
	if o.Fold != nil {
		fold := *o.Fold
		out.Fold = &fold
	}
	if o.DefaultFrom != nil {
		out.DefaultFrom = o.DefaultFrom
	}
	return out
}

// ResourceGroupArgument 未指定时使用 defaults.resource_group
func ResourceGroupArgument() Argument {
	return Argument{
		Dest:      "resource_group",
		Shorthand: "g",
		Help:      "Name of resource group. You can configure the default group using defaults.resource_group.",
		Required:  true,
		IDPart:    IDPartResourceGroup,
		DefaultFrom: func(cfg *config.Config) string {
			return cfg.Defaults.ResourceGroup
		},
	}
}

// NameArgument 资源名称
func NameArgument(help string) Argument {
	return Argument{
		Dest:      "name",
		Shorthand: "n",
		Help:      help,
		Required:  true,
		IDPart:    IDPartName,
	}
}

// FoldNameOrID 接受名称或完整 ID 的参数，执行前折叠成资源 ID
func FoldNameOrID(dest, help string, spec FoldSpec) Argument {
	return Argument{
		Dest: dest,
		Help: help,
		Fold: &spec,
	}
}
