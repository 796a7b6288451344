package engine

import (
	"fmt"
	"strings"
)

// ActionType 定义操作类型
type ActionType string

const (
	ActionSet    ActionType = "set"
	ActionAdd    ActionType = "add"
	ActionRemove ActionType = "remove"
)

// 执行顺序固定：先全部 set，再全部 add，最后全部 remove
var actionOrder = []ActionType{ActionSet, ActionAdd, ActionRemove}

// 用法说明，出错时作为 hint 输出
const (
	SetUsage    = "--set property1.property2=<value>"
	AddUsage    = "--add property.listProperty <key=value, string or JSON string>"
	RemoveUsage = "--remove property.list <indexToRemove> OR --remove propertyToRemove"
)

// Rule 表示一条修改指令
type Rule struct {
	Action ActionType `yaml:"action"`
	Path   string     `yaml:"path"`
	Value  any        `yaml:"value,omitempty"` // set 的值；add 时作为一个完整元素追加
	Args   []string   `yaml:"args,omitempty"`  // add 的 key=value / 值列表；remove 的下标或键
}

// String 还原成命令行形式，用于错误信息
func (r *Rule) String() string {
	switch r.Action {
	case ActionSet:
		return fmt.Sprintf("--set %s=%v", r.Path, r.Value)
	default:
		return strings.TrimSpace(fmt.Sprintf("--%s %s %s", r.Action, r.Path, strings.Join(r.Args, " ")))
	}
}
