package command

import (
	"strconv"
	"strings"
)

// groupSep 把一次出现的多个值拼成 pflag 能接受的单个参数
const groupSep = "\x1f"

// groupsValue 实现 pflag.Value；每次出现追加一组
type groupsValue struct {
	groups [][]string
}

func (g *groupsValue) Set(s string) error {
	g.groups = append(g.groups, strings.Split(s, groupSep))
	return nil
}

func (g *groupsValue) String() string {
	parts := make([]string, 0, len(g.groups))
	for _, group := range g.groups {
		parts = append(parts, strings.Join(group, " "))
	}
	return strings.Join(parts, ", ")
}

func (g *groupsValue) Type() string {
	return "values"
}

// GroupArgs 预处理命令行：groupFlags 中的参数吃掉后续所有不以 - 开头的值（负整数除外），
// 例如 --add list a=b c=d -> --add "list\x1fa=b\x1fc=d"
func GroupArgs(args []string, groupFlags []string) []string {
	isGroup := make(map[string]bool, len(groupFlags))
	for _, f := range groupFlags {
		isGroup[f] = true
	}

	out := make([]string, 0, len(args))
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if arg == "--" {
			return append(out, args[i:]...)
		}

		name, inline, hasInline := strings.Cut(arg, "=")
		if !isGroup[name] {
			out = append(out, arg)
			continue
		}

		var values []string
		if hasInline {
			values = append(values, inline)
		}
		for i+1 < len(args) && isValue(args[i+1]) {
			i++
			values = append(values, args[i])
		}
		out = append(out, name)
		if len(values) > 0 {
			out = append(out, strings.Join(values, groupSep))
		}
	}
	return out
}

func isValue(arg string) bool {
	if arg == "" || !strings.HasPrefix(arg, "-") {
		return true
	}
	_, err := strconv.Atoi(arg)
	return err == nil
}
