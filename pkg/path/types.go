package path

import (
	"strconv"
	"strings"
)

// Step 表示路径中的一步导航
type Step struct {
	Kind  StepKind
	Field string // 字段名，如 "properties"
	Index int    // 下标，支持负数
	Key   string // 谓词的键，如 [name=foo] 中的 name
	Value string // 谓词的值，按字符串比较
}

type StepKind int

const (
	StepField     StepKind = iota // 字段访问 a.b
	StepIndex                     // 下标访问 [0] / [-1]
	StepPredicate                 // 谓词访问 [key=value]
)

// String 还原单步的文本形式
func (s Step) String() string {
	switch s.Kind {
	case StepIndex:
		return "[" + strconv.Itoa(s.Index) + "]"
	case StepPredicate:
		return "[" + s.Key + "=" + s.Value + "]"
	default:
		return s.Field
	}
}

// Path 表示解析后的完整路径，解析后不可变
type Path struct {
	Steps []Step
}

// String 还原路径文本
func (p *Path) String() string {
	return render(p.Steps)
}

// Name 返回最后一步的文本，用于错误信息
func (p *Path) Name() string {
	if len(p.Steps) == 0 {
		return ""
	}
	return p.Steps[len(p.Steps)-1].String()
}

// render 把若干步拼成路径文本：字段之间用 . 连接，下标和谓词直接追加
func render(steps []Step) string {
	var b strings.Builder
	for i, s := range steps {
		if s.Kind == StepField && i > 0 {
			b.WriteByte('.')
		}
		b.WriteString(s.String())
	}
	return b.String()
}
