package path

import (
	"fmt"
	"strings"
)

// SyntaxError 路径文本格式错误
type SyntaxError struct {
	Path   string
	Reason string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("invalid path '%s': %s", e.Path, e.Reason)
}

// NotFoundError 映射中找不到字段，或者在标量上继续索引
type NotFoundError struct {
	Field   string
	Path    string
	Options []string // 同级可用的键，已排序；标量时为 nil
	Scalar  bool
}

func (e *NotFoundError) Error() string {
	msg := fmt.Sprintf("Couldn't find '%s' in '%s'.", e.Field, e.Path)
	if e.Scalar {
		return fmt.Sprintf("%s '%s' does not support further indexing.", msg, e.Path)
	}
	return fmt.Sprintf("%s Available options: %s", msg, formatOptions(e.Options))
}

// NotFoundOnSequenceError 在数组上按字段名访问
type NotFoundOnSequenceError struct {
	Field string
	Path  string
}

func (e *NotFoundOnSequenceError) Error() string {
	return fmt.Sprintf("Couldn't find '%s' in '%s'. Available options: index into the collection '%s' with [<index>] or [<key=value>]",
		e.Field, e.Path, e.Path)
}

// IndexError 导航时下标越界
type IndexError struct {
	Index int
	Path  string
}

func (e *IndexError) Error() string {
	return fmt.Sprintf("index %d doesn't exist on %s", e.Index, e.Path)
}

// IndexOutOfRangeError remove 时下标越界
type IndexOutOfRangeError struct {
	Index int
	Name  string
}

func (e *IndexOutOfRangeError) Error() string {
	return fmt.Sprintf("index %d doesn't exist on %s", e.Index, e.Name)
}

// AmbiguousKeyError 谓词匹配到多个元素
type AmbiguousKeyError struct {
	Key  string
	Path string
}

func (e *AmbiguousKeyError) Error() string {
	return fmt.Sprintf("non-unique key '%s' found multiple matches on %s. Key must be unique.", e.Key, e.Path)
}

// ValueNotFoundError 谓词没有匹配到元素
type ValueNotFoundError struct {
	Key   string
	Value string
	Path  string
}

func (e *ValueNotFoundError) Error() string {
	return fmt.Sprintf("item with value '%s' doesn't exist for key '%s' on %s", e.Value, e.Key, e.Path)
}

// NotSequenceError add 的目标不是数组
type NotSequenceError struct {
	Path string
}

func (e *NotSequenceError) Error() string {
	return fmt.Sprintf("'%s' is not a list", e.Path)
}

func formatOptions(options []string) string {
	quoted := make([]string, len(options))
	for i, o := range options {
		quoted[i] = "'" + o + "'"
	}
	return "[" + strings.Join(quoted, ", ") + "]"
}
