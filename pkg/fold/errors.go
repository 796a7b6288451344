package fold

import "fmt"

// ResourceNotFoundError 引用的资源不存在
type ResourceNotFoundError struct {
	ID   string
	Name string // 按名称解析时非空
}

func (e *ResourceNotFoundError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("resource '%s' does not exist (%s)", e.Name, e.ID)
	}
	return fmt.Sprintf("ID %s does not exist. Please specify a name to create a new resource.", e.ID)
}

// AmbiguousArgumentError 同时给了完整 ID 和父资源名称
type AmbiguousArgumentError struct {
	Option       string
	ParentOption string
}

func (e *AmbiguousArgumentError) Error() string {
	return fmt.Sprintf("usage error: %[1]s ID | %[1]s NAME %[2]s NAME", e.Option, e.ParentOption)
}

// MissingParentArgumentError 子资源只给了名称，没有父资源
type MissingParentArgumentError struct {
	Option       string
	ParentOption string
}

func (e *MissingParentArgumentError) Error() string {
	return fmt.Sprintf("usage error: %[2]s is required when %[1]s is a name, or pass %[1]s as a full resource ID",
		e.Option, e.ParentOption)
}

// RequiredError 参数不允许置空
type RequiredError struct {
	Option string
}

func (e *RequiredError) Error() string {
	return fmt.Sprintf("%s cannot be empty", e.Option)
}
