package path

import (
	"strconv"
	"strings"
)

// Parse 解析路径字符串
// 支持语法：
//   - properties.ipConfigurations
//   - list[0]、list[-1]
//   - list[name=foo].value
//   - list[2][d=e].x
//   - [0].name (根节点是数组)
func Parse(pathStr string) (*Path, error) {
	if strings.TrimSpace(pathStr) == "" {
		return nil, &SyntaxError{Path: pathStr, Reason: "empty path"}
	}

	// a.[0] 与 a[0] 等价
	s := strings.ReplaceAll(pathStr, ".[", "[")

	steps := []Step{}
	i := 0
	for {
		// 字段名：读到 . [ ] 或结尾
		start := i
		for i < len(s) && s[i] != '.' && s[i] != '[' && s[i] != ']' {
			i++
		}
		name := s[start:i]

		if name != "" {
			steps = append(steps, Step{Kind: StepField, Field: name})
		} else if !(start == 0 && i < len(s) && s[i] == '[') {
			return nil, &SyntaxError{Path: pathStr, Reason: "empty field name"}
		}

		// 零个或多个 [..] 后缀
		for i < len(s) && s[i] == '[' {
			end := strings.IndexByte(s[i+1:], ']')
			if end == -1 {
				return nil, &SyntaxError{Path: pathStr, Reason: "unbalanced '['"}
			}
			content := s[i+1 : i+1+end]
			if strings.IndexByte(content, '[') != -1 {
				return nil, &SyntaxError{Path: pathStr, Reason: "unbalanced '['"}
			}

			step, err := parseBracket(pathStr, content)
			if err != nil {
				return nil, err
			}
			steps = append(steps, step)
			i += end + 2
		}

		if i == len(s) {
			break
		}

		switch s[i] {
		case '.':
			i++
			if i == len(s) {
				return nil, &SyntaxError{Path: pathStr, Reason: "trailing '.'"}
			}
		case ']':
			return nil, &SyntaxError{Path: pathStr, Reason: "unbalanced ']'"}
		default:
			return nil, &SyntaxError{Path: pathStr, Reason: "expected '.' or '[' after ']'"}
		}
	}

	return &Path{Steps: steps}, nil
}

// MustParse 解析失败时 panic，只用于常量路径
func MustParse(pathStr string) *Path {
	p, err := Parse(pathStr)
	if err != nil {
		panic(err)
	}
	return p
}

// parseBracket 解析方括号内容
//   - 整数 : 下标
//   - key=value : 谓词
func parseBracket(pathStr, content string) (Step, error) {
	if content == "" {
		return Step{}, &SyntaxError{Path: pathStr, Reason: "empty index"}
	}

	if idx, err := strconv.Atoi(content); err == nil {
		return Step{Kind: StepIndex, Index: idx}, nil
	}

	if key, value, ok := strings.Cut(content, "="); ok {
		if key == "" {
			return Step{}, &SyntaxError{Path: pathStr, Reason: "empty key in [" + content + "]"}
		}
		return Step{Kind: StepPredicate, Key: key, Value: value}, nil
	}

	return Step{}, &SyntaxError{Path: pathStr, Reason: "invalid index [" + content + "]"}
}

// SplitKeyValue 在第一个不在方括号里的 = 处切分表达式
// 例如: "list[d=e].x=1" -> ("list[d=e].x", "1")
func SplitKeyValue(expr string) (key, value string, ok bool) {
	depth := 0
	for i := 0; i < len(expr); i++ {
		switch expr[i] {
		case '[':
			depth++
		case ']':
			if depth > 0 {
				depth--
			}
		case '=':
			if depth == 0 {
				return expr[:i], expr[i+1:], true
			}
		}
	}
	return expr, "", false
}
