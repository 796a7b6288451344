package command

import (
	"encoding/json"
	"io"
	"strings"

	"github.com/cockroachdb/errors"
	"sigs.k8s.io/yaml"
)

// OutputFormats --output 支持的格式
var OutputFormats = []string{"json", "yaml", "none"}

// Print 按格式输出命令结果
func Print(w io.Writer, format string, v any) error {
	var data []byte
	var err error
	switch strings.ToLower(format) {
	case "", "json":
		data, err = json.MarshalIndent(v, "", "  ")
		data = append(data, '\n')
	case "yaml":
		data, err = yaml.Marshal(v)
	case "none":
		return nil
	default:
		return errors.Newf("unknown output format %q, expected one of %s", format, strings.Join(OutputFormats, ", "))
	}
	if err != nil {
		return errors.Wrap(err, "format output")
	}
	_, err = w.Write(data)
	return err
}

// FormatError 错误信息及其提示，每条提示一行
func FormatError(err error) string {
	var b strings.Builder
	b.WriteString(err.Error())
	if hints := errors.GetAllHints(err); len(hints) > 0 {
		for _, h := range hints {
			b.WriteString("\nhint: ")
			b.WriteString(h)
		}
	}
	return b.String()
}
