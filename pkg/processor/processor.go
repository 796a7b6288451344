package processor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
	jsonpatch "github.com/evanphx/json-patch/v5"
	"github.com/fatih/color"
	"sigs.k8s.io/yaml"

	"github.com/glesirok/armedit/pkg/engine"
	"github.com/glesirok/armedit/pkg/logging"
	"github.com/glesirok/armedit/pkg/mgmt"
	"github.com/glesirok/armedit/pkg/resourceid"
)

var bom = []byte{0xEF, 0xBB, 0xBF}

// Mutator 在通用指令之前修改资源表示，例如写入折叠后的子资源引用
type Mutator func(body map[string]any) (map[string]any, error)

// Processor 把一批指令应用到远端资源或本地文档
type Processor struct {
	rules  []*engine.Rule
	engine *engine.Engine
	out    io.Writer // dry-run 预览
	status io.Writer // 进度和成功提示
}

// Option 配置 Processor
type Option func(*Processor)

func WithOutput(w io.Writer) Option {
	return func(p *Processor) { p.out = w }
}

func WithStatus(w io.Writer) Option {
	return func(p *Processor) { p.status = w }
}

// WithEngine 替换默认的指令引擎
func WithEngine(e *engine.Engine) Option {
	return func(p *Processor) { p.engine = e }
}

// NewProcessor 创建处理器
func NewProcessor(rules []*engine.Rule, opts ...Option) *Processor {
	p := &Processor{
		rules:  rules,
		engine: engine.NewEngine(),
		out:    os.Stdout,
		status: os.Stderr,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// UpdateResource 读取资源，依次应用 mutators 和指令，再整体写回
// 任何一步失败都不会调用 Update；dry-run 只打印合并补丁
func (p *Processor) UpdateResource(ctx context.Context, svc mgmt.Service, id resourceid.ID, dryRun bool, mutators ...Mutator) (map[string]any, error) {
	logger := logging.FromContext(ctx)

	original, err := svc.Get(ctx, id)
	if err != nil {
		return nil, errors.Wrapf(err, "get %s", id.FullName())
	}

	working := mgmt.Clone(original)
	if working == nil {
		working = map[string]any{}
	}
	for _, m := range mutators {
		if working, err = m(working); err != nil {
			return nil, err
		}
	}

	root, err := p.engine.Apply(working, p.rules)
	if err != nil {
		return nil, err
	}
	updated, ok := root.(map[string]any)
	if !ok {
		return nil, errors.Newf("resource representation of %s must remain an object", id.FullName())
	}

	if dryRun {
		if err := p.printPatch(id.String(), original, updated); err != nil {
			return nil, err
		}
		return updated, nil
	}

	logger.Debug("updating resource", "id", id.String(), "rules", len(p.rules))
	result, err := svc.Update(ctx, id, updated)
	if err != nil {
		return nil, errors.Wrapf(err, "update %s", id.FullName())
	}
	color.New(color.FgGreen).Fprintf(p.status, "✓ Updated: %s\n", id)
	return result, nil
}

// ProcessFile 处理单个 JSON 或 YAML 文档，格式由扩展名决定
func (p *Processor) ProcessFile(inputPath, outputPath string, dryRun bool) error {
	data, err := os.ReadFile(inputPath)
	if err != nil {
		return errors.Wrap(err, "read file")
	}

	// 检测并移除 UTF-8 BOM
	hasBOM := bytes.HasPrefix(data, bom)
	if hasBOM {
		data = data[len(bom):]
	}

	isJSON := strings.EqualFold(filepath.Ext(inputPath), ".json")
	var original any
	if isJSON {
		err = json.Unmarshal(data, &original)
	} else {
		err = yaml.Unmarshal(data, &original)
	}
	if err != nil {
		return errors.Wrapf(err, "parse %s", inputPath)
	}

	root, err := p.engine.Apply(mgmt.CloneTree(original), p.rules)
	if err != nil {
		return err
	}

	output, err := encode(root, isJSON)
	if err != nil {
		return err
	}
	if hasBOM {
		output = append(append([]byte{}, bom...), output...)
	}

	if dryRun {
		return p.printPatch(inputPath, original, root)
	}

	if err := os.WriteFile(outputPath, output, 0644); err != nil {
		return errors.Wrap(err, "write file")
	}
	return nil
}

// ProcessDirectory 批量处理目录下的 .json、.yaml 和 .yml 文件
func (p *Processor) ProcessDirectory(inputDir, outputDir string, dryRun, backup bool) error {
	if !dryRun && outputDir != "" {
		if err := os.MkdirAll(outputDir, 0755); err != nil {
			return errors.Wrap(err, "create output dir")
		}
	}

	return filepath.Walk(inputDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() || !IsDocument(path) {
			return nil
		}

		relPath, err := filepath.Rel(inputDir, path)
		if err != nil {
			return err
		}

		outputPath := path // 原地修改
		if outputDir != "" {
			outputPath = filepath.Join(outputDir, relPath)
			if !dryRun {
				if err := os.MkdirAll(filepath.Dir(outputPath), 0755); err != nil {
					return errors.Wrap(err, "create output dir")
				}
			}
		}

		if backup && !dryRun && outputDir == "" {
			if err := Backup(path); err != nil {
				return err
			}
		}

		fmt.Fprintf(p.status, "Processing: %s\n", path)
		if err := p.ProcessFile(path, outputPath, dryRun); err != nil {
			return errors.Wrapf(err, "process %s", path)
		}
		return nil
	})
}

// IsDocument 是否是可处理的文档
func IsDocument(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".yaml", ".yml":
		return true
	}
	return false
}

// Backup 把文件复制为 <path>.bak
func Backup(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrap(err, "read file for backup")
	}
	if err := os.WriteFile(path+".bak", data, 0644); err != nil {
		return errors.Wrap(err, "create backup")
	}
	return nil
}

// printPatch 以 JSON 合并补丁的形式展示修改
func (p *Processor) printPatch(name string, before, after any) error {
	patch, err := MergePatch(before, after)
	if err != nil {
		return err
	}

	fmt.Fprintf(p.out, "=== Dry-run: %s ===\n", name)
	if string(patch) == "{}" {
		fmt.Fprintln(p.out, "no changes")
		return nil
	}

	var buf bytes.Buffer
	if err := json.Indent(&buf, patch, "", "  "); err != nil {
		return errors.Wrap(err, "format patch")
	}
	fmt.Fprintln(p.out, buf.String())
	return nil
}

// MergePatch 计算 before 到 after 的 RFC 7386 合并补丁
func MergePatch(before, after any) ([]byte, error) {
	a, err := json.Marshal(before)
	if err != nil {
		return nil, errors.Wrap(err, "marshal original")
	}
	b, err := json.Marshal(after)
	if err != nil {
		return nil, errors.Wrap(err, "marshal modified")
	}
	patch, err := jsonpatch.CreateMergePatch(a, b)
	if err != nil {
		return nil, errors.Wrap(err, "create merge patch")
	}
	return patch, nil
}

func encode(root any, asJSON bool) ([]byte, error) {
	if asJSON {
		data, err := json.MarshalIndent(root, "", "  ")
		if err != nil {
			return nil, errors.Wrap(err, "marshal json")
		}
		return append(data, '\n'), nil
	}
	data, err := yaml.Marshal(root)
	if err != nil {
		return nil, errors.Wrap(err, "marshal yaml")
	}
	return data, nil
}
