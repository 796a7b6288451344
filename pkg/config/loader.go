// Package config loads armedit settings from struct defaults, a YAML file, the environment and flags.
package config

import (
	"io"
	"os"
	"strings"

	"github.com/cockroachdb/errors"
	koanfyaml "github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

// Loader 按 默认值 < 配置文件 < 环境变量 < 命令行参数 的优先级合并配置
type Loader struct {
	k         *koanf.Koanf
	envPrefix string
}

// Validator 配置结构体可以实现它来校验自身
type Validator interface {
	Validate() error
}

// NewLoader envPrefix 不带分隔符，环境变量用 __ 表示层级：
// ARMEDIT__DEFAULTS__SUBSCRIPTION -> defaults.subscription
func NewLoader(envPrefix string) *Loader {
	return &Loader{
		k:         koanf.New("."),
		envPrefix: envPrefix + "__",
	}
}

// LoadWithDefaults 显式指定的配置文件必须存在；configPath 为空时只用默认值和环境变量
func (l *Loader) LoadWithDefaults(defaults any, configPath string) error {
	if defaults != nil {
		if err := l.k.Load(structs.Provider(defaults, "koanf"), nil); err != nil {
			return errors.Wrap(err, "load defaults")
		}
	}

	if configPath != "" {
		if _, err := os.Stat(configPath); err != nil {
			return errors.Newf("config file not found: %s", configPath)
		}
		if err := l.k.Load(file.Provider(configPath), koanfyaml.Parser()); err != nil {
			return errors.Wrap(err, "load config file")
		}
	}

	envProvider := env.Provider(l.envPrefix, ".", func(s string) string {
		key := strings.ToLower(strings.TrimPrefix(s, l.envPrefix))
		return strings.ReplaceAll(key, "__", ".")
	})
	if err := l.k.Load(envProvider, nil); err != nil {
		return errors.Wrap(err, "load environment variables")
	}
	return nil
}

// LoadFlags 只应用用户显式设置过的参数
func (l *Loader) LoadFlags(flags *pflag.FlagSet, mappings map[string]string) error {
	var errs error
	flags.Visit(func(f *pflag.Flag) {
		if key, ok := mappings[f.Name]; ok {
			if err := l.k.Set(key, f.Value.String()); err != nil {
				errs = errors.CombineErrors(errs, errors.Wrapf(err, "flag %s", f.Name))
			}
		}
	})
	return errs
}

func (l *Loader) Unmarshal(path string, out any) error {
	return l.k.Unmarshal(path, out)
}

// UnmarshalAndValidate out 实现了 Validator 时在反序列化后校验
func (l *Loader) UnmarshalAndValidate(path string, out any) error {
	if err := l.k.Unmarshal(path, out); err != nil {
		return errors.Wrap(err, "unmarshal config")
	}
	if v, ok := out.(Validator); ok {
		return v.Validate()
	}
	return nil
}

func (l *Loader) Set(key string, value any) error {
	return l.k.Set(key, value)
}

// DumpYAML 输出合并后的配置
func (l *Loader) DumpYAML(w io.Writer) error {
	return yaml.NewEncoder(w).Encode(l.k.Raw())
}
