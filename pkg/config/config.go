package config

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/pflag"

	"github.com/glesirok/armedit/pkg/logging"
)

const (
	EnvPrefix = "ARMEDIT"

	defaultEndpoint   = "https://management.azure.com"
	defaultAPIVersion = "2021-04-01"
)

// FlagMappings 命令行参数到配置键
var FlagMappings = map[string]string{
	"subscription": "defaults.subscription",
	"store":        "store.path",
	"log-level":    "logging.level",
	"log-format":   "logging.format",
}

type Config struct {
	Defaults DefaultsConfig `koanf:"defaults"`
	ARM      ARMConfig      `koanf:"arm"`
	Store    StoreConfig    `koanf:"store"`
	Logging  logging.Config `koanf:"logging"`
}

// DefaultsConfig 按名称解析资源时使用的默认范围
type DefaultsConfig struct {
	Subscription  string `koanf:"subscription" validate:"omitempty,excludesall=/"`
	ResourceGroup string `koanf:"resource_group" validate:"omitempty,excludesall=/"`
}

type ARMConfig struct {
	Endpoint   string `koanf:"endpoint" validate:"required,url"`
	APIVersion string `koanf:"api_version" validate:"required"`
	// APIVersions 类型名里有点号，不能作为 koanf 的键，所以用列表
	APIVersions []APIVersion `koanf:"api_versions" validate:"dive"`
}

// APIVersion Type 可以是命名空间或完整类型
type APIVersion struct {
	Type    string `koanf:"type" validate:"required"`
	Version string `koanf:"version" validate:"required"`
}

// StoreConfig Path 非空时使用本地存储代替 Azure Resource Manager
type StoreConfig struct {
	Path string `koanf:"path"`
}

func Defaults() Config {
	return Config{
		ARM: ARMConfig{
			Endpoint:   defaultEndpoint,
			APIVersion: defaultAPIVersion,
		},
		Logging: logging.Config{Level: "warn", Format: "text"},
	}
}

// Versions 把 APIVersions 转成按小写类型索引的映射
func (c ARMConfig) Versions() map[string]string {
	out := make(map[string]string, len(c.APIVersions))
	for _, v := range c.APIVersions {
		out[strings.ToLower(v.Type)] = v.Version
	}
	return out
}

func (c *Config) Validate() error {
	validate := validator.New(validator.WithRequiredStructEnabled())
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		return strings.SplitN(f.Tag.Get("koanf"), ",", 2)[0]
	})

	err := validate.Struct(c)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return errors.Wrap(err, "validate config")
	}
	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		// Config.arm.endpoint -> arm.endpoint
		_, field, _ := strings.Cut(fe.Namespace(), ".")
		msgs = append(msgs, field+": failed on "+fe.Tag())
	}
	return errors.Newf("invalid config: %s", strings.Join(msgs, "; "))
}

// DefaultPath $HOME/.armedit/config.yaml
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".armedit", "config.yaml")
}

// Load 合并所有配置来源；configPath 为空时使用存在的默认配置文件
func Load(configPath string, flags *pflag.FlagSet) (*Config, error) {
	if configPath == "" {
		if p := DefaultPath(); p != "" {
			if _, err := os.Stat(p); err == nil {
				configPath = p
			}
		}
	}

	loader := NewLoader(EnvPrefix)
	if err := loader.LoadWithDefaults(Defaults(), configPath); err != nil {
		return nil, err
	}
	if flags != nil {
		if err := loader.LoadFlags(flags, FlagMappings); err != nil {
			return nil, err
		}
	}

	var cfg Config
	if err := loader.UnmarshalAndValidate("", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
