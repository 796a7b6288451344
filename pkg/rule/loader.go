package rule

import (
	"os"

	"github.com/cockroachdb/errors"
	"gopkg.in/yaml.v3"

	"github.com/glesirok/armedit/pkg/engine"
	"github.com/glesirok/armedit/pkg/path"
)

// Config 表示规则配置文件
//
//	rules:
//	  - action: set
//	    path: tags.env
//	    value: prod
//	  - action: add
//	    path: properties.dhcpOptions.dnsServers
//	    args: ["10.0.0.4"]
//	  - action: remove
//	    path: properties.subnets
//	    args: ["0"]
type Config struct {
	Rules []*engine.Rule `yaml:"rules"`
}

// LoadFromFile 从文件加载规则
func LoadFromFile(filePath string) ([]*engine.Rule, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, errors.Wrap(err, "read file")
	}
	return Load(data)
}

// Load 从 YAML 内容加载规则
func Load(data []byte) ([]*engine.Rule, error) {
	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, errors.Wrap(err, "unmarshal yaml")
	}

	// 校验规则
	for i, r := range config.Rules {
		if err := Validate(r); err != nil {
			return nil, errors.Wrapf(err, "rule %d", i)
		}
	}

	return config.Rules, nil
}

// Validate 校验规则的合法性
func Validate(r *engine.Rule) error {
	if r == nil {
		return errors.New("empty rule")
	}
	if r.Path == "" {
		return errors.New("path is required")
	}
	if _, err := path.Parse(r.Path); err != nil {
		return err
	}

	switch r.Action {
	case engine.ActionSet:
		if len(r.Args) > 0 {
			return errors.Newf("args are not allowed for action %s", r.Action)
		}

	case engine.ActionAdd:
		if r.Value == nil && len(r.Args) == 0 {
			return errors.Newf("value or args is required for action %s", r.Action)
		}

	case engine.ActionRemove:
		if r.Value != nil {
			return errors.Newf("value is not allowed for action %s", r.Action)
		}
		if len(r.Args) > 1 {
			return errors.New("remove accepts at most one index or key")
		}

	default:
		return errors.Newf("unknown action: %s", r.Action)
	}

	return nil
}
