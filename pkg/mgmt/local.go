package mgmt

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/cockroachdb/errors"
	"sigs.k8s.io/yaml"

	"github.com/glesirok/armedit/pkg/resourceid"
)

// storeFile 本地存储文件格式
//
//	resources:
//	  /subscriptions/.../virtualNetworks/vnet1:
//	    name: vnet1
//	    properties: {...}
type storeFile struct {
	Resources map[string]map[string]any `json:"resources"`
}

// LocalStore 用一个 YAML 文件模拟资源管理服务，资源 ID 大小写不敏感
type LocalStore struct {
	path string

	mu        sync.Mutex
	ids       map[string]string // 小写 ID -> 原始 ID
	resources map[string]map[string]any
}

// NewLocalStore 加载存储文件，文件不存在时视为空
func NewLocalStore(path string) (*LocalStore, error) {
	s := &LocalStore{
		path:      path,
		ids:       map[string]string{},
		resources: map[string]map[string]any{},
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "read store")
	}

	var file storeFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, errors.Wrapf(err, "parse store %s", path)
	}
	for id, body := range file.Resources {
		if _, err := resourceid.Parse(id); err != nil {
			return nil, errors.Wrapf(err, "store %s", path)
		}
		key := strings.ToLower(id)
		s.ids[key] = id
		s.resources[key] = body
	}
	return s, nil
}

// Exists 与 ARM 一致：恰好一个匹配才算存在，不同订阅下的同名资源会互相遮蔽
func (s *LocalStore) Exists(_ context.Context, resourceGroup, name, resourceType string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	matches := 0
	for _, raw := range s.ids {
		id, err := resourceid.Parse(raw)
		if err != nil {
			continue
		}
		if strings.EqualFold(id.ResourceGroup, resourceGroup) &&
			strings.EqualFold(id.FullName(), name) &&
			strings.EqualFold(id.FullType(), resourceType) {
			matches++
		}
	}
	return matches == 1, nil
}

func (s *LocalStore) Get(_ context.Context, id resourceid.ID) (map[string]any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	body, ok := s.resources[strings.ToLower(id.String())]
	if !ok {
		return nil, errors.Wrapf(ErrNotFound, "%s", id)
	}
	return Clone(body), nil
}

// Update 覆盖资源表示并立即写回文件
func (s *LocalStore) Update(_ context.Context, id resourceid.ID, body map[string]any) (map[string]any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := strings.ToLower(id.String())
	if _, ok := s.ids[key]; !ok {
		s.ids[key] = id.String()
	}
	s.resources[key] = Clone(body)

	if err := s.save(); err != nil {
		return nil, err
	}
	return Clone(body), nil
}

func (s *LocalStore) save() error {
	file := storeFile{Resources: make(map[string]map[string]any, len(s.resources))}
	for key, body := range s.resources {
		file.Resources[s.ids[key]] = body
	}

	data, err := yaml.Marshal(file)
	if err != nil {
		return errors.Wrap(err, "marshal store")
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return errors.Wrap(err, "create store directory")
	}
	if err := os.WriteFile(s.path, data, 0644); err != nil {
		return errors.Wrap(err, "write store")
	}
	return nil
}
