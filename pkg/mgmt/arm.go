package mgmt

import (
	"context"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"sync"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/arm"
	armruntime "github.com/Azure/azure-sdk-for-go/sdk/azcore/arm/runtime"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/cloud"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/runtime"
	"github.com/cockroachdb/errors"

	"github.com/glesirok/armedit/pkg/logging"
	"github.com/glesirok/armedit/pkg/resourceid"
)

const (
	moduleName    = "armedit"
	moduleVersion = "v0.1.0"

	DefaultEndpoint   = "https://management.azure.com"
	DefaultAPIVersion = "2021-04-01"
)

// ARMOptions ARM 客户端配置
type ARMOptions struct {
	Endpoint     string
	Subscription string
	// APIVersion 用于资源列表和 provider 查询
	APIVersion string
	// APIVersions 按小写的完整类型或命名空间指定版本，未命中时查询 provider
	APIVersions   map[string]string
	ClientOptions *arm.ClientOptions
}

// ARMClient 通过 Azure SDK 管道访问 Resource Manager
type ARMClient struct {
	pl           runtime.Pipeline
	endpoint     string
	subscription string
	apiVersion   string
	apiVersions  map[string]string

	mu       sync.Mutex
	resolved map[string]string
}

// NewARMClient 创建客户端；认证、重试和遥测由 SDK 管道负责
func NewARMClient(cred azcore.TokenCredential, opts ARMOptions) (*ARMClient, error) {
	if opts.Subscription == "" {
		return nil, errors.WithHint(errors.New("subscription is required"),
			"set defaults.subscription in the config file or pass --subscription")
	}

	endpoint := strings.TrimSuffix(opts.Endpoint, "/")
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	apiVersion := opts.APIVersion
	if apiVersion == "" {
		apiVersion = DefaultAPIVersion
	}

	var clientOpts arm.ClientOptions
	if opts.ClientOptions != nil {
		clientOpts = *opts.ClientOptions
	}
	if endpoint != DefaultEndpoint && len(clientOpts.Cloud.Services) == 0 {
		clientOpts.Cloud = cloud.Configuration{
			ActiveDirectoryAuthorityHost: cloud.AzurePublic.ActiveDirectoryAuthorityHost,
			Services: map[cloud.ServiceName]cloud.ServiceConfiguration{
				cloud.ResourceManager: {Audience: endpoint, Endpoint: endpoint},
			},
		}
	}

	pl, err := armruntime.NewPipeline(moduleName, moduleVersion, cred, runtime.PipelineOptions{}, &clientOpts)
	if err != nil {
		return nil, errors.Wrap(err, "create pipeline")
	}

	versions := make(map[string]string, len(opts.APIVersions))
	for k, v := range opts.APIVersions {
		versions[strings.ToLower(k)] = v
	}

	return &ARMClient{
		pl:           pl,
		endpoint:     endpoint,
		subscription: opts.Subscription,
		apiVersion:   apiVersion,
		apiVersions:  versions,
		resolved:     map[string]string{},
	}, nil
}

// Exists 顶级资源用资源列表的 OData 过滤查询，恰好一个匹配才算存在；子资源直接 GET
func (c *ARMClient) Exists(ctx context.Context, resourceGroup, name, resourceType string) (bool, error) {
	if strings.Count(resourceType, "/") > 1 {
		id, err := c.childID(resourceGroup, name, resourceType)
		if err != nil {
			return false, err
		}
		if _, err := c.Get(ctx, id); err != nil {
			if errors.Is(err, ErrNotFound) {
				return false, nil
			}
			return false, err
		}
		return true, nil
	}

	next := runtime.JoinPaths(c.endpoint, "subscriptions", url.PathEscape(c.subscription), "resources")
	query := url.Values{}
	query.Set("$filter", resourceid.Filter(resourceGroup, name, resourceType))
	query.Set("api-version", c.apiVersion)
	next += "?" + query.Encode()

	matches := 0
	for next != "" {
		var page struct {
			Value    []map[string]any `json:"value"`
			NextLink string           `json:"nextLink"`
		}
		if err := c.getJSON(ctx, next, &page); err != nil {
			return false, err
		}
		matches += len(page.Value)
		next = page.NextLink
	}
	return matches == 1, nil
}

// Get 读取资源表示
func (c *ARMClient) Get(ctx context.Context, id resourceid.ID) (map[string]any, error) {
	u, err := c.resourceURL(ctx, id)
	if err != nil {
		return nil, err
	}

	var body map[string]any
	if err := c.getJSON(ctx, u, &body); err != nil {
		if isNotFound(err) {
			return nil, errors.Wrapf(ErrNotFound, "%s", id)
		}
		return nil, err
	}
	return body, nil
}

// Update 用 PUT 写回完整表示；202 不轮询，直接返回提交的内容
func (c *ARMClient) Update(ctx context.Context, id resourceid.ID, body map[string]any) (map[string]any, error) {
	u, err := c.resourceURL(ctx, id)
	if err != nil {
		return nil, err
	}

	req, err := runtime.NewRequest(ctx, http.MethodPut, u)
	if err != nil {
		return nil, errors.Wrap(err, "create request")
	}
	if err := runtime.MarshalAsJSON(req, body); err != nil {
		return nil, errors.Wrap(err, "marshal body")
	}

	resp, err := c.do(ctx, req, http.StatusOK, http.StatusCreated, http.StatusAccepted)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusAccepted {
		return Clone(body), nil
	}

	var updated map[string]any
	if err := runtime.UnmarshalAsJSON(resp, &updated); err != nil {
		return nil, errors.Wrap(err, "unmarshal response")
	}
	if updated == nil {
		return Clone(body), nil
	}
	return updated, nil
}

func (c *ARMClient) getJSON(ctx context.Context, u string, v any) error {
	req, err := runtime.NewRequest(ctx, http.MethodGet, u)
	if err != nil {
		return errors.Wrap(err, "create request")
	}
	resp, err := c.do(ctx, req, http.StatusOK)
	if err != nil {
		return err
	}
	return runtime.UnmarshalAsJSON(resp, v)
}

func (c *ARMClient) do(ctx context.Context, req *policy.Request, statusCodes ...int) (*http.Response, error) {
	raw := req.Raw()
	logging.FromContext(ctx).Debug("arm request", "method", raw.Method, "url", raw.URL.String())

	resp, err := c.pl.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "%s %s", raw.Method, raw.URL.Path)
	}
	if !runtime.HasStatusCode(resp, statusCodes...) {
		return nil, runtime.NewResponseError(resp)
	}
	return resp, nil
}

func (c *ARMClient) resourceURL(ctx context.Context, id resourceid.ID) (string, error) {
	version, err := c.versionFor(ctx, id)
	if err != nil {
		return "", err
	}
	return runtime.JoinPaths(c.endpoint, id.Canonical()) + "?api-version=" + url.QueryEscape(version), nil
}

// versionFor 依次查找配置的完整类型、命名空间和 provider 元数据
func (c *ARMClient) versionFor(ctx context.Context, id resourceid.ID) (string, error) {
	fullType := strings.ToLower(id.FullType())
	if v, ok := c.apiVersions[fullType]; ok {
		return v, nil
	}
	if v, ok := c.apiVersions[strings.ToLower(id.Namespace)]; ok {
		return v, nil
	}

	c.mu.Lock()
	v, ok := c.resolved[fullType]
	c.mu.Unlock()
	if ok {
		return v, nil
	}

	u := runtime.JoinPaths(c.endpoint, "subscriptions", url.PathEscape(id.Subscription), "providers", url.PathEscape(id.Namespace)) +
		"?api-version=" + url.QueryEscape(c.apiVersion)
	var provider struct {
		ResourceTypes []struct {
			ResourceType string   `json:"resourceType"`
			APIVersions  []string `json:"apiVersions"`
		} `json:"resourceTypes"`
	}
	if err := c.getJSON(ctx, u, &provider); err != nil {
		return "", errors.Wrapf(err, "query provider %s", id.Namespace)
	}

	typePath := strings.TrimPrefix(id.FullType(), id.Namespace+"/")
	for _, rt := range provider.ResourceTypes {
		if !strings.EqualFold(rt.ResourceType, typePath) || len(rt.APIVersions) == 0 {
			continue
		}
		v = latestVersion(rt.APIVersions)
		c.mu.Lock()
		c.resolved[fullType] = v
		c.mu.Unlock()
		logging.FromContext(ctx).Debug("resolved api version", "type", id.FullType(), "version", v)
		return v, nil
	}

	return "", errors.WithHint(errors.Newf("no API version found for %s", id.FullType()),
		"add an entry for "+id.FullType()+" under arm.api_versions in the config file")
}

// latestVersion 优先选最新的正式版本
func latestVersion(versions []string) string {
	sorted := append([]string(nil), versions...)
	sort.Sort(sort.Reverse(sort.StringSlice(sorted)))
	for _, v := range sorted {
		if !strings.Contains(strings.ToLower(v), "preview") {
			return v
		}
	}
	return sorted[0]
}

func (c *ARMClient) childID(resourceGroup, name, resourceType string) (resourceid.ID, error) {
	types := strings.Split(resourceType, "/")
	names := strings.Split(name, "/")
	if len(types) != 3 || len(names) != 2 {
		return resourceid.ID{}, errors.Newf("invalid child resource %s of type %s", name, resourceType)
	}
	return resourceid.ID{
		Subscription:  c.subscription,
		ResourceGroup: resourceGroup,
		Namespace:     types[0],
		Type:          types[1],
		Name:          names[0],
		ChildType:     types[2],
		ChildName:     names[1],
	}, nil
}

func isNotFound(err error) bool {
	var respErr *azcore.ResponseError
	return errors.As(err, &respErr) && respErr.StatusCode == http.StatusNotFound
}
