package repo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/go-redis/redis/v8"
)

// UserInfo 用户目录返回的展示信息
type UserInfo struct {
	UserID    string `json:"userId"`
	Name      string `json:"name"`
	AvatarURL string `json:"avatarUrl"`
}

// UserDirectory 用户目录（外部协作方）
// 未知用户返回 (nil, nil)，调用方自行回退到占位名
type UserDirectory interface {
	Resolve(ctx context.Context, userID string) (*UserInfo, error)
}

type httpDirectory struct {
	baseURL string
	client  *http.Client
}

func NewHTTPDirectory(baseURL string) UserDirectory {
	return &httpDirectory{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 5 * time.Second},
	}
}

func (d *httpDirectory) Resolve(ctx context.Context, userID string) (*UserInfo, error) {
	u := d.baseURL + "/users/" + url.PathEscape(userID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fail to resolve user %s:%w", userID, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("user directory returned %d for %s", resp.StatusCode, userID)
	}
	var info UserInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("fail to decode user %s:%w", userID, err)
	}
	if info.UserID == "" {
		info.UserID = userID
	}
	return &info, nil
}

// cachedDirectory 在目录前挂一层 redis 缓存
// 缓存故障只降级为直连查询，不向上冒错
type cachedDirectory struct {
	inner UserDirectory
	rdb   *redis.Client
	ttl   time.Duration
}

func NewCachedDirectory(inner UserDirectory, rdb *redis.Client) UserDirectory {
	return &cachedDirectory{inner: inner, rdb: rdb, ttl: 10 * time.Minute}
}

func (d *cachedDirectory) Resolve(ctx context.Context, userID string) (*UserInfo, error) {
	key := "userdir:" + userID
	// 缓存未命中或不可用都落到目录
	if val, err := d.rdb.Get(ctx, key).Result(); err == nil {
		var info UserInfo
		if json.Unmarshal([]byte(val), &info) == nil {
			return &info, nil
		}
	}
	info, err := d.inner.Resolve(ctx, userID)
	if err != nil || info == nil {
		return info, err
	}
	if data, merr := json.Marshal(info); merr == nil {
		_ = d.rdb.Set(ctx, key, data, d.ttl).Err()
	}
	return info, nil
}
