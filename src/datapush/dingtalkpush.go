package datapush

import (
	"ChurnInsight/src/processor"
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// 常量定义
const (
	RETRY_TIMES    = 5
	RETRY_INTERVAL = 2 * time.Second
	MarkdownTitle  = "客户流失分析"
)

// 钉钉 API 响应结构体
type DingTalkResponse struct {
	ErrCode int    `json:"errcode"`
	ErrMsg  string `json:"errmsg"`
}

// DingTalkRobot 群机器人推送
type DingTalkRobot struct {
	Webhook       string
	Secret        string // 加签密钥，为空时不签名
	Client        *http.Client
	Retries       int
	RetryInterval time.Duration

	now func() time.Time
}

func NewDingTalkRobot(webhook, secret string) *DingTalkRobot {
	return &DingTalkRobot{
		Webhook:       webhook,
		Secret:        secret,
		Client:        &http.Client{Timeout: 10 * time.Second},
		Retries:       RETRY_TIMES,
		RetryInterval: RETRY_INTERVAL,
		now:           time.Now,
	}
}

// Push 以markdown消息推送报表摘要
func (r *DingTalkRobot) Push(ctx context.Context, report *processor.Report) error {
	payload := map[string]interface{}{
		"msgtype": "markdown",
		"markdown": map[string]string{
			"title": MarkdownTitle,
			"text":  markdownText(report),
		},
	}

	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("序列化请求体失败: %w", err)
	}

	return retry(ctx, func() error {
		return r.send(ctx, payloadBytes)
	}, r.Retries, r.RetryInterval)
}

func (r *DingTalkRobot) send(ctx context.Context, payload []byte) error {
	target, err := r.signedURL()
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("创建请求失败: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	client := r.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("发送请求失败: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("读取响应失败: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("钉钉返回状态码 %d", resp.StatusCode)
	}

	var result DingTalkResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return fmt.Errorf("解析响应失败: %w", err)
	}
	if result.ErrCode != 0 {
		return fmt.Errorf("发送消息失败: %s", result.ErrMsg)
	}
	return nil
}

// signedURL 按钉钉加签规则附加 timestamp 与 sign
func (r *DingTalkRobot) signedURL() (string, error) {
	if r.Secret == "" {
		return r.Webhook, nil
	}

	u, err := url.Parse(r.Webhook)
	if err != nil {
		return "", fmt.Errorf("webhook地址无效: %w", err)
	}

	now := time.Now
	if r.now != nil {
		now = r.now
	}
	timestamp := strconv.FormatInt(now().UnixMilli(), 10)

	q := u.Query()
	q.Set("timestamp", timestamp)
	q.Set("sign", sign(timestamp, r.Secret))
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func sign(timestamp, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(timestamp + "\n" + secret))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func markdownText(report *processor.Report) string {
	var sb strings.Builder
	sb.WriteString("### " + MarkdownTitle + "\n\n")
	for _, line := range strings.Split(strings.TrimSpace(report.Summary()), "\n") {
		sb.WriteString("- " + line + "\n")
	}
	return sb.String()
}

// 重试函数，ctx 取消时提前返回
func retry(ctx context.Context, fn func() error, times int, interval time.Duration) error {
	if times < 1 {
		times = 1
	}

	var err error
	for i := 0; i < times; i++ {
		if err = fn(); err == nil {
			return nil
		}
		if i < times-1 {
			select {
			case <-ctx.Done():
				return fmt.Errorf("推送已取消: %w", ctx.Err())
			case <-time.After(interval):
			}
		}
	}
	return fmt.Errorf("重试 %d 次后失败: %w", times, err)
}
