package datapush

import (
	"ChurnInsight/src/processor"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testReport() *processor.Report {
	return &processor.Report{
		GeneratedAt:  time.Date(2026, 10, 19, 8, 30, 0, 0, time.UTC),
		RecordCount:  4,
		ChurnedCount: 3,
		OverallRate:  75,
		Top:          []processor.FeatureChurnStat{{Feature: "Fiber", Subscribers: 4, Churned: 3, ChurnRate: 75}},
	}
}

func newTestRobot(url, secret string) *DingTalkRobot {
	r := NewDingTalkRobot(url, secret)
	r.RetryInterval = time.Millisecond
	r.now = func() time.Time { return time.UnixMilli(1760000000000) }
	return r
}

func TestPushSignsAndSendsMarkdown(t *testing.T) {
	var got map[string]interface{}
	var query map[string][]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		query = r.URL.Query()
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"errcode":0,"errmsg":"ok"}`))
	}))
	defer srv.Close()

	robot := newTestRobot(srv.URL+"/robot/send?access_token=abc", "SECxyz")
	require.NoError(t, robot.Push(context.Background(), testReport()))

	assert.Equal(t, []string{"abc"}, query["access_token"])
	assert.Equal(t, []string{"1760000000000"}, query["timestamp"])
	assert.Equal(t, []string{sign("1760000000000", "SECxyz")}, query["sign"])

	assert.Equal(t, "markdown", got["msgtype"])
	md := got["markdown"].(map[string]interface{})
	assert.Equal(t, MarkdownTitle, md["title"])
	assert.Contains(t, md["text"], "Fiber 75.00%")
}

func TestPushWithoutSecret(t *testing.T) {
	var rawQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rawQuery = r.URL.RawQuery
		_, _ = w.Write([]byte(`{"errcode":0}`))
	}))
	defer srv.Close()

	require.NoError(t, newTestRobot(srv.URL, "").Push(context.Background(), testReport()))
	assert.Empty(t, rawQuery)
}

func TestPushRetriesOnErrCode(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			_, _ = w.Write([]byte(`{"errcode":130101,"errmsg":"send too fast"}`))
			return
		}
		_, _ = w.Write([]byte(`{"errcode":0}`))
	}))
	defer srv.Close()

	require.NoError(t, newTestRobot(srv.URL, "").Push(context.Background(), testReport()))
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestPushGivesUp(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		_, _ = w.Write([]byte(`{"errcode":310000,"errmsg":"sign not match"}`))
	}))
	defer srv.Close()

	err := newTestRobot(srv.URL, "bad").Push(context.Background(), testReport())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sign not match")
	assert.Equal(t, int32(RETRY_TIMES), atomic.LoadInt32(&calls))
}

func TestSignKnownValue(t *testing.T) {
	assert.Equal(t, "3KZIhMzb3vx2uIxYqE3AoV0z65ctlCr2gwV1u5ipMJo=", sign("1", "SEC"))
	assert.NotEqual(t, sign("1", "SEC"), sign("2", "SEC"))
}
