package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// 数据来源
const (
	SourceFile  = "file"
	SourceEmail = "email"
)

// Config 结构体定义了应用程序的配置结构
type Config struct {
	Source      string `json:"source"`       // 数据来源: file 或 email
	DatasetPath string `json:"dataset_path"` // 本地数据集路径(.csv/.xlsx)
	SheetName   string `json:"sheet_name"`   // xlsx工作表名，为空时取第一个

	Email struct {
		Server        string   `json:"server"`         // 邮件服务器地址
		Username      string   `json:"username"`       // 邮箱用户名
		Password      string   `json:"password"`       // 邮箱密码
		TargetSubject string   `json:"target_subject"` // 需要匹配的邮件主题
		CheckInterval Duration `json:"check_interval"` // 检查新邮件的间隔时间
	} `json:"email"`

	SendEmail struct {
		Server   string   `json:"server"`
		Username string   `json:"username"`
		Password string   `json:"password"`
		To       []string `json:"to"`
		Subject  string   `json:"subject"`
	} `json:"send_email"`

	DingTalk struct {
		Webhook string `json:"webhook"`
		Secret  string `json:"secret"`
	} `json:"dingtalk"`

	// 附件与导出报表目录
	DataDir    string `json:"data_dir"`
	LogName    string `json:"log_name"`
	LogMaxSize string `json:"log_max_size"`
	// 定时分析间隔
	Interval Duration `json:"interval"`
	// 为空时不启动HTTP服务
	WebAddr string `json:"web_addr"`
	TopK    int    `json:"top_k"`
}

// Filter 行过滤条件，Values 之间为"或"关系，多个Filter之间为"且"关系
type Filter struct {
	Column string   `json:"column"`
	Values []string `json:"values"`
}

// 流失口径
const (
	ChurnDefinitionLabel    = "label"    // 标签为正即流失
	ChurnDefinitionInverted = "inverted" // 标签为负即流失
)

// NumericSummary 数值列分组统计
// 设置 Cluster 时先对坐标列做k-means聚类，簇编号写入 GroupColumn 列再分组
type NumericSummary struct {
	GroupColumn string   `json:"group_column"`
	ValueColumn string   `json:"value_column"`
	Cluster     *Cluster `json:"cluster"`
}

// Cluster k-means聚类参数，Seed 固定时结果可复现
type Cluster struct {
	Columns []string `json:"columns"`
	K       int      `json:"k"`
	Seed    int64    `json:"seed"`
}

type DataConfig struct {
	IDColumn        string          `json:"id_column"`
	ChurnColumn     string          `json:"churn_column"`
	ChurnLabels     []string        `json:"churn_labels"` // 视为流失的取值
	Subscribed      string          `json:"subscribed"`
	NotSubscribed   string          `json:"not_subscribed"`
	Features        []string        `json:"features"`
	Segments        []string        `json:"segments"`
	Filters         []Filter        `json:"filters"`
	Summary         *NumericSummary `json:"summary"`
	ChurnDefinition string          `json:"churn_definition"` // label 或 inverted
}

var (
	once               sync.Once
	instance           *Config
	dataConfigInstance *DataConfig
	mu                 sync.RWMutex
)

func LoadConfig(jsonFolder, jsonFile, dataJsonFile string) (*Config, *DataConfig, error) {
	var err error
	once.Do(func() {
		instance, dataConfigInstance, err = loadConfigs(jsonFolder, jsonFile, dataJsonFile)
	})
	return instance, dataConfigInstance, err
}

func loadConfigs(jsonFolder, jsonFile, dataJsonFile string) (*Config, *DataConfig, error) {
	configFile := filepath.Join(jsonFolder, jsonFile)
	dataConfigFile := filepath.Join(jsonFolder, dataJsonFile)

	configData, err := readFile(configFile)
	if err != nil {
		return nil, nil, fmt.Errorf("读取配置文件失败: %w", err)
	}

	dataConfigData, err := readFile(dataConfigFile)
	if err != nil {
		return nil, nil, fmt.Errorf("读取数据配置文件失败: %w", err)
	}

	cfgChan := make(chan *Config, 1)
	dcfgChan := make(chan *DataConfig, 1)
	errChan := make(chan error, 2)

	go parseConfig(configData, cfgChan, errChan)
	go parseDataConfig(dataConfigData, dcfgChan, errChan)

	cfg, dcfg, err := waitForResults(cfgChan, dcfgChan, errChan)
	if err != nil {
		return nil, nil, err
	}

	cfg.applyDefaults()
	dcfg.applyDefaults()
	if err := dcfg.Validate(); err != nil {
		return nil, nil, err
	}

	return cfg, dcfg, nil
}

func readFile(filePath string) ([]byte, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("无法读取文件 %s: %w", filePath, err)
	}
	return data, nil
}

func parseConfig(data []byte, resultChan chan<- *Config, errChan chan<- error) {
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		errChan <- fmt.Errorf("解析Config失败: %w", err)
		return
	}
	resultChan <- &cfg
}

func parseDataConfig(data []byte, resultChan chan<- *DataConfig, errChan chan<- error) {
	var dcfg DataConfig
	if err := json.Unmarshal(data, &dcfg); err != nil {
		errChan <- fmt.Errorf("解析DataConfig失败: %w", err)
		return
	}
	resultChan <- &dcfg
}

func waitForResults(
	cfgChan <-chan *Config,
	dcfgChan <-chan *DataConfig,
	errChan <-chan error,
) (*Config, *DataConfig, error) {
	var (
		cfg    *Config
		dcfg   *DataConfig
		errors []error
	)

	for i := 0; i < 2; i++ {
		select {
		case c := <-cfgChan:
			cfg = c
		case d := <-dcfgChan:
			dcfg = d
		case err := <-errChan:
			errors = append(errors, err)
		}
	}

	if len(errors) > 0 {
		return nil, nil, combineErrors(errors)
	}

	if cfg == nil || dcfg == nil {
		return nil, nil, fmt.Errorf("部分配置未加载成功")
	}

	return cfg, dcfg, nil
}

func combineErrors(errs []error) error {
	if len(errs) == 0 {
		return nil
	}
	if len(errs) == 1 {
		return errs[0]
	}

	msg := "配置加载遇到多个错误:"
	for _, err := range errs {
		msg = fmt.Sprintf("%s\n- %v", msg, err)
	}
	return fmt.Errorf("%s", msg)
}

func (c *Config) applyDefaults() {
	if c.Source == "" {
		c.Source = SourceFile
	}
	if c.LogName == "" {
		c.LogName = "app.log"
	}
	if c.TopK == 0 {
		c.TopK = 5
	}
	if c.Interval == 0 {
		c.Interval = Duration(10 * time.Minute)
	}
	if c.DataDir == "" {
		c.DataDir = "data"
	}
}

func (dc *DataConfig) applyDefaults() {
	if dc.Subscribed == "" {
		dc.Subscribed = "Yes"
	}
	if dc.NotSubscribed == "" {
		dc.NotSubscribed = "No"
	}
	if len(dc.ChurnLabels) == 0 {
		dc.ChurnLabels = []string{"Yes", "1", "True"}
	}
	if dc.Summary != nil && dc.Summary.Cluster != nil && dc.Summary.GroupColumn == "" {
		dc.Summary.GroupColumn = "district"
	}
}

// Validate 检查数据配置是否足以完成流失率计算
func (dc *DataConfig) Validate() error {
	if dc.IDColumn == "" {
		return fmt.Errorf("数据配置缺少 id_column")
	}
	if dc.ChurnColumn == "" {
		return fmt.Errorf("数据配置缺少 churn_column")
	}
	switch dc.ChurnDefinition {
	case ChurnDefinitionLabel, ChurnDefinitionInverted:
	default:
		return fmt.Errorf("churn_definition 须为 %s 或 %s，当前为 %q",
			ChurnDefinitionLabel, ChurnDefinitionInverted, dc.ChurnDefinition)
	}
	if len(dc.Features) == 0 {
		return fmt.Errorf("数据配置至少需要一个 features 列")
	}
	if err := checkDistinct("features", dc.Features); err != nil {
		return err
	}
	if err := checkDistinct("segments", dc.Segments); err != nil {
		return err
	}
	for _, f := range dc.Filters {
		if f.Column == "" || len(f.Values) == 0 {
			return fmt.Errorf("过滤条件不完整: %+v", f)
		}
	}
	if s := dc.Summary; s != nil {
		if s.GroupColumn == "" || s.ValueColumn == "" {
			return fmt.Errorf("summary 需要同时设置 group_column 和 value_column")
		}
		if c := s.Cluster; c != nil && (len(c.Columns) == 0 || c.K <= 0) {
			return fmt.Errorf("cluster 需要至少一个坐标列且 k > 0")
		}
	}
	return nil
}

// checkDistinct 列名不能为空或重复
func checkDistinct(field string, names []string) error {
	seen := make(map[string]bool, len(names))
	for _, n := range names {
		if n == "" {
			return fmt.Errorf("%s 中存在空列名", field)
		}
		if seen[n] {
			return fmt.Errorf("%s 中列 %s 重复", field, n)
		}
		seen[n] = true
	}
	return nil
}

// Duration 是time.Duration的自定义包装类型
// 用于支持JSON序列化和反序列化
type Duration time.Duration

// UnmarshalJSON 实现json.Unmarshaler接口
// 用于从JSON字符串解析Duration
func (d *Duration) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	dur, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(dur)
	return nil
}

// MarshalJSON 实现json.Marshaler接口
// 用于将Duration序列化为JSON字符串
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

func (dc *DataConfig) GetFeatures() []string {
	mu.RLock()
	defer mu.RUnlock()
	return append([]string(nil), dc.Features...)
}

func (dc *DataConfig) SetFeatures(features []string) {
	mu.Lock()
	defer mu.Unlock()
	dc.Features = append([]string(nil), features...)
}

func (dc *DataConfig) GetChurnDefinition() string {
	mu.RLock()
	defer mu.RUnlock()
	return dc.ChurnDefinition
}

func (dc *DataConfig) SetChurnDefinition(def string) {
	mu.Lock()
	defer mu.Unlock()
	dc.ChurnDefinition = def
}
