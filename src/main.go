package main

import (
	"ChurnInsight/src/config"
	"ChurnInsight/src/datapush"
	"ChurnInsight/src/datasource/email"
	"ChurnInsight/src/datasource/file"
	"ChurnInsight/src/processor"
	"ChurnInsight/src/storage"
	"ChurnInsight/src/web"
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/go-gota/gota/dataframe"
	"github.com/robfig/cron"
)

const pidFile = "churninsight.pid"

// service 串联数据源、分析、导出与推送
type service struct {
	cfg      *config.Config
	dcfg     *config.DataConfig
	logger   *storage.Logger
	analyzer *processor.ChurnAnalyzer
	store    *storage.ReportStore

	mailClient email.MailService
	handler    *email.AttachmentHandler
	dfw        *email.DataFrameWrapper

	robot      *datapush.DingTalkRobot // 未配置webhook时为nil
	sendReport func(*config.Config, *processor.Report, string) error

	mu sync.Mutex // 同一时刻只运行一次分析
}

func newService(cfg *config.Config, dcfg *config.DataConfig, logger *storage.Logger) *service {
	s := &service{
		cfg:      cfg,
		dcfg:     dcfg,
		logger:   logger,
		analyzer: processor.NewChurnAnalyzer(dcfg, cfg.TopK),
		store:    &storage.ReportStore{},
		handler:  email.NewAttachmentHandler(cfg.Email.TargetSubject, cfg.DataDir),
		dfw:      &email.DataFrameWrapper{},
	}

	if cfg.Source == config.SourceEmail {
		s.mailClient = email.NewEmailClient(cfg.Email.Server, cfg.Email.Username, cfg.Email.Password, logger)
	}
	if cfg.DingTalk.Webhook != "" {
		s.robot = datapush.NewDingTalkRobot(cfg.DingTalk.Webhook, cfg.DingTalk.Secret)
	}
	if cfg.SendEmail.Server != "" && len(cfg.SendEmail.To) > 0 {
		s.sendReport = email.SendReport
	}
	return s
}

// loadDataset 返回最新数据集，changed=false 表示数据没有更新
func (s *service) loadDataset() (dataframe.DataFrame, bool, error) {
	if s.cfg.Source != config.SourceEmail {
		df, err := file.ReadDataset(s.cfg.DatasetPath, s.cfg.SheetName)
		return df, err == nil, err
	}

	newEmail, err := email.CheckAndProcessEmails(s.mailClient, s.cfg.Email.TargetSubject, s.logger)
	if err != nil {
		return dataframe.New(), false, fmt.Errorf("检查处理邮件失败: %w", err)
	}
	if newEmail == nil {
		return dataframe.New(), false, nil
	}

	// 附件另存一份，便于追溯
	if err := s.handler.Handle(newEmail, s.logger); err != nil {
		s.logger.Error(fmt.Sprintf("处理邮件失败(UID:%d): %v", newEmail.UID, err))
	}

	changed, err := s.dfw.LoadFromEmail(newEmail, s.cfg.SheetName)
	if err != nil {
		return dataframe.New(), false, err
	}
	return s.dfw.GetDF(), changed, nil
}

// runAnalysis 执行一次完整的分析流程
func (s *service) runAnalysis(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t1 := time.Now()
	df, changed, err := s.loadDataset()
	if err != nil {
		return err
	}
	if !changed {
		s.logger.Info("数据未更新，跳过分析")
		return nil
	}

	report, err := s.analyzer.AnalyzeFrame(df)
	if err != nil {
		return fmt.Errorf("分析失败: %w", err)
	}

	exportPath, err := processor.ExportReport(report, s.cfg.DataDir)
	if err != nil {
		s.logger.Error("导出报表失败: " + err.Error())
		exportPath = ""
	}
	s.store.Set(report, exportPath)

	s.logger.LogFields(storage.INFO, "分析完成", map[string]interface{}{
		"records":  report.RecordCount,
		"churned":  report.ChurnedCount,
		"rate":     fmt.Sprintf("%.2f", report.OverallRate),
		"export":   exportPath,
		"duration": time.Since(t1).String(),
	})

	s.publish(ctx, report, exportPath)
	return nil
}

// publish 推送失败只记录日志，不影响本次分析结果
func (s *service) publish(ctx context.Context, report *processor.Report, exportPath string) {
	if s.robot != nil {
		if err := s.robot.Push(ctx, report); err != nil {
			s.logger.Error("钉钉推送失败: " + err.Error())
		}
	}
	if s.sendReport != nil {
		if err := s.sendReport(s.cfg, report, exportPath); err != nil {
			s.logger.Error(err.Error())
		} else {
			s.logger.Info("报表邮件已发送")
		}
	}
}

// schedule 返回定时任务的 cron 表达式
func schedule(cfg *config.Config) string {
	interval := time.Duration(cfg.Interval)
	if cfg.Source == config.SourceEmail && cfg.Email.CheckInterval > 0 {
		interval = time.Duration(cfg.Email.CheckInterval)
	}
	return fmt.Sprintf("@every %s", interval)
}

func main() {
	jsonFolder := "./config"
	jsonFile := "config.json"
	dataJsonFile := "dataconfig.json"
	cfg, dcfg, err := config.LoadConfig(jsonFolder, jsonFile, dataJsonFile)
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	// 初始化日志系统
	logger, err := storage.NewLogger(cfg.LogName)
	if err != nil {
		log.Fatal("Failed to initialize logger:", err)
	}

	if err := writePID(cfg.DataDir); err != nil {
		logger.Warning("写入pid文件失败: " + err.Error())
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	svc := newService(cfg, dcfg, logger)
	if err := svc.runAnalysis(ctx); err != nil {
		logger.Error("首次分析失败: " + err.Error())
	}

	// 设置定时任务
	c := cron.New()
	cronSpec := schedule(cfg)
	err = c.AddFunc(cronSpec, func() {
		logger.Info(fmt.Sprintf("开始定时分析(%s)...", cronSpec))
		if err := svc.runAnalysis(ctx); err != nil {
			logger.Error("定时分析失败: " + err.Error())
		}
		if err := logger.CheckRotate(cfg); err != nil {
			logger.Error("日志轮转失败: " + err.Error())
		}
	})
	if err != nil {
		logger.Error("创建定时任务失败: " + err.Error())
		return
	}
	c.Start()
	defer c.Stop()

	if cfg.Source == config.SourceFile {
		go watchDataset(ctx, svc)
	}

	var srv *http.Server
	if cfg.WebAddr != "" {
		srv = startWebUI(cfg.WebAddr, svc.store, logger)
	}

	logger.Info(fmt.Sprintf("流失分析服务已启动(%s)，按Ctrl+C退出", cronSpec))
	waitForShutdown(logger, cfg.LogName)

	cancel()
	if srv != nil {
		shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
		defer done()
		_ = srv.Shutdown(shutdownCtx)
	}
	logger.Info("服务已停止")
	logger.Close()
}

// watchDataset 数据集文件更新后立即重新分析
func watchDataset(ctx context.Context, svc *service) {
	monitor, err := file.NewFileMonitor(svc.cfg.DatasetPath)
	if err != nil {
		svc.logger.Error("文件监控启动失败: " + err.Error())
		return
	}
	defer monitor.Close()

	err = monitor.Watch(ctx, func(path string) {
		svc.logger.Info("数据集已更新: " + path)
		if err := svc.runAnalysis(ctx); err != nil {
			svc.logger.Error("分析失败: " + err.Error())
		}
	})
	if err != nil {
		svc.logger.Error("文件监控出错: " + err.Error())
	}
}

// startWebUI 启动报表查询与实时日志服务
func startWebUI(addr string, store *storage.ReportStore, logger *storage.Logger) *http.Server {
	srv := &http.Server{
		Addr:    addr,
		Handler: web.NewMux(store, logger),
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Web服务异常退出: " + err.Error())
		}
	}()
	return srv
}

// waitForShutdown 阻塞到收到退出信号，SIGHUP 只重新打开日志文件
func waitForShutdown(logger *storage.Logger, logName string) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	defer signal.Stop(sigChan)

	for sig := range sigChan {
		if sig == syscall.SIGHUP {
			if err := logger.Reopen(logName); err != nil {
				log.Println("重新打开日志失败:", err)
				continue
			}
			logger.Info("日志文件已重新打开")
			continue
		}
		logger.Info("Received signal: " + sig.String() + ", shutting down...")
		return
	}
}

func writePID(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, pidFile), []byte(strconv.Itoa(os.Getpid())), 0644)
}
