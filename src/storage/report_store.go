package storage

import (
	"ChurnInsight/src/processor"
	"sync"
)

// ReportStore 保存最近一次分析结果，线程安全
type ReportStore struct {
	mu     sync.RWMutex
	latest *processor.Report
	path   string // 最近一次导出的xlsx
}

func (s *ReportStore) Set(r *processor.Report, exportPath string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.latest = r
	s.path = exportPath
}

// Latest 尚未分析时返回 nil
func (s *ReportStore) Latest() (*processor.Report, string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.latest, s.path
}
