// email_handler.go
package email

import (
	"ChurnInsight/src/datasource/file"
	"ChurnInsight/src/storage"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// ====================== 邮件处理器实现 ======================

// AttachmentHandler 保存数据集附件，每封邮件只处理一次
type AttachmentHandler struct {
	TargetSubject string          // 目标邮件主题关键词
	DataDir       string          // 附件保存目录
	processedUIDs map[uint32]bool // 已处理邮件UID记录
	mu            sync.RWMutex    // 保护processedUIDs的读写锁
}

func NewAttachmentHandler(subject, dataDir string) *AttachmentHandler {
	return &AttachmentHandler{
		TargetSubject: subject,
		DataDir:       dataDir,
		processedUIDs: make(map[uint32]bool),
	}
}

// isProcessed 检查邮件是否已处理过（线程安全）
func (h *AttachmentHandler) isProcessed(uid uint32) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.processedUIDs[uid]
}

// markAsProcessed 标记邮件为已处理（线程安全）
func (h *AttachmentHandler) markAsProcessed(uid uint32) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.processedUIDs[uid] = true
}

// Handle 保存邮件中的数据集附件
func (h *AttachmentHandler) Handle(email *Email, logger *storage.Logger) error {
	if email == nil || h.isProcessed(email.UID) {
		return nil
	}

	if !strings.Contains(email.Subject, h.TargetSubject) {
		logger.Debug(fmt.Sprintf("跳过主题不匹配的邮件: %s", email.Subject))
		return nil
	}

	if err := os.MkdirAll(h.DataDir, 0755); err != nil {
		return fmt.Errorf("创建目录失败: %w", err)
	}

	saved := false
	for _, attachment := range email.Attachments {
		if !file.IsDataset(attachment.Filename) {
			continue
		}

		// 只保留文件名，防止附件名带路径
		filePath := filepath.Join(h.DataDir, filepath.Base(attachment.Filename))
		if err := os.WriteFile(filePath, attachment.Content, 0644); err != nil {
			return fmt.Errorf("保存附件失败: %w", err)
		}

		logger.Info(fmt.Sprintf("附件已保存到: %s", filePath))
		saved = true
	}

	if saved {
		h.markAsProcessed(email.UID)
	}
	return nil
}
