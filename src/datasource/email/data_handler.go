// data_handler.go
package email

import (
	"ChurnInsight/src/datasource/file"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"sync"

	"github.com/go-gota/gota/dataframe"
)

// DataFrameWrapper 封装最近一次从邮件附件读取的数据集，线程安全
type DataFrameWrapper struct {
	df     dataframe.DataFrame // 存储DataFrame数据
	digest string              // 附件内容的md5，用于判断是否需要重新分析
	mu     sync.RWMutex        // 读写锁保证线程安全
}

// GetDF 获取当前DataFrame(线程安全)
func (d *DataFrameWrapper) GetDF() dataframe.DataFrame {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.df
}

// SetDF 设置当前DataFrame(线程安全)
func (d *DataFrameWrapper) SetDF(df dataframe.DataFrame) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.df = df
}

// FindDatasetAttachment 返回第一个csv/xlsx附件，没有时返回 nil
func FindDatasetAttachment(email *Email) *Attachment {
	if email == nil {
		return nil
	}
	for _, a := range email.Attachments {
		if a != nil && file.IsDataset(a.Filename) {
			return a
		}
	}
	return nil
}

// LoadFromEmail 读取邮件中的数据集附件。
// 附件内容与上次相同时返回 changed=false，DataFrame 保持不变。
func (d *DataFrameWrapper) LoadFromEmail(email *Email, sheetName string) (changed bool, err error) {
	attachment := FindDatasetAttachment(email)
	if attachment == nil {
		return false, fmt.Errorf("邮件中没有数据集附件")
	}

	sum := md5.Sum(attachment.Content)
	digest := hex.EncodeToString(sum[:])

	d.mu.RLock()
	same := digest == d.digest
	d.mu.RUnlock()
	if same {
		return false, nil
	}

	df, err := file.ReadDatasetBytes(attachment.Filename, attachment.Content, sheetName)
	if err != nil {
		return false, fmt.Errorf("读取附件 %s 失败: %w", attachment.Filename, err)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.df = df
	d.digest = digest
	return true, nil
}
