package email

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAttachmentHandlerSavesOnce(t *testing.T) {
	logger := newTestLogger(t)
	dir := filepath.Join(t.TempDir(), "data")
	h := NewAttachmentHandler("churn", dir)

	email := &Email{
		UID:     9,
		Subject: "weekly churn export",
		Attachments: []*Attachment{
			{Filename: "readme.txt", Content: []byte("ignore")},
			{Filename: "../telco.csv", Content: []byte("customerID,Churn\n")},
		},
	}

	require.NoError(t, h.Handle(email, logger))
	saved := filepath.Join(dir, "telco.csv")
	data, err := os.ReadFile(saved)
	require.NoError(t, err)
	assert.Equal(t, "customerID,Churn\n", string(data))
	assert.NoFileExists(t, filepath.Join(dir, "readme.txt"))
	assert.True(t, h.isProcessed(9))

	// 同一UID不再覆盖
	require.NoError(t, os.Remove(saved))
	require.NoError(t, h.Handle(email, logger))
	assert.NoFileExists(t, saved)
}

func TestAttachmentHandlerSkipsOtherSubjects(t *testing.T) {
	logger := newTestLogger(t)
	dir := t.TempDir()
	h := NewAttachmentHandler("churn", dir)

	email := &Email{UID: 1, Subject: "lunch", Attachments: []*Attachment{{Filename: "a.csv"}}}
	require.NoError(t, h.Handle(email, logger))
	assert.NoFileExists(t, filepath.Join(dir, "a.csv"))
	assert.False(t, h.isProcessed(1))
}
