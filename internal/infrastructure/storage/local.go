// Package storage 保存渲染后的 PDF 文件
package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	apperrors "z-book-ai-api/pkg/errors"
	"z-book-ai-api/pkg/logger"
	"z-book-ai-api/pkg/metrics"
)

// Locator 已保存文件的位置
type Locator struct {
	Folder   string `json:"folder"`
	Filename string `json:"filename"`
}

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9._-]`)

// LocalStore 本地目录存储
type LocalStore struct {
	dir string
	now func() time.Time
}

// NewLocalStore 创建本地存储
func NewLocalStore(dir string) *LocalStore {
	if dir == "" {
		dir = "saved_pdfs"
	}
	return &LocalStore{dir: dir, now: time.Now}
}

// Dir 存储目录
func (s *LocalStore) Dir() string {
	return s.dir
}

// FileName 生成 {ip}_{YYYYMMDD_HHMMSS}_{8 位随机}.pdf
func (s *LocalStore) FileName(clientIP string) string {
	ip := unsafeChars.ReplaceAllString(clientIP, "_")
	if ip == "" {
		ip = "unknown"
	}
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return fmt.Sprintf("%s_%s_%s.pdf", ip, s.now().Format("20060102_150405"), suffix)
}

// Save 写入文件，目录不存在时创建
func (s *LocalStore) Save(ctx context.Context, clientIP string, data []byte) (Locator, error) {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return Locator{}, storageError(err, "create storage directory")
	}

	name := s.FileName(clientIP)
	path := filepath.Join(s.dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return Locator{}, storageError(err, "write file")
	}

	metrics.PDFStoredBytes.Add(float64(len(data)))
	logger.Info(ctx, "pdf stored", "file", name, "bytes", len(data))
	return Locator{Folder: s.dir, Filename: name}, nil
}

// storageError 响应消息为原始 OS 错误，op 放进 Detail
func storageError(err error, op string) error {
	return apperrors.Wrap(err, apperrors.CodeStorageError, err.Error()).WithDetail(op)
}

// Open 按文件名解析存储内的路径
// 文件名不得包含路径分隔符或指向目录外
func (s *LocalStore) Open(name string) (string, error) {
	if name == "" || name != filepath.Base(name) || strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return "", apperrors.ErrFileNotFound
	}

	path := filepath.Join(s.dir, name)
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", apperrors.ErrFileNotFound
		}
		return "", storageError(err, "stat file")
	}
	if info.IsDir() {
		return "", apperrors.ErrFileNotFound
	}
	return path, nil
}

// Writable 检查存储目录可写
func (s *LocalStore) Writable() error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return err
	}
	f, err := os.CreateTemp(s.dir, ".probe-*")
	if err != nil {
		return err
	}
	name := f.Name()
	_ = f.Close()
	return os.Remove(name)
}
