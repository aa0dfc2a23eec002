package storage

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"socialnet/internal/config"

	"github.com/google/uuid"
)

// FileInfo 包含上传文件的基本信息和访问路径。
type FileInfo struct {
	URL      string `json:"url"`      // 可公开访问的文件 URL
	Path     string `json:"path"`     // 文件在存储系统中的路径或标识符
	Size     int64  `json:"size"`     // 文件大小 (字节)
	MimeType string `json:"mimeType"` // 文件的 MIME 类型
	FileName string `json:"fileName"` // 原始文件名
}

// FileStorageService 定义了头像文件存储操作的接口。
type FileStorageService interface {
	// UploadFile 将读取器中的内容上传到存储系统，返回文件信息和访问 URL。
	UploadFile(ctx context.Context, reader io.Reader, fileSize int64, fileName string, mimeType string) (*FileInfo, error)
}

// LocalStorageService 实现了 FileStorageService 接口。
type LocalStorageService struct {
	basePath string // 本地存储的基础路径，例如 "./uploads"
	baseURL  string // 用于构建文件访问 URL 的基础 URL，例如 "/uploads"
}

// NewLocalStorageService 创建一个新的 LocalStorageService 实例。
func NewLocalStorageService(cfg config.StorageConfig, baseURL string) (FileStorageService, error) {
	// 确保 basePath 存在
	if err := os.MkdirAll(cfg.LocalPath, 0755); err != nil {
		return nil, fmt.Errorf("创建本地存储目录失败 '%s': %w", cfg.LocalPath, err)
	}
	return &LocalStorageService{
		basePath: cfg.LocalPath,
		baseURL:  baseURL,
	}, nil
}

// UploadFile 将文件保存到本地文件系统。
func (s *LocalStorageService) UploadFile(ctx context.Context, reader io.Reader, fileSize int64, fileName string, mimeType string) (*FileInfo, error) {
	// 生成一个唯一的文件名，保留原始扩展名
	ext := filepath.Ext(fileName)
	if ext == "" {
		// 如果没有扩展名，尝试从 MIME 类型推断
		extensions, _ := mime.ExtensionsByType(mimeType)
		if len(extensions) > 0 {
			ext = extensions[0]
		}
	}
	uniqueFileName := uuid.New().String() + ext

	dstPath := filepath.Join(s.basePath, uniqueFileName)

	dst, err := os.Create(dstPath)
	if err != nil {
		return nil, fmt.Errorf("创建目标文件失败 '%s': %w", dstPath, err)
	}
	defer dst.Close()

	written, err := io.Copy(dst, reader)
	if err != nil {
		// 如果复制出错，尝试删除已创建的文件
		os.Remove(dstPath)
		return nil, fmt.Errorf("写入文件失败: %w", err)
	}
	if written != fileSize {
		os.Remove(dstPath)
		return nil, fmt.Errorf("文件大小不匹配: 预期 %d, 实际写入 %d", fileSize, written)
	}

	fileURL := strings.TrimSuffix(s.baseURL, "/") + "/" + url.PathEscape(uniqueFileName)

	return &FileInfo{
		URL:      fileURL,
		Path:     dstPath,
		Size:     fileSize,
		MimeType: mimeType,
		FileName: fileName,
	}, nil
}
