package apiserver

import (
	"fmt"
	"log"
	"net/http"
	"strings"

	"socialnet/internal/config"
	"socialnet/internal/storage"
)

const (
	defaultMaxMemory = 32 << 20 // 32 MB default max memory for multipart forms
)

// UploadHandler 封装了头像上传相关的 HTTP 处理器方法。
type UploadHandler struct {
	storageService storage.FileStorageService
	cfg            config.StorageConfig // Storage config for max size check
}

// NewUploadHandler 创建一个新的 UploadHandler 实例。
func NewUploadHandler(storageService storage.FileStorageService, cfg config.StorageConfig) *UploadHandler {
	return &UploadHandler{
		storageService: storageService,
		cfg:            cfg,
	}
}

// UploadFileHandler 处理头像文件上传请求。POST /api/v1/upload
func (h *UploadHandler) UploadFileHandler(w http.ResponseWriter, r *http.Request) {
	// 1. 限制请求体大小
	maxUploadSize := h.cfg.MaxFileSizeMB << 20 // Convert MB to bytes
	if maxUploadSize <= 0 {
		maxUploadSize = defaultMaxMemory
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)

	// 2. 解析 multipart form
	if err := r.ParseMultipartForm(defaultMaxMemory); err != nil {
		if err.Error() == "http: request body too large" {
			msg := fmt.Sprintf("上传文件过大，最大允许 %d MB", maxUploadSize>>20)
			writeJSONError(w, msg, http.StatusRequestEntityTooLarge)
		} else {
			writeJSONError(w, fmt.Sprintf("解析表单失败: %v", err), http.StatusBadRequest)
		}
		return
	}

	// 3. 获取文件。"file" 是表单中文件的 key
	file, handler, err := r.FormFile("file")
	if err != nil {
		if err == http.ErrMissingFile {
			writeJSONError(w, "请求中缺少 'file' 字段", http.StatusBadRequest)
		} else {
			writeJSONError(w, fmt.Sprintf("获取文件失败: %v", err), http.StatusBadRequest)
		}
		return
	}
	defer file.Close()

	// 4. 头像只接受图片类型
	mimeType := handler.Header.Get("Content-Type")
	if !strings.HasPrefix(mimeType, "image/") {
		writeJSONError(w, "头像只支持图片文件", http.StatusBadRequest)
		return
	}
	log.Printf("收到上传文件: 名称=%s, 大小=%d, 类型=%s", handler.Filename, handler.Size, mimeType)

	// 5. 检查文件大小 (MaxBytesReader 针对的是整个请求体)
	if handler.Size > maxUploadSize {
		msg := fmt.Sprintf("上传文件过大，最大允许 %d MB", maxUploadSize>>20)
		writeJSONError(w, msg, http.StatusRequestEntityTooLarge)
		return
	}

	// 6. 调用存储服务上传文件
	fileInfo, err := h.storageService.UploadFile(r.Context(), file, handler.Size, handler.Filename, mimeType)
	if err != nil {
		log.Printf("存储文件失败: %v", err)
		writeJSONError(w, "存储文件失败", http.StatusInternalServerError)
		return
	}

	// 7. 返回成功响应，包含文件信息
	writeJSONResponse(w, http.StatusOK, fileInfo)
}
