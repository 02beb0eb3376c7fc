package handler

import (
	"context"
	"errors"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/ozxoz/chatapi/internal/attachment"
	"github.com/ozxoz/chatapi/internal/model"
)

// multipartOverhead はmultipartの境界やヘッダーに許容する追加バイト数。
const multipartOverhead = 1 << 20

// AttachmentServiceInterface はファイルハンドラーが必要とするサービスインターフェース。
type AttachmentServiceInterface interface {
	UploadAvatar(ctx context.Context, email string, r io.Reader) (string, error)
	UploadFile(ctx context.Context, filename string, r io.Reader) (*model.Attachment, error)
}

// FileHandler はアバターと添付ファイルのアップロードを扱うHTTPハンドラー。
type FileHandler struct {
	service AttachmentServiceInterface
}

// NewFileHandler はFileHandlerを生成する。
func NewFileHandler(service AttachmentServiceInterface) *FileHandler {
	return &FileHandler{
		service: service,
	}
}

type avatarUploadResponse struct {
	Message string `json:"message"`
	URL     string `json:"url"`
}

type fileUploadResponse struct {
	Message string         `json:"message"`
	File    attachmentBody `json:"file"`
}

// UploadAvatar は認証済みユーザーのアバター画像を保存する。
// POST /file/upload-avatar (multipart: avatar)
func (h *FileHandler) UploadAvatar(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	file, _, ok := formFile(w, r, "avatar", attachment.MaxAvatarBytes)
	if !ok {
		return
	}
	defer file.Close()

	url, err := h.service.UploadAvatar(r.Context(), identity.Email, file)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, avatarUploadResponse{
		Message: "Avatar uploaded successfully",
		URL:     url,
	})
}

// UploadFile はチャットの添付ファイルを保存する。
// 返されたfileをPOST /auth/chat/messagesに渡してメッセージに添付する。
// POST /file/upload (multipart: file)
func (h *FileHandler) UploadFile(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireIdentity(w, r); !ok {
		return
	}

	file, header, ok := formFile(w, r, "file", attachment.MaxFileBytes)
	if !ok {
		return
	}
	defer file.Close()

	att, err := h.service.UploadFile(r.Context(), header.Filename, file)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, fileUploadResponse{
		Message: "File uploaded successfully",
		File:    attachmentBody{Name: att.Name, URL: att.URL, Type: att.Type},
	})
}

// formFile はリクエストボディをlimitで制限してからmultipartのfieldを取り出す。
// 失敗した場合はエラーレスポンスを書き込み、falseを返す。
func formFile(w http.ResponseWriter, r *http.Request, field string, limit int64) (multipart.File, *multipart.FileHeader, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, limit+multipartOverhead)

	file, header, err := r.FormFile(field)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeAPIErrorResponse(w, http.StatusRequestEntityTooLarge, model.NewFileTooLargeError(limit))
			return nil, nil, false
		}
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidFileError("No file uploaded or invalid file type."))
		return nil, nil, false
	}
	// 一時ファイルはハンドラー終了後にnet/httpが削除する
	return file, header, true
}
