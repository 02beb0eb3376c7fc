// Package attachment はアバター画像とチャット添付ファイルのアップロードを提供する。
package attachment

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/ozxoz/chatapi/internal/model"
)

// アップロードサイズの上限
const (
	MaxAvatarBytes int64 = 5 << 20
	MaxFileBytes   int64 = 10 << 20
)

// kind は許可するファイル種別の定義。
type kind struct {
	ext      string
	category string // model.Attachment.Type
}

var (
	avatarKinds = map[string]kind{
		"image/jpeg": {".jpg", "image"},
		"image/png":  {".png", "image"},
		"image/gif":  {".gif", "image"},
	}
	fileKinds = map[string]kind{
		"image/jpeg":      {".jpg", "image"},
		"image/png":       {".png", "image"},
		"image/gif":       {".gif", "image"},
		"application/pdf": {".pdf", "pdf"},
	}

	unsafeNameChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)
)

// AvatarOwner はアバターを設定するユーザーの参照と更新を行うインターフェース。
type AvatarOwner interface {
	Profile(ctx context.Context, email string) (*model.UserProfile, error)
	UpdateAvatar(ctx context.Context, email, avatarURL string) error
}

// Service はアップロードのサービス層。
type Service struct {
	store  ObjectStore
	owners AvatarOwner
	newKey func() string
}

// NewService はServiceを生成する。
func NewService(store ObjectStore, owners AvatarOwner) *Service {
	return &Service{
		store:  store,
		owners: owners,
		newKey: func() string { return uuid.NewString() },
	}
}

// UploadAvatar はemailのユーザーのアバター画像を保存し、アバターURLを更新する。
// JPEG/PNG/GIFのみ、5MiBまで受け付ける。種別は内容から判定する。
func (s *Service) UploadAvatar(ctx context.Context, email string, r io.Reader) (string, error) {
	if _, err := s.owners.Profile(ctx, email); err != nil {
		return "", err
	}

	data, err := readLimited(r, MaxAvatarBytes)
	if err != nil {
		return "", err
	}
	contentType, k, err := detect(data, avatarKinds, "Invalid file type. Only JPEG, PNG, and GIF are allowed.")
	if err != nil {
		return "", err
	}

	url, err := s.store.Put(ctx, "avatars/"+s.newKey()+k.ext, contentType, data)
	if err != nil {
		return "", fmt.Errorf("failed to store avatar: %w", err)
	}
	if err := s.owners.UpdateAvatar(ctx, email, url); err != nil {
		return "", err
	}

	slog.Info("avatar uploaded",
		slog.String("email", email),
		slog.Int("bytes", len(data)),
	)
	return url, nil
}

// UploadFile はチャットの添付ファイルを保存する。
// JPEG/PNG/GIF/PDFのみ、10MiBまで受け付ける。
func (s *Service) UploadFile(ctx context.Context, filename string, r io.Reader) (*model.Attachment, error) {
	data, err := readLimited(r, MaxFileBytes)
	if err != nil {
		return nil, err
	}
	contentType, k, err := detect(data, fileKinds, "Invalid file type. Only JPEG, PNG, GIF, and PDFs are allowed.")
	if err != nil {
		return nil, err
	}

	url, err := s.store.Put(ctx, "files/"+s.newKey()+k.ext, contentType, data)
	if err != nil {
		return nil, fmt.Errorf("failed to store file: %w", err)
	}

	return &model.Attachment{
		Name: displayName(filename, k.ext),
		URL:  url,
		Type: k.category,
	}, nil
}

// readLimited はlimitバイトまで読み込む。超過した場合はFILE_TOO_LARGEを返す。
func readLimited(r io.Reader, limit int64) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}
	if int64(len(data)) > limit {
		return nil, model.NewFileTooLargeError(limit)
	}
	if len(data) == 0 {
		return nil, model.NewInvalidFileError("No file uploaded or invalid file type.")
	}
	return data, nil
}

// detect は内容からContent-Typeを判定し、許可された種別かを確認する。
func detect(data []byte, allowed map[string]kind, reason string) (string, kind, error) {
	contentType := http.DetectContentType(data)
	if i := strings.IndexByte(contentType, ';'); i >= 0 {
		contentType = contentType[:i]
	}
	k, ok := allowed[contentType]
	if !ok {
		return "", kind{}, model.NewInvalidFileError(reason)
	}
	return contentType, k, nil
}

// displayName はクライアントが付けたファイル名から表示用の名前を作る。
func displayName(filename, ext string) string {
	name := path.Base(strings.ReplaceAll(filename, `\`, "/"))
	name = unsafeNameChars.ReplaceAllString(name, "-")
	name = strings.Trim(name, "-.")
	if name == "" {
		return "file" + ext
	}
	return name
}
