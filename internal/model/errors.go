// Package model はドメインモデルを定義する。
package model

import (
	"fmt"
	"strings"
)

// APIError は統一エラーフォーマットを表す。
// クライアントに表示するメッセージと原因カテゴリ、対処方法を含む。
type APIError struct {
	Code     string   // エラーコード
	Message  string   // エラーメッセージ
	Category string   // カテゴリ: auth, validation, chat, file, system
	Action   string   // クライアント向け対処方法
	Fields   []string // バリデーションエラーの対象フィールド（任意）
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	if len(e.Fields) > 0 {
		return fmt.Sprintf("[%s] %s (%s)", e.Code, e.Message, strings.Join(e.Fields, ", "))
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeInvalidRequest         = "INVALID_REQUEST"
	ErrCodeValidationFailed       = "VALIDATION_FAILED"
	ErrCodePasswordMismatch       = "PASSWORD_MISMATCH"
	ErrCodeEmailRequired          = "EMAIL_REQUIRED"
	ErrCodeEmailAlreadyRegistered = "EMAIL_ALREADY_REGISTERED"
	ErrCodeInvalidCredentials     = "INVALID_CREDENTIALS"
	ErrCodeUnauthorized           = "UNAUTHORIZED"
	ErrCodeUserNotFound           = "USER_NOT_FOUND"
	ErrCodeAlreadyBlocked         = "ALREADY_BLOCKED"
	ErrCodeBlocked                = "BLOCKED"
	ErrCodeInvalidFile            = "INVALID_FILE"
	ErrCodeFileTooLarge           = "FILE_TOO_LARGE"
	ErrCodeInternal               = "INTERNAL_ERROR"
)

// NewInvalidRequestError はリクエストボディの解析失敗エラーを生成する。
func NewInvalidRequestError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidRequest,
		Message:  "Invalid request body",
		Category: "validation",
		Action:   "Send a valid JSON body.",
	}
}

// NewRequiredFieldsError は必須項目の欠落エラーを生成する。
// fieldsには欠落しているフィールド名を宣言順に渡す。
func NewRequiredFieldsError(fields ...string) *APIError {
	return &APIError{
		Code:     ErrCodeValidationFailed,
		Message:  "All fields are required",
		Category: "validation",
		Action:   "Fill in every required field.",
		Fields:   fields,
	}
}

// NewPasswordMismatchError はパスワード確認の不一致エラーを生成する。
func NewPasswordMismatchError() *APIError {
	return &APIError{
		Code:     ErrCodePasswordMismatch,
		Message:  "Passwords do not match",
		Category: "validation",
		Action:   "Type the same password twice.",
		Fields:   []string{"rePassword"},
	}
}

// NewPasswordTooLongError はハッシュ化できる長さを超えたパスワードのエラーを生成する。
func NewPasswordTooLongError(maxBytes int) *APIError {
	return &APIError{
		Code:     ErrCodeValidationFailed,
		Message:  fmt.Sprintf("Password must be at most %d bytes", maxBytes),
		Category: "validation",
		Action:   "Choose a shorter password.",
		Fields:   []string{"password"},
	}
}

// NewEmailRequiredError はクエリパラメータemailの欠落エラーを生成する。
func NewEmailRequiredError() *APIError {
	return &APIError{
		Code:     ErrCodeEmailRequired,
		Message:  "Email is required",
		Category: "validation",
		Action:   "Pass the email query parameter.",
		Fields:   []string{"email"},
	}
}

// NewParamRequiredError は必須のクエリパラメータ・フィールドの欠落エラーを生成する。
func NewParamRequiredError(name string) *APIError {
	return &APIError{
		Code:     ErrCodeValidationFailed,
		Message:  fmt.Sprintf("%s is required", name),
		Category: "validation",
		Action:   fmt.Sprintf("Pass the %s parameter.", name),
		Fields:   []string{name},
	}
}

// NewSelfBlockError は自分自身をブロックしようとした場合のエラーを生成する。
func NewSelfBlockError() *APIError {
	return &APIError{
		Code:     ErrCodeValidationFailed,
		Message:  "You cannot block yourself.",
		Category: "chat",
		Action:   "Choose another user.",
		Fields:   []string{"blocked"},
	}
}

// NewEmailAlreadyRegisteredError はメールアドレス重複エラーを生成する。
func NewEmailAlreadyRegisteredError() *APIError {
	return &APIError{
		Code:     ErrCodeEmailAlreadyRegistered,
		Message:  "Email already registered",
		Category: "auth",
		Action:   "Log in or register with another email.",
	}
}

// NewInvalidCredentialsError は認証失敗エラーを生成する。
// ユーザー不在とパスワード不一致を区別しない。
func NewInvalidCredentialsError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidCredentials,
		Message:  "Invalid credentials",
		Category: "auth",
		Action:   "Check your email and password.",
	}
}

// NewUnauthorizedError はアクセストークン欠落・不正エラーを生成する。
func NewUnauthorizedError() *APIError {
	return &APIError{
		Code:     ErrCodeUnauthorized,
		Message:  "Access denied",
		Category: "auth",
		Action:   "Log in and send the access token as a Bearer token.",
	}
}

// NewUserNotFoundError はユーザーが見つからない場合のエラーを生成する。
func NewUserNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeUserNotFound,
		Message:  "User not found",
		Category: "auth",
		Action:   "Check the email address.",
	}
}

// NewAlreadyBlockedError は既にブロック済みの場合のエラーを生成する。
func NewAlreadyBlockedError() *APIError {
	return &APIError{
		Code:     ErrCodeAlreadyBlocked,
		Message:  "User is already blocked.",
		Category: "chat",
		Action:   "Unblock the user first if you want to block again.",
	}
}

// NewYouBlockedError は送信者が受信者をブロックしている場合のエラーを生成する。
func NewYouBlockedError(recipient string) *APIError {
	return &APIError{
		Code:     ErrCodeBlocked,
		Message:  fmt.Sprintf("You have blocked %s. Unblock them to send messages.", recipient),
		Category: "chat",
		Action:   "Unblock the user to continue the conversation.",
	}
}

// NewBlockedByError は受信者から送信者がブロックされている場合のエラーを生成する。
func NewBlockedByError(recipient string) *APIError {
	return &APIError{
		Code:     ErrCodeBlocked,
		Message:  fmt.Sprintf("You are blocked by %s.", recipient),
		Category: "chat",
		Action:   "Messages to this user are not delivered.",
	}
}

// NewInvalidFileError はアップロードファイルの種別・欠落エラーを生成する。
func NewInvalidFileError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidFile,
		Message:  reason,
		Category: "file",
		Action:   "Upload a supported file type.",
	}
}

// NewFileTooLargeError はアップロードサイズ超過エラーを生成する。
func NewFileTooLargeError(limit int64) *APIError {
	return &APIError{
		Code:     ErrCodeFileTooLarge,
		Message:  fmt.Sprintf("File exceeds the %d MB limit", limit>>20),
		Category: "file",
		Action:   "Upload a smaller file.",
	}
}

// NewInternalError は内部エラーの汎用レスポンスを生成する。
// 原因の詳細はログのみに記録し、クライアントには返さない。
func NewInternalError() *APIError {
	return &APIError{
		Code:     ErrCodeInternal,
		Message:  "Internal server error",
		Category: "system",
		Action:   "Try again later.",
	}
}
