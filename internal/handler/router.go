package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/ozxoz/chatapi/internal/middleware"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	HealthChecker     HealthChecker
	TokenVerifier     middleware.TokenVerifier
	CORSAllowedOrigin string
	Logger            *slog.Logger              // nilの場合はslog.Default()
	RequestRecorder   middleware.RequestRecorder // nilの場合はメトリクスを記録しない
	MetricsHandler    http.Handler               // nilの場合は/metricsを公開しない

	// 認証
	AuthService AuthServiceInterface

	// ユーザー
	UserService UserServiceInterface

	// 会話
	ConversationService ConversationServiceInterface

	// ブロック
	BlockService BlockServiceInterface

	// ファイル（nilの場合は/fileを公開しない）
	AttachmentService AttachmentServiceInterface
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → SecurityHeaders → CORS → Logging → Metrics
//
// 書き込み系のルートにはTokenMiddlewareを追加する。
// 読み取り系のルートは認証を要求しない。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r.Use(middleware.NewRecoveryMiddleware(logger))
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	r.Use(middleware.NewLoggingMiddleware(logger))
	if deps.RequestRecorder != nil {
		r.Use(middleware.NewMetricsMiddleware(deps.RequestRecorder))
	}

	authHandler := NewAuthHandler(deps.AuthService)
	userHandler := NewUserHandler(deps.UserService)
	convHandler := NewConversationHandler(deps.ConversationService)
	blockHandler := NewBlockHandler(deps.BlockService)
	requireToken := middleware.NewTokenMiddleware(deps.TokenVerifier)

	// --- 運用系 ---
	r.Get("/health", NewHealthHandler(deps.HealthChecker))
	if deps.MetricsHandler != nil {
		r.Handle("/metrics", deps.MetricsHandler)
	}

	// --- 認証・ユーザー・会話 ---
	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", authHandler.Register)
		r.Post("/login", authHandler.Login)

		r.Get("/users", userHandler.SearchUsers)
		r.Get("/user", userHandler.GetUser)

		r.Get("/conversations", convHandler.ListConversations)
		r.Get("/all_conversations", convHandler.ListAllConversations)
		r.Get("/messages", convHandler.ListMessagesBetween)
		r.Get("/chat/messages/{chatId}", convHandler.ListRoomMessages)
		r.With(requireToken).Post("/chat/messages", convHandler.SendMessage)
	})

	// --- ブロック ---
	r.Route("/block", func(r chi.Router) {
		r.Get("/is-blocked", blockHandler.ListBlocked)

		r.Group(func(r chi.Router) {
			r.Use(requireToken)
			r.Post("/", blockHandler.Block)
			r.Post("/unblock", blockHandler.Unblock)
		})
	})

	// --- ファイル ---
	if deps.AttachmentService != nil {
		fileHandler := NewFileHandler(deps.AttachmentService)
		r.Route("/file", func(r chi.Router) {
			r.Use(requireToken)
			r.Post("/upload-avatar", fileHandler.UploadAvatar)
			r.Post("/upload", fileHandler.UploadFile)
		})
	}

	return r
}
