package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/shashank-upadhya/notes/internal/api/auth"
	"github.com/shashank-upadhya/notes/internal/api/middleware"
	"github.com/shashank-upadhya/notes/internal/config"
	"github.com/shashank-upadhya/notes/internal/model"
	"github.com/shashank-upadhya/notes/internal/pkg/metrics"
	"github.com/shashank-upadhya/notes/internal/pkg/notify"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"
)

// Server 封装了 API 服务所需的依赖和路由处理。
//
// 它持有数据库连接、认证 Handler 以及 Gin 路由引擎。
type Server struct {
	cfg       *config.Config
	logger    *slog.Logger
	db        *gorm.DB
	router    *gin.Engine
	auth      *auth.Handler
	userStore auth.UserStore
	noteStore NoteStore
}

// NoteStore 定义笔记存储操作。
type NoteStore interface {
	ListByUser(ctx context.Context, userID uint) ([]model.Note, error)
	Create(ctx context.Context, note *model.Note) error
	FindByID(ctx context.Context, id uint) (*model.Note, error)
	Delete(ctx context.Context, id uint) error
}

type dbNoteStore struct {
	db *gorm.DB
}

func (s dbNoteStore) ListByUser(ctx context.Context, userID uint) ([]model.Note, error) {
	notes := []model.Note{}
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&notes).Error
	return notes, err
}

func (s dbNoteStore) Create(ctx context.Context, note *model.Note) error {
	return s.db.WithContext(ctx).Create(note).Error
}

func (s dbNoteStore) FindByID(ctx context.Context, id uint) (*model.Note, error) {
	var note model.Note
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&note).Error; err != nil {
		return nil, err
	}
	return &note, nil
}

func (s dbNoteStore) Delete(ctx context.Context, id uint) error {
	return s.db.WithContext(ctx).Delete(&model.Note{}, id).Error
}

// NewServer 初始化 API 服务器。
//
// 它负责：
// 1. 校验签名密钥（缺失时拒绝启动）
// 2. 连接 MySQL 数据库并执行自动迁移
// 3. 初始化邮件通知器与 Google 校验器
// 4. 初始化 Gin 路由引擎
//
// 参数:
//
//	ctx: 上下文
//	cfg: 配置对象
//	logger: 日志记录器
//
// 返回值:
//
//	*Server: 初始化完成的服务器实例
//	error: 初始化失败返回错误
func NewServer(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Server, error) {
	if cfg.Security.JWTSecret == "" {
		return nil, fmt.Errorf("jwt secret is not configured")
	}

	db, err := gorm.Open(mysql.Open(cfg.MySQL.DSN), &gorm.Config{
		Logger: gormLogger.Default.LogMode(gormLogger.Silent), // 关闭 GORM 调试日志
	})
	if err != nil {
		return nil, err
	}
	if err := db.WithContext(ctx).AutoMigrate(&model.User{}, &model.Note{}); err != nil {
		return nil, err
	}

	emailNotifier := notify.NewEmailNotifier(&cfg.Email, logger)
	verifier := auth.NewGoogleVerifier(cfg.Google.ClientID)
	if verifier == nil && logger != nil {
		logger.Warn("google client id not configured, google login disabled")
	}

	metrics.InitMetrics()

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger(logger))
	r.Use(middleware.CORS(cfg.App.FrontendOrigin))

	userStore := auth.NewUserStore(db)
	s := &Server{
		cfg:       cfg,
		logger:    logger,
		db:        db,
		router:    r,
		auth:      auth.NewHandler(userStore, emailNotifier, verifier, cfg.Security.JWTSecret, cfg.App.TokenTTL, cfg.App.OtpTTL, logger),
		userStore: userStore,
		noteStore: dbNoteStore{db: db},
	}
	s.registerRoutes()
	return s, nil
}

// Router 返回 HTTP 路由处理器。
func (s *Server) Router() http.Handler {
	return s.router
}

// Close 关闭数据库连接。
func (s *Server) Close() error {
	if s.db == nil {
		return nil
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// registerRoutes 注册所有的 API 路由。
func (s *Server) registerRoutes() {
	s.router.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, "API is running...")
	})

	// Prometheus metrics 端点
	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	s.router.GET("/healthz", s.handleHealthz)

	authGroup := s.router.Group("/api/auth")
	authGroup.POST("/signup", s.auth.Signup)
	authGroup.POST("/verify-otp", s.auth.VerifyOtp)
	authGroup.POST("/login", s.auth.Login)
	authGroup.POST("/google", s.auth.GoogleLogin)
	authGroup.POST("/generate-login-otp", s.auth.GenerateLoginOtp)
	authGroup.POST("/login-with-otp", s.auth.LoginWithOtp)

	notes := s.router.Group("/api/notes")
	notes.Use(middleware.AuthMiddleware(s.cfg.Security.JWTSecret, s.userStore))
	notes.GET("", s.handleListNotes)
	notes.POST("", s.handleCreateNote)
	notes.DELETE("/:id", s.handleDeleteNote)
}

func (s *Server) handleHealthz(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	if s.db == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "error"})
		return
	}

	var one int
	if err := s.db.WithContext(ctx).Raw("SELECT 1").Scan(&one).Error; err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// createNoteRequest 创建笔记的请求参数。
//
// 标题与正文都要求非空，服务端是唯一的校验来源。
type createNoteRequest struct {
	Title   string `json:"title" binding:"required"`
	Content string `json:"content" binding:"required"`
}

type noteResponse struct {
	ID        uint      `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	UserID    uint      `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func toNoteResponse(n *model.Note) noteResponse {
	return noteResponse{
		ID:        n.ID,
		Title:     n.Title,
		Content:   n.Content,
		UserID:    n.UserID,
		CreatedAt: n.CreatedAt,
		UpdatedAt: n.UpdatedAt,
	}
}

func fail(c *gin.Context, status int, code, message string) {
	c.JSON(status, gin.H{"message": message, "code": code})
}

// handleListNotes 返回当前用户的笔记列表，按创建时间倒序。
//
// GET /api/notes
func (s *Server) handleListNotes(c *gin.Context) {
	userID := middleware.UserID(c)

	notes, err := s.noteStore.ListByUser(c.Request.Context(), userID)
	if err != nil {
		s.logger.Error("list notes failed", slog.String("error", err.Error()))
		fail(c, http.StatusInternalServerError, "server_error", "Server error.")
		return
	}

	out := make([]noteResponse, 0, len(notes)) // 保证空列表序列化为 [] 而不是 null
	for i := range notes {
		out = append(out, toNoteResponse(&notes[i]))
	}
	c.JSON(http.StatusOK, out)
}

// handleCreateNote 为当前用户创建笔记。
//
// POST /api/notes
func (s *Server) handleCreateNote(c *gin.Context) {
	var req createNoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "validation_error", err.Error())
		return
	}
	userID := middleware.UserID(c)

	note := model.Note{
		UserID:  userID,
		Title:   req.Title,
		Content: req.Content,
	}
	if err := s.noteStore.Create(c.Request.Context(), &note); err != nil {
		s.logger.Error("create note failed", slog.String("error", err.Error()))
		fail(c, http.StatusInternalServerError, "server_error", "Server error.")
		return
	}

	metrics.NoteCreatedTotal.Inc()
	c.JSON(http.StatusCreated, toNoteResponse(&note))
}

// handleDeleteNote 删除当前用户的笔记。
//
// DELETE /api/notes/:id
//
// 笔记不存在返回 404；属于其他用户返回 401。
func (s *Server) handleDeleteNote(c *gin.Context) {
	noteID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		fail(c, http.StatusNotFound, "not_found", "Note not found.")
		return
	}
	userID := middleware.UserID(c)

	note, err := s.noteStore.FindByID(c.Request.Context(), uint(noteID))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			fail(c, http.StatusNotFound, "not_found", "Note not found.")
			return
		}
		s.logger.Error("load note failed", slog.String("error", err.Error()))
		fail(c, http.StatusInternalServerError, "server_error", "Server error.")
		return
	}

	if note.UserID != userID {
		fail(c, http.StatusUnauthorized, "unauthorized", "User not authorized to delete this note.")
		return
	}

	if err := s.noteStore.Delete(c.Request.Context(), note.ID); err != nil {
		s.logger.Error("delete note failed", slog.String("error", err.Error()))
		fail(c, http.StatusInternalServerError, "server_error", "Server error.")
		return
	}

	metrics.NoteDeletedTotal.Inc()
	c.JSON(http.StatusOK, gin.H{"message": "Note removed successfully."})
}
