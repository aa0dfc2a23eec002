package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"socialnet/internal/config"
	"socialnet/internal/handlers/apiserver"
	appKafka "socialnet/internal/kafka"
	kafkahandlers "socialnet/internal/kafka/handlers"
	"socialnet/internal/middleware"
	appRedis "socialnet/internal/redis"
	"socialnet/internal/services"
	"socialnet/internal/storage"
	appWebsocket "socialnet/internal/websocket"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	redisDriver "github.com/redis/go-redis/v9"
)

func main() {
	// 1. 加载配置
	cfg, err := config.LoadConfig("")
	if err != nil {
		log.Fatalf("无法加载配置: %v", err)
	}
	log.Println("API 服务器配置加载成功。")

	// 2. 初始化数据库连接
	db, err := storage.InitDB(cfg.Database)
	if err != nil {
		log.Fatalf("无法初始化数据库: %v", err)
	}
	log.Println("API 服务器数据库连接成功。")

	// (可选) 表结构迁移
	if err := storage.AutoMigrateTables(db); err != nil {
		log.Printf("警告：API 服务器数据库表迁移可能失败: %v", err)
	} else {
		log.Println("API 服务器数据库表迁移成功 (如果执行)。")
	}

	// 3. 初始化 Redis Client
	redisClient := redisDriver.NewClient(&redisDriver.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if _, err := redisClient.Ping(context.Background()).Result(); err != nil {
		log.Fatalf("无法连接到 Redis: %v", err)
	}
	log.Println("成功连接到 Redis")

	// 4. 初始化 TokenBlacklist 服务
	tokenBlacklistService := appRedis.NewRedisTokenBlacklist(redisClient)

	// 5. 初始化 Repositories 和事务管理器
	userRepo := storage.NewGormUserRepository(db)
	friendReqRepo := storage.NewGormFriendRequestRepository(db)
	friendshipRepo := storage.NewGormFriendshipRepository(db)
	notificationRepo := storage.NewGormNotificationRepository(db)
	txManager := storage.NewGormTxManager(db)

	// 6. 初始化 Kafka Producer (好友事件在事务提交后发布)
	kfkProducer, err := appKafka.NewConfluentKafkaProducer(cfg.Kafka)
	if err != nil {
		log.Fatalf("无法创建 Kafka 生产者: %v", err)
	}
	defer kfkProducer.Close()
	log.Println("Kafka 生产者初始化成功 (API Server)。")

	// 7. 初始化 Services
	authService := services.NewAuthService(userRepo, tokenBlacklistService, cfg.Auth)
	userService := services.NewUserService(userRepo)
	friendService := services.NewFriendService(userRepo, friendReqRepo, friendshipRepo, txManager, kfkProducer, cfg.Kafka)
	recommendationService := services.NewRecommendationService(userRepo, friendReqRepo, friendshipRepo)
	notificationService := services.NewNotificationService(notificationRepo, userRepo)

	// 7.1 初始化存储服务 (头像上传)
	var storageService storage.FileStorageService
	storageBaseURL := "/uploads" // Base URL for accessing uploaded files
	if cfg.Storage.Type == "local" {
		storageService, err = storage.NewLocalStorageService(cfg.Storage, storageBaseURL)
		if err != nil {
			log.Fatalf("无法初始化本地存储服务: %v", err)
		}
		log.Println("本地存储服务初始化成功。")
	} else {
		log.Fatalf("不支持的存储类型: %s", cfg.Storage.Type)
	}

	// 7.2 初始化 WebSocket Hub (通知推送)
	hub := appWebsocket.NewHub()
	go hub.Run()

	// 8. 初始化 Handlers
	authHandler := apiserver.NewAuthHandler(authService)
	userHandler := apiserver.NewUserHandler(userService, friendService)
	friendHandler := apiserver.NewFriendHandler(friendService)
	recommendationHandler := apiserver.NewRecommendationHandler(recommendationService)
	notificationHandler := apiserver.NewNotificationHandler(notificationService)
	uploadHandler := apiserver.NewUploadHandler(storageService, cfg.Storage)

	// 9. 设置 HTTP 路由
	r := mux.NewRouter()

	// 9.1 认证路由 (公开)
	authRouter := r.PathPrefix("/auth").Subrouter()
	authRouter.HandleFunc("/register", authHandler.Register).Methods(http.MethodPost)
	authRouter.HandleFunc("/login", authHandler.Login).Methods(http.MethodPost)

	// 创建 AuthMiddleware 实例
	authMW := middleware.AuthMiddleware(cfg.Auth.JWTSecretKey, tokenBlacklistService)
	optionalAuthMW := middleware.OptionalAuthMiddleware(cfg.Auth.JWTSecretKey, tokenBlacklistService)

	// 9.2 API 子路由 (需要认证)
	apiRouter := r.PathPrefix("/api/v1").Subrouter()
	apiRouter.Use(authMW)

	// 登出需要认证来获取 JTI
	apiRouter.HandleFunc("/auth/logout", authHandler.Logout).Methods(http.MethodPost)

	// 用户资料与用户目录路由
	apiRouter.HandleFunc("/users/me", userHandler.GetMe).Methods(http.MethodGet)
	apiRouter.HandleFunc("/users/me", userHandler.UpdateMe).Methods(http.MethodPut)
	apiRouter.HandleFunc("/users/search", userHandler.SearchUsers).Methods(http.MethodGet)
	apiRouter.HandleFunc("/users", userHandler.ListDirectory).Methods(http.MethodGet)

	// 好友关系路由
	apiRouter.HandleFunc("/friends", friendHandler.ListFriendsHandler).Methods(http.MethodGet)
	apiRouter.HandleFunc("/friends/{friendID:[0-9]+}", friendHandler.UnfriendHandler).Methods(http.MethodDelete)

	// 好友请求路由
	friendRequestRouter := apiRouter.PathPrefix("/friend-requests").Subrouter()
	friendRequestRouter.HandleFunc("", friendHandler.SendFriendRequestHandler).Methods(http.MethodPost)
	friendRequestRouter.HandleFunc("/pending", friendHandler.ListPendingRequestsHandler).Methods(http.MethodGet)
	friendRequestRouter.HandleFunc("/outgoing", friendHandler.ListOutgoingRequestsHandler).Methods(http.MethodGet)
	friendRequestRouter.HandleFunc("/{requestID:[0-9]+}/accept", friendHandler.AcceptFriendRequestHandler).Methods(http.MethodPost)
	friendRequestRouter.HandleFunc("/{requestID:[0-9]+}/reject", friendHandler.RejectFriendRequestHandler).Methods(http.MethodPost)
	friendRequestRouter.HandleFunc("/{requestID:[0-9]+}/cancel", friendHandler.CancelFriendRequestHandler).Methods(http.MethodPost)

	// 好友推荐与通知路由
	apiRouter.HandleFunc("/recommendations", recommendationHandler.GetRecommendationsHandler).Methods(http.MethodGet)
	apiRouter.HandleFunc("/notifications", notificationHandler.ListNotificationsHandler).Methods(http.MethodGet)
	apiRouter.HandleFunc("/notifications/{notificationID:[0-9]+}/read", notificationHandler.MarkNotificationReadHandler).Methods(http.MethodPost)

	// 文件上传路由 (头像)
	apiRouter.HandleFunc("/upload", uploadHandler.UploadFileHandler).Methods(http.MethodPost)

	// 通知推送 WebSocket 路由
	apiRouter.HandleFunc("/ws", func(w http.ResponseWriter, req *http.Request) {
		userID, ok := middleware.GetUserIDFromContext(req.Context())
		if !ok {
			http.Error(w, "未认证", http.StatusUnauthorized)
			return
		}
		appWebsocket.ServeWs(hub, userID, w, req, cfg.WebSocket)
	}).Methods(http.MethodGet)

	// 9.3 公开路由 (可匿名访问；携带令牌时附带关系状态)
	publicUserRouter := r.PathPrefix("/users").Subrouter()
	publicUserRouter.Use(optionalAuthMW)
	publicUserRouter.HandleFunc("/{userID:[0-9]+}", userHandler.GetPublicProfile).Methods(http.MethodGet)

	// 9.4 静态文件服务路由 - 用于访问上传的头像
	if cfg.Storage.Type == "local" {
		staticPath := strings.TrimSuffix(storageBaseURL, "/") + "/"
		localDir := http.Dir(cfg.Storage.LocalPath)
		r.PathPrefix(staticPath).Handler(http.StripPrefix(staticPath, http.FileServer(localDir)))
		log.Printf("提供静态文件服务于 %s -> %s", staticPath, cfg.Storage.LocalPath)
	}

	// 10. 初始化并启动 Kafka 消费者 (好友事件 -> 通知)
	friendEventConsumer, err := appKafka.NewConfluentKafkaConsumer(cfg.Kafka)
	if err != nil {
		log.Fatalf("无法创建好友事件 Kafka 消费者: %v", err)
	}
	defer friendEventConsumer.Close()

	consumerLogic := kafkahandlers.NewFriendEventConsumerLogic(notificationService, hub)

	consumerCtx, cancelConsumers := context.WithCancel(context.Background())
	defer cancelConsumers()

	go func() {
		topics := []string{cfg.Kafka.FriendEventsTopic}
		log.Printf("Kafka 好友事件消费者启动，监听 topic: %s, GroupID: %s", cfg.Kafka.FriendEventsTopic, cfg.Kafka.ConsumerGroup)
		err := friendEventConsumer.Consume(consumerCtx, topics, cfg.Kafka.ConsumerGroup, consumerLogic.HandleFriendEvent)
		if err != nil && !errors.Is(err, context.Canceled) {
			log.Printf("Kafka 好友事件消费者错误: %v", err)
		}
		log.Println("Kafka 好友事件消费者 goroutine 已停止。")
	}()

	// 11. 启动 HTTP 服务器并实现优雅关闭
	serverAddr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)

	// 定义 CORS 选项，从配置中读取
	corsOptions := []handlers.CORSOption{
		handlers.AllowedOrigins(cfg.Server.CORS.AllowedOrigins),
		handlers.AllowedMethods(cfg.Server.CORS.AllowedMethods),
		handlers.AllowedHeaders(cfg.Server.CORS.AllowedHeaders),
		handlers.ExposedHeaders(cfg.Server.CORS.ExposedHeaders),
		handlers.MaxAge(cfg.Server.CORS.MaxAge),
	}
	if cfg.Server.CORS.AllowCredentials {
		corsOptions = append(corsOptions, handlers.AllowCredentials())
	}

	// 将主路由器 r 包装在 CORS 中间件中
	corsHandler := handlers.CORS(corsOptions...)(r)

	srv := &http.Server{
		Addr:           serverAddr,
		Handler:        corsHandler,
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		MaxHeaderBytes: cfg.Server.MaxHeaderBytes,
		IdleTimeout:    time.Second * 60,
	}

	go func() {
		log.Printf("API 服务器启动于 %s", serverAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("API 服务器启动失败: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("收到关闭信号，正在关闭 API 服务器...")

	cancelConsumers() // Signal Kafka consumer to stop
	log.Println("正在等待 Kafka 消费者停止...")

	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()

	if err := srv.Shutdown(ctxShutdown); err != nil {
		log.Fatalf("API 服务器强制关闭: %v", err)
	}

	log.Println("API 服务器已成功关闭")
}
