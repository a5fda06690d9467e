package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/IBM/sarama"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	redis "github.com/redis/go-redis/v9"
	"github.com/spf13/viper"

	"collabcore/config"
	"collabcore/internal/auth"
	"collabcore/internal/cache"
	"collabcore/internal/collab"
	"collabcore/internal/httpapi/handlers"
	"collabcore/internal/httpapi/middleware"
	"collabcore/internal/store"
	"collabcore/internal/ws"
)

func initConfig() (*config.Config, error) {
	cfg := &config.Config{}
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	// 兼容从项目根目录或容器工作目录启动
	v.AddConfigPath("./config")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func main() {
	cfg, err := initConfig()
	if err != nil {
		log.Fatalf("init config failed: %v", err)
	}

	// === MySQL ===
	db, err := store.InitMySQL(cfg.Mysql.DSN)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	docStore, err := store.NewMySQLStore(db)
	if err != nil {
		log.Fatalf("Failed to init document store: %v", err)
	}

	// === Redis ===
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
	})
	if err = rdb.Ping(context.Background()).Err(); err != nil {
		log.Fatalf("Failed to connect to redis: %v", err)
	}
	defer rdb.Close()
	presenceCache := cache.NewRedisPresence(rdb)

	// === Kafka（可选，未配置 broker 时不发审计事件）===
	var events *collab.Dispatcher
	if len(cfg.Kafka.Brokers) > 0 {
		kafkaCfg := sarama.NewConfig()
		// SyncProducer 必须开启 Return.Successes
		kafkaCfg.Producer.Return.Successes = true
		kafkaCfg.Producer.RequiredAcks = sarama.WaitForLocal
		producer, perr := sarama.NewSyncProducer(cfg.Kafka.Brokers, kafkaCfg)
		if perr != nil {
			log.Fatalf("Failed to connect kafka: %v", perr)
		}
		defer producer.Close()

		events = collab.NewDispatcher(producer, cfg.Kafka.Topic,
			collab.NewSemaphore(8),
			collab.DispatcherOptions{
				QueueSize:   10_000,
				Workers:     4,
				MaxRetry:    3,
				BaseBackoff: 50 * time.Millisecond,
				MaxBackoff:  1 * time.Second,
			})
	}

	// === 协作引擎 ===
	registry := collab.NewRegistry(docStore, presenceCache, events, collab.RegistryOptions{
		FlushDebounce: time.Duration(cfg.Collab.FlushDebounceMs) * time.Millisecond,
	})
	manager := ws.NewManager(registry, cfg.Collab.SendQueueSize)

	// 鉴权方式：配了远端地址走 /v1/auth/verify，否则本地验 JWT
	var verifier auth.Verifier
	if cfg.Auth.Path != "" {
		verifier = auth.NewRemoteVerifier(cfg.Auth.Path)
	} else {
		verifier = auth.NewLocalVerifier()
	}

	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())
	r.Use(cors.New(cors.Config{
		AllowOriginFunc:  func(origin string) bool { return true },
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))

	presenceHandler := handlers.NewPresenceHandler(presenceCache)

	group := r.Group("/collab")
	group.Use(middleware.AuthMiddleware(verifier))
	group.GET("/ws", manager.WebSocketConnect)
	group.GET("/presence/:docId", presenceHandler.GetPresence)

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "ok"})
	})

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Running.Port),
		Handler: r,
	}
	go func() {
		if serr := srv.ListenAndServe(); serr != nil && serr != http.ErrServerClosed {
			log.Fatalf("listen failed: %v", serr)
		}
	}()
	log.Printf("collab server listening on :%d", cfg.Running.Port)

	// 退出前先停接流量，再逐房末次落盘
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Printf("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if serr := srv.Shutdown(ctx); serr != nil {
		log.Printf("http shutdown: %v", serr)
	}
	registry.Shutdown(ctx)
	if events != nil {
		// 房间都已销毁，不会再有新事件，清空队列再退出
		events.Close()
	}
	log.Printf("bye")
}
