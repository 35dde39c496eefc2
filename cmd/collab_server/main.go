package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/IBM/sarama"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/viper"

	"github.com/IshaanShokeen/Collaborative-Canvas/internal/board"
	"github.com/IshaanShokeen/Collaborative-Canvas/internal/cache"
	"github.com/IshaanShokeen/Collaborative-Canvas/internal/events"
	"github.com/IshaanShokeen/Collaborative-Canvas/internal/httpapi/handlers"
	"github.com/IshaanShokeen/Collaborative-Canvas/internal/room"
	"github.com/IshaanShokeen/Collaborative-Canvas/internal/store"
	"github.com/IshaanShokeen/Collaborative-Canvas/internal/ws"
)

type CanvasConfig struct {
	Running struct {
		Port int `mapstructure:"Port"`
	} `mapstructure:"Running"`
	Mysql struct {
		DSN string `mapstructure:"dsn"`
	} `mapstructure:"Mysql"`
	Redis struct {
		Addrs    []string `mapstructure:"addrs"`
		Password string   `mapstructure:"password"`
	} `mapstructure:"Redis"`
	Kafka struct {
		Brokers []string `mapstructure:"brokers"`
		Topic   string   `mapstructure:"topic"`
	} `mapstructure:"Kafka"`
}

func initConfig() (*CanvasConfig, error) {
	cfg := &CanvasConfig{}
	v := viper.New()
	v.SetConfigName("canvasConfig")
	v.SetConfigType("yaml")
	// works whether started from the repo root or from a deploy dir
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
	log.Printf("config: %+v", cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Redis presence mirror: optional, skipped when no addrs configured.
	var mirror cache.PresenceMirror
	if len(cfg.Redis.Addrs) > 0 {
		rdb := redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs:    cfg.Redis.Addrs,
			Password: cfg.Redis.Password,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Fatalf("failed to connect to redis: %v", err)
		}
		defer rdb.Close()
		mirror = cache.NewRedisPresence(rdb)
	}

	// Kafka draw-event publication: optional, skipped when no brokers.
	var dispatcher *events.Dispatcher
	if len(cfg.Kafka.Brokers) > 0 {
		kafkaCfg := sarama.NewConfig()
		// SyncProducer requires Return.Successes
		kafkaCfg.Producer.Return.Successes = true
		kafkaCfg.Producer.RequiredAcks = sarama.WaitForLocal
		producer, err := sarama.NewSyncProducer(cfg.Kafka.Brokers, kafkaCfg)
		if err != nil {
			log.Fatalf("failed to connect kafka: %v", err)
		}
		defer producer.Close()

		dispatcher = events.NewDispatcher(
			producer,
			cfg.Kafka.Topic,
			events.NewSemaphoreControl(),
			events.DispatcherOptions{
				QueueSize:   10_000,
				Workers:     4,
				MaxRetry:    3,
				BaseBackoff: 50 * time.Millisecond,
				MaxBackoff:  1 * time.Second,
			},
		)
	}

	// MySQL snapshot store: optional, skipped when no DSN.
	var snapshots *store.SnapshotStore
	if cfg.Mysql.DSN != "" {
		db, err := store.InitMySQL(cfg.Mysql.DSN)
		if err != nil {
			log.Fatalf("failed to connect to database: %v", err)
		}
		snapshots = store.NewSnapshotStore(db)
	}

	state := board.NewDrawingState()
	registry := room.NewManager()

	hub := ws.NewHub(state, registry, mirror, dispatcher)
	go hub.Run(ctx)

	manager := ws.NewManager(hub)
	snapshotSem := events.NewSemaphoreControl()
	api := handlers.NewSnapshotHandlers(state, hub, snapshots, snapshotSem)

	r := gin.New()
	r.Use(gin.Logger())
	r.Use(gin.Recovery())

	canvas := r.Group("/canvas")
	canvas.GET("/ws", manager.WebSocketConnect)
	canvas.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"message": "ok"})
	})
	canvas.GET("/rooms/:roomID/ops", api.RoomOps)
	canvas.POST("/rooms/:roomID/snapshot", api.SaveSnapshot)
	canvas.GET("/rooms/:roomID/snapshot", api.LatestSnapshot)
	canvas.POST("/rooms/:roomID/ops/:opID/visibility", api.SetVisibility)

	port := cfg.Running.Port
	log.Printf("canvas server listening on :%d", port)
	_ = r.Run(fmt.Sprintf(":%d", port))
}
