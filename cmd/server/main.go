package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"

	"github.com/google/uuid"

	"github.com/rosterhq/huddle/internal/bus"
	"github.com/rosterhq/huddle/internal/config"
	"github.com/rosterhq/huddle/internal/database"
	postgresrepo "github.com/rosterhq/huddle/internal/repository/postgres"
	redisrepo "github.com/rosterhq/huddle/internal/repository/redis"
	"github.com/rosterhq/huddle/internal/service"
	"github.com/rosterhq/huddle/internal/transport/http/handlers"
	"github.com/rosterhq/huddle/internal/transport/http/middleware"
	"github.com/rosterhq/huddle/internal/transport/ws"
)

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(log)

	cfg, err := config.Load()
	if err != nil {
		log.Error("loading config", "err", err)
		os.Exit(1)
	}

	ctx := context.Background()

	pool, err := database.Connect(ctx, cfg)
	if err != nil {
		log.Error("connecting to postgres", "err", err)
		os.Exit(1)
	}
	defer pool.Close()

	rdb, err := database.ConnectRedis(ctx, cfg)
	if err != nil {
		log.Error("connecting to redis", "err", err)
		os.Exit(1)
	}
	defer rdb.Close()

	eventBus, err := bus.Connect(cfg.NATS.URL, log)
	if err != nil {
		log.Error("connecting to nats", "err", err)
		os.Exit(1)
	}
	defer eventBus.Close()

	// Repositories
	channelRepo := postgresrepo.NewChannelRepo(pool)
	messageRepo := postgresrepo.NewMessageRepo(pool)
	unreadRepo := postgresrepo.NewUnreadRepo(pool)
	profileRepo := postgresrepo.NewProfileRepo(pool)
	alertRepo := postgresrepo.NewAlertRepo(pool)
	typingStore := redisrepo.NewTypingStore(rdb)

	// Services
	channelService := service.NewChannelService(channelRepo, profileRepo, eventBus)
	dmService := service.NewDMService(channelRepo, profileRepo, eventBus)
	messageService := service.NewMessageService(messageRepo, channelRepo, eventBus)
	unreadService := service.NewUnreadService(unreadRepo, channelRepo, alertRepo, eventBus, log)
	typingService := service.NewTypingService(typingStore, log)

	// Invalidation: the aggregator recomputes only the scope named by each
	// event, and resyncs everything after a transport reconnect.
	if _, err := eventBus.SubscribeMessageInserted(bus.QueueGroupAggregator, func(channelID uuid.UUID) {
		unreadService.InvalidateChannel(ctx, channelID)
	}); err != nil {
		log.Error("subscribing to message events", "err", err)
		os.Exit(1)
	}
	if _, err := eventBus.SubscribeMembershipUpdated(bus.QueueGroupAggregator, func(channelID uuid.UUID) {
		unreadService.InvalidateChannel(ctx, channelID)
	}); err != nil {
		log.Error("subscribing to membership events", "err", err)
		os.Exit(1)
	}
	if _, err := eventBus.SubscribeRecipientUpdated(bus.QueueGroupAggregator, func(profileID uuid.UUID) {
		unreadService.InvalidateProfile(ctx, profileID)
	}); err != nil {
		log.Error("subscribing to recipient events", "err", err)
		os.Exit(1)
	}
	eventBus.OnReconnect(func() {
		unreadService.ResyncAll(ctx)
	})

	// WebSocket hub
	hub := ws.NewHub(log)
	go hub.Run()
	if err := ws.Bridge(eventBus, hub); err != nil {
		log.Error("wiring ws bridge", "err", err)
		os.Exit(1)
	}

	// Handlers
	channelHandler := handlers.NewChannelHandler(channelService)
	dmHandler := handlers.NewDMHandler(dmService)
	messageHandler := handlers.NewMessageHandler(messageService)
	unreadHandler := handlers.NewUnreadHandler(unreadService)
	typingHandler := handlers.NewTypingHandler(typingService)

	auth := middleware.Auth(cfg.JWT.Secret)

	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status": "ok"}`))
	})

	// Channels & membership
	mux.Handle("POST /api/v1/channels", auth(http.HandlerFunc(channelHandler.Create)))
	mux.Handle("GET /api/v1/channels", auth(http.HandlerFunc(channelHandler.List)))
	mux.Handle("GET /api/v1/channels/{id}", auth(http.HandlerFunc(channelHandler.Get)))
	mux.Handle("POST /api/v1/channels/{id}/members", auth(http.HandlerFunc(channelHandler.AddMember)))
	mux.Handle("DELETE /api/v1/channels/{id}/members/{uid}", auth(http.HandlerFunc(channelHandler.RemoveMember)))
	mux.Handle("PATCH /api/v1/channels/{id}/members/{uid}", auth(http.HandlerFunc(channelHandler.SetCapabilities)))
	mux.Handle("GET /api/v1/channels/{id}/members", auth(http.HandlerFunc(channelHandler.ListMembers)))

	// Direct messages
	mux.Handle("POST /api/v1/dm", auth(http.HandlerFunc(dmHandler.Resolve)))
	mux.Handle("POST /api/v1/dm/group", auth(http.HandlerFunc(dmHandler.CreateGroup)))

	// Messages
	mux.Handle("POST /api/v1/channels/{id}/messages", auth(http.HandlerFunc(messageHandler.Post)))
	mux.Handle("GET /api/v1/channels/{id}/messages", auth(http.HandlerFunc(messageHandler.List)))
	mux.Handle("GET /api/v1/channels/{id}/messages/moderation", auth(http.HandlerFunc(messageHandler.ListModeration)))
	mux.Handle("DELETE /api/v1/messages/{id}", auth(http.HandlerFunc(messageHandler.Delete)))

	// Unread
	mux.Handle("GET /api/v1/unread", auth(http.HandlerFunc(unreadHandler.Badge)))
	mux.Handle("GET /api/v1/channels/{id}/unread", auth(http.HandlerFunc(unreadHandler.ChannelUnread)))
	mux.Handle("POST /api/v1/channels/{id}/read", auth(http.HandlerFunc(unreadHandler.MarkRead)))

	// Typing
	mux.Handle("POST /api/v1/channels/{id}/typing", auth(http.HandlerFunc(typingHandler.Start)))
	mux.Handle("GET /api/v1/channels/{id}/typing", auth(http.HandlerFunc(typingHandler.Current)))
	mux.Handle("GET /api/v1/typing", auth(http.HandlerFunc(typingHandler.Batch)))

	// Real-time
	mux.HandleFunc("GET /ws", ws.ServeWS(hub, typingService, unreadService, profileRepo, cfg.JWT.Secret, log))

	addr := ":" + cfg.Server.Port
	log.Info("starting server", "addr", addr)
	if err := http.ListenAndServe(addr, middleware.CORS(mux)); err != nil {
		log.Error("server stopped", "err", err)
		os.Exit(1)
	}
}
