package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"chat-client/internal/config"
	"chat-client/internal/conn"
	"chat-client/internal/controller"
	"chat-client/internal/handlers"
	"chat-client/internal/observability"
	"chat-client/internal/participants"
	"chat-client/internal/rabbitmq"
	"chat-client/internal/rest"
	"chat-client/internal/store"
	"chat-client/internal/telemetry"
	"chat-client/internal/thread"
)

func main() {
	cfg := config.Load()
	ctx := context.Background()

	if cfg.OTLPEndpoint != "" {
		shutdown, err := observability.InitTracing(ctx, cfg.OTLPEndpoint, "chat-client", cfg.Environment)
		if err != nil {
			log.Printf("tracing disabled: %v", err)
		} else {
			defer func() {
				if err := shutdown(context.Background()); err != nil {
					log.Printf("tracing shutdown: %v", err)
				}
			}()
		}
	}

	api := rest.NewClient(cfg.APIBaseURL, cfg.Token)

	account, err := api.CurrentAccount(ctx)
	if err != nil {
		log.Fatalf("failed to authenticate: %v", err)
	}
	log.Printf("session user id=%d name=%s", account.ID, account.Name)

	if cfg.AMQPURL != "" {
		eventPub, err := observability.NewAMQPPublisher(cfg.AMQPURL, "client_events")
		if err != nil {
			log.Printf("event publishing disabled: %v", err)
		} else {
			observability.SetPublisher(eventPub)
			defer eventPub.Close()
		}
	}

	auditPub := rabbitmq.NewPublisher(cfg.AMQPURL, "client_audit")
	defer auditPub.Close()
	log.Printf("audit publisher mode=%s reason=%s", rabbitmq.PublisherMode(auditPub), rabbitmq.PublisherNoopReason(auditPub))
	audit := telemetry.NewAuditEmitter(auditPub, "audit.chat-client", "chat-client", cfg.Environment)

	convs := store.New(api, account.ID)
	th := thread.NewStore()
	people := participants.NewCache(api)

	manager := conn.NewManager(func(conversationID int) string {
		return fmt.Sprintf("%s/api/v1/chat/ws/%d?token=%s", cfg.WSBaseURL, conversationID, url.QueryEscape(cfg.Token))
	})

	ctrl := controller.New(api, convs, th, manager, people, audit, account, cfg.ReconnectDelay)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go ctrl.Run(runCtx)

	if err := ctrl.Bootstrap(ctx); err != nil {
		log.Fatalf("bootstrap failed: %v", err)
	}
	if id := initialConversation(cfg, ctrl); id != 0 {
		if err := ctrl.Open(ctx, id); err != nil {
			log.Printf("could not open conversation %d: %v", id, err)
		}
	}

	clientHandler := handlers.NewClientHandler(ctrl)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware("chat-client"))
	router.Use(observability.HTTPMetricsMiddleware())

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	client := router.Group("/client")
	client.GET("/me", clientHandler.Me)
	client.GET("/status", clientHandler.Status)
	client.GET("/conversations", clientHandler.ListConversations)
	client.POST("/conversations", clientHandler.StartConversation)
	client.POST("/conversations/:conversation_id/open", clientHandler.OpenConversation)
	client.GET("/thread", clientHandler.GetThread)
	client.POST("/messages", clientHandler.PostMessage)
	client.POST("/refresh", clientHandler.Refresh)

	if err := router.Run(cfg.ListenAddr); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

// initialConversation picks what to open on startup: the configured id, or
// the most recently active conversation when none is configured. Zero means
// nothing to open.
func initialConversation(cfg config.Config, ctrl *controller.Controller) int {
	if cfg.InitialConversation != 0 {
		return cfg.InitialConversation
	}
	convs, err := ctrl.Conversations()
	if err != nil || len(convs) == 0 {
		return 0
	}
	return convs[0].ID
}
