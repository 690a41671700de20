package main

import (
	"context"
	"log"
	"os"
	"time"

	gfshutdown "github.com/gelmium/graceful-shutdown"
	"github.com/go-monolith/mono"

	"github.com/example/social-realtime-hub/modules/auth"
	"github.com/example/social-realtime-hub/modules/cache"
	"github.com/example/social-realtime-hub/modules/hub"
	"github.com/example/social-realtime-hub/modules/messaging"
	"github.com/example/social-realtime-hub/modules/notify"
	"github.com/example/social-realtime-hub/modules/presence"
	"github.com/example/social-realtime-hub/modules/relay"
	"github.com/example/social-realtime-hub/modules/store"
	"github.com/example/social-realtime-hub/modules/wsserver"
)

const shutdownTimeout = 30 * time.Second

func main() {
	log.Println("=== Social Realtime Hub ===")

	app, err := mono.NewMonoApplication(
		mono.WithShutdownTimeout(shutdownTimeout),
		mono.WithLogLevel(mono.LogLevelInfo),
		mono.WithLogFormat(mono.LogFormatText),
	)
	if err != nil {
		log.Fatalf("Failed to create application: %v", err)
	}

	// Infrastructure modules.
	storeModule := store.NewModule()
	cacheModule := cache.NewModule()

	// Domain modules. Each persists through the shared store and publishes
	// on the event bus after the write lands.
	authModule := auth.NewModule()
	presenceModule := presence.NewModule(storeModule, cacheModule)
	messagingModule := messaging.NewModule(storeModule, cacheModule)
	notifyModule := notify.NewModule(storeModule)
	relayModule := relay.NewModule()

	// Fan-out and transport. The hub consumes every domain event; the
	// server owns the socket lifecycle and drives presence from it.
	hubModule := hub.NewModule()
	serverModule := wsserver.NewModule(hubModule, presenceModule)

	// Registration order matters: the store must be up before the modules
	// that migrate into it, and emitters before their consumers.
	app.Register(storeModule)
	app.Register(cacheModule)
	app.Register(authModule)
	app.Register(presenceModule)
	app.Register(messagingModule)
	app.Register(notifyModule)
	app.Register(relayModule)
	app.Register(hubModule)
	app.Register(serverModule)

	if err := app.Start(context.Background()); err != nil {
		log.Fatalf("Failed to start application: %v", err)
	}

	printStartupInfo()

	wait := gfshutdown.GracefulShutdown(
		context.Background(),
		shutdownTimeout,
		map[string]gfshutdown.Operation{
			"mono-app": func(ctx context.Context) error {
				log.Println("Graceful shutdown initiated...")
				return app.Stop(ctx)
			},
		},
	)

	exitCode := <-wait
	log.Printf("Application exited with code: %d", exitCode)
	os.Exit(exitCode)
}

func printStartupInfo() {
	addr := os.Getenv("LISTEN_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	log.Println("")
	log.Println("Application started successfully!")
	log.Println("")
	log.Printf("WebSocket endpoint (ws://localhost%s/ws):", addr)
	log.Println("  Signals: authenticate, typing, subscribe, unsubscribe, seen")
	log.Println("  Pushes:  message, new_group_message, notification, presence_changed,")
	log.Println("           typing_indicator, topic events")
	log.Println("")
	log.Printf("REST API (http://localhost%s/api/v1):", addr)
	log.Println("  POST   /messages                     - Send a direct message")
	log.Println("  GET    /conversations/:peerID        - Conversation history")
	log.Println("  POST   /messages/:id/read            - Mark one message read")
	log.Println("  POST   /conversations/:peerID/read   - Mark a conversation read")
	log.Println("  GET    /messages/unread-count        - Unread badge count")
	log.Println("  DELETE /messages/:id                 - Delete an own message")
	log.Println("  GET    /chat/history                 - Group chat history")
	log.Println("  POST   /chat/messages                - Send a group message")
	log.Println("  POST   /chat/seen                    - Mark group messages seen")
	log.Println("  DELETE /chat/messages/:id            - Delete an own group message")
	log.Println("  GET    /notifications                - List notifications")
	log.Println("  POST   /notifications                - Create a notification")
	log.Println("  POST   /notifications/:id/read       - Mark one read")
	log.Println("  POST   /notifications/read-all       - Mark all read")
	log.Println("  GET    /presence/:userID             - Presence of one user")
	log.Println("  GET    /presence/online              - All online users")
	log.Println("  POST   /topics/:topic/tick           - Tick intake (X-Api-Key)")
	log.Println("")
	log.Println("Press Ctrl+C to shutdown gracefully")
}
