package routes

import (
	"linkup-server/services"
	"linkup-server/storage"
)

// Handler carries the shared dependencies of every HTTP handler. It is
// built once in main and registered on the iris app; nothing reaches for
// process-wide state at request time.
type Handler struct {
	Conversations *services.ConversationService
	Messages      *services.MessageService
	Requests      *services.MessageRequestService
	Typing        *services.TypingTracker
	Realtime      *services.Realtime
	Notifier      *services.NotificationService
	Directory     *services.UserDirectory
	Uploads       storage.UploadConfig
}

func NewHandler(
	conversations *services.ConversationService,
	messages *services.MessageService,
	requests *services.MessageRequestService,
	typing *services.TypingTracker,
	realtime *services.Realtime,
	notifier *services.NotificationService,
	directory *services.UserDirectory,
	uploads storage.UploadConfig,
) *Handler {
	return &Handler{
		Conversations: conversations,
		Messages:      messages,
		Requests:      requests,
		Typing:        typing,
		Realtime:      realtime,
		Notifier:      notifier,
		Directory:     directory,
		Uploads:       uploads,
	}
}
