package chat

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"moodchat/infrastructure"
	"moodchat/internal/auth"
	"moodchat/internal/events"
)

type JSONHandler struct {
	service *ChatService
}

func NewJSONChatHandler(service *ChatService) *JSONHandler {
	return &JSONHandler{service: service}
}

// Register mounts the chat routes on r.
func (h *JSONHandler) Register(r *mux.Router) {
	r.HandleFunc("/conversation/{user1}/{user2}", h.Conversation).Methods(http.MethodGet)
	r.HandleFunc("/recent/{userId}", h.RecentChats).Methods(http.MethodGet)
	r.HandleFunc("/message/{id}/react", h.React).Methods(http.MethodPost)
	r.HandleFunc("/mark-read", h.MarkRead).Methods(http.MethodPost)
	r.HandleFunc("/send", h.Send).Methods(http.MethodPost)
}

func (h *JSONHandler) Conversation(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	viewer, err := auth.ActingUser(r.Context(), r.URL.Query().Get("viewer"))
	if err != nil {
		infrastructure.WriteError(w, err)
		return
	}
	if id := auth.UserID(r.Context()); id != "" && id != vars["user1"] && id != vars["user2"] {
		infrastructure.WriteError(w, infrastructure.ErrNotParticipant)
		return
	}

	messages, err := h.service.History(r.Context(), viewer, vars["user1"], vars["user2"])
	if err != nil {
		infrastructure.WriteError(w, err)
		return
	}
	infrastructure.WriteJSON(w, http.StatusOK, messages)
}

func (h *JSONHandler) RecentChats(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.ActingUser(r.Context(), mux.Vars(r)["userId"])
	if err != nil {
		infrastructure.WriteError(w, err)
		return
	}

	summaries, err := h.service.RecentConversations(r.Context(), userID)
	if err != nil {
		infrastructure.WriteError(w, err)
		return
	}
	infrastructure.WriteJSON(w, http.StatusOK, summaries)
}

func (h *JSONHandler) React(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID string  `json:"userId"`
		Type   *string `json:"type"`
	}
	if err := decode(r, &req); err != nil {
		infrastructure.WriteError(w, err)
		return
	}
	userID, err := auth.ActingUser(r.Context(), req.UserID)
	if err != nil {
		infrastructure.WriteError(w, err)
		return
	}

	msg, err := h.service.React(r.Context(), events.ReactRequest{
		MessageID: mux.Vars(r)["id"],
		Type:      req.Type,
		UserID:    userID,
	})
	if err != nil {
		infrastructure.WriteError(w, err)
		return
	}
	infrastructure.WriteJSON(w, http.StatusOK, msg)
}

func (h *JSONHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID    string `json:"userId"`
		ContactID string `json:"contactId"`
		// receiverId/senderId is the older shape of the same request.
		ReceiverID string `json:"receiverId"`
		SenderID   string `json:"senderId"`
	}
	if err := decode(r, &req); err != nil {
		infrastructure.WriteError(w, err)
		return
	}
	if req.UserID == "" {
		req.UserID = req.ReceiverID
	}
	if req.ContactID == "" {
		req.ContactID = req.SenderID
	}
	userID, err := auth.ActingUser(r.Context(), req.UserID)
	if err != nil {
		infrastructure.WriteError(w, err)
		return
	}

	updated, err := h.service.MarkSeen(r.Context(), userID, req.ContactID)
	if err != nil {
		infrastructure.WriteError(w, err)
		return
	}
	infrastructure.WriteJSON(w, http.StatusOK, map[string]int{"modifiedCount": len(updated)})
}

func (h *JSONHandler) Send(w http.ResponseWriter, r *http.Request) {
	var req events.SendMessageRequest
	if err := decode(r, &req); err != nil {
		infrastructure.WriteError(w, err)
		return
	}
	senderID, err := auth.ActingUser(r.Context(), req.SenderID)
	if err != nil {
		infrastructure.WriteError(w, err)
		return
	}
	req.SenderID = senderID

	msg, err := h.service.SendMessage(r.Context(), req)
	if err != nil {
		infrastructure.WriteError(w, err)
		return
	}
	infrastructure.WriteJSON(w, http.StatusCreated, msg)
}

func decode(r *http.Request, v interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return &infrastructure.ValidationError{Field: "body", Reason: err.Error()}
	}
	return nil
}
