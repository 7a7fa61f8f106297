package server

import (
	"net/http"

	"Bt1QSocial/model"

	"github.com/gorilla/mux"
)

// ListConversationsHandler 带 userId 时只返回该用户参与的会话，按最近活动倒序
func (h *APIHandler) ListConversationsHandler(w http.ResponseWriter, r *http.Request) {
	if userID := r.URL.Query().Get("userId"); userID != "" {
		writeSuccess(w, http.StatusOK, h.st.GetConversations(r.Context(), userID))
		return
	}
	writeSuccess(w, http.StatusOK, h.st.GetAllConversations(r.Context()))
}

// CreateConversationHandler 相同参与者集合的会话已存在时直接返回它
func (h *APIHandler) CreateConversationHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Participants []string `json:"participants"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	conv, err := h.st.CreateConversation(r.Context(), req.Participants)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, conv)
}

func (h *APIHandler) GetConversationHandler(w http.ResponseWriter, r *http.Request) {
	writeFound(w, h.st.GetConversationByID(r.Context(), mux.Vars(r)["id"]), "conversation")
}

func (h *APIHandler) UpdateConversationHandler(w http.ResponseWriter, r *http.Request) {
	var patch model.ConversationPatch
	if err := decodeJSON(w, r, &patch); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	conv, err := h.st.UpdateConversation(r.Context(), mux.Vars(r)["id"], patch)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeFound(w, conv, "conversation")
}

func (h *APIHandler) MarkConversationReadHandler(w http.ResponseWriter, r *http.Request) {
	conv, err := h.st.MarkConversationRead(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeFound(w, conv, "conversation")
}

func (h *APIHandler) ListMessagesHandler(w http.ResponseWriter, r *http.Request) {
	writeSuccess(w, http.StatusOK, h.st.GetAllMessages(r.Context()))
}

func (h *APIHandler) GetMessagesHandler(w http.ResponseWriter, r *http.Request) {
	writeSuccess(w, http.StatusOK, h.st.GetMessages(r.Context(), mux.Vars(r)["id"]))
}

// CreateMessageHandler 发送消息，同时刷新会话的 lastMessage 和未读数
func (h *APIHandler) CreateMessageHandler(w http.ResponseWriter, r *http.Request) {
	var in model.MessageInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	in.ConversationID = mux.Vars(r)["id"]
	m, err := h.st.CreateMessage(r.Context(), in)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeSuccess(w, http.StatusCreated, m)
}
