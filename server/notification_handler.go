package server

import (
	"net/http"

	"Bt1QSocial/model"

	"github.com/gorilla/mux"
)

func (h *APIHandler) ListNotificationsHandler(w http.ResponseWriter, r *http.Request) {
	if userID := r.URL.Query().Get("userId"); userID != "" {
		writeSuccess(w, http.StatusOK, h.st.GetNotifications(r.Context(), userID))
		return
	}
	writeSuccess(w, http.StatusOK, h.st.GetAllNotifications(r.Context()))
}

func (h *APIHandler) CreateNotificationHandler(w http.ResponseWriter, r *http.Request) {
	var in model.NotificationInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	n, err := h.st.CreateNotification(r.Context(), in)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeSuccess(w, http.StatusCreated, n)
}

func (h *APIHandler) UpdateNotificationHandler(w http.ResponseWriter, r *http.Request) {
	var patch model.NotificationPatch
	if err := decodeJSON(w, r, &patch); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	n, err := h.st.UpdateNotification(r.Context(), mux.Vars(r)["id"], patch)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeFound(w, n, "notification")
}

func (h *APIHandler) MarkNotificationReadHandler(w http.ResponseWriter, r *http.Request) {
	n, err := h.st.MarkNotificationRead(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeFound(w, n, "notification")
}
