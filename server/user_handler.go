package server

import (
	"net/http"
	"strings"

	"Bt1QSocial/model"

	"github.com/gorilla/mux"
)

// HealthHandler 健康检查
func (h *APIHandler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	writeSuccess(w, http.StatusOK, map[string]interface{}{
		"state": string(h.st.State()),
	})
}

// ListUsersHandler 列出用户，带 q 参数时做模糊搜索
func (h *APIHandler) ListUsersHandler(w http.ResponseWriter, r *http.Request) {
	if q := strings.TrimSpace(r.URL.Query().Get("q")); q != "" {
		writeSuccess(w, http.StatusOK, h.st.SearchUsers(r.Context(), q))
		return
	}
	writeSuccess(w, http.StatusOK, h.st.GetAllUsers(r.Context()))
}

// CreateUserHandler 创建用户
func (h *APIHandler) CreateUserHandler(w http.ResponseWriter, r *http.Request) {
	var in model.UserInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	u, err := h.st.CreateUser(r.Context(), in)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeSuccess(w, http.StatusCreated, u)
}

// LookupUserHandler 按 email 或 username 精确查找
func (h *APIHandler) LookupUserHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	switch {
	case q.Get("email") != "":
		writeFound(w, h.st.GetUserByEmail(r.Context(), q.Get("email")), "user")
	case q.Get("username") != "":
		writeFound(w, h.st.GetUserByUsername(r.Context(), q.Get("username")), "user")
	default:
		writeError(w, http.StatusBadRequest, "email or username is required")
	}
}

// GetUserHandler 获取用户资料
func (h *APIHandler) GetUserHandler(w http.ResponseWriter, r *http.Request) {
	writeFound(w, h.st.GetUserByID(r.Context(), mux.Vars(r)["id"]), "user")
}

// UpdateUserHandler 部分更新用户资料
func (h *APIHandler) UpdateUserHandler(w http.ResponseWriter, r *http.Request) {
	var patch model.UserPatch
	if err := decodeJSON(w, r, &patch); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	u, err := h.st.UpdateUser(r.Context(), mux.Vars(r)["id"], patch)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeFound(w, u, "user")
}

func (h *APIHandler) GetFollowersHandler(w http.ResponseWriter, r *http.Request) {
	writeSuccess(w, http.StatusOK, h.st.GetFollowers(r.Context(), mux.Vars(r)["id"]))
}

func (h *APIHandler) GetFollowingHandler(w http.ResponseWriter, r *http.Request) {
	writeSuccess(w, http.StatusOK, h.st.GetFollowing(r.Context(), mux.Vars(r)["id"]))
}

func (h *APIHandler) IsFollowingHandler(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	writeSuccess(w, http.StatusOK, map[string]bool{
		"following": h.st.IsFollowing(r.Context(), vars["id"], vars["targetId"]),
	})
}

// FollowHandler id 关注 targetId; 重复关注返回 changed=false
func (h *APIHandler) FollowHandler(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	changed, err := h.st.FollowUser(r.Context(), vars["id"], vars["targetId"])
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]bool{"changed": changed})
}

func (h *APIHandler) UnfollowHandler(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	changed, err := h.st.UnfollowUser(r.Context(), vars["id"], vars["targetId"])
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]bool{"changed": changed})
}

func (h *APIHandler) ListFollowsHandler(w http.ResponseWriter, r *http.Request) {
	writeSuccess(w, http.StatusOK, h.st.GetAllFollows(r.Context()))
}

func (h *APIHandler) GetUserTracksHandler(w http.ResponseWriter, r *http.Request) {
	writeSuccess(w, http.StatusOK, h.st.GetTracksByUser(r.Context(), mux.Vars(r)["id"]))
}

func (h *APIHandler) GetUserPlaylistsHandler(w http.ResponseWriter, r *http.Request) {
	writeSuccess(w, http.StatusOK, h.st.GetPlaylistsByUser(r.Context(), mux.Vars(r)["id"]))
}

func (h *APIHandler) GetUserConversationsHandler(w http.ResponseWriter, r *http.Request) {
	writeSuccess(w, http.StatusOK, h.st.GetConversations(r.Context(), mux.Vars(r)["id"]))
}

func (h *APIHandler) GetUserNotificationsHandler(w http.ResponseWriter, r *http.Request) {
	writeSuccess(w, http.StatusOK, h.st.GetNotifications(r.Context(), mux.Vars(r)["id"]))
}
