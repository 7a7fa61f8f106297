package server

import (
	"net/http"

	"Bt1QSocial/model"

	"github.com/gorilla/mux"
)

func (h *APIHandler) ListPlaylistsHandler(w http.ResponseWriter, r *http.Request) {
	if userID := r.URL.Query().Get("userId"); userID != "" {
		writeSuccess(w, http.StatusOK, h.st.GetPlaylistsByUser(r.Context(), userID))
		return
	}
	writeSuccess(w, http.StatusOK, h.st.GetAllPlaylists(r.Context()))
}

func (h *APIHandler) GetPlaylistHandler(w http.ResponseWriter, r *http.Request) {
	writeFound(w, h.st.GetPlaylistByID(r.Context(), mux.Vars(r)["id"]), "playlist")
}

// CreatePlaylistHandler 创建播放列表
func (h *APIHandler) CreatePlaylistHandler(w http.ResponseWriter, r *http.Request) {
	var in model.PlaylistInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	p, err := h.st.CreatePlaylist(r.Context(), in)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeSuccess(w, http.StatusCreated, p)
}

func (h *APIHandler) UpdatePlaylistHandler(w http.ResponseWriter, r *http.Request) {
	var patch model.PlaylistPatch
	if err := decodeJSON(w, r, &patch); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	p, err := h.st.UpdatePlaylist(r.Context(), mux.Vars(r)["id"], patch)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeFound(w, p, "playlist")
}

func (h *APIHandler) DeletePlaylistHandler(w http.ResponseWriter, r *http.Request) {
	if !h.st.DeletePlaylist(r.Context(), mux.Vars(r)["id"]) {
		writeError(w, http.StatusNotFound, "playlist not found")
		return
	}
	writeSuccess(w, http.StatusOK, map[string]bool{"deleted": true})
}

// AddPlaylistTrackHandler 添加曲目到播放列表，已存在时不重复添加
func (h *APIHandler) AddPlaylistTrackHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		TrackID string `json:"trackId"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	p, err := h.st.AddTrackToPlaylist(r.Context(), mux.Vars(r)["id"], req.TrackID)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeFound(w, p, "playlist")
}

func (h *APIHandler) RemovePlaylistTrackHandler(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	p, err := h.st.RemoveTrackFromPlaylist(r.Context(), vars["id"], vars["trackId"])
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeFound(w, p, "playlist")
}
