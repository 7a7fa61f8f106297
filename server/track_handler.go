package server

import (
	"net/http"

	"Bt1QSocial/model"

	"github.com/gorilla/mux"
)

// ListTracksHandler 列出曲目，可按 userId 过滤
func (h *APIHandler) ListTracksHandler(w http.ResponseWriter, r *http.Request) {
	if userID := r.URL.Query().Get("userId"); userID != "" {
		writeSuccess(w, http.StatusOK, h.st.GetTracksByUser(r.Context(), userID))
		return
	}
	writeSuccess(w, http.StatusOK, h.st.GetAllTracks(r.Context()))
}

func (h *APIHandler) GetTrackHandler(w http.ResponseWriter, r *http.Request) {
	writeFound(w, h.st.GetTrackByID(r.Context(), mux.Vars(r)["id"]), "track")
}

// CreateTrackHandler 登记一首曲目; 音频本身不经过这里
func (h *APIHandler) CreateTrackHandler(w http.ResponseWriter, r *http.Request) {
	var in model.TrackInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	t, err := h.st.CreateTrack(r.Context(), in)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeSuccess(w, http.StatusCreated, t)
}

func (h *APIHandler) UpdateTrackHandler(w http.ResponseWriter, r *http.Request) {
	var patch model.TrackPatch
	if err := decodeJSON(w, r, &patch); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	t, err := h.st.UpdateTrack(r.Context(), mux.Vars(r)["id"], patch)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeFound(w, t, "track")
}

func (h *APIHandler) DeleteTrackHandler(w http.ResponseWriter, r *http.Request) {
	if !h.st.DeleteTrack(r.Context(), mux.Vars(r)["id"]) {
		writeError(w, http.StatusNotFound, "track not found")
		return
	}
	writeSuccess(w, http.StatusOK, map[string]bool{"deleted": true})
}

// StreamTrackHandler 播放计数 +1
func (h *APIHandler) StreamTrackHandler(w http.ResponseWriter, r *http.Request) {
	writeFound(w, h.st.IncrementStreamCount(r.Context(), mux.Vars(r)["id"]), "track")
}

func (h *APIHandler) ListCommentsHandler(w http.ResponseWriter, r *http.Request) {
	writeSuccess(w, http.StatusOK, h.st.GetAllComments(r.Context()))
}

func (h *APIHandler) GetCommentsHandler(w http.ResponseWriter, r *http.Request) {
	writeSuccess(w, http.StatusOK, h.st.GetComments(r.Context(), mux.Vars(r)["id"]))
}

// CreateCommentHandler 路径里的曲目 id 优先于请求体
func (h *APIHandler) CreateCommentHandler(w http.ResponseWriter, r *http.Request) {
	var in model.CommentInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	in.TrackID = mux.Vars(r)["id"]
	c, err := h.st.CreateComment(r.Context(), in)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeSuccess(w, http.StatusCreated, c)
}

func (h *APIHandler) UpdateCommentHandler(w http.ResponseWriter, r *http.Request) {
	var patch model.CommentPatch
	if err := decodeJSON(w, r, &patch); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	c, err := h.st.UpdateComment(r.Context(), mux.Vars(r)["id"], patch)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeFound(w, c, "comment")
}
