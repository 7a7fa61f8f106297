package server

import (
	"net/http"

	"Bt1QSocial/model"

	"github.com/gorilla/mux"
)

func (h *APIHandler) ListProjectsHandler(w http.ResponseWriter, r *http.Request) {
	writeSuccess(w, http.StatusOK, h.st.GetAllProjects(r.Context()))
}

func (h *APIHandler) GetProjectHandler(w http.ResponseWriter, r *http.Request) {
	writeFound(w, h.st.GetProjectByID(r.Context(), mux.Vars(r)["id"]), "project")
}

// CreateProjectHandler 发起合作项目
func (h *APIHandler) CreateProjectHandler(w http.ResponseWriter, r *http.Request) {
	var in model.ProjectInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	p, err := h.st.CreateProject(r.Context(), in)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeSuccess(w, http.StatusCreated, p)
}

func (h *APIHandler) UpdateProjectHandler(w http.ResponseWriter, r *http.Request) {
	var patch model.ProjectPatch
	if err := decodeJSON(w, r, &patch); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	p, err := h.st.UpdateProject(r.Context(), mux.Vars(r)["id"], patch)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeFound(w, p, "project")
}

func (h *APIHandler) ListApplicationsHandler(w http.ResponseWriter, r *http.Request) {
	writeSuccess(w, http.StatusOK, h.st.GetAllApplications(r.Context()))
}

func (h *APIHandler) GetApplicationsHandler(w http.ResponseWriter, r *http.Request) {
	writeSuccess(w, http.StatusOK, h.st.GetApplications(r.Context(), mux.Vars(r)["id"]))
}

// CreateApplicationHandler 申请加入项目
func (h *APIHandler) CreateApplicationHandler(w http.ResponseWriter, r *http.Request) {
	var in model.ApplicationInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	in.ProjectID = mux.Vars(r)["id"]
	a, err := h.st.CreateApplication(r.Context(), in)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeSuccess(w, http.StatusCreated, a)
}

func (h *APIHandler) UpdateApplicationHandler(w http.ResponseWriter, r *http.Request) {
	var patch model.ApplicationPatch
	if err := decodeJSON(w, r, &patch); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	a, err := h.st.UpdateApplication(r.Context(), mux.Vars(r)["id"], patch)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeFound(w, a, "application")
}
