package server

import (
	"net/http"

	"Bt1QSocial/logger"
)

// SummaryHandler 返回各集合数量与同步状态
func (h *APIHandler) SummaryHandler(w http.ResponseWriter, r *http.Request) {
	writeSuccess(w, http.StatusOK, h.st.GetDataSummary(r.Context()))
}

// ExportHandler 导出完整快照
func (h *APIHandler) ExportHandler(w http.ResponseWriter, r *http.Request) {
	writeSuccess(w, http.StatusOK, h.st.Export(r.Context()))
}

// ForceSyncHandler 立即从远端拉取; 远端不可用时返回当前本地数据
func (h *APIHandler) ForceSyncHandler(w http.ResponseWriter, r *http.Request) {
	snap, ok := h.st.ForceSync(r.Context())
	if !ok {
		logger.Warn("手动同步失败，保留本地数据")
	}
	writeSuccess(w, http.StatusOK, map[string]interface{}{
		"synced":   ok,
		"snapshot": snap,
	})
}

func (h *APIHandler) ReloadHandler(w http.ResponseWriter, r *http.Request) {
	writeSuccess(w, http.StatusOK, map[string]bool{
		"reloaded": h.st.ReloadFromCache(r.Context()),
	})
}

// MigrateHandler 执行一次完整迁移; 重复执行不会产生重复记录
func (h *APIHandler) MigrateHandler(w http.ResponseWriter, r *http.Request) {
	if h.engine == nil {
		writeError(w, http.StatusServiceUnavailable, "migration is not configured")
		return
	}
	res := h.engine.MigrateAll(r.Context())
	status := http.StatusOK
	if !res.Success {
		status = http.StatusInternalServerError
	}
	writeJSON(w, status, apiResponse{Success: res.Success, Data: res})
}

func (h *APIHandler) VerifyMigrationHandler(w http.ResponseWriter, r *http.Request) {
	if h.engine == nil {
		writeError(w, http.StatusServiceUnavailable, "migration is not configured")
		return
	}
	writeSuccess(w, http.StatusOK, h.engine.VerifyMigration(r.Context()))
}
