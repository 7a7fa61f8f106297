// Package server exposes the record store over a JSON HTTP API.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"Bt1QSocial/logger"
	"Bt1QSocial/migration"
	"Bt1QSocial/store"

	"github.com/gorilla/mux"
)

const shutdownTimeout = 5 * time.Second

// APIHandler holds the dependencies shared by every handler.
type APIHandler struct {
	st     *store.Store
	engine *migration.Engine
}

// NewAPIHandler 创建 API 处理器; engine 为 nil 时迁移接口返回 503
func NewAPIHandler(st *store.Store, engine *migration.Engine) *APIHandler {
	return &APIHandler{st: st, engine: engine}
}

// NewHandler is the router wrapped in the CORS and request-log middleware.
// The wrapping sits outside mux so preflight requests never hit a 405.
func NewHandler(h *APIHandler) http.Handler {
	return loggingMiddleware(corsMiddleware(NewRouter(h)))
}

// NewRouter wires every route onto a gorilla/mux router.
func NewRouter(h *APIHandler) *mux.Router {
	router := mux.NewRouter()

	api := router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/health", h.HealthHandler).Methods(http.MethodGet)

	// 用户
	api.HandleFunc("/users", h.ListUsersHandler).Methods(http.MethodGet)
	api.HandleFunc("/users", h.CreateUserHandler).Methods(http.MethodPost)
	api.HandleFunc("/users/lookup", h.LookupUserHandler).Methods(http.MethodGet)
	api.HandleFunc("/users/{id}", h.GetUserHandler).Methods(http.MethodGet)
	api.HandleFunc("/users/{id}", h.UpdateUserHandler).Methods(http.MethodPatch, http.MethodPut)
	api.HandleFunc("/users/{id}/followers", h.GetFollowersHandler).Methods(http.MethodGet)
	api.HandleFunc("/users/{id}/following", h.GetFollowingHandler).Methods(http.MethodGet)
	api.HandleFunc("/users/{id}/follow/{targetId}", h.IsFollowingHandler).Methods(http.MethodGet)
	api.HandleFunc("/users/{id}/follow/{targetId}", h.FollowHandler).Methods(http.MethodPost)
	api.HandleFunc("/users/{id}/follow/{targetId}", h.UnfollowHandler).Methods(http.MethodDelete)
	api.HandleFunc("/users/{id}/tracks", h.GetUserTracksHandler).Methods(http.MethodGet)
	api.HandleFunc("/users/{id}/playlists", h.GetUserPlaylistsHandler).Methods(http.MethodGet)
	api.HandleFunc("/users/{id}/conversations", h.GetUserConversationsHandler).Methods(http.MethodGet)
	api.HandleFunc("/users/{id}/notifications", h.GetUserNotificationsHandler).Methods(http.MethodGet)
	api.HandleFunc("/follows", h.ListFollowsHandler).Methods(http.MethodGet)

	// 曲目与评论
	api.HandleFunc("/tracks", h.ListTracksHandler).Methods(http.MethodGet)
	api.HandleFunc("/tracks", h.CreateTrackHandler).Methods(http.MethodPost)
	api.HandleFunc("/tracks/{id}", h.GetTrackHandler).Methods(http.MethodGet)
	api.HandleFunc("/tracks/{id}", h.UpdateTrackHandler).Methods(http.MethodPatch, http.MethodPut)
	api.HandleFunc("/tracks/{id}", h.DeleteTrackHandler).Methods(http.MethodDelete)
	api.HandleFunc("/tracks/{id}/stream", h.StreamTrackHandler).Methods(http.MethodPost)
	api.HandleFunc("/tracks/{id}/comments", h.GetCommentsHandler).Methods(http.MethodGet)
	api.HandleFunc("/tracks/{id}/comments", h.CreateCommentHandler).Methods(http.MethodPost)
	api.HandleFunc("/comments", h.ListCommentsHandler).Methods(http.MethodGet)
	api.HandleFunc("/comments/{id}", h.UpdateCommentHandler).Methods(http.MethodPatch, http.MethodPut)

	// 播放列表
	api.HandleFunc("/playlists", h.ListPlaylistsHandler).Methods(http.MethodGet)
	api.HandleFunc("/playlists", h.CreatePlaylistHandler).Methods(http.MethodPost)
	api.HandleFunc("/playlists/{id}", h.GetPlaylistHandler).Methods(http.MethodGet)
	api.HandleFunc("/playlists/{id}", h.UpdatePlaylistHandler).Methods(http.MethodPatch, http.MethodPut)
	api.HandleFunc("/playlists/{id}", h.DeletePlaylistHandler).Methods(http.MethodDelete)
	api.HandleFunc("/playlists/{id}/tracks", h.AddPlaylistTrackHandler).Methods(http.MethodPost)
	api.HandleFunc("/playlists/{id}/tracks/{trackId}", h.RemovePlaylistTrackHandler).Methods(http.MethodDelete)

	// 私信
	api.HandleFunc("/conversations", h.ListConversationsHandler).Methods(http.MethodGet)
	api.HandleFunc("/conversations", h.CreateConversationHandler).Methods(http.MethodPost)
	api.HandleFunc("/conversations/{id}", h.GetConversationHandler).Methods(http.MethodGet)
	api.HandleFunc("/conversations/{id}", h.UpdateConversationHandler).Methods(http.MethodPatch, http.MethodPut)
	api.HandleFunc("/conversations/{id}/read", h.MarkConversationReadHandler).Methods(http.MethodPost)
	api.HandleFunc("/conversations/{id}/messages", h.GetMessagesHandler).Methods(http.MethodGet)
	api.HandleFunc("/conversations/{id}/messages", h.CreateMessageHandler).Methods(http.MethodPost)
	api.HandleFunc("/messages", h.ListMessagesHandler).Methods(http.MethodGet)

	// 通知
	api.HandleFunc("/notifications", h.ListNotificationsHandler).Methods(http.MethodGet)
	api.HandleFunc("/notifications", h.CreateNotificationHandler).Methods(http.MethodPost)
	api.HandleFunc("/notifications/{id}", h.UpdateNotificationHandler).Methods(http.MethodPatch, http.MethodPut)
	api.HandleFunc("/notifications/{id}/read", h.MarkNotificationReadHandler).Methods(http.MethodPost)

	// 合作项目
	api.HandleFunc("/projects", h.ListProjectsHandler).Methods(http.MethodGet)
	api.HandleFunc("/projects", h.CreateProjectHandler).Methods(http.MethodPost)
	api.HandleFunc("/projects/{id}", h.GetProjectHandler).Methods(http.MethodGet)
	api.HandleFunc("/projects/{id}", h.UpdateProjectHandler).Methods(http.MethodPatch, http.MethodPut)
	api.HandleFunc("/projects/{id}/applications", h.GetApplicationsHandler).Methods(http.MethodGet)
	api.HandleFunc("/projects/{id}/applications", h.CreateApplicationHandler).Methods(http.MethodPost)
	api.HandleFunc("/applications", h.ListApplicationsHandler).Methods(http.MethodGet)
	api.HandleFunc("/applications/{id}", h.UpdateApplicationHandler).Methods(http.MethodPatch, http.MethodPut)

	// 管理
	api.HandleFunc("/summary", h.SummaryHandler).Methods(http.MethodGet)
	api.HandleFunc("/export", h.ExportHandler).Methods(http.MethodGet)
	api.HandleFunc("/sync", h.ForceSyncHandler).Methods(http.MethodPost)
	api.HandleFunc("/reload", h.ReloadHandler).Methods(http.MethodPost)
	api.HandleFunc("/migrate", h.MigrateHandler).Methods(http.MethodPost)
	api.HandleFunc("/migrate/verify", h.VerifyMigrationHandler).Methods(http.MethodGet)

	return router
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func Run(ctx context.Context, addr string, handler http.Handler) error {
	// 设置服务器超时
	server := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Server starting", logger.String("addr", addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", logger.ErrorField(err))
		return err
	}
	logger.Info("Server exited gracefully")
	return nil
}
