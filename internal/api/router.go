package api

import "net/http"

func Router(h *Handler) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /v1/health", h.Health)

	mux.HandleFunc("GET /v1/scheduler/status", h.SchedulerStatus)
	mux.HandleFunc("POST /v1/scheduler/start", h.SchedulerStart)
	mux.HandleFunc("POST /v1/scheduler/stop", h.SchedulerStop)

	mux.HandleFunc("POST /api/v1/messages", h.CreateMessage)
	mux.HandleFunc("GET /api/v1/messages", h.ListMessages)
	mux.HandleFunc("GET /api/v1/messages/stats", h.MessageStats)
	mux.HandleFunc("GET /api/v1/messages/phone/{phone}", h.MessagesByPhone)
	mux.HandleFunc("GET /api/v1/messages/{id}", h.GetMessage)
	mux.HandleFunc("PUT /api/v1/messages/{id}", h.UpdateMessage)
	mux.HandleFunc("DELETE /api/v1/messages/{id}", h.DeleteMessage)

	mux.HandleFunc("POST /api/v1/projects", h.CreateProject)
	mux.HandleFunc("GET /api/v1/projects", h.ListProjects)
	mux.HandleFunc("GET /api/v1/projects/{id}", h.GetProject)
	mux.HandleFunc("PUT /api/v1/projects/{id}", h.UpdateProject)
	mux.HandleFunc("DELETE /api/v1/projects/{id}", h.DeleteProject)

	mux.HandleFunc("POST /api/v1/users", h.CreateUser)
	mux.HandleFunc("GET /api/v1/users", h.ListUsers)
	mux.HandleFunc("GET /api/v1/users/{id}", h.GetUser)
	mux.HandleFunc("PUT /api/v1/users/{id}", h.UpdateUser)
	mux.HandleFunc("DELETE /api/v1/users/{id}", h.DeleteUser)

	mux.HandleFunc("POST /api/v1/logs", h.CreateLog)
	mux.HandleFunc("GET /api/v1/logs", h.ListLogs)
	mux.HandleFunc("GET /api/v1/logs/{id}", h.GetLog)
	mux.HandleFunc("DELETE /api/v1/logs/{id}", h.DeleteLog)

	mux.HandleFunc("GET /", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("logzone-api"))
	})

	return mux
}
