package controllers

import "net/http"

// RegisterRoutes wires the HTTP routes for this controller.
func (c *WorkflowItemsController) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/workflowitems", RequirePrincipal(c.handleSubmit))
	mux.HandleFunc("GET /api/workflowitems/{id}", RequirePrincipal(c.handleGetItem))
	mux.HandleFunc("GET /api/workflowitems/{id}/events", RequirePrincipal(c.handleGetEvents))
	mux.HandleFunc("POST /api/workflowitems/{id}/abort", RequirePrincipal(c.handleAbort))
}

func (c *TasksController) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/tasks/pool", RequirePrincipal(c.handleListPoolTasks))
	mux.HandleFunc("GET /api/tasks/claimed", RequirePrincipal(c.handleListClaimedTasks))
	mux.HandleFunc("POST /api/tasks/claim", RequirePrincipal(c.handleClaim))
	mux.HandleFunc("POST /api/tasks/unclaim", RequirePrincipal(c.handleUnclaim))
	mux.HandleFunc("POST /api/tasks/execute", RequirePrincipal(c.handleExecute))
}
