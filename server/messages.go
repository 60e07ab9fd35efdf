package server

// Inbound command types accepted over the WebSocket.
const (
	cmdStartWorkflow      = "start_workflow"
	cmdCancelWorkflow     = "cancel_workflow"
	cmdGetWorkflowResults = "get_workflow_results"
	cmdSubscribe          = "subscribe"
)

// command is one inbound client request. Task is only meaningful for
// start_workflow; WorkflowID addresses an existing workflow for the rest
// (and optionally pins the id of a new one).
type command struct {
	Type       string `json:"type"`
	Task       string `json:"task,omitempty"`
	WorkflowID string `json:"workflow_id,omitempty"`
}
