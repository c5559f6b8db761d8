package main

// standaloneMeta is the TaskMetadataProvider used when ptyhubd runs without
// a desktop shell wired in: every agent is its own task, named by its own
// id, and "running" is the only status a query can observe (pool.AgentStatus
// is never called for an agent that has already left the pool).
type standaloneMeta struct{}

func (standaloneMeta) TaskName(taskID string) string { return taskID }

func (standaloneMeta) AgentStatus(agentID string) (status string, exitCode *int, lastLine string) {
	return "running", nil, ""
}
