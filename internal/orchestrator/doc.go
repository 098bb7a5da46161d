// Package orchestrator drives a session through the fixed workflow
// sequence: five generation steps, a human approval gate, video rendering,
// and a memory update. Runs are detached goroutines; the approval gate
// suspends the run with nothing held in the process, and an approval
// relaunches it from the top of the sequence.
package orchestrator
