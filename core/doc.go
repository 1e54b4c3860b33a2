// Package core defines the shared data model of the MedRAX agent: the
// conversation memory, the content/part union exchanged with planners, the
// scratchpad accumulated during a single agent run, the run/tool execution
// contexts and the turn-level error taxonomy. Higher level packages (agent,
// session, tool, planner) depend on core and never on each other's internals.
package core
