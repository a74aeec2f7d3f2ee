// Package nodes summarizes cluster node health for the dashboard.
package nodes

// Unknown labels nodes that report no state title.
const Unknown = "Unknown"

// Node is a Scale cluster node as reported by the nodes API.
type Node struct {
	ID          int64      `json:"id"`
	Hostname    string     `json:"hostname"`
	AgentID     string     `json:"agent_id,omitempty"`
	IsActive    bool       `json:"is_active"`
	IsPaused    bool       `json:"is_paused,omitempty"`
	PauseReason string     `json:"pause_reason,omitempty"`
	State       *NodeState `json:"state"`
}

// NodeState is the node's reported health state.
type NodeState struct {
	Name        string `json:"name"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
}

// StatusTitle is the grouping label for n.
func (n Node) StatusTitle() string {
	if n.State == nil || n.State.Title == "" {
		return Unknown
	}
	return n.State.Title
}

// Group is one (status, count) slice of the node-health chart.
type Group struct {
	Status string `json:"status"`
	Count  int    `json:"count"`
}

// Options are presentation flags handed to the rendering layer untouched.
type Options struct {
	Loading         bool   `json:"loading"`
	ShowDescription bool   `json:"show_description"`
	NodeType        string `json:"node_type"`
}

// Summary is an immutable node-health snapshot.
type Summary struct {
	Total   int     `json:"total"`
	Groups  []Group `json:"groups"`
	Options Options `json:"options"`
	Version uint64  `json:"version"`
}

// Summarize groups nodes by status title. Groups appear in the order their
// label is first seen. Nil or empty input yields a zero total and no groups.
func Summarize(nodes []Node) Summary {
	groups := make([]Group, 0)
	index := make(map[string]int)

	for _, n := range nodes {
		label := n.StatusTitle()
		i, ok := index[label]
		if !ok {
			i = len(groups)
			index[label] = i
			groups = append(groups, Group{Status: label})
		}
		groups[i].Count++
	}

	return Summary{Total: len(nodes), Groups: groups}
}

// Counts returns the groups as a label → count map.
func (s Summary) Counts() map[string]int {
	out := make(map[string]int, len(s.Groups))
	for _, g := range s.Groups {
		out[g.Status] = g.Count
	}
	return out
}
