package core

import "encoding/json"

// simulationSuccessMarker is the literal status value a successful dry-run
// reports, whichever response shape carries it.
const simulationSuccessMarker = "success"

// SimulationResult is the normalized outcome of a dry-run response.
type SimulationResult struct {
	Success bool
	Message string
}

// simulationStatusRules are the known locations of the status marker across
// the proxy's response shapes, in priority order. A rule with two paths
// (cross-shard transfers report per-shard statuses) only succeeds when every
// path carries the success marker. The first rule whose paths are all
// present decides the outcome.
var simulationStatusRules = [][][]string{
	{{"status", "status"}},
	{{"raw", "status"}},
	{{"raw", "receiverShard", "status"}, {"raw", "senderShard", "status"}},
	{{"result", "status"}},
	{{"result", "receiverShard", "status"}, {"result", "senderShard", "status"}},
}

// simulationMessagePaths are checked in order when extracting a failure
// message from a response that carried no recognizable status.
var simulationMessagePaths = [][]string{
	{"failReason"},
	{"raw", "failReason"},
	{"result", "failReason"},
	{"message"},
	{"error"},
}

// InterpretSimulation normalizes one of the proxy's dry-run response shapes
// into a single success/failure contract. A response carrying none of the
// known status locations is treated as a failure with a best-effort message.
func InterpretSimulation(raw json.RawMessage) SimulationResult {
	var body map[string]any
	if err := json.Unmarshal(raw, &body); err != nil {
		return SimulationResult{Success: false, Message: "unparsable simulation response"}
	}

	for _, rule := range simulationStatusRules {
		statuses := make([]string, 0, len(rule))
		present := true
		for _, path := range rule {
			value, ok := lookupString(body, path)
			if !ok {
				present = false
				break
			}
			statuses = append(statuses, value)
		}
		if !present {
			continue
		}
		for _, status := range statuses {
			if status != simulationSuccessMarker {
				return SimulationResult{Success: false, Message: simulationMessage(body, status)}
			}
		}
		return SimulationResult{Success: true}
	}

	return SimulationResult{Success: false, Message: simulationMessage(body, "")}
}

// simulationMessage extracts a failure message, falling back to the
// non-success status value and finally to a generic message.
func simulationMessage(body map[string]any, status string) string {
	for _, path := range simulationMessagePaths {
		if msg, ok := lookupString(body, path); ok && msg != "" {
			return msg
		}
	}
	if status != "" {
		return "simulation returned status " + status
	}
	return "unknown error"
}

// lookupString walks the nested maps along path and returns the string leaf.
func lookupString(body map[string]any, path []string) (string, bool) {
	current := any(body)
	for _, field := range path {
		node, ok := current.(map[string]any)
		if !ok {
			return "", false
		}
		current, ok = node[field]
		if !ok {
			return "", false
		}
	}
	leaf, ok := current.(string)
	return leaf, ok
}
