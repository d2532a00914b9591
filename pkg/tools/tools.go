package tools

// Tool names an action a worker may ask for.
type Tool string

const (
	BlackboardRead  Tool = "blackboard_read"
	BlackboardWrite Tool = "blackboard_write"
	WebSearch       Tool = "web_search"
	Calculate       Tool = "calculate"
	Finish          Tool = "finish"
)

var descriptions = map[Tool]string{
	BlackboardRead:  `read a topic from the shared blackboard. arguments: {"namespace": string}`,
	BlackboardWrite: `write your document to your topic on the shared blackboard. arguments: {"namespace": string, "payload": object}`,
	WebSearch:       `search the web. arguments: {"query": string, "max_results": number}`,
	Calculate:       `evaluate an arithmetic expression exactly (+ - * / %, pow(a, b)). arguments: {"expression": string}`,
	Finish:          `stop and report. arguments: {} and put your closing message in "response"`,
}

func (t Tool) Description() string {
	return descriptions[t]
}

// Contains reports whether t is one of allowed.
func Contains(allowed []Tool, t Tool) bool {
	for _, a := range allowed {
		if a == t {
			return true
		}
	}
	return false
}
