package buffer

import (
	"encoding/json"
)

// Memories is the transcript of a worker's action loop, one entry per round.
type Memories struct {
	Items []Memory `json:"memories"`
}

type Memory struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

func (m *Memories) Add(m2 Memory) {
	m.Items = append(m.Items, m2)
}

func (m *Memories) Len() int {
	return len(m.Items)
}

// String renders the transcript as JSON for prompts.
func (m *Memories) String() string {
	if len(m.Items) == 0 {
		return "[]"
	}
	res, err := json.Marshal(m.Items)
	if err != nil {
		return "[]"
	}
	return string(res)
}
