package control

// Outcome is the wire form of a Result, shared by the HTTP and NATS surfaces.
type Outcome struct {
	Kind     string `json:"kind" example:"set" doc:"Directive kind: select, reset, set or malformed"`
	Token    string `json:"token" example:"bitrate=500000" doc:"Directive as written"`
	Stream   string `json:"stream,omitempty" example:"main" doc:"Selected mount point"`
	Role     string `json:"role,omitempty" example:"video-capture" doc:"Stage role the key resolved to"`
	Key      string `json:"key,omitempty" example:"bitrate" doc:"Parameter name"`
	Value    string `json:"value,omitempty" example:"500000" doc:"Raw value"`
	Applied  bool   `json:"applied" doc:"Whether the directive took effect"`
	Recorded bool   `json:"recorded" doc:"Whether the option was stored for replay"`
	Outcome  string `json:"outcome" example:"applied" doc:"Outcome class"`
	Error    string `json:"error,omitempty" doc:"Failure detail"`
}

// Outcomes converts results to their wire form.
func Outcomes(results []Result) []Outcome {
	out := make([]Outcome, 0, len(results))
	for _, r := range results {
		o := Outcome{
			Kind:     r.Kind.String(),
			Token:    r.Token,
			Stream:   r.Stream,
			Role:     r.Role,
			Key:      r.Key,
			Value:    r.Value,
			Applied:  r.Applied,
			Recorded: r.Recorded,
			Outcome:  Reason(r.Err),
		}
		if r.Err != nil {
			o.Error = r.Err.Error()
		} else if r.Kind != SetParam {
			o.Outcome = r.Kind.String()
		}
		out = append(out, o)
	}
	return out
}
