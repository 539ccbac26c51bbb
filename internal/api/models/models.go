package models

import (
	"github.com/smazurov/rpirtspd/internal/control"
	"github.com/smazurov/rpirtspd/internal/mounts"
)

// Health check models
type HealthData struct {
	Status  string `json:"status" example:"ok" doc:"Service status"`
	Message string `json:"message" example:"API is healthy" doc:"Status message"`
	Mounts  int    `json:"mounts" example:"4" doc:"Registered mount points"`
	Live    int    `json:"live" example:"1" doc:"Mount points with a live pipeline instance"`
}

type HealthResponse struct {
	Body HealthData
}

// Version models
type VersionData struct {
	Version   string `json:"version" example:"dev" doc:"Application version"`
	GitCommit string `json:"git_commit" example:"abc1234" doc:"Git commit SHA"`
	BuildDate string `json:"build_date" example:"2024-12-15 14:30" doc:"Build timestamp"`
	BuildID   string `json:"build_id" example:"a1b2c3d4" doc:"Unique build identifier"`
	GoVersion string `json:"go_version" example:"go1.21.0" doc:"Go compiler version"`
	Compiler  string `json:"compiler" example:"gc" doc:"Compiler used"`
	Platform  string `json:"platform" example:"linux/arm64" doc:"Platform"`
}

type VersionResponse struct {
	Body VersionData
}

// Control models
type ControlRequestData struct {
	Command string `json:"command" maxLength:"4096" example:"main bitrate=500000 audio1 max-size-time=100000000" doc:"Configuration command: stream names select, key=value sets, reset clears stored options"`
}

type ControlRequest struct {
	Source string `header:"X-Control-Source" enum:"http,cli" default:"http" doc:"Where the command came from, for metrics"`
	Body   ControlRequestData
}

type ControlData struct {
	Results  []control.Outcome `json:"results" doc:"Outcome of every directive in command order"`
	Applied  int               `json:"applied" example:"2" doc:"Directives that took effect"`
	Rejected int               `json:"rejected" example:"0" doc:"Directives that were skipped"`
}

type ControlResponse struct {
	Body ControlData
}

// Parameter registry models
type RoleParams struct {
	Role  string   `json:"role" example:"video-capture" doc:"Stage role"`
	Stage string   `json:"stage" example:"videosrc1" doc:"Element name carrying this role in every pipeline"`
	Keys  []string `json:"keys" doc:"Parameter names accepted for this role"`
}

type ParamsData struct {
	Roles []RoleParams `json:"roles" doc:"Roles in lookup priority order"`
}

type ParamsResponse struct {
	Body ParamsData
}

// Stored option models
type OptionsData struct {
	Persist bool                   `json:"persist" doc:"Whether applied options are replayed onto new instances"`
	Options []control.StoredOption `json:"options" doc:"Stored options in replay order"`
	Count   int                    `json:"count" example:"2" doc:"Number of stored options"`
}

type OptionsResponse struct {
	Body OptionsData
}

// Mount models
type MountsData struct {
	Mounts []mounts.Status `json:"mounts" doc:"Mount points in registration order"`
	Count  int             `json:"count" example:"4" doc:"Number of mount points"`
}

type MountsResponse struct {
	Body MountsData
}

type StagesRequest struct {
	Name string `path:"name" example:"main" doc:"Mount point name"`
}

type StageData struct {
	Name       string            `json:"name" example:"videosrc1" doc:"Element name"`
	Factory    string            `json:"factory" example:"rpicamsrc" doc:"Element factory"`
	Role       string            `json:"role,omitempty" example:"video-capture" doc:"Configurable role, if any"`
	Properties map[string]string `json:"properties" doc:"Current property values"`
}

type StagesData struct {
	Stream string      `json:"stream" example:"main" doc:"Mount point name"`
	Closed bool        `json:"closed" doc:"Whether the registered instance was already torn down"`
	Stages []StageData `json:"stages" doc:"Elements in description order"`
}

type StagesResponse struct {
	Body StagesData
}

// ConnectedEvent is the first message of every event stream.
type ConnectedEvent struct {
	Message   string `json:"message" example:"SSE connection established"`
	Timestamp string `json:"timestamp" example:"2025-01-27T10:30:00Z"`
}
