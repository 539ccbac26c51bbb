// Package mounts defines the RTSP mount points, builds their launch
// descriptions and owns the lifecycle of their pipeline instances.
package mounts

import (
	"fmt"
	"net"
	"strings"
	"unicode"
)

// Settings are the startup options that shape the launch descriptions.
type Settings struct {
	VideoSource    string
	VideoArgs      string
	VideoWidth     int
	VideoHeight    int
	VideoFramerate int
	VideoProfile   string

	AudioDevices   []string
	AudioArgs      string
	AudioDelayMs   int
	AudioChannels  int
	AudioClockrate int
	AudioCompress  bool
	AudioBitrate   int
}

// DefaultSettings returns the settings used when nothing is configured.
func DefaultSettings() Settings {
	return Settings{
		VideoSource:    "rpicamsrc",
		VideoArgs:      "bitrate=1000000",
		VideoWidth:     1280,
		VideoHeight:    720,
		VideoFramerate: 30,
		VideoProfile:   "baseline",
		AudioChannels:  1,
		AudioClockrate: 16000,
		AudioBitrate:   64000,
	}
}

// TestDescription is the self-contained test pattern mount.
const TestDescription = "( " +
	"videotestsrc ! video/x-raw,width=352,height=288,framerate=15/1 ! " +
	"x264enc ! rtph264pay name=pay0 pt=96 " +
	"audiotestsrc ! audio/x-raw,rate=8000 ! " +
	"alawenc ! rtppcmapay name=pay1 pt=97 " + ")"

// VideoBranch returns the camera branch ending in payloader pay0.
func VideoBranch(s Settings) string {
	source := s.VideoSource
	if source == "" {
		source = "rpicamsrc"
	}
	args := s.VideoArgs
	if args == "" {
		args = "bitrate=1000000"
	}
	profile := s.VideoProfile
	if profile == "" {
		profile = "baseline"
	}
	return fmt.Sprintf("%s name=videosrc1 %s !"+
		" capsfilter caps=video/x-h264,width=%d,height=%d,framerate=%d/1,profile=%s name=videocaps1 !"+
		" queue leaky=downstream max-size-time=0 max-size-buffers=2 !"+
		" h264parse ! rtph264pay config-interval=1 pt=96 name=pay0",
		source, args, s.VideoWidth, s.VideoHeight, s.VideoFramerate, profile)
}

// AudioBranch returns an ALSA capture branch ending in payloader payN.
// With useArgs set, configured audio args replace the device selection.
// It returns "" when there is neither a device nor usable args.
func AudioBranch(s Settings, device string, useArgs bool, pay int) string {
	source := ""
	switch {
	case useArgs && s.AudioArgs != "":
		source = s.AudioArgs
	case device != "":
		source = "device=plughw:" + device
	default:
		return ""
	}

	encoder, payloader := "alawenc", "rtppcmapay"
	if s.AudioCompress {
		encoder, payloader = fmt.Sprintf("voaacenc bitrate=%d", s.AudioBitrate), "rtpmp4apay"
	}

	return fmt.Sprintf("alsasrc name=audiosrc1 %s !"+
		" queue name=qaudio1 leaky=no max-size-time=4500000000 max-size-buffers=0 min-threshold-time=%d !"+
		" audio/x-raw,channels=%d,rate=%d ! audioresample ! audioconvert ! %s ! %s name=pay%d pt=97",
		source, int64(s.AudioDelayMs)*1000000, s.AudioChannels, s.AudioClockrate, encoder, payloader, pay)
}

// Bin wraps branches in a single top-level bin.
func Bin(video, audio string) string {
	return fmt.Sprintf("( %s %s )", video, audio)
}

// Kind classifies mount points.
type Kind string

// Mount kinds.
const (
	KindTest  Kind = "test"
	KindMain  Kind = "main"
	KindVideo Kind = "video"
	KindAudio Kind = "audio"
)

// Mount is one RTSP endpoint and the description its instances are built from.
type Mount struct {
	Name        string `json:"name" example:"main" doc:"Stream name used in control commands"`
	Path        string `json:"path" example:"/main" doc:"RTSP path"`
	Kind        Kind   `json:"kind" example:"main" doc:"Mount kind"`
	Label       string `json:"label" example:"Main stream (audio+video)" doc:"Human readable summary"`
	Description string `json:"description" doc:"Launch description"`
	Device      string `json:"device,omitempty" example:"1,0" doc:"ALSA device captured by an audio mount"`
	// Configurable mounts register their instances for runtime control.
	Configurable bool `json:"configurable" doc:"Whether instances accept control commands"`
}

// Build returns the mount table for s in registration order: test, main,
// video, then one audio mount per device.
func Build(s Settings) []Mount {
	mounts := []Mount{
		{
			Name:        "test",
			Path:        "/test",
			Kind:        KindTest,
			Label:       "Test stream",
			Description: TestDescription,
		},
	}

	mainAudio := AudioBranch(s, first(s.AudioDevices), true, 1)
	mounts = append(mounts, Mount{
		Name:         "main",
		Path:         "/main",
		Kind:         KindMain,
		Label:        "Main stream (audio+video)",
		Description:  Bin(VideoBranch(s), mainAudio),
		Configurable: true,
	})

	mounts = append(mounts, Mount{
		Name:         "video",
		Path:         "/video",
		Kind:         KindVideo,
		Label:        "Video only stream",
		Description:  Bin(VideoBranch(s), ""),
		Configurable: true,
	})

	for i, dev := range s.AudioDevices {
		desc := AudioBranch(s, dev, false, 0)
		if desc == "" {
			continue
		}
		name := fmt.Sprintf("audio%d", i+1)
		mounts = append(mounts, Mount{
			Name:         name,
			Path:         "/" + name,
			Kind:         KindAudio,
			Label:        fmt.Sprintf("Audio stream [alsa hw:%s]", dev),
			Description:  desc,
			Device:       dev,
			Configurable: true,
		})
	}

	return mounts
}

// URL returns the rtsp:// address of path on a listener bound to addr.
func URL(addr, path string) string {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		host, port = addr, ""
	}
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "127.0.0.1"
	}
	if port == "" {
		port = "8554"
	}
	return "rtsp://" + net.JoinHostPort(host, port) + path
}

// ParseDevices splits a device list such as "1,0 2,0;3" into ALSA device
// specs. Commas belong to a spec, so only whitespace and ';' separate.
func ParseDevices(list string) []string {
	return strings.FieldsFunc(list, func(r rune) bool {
		return r == ';' || unicode.IsSpace(r)
	})
}

func first(s []string) string {
	if len(s) == 0 {
		return ""
	}
	return s[0]
}
