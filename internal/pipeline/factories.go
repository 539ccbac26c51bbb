package pipeline

import (
	"slices"
	"sort"
)

// Factory describes an element type: its name and settable properties.
type Factory struct {
	Name       string
	Source     bool
	Properties []Property
	// Permissive factories accept any property as a string.
	Permissive bool
}

// Property returns the property spec with the given name.
func (f *Factory) Property(name string) (Property, bool) {
	for _, p := range f.Properties {
		if p.Name == name {
			return p, true
		}
	}
	if f.Permissive {
		return stringProp(name, ""), true
	}
	return Property{}, false
}

// every element carries a name
var commonProps = []Property{stringProp("name", "")}

var rpicamsrcProps = []Property{
	intProp("camera-number", 0, 1, "0"),
	intProp("bitrate", 0, 25000000, "17000000"),
	enumProp("sensor-mode", "automatic",
		"automatic", "1920x1080", "2592x1944-fast", "2592x1944-slow",
		"1296x972", "1296x730", "640x480-slow", "640x480-fast"),
	intProp("quantisation-parameter", 0, 51, "0"),
	boolProp("do-timestamp", "false"),
	intProp("rotation", 0, 359, "0"),
	boolProp("hflip", "false"),
	boolProp("vflip", "false"),
	floatProp("roi-x", 0, 1, "0"),
	floatProp("roi-y", 0, 1, "0"),
	floatProp("roi-w", 0, 1, "1"),
	floatProp("roi-h", 0, 1, "1"),
	intProp("sharpness", -100, 100, "0"),
	intProp("contrast", -100, 100, "0"),
	intProp("brightness", 0, 100, "50"),
	intProp("saturation", -100, 100, "0"),
	intProp("iso", 0, 3200, "0"),
	boolProp("inline-headers", "false"),
	intProp("shutter-speed", 0, 6000000, "0"),
	enumProp("drc", "off", "off", "low", "medium", "high"),
	boolProp("vstab", "false"),
	boolProp("video-stabilisation", "false"),
	enumProp("exposure-mode", "auto",
		"off", "auto", "night", "nightpreview", "backlight", "spotlight", "sports",
		"snow", "beach", "verylong", "fixedfps", "antishake", "fireworks"),
	intProp("exposure-compensation", -10, 10, "0"),
	enumProp("metering-mode", "average", "average", "spot", "backlight", "matrix"),
	enumProp("image-effect", "none",
		"none", "negative", "solarize", "posterize", "whiteboard", "blackboard",
		"sketch", "denoise", "emboss", "oilpaint", "hatch", "gpen", "pastel",
		"watercolour", "film", "blur", "saturation", "colourswap", "washedout",
		"colourpoint", "colourbalance", "cartoon"),
	enumProp("awb-mode", "auto",
		"off", "auto", "sunlight", "cloudy", "shade", "tungsten", "fluorescent",
		"incandescent", "flash", "horizon"),
	floatProp("awb-gain-red", 0, 8, "0"),
	floatProp("awb-gain-blue", 0, 8, "0"),
	intProp("keyframe-interval", -1, 2147483647, "-1"),
	{
		Name: "intra-refresh-type", Kind: KindEnum, Default: "none",
		Values: []EnumValue{
			{Value: -1, Nick: "none"},
			{Value: 0, Nick: "cyclic"},
			{Value: 1, Nick: "adaptive"},
			{Value: 2, Nick: "both"},
			{Value: 0x7F000001, Nick: "cyclic-rows"},
		},
	},
	{
		Name: "annotation-mode", Kind: KindFlags, Default: "0",
		Values: []EnumValue{
			{Value: 1, Nick: "custom-text"},
			{Value: 2, Nick: "text"},
			{Value: 4, Nick: "date"},
			{Value: 8, Nick: "time"},
			{Value: 16, Nick: "shutter-settings"},
			{Value: 32, Nick: "caf-settings"},
			{Value: 64, Nick: "gain-settings"},
			{Value: 128, Nick: "lens-settings"},
			{Value: 256, Nick: "motion-settings"},
			{Value: 512, Nick: "frame-number"},
			{Value: 1024, Nick: "black-background"},
		},
	},
	stringProp("annotation-text", ""),
	intProp("annotation-text-size", 0, 99, "0"),
	intProp("annotation-text-colour", -1, 0xFFFFFF, "-1"),
	intProp("annotation-text-bg-colour", -1, 0xFFFFFF, "-1"),
}

var queueProps = []Property{
	boolProp("flush-on-eos", "false"),
	enumProp("leaky", "no", "no", "upstream", "downstream"),
	uintProp("max-size-buffers", 0, "200"),
	uintProp("max-size-bytes", 0, "10485760"),
	uint64Prop("max-size-time", "1000000000"),
	uintProp("min-threshold-buffers", 0, "0"),
	uintProp("min-threshold-bytes", 0, "0"),
	uint64Prop("min-threshold-time", "0"),
	boolProp("silent", "false"),
}

var factories = map[string]*Factory{
	"rpicamsrc": {Name: "rpicamsrc", Source: true, Properties: rpicamsrcProps},
	"capsfilter": {Name: "capsfilter", Properties: []Property{
		{Name: "caps", Kind: KindCaps, Default: "ANY"},
	}},
	"alsasrc": {Name: "alsasrc", Source: true, Properties: []Property{
		stringProp("device", "default"),
		boolProp("do-timestamp", "false"),
	}},
	"queue":         {Name: "queue", Properties: queueProps},
	"h264parse":     {Name: "h264parse", Properties: []Property{intProp("config-interval", -1, 3600, "0")}},
	"audioresample": {Name: "audioresample"},
	"audioconvert":  {Name: "audioconvert"},
	"alawenc":       {Name: "alawenc"},
	"voaacenc":      {Name: "voaacenc", Properties: []Property{intProp("bitrate", 0, 320000, "128000")}},
	"x264enc": {Name: "x264enc", Properties: []Property{
		uintProp("bitrate", 2048000, "2048"),
		enumProp("speed-preset", "medium", "None", "ultrafast", "superfast", "veryfast",
			"faster", "fast", "medium", "slow", "slower", "veryslow", "placebo"),
	}},
	"rtph264pay": {Name: "rtph264pay", Properties: []Property{
		uintProp("pt", 127, "96"),
		intProp("config-interval", -1, 3600, "0"),
	}},
	"rtppcmapay": {Name: "rtppcmapay", Properties: []Property{uintProp("pt", 127, "8")}},
	"rtpmp4apay": {Name: "rtpmp4apay", Properties: []Property{uintProp("pt", 127, "96")}},
	"videotestsrc": {Name: "videotestsrc", Source: true, Properties: []Property{
		enumProp("pattern", "smpte", "smpte", "snow", "black", "white", "red", "green", "blue",
			"checkers-1", "checkers-2", "checkers-4", "checkers-8", "circular", "blink", "smpte75",
			"zone-plate", "gamut", "chroma-zone-plate", "solid-color", "ball", "smpte100", "bar",
			"pinwheel", "spokes", "gradient", "colors"),
		boolProp("is-live", "false"),
	}},
	"audiotestsrc": {Name: "audiotestsrc", Source: true, Properties: []Property{
		enumProp("wave", "sine", "sine", "square", "saw", "triangle", "silence", "white-noise",
			"pink-noise", "sine-table", "ticks", "gaussian-noise", "red-noise", "blue-noise",
			"violet-noise"),
		floatProp("freq", 0, 20000, "440"),
		boolProp("is-live", "false"),
	}},
}

func init() {
	for _, f := range factories {
		f.Properties = append(slices.Clone(commonProps), f.Properties...)
	}
}

// LookupFactory returns a known factory by name.
func LookupFactory(name string) (*Factory, bool) {
	f, ok := factories[name]
	return f, ok
}

// Factories returns the names of all known factories, sorted.
func Factories() []string {
	names := make([]string, 0, len(factories))
	for n := range factories {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// factoryFor returns the known factory or a permissive stand-in for an
// element type this process does not model.
func factoryFor(name string) *Factory {
	if f, ok := factories[name]; ok {
		return f
	}
	return &Factory{Name: name, Permissive: true}
}
