package models

// AudioDevice is an ALSA device that can capture.
type AudioDevice struct {
	CardNumber   int    `json:"card_number" example:"1" doc:"Sound card index"`
	CardID       string `json:"card_id" example:"Device" doc:"Card identifier"`
	CardName     string `json:"card_name" example:"USB Audio Device" doc:"Full card name"`
	DeviceNumber int    `json:"device_number" example:"0" doc:"Device index on card"`
	DeviceName   string `json:"device_name" example:"USB Audio" doc:"Device name"`
	Spec         string `json:"spec" example:"1,0" doc:"Value for audio.devices"`
	Mount        string `json:"mount,omitempty" example:"audio1" doc:"Mount point serving this device, if any"`
}

// AudioDevicesData represents the response data for audio device enumeration
type AudioDevicesData struct {
	Devices []AudioDevice `json:"devices" doc:"Capture devices found"`
	Count   int           `json:"count" example:"2" doc:"Number of devices found"`
}

// AudioDevicesResponse represents the HTTP response for audio device enumeration
type AudioDevicesResponse struct {
	Body AudioDevicesData
}
