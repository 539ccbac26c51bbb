package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/smazurov/rpirtspd/internal/api/models"
	"github.com/smazurov/rpirtspd/internal/audio"
	"github.com/smazurov/rpirtspd/internal/mounts"
)

// registerAudioRoutes registers the capture device listing.
func (s *Server) registerAudioRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "list-audio-devices",
		Method:      http.MethodGet,
		Path:        "/api/devices/audio",
		Summary:     "List Audio Devices",
		Description: "List ALSA capture devices and the audio mount serving each one. " +
			"Use the spec values in audio.devices.",
		Tags:     []string{"devices"},
		Security: withAuth(),
		Errors:   []int{401, 500, 501},
	}, func(_ context.Context, _ *struct{}) (*models.AudioDevicesResponse, error) {
		detector := s.options.AudioDetector
		if detector == nil {
			detector = audio.NewDetector()
		}
		devices, err := detector.ListDevices()
		if errors.Is(err, audio.ErrUnsupported) {
			return nil, huma.Error501NotImplemented("Audio device enumeration is not available on this platform")
		}
		if err != nil {
			return nil, huma.NewError(http.StatusInternalServerError, "Failed to enumerate audio devices", err)
		}

		served := make(map[string]string)
		if s.mounts != nil {
			for _, st := range s.mounts.Status() {
				if st.Kind == mounts.KindAudio && st.Device != "" {
					served[st.Device] = st.Name
				}
			}
		}

		apiDevices := make([]models.AudioDevice, len(devices))
		for i, device := range devices {
			apiDevices[i] = models.AudioDevice{
				CardNumber:   device.CardNumber,
				CardID:       device.CardID,
				CardName:     device.CardName,
				DeviceNumber: device.DeviceNumber,
				DeviceName:   device.DeviceName,
				Spec:         device.Spec(),
				Mount:        served[device.Spec()],
			}
		}

		return &models.AudioDevicesResponse{
			Body: models.AudioDevicesData{
				Devices: apiDevices,
				Count:   len(apiDevices),
			},
		}, nil
	})
}
