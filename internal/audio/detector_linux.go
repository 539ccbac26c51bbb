//go:build linux

package audio

import (
	"fmt"
	"os"
)

const (
	procCards = "/proc/asound/cards"
	procPCM   = "/proc/asound/pcm"
)

type linuxDetector struct {
	cardsPath string
	pcmPath   string
}

func newPlatformDetector() Detector {
	return &linuxDetector{cardsPath: procCards, pcmPath: procPCM}
}

// ListDevices enumerates ALSA capture devices from procfs.
func (d *linuxDetector) ListDevices() ([]Device, error) {
	cf, err := os.Open(d.cardsPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read ALSA cards: %w", err)
	}
	defer cf.Close()

	cards, err := parseCards(cf)
	if err != nil {
		return nil, fmt.Errorf("failed to parse ALSA cards: %w", err)
	}

	pf, err := os.Open(d.pcmPath)
	if err != nil {
		// no PCM devices registered at all
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read ALSA PCM list: %w", err)
	}
	defer pf.Close()

	return parsePCM(pf, cards)
}
