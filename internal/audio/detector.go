// Package audio enumerates ALSA capture devices for the audio mounts.
package audio

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
)

// Device is one ALSA PCM device able to capture.
type Device struct {
	CardNumber   int    `json:"card_number"`
	CardID       string `json:"card_id"`
	CardName     string `json:"card_name"`
	DeviceNumber int    `json:"device_number"`
	DeviceName   string `json:"device_name"`
}

// Spec returns the "card,device" form used after plughw: and hw:.
func (d Device) Spec() string {
	return fmt.Sprintf("%d,%d", d.CardNumber, d.DeviceNumber)
}

// ErrUnsupported is returned by the detector on platforms without ALSA.
var ErrUnsupported = errors.New("audio device enumeration requires Linux ALSA")

// Detector lists capture devices.
type Detector interface {
	ListDevices() ([]Device, error)
}

// NewDetector returns the detector for the running platform.
func NewDetector() Detector {
	return newPlatformDetector()
}

// Specs returns the Spec of every device that can capture.
func Specs(d Detector) ([]string, error) {
	devices, err := d.ListDevices()
	if err != nil {
		return nil, err
	}
	specs := make([]string, 0, len(devices))
	for _, dev := range devices {
		specs = append(specs, dev.Spec())
	}
	return specs, nil
}

type card struct {
	id   string
	name string
}

// parseCards reads /proc/asound/cards. Each card has a header line
// " N [ID             ]: driver - Short name" followed by a long-name line.
func parseCards(r io.Reader) (map[int]card, error) {
	cards := make(map[int]card)
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		open := strings.IndexByte(line, '[')
		closing := strings.Index(line, "]:")
		if open <= 0 || closing < open {
			continue
		}
		num, err := strconv.Atoi(strings.TrimSpace(line[:open]))
		if err != nil {
			continue
		}
		c := card{id: strings.TrimSpace(line[open+1 : closing])}
		rest := strings.TrimSpace(line[closing+2:])
		if _, name, ok := strings.Cut(rest, " - "); ok {
			c.name = strings.TrimSpace(name)
		} else {
			c.name = rest
		}
		cards[num] = c
	}
	return cards, sc.Err()
}

// parsePCM reads /proc/asound/pcm and keeps devices that list a capture
// substream, e.g. "01-00: USB Audio : USB Audio : capture 1".
func parsePCM(r io.Reader, cards map[int]card) ([]Device, error) {
	var devices []Device
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		fields := strings.Split(sc.Text(), ":")
		if len(fields) < 3 {
			continue
		}
		cardStr, devStr, ok := strings.Cut(strings.TrimSpace(fields[0]), "-")
		if !ok {
			continue
		}
		cardNum, err := strconv.Atoi(cardStr)
		if err != nil {
			continue
		}
		devNum, err := strconv.Atoi(devStr)
		if err != nil {
			continue
		}

		capture := false
		for _, f := range fields[3:] {
			if strings.HasPrefix(strings.TrimSpace(f), "capture") {
				capture = true
				break
			}
		}
		if !capture {
			continue
		}

		c := cards[cardNum]
		devices = append(devices, Device{
			CardNumber:   cardNum,
			CardID:       c.id,
			CardName:     c.name,
			DeviceNumber: devNum,
			DeviceName:   strings.TrimSpace(fields[1]),
		})
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}

	sort.Slice(devices, func(i, j int) bool {
		if devices[i].CardNumber != devices[j].CardNumber {
			return devices[i].CardNumber < devices[j].CardNumber
		}
		return devices[i].DeviceNumber < devices[j].DeviceNumber
	})
	return devices, nil
}
