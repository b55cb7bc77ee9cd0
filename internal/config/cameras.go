package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Camera describes one network camera pushing JPEG frames over UDP.
type Camera struct {
	ID      string `yaml:"id"`
	Label   string `yaml:"label"`
	Address string `yaml:"address"` // sender IP
}

type camerasFile struct {
	Cameras []Camera `yaml:"cameras"`
}

// LoadCameras reads the camera list used by the udp device driver.
func LoadCameras(path string) ([]Camera, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read cameras file %s: %w", path, err)
	}

	var file camerasFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse cameras file %s: %w", path, err)
	}

	if err := validateCameras(file.Cameras); err != nil {
		return nil, fmt.Errorf("invalid cameras file %s: %w", path, err)
	}
	return file.Cameras, nil
}

// validateCameras ensures ids and addresses are present and unique.
func validateCameras(cameras []Camera) error {
	seenIDs := make(map[string]bool)
	seenAddrs := make(map[string]bool)

	for i, cam := range cameras {
		if cam.ID == "" {
			return fmt.Errorf("camera at index %d has empty id", i)
		}
		if cam.Address == "" {
			return fmt.Errorf("camera %s has empty address", cam.ID)
		}
		if seenIDs[cam.ID] {
			return fmt.Errorf("duplicate camera id: %s", cam.ID)
		}
		if seenAddrs[cam.Address] {
			return fmt.Errorf("duplicate camera address: %s", cam.Address)
		}
		seenIDs[cam.ID] = true
		seenAddrs[cam.Address] = true
	}
	return nil
}
