package grbl

import (
	"errors"
	"fmt"
	"strings"

	"go.bug.st/serial/enumerator"
)

// SerialPort describes a serial device present on the host.
type SerialPort struct {
	Name         string
	Product      string
	IsUSB        bool
	SerialNumber string
	VID          string
	PID          string
}

// SerialPortMatcher selects a serial port.
type SerialPortMatcher func(SerialPort) bool

// NewVIDPIDMatcher returns a SerialPortMatcher that returns true if the usb vendor and product IDs match.
func NewVIDPIDMatcher(vid, pid string) SerialPortMatcher {
	return func(sp SerialPort) bool {
		return sp.IsUSB && strings.EqualFold(sp.VID, vid) && strings.EqualFold(sp.PID, pid)
	}
}

// ErrNoPort is returned by FindPort when nothing matches.
var ErrNoPort = errors.New("no matching serial port")

// ListPorts enumerates the serial ports on the host.
func ListPorts() ([]SerialPort, error) {
	details, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return nil, fmt.Errorf("enumerate serial ports: %w", err)
	}
	ports := make([]SerialPort, 0, len(details))
	for _, d := range details {
		ports = append(ports, SerialPort{
			Name:         d.Name,
			Product:      d.Product,
			IsUSB:        d.IsUSB,
			SerialNumber: d.SerialNumber,
			VID:          d.VID,
			PID:          d.PID,
		})
	}
	return ports, nil
}

// FindPort returns the name of the first port accepted by match.
func FindPort(match SerialPortMatcher) (string, error) {
	ports, err := ListPorts()
	if err != nil {
		return "", err
	}
	return findPort(ports, match)
}

func findPort(ports []SerialPort, match SerialPortMatcher) (string, error) {
	for _, p := range ports {
		if match(p) {
			return p.Name, nil
		}
	}
	return "", ErrNoPort
}

// ParseVIDPID parses a `vid:pid` selector such as `2a03:0043`.
func ParseVIDPID(s string) (SerialPortMatcher, bool) {
	vid, pid, ok := strings.Cut(s, ":")
	if !ok || len(vid) != 4 || len(pid) != 4 {
		return nil, false
	}
	return NewVIDPIDMatcher(vid, pid), true
}
