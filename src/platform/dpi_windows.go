//go:build windows

package platform

import (
	"log"

	"golang.org/x/sys/windows"
)

const processPerMonitorDPIAware = 2

var (
	shcore                     = windows.NewLazySystemDLL("shcore.dll")
	user32                     = windows.NewLazySystemDLL("user32.dll")
	procSetProcessDpiAwareness = shcore.NewProc("SetProcessDpiAwareness")
	procSetProcessDPIAware     = user32.NewProc("SetProcessDPIAware")
	procGetSystemMetrics       = user32.NewProc("GetSystemMetrics")
)

// EnableDPIAwareness makes captures use physical pixels on scaled displays.
// It must run before any window is created.
func EnableDPIAwareness() {
	if err := procSetProcessDpiAwareness.Find(); err == nil {
		ret, _, _ := procSetProcessDpiAwareness.Call(uintptr(processPerMonitorDPIAware))
		if ret == 0 {
			log.Printf("DPI: per-monitor awareness enabled")
		} else {
			log.Printf("DPI: SetProcessDpiAwareness failed, HRESULT 0x%x", ret)
		}
		return
	}

	log.Printf("DPI: shcore unavailable, falling back to SetProcessDPIAware")
	if err := procSetProcessDPIAware.Find(); err != nil {
		log.Printf("DPI: no DPI awareness API available")
		return
	}
	if ret, _, _ := procSetProcessDPIAware.Call(); ret == 0 {
		log.Printf("DPI: SetProcessDPIAware failed")
	}
}

// LogDisplayMetrics records the virtual screen geometry the capture will cover.
func LogDisplayMetrics() {
	const (
		smXVirtualScreen  = 76
		smYVirtualScreen  = 77
		smCXVirtualScreen = 78
		smCYVirtualScreen = 79
		smCMonitors       = 80
	)
	metric := func(i uintptr) int32 {
		ret, _, _ := procGetSystemMetrics.Call(i)
		return int32(ret)
	}
	log.Printf("Displays: %d monitors, virtual screen x:%d y:%d w:%d h:%d",
		metric(smCMonitors), metric(smXVirtualScreen), metric(smYVirtualScreen),
		metric(smCXVirtualScreen), metric(smCYVirtualScreen))
}
