package camera

import "errors"

// Capture errors carry fixed user-facing messages; raw platform error text
// never reaches the dashboard.
var (
	ErrUnsupported      = errors.New("camera access is not supported on this device")
	ErrNoCamera         = errors.New("no camera was found on this device")
	ErrPermissionDenied = errors.New("camera access was denied. Please allow camera access to continue")
	ErrDeviceNotFound   = errors.New("the requested camera could not be found")
	ErrDeviceBusy       = errors.New("the camera is already in use by another application")
	ErrConstraints      = errors.New("the camera does not support the requested settings")
	ErrOnlyOneDevice    = errors.New("no other camera is available to switch to")
	ErrVideoLoadTimeout = errors.New("timed out waiting for the camera feed to start")
)

// ErrSuperseded reports that a concurrent Start or Stop took over the
// session while an acquisition was still in progress.
var ErrSuperseded = errors.New("camera start superseded by a newer request")

var captureErrors = []error{
	ErrUnsupported,
	ErrNoCamera,
	ErrPermissionDenied,
	ErrDeviceNotFound,
	ErrDeviceBusy,
	ErrConstraints,
	ErrOnlyOneDevice,
	ErrVideoLoadTimeout,
}

// UserMessage maps any error to text safe to show a student or teacher.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	for _, known := range captureErrors {
		if errors.Is(err, known) {
			return known.Error()
		}
	}
	return "could not access the camera"
}

// mapClientError translates error codes reported by the student client
// during acquisition into typed capture errors.
func mapClientError(code string) error {
	switch code {
	case "permission_denied", "not_allowed":
		return ErrPermissionDenied
	case "not_found":
		return ErrDeviceNotFound
	case "busy", "not_readable":
		return ErrDeviceBusy
	case "overconstrained":
		return ErrConstraints
	case "unsupported":
		return ErrUnsupported
	default:
		return errors.New("camera acquisition failed: " + code)
	}
}
