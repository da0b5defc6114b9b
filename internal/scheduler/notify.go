package scheduler

import "github.com/gen2brain/beeep"

func init() {
	beeep.AppName = "studyr"
}

// SendNotification shows a desktop notification.
func SendNotification(title, message string) error {
	return beeep.Notify(title, message, "")
}
