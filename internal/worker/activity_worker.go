package worker

import (
	"github.com/spec-kit/helpdesk-stats/internal/service"
)

// StartActivityWorker registers the event handlers of the activity service.
func StartActivityWorker(activityService *service.ActivityService) {
	if activityService == nil {
		return
	}
	activityService.RegisterHandlers()
}
