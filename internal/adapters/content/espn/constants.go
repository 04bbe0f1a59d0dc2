package espn

import "time"

const (
	defaultBaseURL     = "https://site.api.espn.com/apis/site/v2/sports"
	defaultHTTPTimeout = 3 * time.Second
	errorBodyLimit     = 512

	statusHalftime = "STATUS_HALFTIME"
	statePre       = "pre"
	stateIn        = "in"
	statePost      = "post"
)
