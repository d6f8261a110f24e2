package page

import (
	"os"
	"runtime"
	"time"

	"github.com/arm1-investment-group/rentzone-site/internal/constants"
)

// Status holds the values shown in the page's status panel. Every field is
// written into the page verbatim.
type Status struct {
	ServerTime     string
	RuntimeVersion string
	ServerSoftware string
	Database       string
	Environment    string
}

// Clock abstracts time.Now for tests
type Clock interface {
	Now() time.Time
}

type RealClock struct{}

func (RealClock) Now() time.Time {
	return time.Now()
}

// Getenv looks up an environment variable, os.Getenv by default
type Getenv func(key string) string

// envOr returns the variable's value, or fallback when it is unset or empty
func envOr(getenv Getenv, key, fallback string) string {
	if v := getenv(key); v != "" {
		return v
	}
	return fallback
}

func defaultGetenv() Getenv {
	return os.Getenv
}

func runtimeVersion() string {
	return runtime.Version()
}

// sampleStatus is used to execute freshly parsed templates once before they go live
func sampleStatus() Status {
	return Status{
		ServerTime:     time.Unix(0, 0).UTC().Format(constants.ServerTimeLayout),
		RuntimeVersion: runtimeVersion(),
		ServerSoftware: constants.ServiceName,
		Database:       constants.DefaultDBHost,
		Environment:    constants.DefaultAppEnv,
	}
}
