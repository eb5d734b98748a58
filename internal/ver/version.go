package ver

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"time"
)

const Name = "notifier"

func Load() Version {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return Version{
			Version:   "devel",
			GoVersion: runtime.Version(),
			Revision:  "unknown",
			BuildTime: "unknown",
		}
	}

	v := Version{
		Version:   info.Main.Version,
		GoVersion: info.GoVersion,
		Revision:  "unknown",
		BuildTime: "unknown",
	}
	for _, setting := range info.Settings {
		switch setting.Key {
		case "vcs.revision":
			v.Revision = setting.Value
		case "vcs.time":
			v.BuildTime = setting.Value
		case "vcs.modified":
			v.Dirty = setting.Value == "true"
		}
	}
	if v.Version == "" || v.Version == "(devel)" {
		v.Version = "devel"
	}
	return v
}

type Version struct {
	Version   string
	GoVersion string
	Revision  string
	BuildTime string
	Dirty     bool
}

func (v Version) ShortRevision() string {
	if len(v.Revision) > 7 {
		return v.Revision[:7]
	}
	return v.Revision
}

// UserAgent is sent with every request to the notifier api.
func (v Version) UserAgent() string {
	ua := fmt.Sprintf("%s/%s (%s; %s/%s)", Name, v.Version, v.GoVersion, runtime.GOOS, runtime.GOARCH)
	if v.Dirty {
		ua += " dirty"
	}
	return ua
}

func (v Version) Format() string {
	buildTimeStr := "unknown"
	if buildTime, err := time.Parse(time.RFC3339, v.BuildTime); err == nil {
		buildTimeStr = buildTime.Format(time.ANSIC)
	}

	commit := v.ShortRevision()
	if v.Dirty {
		commit += "-dirty"
	}

	return fmt.Sprintf("Go Version: %s\nVersion: %s\nCommit: %s\nBuild Time: %s\nOS/Arch: %s/%s\n", v.GoVersion, v.Version, commit, buildTimeStr, runtime.GOOS, runtime.GOARCH)
}
