package main

import "github.com/fzft/go-chained-map/cmd"

var (
	gitSHA1   string = "unknown"
	gitDirty  string = "unknown"
	buildID   string = "unknown"
	buildDate string = "unknown"
)

func buildInfo() cmd.BuildInfo {
	return cmd.BuildInfo{
		GitSHA1:   gitSHA1,
		GitDirty:  gitDirty,
		BuildID:   buildID,
		BuildDate: buildDate,
	}
}
