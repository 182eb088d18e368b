package common

import (
	"flag"

	"github.com/songquanpeng/poe-bridge/common/helper"
)

var (
	Version   = "v1.0.0"
	StartTime = helper.GetTimestamp()
)

var (
	Port         = flag.Int("port", 8080, "the listening port")
	PrintVersion = flag.Bool("version", false, "print version and exit")
)

func Init() {
	flag.Parse()
}
