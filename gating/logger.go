package gating

import "github.com/sirupsen/logrus"

// log 门控模块的日志记录器
var log = logrus.WithField("module", "gating")
