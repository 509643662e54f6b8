package recorder

import "github.com/sirupsen/logrus"

// log 记录模块的日志记录器
var log = logrus.WithField("module", "recorder")
