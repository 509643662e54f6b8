package mock

import "github.com/sirupsen/logrus"

// log mock边界的日志记录器
var log = logrus.WithField("module", "mock")
