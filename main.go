package main

import (
	"encoding/base64"
	"flag"
	"os"

	easy "git.fiblab.net/utils/logrus-easy-formatter"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v2"

	"github.com/tsinghua-fib-lab/perimeter-gating/boundary/mock"
	"github.com/tsinghua-fib-lab/perimeter-gating/recorder"
	"github.com/tsinghua-fib-lab/perimeter-gating/task"
	"github.com/tsinghua-fib-lab/perimeter-gating/utils/config"
)

var (
	// 配置文件路径
	configPath = flag.String("config", "", "config file path")
	// 配置文件Base64编码后的数据
	configData = flag.String("config-data", "", "config file base64 encoded data")
	// mock边界的随机种子
	mockSeed = flag.Uint64("mock.seed", 43, "random seed for the mock simulation boundary")

	// log
	logLevels = map[string]logrus.Level{
		"trace":    logrus.TraceLevel,
		"debug":    logrus.DebugLevel,
		"info":     logrus.InfoLevel,
		"warn":     logrus.WarnLevel,
		"error":    logrus.ErrorLevel,
		"critical": logrus.FatalLevel,
		"off":      logrus.PanicLevel,
	}
	logLevel = flag.String("log.level", "info", "日志级别（可选项：trace debug info warn error critical off）")

	log = logrus.WithField("module", "gate")
)

// mockBaseline 由配置推导mock边界的基准读数
// 功能：为每个检测器给出随机读数的基准值
// 说明：累积检测器的基准读数之和略高于目标累积量，保证门控在mock运行中被激活；
// 排队检测器的基准读数按所属交叉口配置的初始排队长度均摊
func mockBaseline(c config.Config) map[string]float64 {
	baseline := make(map[string]float64)
	perDetector := 1.2 * c.Gating.TargetAccumulation / float64(len(c.Detectors.Accumulation))
	for _, id := range c.Detectors.Accumulation {
		baseline[id] = perDetector
	}
	for _, b := range c.Detectors.Queues {
		var q config.StreamValue
		for _, i := range c.Intersections {
			if i.ID == b.Intersection {
				q = i.QueueLengths
				break
			}
		}
		for _, id := range b.MainQueue {
			baseline[id] = q.Main / float64(len(b.MainQueue))
		}
		for _, id := range b.SecondaryQueue {
			baseline[id] = q.Secondary / float64(len(b.SecondaryQueue))
		}
	}
	return baseline
}

// 以mock仿真边界独立运行门控算法
// 与真实仿真器的对接方式相同：实现entity.ISensingBoundary与
// entity.IActuationBoundary后传入task.NewContext即可
func main() {
	flag.Parse()
	logrus.SetFormatter(&easy.Formatter{
		TimestampFormat: "2006-01-02 15:04:05.0000",
		LogFormat:       "[%module%] [%time%] [%lvl%] %msg%\n",
	})
	if level, ok := logLevels[*logLevel]; ok {
		logrus.SetLevel(level)
	} else {
		log.Panicf("log.level must be one of %v", logLevels)
	}
	// 获取配置
	var c config.Config
	var file []byte
	var err error
	if *configPath != "" {
		file, err = os.ReadFile(*configPath)
		if err != nil {
			log.Panicf("config file load err: %v", err)
		}
	} else if *configData != "" {
		file, err = base64.StdEncoding.DecodeString(*configData)
		if err != nil {
			log.Panicf("config data load err: %v", err)
		}
	} else {
		log.Panic("config file or config data must be specified")
	}
	if err := yaml.UnmarshalStrict(file, &c); err != nil {
		log.Panicf("config file load err: %v", err)
	}
	log.Infof("%+v", c)

	rec, err := recorder.New(c.Output)
	if err != nil {
		log.Panicf("recorder init err: %v", err)
	}

	boundary := mock.NewRandom(*mockSeed, mockBaseline(c))
	t := task.NewContext(c, boundary, boundary, rec)
	t.Run()
}
