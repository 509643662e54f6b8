package entity

import (
	"github.com/tsinghua-fib-lab/perimeter-gating/clock"
	"github.com/tsinghua-fib-lab/perimeter-gating/utils/config"
)

// 仿真边界接口，门控核心通过这两个接口与外部仿真器交互
// 说明：mock模式下由boundary/mock提供替代实现，核心逻辑不做任何分支区分

// ISensingBoundary 感知接口
// 功能：从仿真边界批量读取检测器读数
type ISensingBoundary interface {
	// 批量读取检测器读数，key为检测器ID，value为车辆数/排队长度
	// 整批成功或整批失败，没有部分结果语义；返回的map中缺失的ID按检测器不可用处理
	ReadDetectors(ids []string) (map[string]float64, error)
}

// IActuationBoundary 执行接口
// 功能：向仿真边界提交下一控制周期的绿灯时间方案
type IActuationBoundary interface {
	// 提交一个交叉口的绿灯时间方案，以相同参数重复调用必须幂等
	ApplySplit(trafficLightID string, mainGreen, secondaryGreen float64, mainPhases, secondaryPhases []int32) error
}

type ITaskContext interface {
	Clock() *clock.Clock
	IntersectionManager() IIntersectionManager
	DetectorManager() IDetectorManager
	RuntimeConfig() *config.RuntimeConfig
}
